package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmanzanog/service-catalog/internal/application"
	"github.com/jmanzanog/service-catalog/internal/domain"
	"github.com/jmanzanog/service-catalog/internal/infrastructure/config"
	"github.com/jmanzanog/service-catalog/internal/infrastructure/metrics"
	"github.com/jmanzanog/service-catalog/internal/infrastructure/persistence/memory"
	"github.com/jmanzanog/service-catalog/internal/infrastructure/persistence/sqldb"
	"github.com/jmanzanog/service-catalog/internal/infrastructure/topology/inventory"
	httpHandler "github.com/jmanzanog/service-catalog/internal/interfaces/http"
	"github.com/joho/godotenv"
	_ "github.com/sijms/go-ora/v2"
)

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// initializeStore selects the persistence backend and runs migrations.
func initializeStore(cfg *config.Config) (domain.Store, error) {
	if cfg.DBDriver == config.DBDriverMemory {
		return memory.NewStore(), nil
	}

	var db *sql.DB
	var dialect sqldb.Dialect
	var err error

	switch cfg.DBDriver {
	case config.DBDriverPostgres:
		db, err = sql.Open("pgx", cfg.DBDSN)
		dialect = &sqldb.PostgresDialect{}
	case config.DBDriverOracle:
		db, err = sql.Open("oracle", cfg.DBDSN)
		dialect = &sqldb.OracleDialect{}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	wrapper := sqldb.New(db, dialect)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := wrapper.Dialect.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return sqldb.NewStore(wrapper), nil
}

func buildServer(cfg *config.Config, handler *httpHandler.Handler) *http.Server {
	router := gin.Default()
	httpHandler.SetupRoutes(router, handler)

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogger(cfg.LogLevel)
	metrics.Init()

	store, err := initializeStore(cfg)
	if err != nil {
		return fmt.Errorf("store initialization failed: %w", err)
	}
	slog.Info("Using store driver", "driver", cfg.DBDriver)

	gateway := inventory.NewClient(cfg.TopologyURL, cfg.TopologyToken, cfg.TopologyTimeout)

	access := application.NewAccessEvaluator(store)
	softDelete := application.NewSoftDeleteService(store, access)
	portfolios := application.NewPortfolioService(store, access, softDelete)
	items := application.NewItemService(store, gateway, access, softDelete)
	shares := application.NewShareService(store, access)

	handler := httpHandler.NewHandler(portfolios, items, shares)
	server := buildServer(cfg, handler)

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "host", cfg.ServerHost, "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
		slog.Info("Received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	slog.Info("Server exited gracefully")
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}
