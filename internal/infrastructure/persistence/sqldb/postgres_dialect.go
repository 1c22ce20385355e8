package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmanzanog/service-catalog/internal/domain"
	"github.com/jmanzanog/service-catalog/internal/infrastructure/persistence/sqldb/migrations"
	"github.com/pressly/goose/v3"
)

type PostgresDialect struct{}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.PostgresFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "postgres"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

func (d *PostgresDialect) UpsertGrant(ctx context.Context, tx *sql.Tx, g *domain.AccessGrant) error {
	query := `
		INSERT INTO access_grants (resource_type, resource_id, group_id, permission, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (resource_type, resource_id, group_id, permission) DO NOTHING
	`
	_, err := tx.ExecContext(ctx, query, g.Resource.Type, g.Resource.ID, g.GroupID, g.Verb, g.CreatedAt)
	return err
}
