package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmanzanog/service-catalog/internal/domain"
	_ "github.com/sijms/go-ora/v2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *DB {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	if os.Getenv("TEST_DB") == "oracle" {
		return setupOracle(t)
	}
	return setupPostgres(t)
}

func setupPostgres(t *testing.T) *DB {
	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %s", err)
	}

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	rawDB, err := sql.Open("pgx", connStr)
	if err != nil {
		t.Fatalf("failed to open db: %s", err)
	}

	db := New(rawDB, &PostgresDialect{})

	if err := db.Dialect.Migrate(ctx, rawDB); err != nil {
		t.Fatalf("failed to migrate: %s", err)
	}

	return db
}

func setupOracle(t *testing.T) *DB {
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "gvenzl/oracle-free:23.3-slim-faststart",
		ExposedPorts: []string{"1521/tcp"},
		Env:          map[string]string{"ORACLE_PASSWORD": "password"},
		WaitingFor:   wait.ForLog("DATABASE IS READY TO USE").WithStartupTimeout(120 * time.Second),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start oracle container: %s", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	port, err := c.MappedPort(ctx, "1521")
	if err != nil {
		t.Fatalf("failed to get port: %v", err)
	}
	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get host: %v", err)
	}

	dsn := fmt.Sprintf("oracle://system:password@%s:%s/FREE", host, port.Port())

	rawDB, err := sql.Open("oracle", dsn)
	if err != nil {
		t.Fatalf("failed to open db: %s", err)
	}

	db := New(rawDB, &OracleDialect{})
	if err := db.Dialect.Migrate(ctx, rawDB); err != nil {
		t.Fatalf("failed to migrate: %s", err)
	}

	return db
}

func TestStore_PortfolioLifecycle(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	p := domain.NewPortfolio("Bedrock Services", "all things bedrock", "fred")
	require.NoError(t, store.CreatePortfolio(ctx, &p))

	found, err := store.GetPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bedrock Services", found.Name)
	assert.Equal(t, "fred", found.Owner)

	found.Name = "Bedrock Services v2"
	found.UpdatedAt = time.Now()
	require.NoError(t, store.UpdatePortfolio(ctx, found))

	again, err := store.GetPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bedrock Services v2", again.Name)

	all, err := store.ListPortfolios(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_GetPortfolioNotFound(t *testing.T) {
	store := NewStore(setupTestDB(t))

	_, err := store.GetPortfolio(context.Background(), "non-existent-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ItemLifecycle(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	p := domain.NewPortfolio("Bedrock Services", "", "fred")
	require.NoError(t, store.CreatePortfolio(ctx, &p))

	item := domain.NewPortfolioItem(p.ID, "VM medium", "two cores", "fred")
	item.ServiceOfferingRef = "998"
	item.ServiceOfferingSourceRef = "568"
	require.NoError(t, store.CreateItem(ctx, &item))

	found, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "998", found.ServiceOfferingRef)
	assert.Equal(t, "568", found.ServiceOfferingSourceRef)
	// unset text columns round-trip as empty strings on both engines
	assert.Equal(t, "", found.ServiceOfferingIconRef)
	assert.Equal(t, "", found.WorkflowRef)

	found.Name = "VM large"
	found.WorkflowRef = "wf-1"
	found.UpdatedAt = time.Now()
	require.NoError(t, store.UpdateItem(ctx, found))

	items, err := store.ListItems(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "VM large", items[0].Name)
	assert.Equal(t, "wf-1", items[0].WorkflowRef)
}

func TestStore_DiscardAndRestore(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	p := domain.NewPortfolio("Discardable", "", "fred")
	require.NoError(t, store.CreatePortfolio(ctx, &p))
	ref := p.Ref()

	token, err := domain.NewRestoreTokenValue()
	require.NoError(t, err)
	require.NoError(t, store.DiscardResource(ctx, ref, time.Now(), token))

	_, err = store.GetPortfolio(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	hidden, err := store.GetPortfolioIncludingDiscarded(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, hidden.Discarded())

	stale, err := domain.NewRestoreTokenValue()
	require.NoError(t, err)
	err = store.DiscardResource(ctx, ref, time.Now(), stale)
	assert.ErrorIs(t, err, domain.ErrAlreadyDiscarded)

	err = store.RestoreResource(ctx, ref, "forged")
	assert.ErrorIs(t, err, domain.ErrInvalidRestoreToken)

	require.NoError(t, store.RestoreResource(ctx, ref, token))

	back, err := store.GetPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, back.Discarded())

	// the token is single use
	err = store.RestoreResource(ctx, ref, token)
	assert.ErrorIs(t, err, domain.ErrInvalidRestoreToken)
}

func TestStore_ItemDiscardVisibility(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	p := domain.NewPortfolio("Holder", "", "fred")
	require.NoError(t, store.CreatePortfolio(ctx, &p))

	item := domain.NewPortfolioItem(p.ID, "retired VM", "", "fred")
	require.NoError(t, store.CreateItem(ctx, &item))
	ref := item.Ref()

	token, err := domain.NewRestoreTokenValue()
	require.NoError(t, err)
	require.NoError(t, store.DiscardResource(ctx, ref, time.Now(), token))

	_, err = store.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	hidden, err := store.GetItemIncludingDiscarded(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, hidden.Discarded())
	assert.Equal(t, "", hidden.Description)

	_, err = store.GetItemIncludingDiscarded(ctx, "non-existent-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_DiscardSupersedesToken(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	p := domain.NewPortfolio("Twice discarded", "", "fred")
	require.NoError(t, store.CreatePortfolio(ctx, &p))
	ref := p.Ref()

	first, err := domain.NewRestoreTokenValue()
	require.NoError(t, err)
	require.NoError(t, store.DiscardResource(ctx, ref, time.Now(), first))
	require.NoError(t, store.RestoreResource(ctx, ref, first))

	second, err := domain.NewRestoreTokenValue()
	require.NoError(t, err)
	require.NoError(t, store.DiscardResource(ctx, ref, time.Now(), second))

	err = store.RestoreResource(ctx, ref, first)
	assert.ErrorIs(t, err, domain.ErrInvalidRestoreToken)
	require.NoError(t, store.RestoreResource(ctx, ref, second))
}

func TestStore_ResolveResource(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	p := domain.NewPortfolio("Resolvable", "", "wilma")
	require.NoError(t, store.CreatePortfolio(ctx, &p))

	res, err := store.ResolveResource(ctx, p.Ref())
	require.NoError(t, err)
	assert.Equal(t, "wilma", res.Owner)
	assert.False(t, res.Discarded())

	_, err = store.ResolveResource(ctx, domain.ResourceRef{Type: domain.ResourceTypePortfolio, ID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Grants(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	ref := domain.ResourceRef{Type: domain.ResourceTypePortfolio, ID: "p1"}

	require.NoError(t, store.UpsertGrant(ctx, ref, "g2", domain.VerbUpdate))
	require.NoError(t, store.UpsertGrant(ctx, ref, "g1", domain.VerbRead))
	require.NoError(t, store.UpsertGrant(ctx, ref, "g1", domain.VerbRead)) // idempotent

	grants, err := store.ListGrants(ctx, ref)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, "g1", grants[0].GroupID)
	assert.Equal(t, domain.VerbRead, grants[0].Verb)
	assert.Equal(t, "g2", grants[1].GroupID)
	assert.Equal(t, domain.VerbUpdate, grants[1].Verb)

	require.NoError(t, store.DeleteGrant(ctx, ref, "g1", domain.VerbRead))

	grants, err = store.ListGrants(ctx, ref)
	require.NoError(t, err)
	require.Len(t, grants, 1)
}
