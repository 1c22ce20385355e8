package sqldb

import (
	"context"
	"database/sql"

	"github.com/jmanzanog/service-catalog/internal/domain"
)

type Dialect interface {
	Name() string
	Migrate(ctx context.Context, db *sql.DB) error
	UpsertGrant(ctx context.Context, tx *sql.Tx, g *domain.AccessGrant) error
}
