package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmanzanog/service-catalog/internal/domain"
	"github.com/jmanzanog/service-catalog/internal/infrastructure/persistence/sqldb/migrations"
)

type OracleDialect struct{}

func (d *OracleDialect) Name() string { return "oracle" }

func (d *OracleDialect) Migrate(ctx context.Context, db *sql.DB) error {
	// Goose does not support Oracle natively in a way that is easy to
	// cross-compile with go-ora, so we read the script and execute its
	// statements ourselves.
	content, err := migrations.OracleFS.ReadFile("oracle/20260101000000_init.sql")
	if err != nil {
		return fmt.Errorf("reading migration file: %w", err)
	}

	// Statements are separated by '/' as is standard in Oracle scripts.
	statements := strings.Split(string(content), "/")

	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if _, err := db.ExecContext(ctx, stmt); err != nil {
			// ORA-00955: name is already used by an existing object
			if !strings.Contains(err.Error(), "ORA-00955") {
				return fmt.Errorf("migrating: %s: %w", stmt, err)
			}
		}
	}
	return nil
}

func (d *OracleDialect) UpsertGrant(ctx context.Context, tx *sql.Tx, g *domain.AccessGrant) error {
	query := `MERGE INTO access_grants a
             USING (SELECT :1 AS rt, :2 AS rid, :3 AS gid, :4 AS perm FROM dual) s
             ON (a.resource_type = s.rt AND a.resource_id = s.rid AND a.group_id = s.gid AND a.permission = s.perm)
             WHEN NOT MATCHED THEN
               INSERT (resource_type, resource_id, group_id, permission, created_at)
               VALUES (:5, :6, :7, :8, :9)`

	_, err := tx.ExecContext(ctx, query,
		string(g.Resource.Type), // 1
		g.Resource.ID,           // 2
		g.GroupID,               // 3
		string(g.Verb),          // 4
		string(g.Resource.Type), // 5
		g.Resource.ID,           // 6
		g.GroupID,               // 7
		string(g.Verb),          // 8
		g.CreatedAt,             // 9
	)
	return err
}
