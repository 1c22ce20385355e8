package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmanzanog/service-catalog/internal/domain"
)

// Store implements domain.Store on database/sql. Placeholders are
// written postgres-style and rebound for oracle; statements that differ
// structurally between engines live on the Dialect.
type Store struct {
	db *DB
}

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.Dialect.Migrate(context.Background(), s.db.DB)
}

const portfolioColumns = "id, name, description, owner_id, discarded_at, created_at, updated_at"

const itemColumns = "id, portfolio_id, name, description, owner_id, service_offering_ref, " +
	"service_offering_source_ref, service_offering_icon_ref, workflow_ref, discarded_at, created_at, updated_at"

func (s *Store) GetPortfolio(ctx context.Context, id string) (*domain.Portfolio, error) {
	query := s.db.rebind("SELECT " + portfolioColumns + " FROM portfolios WHERE id = $1 AND discarded_at IS NULL")
	return s.scanPortfolio(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) GetPortfolioIncludingDiscarded(ctx context.Context, id string) (*domain.Portfolio, error) {
	query := s.db.rebind("SELECT " + portfolioColumns + " FROM portfolios WHERE id = $1")
	return s.scanPortfolio(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) ListPortfolios(ctx context.Context) ([]*domain.Portfolio, error) {
	query := "SELECT " + portfolioColumns + " FROM portfolios WHERE discarded_at IS NULL ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying portfolios: %w", err)
	}
	defer closeRows(rows)

	var portfolios []*domain.Portfolio
	for rows.Next() {
		p, err := s.scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, p)
	}
	return portfolios, rows.Err()
}

func (s *Store) CreatePortfolio(ctx context.Context, p *domain.Portfolio) error {
	query := s.db.rebind(`
		INSERT INTO portfolios (id, name, description, owner_id, discarded_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.Description, p.Owner, nullTime(p.DiscardedAt), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting portfolio: %w", err)
	}
	return nil
}

func (s *Store) UpdatePortfolio(ctx context.Context, p *domain.Portfolio) error {
	query := s.db.rebind("UPDATE portfolios SET name = $1, description = $2, updated_at = $3 WHERE id = $4")
	res, err := s.db.ExecContext(ctx, query, p.Name, p.Description, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("updating portfolio: %w", err)
	}
	return requireRow(res)
}

func (s *Store) GetItem(ctx context.Context, id string) (*domain.PortfolioItem, error) {
	query := s.db.rebind("SELECT " + itemColumns + " FROM portfolio_items WHERE id = $1 AND discarded_at IS NULL")
	return s.scanItem(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) GetItemIncludingDiscarded(ctx context.Context, id string) (*domain.PortfolioItem, error) {
	query := s.db.rebind("SELECT " + itemColumns + " FROM portfolio_items WHERE id = $1")
	return s.scanItem(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) ListItems(ctx context.Context, portfolioID string) ([]*domain.PortfolioItem, error) {
	query := s.db.rebind("SELECT " + itemColumns + " FROM portfolio_items WHERE portfolio_id = $1 AND discarded_at IS NULL ORDER BY created_at")

	rows, err := s.db.QueryContext(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("querying portfolio items: %w", err)
	}
	defer closeRows(rows)

	var items []*domain.PortfolioItem
	for rows.Next() {
		i, err := s.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (s *Store) CreateItem(ctx context.Context, i *domain.PortfolioItem) error {
	query := s.db.rebind(`
		INSERT INTO portfolio_items (id, portfolio_id, name, description, owner_id,
			service_offering_ref, service_offering_source_ref, service_offering_icon_ref,
			workflow_ref, discarded_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`)
	_, err := s.db.ExecContext(ctx, query, i.ID, i.PortfolioID, i.Name, i.Description, i.Owner,
		i.ServiceOfferingRef, i.ServiceOfferingSourceRef, i.ServiceOfferingIconRef,
		i.WorkflowRef, nullTime(i.DiscardedAt), i.CreatedAt, i.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting portfolio item: %w", err)
	}
	return nil
}

func (s *Store) UpdateItem(ctx context.Context, i *domain.PortfolioItem) error {
	query := s.db.rebind("UPDATE portfolio_items SET name = $1, description = $2, workflow_ref = $3, updated_at = $4 WHERE id = $5")
	res, err := s.db.ExecContext(ctx, query, i.Name, i.Description, i.WorkflowRef, i.UpdatedAt, i.ID)
	if err != nil {
		return fmt.Errorf("updating portfolio item: %w", err)
	}
	return requireRow(res)
}

func (s *Store) ResolveResource(ctx context.Context, ref domain.ResourceRef) (*domain.Resource, error) {
	table, err := tableFor(ref.Type)
	if err != nil {
		return nil, err
	}

	query := s.db.rebind("SELECT owner_id, discarded_at FROM " + table + " WHERE id = $1")

	var owner string
	var discardedAt sql.NullTime
	err = s.db.QueryRowContext(ctx, query, ref.ID).Scan(&owner, &discardedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", ref, err)
	}

	return &domain.Resource{Ref: ref, Owner: owner, DiscardedAt: timePtr(discardedAt)}, nil
}

func (s *Store) DiscardResource(ctx context.Context, ref domain.ResourceRef, at time.Time, token string) error {
	table, err := tableFor(ref.Type)
	if err != nil {
		return err
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		// CAS on discarded_at: exactly one of two concurrent discards
		// flips the row.
		query := s.db.rebind("UPDATE " + table + " SET discarded_at = $1, updated_at = $2 WHERE id = $3 AND discarded_at IS NULL")
		res, err := tx.ExecContext(ctx, query, at, at, ref.ID)
		if err != nil {
			return fmt.Errorf("discarding %s: %w", ref, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			var exists int
			check := s.db.rebind("SELECT 1 FROM " + table + " WHERE id = $1")
			if err := tx.QueryRowContext(ctx, check, ref.ID).Scan(&exists); errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			} else if err != nil {
				return err
			}
			return domain.ErrAlreadyDiscarded
		}

		// A new discard supersedes any previous token for the resource.
		del := s.db.rebind("DELETE FROM restore_tokens WHERE resource_type = $1 AND resource_id = $2")
		if _, err := tx.ExecContext(ctx, del, string(ref.Type), ref.ID); err != nil {
			return fmt.Errorf("superseding restore token: %w", err)
		}
		ins := s.db.rebind("INSERT INTO restore_tokens (resource_type, resource_id, token, consumed, created_at) VALUES ($1, $2, $3, 0, $4)")
		if _, err := tx.ExecContext(ctx, ins, string(ref.Type), ref.ID, token, at); err != nil {
			return fmt.Errorf("recording restore token: %w", err)
		}
		return nil
	})
}

func (s *Store) RestoreResource(ctx context.Context, ref domain.ResourceRef, token string) error {
	table, err := tableFor(ref.Type)
	if err != nil {
		return err
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		consume := s.db.rebind("UPDATE restore_tokens SET consumed = 1 WHERE resource_type = $1 AND resource_id = $2 AND token = $3 AND consumed = 0")
		res, err := tx.ExecContext(ctx, consume, string(ref.Type), ref.ID, token)
		if err != nil {
			return fmt.Errorf("consuming restore token: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrInvalidRestoreToken
		}

		restore := s.db.rebind("UPDATE " + table + " SET discarded_at = NULL, updated_at = $1 WHERE id = $2 AND discarded_at IS NOT NULL")
		res, err = tx.ExecContext(ctx, restore, time.Now(), ref.ID)
		if err != nil {
			return fmt.Errorf("restoring %s: %w", ref, err)
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrNotDiscarded
		}
		return nil
	})
}

func (s *Store) ListGrants(ctx context.Context, ref domain.ResourceRef) ([]domain.AccessGrant, error) {
	query := s.db.rebind(`
		SELECT group_id, permission, created_at FROM access_grants
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY group_id, permission
	`)

	rows, err := s.db.QueryContext(ctx, query, string(ref.Type), ref.ID)
	if err != nil {
		return nil, fmt.Errorf("querying grants: %w", err)
	}
	defer closeRows(rows)

	var grants []domain.AccessGrant
	for rows.Next() {
		g := domain.AccessGrant{Resource: ref}
		if err := rows.Scan(&g.GroupID, &g.Verb, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning grant: %w", err)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (s *Store) UpsertGrant(ctx context.Context, ref domain.ResourceRef, groupID string, verb domain.Verb) error {
	grant := domain.AccessGrant{Resource: ref, GroupID: groupID, Verb: verb, CreatedAt: time.Now()}
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.db.Dialect.UpsertGrant(ctx, tx, &grant); err != nil {
			return fmt.Errorf("upserting grant: %w", err)
		}
		return nil
	})
}

func (s *Store) DeleteGrant(ctx context.Context, ref domain.ResourceRef, groupID string, verb domain.Verb) error {
	query := s.db.rebind("DELETE FROM access_grants WHERE resource_type = $1 AND resource_id = $2 AND group_id = $3 AND permission = $4")
	if _, err := s.db.ExecContext(ctx, query, string(ref.Type), ref.ID, groupID, string(verb)); err != nil {
		return fmt.Errorf("deleting grant: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Defaulted-empty text columns are scanned through sql.NullString:
// oracle has no empty VARCHAR2, so a Go "" round-trips as NULL there.
func (s *Store) scanPortfolio(row rowScanner) (*domain.Portfolio, error) {
	var p domain.Portfolio
	var description sql.NullString
	var discardedAt sql.NullTime

	err := row.Scan(&p.ID, &p.Name, &description, &p.Owner, &discardedAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning portfolio: %w", err)
	}

	p.Description = description.String
	p.DiscardedAt = timePtr(discardedAt)
	return &p, nil
}

func (s *Store) scanItem(row rowScanner) (*domain.PortfolioItem, error) {
	var i domain.PortfolioItem
	var description, offeringRef, sourceRef, iconRef, workflowRef sql.NullString
	var discardedAt sql.NullTime

	err := row.Scan(&i.ID, &i.PortfolioID, &i.Name, &description, &i.Owner,
		&offeringRef, &sourceRef, &iconRef,
		&workflowRef, &discardedAt, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning portfolio item: %w", err)
	}

	i.Description = description.String
	i.ServiceOfferingRef = offeringRef.String
	i.ServiceOfferingSourceRef = sourceRef.String
	i.ServiceOfferingIconRef = iconRef.String
	i.WorkflowRef = workflowRef.String
	i.DiscardedAt = timePtr(discardedAt)
	return &i, nil
}

func tableFor(t domain.ResourceType) (string, error) {
	switch t {
	case domain.ResourceTypePortfolio:
		return "portfolios", nil
	case domain.ResourceTypePortfolioItem:
		return "portfolio_items", nil
	default:
		return "", fmt.Errorf("%w: unknown resource type %q", domain.ErrInvalidArgument, t)
	}
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Error("Failed to close rows", "error", err)
	}
}
