package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmanzanog/service-catalog/internal/domain"
)

// PortfolioService implements the portfolio operations behind the API:
// CRUD, soft-delete round trip and copying.
type PortfolioService struct {
	store      domain.Store
	access     *AccessEvaluator
	softDelete *SoftDeleteService
}

func NewPortfolioService(store domain.Store, access *AccessEvaluator, softDelete *SoftDeleteService) *PortfolioService {
	return &PortfolioService{store: store, access: access, softDelete: softDelete}
}

func (s *PortfolioService) Create(ctx context.Context, p domain.Principal, name, description string) (*domain.Portfolio, error) {
	if err := s.access.AuthorizeOperation(ctx, p, PortfolioScope, OpPortfolioCreate); err != nil {
		return nil, err
	}

	portfolio := domain.NewPortfolio(name, description, p.ID)
	if err := s.store.CreatePortfolio(ctx, &portfolio); err != nil {
		return nil, fmt.Errorf("creating portfolio: %w", err)
	}

	slog.InfoContext(ctx, "portfolio created", "portfolio_id", portfolio.ID, "principal", p.ID)
	return &portfolio, nil
}

func (s *PortfolioService) Get(ctx context.Context, p domain.Principal, id string) (*domain.Portfolio, error) {
	portfolio, err := s.store.GetPortfolio(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting portfolio %s: %w", id, err)
	}
	if err := s.access.AuthorizeOperation(ctx, p, portfolio.Ref(), OpPortfolioShow); err != nil {
		return nil, err
	}
	return portfolio, nil
}

// List returns the active portfolios the principal can read: all of
// them for admins, otherwise owned ones plus those shared with one of
// the principal's groups. Discarded portfolios never appear.
func (s *PortfolioService) List(ctx context.Context, p domain.Principal) ([]*domain.Portfolio, error) {
	portfolios, err := s.store.ListPortfolios(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing portfolios: %w", err)
	}
	if p.Admin {
		return portfolios, nil
	}

	visible := make([]*domain.Portfolio, 0, len(portfolios))
	for _, portfolio := range portfolios {
		if err := s.access.Authorize(ctx, p, portfolio.Ref(), domain.VerbRead); err != nil {
			var denied *domain.DeniedError
			if errors.As(err, &denied) {
				continue
			}
			return nil, err
		}
		visible = append(visible, portfolio)
	}
	return visible, nil
}

func (s *PortfolioService) Update(ctx context.Context, p domain.Principal, id string, update domain.PortfolioUpdate) (*domain.Portfolio, error) {
	portfolio, err := s.store.GetPortfolio(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting portfolio %s: %w", id, err)
	}
	if err := s.access.AuthorizeOperation(ctx, p, portfolio.Ref(), OpPortfolioUpdate); err != nil {
		return nil, err
	}

	portfolio.Apply(update)
	if err := s.store.UpdatePortfolio(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("updating portfolio %s: %w", id, err)
	}
	return portfolio, nil
}

// Destroy soft-deletes the portfolio and returns the restore key.
func (s *PortfolioService) Destroy(ctx context.Context, p domain.Principal, id string) (string, error) {
	portfolio, err := s.store.GetPortfolio(ctx, id)
	if err != nil {
		return "", fmt.Errorf("getting portfolio %s: %w", id, err)
	}
	return s.softDelete.Discard(ctx, p, portfolio.Ref())
}

// Restore brings a discarded portfolio back given its restore key.
func (s *PortfolioService) Restore(ctx context.Context, id, restoreKey string) (*domain.Portfolio, error) {
	ref := domain.ResourceRef{Type: domain.ResourceTypePortfolio, ID: id}
	if err := s.softDelete.Restore(ctx, ref, restoreKey); err != nil {
		return nil, err
	}
	portfolio, err := s.store.GetPortfolio(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting restored portfolio %s: %w", id, err)
	}
	return portfolio, nil
}

// Copy duplicates a portfolio and all of its items. The copy belongs to
// the copying principal and starts with an empty grant set regardless
// of how the source was shared. Items are copied by value.
func (s *PortfolioService) Copy(ctx context.Context, p domain.Principal, id, newName string) (*domain.Portfolio, error) {
	source, err := s.store.GetPortfolio(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting portfolio %s: %w", id, err)
	}
	if err := s.access.AuthorizeCopy(ctx, p, source.Ref()); err != nil {
		return nil, err
	}

	if newName == "" {
		newName = "Copy of " + source.Name
	}
	copied := source.Copy(newName, p.ID)
	if err := s.store.CreatePortfolio(ctx, &copied); err != nil {
		return nil, fmt.Errorf("creating portfolio copy: %w", err)
	}

	items, err := s.store.ListItems(ctx, source.ID)
	if err != nil {
		return nil, fmt.Errorf("listing items of %s: %w", id, err)
	}
	for _, item := range items {
		itemCopy := item.Copy(copied.ID, p.ID)
		if err := s.store.CreateItem(ctx, &itemCopy); err != nil {
			return nil, fmt.Errorf("copying item %s: %w", item.ID, err)
		}
	}

	slog.InfoContext(ctx, "portfolio copied", "source_id", source.ID, "copy_id", copied.ID, "items", len(items), "principal", p.ID)
	return &copied, nil
}
