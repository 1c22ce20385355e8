package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmanzanog/service-catalog/internal/domain"
	"github.com/jmanzanog/service-catalog/internal/infrastructure/topology"
)

// ItemService orchestrates portfolio items against the topology
// service, the system of record for the underlying offerings.
type ItemService struct {
	store      domain.Store
	gateway    topology.Gateway
	access     *AccessEvaluator
	softDelete *SoftDeleteService
}

func NewItemService(store domain.Store, gateway topology.Gateway, access *AccessEvaluator, softDelete *SoftDeleteService) *ItemService {
	return &ItemService{store: store, gateway: gateway, access: access, softDelete: softDelete}
}

// AddItem validates the offering ref against topology and persists a
// new item carrying the offering's attributes. If topology does not
// know the offering, whether as a plain 404 or as a topology
// inconsistency, the caller gets ErrNotFound; transport failures stay
// server errors.
func (s *ItemService) AddItem(ctx context.Context, p domain.Principal, portfolioID, serviceOfferingRef string) (*domain.PortfolioItem, error) {
	portfolio, err := s.store.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("getting portfolio %s: %w", portfolioID, err)
	}
	if err := s.access.AuthorizeOperation(ctx, p, portfolio.Ref(), OpPortfolioAddItem); err != nil {
		return nil, err
	}

	offering, err := s.gateway.FetchOffering(ctx, serviceOfferingRef)
	if err != nil {
		var inconsistency *domain.TopologyInconsistency
		if errors.Is(err, domain.ErrOfferingNotFound) || errors.As(err, &inconsistency) {
			return nil, fmt.Errorf("service offering %s: %w", serviceOfferingRef, domain.ErrNotFound)
		}
		return nil, err
	}

	item := domain.NewPortfolioItem(portfolioID, offering.Name, offering.Description, p.ID)
	item.ServiceOfferingRef = offering.Ref
	item.ServiceOfferingSourceRef = offering.SourceRef
	item.ServiceOfferingIconRef = offering.IconRef

	if err := s.store.CreateItem(ctx, &item); err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	slog.InfoContext(ctx, "portfolio item added", "item_id", item.ID, "service_offering_ref", offering.Ref, "principal", p.ID)
	return &item, nil
}

func (s *ItemService) Get(ctx context.Context, p domain.Principal, id string) (*domain.PortfolioItem, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}
	if err := s.access.AuthorizeOperation(ctx, p, item.Ref(), OpItemShow); err != nil {
		return nil, err
	}
	return item, nil
}

// List returns the active items of a portfolio; reading the portfolio
// is the only privilege required.
func (s *ItemService) List(ctx context.Context, p domain.Principal, portfolioID string) ([]*domain.PortfolioItem, error) {
	portfolio, err := s.store.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("getting portfolio %s: %w", portfolioID, err)
	}
	if err := s.access.AuthorizeOperation(ctx, p, portfolio.Ref(), OpPortfolioShow); err != nil {
		return nil, err
	}
	return s.store.ListItems(ctx, portfolioID)
}

// Patch applies a partial update. Mutable attributes land; offering
// refs in the request are dropped without failing the call.
func (s *ItemService) Patch(ctx context.Context, p domain.Principal, id string, patch domain.ItemPatch) (*domain.PortfolioItem, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}
	if err := s.access.AuthorizeOperation(ctx, p, item.Ref(), OpItemUpdate); err != nil {
		return nil, err
	}

	item.Apply(patch)
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("updating item %s: %w", id, err)
	}
	return item, nil
}

// Destroy soft-deletes the item and returns the restore key.
func (s *ItemService) Destroy(ctx context.Context, p domain.Principal, id string) (string, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return "", fmt.Errorf("getting item %s: %w", id, err)
	}
	return s.softDelete.Discard(ctx, p, item.Ref())
}

// Restore brings a discarded item back given its restore key.
func (s *ItemService) Restore(ctx context.Context, id, restoreKey string) (*domain.PortfolioItem, error) {
	ref := domain.ResourceRef{Type: domain.ResourceTypePortfolioItem, ID: id}
	if err := s.softDelete.Restore(ctx, ref, restoreKey); err != nil {
		return nil, err
	}
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting restored item %s: %w", id, err)
	}
	return item, nil
}

// Icon fetches the item's offering icon from topology. Unlike AddItem,
// a topology inconsistency here is passed through and ends up a server
// error: the stored ref was already validated, so the mismatch is an
// upstream fault rather than caller input.
func (s *ItemService) Icon(ctx context.Context, p domain.Principal, id string) (*topology.Icon, error) {
	item, err := s.readableItem(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.gateway.FetchIcon(ctx, item.ServiceOfferingIconRef)
}

// ServicePlans fetches the ways the item's offering can be ordered.
func (s *ItemService) ServicePlans(ctx context.Context, p domain.Principal, id string) ([]topology.ServicePlan, error) {
	item, err := s.readableItem(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.gateway.FetchPlans(ctx, item.ServiceOfferingRef)
}

// ControlParameters fetches the provider control parameters of the
// item's source.
func (s *ItemService) ControlParameters(ctx context.Context, p domain.Principal, id string) (map[string]any, error) {
	item, err := s.readableItem(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.gateway.FetchControlParameters(ctx, item.ServiceOfferingSourceRef)
}

func (s *ItemService) readableItem(ctx context.Context, p domain.Principal, id string) (*domain.PortfolioItem, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}
	if err := s.access.AuthorizeOperation(ctx, p, item.Ref(), OpItemShow); err != nil {
		return nil, err
	}
	return item, nil
}
