package domain

import (
	"context"
	"time"
)

// Store is the persistence contract for the catalog. Implementations
// must provide per-resource atomic compare-and-set semantics for the
// discard/restore transition: of two concurrent Discard calls on the
// same resource exactly one succeeds, the other observes
// ErrAlreadyDiscarded. Grant writes are idempotent.
//
// All methods accept context.Context for timeout handling and
// cancellation propagation.
type Store interface {
	GetPortfolio(ctx context.Context, id string) (*Portfolio, error)
	GetPortfolioIncludingDiscarded(ctx context.Context, id string) (*Portfolio, error)
	ListPortfolios(ctx context.Context) ([]*Portfolio, error)
	CreatePortfolio(ctx context.Context, p *Portfolio) error
	UpdatePortfolio(ctx context.Context, p *Portfolio) error

	GetItem(ctx context.Context, id string) (*PortfolioItem, error)
	GetItemIncludingDiscarded(ctx context.Context, id string) (*PortfolioItem, error)
	ListItems(ctx context.Context, portfolioID string) ([]*PortfolioItem, error)
	CreateItem(ctx context.Context, i *PortfolioItem) error
	UpdateItem(ctx context.Context, i *PortfolioItem) error

	// ResolveResource returns the lifecycle view of any resource,
	// including discarded ones.
	ResolveResource(ctx context.Context, ref ResourceRef) (*Resource, error)

	// DiscardResource transitions active -> discarded and records the
	// restore token as one atomic unit. A discarded resource yields
	// ErrAlreadyDiscarded, a missing one ErrNotFound.
	DiscardResource(ctx context.Context, ref ResourceRef, at time.Time, token string) error

	// RestoreResource consumes the token and transitions
	// discarded -> active atomically. A resource absent from the
	// discarded set yields ErrNotFound; a token that does not match the
	// current unconsumed token yields ErrInvalidRestoreToken.
	RestoreResource(ctx context.Context, ref ResourceRef, token string) error

	ListGrants(ctx context.Context, ref ResourceRef) ([]AccessGrant, error)
	UpsertGrant(ctx context.Context, ref ResourceRef, groupID string, verb Verb) error
	DeleteGrant(ctx context.Context, ref ResourceRef, groupID string, verb Verb) error
}
