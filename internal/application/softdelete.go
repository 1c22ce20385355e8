package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmanzanog/service-catalog/internal/domain"
)

// SoftDeleteService drives the resource lifecycle
// active -> discarded -> active. Discarding issues a one-time restore
// token; restoring consumes it. Permanent purge is a retention job
// outside this service.
type SoftDeleteService struct {
	store  domain.Store
	access *AccessEvaluator
}

func NewSoftDeleteService(store domain.Store, access *AccessEvaluator) *SoftDeleteService {
	return &SoftDeleteService{store: store, access: access}
}

// Discard removes the resource from default visibility and returns the
// restore token. The state transition and the token record are a single
// atomic unit in the store; of two concurrent discards only one wins.
func (s *SoftDeleteService) Discard(ctx context.Context, p domain.Principal, ref domain.ResourceRef) (string, error) {
	operation := OpPortfolioDestroy
	if ref.Type == domain.ResourceTypePortfolioItem {
		operation = OpItemDestroy
	}
	if err := s.access.AuthorizeOperation(ctx, p, ref, operation); err != nil {
		return "", err
	}

	token, err := domain.NewRestoreTokenValue()
	if err != nil {
		return "", err
	}

	if err := s.store.DiscardResource(ctx, ref, time.Now(), token); err != nil {
		return "", fmt.Errorf("discarding %s: %w", ref, err)
	}

	slog.InfoContext(ctx, "resource discarded", "resource", ref.String(), "principal", p.ID)
	return token, nil
}

// Restore reactivates a discarded resource given its current unconsumed
// token. The token is the credential here; no further access check is
// applied. A resource absent from the discarded set is ErrNotFound, a
// stale or wrong token ErrInvalidRestoreToken.
func (s *SoftDeleteService) Restore(ctx context.Context, ref domain.ResourceRef, token string) error {
	res, err := s.store.ResolveResource(ctx, ref)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", ref, err)
	}
	if !res.Discarded() {
		return fmt.Errorf("%s: %w", ref, domain.ErrNotFound)
	}

	if err := s.store.RestoreResource(ctx, ref, token); err != nil {
		return fmt.Errorf("restoring %s: %w", ref, err)
	}

	slog.InfoContext(ctx, "resource restored", "resource", ref.String())
	return nil
}
