package application

import (
	"context"
	"testing"

	"github.com/jmanzanog/service-catalog/internal/domain"
	"github.com/jmanzanog/service-catalog/internal/infrastructure/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscardAndRestoreRoundTrip(t *testing.T) {
	store := memory.NewStore()
	access := NewAccessEvaluator(store)
	svc := NewSoftDeleteService(store, access)
	p := seedPortfolio(t, store)
	ctx := context.Background()

	token, err := svc.Discard(ctx, owner, p.Ref())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = store.GetPortfolio(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "discarded portfolios leave default visibility")

	require.NoError(t, svc.Restore(ctx, p.Ref(), token))

	restored, err := store.GetPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.DiscardedAt)
}

func TestRestoreTokenIsSingleUse(t *testing.T) {
	store := memory.NewStore()
	access := NewAccessEvaluator(store)
	svc := NewSoftDeleteService(store, access)
	p := seedPortfolio(t, store)
	ctx := context.Background()

	token, err := svc.Discard(ctx, owner, p.Ref())
	require.NoError(t, err)
	require.NoError(t, svc.Restore(ctx, p.Ref(), token))

	// The portfolio is active again, so a second restore is NotFound.
	err = svc.Restore(ctx, p.Ref(), token)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Re-discarding supersedes the old token entirely.
	_, err = svc.Discard(ctx, owner, p.Ref())
	require.NoError(t, err)
	err = svc.Restore(ctx, p.Ref(), token)
	assert.ErrorIs(t, err, domain.ErrInvalidRestoreToken)
}

func TestDiscardTwiceConflicts(t *testing.T) {
	store := memory.NewStore()
	access := NewAccessEvaluator(store)
	svc := NewSoftDeleteService(store, access)
	p := seedPortfolio(t, store)
	ctx := context.Background()

	_, err := svc.Discard(ctx, admin, p.Ref())
	require.NoError(t, err)

	_, err = svc.Discard(ctx, admin, p.Ref())
	assert.ErrorIs(t, err, domain.ErrAlreadyDiscarded)
}

func TestDiscardRequiresDelete(t *testing.T) {
	store := memory.NewStore()
	access := NewAccessEvaluator(store)
	svc := NewSoftDeleteService(store, access)
	p := seedPortfolio(t, store)
	ctx := context.Background()

	require.NoError(t, store.UpsertGrant(ctx, p.Ref(), "g1", domain.VerbRead))

	_, err := svc.Discard(ctx, member, p.Ref())
	var denied *domain.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, domain.VerbDelete, denied.Verb)
}

func TestRestoreWrongToken(t *testing.T) {
	store := memory.NewStore()
	access := NewAccessEvaluator(store)
	svc := NewSoftDeleteService(store, access)
	p := seedPortfolio(t, store)
	ctx := context.Background()

	_, err := svc.Discard(ctx, owner, p.Ref())
	require.NoError(t, err)

	err = svc.Restore(ctx, p.Ref(), "not-the-token")
	assert.ErrorIs(t, err, domain.ErrInvalidRestoreToken)

	_, err = store.GetPortfolio(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "a failed restore leaves the portfolio discarded")
}
