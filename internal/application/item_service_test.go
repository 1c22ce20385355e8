package application

import (
	"context"
	"fmt"
	"testing"

	"github.com/jmanzanog/service-catalog/internal/domain"
	"github.com/jmanzanog/service-catalog/internal/infrastructure/persistence/memory"
	"github.com/jmanzanog/service-catalog/internal/infrastructure/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock gateway ---

type mockGateway struct {
	fetchOfferingFunc          func(ctx context.Context, ref string) (*topology.Offering, error)
	fetchIconFunc              func(ctx context.Context, iconRef string) (*topology.Icon, error)
	fetchPlansFunc             func(ctx context.Context, offeringRef string) ([]topology.ServicePlan, error)
	fetchControlParametersFunc func(ctx context.Context, sourceRef string) (map[string]any, error)
}

func (m *mockGateway) FetchOffering(ctx context.Context, ref string) (*topology.Offering, error) {
	if m.fetchOfferingFunc != nil {
		return m.fetchOfferingFunc(ctx, ref)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockGateway) FetchIcon(ctx context.Context, iconRef string) (*topology.Icon, error) {
	if m.fetchIconFunc != nil {
		return m.fetchIconFunc(ctx, iconRef)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockGateway) FetchPlans(ctx context.Context, offeringRef string) ([]topology.ServicePlan, error) {
	if m.fetchPlansFunc != nil {
		return m.fetchPlansFunc(ctx, offeringRef)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockGateway) FetchControlParameters(ctx context.Context, sourceRef string) (map[string]any, error) {
	if m.fetchControlParametersFunc != nil {
		return m.fetchControlParametersFunc(ctx, sourceRef)
	}
	return nil, fmt.Errorf("not implemented")
}

func newItemService(store *memory.Store, gateway topology.Gateway) *ItemService {
	access := NewAccessEvaluator(store)
	return NewItemService(store, gateway, access, NewSoftDeleteService(store, access))
}

func seedItem(t *testing.T, store *memory.Store, portfolioID string) domain.PortfolioItem {
	t.Helper()
	item := domain.NewPortfolioItem(portfolioID, "vm", "a vm", owner.ID)
	item.ServiceOfferingRef = "998"
	item.ServiceOfferingSourceRef = "568"
	item.ServiceOfferingIconRef = "1"
	require.NoError(t, store.CreateItem(context.Background(), &item))
	return item
}

// --- Tests ---

func TestAddItemSuccess(t *testing.T) {
	store := memory.NewStore()
	gateway := &mockGateway{
		fetchOfferingFunc: func(ctx context.Context, ref string) (*topology.Offering, error) {
			return &topology.Offering{Ref: ref, SourceRef: "568", Name: "VM medium", Description: "two cores", IconRef: "icon-1"}, nil
		},
	}
	svc := newItemService(store, gateway)
	p := seedPortfolio(t, store)

	item, err := svc.AddItem(context.Background(), owner, p.ID, "998")
	require.NoError(t, err)
	assert.Equal(t, "998", item.ServiceOfferingRef)
	assert.Equal(t, "568", item.ServiceOfferingSourceRef)
	assert.Equal(t, "icon-1", item.ServiceOfferingIconRef)
	assert.Equal(t, "VM medium", item.Name)

	stored, err := store.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, stored.PortfolioID)
}

func TestAddItemOfferingNotFound(t *testing.T) {
	store := memory.NewStore()
	gateway := &mockGateway{
		fetchOfferingFunc: func(ctx context.Context, ref string) (*topology.Offering, error) {
			return nil, fmt.Errorf("%s: %w", ref, domain.ErrOfferingNotFound)
		},
	}
	svc := newItemService(store, gateway)
	p := seedPortfolio(t, store)

	_, err := svc.AddItem(context.Background(), owner, p.ID, "998")
	assert.ErrorIs(t, err, domain.ErrNotFound, "a missing offering is a client-facing 404, not a 500")
}

func TestAddItemTopologyInconsistencyIsNotFound(t *testing.T) {
	store := memory.NewStore()
	gateway := &mockGateway{
		fetchOfferingFunc: func(ctx context.Context, ref string) (*topology.Offering, error) {
			return nil, &domain.TopologyInconsistency{Message: "kaboom"}
		},
	}
	svc := newItemService(store, gateway)
	p := seedPortfolio(t, store)

	_, err := svc.AddItem(context.Background(), owner, p.ID, "998")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddItemUnavailablePropagates(t *testing.T) {
	store := memory.NewStore()
	gateway := &mockGateway{
		fetchOfferingFunc: func(ctx context.Context, ref string) (*topology.Offering, error) {
			return nil, fmt.Errorf("timeout: %w", domain.ErrTopologyUnavailable)
		},
	}
	svc := newItemService(store, gateway)
	p := seedPortfolio(t, store)

	_, err := svc.AddItem(context.Background(), owner, p.ID, "998")
	assert.ErrorIs(t, err, domain.ErrTopologyUnavailable)
}

func TestAddItemRequiresPortfolioUpdate(t *testing.T) {
	store := memory.NewStore()
	svc := newItemService(store, &mockGateway{})
	p := seedPortfolio(t, store)
	ctx := context.Background()

	require.NoError(t, store.UpsertGrant(ctx, p.Ref(), "g1", domain.VerbRead))

	_, err := svc.AddItem(ctx, member, p.ID, "998")
	var denied *domain.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, domain.VerbUpdate, denied.Verb)
}

func TestPatchItemScenario(t *testing.T) {
	store := memory.NewStore()
	svc := newItemService(store, &mockGateway{})
	p := seedPortfolio(t, store)
	item := seedItem(t, store, p.ID)
	ctx := context.Background()

	name := "X"
	offeringRef := "27"
	patched, err := svc.Patch(ctx, owner, item.ID, domain.ItemPatch{Name: &name, ServiceOfferingRef: &offeringRef})
	require.NoError(t, err)

	assert.Equal(t, "X", patched.Name)
	assert.Equal(t, "998", patched.ServiceOfferingRef, "read-only field is dropped, not applied")

	stored, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", stored.Name)
	assert.Equal(t, "998", stored.ServiceOfferingRef)
}

func TestServicePlansPassThrough(t *testing.T) {
	store := memory.NewStore()
	gateway := &mockGateway{
		fetchPlansFunc: func(ctx context.Context, offeringRef string) ([]topology.ServicePlan, error) {
			assert.Equal(t, "998", offeringRef, "plans are keyed off the stored offering ref")
			return []topology.ServicePlan{{ID: "1"}, {ID: "2"}}, nil
		},
	}
	svc := newItemService(store, gateway)
	p := seedPortfolio(t, store)
	item := seedItem(t, store, p.ID)

	plans, err := svc.ServicePlans(context.Background(), owner, item.ID)
	require.NoError(t, err)
	assert.Len(t, plans, 2)
}

func TestServicePlansInconsistencyStaysServerError(t *testing.T) {
	store := memory.NewStore()
	gateway := &mockGateway{
		fetchPlansFunc: func(ctx context.Context, offeringRef string) ([]topology.ServicePlan, error) {
			return nil, &domain.TopologyInconsistency{Message: "kaboom"}
		},
	}
	svc := newItemService(store, gateway)
	p := seedPortfolio(t, store)
	item := seedItem(t, store, p.ID)

	_, err := svc.ServicePlans(context.Background(), owner, item.ID)
	var inconsistency *domain.TopologyInconsistency
	require.ErrorAs(t, err, &inconsistency)
	assert.NotErrorIs(t, err, domain.ErrNotFound, "unlike AddItem, plan lookups keep the inconsistency")
}

func TestIconUsesStoredIconRef(t *testing.T) {
	store := memory.NewStore()
	gateway := &mockGateway{
		fetchIconFunc: func(ctx context.Context, iconRef string) (*topology.Icon, error) {
			assert.Equal(t, "1", iconRef)
			return &topology.Icon{Ref: iconRef, SourceRef: "src", Data: "img"}, nil
		},
	}
	svc := newItemService(store, gateway)
	p := seedPortfolio(t, store)
	item := seedItem(t, store, p.ID)

	icon, err := svc.Icon(context.Background(), owner, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "img", icon.Data)
}

func TestControlParametersUsesSourceRef(t *testing.T) {
	store := memory.NewStore()
	gateway := &mockGateway{
		fetchControlParametersFunc: func(ctx context.Context, sourceRef string) (map[string]any, error) {
			assert.Equal(t, "568", sourceRef)
			return map[string]any{"fred": "bedrock"}, nil
		},
	}
	svc := newItemService(store, gateway)
	p := seedPortfolio(t, store)
	item := seedItem(t, store, p.ID)

	params, err := svc.ControlParameters(context.Background(), owner, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "bedrock", params["fred"])
}

func TestItemDestroyAndRestore(t *testing.T) {
	store := memory.NewStore()
	svc := newItemService(store, &mockGateway{})
	p := seedPortfolio(t, store)
	item := seedItem(t, store, p.ID)
	ctx := context.Background()

	key, err := svc.Destroy(ctx, owner, item.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, owner, item.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	restored, err := svc.Restore(ctx, item.ID, key)
	require.NoError(t, err)
	assert.Nil(t, restored.DiscardedAt)
}
