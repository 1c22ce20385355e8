package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jmanzanog/service-catalog/internal/domain"
)

type grantKey struct {
	ref     domain.ResourceRef
	groupID string
	verb    domain.Verb
}

// Store is an in-memory domain.Store used for development and tests.
// Every method takes the single mutex, which gives the discard/restore
// transition its required compare-and-set semantics.
type Store struct {
	mu         sync.RWMutex
	portfolios map[string]domain.Portfolio
	items      map[string]domain.PortfolioItem
	grants     map[grantKey]domain.AccessGrant
	tokens     map[domain.ResourceRef]domain.RestoreToken
}

func NewStore() *Store {
	return &Store{
		portfolios: make(map[string]domain.Portfolio),
		items:      make(map[string]domain.PortfolioItem),
		grants:     make(map[grantKey]domain.AccessGrant),
		tokens:     make(map[domain.ResourceRef]domain.RestoreToken),
	}
}

func (s *Store) GetPortfolio(ctx context.Context, id string) (*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.portfolios[id]
	if !ok || p.Discarded() {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetPortfolioIncludingDiscarded(ctx context.Context, id string) (*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.portfolios[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListPortfolios(ctx context.Context) ([]*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	portfolios := make([]*domain.Portfolio, 0, len(s.portfolios))
	for _, p := range s.portfolios {
		if p.Discarded() {
			continue
		}
		p := p
		portfolios = append(portfolios, &p)
	}
	sort.Slice(portfolios, func(i, j int) bool { return portfolios[i].CreatedAt.Before(portfolios[j].CreatedAt) })
	return portfolios, nil
}

func (s *Store) CreatePortfolio(ctx context.Context, p *domain.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.portfolios[p.ID] = *p
	return nil
}

func (s *Store) UpdatePortfolio(ctx context.Context, p *domain.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.portfolios[p.ID]; !ok {
		return domain.ErrNotFound
	}
	s.portfolios[p.ID] = *p
	return nil
}

func (s *Store) GetItem(ctx context.Context, id string) (*domain.PortfolioItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.items[id]
	if !ok || i.Discarded() {
		return nil, domain.ErrNotFound
	}
	return &i, nil
}

func (s *Store) GetItemIncludingDiscarded(ctx context.Context, id string) (*domain.PortfolioItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &i, nil
}

func (s *Store) ListItems(ctx context.Context, portfolioID string) ([]*domain.PortfolioItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*domain.PortfolioItem, 0)
	for _, i := range s.items {
		if i.PortfolioID != portfolioID || i.Discarded() {
			continue
		}
		i := i
		items = append(items, &i)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (s *Store) CreateItem(ctx context.Context, i *domain.PortfolioItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[i.ID] = *i
	return nil
}

func (s *Store) UpdateItem(ctx context.Context, i *domain.PortfolioItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[i.ID]; !ok {
		return domain.ErrNotFound
	}
	s.items[i.ID] = *i
	return nil
}

func (s *Store) ResolveResource(ctx context.Context, ref domain.ResourceRef) (*domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.resolveLocked(ref)
}

func (s *Store) resolveLocked(ref domain.ResourceRef) (*domain.Resource, error) {
	switch ref.Type {
	case domain.ResourceTypePortfolio:
		p, ok := s.portfolios[ref.ID]
		if !ok {
			return nil, domain.ErrNotFound
		}
		return &domain.Resource{Ref: ref, Owner: p.Owner, DiscardedAt: p.DiscardedAt}, nil
	case domain.ResourceTypePortfolioItem:
		i, ok := s.items[ref.ID]
		if !ok {
			return nil, domain.ErrNotFound
		}
		return &domain.Resource{Ref: ref, Owner: i.Owner, DiscardedAt: i.DiscardedAt}, nil
	default:
		return nil, domain.ErrNotFound
	}
}

func (s *Store) DiscardResource(ctx context.Context, ref domain.ResourceRef, at time.Time, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.resolveLocked(ref)
	if err != nil {
		return err
	}
	if res.Discarded() {
		return domain.ErrAlreadyDiscarded
	}

	s.setDiscardedLocked(ref, &at)
	s.tokens[ref] = domain.RestoreToken{Resource: ref, Token: token, CreatedAt: time.Now()}
	return nil
}

func (s *Store) RestoreResource(ctx context.Context, ref domain.ResourceRef, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.resolveLocked(ref)
	if err != nil {
		return err
	}
	if !res.Discarded() {
		return domain.ErrNotDiscarded
	}

	current, ok := s.tokens[ref]
	if !ok || current.Consumed || current.Token != token {
		return domain.ErrInvalidRestoreToken
	}

	current.Consumed = true
	s.tokens[ref] = current
	s.setDiscardedLocked(ref, nil)
	return nil
}

func (s *Store) setDiscardedLocked(ref domain.ResourceRef, at *time.Time) {
	switch ref.Type {
	case domain.ResourceTypePortfolio:
		p := s.portfolios[ref.ID]
		p.DiscardedAt = at
		s.portfolios[ref.ID] = p
	case domain.ResourceTypePortfolioItem:
		i := s.items[ref.ID]
		i.DiscardedAt = at
		s.items[ref.ID] = i
	}
}

func (s *Store) ListGrants(ctx context.Context, ref domain.ResourceRef) ([]domain.AccessGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grants := make([]domain.AccessGrant, 0)
	for key, grant := range s.grants {
		if key.ref == ref {
			grants = append(grants, grant)
		}
	}
	sort.Slice(grants, func(i, j int) bool {
		if grants[i].GroupID != grants[j].GroupID {
			return grants[i].GroupID < grants[j].GroupID
		}
		return grants[i].Verb < grants[j].Verb
	})
	return grants, nil
}

func (s *Store) UpsertGrant(ctx context.Context, ref domain.ResourceRef, groupID string, verb domain.Verb) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := grantKey{ref: ref, groupID: groupID, verb: verb}
	if _, ok := s.grants[key]; ok {
		return nil
	}
	s.grants[key] = domain.AccessGrant{Resource: ref, GroupID: groupID, Verb: verb, CreatedAt: time.Now()}
	return nil
}

func (s *Store) DeleteGrant(ctx context.Context, ref domain.ResourceRef, groupID string, verb domain.Verb) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.grants, grantKey{ref: ref, groupID: groupID, verb: verb})
	return nil
}
