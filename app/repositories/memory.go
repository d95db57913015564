package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/developlogy/sitebuilder/app/models"
)

// MemorySiteRepository keeps sites in a map. It stores and returns copies,
// so callers never share a document with the store.
type MemorySiteRepository struct {
	mu    sync.RWMutex
	sites map[string]*models.Site
	now   Clock
}

func NewMemorySiteRepository(now Clock) *MemorySiteRepository {
	return &MemorySiteRepository{sites: map[string]*models.Site{}, now: clockOr(now)}
}

func (r *MemorySiteRepository) ListByOwner(_ context.Context, ownerID string) ([]*models.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Site
	for _, s := range r.sites {
		if s.OwnerID == ownerID {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemorySiteRepository) ListAll(_ context.Context) ([]*models.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Site, 0, len(r.sites))
	for _, s := range r.sites {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemorySiteRepository) Find(_ context.Context, id string) (*models.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sites[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return s.Clone(), nil
}

func (r *MemorySiteRepository) Create(_ context.Context, site *models.Site) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fillSite(site, r.now())
	if _, exists := r.sites[site.ID]; exists {
		return models.Storage("create site", errDuplicate(site.ID))
	}
	r.sites[site.ID] = site.Clone()
	return nil
}

func (r *MemorySiteRepository) Update(_ context.Context, site *models.Site, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.sites[site.ID]
	if !ok {
		return models.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return models.ErrStaleVersion
	}
	stored := site.Clone()
	stored.OwnerID = cur.OwnerID
	stored.CreatedAt = cur.CreatedAt
	stored.Version = expectedVersion + 1
	r.sites[site.ID] = stored
	site.Version = stored.Version
	return nil
}

func (r *MemorySiteRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	delete(r.sites, id)
	r.mu.Unlock()
	return nil
}

type errDuplicate string

func (e errDuplicate) Error() string { return "duplicate key " + string(e) }

// MemoryUserRepository keeps users keyed by id and by email.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]models.User
	byEmail map[string]string
	now     Clock
}

func NewMemoryUserRepository(now Clock) *MemoryUserRepository {
	return &MemoryUserRepository{byID: map[string]models.User{}, byEmail: map[string]string{}, now: clockOr(now)}
}

func (r *MemoryUserRepository) Find(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[models.NormalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, models.ErrNotFound
	}
	return r.Find(ctx, id)
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fillUser(user, r.now)
	if _, taken := r.byEmail[user.Email]; taken {
		return models.Storage("create user", errDuplicate(user.Email))
	}
	r.byID[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}

type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
	now    Clock
}

func NewMemoryOrderRepository(now Clock) *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: map[string]*models.Order{}, now: clockOr(now)}
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.CartItem(nil), o.Items...)
	return &c
}

func (r *MemoryOrderRepository) Save(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fillOrder(order, r.now)
	r.orders[order.ID] = copyOrder(order)
	return nil
}

func (r *MemoryOrderRepository) Find(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return copyOrder(o), nil
}

func (r *MemoryOrderRepository) ListByUser(_ context.Context, userID string) ([]*models.Order, error) {
	return r.filter(func(o *models.Order) bool { return o.UserID == userID }), nil
}

func (r *MemoryOrderRepository) ListBySite(_ context.Context, siteID string) ([]*models.Order, error) {
	return r.filter(func(o *models.Order) bool { return o.SiteID == siteID }), nil
}

func (r *MemoryOrderRepository) filter(keep func(*models.Order) bool) []*models.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.Order{}
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// MemoryAnalyticsRepository is a bounded in-process event log.
type MemoryAnalyticsRepository struct {
	mu     sync.RWMutex
	events []models.AnalyticsEvent
	now    Clock
	cap    int
}

func NewMemoryAnalyticsRepository(now Clock, limit int) *MemoryAnalyticsRepository {
	if limit <= 0 {
		limit = models.MaxAnalyticsEvents
	}
	return &MemoryAnalyticsRepository{now: clockOr(now), cap: limit}
}

func (r *MemoryAnalyticsRepository) Append(_ context.Context, e *models.AnalyticsEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fillEvent(e, r.now)
	r.events = append(r.events, *e)
	if over := len(r.events) - r.cap; over > 0 {
		r.events = append([]models.AnalyticsEvent(nil), r.events[over:]...)
	}
	return nil
}

func (r *MemoryAnalyticsRepository) List(_ context.Context, siteID string, f EventFilter) ([]models.AnalyticsEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.AnalyticsEvent{}
	for _, e := range r.events {
		if e.SiteID == siteID && f.match(e.Timestamp) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemoryAnalyticsRepository) DeleteBySite(_ context.Context, siteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.events[:0]
	for _, e := range r.events {
		if e.SiteID != siteID {
			kept = append(kept, e)
		}
	}
	r.events = kept
	return nil
}
