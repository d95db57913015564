package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/pkg/cache"
	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/metrics"
)

// CachedSiteRepository is a read-through cache for Find in front of another
// SiteRepository. Cache failures are logged and never fail a call.
//
// Reads fill a missing entry with SetNX only, so a read that raced a write
// cannot put the older document back. Updates write the new document through
// and deletes leave a tombstone for the same reason.
type CachedSiteRepository struct {
	inner SiteRepository
	store cache.Store
	ttl   time.Duration
}

func NewCachedSiteRepository(inner SiteRepository, store cache.Store, ttl time.Duration) *CachedSiteRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedSiteRepository{inner: inner, store: store, ttl: ttl}
}

func siteKey(id string) string { return "site:" + id }

// cachedSite is the cache entry; a nil Site marks a deleted document.
type cachedSite struct {
	Site *models.Site `json:"site"`
}

func (r *CachedSiteRepository) Find(ctx context.Context, id string) (*models.Site, error) {
	var cached cachedSite
	ok, err := r.store.Get(ctx, siteKey(id), &cached)
	if err != nil {
		logger.WithCtx(ctx).Warn("site cache read failed", "site_id", id, "error", err)
	}
	if ok && cached.Site != nil {
		metrics.CacheHits.WithLabelValues(r.store.Driver()).Inc()
		return cached.Site, nil
	}
	metrics.CacheMisses.WithLabelValues(r.store.Driver()).Inc()

	site, err := r.inner.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok {
		// Tombstoned but found again; leave the entry to expire.
		return site, nil
	}
	if _, err := r.store.SetNX(ctx, siteKey(id), cachedSite{Site: site}, r.ttl); err != nil {
		logger.WithCtx(ctx).Warn("site cache write failed", "site_id", id, "error", err)
	}
	return site, nil
}

func (r *CachedSiteRepository) put(ctx context.Context, id string, site *models.Site) {
	if err := r.store.Set(ctx, siteKey(id), cachedSite{Site: site}, r.ttl); err != nil {
		logger.WithCtx(ctx).Warn("site cache write failed", "site_id", id, "error", err)
		r.evict(ctx, id)
	}
}

func (r *CachedSiteRepository) evict(ctx context.Context, id string) {
	if err := r.store.Del(ctx, siteKey(id)); err != nil {
		logger.WithCtx(ctx).Warn("site cache evict failed", "site_id", id, "error", err)
	}
}

func (r *CachedSiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Site, error) {
	return r.inner.ListByOwner(ctx, ownerID)
}

func (r *CachedSiteRepository) ListAll(ctx context.Context) ([]*models.Site, error) {
	return r.inner.ListAll(ctx)
}

func (r *CachedSiteRepository) Create(ctx context.Context, site *models.Site) error {
	return r.inner.Create(ctx, site)
}

func (r *CachedSiteRepository) Update(ctx context.Context, site *models.Site, expectedVersion int64) error {
	err := r.inner.Update(ctx, site, expectedVersion)
	switch {
	case err == nil:
		r.put(ctx, site.ID, site)
	case errors.Is(err, models.ErrStaleVersion):
		// Our cached copy may be stale too.
		r.evict(ctx, site.ID)
	}
	return err
}

func (r *CachedSiteRepository) Delete(ctx context.Context, id string) error {
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	r.put(ctx, id, nil)
	return nil
}
