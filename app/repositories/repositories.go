// Package repositories is the storage facade of the builder. Services depend
// on the interfaces below; GORM, Redis-cached, Mongo and in-memory
// implementations are chosen at startup.
//
// Every implementation honours the same contract:
//   - Create fills a missing id and zero timestamps.
//   - Reads of a missing id return models.ErrNotFound.
//   - Update requires the row to exist (ErrNotFound) and to still be at the
//     expected version (ErrStaleVersion).
//   - Delete is idempotent.
//   - Infrastructure failures are wrapped in *models.StorageError.
package repositories

import (
	"context"
	"time"

	"github.com/developlogy/sitebuilder/app/models"
)

type SiteRepository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Site, error)
	ListAll(ctx context.Context) ([]*models.Site, error)
	Find(ctx context.Context, id string) (*models.Site, error)
	Create(ctx context.Context, site *models.Site) error
	// Update writes site if the stored version equals expectedVersion and
	// sets site.Version to expectedVersion+1.
	Update(ctx context.Context, site *models.Site, expectedVersion int64) error
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	Find(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type OrderRepository interface {
	// Save inserts or replaces the order.
	Save(ctx context.Context, order *models.Order) error
	Find(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Order, error)
	ListBySite(ctx context.Context, siteID string) ([]*models.Order, error)
}

// EventFilter narrows an analytics query. Zero times are open bounds.
type EventFilter struct {
	From time.Time
	To   time.Time
}

func (f EventFilter) match(t time.Time) bool {
	if !f.From.IsZero() && t.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.After(f.To) {
		return false
	}
	return true
}

type AnalyticsRepository interface {
	// Append stores e, dropping the oldest events beyond the log cap.
	Append(ctx context.Context, e *models.AnalyticsEvent) error
	// List returns the events of a site in insertion order.
	List(ctx context.Context, siteID string, f EventFilter) ([]models.AnalyticsEvent, error)
	DeleteBySite(ctx context.Context, siteID string) error
}

// Clock returns the current time. Repositories use it for timestamps they
// fill in themselves.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

func clockOr(c Clock) Clock {
	if c == nil {
		return utcNow
	}
	return c
}
