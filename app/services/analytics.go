package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/repositories"
	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/metrics"
	"github.com/developlogy/sitebuilder/pkg/workerpool"
)

// TrackInput is one event reported by a published page.
type TrackInput struct {
	SiteID   string               `json:"siteId"   validate:"required"`
	Type     models.EventType     `json:"type"     validate:"required"`
	Path     string               `json:"path"`
	Metadata models.EventMetadata `json:"metadata"`
}

// AnalyticsService ingests visitor events and aggregates them per site.
type AnalyticsService struct {
	events repositories.AnalyticsRepository
	sites  *SiteService
	pool   *workerpool.Pool
	now    Clock
}

// NewAnalyticsService persists events on pool. A nil pool persists them
// inline.
func NewAnalyticsService(events repositories.AnalyticsRepository, sites *SiteService, pool *workerpool.Pool, now Clock) *AnalyticsService {
	return &AnalyticsService{events: events, sites: sites, pool: pool, now: clockOr(now)}
}

// Track validates an event and queues it for storage. When the ingestion
// queue is full it returns workerpool.ErrPoolFull and the event is dropped.
func (s *AnalyticsService) Track(ctx context.Context, in TrackInput) (*models.AnalyticsEvent, error) {
	siteID := strings.TrimSpace(in.SiteID)
	if siteID == "" {
		return nil, models.NewValidationError("siteId", "is required")
	}
	if !in.Type.Valid() {
		return nil, models.NewValidationError("type", "is not a supported event type")
	}
	if _, err := s.sites.Public(ctx, siteID); err != nil {
		return nil, err
	}

	path := in.Path
	if path == "" {
		path = "/"
	}
	e := &models.AnalyticsEvent{
		ID:        uuid.NewString(),
		SiteID:    siteID,
		Type:      in.Type,
		Path:      path,
		Metadata:  in.Metadata,
		Timestamp: s.now(),
	}

	stored := *e
	persist := func(ctx context.Context) error {
		if err := s.events.Append(ctx, &stored); err != nil {
			logger.WithCtx(ctx).Error("analytics: append failed", "site_id", stored.SiteID, "type", string(stored.Type), "error", err)
			return err
		}
		metrics.AnalyticsEvents.WithLabelValues(string(stored.Type)).Inc()
		return nil
	}

	if s.pool == nil {
		if err := persist(ctx); err != nil {
			return nil, err
		}
		return e, nil
	}
	bg := context.WithoutCancel(ctx)
	if err := s.pool.Submit(func() { _ = persist(bg) }); err != nil {
		logger.WithCtx(ctx).Warn("analytics: event dropped", "site_id", siteID, "error", err)
		return nil, err
	}
	return e, nil
}

// Stats aggregates the events of a site owned by userID.
func (s *AnalyticsService) Stats(ctx context.Context, userID, siteID string) (models.AnalyticsStats, error) {
	if _, err := s.sites.Get(ctx, userID, siteID); err != nil {
		return models.AnalyticsStats{}, err
	}
	events, err := s.events.List(ctx, siteID, repositories.EventFilter{})
	if err != nil {
		return models.AnalyticsStats{}, err
	}
	return models.ComputeStats(siteID, events, s.now()), nil
}

// Events returns the raw events of a site owned by userID between from and
// to. Zero times leave the range open.
func (s *AnalyticsService) Events(ctx context.Context, userID, siteID string, from, to time.Time) ([]models.AnalyticsEvent, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, models.NewValidationError("to", "must not be before from")
	}
	if _, err := s.sites.Get(ctx, userID, siteID); err != nil {
		return nil, err
	}
	return s.events.List(ctx, siteID, repositories.EventFilter{From: from, To: to})
}

// Purge deletes every event of a site owned by userID.
func (s *AnalyticsService) Purge(ctx context.Context, userID, siteID string) error {
	if _, err := s.sites.Get(ctx, userID, siteID); err != nil {
		return err
	}
	if err := s.events.DeleteBySite(ctx, siteID); err != nil {
		return err
	}
	logger.WithCtx(ctx).Info("analytics purged", "site_id", siteID, "user_id", userID)
	return nil
}
