package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/developlogy/sitebuilder/app/models"
)

// GormAnalyticsRepository keeps the event log in the analytics_events
// table, trimming the oldest rows once it grows past the cap.
type GormAnalyticsRepository struct {
	db  *gorm.DB
	now Clock
	cap int
}

// NewGormAnalyticsRepository caps the log at models.MaxAnalyticsEvents
// unless limit is positive.
func NewGormAnalyticsRepository(db *gorm.DB, now Clock, limit int) *GormAnalyticsRepository {
	if limit <= 0 {
		limit = models.MaxAnalyticsEvents
	}
	return &GormAnalyticsRepository{db: db, now: clockOr(now), cap: limit}
}

func fillEvent(e *models.AnalyticsEvent, now Clock) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now()
	}
	e.Timestamp = e.Timestamp.UTC()
}

func (r *GormAnalyticsRepository) Append(ctx context.Context, e *models.AnalyticsEvent) error {
	fillEvent(e, r.now)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.NewAnalyticsEventRecord(e)).Error; err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.AnalyticsEventRecord{}).Count(&n).Error; err != nil {
			return err
		}
		if excess := int(n) - r.cap; excess > 0 {
			var ids []string
			if err := tx.Model(&models.AnalyticsEventRecord{}).
				Order("timestamp").Order("id").Limit(excess).
				Pluck("id", &ids).Error; err != nil {
				return err
			}
			return tx.Where("id IN ?", ids).Delete(&models.AnalyticsEventRecord{}).Error
		}
		return nil
	})
	if err != nil {
		return models.Storage("append analytics event", err)
	}
	return nil
}

func (r *GormAnalyticsRepository) List(ctx context.Context, siteID string, f EventFilter) ([]models.AnalyticsEvent, error) {
	q := r.db.WithContext(ctx).Where("site_id = ?", siteID)
	if !f.From.IsZero() {
		q = q.Where("timestamp >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("timestamp <= ?", f.To.UTC())
	}
	var recs []models.AnalyticsEventRecord
	if err := q.Order("timestamp").Order("id").Find(&recs).Error; err != nil {
		return nil, models.Storage("list analytics events", err)
	}
	out := make([]models.AnalyticsEvent, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].ToModel())
	}
	return out, nil
}

func (r *GormAnalyticsRepository) DeleteBySite(ctx context.Context, siteID string) error {
	if err := r.db.WithContext(ctx).Where("site_id = ?", siteID).Delete(&models.AnalyticsEventRecord{}).Error; err != nil {
		return models.Storage("purge analytics events", err)
	}
	return nil
}
