package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/developlogy/sitebuilder/app/models"
)

// GormSiteRepository stores sites in the sites table with JSON columns for
// blocks, theme, SEO and business info.
type GormSiteRepository struct {
	db  *gorm.DB
	now Clock
}

func NewGormSiteRepository(db *gorm.DB, now Clock) *GormSiteRepository {
	return &GormSiteRepository{db: db, now: clockOr(now)}
}

func (r *GormSiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Site, error) {
	var recs []models.SiteRecord
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").Order("id").
		Find(&recs).Error
	if err != nil {
		return nil, models.Storage("list sites", err)
	}
	return toSites(recs)
}

func (r *GormSiteRepository) ListAll(ctx context.Context) ([]*models.Site, error) {
	var recs []models.SiteRecord
	if err := r.db.WithContext(ctx).Order("created_at").Order("id").Find(&recs).Error; err != nil {
		return nil, models.Storage("list all sites", err)
	}
	return toSites(recs)
}

func toSites(recs []models.SiteRecord) ([]*models.Site, error) {
	out := make([]*models.Site, 0, len(recs))
	for i := range recs {
		s, err := recs[i].ToModel()
		if err != nil {
			return nil, models.Storage("decode site", err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *GormSiteRepository) Find(ctx context.Context, id string) (*models.Site, error) {
	var rec models.SiteRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, models.Storage("find site", err)
	}
	s, err := rec.ToModel()
	if err != nil {
		return nil, models.Storage("decode site", err)
	}
	return s, nil
}

func (r *GormSiteRepository) Create(ctx context.Context, site *models.Site) error {
	fillSite(site, r.now())
	rec, err := models.NewSiteRecord(site)
	if err != nil {
		return models.Storage("encode site", err)
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return models.Storage("create site", err)
	}
	return nil
}

func fillSite(site *models.Site, now time.Time) {
	if site.ID == "" {
		site.ID = uuid.NewString()
	}
	if site.CreatedAt.IsZero() {
		site.CreatedAt = now
	}
	if site.UpdatedAt.IsZero() {
		site.UpdatedAt = site.CreatedAt
	}
	site.Version = 1
}

func (r *GormSiteRepository) Update(ctx context.Context, site *models.Site, expectedVersion int64) error {
	rec, err := models.NewSiteRecord(site)
	if err != nil {
		return models.Storage("encode site", err)
	}

	res := r.db.WithContext(ctx).Model(&models.SiteRecord{}).
		Where("id = ? AND version = ?", site.ID, expectedVersion).
		Updates(map[string]any{
			"name":              rec.Name,
			"industry":          rec.Industry,
			"logo_url":          rec.LogoURL,
			"business_info":     rec.BusinessInfo,
			"theme":             rec.Theme,
			"seo":               rec.SEO,
			"blocks":            rec.Blocks,
			"ecommerce_enabled": rec.EcommerceEnabled,
			"version":           expectedVersion + 1,
			"updated_at":        rec.UpdatedAt,
		})
	if res.Error != nil {
		return models.Storage("update site", res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&models.SiteRecord{}).Where("id = ?", site.ID).Count(&n).Error; err != nil {
			return models.Storage("update site", err)
		}
		if n == 0 {
			return models.ErrNotFound
		}
		return models.ErrStaleVersion
	}
	site.Version = expectedVersion + 1
	return nil
}

func (r *GormSiteRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SiteRecord{}).Error; err != nil {
		return models.Storage("delete site", err)
	}
	return nil
}
