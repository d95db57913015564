package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/render"
	"github.com/developlogy/sitebuilder/app/repositories"
	"github.com/developlogy/sitebuilder/pkg/event"
	"github.com/developlogy/sitebuilder/pkg/logger"
)

// OnboardInput is what the onboarding wizard collects.
type OnboardInput struct {
	BusinessName string              `json:"businessName" validate:"required,max=120"`
	Industry     models.Industry     `json:"industry"     validate:"required"`
	LogoURL      string              `json:"logoUrl"      validate:"nullable,url"`
	BusinessInfo models.BusinessInfo `json:"businessInfo"`
	TemplateID   string              `json:"templateId"`
}

// SiteService owns site lifecycle and ownership checks.
type SiteService struct {
	sites repositories.SiteRepository
	bus   *event.Bus
	now   Clock
}

func NewSiteService(sites repositories.SiteRepository, bus *event.Bus, now Clock) *SiteService {
	if bus == nil {
		bus = event.Default()
	}
	return &SiteService{sites: sites, bus: bus, now: clockOr(now)}
}

// Onboard creates the first version of a site for userID, either from a
// template or from the industry's generated starter content.
func (s *SiteService) Onboard(ctx context.Context, userID string, in OnboardInput) (*models.Site, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	name := strings.TrimSpace(in.BusinessName)
	if name == "" {
		return nil, models.NewValidationError("businessName", "is required")
	}
	if !in.Industry.Valid() {
		return nil, models.NewValidationError("industry", "is not a supported industry")
	}
	if err := in.BusinessInfo.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	site := &models.Site{
		OwnerID:      userID,
		Name:         name,
		Industry:     in.Industry,
		LogoURL:      strings.TrimSpace(in.LogoURL),
		BusinessInfo: in.BusinessInfo,
		Theme:        in.Industry.Theme(),
		SEO:          render.DefaultSEO(name, in.Industry),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if in.TemplateID != "" {
		tpl, ok := FindTemplate(in.TemplateID)
		if !ok {
			return nil, models.NewValidationError("templateId", "unknown template")
		}
		blocks, err := instantiate(tpl, now)
		if err != nil {
			return nil, fmt.Errorf("onboard: template %s: %w", tpl.ID, err)
		}
		site.Theme = tpl.Theme
		site.Blocks = blocks
	} else {
		site.Blocks = GenerateContent(name, in.Industry, in.BusinessInfo, now)
	}

	if err := site.Validate(); err != nil {
		return nil, err
	}
	if err := s.sites.Create(ctx, site); err != nil {
		return nil, err
	}

	logger.WithCtx(ctx).Info("site onboarded",
		"site_id", site.ID, "user_id", userID, "industry", string(site.Industry), "template", in.TemplateID)
	return site, nil
}

// List returns the sites owned by userID, most recently updated first.
func (s *SiteService) List(ctx context.Context, userID string) ([]*models.Site, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	return s.sites.ListByOwner(ctx, userID)
}

// Get returns a site owned by userID.
func (s *SiteService) Get(ctx context.Context, userID, id string) (*models.Site, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	site, err := s.sites.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if site.OwnerID != userID {
		return nil, models.ErrForbidden
	}
	return site, nil
}

// Public returns any site without an ownership check, for the preview,
// storefront and SEO endpoints.
func (s *SiteService) Public(ctx context.Context, id string) (*models.Site, error) {
	return s.sites.Find(ctx, id)
}

// All returns every site, for the global sitemap.
func (s *SiteService) All(ctx context.Context) ([]*models.Site, error) {
	return s.sites.ListAll(ctx)
}

// Replace overwrites the editable content of a site with doc. The stored
// identity, owner and creation time are kept. expectedVersion must match the
// stored version.
func (s *SiteService) Replace(ctx context.Context, userID, id string, doc *models.Site, expectedVersion int64) (*models.Site, error) {
	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	next := doc.Clone()
	next.ID = current.ID
	next.OwnerID = current.OwnerID
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = s.now()
	if next.Blocks == nil {
		next.Blocks = models.Blocks{}
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}

	if err := s.sites.Update(ctx, next, expectedVersion); err != nil {
		return nil, err
	}
	s.bus.Fire(ctx, EventSiteSaved, SiteSaved{
		SiteID: next.ID, OwnerID: next.OwnerID, Version: next.Version, SavedAt: next.UpdatedAt,
	})
	return next, nil
}

// Delete removes a site owned by userID. Deleting a site that is already
// gone succeeds.
func (s *SiteService) Delete(ctx context.Context, userID, id string) error {
	site, err := s.Get(ctx, userID, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.sites.Delete(ctx, id); err != nil {
		return err
	}
	s.bus.Fire(ctx, EventSiteDeleted, SiteSaved{SiteID: id, OwnerID: site.OwnerID, Version: site.Version, SavedAt: s.now()})
	logger.WithCtx(ctx).Info("site deleted", "site_id", id, "user_id", userID)
	return nil
}
