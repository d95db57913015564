package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/render"
	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/metrics"
	"github.com/developlogy/sitebuilder/pkg/storage"
)

// SitemapPath is where the global sitemap snapshot is published.
const SitemapPath = "sitemaps/sitemap.xml"

// Export is a rendered static bundle and where its stored copy lives.
type Export struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	URL      string `json:"url"`
	Content  []byte `json:"-"`
}

// ExportService renders the published artefacts of sites (the static
// bundle, sitemaps, robots.txt and Open Graph images) and keeps copies on a
// storage disk.
type ExportService struct {
	sites    *SiteService
	disk     storage.Disk
	renderer *render.Renderer
	baseURL  string
}

func NewExportService(sites *SiteService, disk storage.Disk, renderer *render.Renderer, baseURL string) *ExportService {
	if renderer == nil {
		renderer = render.Default()
	}
	return &ExportService{sites: sites, disk: disk, renderer: renderer, baseURL: baseURL}
}

// Export bundles a site owned by userID and stores the zip under
// exports/{siteID}/.
func (s *ExportService) Export(ctx context.Context, userID, siteID string) (*Export, error) {
	site, err := s.sites.Get(ctx, userID, siteID)
	if err != nil {
		return nil, err
	}
	return s.ExportSite(ctx, site)
}

// ExportSite bundles site without an ownership check. Used by the CLI.
func (s *ExportService) ExportSite(ctx context.Context, site *models.Site) (*Export, error) {
	zip, err := s.renderer.Bundle(site)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", site.ID, err)
	}
	name := render.ExportFilename(site.Name)
	path := "exports/" + site.ID + "/" + name
	if err := s.disk.Put(ctx, path, zip, "application/zip"); err != nil {
		return nil, models.Storage("export put", err)
	}

	metrics.SiteExports.Inc()
	logger.WithCtx(ctx).Info("site exported", "site_id", site.ID, "path", path, "bytes", len(zip))
	return &Export{Filename: name, Path: path, URL: s.disk.URL(path), Content: zip}, nil
}

// Sitemap renders the global sitemap over every site.
func (s *ExportService) Sitemap(ctx context.Context) ([]byte, error) {
	sites, err := s.sites.All(ctx)
	if err != nil {
		return nil, err
	}
	return render.Sitemap(sites, s.baseURL)
}

// SiteSitemap renders the sitemap of one site.
func (s *ExportService) SiteSitemap(ctx context.Context, siteID string) ([]byte, error) {
	site, err := s.sites.Public(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return render.Sitemap([]*models.Site{site}, s.baseURL)
}

// Robots returns robots.txt for a site.
func (s *ExportService) Robots(ctx context.Context, siteID string) (string, error) {
	if _, err := s.sites.Public(ctx, siteID); err != nil {
		return "", err
	}
	return render.Robots(s.baseURL), nil
}

// PublishSitemap writes the global sitemap snapshot to the disk and returns
// its path.
func (s *ExportService) PublishSitemap(ctx context.Context) (string, error) {
	xml, err := s.Sitemap(ctx)
	if err != nil {
		return "", err
	}
	if err := s.disk.Put(ctx, SitemapPath, xml, "application/xml"); err != nil {
		return "", models.Storage("sitemap put", err)
	}
	logger.WithCtx(ctx).Info("sitemap published", "path", SitemapPath, "bytes", len(xml))
	return SitemapPath, nil
}

// OGImage returns the Open Graph image of a site. Images are cached on the
// disk per site version.
func (s *ExportService) OGImage(ctx context.Context, siteID string) ([]byte, error) {
	site, err := s.sites.Public(ctx, siteID)
	if err != nil {
		return nil, err
	}
	path := "og/" + site.ID + "-v" + strconv.FormatInt(site.Version, 10) + ".png"

	if ok, err := s.disk.Exists(ctx, path); err == nil && ok {
		if img, err := s.disk.Get(ctx, path); err == nil {
			return img, nil
		}
	}

	img, err := render.OGImage(site)
	if err != nil {
		return nil, fmt.Errorf("og image %s: %w", site.ID, err)
	}
	if err := s.disk.Put(ctx, path, img, "image/png"); err != nil {
		logger.WithCtx(ctx).Warn("og image not cached", "site_id", site.ID, "error", err)
	}
	return img, nil
}
