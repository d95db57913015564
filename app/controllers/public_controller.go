package controllers

import (
	"net/http"
	"time"

	"github.com/developlogy/sitebuilder/app/render"
	"github.com/developlogy/sitebuilder/app/services"
	"github.com/developlogy/sitebuilder/pkg/ctx"
)

// PublicController serves what crawlers and visitors fetch without signing
// in: previews, sitemaps, robots.txt and OG images.
type PublicController struct {
	sites    *services.SiteService
	exports  *services.ExportService
	renderer *render.Renderer
}

func NewPublicController(sites *services.SiteService, exports *services.ExportService, renderer *render.Renderer) *PublicController {
	if renderer == nil {
		renderer = render.Default()
	}
	return &PublicController{sites: sites, exports: exports, renderer: renderer}
}

// Preview renders the stored document as the published page.
func (pc *PublicController) Preview(c *ctx.Context) {
	site, err := pc.sites.Public(c.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	html, err := pc.renderer.Page(site, render.ModeStatic)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (pc *PublicController) SiteSitemap(c *ctx.Context) {
	xml, err := pc.exports.SiteSitemap(c.Context(), c.Param("siteId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", xml)
}

func (pc *PublicController) Sitemap(c *ctx.Context) {
	xml, err := pc.exports.Sitemap(c.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", xml)
}

func (pc *PublicController) Robots(c *ctx.Context) {
	body, err := pc.exports.Robots(c.Context(), c.Param("siteId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(body))
}

func (pc *PublicController) OGImage(c *ctx.Context) {
	img, err := pc.exports.OGImage(c.Context(), c.Param("siteId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.SetHeader("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", img)
}

var started = time.Now()

func (pc *PublicController) Health(c *ctx.Context) {
	c.Success(map[string]any{
		"status": "ok",
		"uptime": time.Since(started).Round(time.Second).String(),
	})
}
