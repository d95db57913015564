package controllers

import (
	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/render"
	"github.com/developlogy/sitebuilder/app/services"
	"github.com/developlogy/sitebuilder/pkg/ctx"
)

// SiteController serves onboarding and the site documents of the signed-in
// user.
type SiteController struct {
	sites   *services.SiteService
	exports *services.ExportService
}

func NewSiteController(sites *services.SiteService, exports *services.ExportService) *SiteController {
	return &SiteController{sites: sites, exports: exports}
}

type industryView struct {
	Name  models.Industry `json:"name"`
	Theme models.Theme    `json:"theme"`
}

func (sc *SiteController) Industries(c *ctx.Context) {
	out := make([]industryView, 0, len(models.Industries))
	for _, ind := range models.Industries {
		out = append(out, industryView{Name: ind, Theme: ind.Theme()})
	}
	c.Success(out)
}

func (sc *SiteController) Templates(c *ctx.Context) {
	industry := models.Industry(c.Query("industry"))
	if industry != "" && !industry.Valid() {
		c.ValidationError(map[string]string{"industry": "is not a supported industry"})
		return
	}
	c.Success(services.Templates(industry))
}

func (sc *SiteController) Onboard(c *ctx.Context) {
	var in services.OnboardInput
	if !c.BindJSON(&in) {
		return
	}
	site, err := sc.sites.Onboard(c.Context(), c.UserID(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Created(site)
}

func (sc *SiteController) Index(c *ctx.Context) {
	sites, err := sc.sites.List(c.Context(), c.UserID())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(sites)
}

func (sc *SiteController) Show(c *ctx.Context) {
	site, err := sc.sites.Get(c.Context(), c.UserID(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(site)
}

// Update replaces the whole document. The body's version is the version the
// client last read; a newer stored version yields 409.
func (sc *SiteController) Update(c *ctx.Context) {
	var doc models.Site
	if !c.BindJSON(&doc) {
		return
	}
	site, err := sc.sites.Replace(c.Context(), c.UserID(), c.Param("id"), &doc, doc.Version)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(site)
}

func (sc *SiteController) Destroy(c *ctx.Context) {
	if err := sc.sites.Delete(c.Context(), c.UserID(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Message("Site deleted")
}

// Export renders the static bundle, stores a copy and sends the zip.
func (sc *SiteController) Export(c *ctx.Context) {
	out, err := sc.exports.Export(c.Context(), c.UserID(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if out.URL != "" {
		c.SetHeader("X-Export-URL", out.URL)
	}
	c.Attachment(out.Filename, "application/zip", out.Content)
}

func (sc *SiteController) ValidateSEO(c *ctx.Context) {
	site, err := sc.sites.Get(c.Context(), c.UserID(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(render.ValidateSEO(site.SEO))
}
