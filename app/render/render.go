// Package render turns a site document into HTML and the artefacts derived
// from it: the static export bundle, sitemap, robots.txt and the Open Graph
// image.
//
// Output for a given document is byte-stable. Nothing here reads the wall
// clock; dates such as the footer year come from Site.UpdatedAt.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/pkg/logger"
)

// Mode selects between the builder canvas and the published page.
type Mode string

const (
	// ModeEditing adds data-block-id, data-field and contenteditable
	// attributes so the builder can map DOM edits back to blocks.
	ModeEditing Mode = "editing"
	// ModeStatic produces the published markup without builder affordances.
	ModeStatic Mode = "static"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == ModeEditing || m == ModeStatic }

// Renderer executes the page and block templates.
type Renderer struct {
	tmpl *template.Template
}

// Option customises a Renderer.
type Option func(*options)

type options struct {
	overrides map[string]string
	funcs     template.FuncMap
}

// WithBlockTemplate replaces the template of one block kind. The body is
// parsed as a template named "block-<kind>".
func WithBlockTemplate(kind models.BlockKind, body string) Option {
	return func(o *options) { o.overrides["block-"+string(kind)] = body }
}

// WithFuncs adds template functions, available to overridden templates.
func WithFuncs(funcs template.FuncMap) Option {
	return func(o *options) {
		for k, v := range funcs {
			o.funcs[k] = v
		}
	}
}

// New parses the built-in templates.
func New(opts ...Option) (*Renderer, error) {
	o := &options{overrides: map[string]string{}, funcs: template.FuncMap{}}
	for _, opt := range opts {
		opt(o)
	}

	funcs := baseFuncs()
	for k, v := range o.funcs {
		funcs[k] = v
	}

	t, err := template.New("page").Funcs(funcs).Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("render: parse page: %w", err)
	}
	for name, body := range blockTemplates {
		if override, ok := o.overrides[name]; ok {
			body = override
		}
		if _, err := t.New(name).Parse(body); err != nil {
			return nil, fmt.Errorf("render: parse %s: %w", name, err)
		}
	}
	return &Renderer{tmpl: t}, nil
}

var defaultRenderer = mustNew()

func mustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the renderer built from the stock templates.
func Default() *Renderer { return defaultRenderer }

// Render renders a full HTML page with the stock templates.
func Render(site *models.Site, mode Mode) ([]byte, error) {
	return defaultRenderer.Page(site, mode)
}

// pageData is the root value of the page template.
type pageData struct {
	Site        *models.Site
	Editing     bool
	Title       string
	Description string
	Keywords    string
	Year        int
	Sections    template.HTML
	JSONLD      template.JS
	Stylesheet  template.CSS
	Script      template.JS
	LinkAssets  bool
	Navigation  []navLink
}

type navLink struct {
	Href  string
	Label string
}

var defaultNavigation = []navLink{
	{Href: "#home", Label: "Home"},
	{Href: "#about", Label: "About"},
	{Href: "#services", Label: "Services"},
	{Href: "#contact", Label: "Contact"},
}

// Page renders the whole document: head metadata, header, every block and
// the footer. Block failures become placeholders and never fail the page.
// Styles and scripts are inlined so the page stands alone.
func (r *Renderer) Page(site *models.Site, mode Mode) ([]byte, error) {
	return r.page(site, mode, false)
}

func (r *Renderer) page(site *models.Site, mode Mode, linkAssets bool) ([]byte, error) {
	if !mode.Valid() {
		return nil, models.NewValidationError("mode", "must be editing or static")
	}

	sections := r.Blocks(site, mode)

	jsonld, err := StructuredDataJSON(site, "")
	if err != nil {
		return nil, fmt.Errorf("render: structured data: %w", err)
	}

	seo := site.SEO
	if seo.Title == "" {
		seo.Title = site.Name
	}
	data := pageData{
		Site:        site,
		Editing:     mode == ModeEditing,
		Title:       seo.Title,
		Description: seo.Description,
		Keywords:    strings.Join(seo.Keywords, ", "),
		Year:        site.UpdatedAt.UTC().Year(),
		Sections:    sections,
		JSONLD:      template.JS(jsonld),
		Stylesheet:  template.CSS(Stylesheet(site.Theme)),
		Script:      template.JS(Script()),
		LinkAssets:  linkAssets,
		Navigation:  defaultNavigation,
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "page", data); err != nil {
		return nil, fmt.Errorf("render: page %s: %w", site.ID, err)
	}
	return buf.Bytes(), nil
}

// Blocks renders only the block sections, in document order.
func (r *Renderer) Blocks(site *models.Site, mode Mode) template.HTML {
	var out bytes.Buffer
	for _, b := range site.Blocks {
		out.Write(r.block(site, b, mode))
		out.WriteByte('\n')
	}
	return template.HTML(out.String())
}

// block renders one block in isolation. Template errors and panics are
// logged and replaced with an error placeholder.
func (r *Renderer) block(site *models.Site, b models.Block, mode Mode) (out []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("render: block panicked",
				"site_id", site.ID, "block_id", b.BlockID(), "type", string(b.Kind()), "panic", fmt.Sprint(rec))
			out = r.placeholder(b, mode)
		}
	}()

	v := &blockVisitor{r: r, site: site, editing: mode == ModeEditing}
	if err := b.Accept(v); err != nil {
		logger.Error("render: block failed",
			"site_id", site.ID, "block_id", b.BlockID(), "type", string(b.Kind()), "error", err)
		return r.placeholder(b, mode)
	}
	return v.buf.Bytes()
}

func (r *Renderer) placeholder(b models.Block, mode Mode) []byte {
	var buf bytes.Buffer
	data := blockData{Block: b, ID: b.BlockID(), Kind: string(b.Kind()), Editing: mode == ModeEditing}
	if err := r.tmpl.ExecuteTemplate(&buf, "block-error", data); err != nil {
		return []byte(`<section class="block-error"></section>`)
	}
	return buf.Bytes()
}

// blockData is the value every block template executes against.
type blockData struct {
	Block   any
	ID      string
	Kind    string
	Editing bool
	Theme   models.Theme
	Site    *models.Site
}

// blockVisitor renders each variant with its own named template.
type blockVisitor struct {
	r       *Renderer
	site    *models.Site
	editing bool
	buf     bytes.Buffer
}

func (v *blockVisitor) exec(b models.Block, name string) error {
	data := blockData{
		Block:   b,
		ID:      b.BlockID(),
		Kind:    string(b.Kind()),
		Editing: v.editing,
		Theme:   v.site.Theme,
		Site:    v.site,
	}
	// Render into a scratch buffer so a template failing halfway leaves
	// nothing behind.
	var scratch bytes.Buffer
	if err := v.r.tmpl.ExecuteTemplate(&scratch, name, data); err != nil {
		return err
	}
	v.buf.Write(scratch.Bytes())
	return nil
}

func (v *blockVisitor) VisitHero(b *models.HeroBlock) error         { return v.exec(b, "block-hero") }
func (v *blockVisitor) VisitAbout(b *models.AboutBlock) error       { return v.exec(b, "block-about") }
func (v *blockVisitor) VisitServices(b *models.ServicesBlock) error { return v.exec(b, "block-services") }
func (v *blockVisitor) VisitGallery(b *models.GalleryBlock) error   { return v.exec(b, "block-gallery") }
func (v *blockVisitor) VisitContact(b *models.ContactBlock) error   { return v.exec(b, "block-contact") }
func (v *blockVisitor) VisitProducts(b *models.ProductsBlock) error { return v.exec(b, "block-products") }
func (v *blockVisitor) VisitUnknown(b *models.UnknownBlock) error   { return v.exec(b, "block-unknown") }

func (v *blockVisitor) VisitTestimonials(b *models.TestimonialsBlock) error {
	return v.exec(b, "block-testimonials")
}
