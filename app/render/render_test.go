package render_test

import (
	"archive/zip"
	"bytes"
	"html/template"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/render"
)

var updated = time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)

func site(t *testing.T) *models.Site {
	t.Helper()
	s := &models.Site{
		ID:       "site-1",
		OwnerID:  "user-1",
		Name:     "Spice Route",
		Industry: models.IndustryRestaurants,
		BusinessInfo: models.BusinessInfo{
			Email:   "hello@spiceroute.test",
			Address: "12 MG Road, Pune",
		},
		Theme:     models.IndustryRestaurants.Theme(),
		SEO:       render.DefaultSEO("Spice Route", models.IndustryRestaurants),
		Version:   1,
		CreatedAt: updated.Add(-time.Hour),
		UpdatedAt: updated,
	}
	for _, kind := range models.BlockKinds {
		b, err := models.DefaultBlock(kind, "block-"+string(kind), updated)
		require.NoError(t, err)
		s.Blocks = append(s.Blocks, b)
	}
	return s
}

func TestRender_StaticHasNoEditingAffordances(t *testing.T) {
	out, err := render.Render(site(t), render.ModeStatic)
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, `class="hero-section"`)
	assert.Contains(t, html, "Welcome to Our Business")
	assert.Contains(t, html, "&copy; 2026 Spice Route. All rights reserved.")
	assert.Contains(t, html, "Built with <a href=\"https://developlogy.com\">Developlogy</a>")
	assert.Contains(t, html, "$29.99")
	assert.NotContains(t, html, "contenteditable")
	assert.NotContains(t, html, "data-block-id")
}

func TestRender_EditingAddsAffordances(t *testing.T) {
	out, err := render.Render(site(t), render.ModeEditing)
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, `data-block-id="block-hero"`)
	assert.Contains(t, html, `data-field="heading" contenteditable="true"`)
	assert.Contains(t, html, `data-field="items.1.price"`)
}

func TestRender_InvalidMode(t *testing.T) {
	_, err := render.Render(site(t), render.Mode("print"))
	var ve *models.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestRender_EscapesUserText(t *testing.T) {
	s := site(t)
	s.Blocks[0].(*models.HeroBlock).Heading = `<script>alert("x")</script>`
	s.Name = "Tom & Jerry's"

	out, err := render.Render(s, render.ModeStatic)
	require.NoError(t, err)
	html := string(out)

	assert.NotContains(t, html, `<script>alert("x")</script>`)
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, "Tom &amp; Jerry&#39;s")
}

func TestRender_StaticIsByteStable(t *testing.T) {
	a, err := render.Render(site(t), render.ModeStatic)
	require.NoError(t, err)
	b, err := render.Render(site(t), render.ModeStatic)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRender_UnknownBlockPlaceholder(t *testing.T) {
	s := site(t)
	s.Blocks = append(s.Blocks, &models.UnknownBlock{ID: "x1", Type: "countdown", Raw: []byte(`{"id":"x1","type":"countdown"}`)})

	out, err := render.Render(s, render.ModeStatic)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Unknown block: countdown")
}

func TestRender_BlockFailureIsIsolated(t *testing.T) {
	cases := map[string]render.Option{
		"template error": render.WithBlockTemplate(models.KindHero, `<h1>{{.Block.NoSuchField}}</h1>`),
		"panic": render.WithBlockTemplate(models.KindHero, `<h1>{{boom}}</h1>`),
	}
	for name, opt := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := render.New(opt, render.WithFuncs(template.FuncMap{
				"boom": func() string { panic("boom") },
			}))
			require.NoError(t, err)

			out, err := r.Page(site(t), render.ModeStatic)
			require.NoError(t, err)
			html := string(out)

			assert.Contains(t, html, `class="block-error"`)
			assert.Contains(t, html, "This hero block could not be displayed.")
			assert.Contains(t, html, "About Us")
			assert.Contains(t, html, "Get In Touch")
		})
	}
}

func TestRender_RestaurantPlaceholdersNeverLeakZeroValues(t *testing.T) {
	s := site(t)
	s.BusinessInfo = models.BusinessInfo{}

	out, err := render.Render(s, render.ModeStatic)
	require.NoError(t, err)
	html := string(out)

	assert.NotContains(t, html, "undefined")
	assert.NotContains(t, html, "<nil>")
	assert.NotContains(t, html, "Contact: ")
	assert.Contains(t, html, models.PlaceholderEmail)
}

func TestBundle_ContainsFourFilesAndIsDeterministic(t *testing.T) {
	a, err := render.Bundle(site(t))
	require.NoError(t, err)
	b, err := render.Bundle(site(t))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	zr, err := zip.NewReader(bytes.NewReader(a), int64(len(a)))
	require.NoError(t, err)

	files := map[string]string{}
	for _, f := range zr.File {
		assert.True(t, f.Modified.Equal(updated), "mod time of %s", f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		files[f.Name] = string(body)
	}

	require.Len(t, files, 4)
	assert.Contains(t, files["index.html"], `<link rel="stylesheet" href="styles.css">`)
	assert.Contains(t, files["index.html"], `<script src="script.js"></script>`)
	assert.Contains(t, files["styles.css"], "--primary-color: #D97706;")
	assert.Contains(t, files["styles.css"], "--font-scale: 1.1;")
	assert.Contains(t, files["script.js"], "function handleCTAClick")
	assert.Contains(t, files["README.md"], "# Spice Route - Static Website")
	assert.Contains(t, files["README.md"], "Generated on 2026-05-02")
}

func TestStylesheet_EveryFontSizeIsScaled(t *testing.T) {
	css := render.Stylesheet(models.Theme{Color: "#123456", FontScale: 1.25})
	for _, line := range strings.Split(css, "\n") {
		if strings.Contains(line, "font-size:") {
			assert.Contains(t, line, "* var(--font-scale))", line)
		}
	}
	assert.Contains(t, css, "--font-scale: 1.25;")

	bad := render.Stylesheet(models.Theme{Color: "red;}body{display:none", FontScale: 1})
	assert.Contains(t, bad, "--primary-color: "+models.DefaultTheme.Color+";")
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "spice-route-website.zip", render.ExportFilename("Spice  Route"))
	assert.Equal(t, "dr-rao-s-clinic-website.zip", render.ExportFilename(" Dr. Rao's\tClinic "))
	assert.Equal(t, "site-website.zip", render.ExportFilename("   "))
	assert.Equal(t, "site-website.zip", render.ExportFilename("../.."))
	assert.Equal(t, "abc-spice-route-website.zip", render.ExportFilename("../abc/Spice Route"))
}

func TestOGImage(t *testing.T) {
	data, err := render.OGImage(site(t))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, render.OGWidth, img.Bounds().Dx())
	assert.Equal(t, render.OGHeight, img.Bounds().Dy())
}

func TestOGDescriptionFallbacks(t *testing.T) {
	s := site(t)
	assert.Equal(t, s.SEO.Description, render.OGDescription(s))

	s.SEO.Description = ""
	assert.Equal(t, "We provide exceptional services to help you succeed", render.OGDescription(s))

	s.Blocks = nil
	assert.Equal(t, "Professional restaurants & cafés services", render.OGDescription(s))
}
