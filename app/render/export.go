package render

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/developlogy/sitebuilder/app/models"
)

// BundleFile is one entry of the export archive.
type BundleFile struct {
	Name    string
	Content []byte
}

// BundleFiles renders the four files of the static export in archive order.
func (r *Renderer) BundleFiles(site *models.Site) ([]BundleFile, error) {
	html, err := r.page(site, ModeStatic, true)
	if err != nil {
		return nil, err
	}
	return []BundleFile{
		{Name: "index.html", Content: html},
		{Name: "styles.css", Content: []byte(Stylesheet(site.Theme))},
		{Name: "script.js", Content: []byte(Script())},
		{Name: "README.md", Content: []byte(Readme(site))},
	}, nil
}

// Bundle renders the export zip. Entry mod-times are pinned to the site's
// last update, so the archive bytes depend only on the document.
func (r *Renderer) Bundle(site *models.Site) ([]byte, error) {
	files, err := r.BundleFiles(site)
	if err != nil {
		return nil, err
	}

	modified := site.UpdatedAt.UTC()
	if modified.Before(zipEpoch) {
		modified = zipEpoch
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("render: zip %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Content); err != nil {
			return nil, fmt.Errorf("render: zip %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("render: zip close: %w", err)
	}
	return buf.Bytes(), nil
}

// Bundle renders the export zip with the stock templates.
func Bundle(site *models.Site) ([]byte, error) { return defaultRenderer.Bundle(site) }

// zip stores MS-DOS timestamps, which start in 1980.
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// ExportFilename is "<slug>-website.zip". The slug keeps only [a-z0-9-] of
// the lower-cased name, so it is always a single path segment.
func ExportFilename(name string) string {
	slug := strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "site"
	}
	return slug + "-website.zip"
}
