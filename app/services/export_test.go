package services_test

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/render"
	"github.com/developlogy/sitebuilder/app/services"
	"github.com/developlogy/sitebuilder/pkg/storage"
)

func TestExport_StoresBundleOnDisk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	site := f.onboard(t, "user-1", "Spice Route")
	disk := storage.NewMemoryDisk("https://cdn.example.test")
	svc := services.NewExportService(f.sites, disk, nil, "https://sites.example.test")

	out, err := svc.Export(ctx, "user-1", site.ID)
	require.NoError(t, err)
	assert.Equal(t, "spice-route-website.zip", out.Filename)
	assert.Equal(t, "exports/"+site.ID+"/spice-route-website.zip", out.Path)

	stored, err := disk.Get(ctx, out.Path)
	require.NoError(t, err)
	assert.Equal(t, out.Content, stored)

	want, err := render.Bundle(site)
	require.NoError(t, err)
	assert.Equal(t, want, out.Content)

	_, err = svc.Export(ctx, "user-2", site.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestExport_PublishSitemapListsEverySite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.onboard(t, "user-1", "Spice Route")
	b := f.onboard(t, "user-2", "City Clinic")
	disk := storage.NewMemoryDisk("")
	svc := services.NewExportService(f.sites, disk, nil, "https://sites.example.test")

	path, err := svc.PublishSitemap(ctx)
	require.NoError(t, err)
	assert.Equal(t, services.SitemapPath, path)

	xml, err := disk.Get(ctx, path)
	require.NoError(t, err)
	assert.Contains(t, string(xml), "https://sites.example.test/preview/"+a.ID)
	assert.Contains(t, string(xml), "https://sites.example.test/preview/"+b.ID)

	one, err := svc.SiteSitemap(ctx, a.ID)
	require.NoError(t, err)
	assert.NotContains(t, string(one), b.ID)

	robots, err := svc.Robots(ctx, a.ID)
	require.NoError(t, err)
	assert.Contains(t, robots, "Sitemap: https://sites.example.test/sitemap.xml")

	_, err = svc.Robots(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestExport_OGImageIsCachedPerVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	site := f.onboard(t, "user-1", "Spice Route")
	disk := storage.NewMemoryDisk("")
	svc := services.NewExportService(f.sites, disk, nil, "")

	img, err := svc.OGImage(ctx, site.ID)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Equal(t, render.OGWidth, cfg.Width)
	assert.Equal(t, render.OGHeight, cfg.Height)

	ok, err := disk.Exists(ctx, "og/"+site.ID+"-v1.png")
	require.NoError(t, err)
	assert.True(t, ok)

	again, err := svc.OGImage(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, img, again)
}

func TestExport_NameCannotEscapeSiteDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	victim := f.onboard(t, "user-1", "Spice Route")
	attacker := f.onboard(t, "user-2", "../"+victim.ID+"/spice route")
	disk := storage.NewLocalDisk(t.TempDir(), "")
	svc := services.NewExportService(f.sites, disk, nil, "")

	mine, err := svc.Export(ctx, "user-1", victim.ID)
	require.NoError(t, err)

	out, err := svc.Export(ctx, "user-2", attacker.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.Path, "exports/"+attacker.ID+"/"), out.Path)
	assert.NotContains(t, out.Path, "..")
	assert.Equal(t, strings.Count("exports/x/y", "/"), strings.Count(out.Path, "/"))

	stored, err := disk.Get(ctx, mine.Path)
	require.NoError(t, err)
	assert.Equal(t, mine.Content, stored)
}
