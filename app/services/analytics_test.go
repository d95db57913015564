package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/repositories"
	"github.com/developlogy/sitebuilder/app/services"
	"github.com/developlogy/sitebuilder/pkg/workerpool"
)

func TestAnalytics_TrackAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	site := f.onboard(t, "user-1", "Spice Route")
	svc := services.NewAnalyticsService(f.events, f.sites, nil, f.clock)

	for i := 0; i < 4; i++ {
		_, err := svc.Track(ctx, services.TrackInput{SiteID: site.ID, Type: models.EventPageview, Path: "/"})
		require.NoError(t, err)
	}
	_, err := svc.Track(ctx, services.TrackInput{
		SiteID: site.ID, Type: models.EventCTAClick, Path: "/",
		Metadata: models.EventMetadata{CTAText: "Book a table"},
	})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, "user-1", site.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalPageviews)
	assert.Equal(t, 1, stats.TotalClicks)
	assert.Equal(t, 25.0, stats.ConversionRate)
	require.Len(t, stats.TopCTAs, 1)
	assert.Equal(t, "Book a table", stats.TopCTAs[0].Text)
	assert.Len(t, stats.DailyStats, 30)

	_, err = svc.Stats(ctx, "user-2", site.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestAnalytics_TrackValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	site := f.onboard(t, "user-1", "Spice Route")
	svc := services.NewAnalyticsService(f.events, f.sites, nil, f.clock)

	var ve *models.ValidationError
	_, err := svc.Track(ctx, services.TrackInput{SiteID: site.ID, Type: "hover"})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "type")

	_, err = svc.Track(ctx, services.TrackInput{Type: models.EventPageview})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "siteId")

	_, err = svc.Track(ctx, services.TrackInput{SiteID: "missing", Type: models.EventPageview})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAnalytics_LogIsCapped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	site := f.onboard(t, "user-1", "Spice Route")
	capped := repositories.NewMemoryAnalyticsRepository(repositories.Clock(f.clock), 3)
	svc := services.NewAnalyticsService(capped, f.sites, nil, f.clock)

	paths := []string{"/1", "/2", "/3", "/4", "/5"}
	for _, p := range paths {
		_, err := svc.Track(ctx, services.TrackInput{SiteID: site.ID, Type: models.EventPageview, Path: p})
		require.NoError(t, err)
	}

	events, err := svc.Events(ctx, "user-1", site.ID, base.AddDate(0, 0, -1), base.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "/3", events[0].Path)
	assert.Equal(t, "/5", events[2].Path)
}

func TestAnalytics_PoolFullSheds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	site := f.onboard(t, "user-1", "Spice Route")

	pool := workerpool.New("analytics-test", 1, 1)
	block := make(chan struct{})
	require.NoError(t, pool.Submit(func() { <-block }))
	svc := services.NewAnalyticsService(f.events, f.sites, pool, f.clock)

	var full bool
	for i := 0; i < 3 && !full; i++ {
		_, err := svc.Track(ctx, services.TrackInput{SiteID: site.ID, Type: models.EventPageview})
		if err != nil {
			assert.ErrorIs(t, err, workerpool.ErrPoolFull)
			full = true
		}
	}
	assert.True(t, full)

	close(block)
	pool.Shutdown()
}

func TestAnalytics_PurgeIsOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	site := f.onboard(t, "user-1", "Spice Route")
	svc := services.NewAnalyticsService(f.events, f.sites, nil, f.clock)

	_, err := svc.Track(ctx, services.TrackInput{SiteID: site.ID, Type: models.EventPageview})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Purge(ctx, "user-2", site.ID), models.ErrForbidden)
	require.NoError(t, svc.Purge(ctx, "user-1", site.ID))

	events, err := svc.Events(ctx, "user-1", site.ID, base.AddDate(0, 0, -1), base.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, events)
}
