package repositories_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/repositories"
	"github.com/developlogy/sitebuilder/pkg/cache"
	"github.com/developlogy/sitebuilder/pkg/database"
)

var base = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// tickingClock advances one second per call.
func tickingClock() repositories.Clock {
	var mu sync.Mutex
	t := base
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

type repos struct {
	sites     repositories.SiteRepository
	users     repositories.UserRepository
	orders    repositories.OrderRepository
	analytics repositories.AnalyticsRepository
}

const testCap = 3

func memoryRepos(t *testing.T) repos {
	clock := tickingClock()
	return repos{
		sites:     repositories.NewMemorySiteRepository(clock),
		users:     repositories.NewMemoryUserRepository(clock),
		orders:    repositories.NewMemoryOrderRepository(clock),
		analytics: repositories.NewMemoryAnalyticsRepository(clock, testCap),
	}
}

func gormRepos(t *testing.T) repos {
	db, err := database.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.UserRecord{}, &models.SiteRecord{}, &models.OrderRecord{}, &models.AnalyticsEventRecord{},
	))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	clock := tickingClock()
	return repos{
		sites:     repositories.NewGormSiteRepository(db, clock),
		users:     repositories.NewGormUserRepository(db, clock),
		orders:    repositories.NewGormOrderRepository(db, clock),
		analytics: repositories.NewGormAnalyticsRepository(db, clock, testCap),
	}
}

func newSite(t *testing.T, owner, name string) *models.Site {
	t.Helper()
	hero, err := models.DefaultBlock(models.KindHero, "hero-1", base)
	require.NoError(t, err)
	products, err := models.DefaultBlock(models.KindProducts, "products-1", base)
	require.NoError(t, err)
	return &models.Site{
		OwnerID:  owner,
		Name:     name,
		Industry: models.IndustryRestaurants,
		Theme:    models.IndustryRestaurants.Theme(),
		SEO:      models.SEO{Title: name, Keywords: []string{"food", "cafe"}},
		Blocks:   models.Blocks{hero, products},
	}
}

func TestRepositories(t *testing.T) {
	impls := map[string]func(*testing.T) repos{
		"memory": memoryRepos,
		"gorm":   gormRepos,
	}
	for name, build := range impls {
		t.Run(name, func(t *testing.T) {
			t.Run("sites", func(t *testing.T) { siteContract(t, build(t).sites) })
			t.Run("users", func(t *testing.T) { userContract(t, build(t).users) })
			t.Run("orders", func(t *testing.T) { orderContract(t, build(t).orders) })
			t.Run("analytics", func(t *testing.T) { analyticsContract(t, build(t).analytics) })
		})
	}
}

func siteContract(t *testing.T, repo repositories.SiteRepository) {
	ctx := context.Background()

	site := newSite(t, "user-1", "Spice Route")
	require.NoError(t, repo.Create(ctx, site))
	assert.NotEmpty(t, site.ID)
	assert.EqualValues(t, 1, site.Version)
	assert.False(t, site.CreatedAt.IsZero())

	other := newSite(t, "user-2", "Bright Smiles")
	require.NoError(t, repo.Create(ctx, other))

	got, err := repo.Find(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, "Spice Route", got.Name)
	assert.Equal(t, "user-1", got.OwnerID)
	require.Len(t, got.Blocks, 2)
	assert.Equal(t, "hero-1", got.Blocks[0].BlockID())
	pb, ok := got.Blocks[1].(*models.ProductsBlock)
	require.True(t, ok)
	assert.True(t, pb.Products[0].Price.Equal(decimal.RequireFromString("29.99")))
	assert.True(t, got.CreatedAt.Equal(site.CreatedAt))

	_, err = repo.Find(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	owned, err := repo.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, site.ID, owned[0].ID)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got.Name = "Spice Route Kitchen"
	got.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, repo.Update(ctx, got, 1))
	assert.EqualValues(t, 2, got.Version)

	stale := site.Clone()
	stale.Name = "Lost write"
	assert.ErrorIs(t, repo.Update(ctx, stale, 1), models.ErrStaleVersion)

	reread, err := repo.Find(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, "Spice Route Kitchen", reread.Name)
	assert.EqualValues(t, 2, reread.Version)
	assert.True(t, reread.UpdatedAt.Equal(base.Add(time.Hour)))

	ghost := newSite(t, "user-1", "Ghost")
	ghost.ID = "does-not-exist"
	assert.ErrorIs(t, repo.Update(ctx, ghost, 1), models.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, site.ID))
	require.NoError(t, repo.Delete(ctx, site.ID))
	_, err = repo.Find(ctx, site.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func userContract(t *testing.T, repo repositories.UserRepository) {
	ctx := context.Background()

	u := &models.User{Email: "  Asha@Example.COM "}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "asha@example.com", u.Email)

	byEmail, err := repo.FindByEmail(ctx, "ASHA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := repo.Find(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", byID.Email)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)

	var se *models.StorageError
	assert.True(t, errors.As(repo.Create(ctx, &models.User{Email: "asha@example.com"}), &se),
		"duplicate email must fail as a storage error")
}

func orderContract(t *testing.T, repo repositories.OrderRepository) {
	ctx := context.Background()

	order := &models.Order{
		SiteID: "site-1",
		UserID: "user-1",
		Items: []models.CartItem{
			{ProductID: "p1", Name: "Masala Chai", Quantity: 2, Price: decimal.RequireFromString("29.99")},
		},
		Total:         decimal.RequireFromString("59.98"),
		CustomerInfo:  models.CustomerInfo{Name: "Asha", Email: "asha@example.com"},
		PaymentStatus: models.PaymentPending,
		PaymentMethod: "mock",
	}
	require.NoError(t, repo.Save(ctx, order))
	assert.Contains(t, order.ID, "order_")

	require.NoError(t, order.Transition(models.PaymentCompleted, base.Add(time.Minute)))
	order.TransactionID = "mock_txn_1"
	require.NoError(t, repo.Save(ctx, order))

	got, err := repo.Find(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, got.PaymentStatus)
	assert.Equal(t, "mock_txn_1", got.TransactionID)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("59.98")))
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)

	second := &models.Order{SiteID: "site-2", UserID: "user-1", PaymentStatus: models.PaymentPending, Items: []models.CartItem{}}
	require.NoError(t, repo.Save(ctx, second))

	byUser, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	assert.Equal(t, second.ID, byUser[0].ID, "newest first")

	bySite, err := repo.ListBySite(ctx, "site-1")
	require.NoError(t, err)
	require.Len(t, bySite, 1)

	_, err = repo.Find(ctx, "order_missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func analyticsContract(t *testing.T, repo repositories.AnalyticsRepository) {
	ctx := context.Background()

	paths := []string{"/a", "/b", "/c", "/d"}
	for _, p := range paths {
		require.NoError(t, repo.Append(ctx, &models.AnalyticsEvent{SiteID: "site-1", Type: models.EventPageview, Path: p}))
	}
	require.NoError(t, repo.Append(ctx, &models.AnalyticsEvent{
		SiteID:   "site-2",
		Type:     models.EventCTAClick,
		Path:     "/",
		Metadata: models.EventMetadata{CTAText: "Book now"},
	}))

	events, err := repo.List(ctx, "site-1", repositories.EventFilter{})
	require.NoError(t, err)
	got := make([]string, 0, len(events))
	for _, e := range events {
		got = append(got, e.Path)
	}
	assert.Equal(t, []string{"/c", "/d"}, got, "the log keeps only the newest events")

	other, err := repo.List(ctx, "site-2", repositories.EventFilter{})
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "Book now", other[0].Metadata.CTAText)
	assert.NotEmpty(t, other[0].ID)

	windowed, err := repo.List(ctx, "site-1", repositories.EventFilter{From: events[1].Timestamp})
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, "/d", windowed[0].Path)

	require.NoError(t, repo.DeleteBySite(ctx, "site-1"))
	events, err = repo.List(ctx, "site-1", repositories.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)
	other, err = repo.List(ctx, "site-2", repositories.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

type countingSites struct {
	repositories.SiteRepository
	finds int
	// afterFind runs once, between the inner read and the cache fill.
	afterFind func()
}

func (c *countingSites) Find(ctx context.Context, id string) (*models.Site, error) {
	c.finds++
	site, err := c.SiteRepository.Find(ctx, id)
	if hook := c.afterFind; hook != nil {
		c.afterFind = nil
		hook()
	}
	return site, err
}

func TestCachedSiteRepository(t *testing.T) {
	ctx := context.Background()
	inner := &countingSites{SiteRepository: repositories.NewMemorySiteRepository(tickingClock())}
	repo := repositories.NewCachedSiteRepository(inner, cache.NewMemoryStore(), time.Minute)

	site := newSite(t, "user-1", "Spice Route")
	require.NoError(t, repo.Create(ctx, site))

	for i := 0; i < 3; i++ {
		got, err := repo.Find(ctx, site.ID)
		require.NoError(t, err)
		assert.Equal(t, "Spice Route", got.Name)
		require.Len(t, got.Blocks, 2)
	}
	assert.Equal(t, 1, inner.finds)

	site.Name = "Renamed"
	require.NoError(t, repo.Update(ctx, site, 1))
	got, err := repo.Find(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.EqualValues(t, 2, got.Version)
	assert.Equal(t, 1, inner.finds, "updates write the new document through")

	require.NoError(t, repo.Delete(ctx, site.ID))
	_, err = repo.Find(ctx, site.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = repo.Find(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCachedSiteRepository_LateFillDoesNotRestoreOlderVersion(t *testing.T) {
	ctx := context.Background()
	inner := &countingSites{SiteRepository: repositories.NewMemorySiteRepository(tickingClock())}
	repo := repositories.NewCachedSiteRepository(inner, cache.NewMemoryStore(), time.Minute)

	site := newSite(t, "user-1", "Spice Route")
	require.NoError(t, repo.Create(ctx, site))

	// A writer commits while the reader sits between its miss and its fill.
	inner.afterFind = func() {
		next := site.Clone()
		next.Name = "Renamed"
		require.NoError(t, repo.Update(ctx, next, 1))
	}
	old, err := repo.Find(ctx, site.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, old.Version)

	got, err := repo.Find(ctx, site.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Version)
	assert.Equal(t, "Renamed", got.Name)
}

func TestCachedSiteRepository_DeleteIsNotUndoneByLateFill(t *testing.T) {
	ctx := context.Background()
	inner := &countingSites{SiteRepository: repositories.NewMemorySiteRepository(tickingClock())}
	repo := repositories.NewCachedSiteRepository(inner, cache.NewMemoryStore(), time.Minute)

	site := newSite(t, "user-1", "Spice Route")
	require.NoError(t, repo.Create(ctx, site))

	inner.afterFind = func() {
		require.NoError(t, repo.Delete(ctx, site.ID))
	}
	_, err := repo.Find(ctx, site.ID)
	require.NoError(t, err)

	_, err = repo.Find(ctx, site.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
