package services_test

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/services"
)

func blockIDs(s *models.Site) []string {
	ids := make([]string, 0, len(s.Blocks))
	for _, b := range s.Blocks {
		ids = append(ids, b.BlockID())
	}
	return ids
}

func emptySite(t *testing.T, f *fixture) *models.Site {
	t.Helper()
	site := f.onboard(t, "user-1", "Spice Route")
	site.Blocks = models.Blocks{}
	saved, err := f.sites.Replace(context.Background(), "user-1", site.ID, site, site.Version)
	require.NoError(t, err)
	return saved
}

func TestEditor_HeroAboutProductsCartScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	site := emptySite(t, f)

	ed := services.NewEditor(site, f.repo, f.bus, f.clock)
	for _, kind := range []models.BlockKind{models.KindHero, models.KindAbout, models.KindProducts} {
		_, err := ed.AddBlock(kind)
		require.NoError(t, err)
	}
	doc := ed.Snapshot()
	require.Len(t, doc.Blocks, 3)
	assert.Equal(t, models.KindProducts, doc.Blocks[2].Kind())

	products := doc.Products()
	require.Len(t, products, 1)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("29.99")))
	assert.True(t, products[0].InStock)

	_, err := ed.Save(ctx)
	require.NoError(t, err)

	carts := services.NewCartService(f.sites, f.clock)
	store := mapStore{}
	cart, err := carts.Add(ctx, store, site.ID, products[0].ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "59.98", cart.Total.StringFixed(2))
	assert.Equal(t, 2, cart.Count())

	cart, err = carts.UpdateQuantity(store, site.ID, products[0].ID, 0)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())

	reloaded, err := carts.Cart(store, site.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Empty())
}

func TestEditor_UpdateUnknownBlockIsNotFoundAndLeavesDocument(t *testing.T) {
	f := newFixture(t)
	site := f.onboard(t, "user-1", "Spice Route")
	ed := services.NewEditor(site, f.repo, f.bus, f.clock)
	before := ed.Snapshot()

	err := ed.UpdateBlock("block_missing", json.RawMessage(`{"heading":"Hi"}`))
	assert.ErrorIs(t, err, models.ErrNotFound)

	after := ed.Snapshot()
	assert.Equal(t, blockIDs(before), blockIDs(after))
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.False(t, ed.Dirty())
}

func TestEditor_UpdateBlockMergesFields(t *testing.T) {
	f := newFixture(t)
	site := f.onboard(t, "user-1", "Spice Route")
	ed := services.NewEditor(site, f.repo, f.bus, f.clock)
	hero := site.Hero()
	require.NotNil(t, hero)

	require.NoError(t, ed.UpdateBlock(hero.ID, json.RawMessage(`{"heading":"Fresh every day"}`)))

	got := ed.Snapshot().Hero()
	assert.Equal(t, "Fresh every day", got.Heading)
	assert.Equal(t, hero.Subheading, got.Subheading)
	assert.True(t, ed.Dirty())
}

func TestEditor_ReorderIsAPermutation(t *testing.T) {
	f := newFixture(t)
	site := f.onboard(t, "user-1", "Spice Route")
	n := len(site.Blocks)
	require.Greater(t, n, 2)

	want := blockIDs(site)
	sort.Strings(want)

	for from := 0; from < n; from++ {
		for to := 0; to < n; to++ {
			ed := services.NewEditor(site, f.repo, f.bus, f.clock)
			require.NoError(t, ed.ReorderBlocks(from, to))

			doc := ed.Snapshot()
			got := blockIDs(doc)
			assert.Equal(t, site.Blocks[from].BlockID(), got[to])
			sort.Strings(got)
			assert.Equal(t, want, got)
		}
	}
}

func TestEditor_ReorderOutOfRange(t *testing.T) {
	f := newFixture(t)
	site := f.onboard(t, "user-1", "Spice Route")
	ed := services.NewEditor(site, f.repo, f.bus, f.clock)

	var ve *models.ValidationError
	require.ErrorAs(t, ed.ReorderBlocks(-1, 0), &ve)
	assert.Contains(t, ve.Fields, "from")
	require.ErrorAs(t, ed.ReorderBlocks(0, len(site.Blocks)), &ve)
	assert.Contains(t, ve.Fields, "to")
	assert.Equal(t, blockIDs(site), blockIDs(ed.Snapshot()))
}

func TestEditor_DeleteClearsSelection(t *testing.T) {
	f := newFixture(t)
	site := f.onboard(t, "user-1", "Spice Route")
	ed := services.NewEditor(site, f.repo, f.bus, f.clock)
	id := site.Blocks[0].BlockID()

	require.NoError(t, ed.SelectBlock(id))
	assert.Equal(t, id, ed.Selected())
	assert.ErrorIs(t, ed.SelectBlock("nope"), models.ErrNotFound)

	require.NoError(t, ed.DeleteBlock(id))
	assert.Empty(t, ed.Selected())
	assert.Len(t, ed.Snapshot().Blocks, len(site.Blocks)-1)
	assert.ErrorIs(t, ed.DeleteBlock(id), models.ErrNotFound)
}

func TestEditor_ThemeAndSEOPatches(t *testing.T) {
	f := newFixture(t)
	site := f.onboard(t, "user-1", "Spice Route")
	ed := services.NewEditor(site, f.repo, f.bus, f.clock)

	color := "#123456"
	require.NoError(t, ed.UpdateTheme(models.ThemePatch{Color: &color}))
	assert.Equal(t, "#123456", ed.Snapshot().Theme.Color)
	assert.Equal(t, site.Theme.FontScale, ed.Snapshot().Theme.FontScale)

	bad := 3.0
	var ve *models.ValidationError
	require.ErrorAs(t, ed.UpdateTheme(models.ThemePatch{FontScale: &bad}), &ve)
	assert.Equal(t, site.Theme.FontScale, ed.Snapshot().Theme.FontScale)

	title := "Spice Route | Pune"
	require.NoError(t, ed.UpdateSEO(models.SEOPatch{Title: &title}))
	assert.Equal(t, title, ed.Snapshot().SEO.Title)
	assert.Equal(t, site.SEO.Description, ed.Snapshot().SEO.Description)
}

func TestEditor_ProductLifecycle(t *testing.T) {
	f := newFixture(t)
	site := emptySite(t, f)
	ed := services.NewEditor(site, f.repo, f.bus, f.clock)

	blockID, err := ed.AddBlock(models.KindProducts)
	require.NoError(t, err)
	added, err := ed.AddProduct(blockID)
	require.NoError(t, err)
	assert.Equal(t, "New Product", added.Name)

	price := decimal.RequireFromString("12.50")
	name := "Masala Chai"
	require.NoError(t, ed.UpdateProduct(blockID, added.ID, services.ProductPatch{Name: &name, Price: &price}))
	got, ok := ed.Snapshot().FindProduct(added.ID)
	require.True(t, ok)
	assert.Equal(t, "Masala Chai", got.Name)
	assert.Equal(t, "12.50", got.Price.StringFixed(2))

	negative := decimal.RequireFromString("-1")
	var ve *models.ValidationError
	assert.ErrorAs(t, ed.UpdateProduct(blockID, added.ID, services.ProductPatch{Price: &negative}), &ve)

	require.NoError(t, ed.RemoveProduct(blockID, added.ID))
	_, ok = ed.Snapshot().FindProduct(added.ID)
	assert.False(t, ok)
	assert.ErrorIs(t, ed.RemoveProduct(blockID, added.ID), models.ErrNotFound)

	heroID, err := ed.AddBlock(models.KindHero)
	require.NoError(t, err)
	_, err = ed.AddProduct(heroID)
	assert.ErrorAs(t, err, &ve)
}

func TestEditor_SaveBumpsVersionAndFiresEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	saved := f.record(services.EventSiteSaved)
	site := f.onboard(t, "user-1", "Spice Route")
	ed := services.NewEditor(site, f.repo, f.bus, f.clock)

	_, err := ed.AddBlock(models.KindGallery)
	require.NoError(t, err)
	version, err := ed.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, site.Version+1, version)
	assert.Equal(t, version, ed.Version())
	assert.False(t, ed.Dirty())

	stored, err := f.repo.Find(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, version, stored.Version)
	assert.Len(t, stored.Blocks, len(site.Blocks)+1)

	events := saved()
	require.Len(t, events, 1)
	assert.Equal(t, version, events[0].(services.SiteSaved).Version)
}

func TestEditor_StaleSaveIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	site := f.onboard(t, "user-1", "Spice Route")

	first := services.NewEditor(site, f.repo, f.bus, f.clock)
	second := services.NewEditor(site, f.repo, f.bus, f.clock)

	_, err := first.AddBlock(models.KindGallery)
	require.NoError(t, err)
	_, err = first.Save(ctx)
	require.NoError(t, err)

	_, err = second.AddBlock(models.KindContact)
	require.NoError(t, err)
	_, err = second.Save(ctx)
	assert.ErrorIs(t, err, models.ErrStaleVersion)
	assert.True(t, second.Dirty())
	assert.Equal(t, site.Version, second.Version())

	stored, err := f.repo.Find(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, site.Version+1, stored.Version)
	assert.Equal(t, blockIDs(first.Snapshot()), blockIDs(stored))
}

func TestEditorRegistry_OpenReusesDirtySessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	site := f.onboard(t, "user-1", "Spice Route")
	reg := services.NewEditorRegistry(f.sites, f.repo, f.bus, f.clock)

	ed, err := reg.Open(ctx, "user-1", site.ID)
	require.NoError(t, err)
	_, err = ed.AddBlock(models.KindGallery)
	require.NoError(t, err)

	again, err := reg.Open(ctx, "user-1", site.ID)
	require.NoError(t, err)
	assert.Same(t, ed, again)

	_, err = reg.Open(ctx, "user-2", site.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = reg.Get("user-1", "other")
	assert.ErrorIs(t, err, models.ErrNotFound)

	reg.CloseSite(site.ID)
	assert.Equal(t, 0, reg.Len())
}

func TestEditor_EveryMutationStampsUpdatedAt(t *testing.T) {
	color := "#0a7d4f"
	title := "Spice Route | Pune"
	name := "Masala Chai"

	cases := []struct {
		name   string
		mutate func(ed *services.Editor, blockID, productID string) error
	}{
		{"add block", func(ed *services.Editor, _, _ string) error {
			_, err := ed.AddBlock(models.KindGallery)
			return err
		}},
		{"update block", func(ed *services.Editor, blockID, _ string) error {
			return ed.UpdateBlock(blockID, json.RawMessage(`{"title":"Menu"}`))
		}},
		{"delete block", func(ed *services.Editor, blockID, _ string) error {
			return ed.DeleteBlock(blockID)
		}},
		{"reorder blocks", func(ed *services.Editor, _, _ string) error {
			return ed.ReorderBlocks(0, 1)
		}},
		{"update theme", func(ed *services.Editor, _, _ string) error {
			return ed.UpdateTheme(models.ThemePatch{Color: &color})
		}},
		{"update seo", func(ed *services.Editor, _, _ string) error {
			return ed.UpdateSEO(models.SEOPatch{Title: &title})
		}},
		{"add product", func(ed *services.Editor, blockID, _ string) error {
			_, err := ed.AddProduct(blockID)
			return err
		}},
		{"update product", func(ed *services.Editor, blockID, productID string) error {
			return ed.UpdateProduct(blockID, productID, services.ProductPatch{Name: &name})
		}},
		{"remove product", func(ed *services.Editor, blockID, productID string) error {
			return ed.RemoveProduct(blockID, productID)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			site := emptySite(t, f)

			var mu sync.Mutex
			var last time.Time
			clock := func() time.Time {
				mu.Lock()
				defer mu.Unlock()
				last = f.clock()
				return last
			}

			ed := services.NewEditor(site, f.repo, f.bus, clock)
			blockID, err := ed.AddBlock(models.KindProducts)
			require.NoError(t, err)
			_, err = ed.AddBlock(models.KindHero)
			require.NoError(t, err)
			_, err = ed.Save(ctx)
			require.NoError(t, err)
			require.False(t, ed.Dirty())

			before := ed.Snapshot()
			productID := before.Products()[0].ID

			require.NoError(t, tc.mutate(ed, blockID, productID))

			after := ed.Snapshot()
			assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
			mu.Lock()
			assert.Equal(t, last, after.UpdatedAt, "the stamp is taken before the call returns")
			mu.Unlock()
			assert.True(t, ed.Dirty())
		})
	}
}

func TestEditor_ConcurrentSavesDoNotInterleave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	site := f.onboard(t, "user-1", "Spice Route")
	ed := services.NewEditor(site, f.repo, f.bus, f.clock)

	const writers = 4
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			title := "Title " + string(rune('A'+i))
			if errs[i] = ed.UpdateSEO(models.SEOPatch{Title: &title}); errs[i] != nil {
				return
			}
			_, errs[i] = ed.Save(ctx)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, site.Version+writers, ed.Version())
	assert.False(t, ed.Dirty())

	stored, err := f.repo.Find(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, site.Version+writers, stored.Version)
	assert.Equal(t, ed.Snapshot().SEO.Title, stored.SEO.Title)
}
