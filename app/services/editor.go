package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/repositories"
	"github.com/developlogy/sitebuilder/pkg/event"
	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/metrics"
)

// Editor is one builder session over one site document. Mutations apply to
// the in-memory document only; Save persists it with a version check.
//
// Every mutating operation stamps UpdatedAt once, from the injected clock.
// A failed operation leaves the document untouched.
type Editor struct {
	mu       sync.Mutex
	doc      *models.Site
	selected string
	rev      uint64 // bumped by every successful mutation
	savedRev uint64

	saveMu sync.Mutex

	sites repositories.SiteRepository
	bus   *event.Bus
	now   Clock
}

// NewEditor starts a session on a copy of site.
func NewEditor(site *models.Site, sites repositories.SiteRepository, bus *event.Bus, now Clock) *Editor {
	if bus == nil {
		bus = event.Default()
	}
	return &Editor{doc: site.Clone(), sites: sites, bus: bus, now: clockOr(now)}
}

// mutate runs fn on the document under the lock and stamps UpdatedAt when
// fn succeeds.
func (e *Editor) mutate(fn func(doc *models.Site) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(e.doc); err != nil {
		return err
	}
	e.doc.UpdatedAt = e.now()
	e.rev++
	return nil
}

// AddBlock appends a default block of kind and returns its id.
func (e *Editor) AddBlock(kind models.BlockKind) (string, error) {
	var id string
	err := e.mutate(func(doc *models.Site) error {
		now := e.now()
		id = models.NewBlockID(now)
		for doc.Blocks.Index(id) >= 0 {
			id = models.NewBlockID(now)
		}
		b, err := models.DefaultBlock(kind, id, now)
		if err != nil {
			return err
		}
		doc.Blocks = append(doc.Blocks, b)
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateBlock merges the top-level fields of patch into the block with id.
func (e *Editor) UpdateBlock(id string, patch json.RawMessage) error {
	return e.mutate(func(doc *models.Site) error {
		i := doc.Blocks.Index(id)
		if i < 0 {
			return models.ErrNotFound
		}
		patched, err := models.PatchBlock(doc.Blocks[i], patch)
		if err != nil {
			return err
		}
		doc.Blocks[i] = patched
		return nil
	})
}

// DeleteBlock removes the block with id and clears the selection if it was
// the selected block.
func (e *Editor) DeleteBlock(id string) error {
	return e.mutate(func(doc *models.Site) error {
		i := doc.Blocks.Index(id)
		if i < 0 {
			return models.ErrNotFound
		}
		doc.Blocks = append(doc.Blocks[:i:i], doc.Blocks[i+1:]...)
		if e.selected == id {
			e.selected = ""
		}
		return nil
	})
}

// ReorderBlocks moves the block at from to position to. The relative order
// of every other block is kept.
func (e *Editor) ReorderBlocks(from, to int) error {
	return e.mutate(func(doc *models.Site) error {
		n := len(doc.Blocks)
		if from < 0 || from >= n {
			return models.NewValidationError("from", "index out of range")
		}
		if to < 0 || to >= n {
			return models.NewValidationError("to", "index out of range")
		}
		moved := doc.Blocks[from]
		rest := append(append(models.Blocks{}, doc.Blocks[:from]...), doc.Blocks[from+1:]...)
		out := make(models.Blocks, 0, n)
		out = append(out, rest[:to]...)
		out = append(out, moved)
		out = append(out, rest[to:]...)
		doc.Blocks = out
		return nil
	})
}

// SelectBlock marks a block as selected. An empty id clears the selection.
// Selection is session state and does not touch the document.
func (e *Editor) SelectBlock(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id != "" && e.doc.Blocks.Index(id) < 0 {
		return models.ErrNotFound
	}
	e.selected = id
	return nil
}

// Selected returns the selected block id, or "".
func (e *Editor) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// UpdateTheme merges the non-nil fields of p into the theme.
func (e *Editor) UpdateTheme(p models.ThemePatch) error {
	return e.mutate(func(doc *models.Site) error {
		next := p.Apply(doc.Theme)
		if err := next.Validate(); err != nil {
			return err
		}
		doc.Theme = next
		return nil
	})
}

// UpdateSEO merges the non-nil fields of p into the SEO metadata.
func (e *Editor) UpdateSEO(p models.SEOPatch) error {
	return e.mutate(func(doc *models.Site) error {
		doc.SEO = p.Apply(doc.SEO)
		return nil
	})
}

// ProductPatch carries a partial product update; nil fields are left alone.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	Image       *string          `json:"image"`
	Badges      *[]string        `json:"badges"`
	Category    *string          `json:"category"`
	InStock     *bool            `json:"inStock"`
}

func (p ProductPatch) apply(prod models.Product) (models.Product, error) {
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return prod, models.NewValidationError("name", "is required")
		}
		prod.Name = *p.Name
	}
	if p.Price != nil {
		if p.Price.IsNegative() {
			return prod, models.NewValidationError("price", "must not be negative")
		}
		prod.Price = *p.Price
	}
	if p.Description != nil {
		prod.Description = *p.Description
	}
	if p.Image != nil {
		prod.Image = *p.Image
	}
	if p.Badges != nil {
		prod.Badges = append([]string{}, (*p.Badges)...)
	}
	if p.Category != nil {
		prod.Category = *p.Category
	}
	if p.InStock != nil {
		prod.InStock = *p.InStock
	}
	return prod, nil
}

func productsBlock(doc *models.Site, blockID string) (*models.ProductsBlock, error) {
	i := doc.Blocks.Index(blockID)
	if i < 0 {
		return nil, models.ErrNotFound
	}
	pb, ok := doc.Blocks[i].(*models.ProductsBlock)
	if !ok {
		return nil, models.NewValidationError("blockId", "is not a products block")
	}
	return pb, nil
}

// AddProduct appends a placeholder product to a products block.
func (e *Editor) AddProduct(blockID string) (models.Product, error) {
	var added models.Product
	err := e.mutate(func(doc *models.Site) error {
		pb, err := productsBlock(doc, blockID)
		if err != nil {
			return err
		}
		now := e.now()
		n := len(pb.Products) + 1
		id := models.NewProductID(now, n)
		for hasProduct(pb, id) {
			n++
			id = models.NewProductID(now, n)
		}
		added = models.NewProduct(id, now)
		pb.Products = append(pb.Products, added)
		return nil
	})
	return added.Clone(), err
}

// UpdateProduct merges patch into one product of a products block.
func (e *Editor) UpdateProduct(blockID, productID string, patch ProductPatch) error {
	return e.mutate(func(doc *models.Site) error {
		pb, err := productsBlock(doc, blockID)
		if err != nil {
			return err
		}
		for i := range pb.Products {
			if pb.Products[i].ID != productID {
				continue
			}
			next, err := patch.apply(pb.Products[i])
			if err != nil {
				return err
			}
			next.UpdatedAt = e.now()
			pb.Products[i] = next
			return nil
		}
		return models.ErrNotFound
	})
}

// RemoveProduct deletes one product from a products block.
func (e *Editor) RemoveProduct(blockID, productID string) error {
	return e.mutate(func(doc *models.Site) error {
		pb, err := productsBlock(doc, blockID)
		if err != nil {
			return err
		}
		for i := range pb.Products {
			if pb.Products[i].ID == productID {
				pb.Products = append(pb.Products[:i:i], pb.Products[i+1:]...)
				return nil
			}
		}
		return models.ErrNotFound
	})
}

func hasProduct(pb *models.ProductsBlock, id string) bool {
	for _, p := range pb.Products {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Snapshot returns a deep copy of the current document.
func (e *Editor) Snapshot() *models.Site {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Clone()
}

// Version is the persisted version the document is based on.
func (e *Editor) Version() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Version
}

// Dirty reports whether the document has changes that are not saved.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rev != e.savedRev
}

// Save persists the document. Saves of one editor never interleave. On
// success the editor adopts the new version; on failure the document is
// kept as is and the stored version is untouched. A concurrent write by
// another session yields models.ErrStaleVersion.
func (e *Editor) Save(ctx context.Context) (int64, error) {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	e.mu.Lock()
	snapshot := e.doc.Clone()
	rev := e.rev
	e.mu.Unlock()

	if err := snapshot.Validate(); err != nil {
		return 0, err
	}
	expected := snapshot.Version
	if err := e.sites.Update(ctx, snapshot, expected); err != nil {
		result := "error"
		if errors.Is(err, models.ErrStaleVersion) {
			result = "stale"
		}
		metrics.SiteSaves.WithLabelValues(result).Inc()
		logger.WithCtx(ctx).Warn("editor: save failed", "site_id", snapshot.ID, "version", expected, "error", err)
		return 0, err
	}
	metrics.SiteSaves.WithLabelValues("ok").Inc()

	e.mu.Lock()
	e.doc.Version = snapshot.Version
	e.savedRev = rev
	e.mu.Unlock()

	e.bus.Fire(ctx, EventSiteSaved, SiteSaved{
		SiteID:  snapshot.ID,
		OwnerID: snapshot.OwnerID,
		Version: snapshot.Version,
		SavedAt: snapshot.UpdatedAt,
	})
	logger.WithCtx(ctx).Info("site saved", "site_id", snapshot.ID, "version", snapshot.Version)
	return snapshot.Version, nil
}
