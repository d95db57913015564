// Package resource shapes models into API views and pages them:
//
//	page := resource.PageOf(orders, c.QueryInt("page", 1), c.QueryInt("perPage", 20), OrderSummary)
//	c.Success(page)
package resource

import "github.com/developlogy/sitebuilder/pkg/collection"

// Map is the JSON object produced by a transformer.
type Map = map[string]any

// Transformer converts one model into its API view.
type Transformer[T any] func(T) Map

// Collection transforms every item.
func Collection[T any](items []T, t Transformer[T]) []Map {
	return collection.Map(items, func(v T) Map { return t(v) })
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page     int `json:"page"`
	PerPage  int `json:"perPage"`
	Total    int `json:"total"`
	LastPage int `json:"lastPage"`
}

// Page is a transformed page with its pagination.
type Page struct {
	Items      []Map      `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// MaxPerPage caps the page size a client may ask for.
const MaxPerPage = 100

// PageOf transforms page of items. perPage is clamped to [1, MaxPerPage].
func PageOf[T any](items []T, page, perPage int, t Transformer[T]) Page {
	perPage = max(1, min(perPage, MaxPerPage))
	page = max(page, 1)
	last := max(1, (len(items)+perPage-1)/perPage)
	return Page{
		Items: Collection(collection.Paginate(items, page, perPage), t),
		Pagination: Pagination{
			Page:     page,
			PerPage:  perPage,
			Total:    len(items),
			LastPage: last,
		},
	}
}
