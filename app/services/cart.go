package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/developlogy/sitebuilder/app/models"
)

// CartStore is where a visitor's carts live between requests. A
// *session.Session satisfies it.
type CartStore interface {
	Get(key string, dest any) (bool, error)
	Set(key string, value any) error
}

func cartKey(siteID string) string { return "cart:" + siteID }

// CartService runs the storefront cart of a site. Carts are kept in the
// visitor's session and never written to the site document.
type CartService struct {
	sites *SiteService
	now   Clock
}

func NewCartService(sites *SiteService, now Clock) *CartService {
	return &CartService{sites: sites, now: clockOr(now)}
}

// Products lists the products of every products block of a published site.
func (s *CartService) Products(ctx context.Context, siteID string) ([]models.Product, error) {
	site, err := s.sites.Public(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return site.Products(), nil
}

// Cart returns the visitor's cart for siteID, or a fresh empty cart.
func (s *CartService) Cart(store CartStore, siteID string) (*models.Cart, error) {
	var cart models.Cart
	ok, err := store.Get(cartKey(siteID), &cart)
	if err != nil {
		return nil, models.Storage("cart get", err)
	}
	if !ok || cart.ID == "" {
		return models.NewCart("cart_"+uuid.NewString(), siteID, s.now()), nil
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

func (s *CartService) save(store CartStore, cart *models.Cart) error {
	if err := store.Set(cartKey(cart.SiteID), cart); err != nil {
		return models.Storage("cart set", err)
	}
	return nil
}

// Add puts qty units of productID in the cart at the product's current
// price.
func (s *CartService) Add(ctx context.Context, store CartStore, siteID, productID string, qty int) (*models.Cart, error) {
	site, err := s.sites.Public(ctx, siteID)
	if err != nil {
		return nil, err
	}
	product, ok := site.FindProduct(productID)
	if !ok {
		return nil, models.ErrNotFound
	}
	cart, err := s.Cart(store, siteID)
	if err != nil {
		return nil, err
	}
	if err := cart.Add(product, qty, s.now()); err != nil {
		return nil, err
	}
	return cart, s.save(store, cart)
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
func (s *CartService) UpdateQuantity(store CartStore, siteID, productID string, qty int) (*models.Cart, error) {
	cart, err := s.Cart(store, siteID)
	if err != nil {
		return nil, err
	}
	if err := cart.UpdateQuantity(productID, qty, s.now()); err != nil {
		return nil, err
	}
	return cart, s.save(store, cart)
}

// Remove drops the line for productID.
func (s *CartService) Remove(store CartStore, siteID, productID string) (*models.Cart, error) {
	cart, err := s.Cart(store, siteID)
	if err != nil {
		return nil, err
	}
	if err := cart.Remove(productID, s.now()); err != nil {
		return nil, err
	}
	return cart, s.save(store, cart)
}

// Clear empties the cart.
func (s *CartService) Clear(store CartStore, siteID string) (*models.Cart, error) {
	cart, err := s.Cart(store, siteID)
	if err != nil {
		return nil, err
	}
	cart.Clear(s.now())
	return cart, s.save(store, cart)
}

// Put stores cart as the visitor's cart for its site.
func (s *CartService) Put(store CartStore, cart *models.Cart) error {
	return s.save(store, cart)
}
