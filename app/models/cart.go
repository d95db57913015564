package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one line of a cart. Price is frozen when the product is added.
type CartItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Subtotal is price × quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is a shopper's session cart for one site. It lives in the session
// store only and is never saved with the site document.
type Cart struct {
	ID        string          `json:"id"`
	SiteID    string          `json:"siteId"`
	Items     []CartItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewCart returns an empty cart.
func NewCart(id, siteID string, now time.Time) *Cart {
	return &Cart{
		ID:        id,
		SiteID:    siteID,
		Items:     []CartItem{},
		Total:     decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Add puts qty units of p in the cart. An existing line for the same
// product keeps its original price and only grows in quantity.
func (c *Cart) Add(p Product, qty int, now time.Time) error {
	if qty <= 0 {
		return NewValidationError("quantity", "must be at least 1")
	}
	if !p.InStock {
		return NewValidationError("productId", "product is out of stock")
	}

	for i := range c.Items {
		if c.Items[i].ProductID == p.ID {
			c.Items[i].Quantity += qty
			c.touch(now)
			return nil
		}
	}

	c.Items = append(c.Items, CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Quantity:  qty,
		Price:     p.Price,
	})
	c.touch(now)
	return nil
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
func (c *Cart) UpdateQuantity(productID string, qty int, now time.Time) error {
	if qty <= 0 {
		return c.Remove(productID, now)
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = qty
			c.touch(now)
			return nil
		}
	}
	return ErrNotFound
}

// Remove drops the line for productID.
func (c *Cart) Remove(productID string, now time.Time) error {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.touch(now)
			return nil
		}
	}
	return ErrNotFound
}

// Clear empties the cart.
func (c *Cart) Clear(now time.Time) {
	c.Items = []CartItem{}
	c.touch(now)
}

// Count is the total number of units in the cart.
func (c *Cart) Count() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool { return len(c.Items) == 0 }

// Clone returns a copy that shares no slices with c.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = append([]CartItem(nil), c.Items...)
	return &out
}

// touch recomputes the total from scratch and stamps the update time.
func (c *Cart) touch(now time.Time) {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	c.Total = total
	c.UpdatedAt = now
}
