package controllers

import (
	"errors"
	"net/http"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/services"
	"github.com/developlogy/sitebuilder/pkg/ctx"
	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/response"
	"github.com/developlogy/sitebuilder/pkg/session"
)

// CartNotCleared is the 201 message of a paid checkout whose emptied cart
// could not be written back to the session.
const CartNotCleared = "order placed, but the cart could not be cleared"

// StoreController is the public storefront of a published site: product
// listing, the visitor's session cart and checkout.
type StoreController struct {
	carts    *services.CartService
	checkout *services.CheckoutService
}

func NewStoreController(carts *services.CartService, checkout *services.CheckoutService) *StoreController {
	return &StoreController{carts: carts, checkout: checkout}
}

func (s *StoreController) Products(c *ctx.Context) {
	products, err := s.carts.Products(c.Context(), c.Param("siteId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(products)
}

func (s *StoreController) Cart(c *ctx.Context) {
	cart, err := s.carts.Cart(session.FromCtx(c.Context()), c.Param("siteId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(cart)
}

// commit saves the session after a cart change and answers with the cart.
func (s *StoreController) commit(c *ctx.Context, sess *session.Session, cart *models.Cart, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	if err := sess.Save(c.Context()); err != nil {
		respondError(c, models.Storage("session save", err))
		return
	}
	c.Success(cart)
}

type addToCartRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity"`
}

func (s *StoreController) AddToCart(c *ctx.Context) {
	var in addToCartRequest
	if !c.BindJSON(&in) {
		return
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	sess := session.FromCtx(c.Context())
	cart, err := s.carts.Add(c.Context(), sess, c.Param("siteId"), in.ProductID, in.Quantity)
	s.commit(c, sess, cart, err)
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateQuantity sets a line's quantity; zero removes the line.
func (s *StoreController) UpdateQuantity(c *ctx.Context) {
	var in quantityRequest
	if !c.BindJSON(&in) {
		return
	}
	sess := session.FromCtx(c.Context())
	cart, err := s.carts.UpdateQuantity(sess, c.Param("siteId"), c.Param("productId"), in.Quantity)
	s.commit(c, sess, cart, err)
}

func (s *StoreController) RemoveItem(c *ctx.Context) {
	sess := session.FromCtx(c.Context())
	cart, err := s.carts.Remove(sess, c.Param("siteId"), c.Param("productId"))
	s.commit(c, sess, cart, err)
}

func (s *StoreController) ClearCart(c *ctx.Context) {
	sess := session.FromCtx(c.Context())
	cart, err := s.carts.Clear(sess, c.Param("siteId"))
	s.commit(c, sess, cart, err)
}

type checkoutRequest struct {
	CustomerInfo models.CustomerInfo `json:"customerInfo"`
	PaymentToken string              `json:"paymentToken"`
}

// Checkout charges the session cart. A declined payment answers 402 with the
// failed order and leaves the cart as it was.
func (s *StoreController) Checkout(c *ctx.Context) {
	var in checkoutRequest
	if !c.BindJSON(&in) {
		return
	}
	sess := session.FromCtx(c.Context())
	cart, err := s.carts.Cart(sess, c.Param("siteId"))
	if err != nil {
		respondError(c, err)
		return
	}

	order, err := s.checkout.Checkout(c.Context(), cart, in.CustomerInfo, in.PaymentToken)
	var pe *models.PaymentError
	switch {
	case errors.As(err, &pe) && order != nil:
		respondWith(c, err, order)
		return
	case err != nil:
		respondError(c, err)
		return
	}

	if err := s.clearPaid(c, sess, cart); err != nil {
		logger.WithCtx(c.Context()).Error("paid cart left in session",
			"order_id", order.ID, "site_id", order.SiteID, "cart_id", cart.ID, "error", err)
		c.JSON(http.StatusCreated, response.Envelope{Status: http.StatusCreated, Message: CartNotCleared, Data: order})
		return
	}
	c.Created(order)
}

func (s *StoreController) clearPaid(c *ctx.Context, sess *session.Session, cart *models.Cart) error {
	if err := s.carts.Put(sess, cart); err != nil {
		return err
	}
	if err := sess.Save(c.Context()); err != nil {
		return models.Storage("session save", err)
	}
	return nil
}
