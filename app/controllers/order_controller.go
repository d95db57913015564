package controllers

import (
	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/services"
	"github.com/developlogy/sitebuilder/pkg/collection"
	"github.com/developlogy/sitebuilder/pkg/ctx"
	"github.com/developlogy/sitebuilder/pkg/resource"
)

// OrderController lists and refunds the orders placed on the user's sites.
type OrderController struct {
	checkout *services.CheckoutService
}

func NewOrderController(checkout *services.CheckoutService) *OrderController {
	return &OrderController{checkout: checkout}
}

// orderSummary is the listing view of an order; the full record is served
// by Show.
func orderSummary(o *models.Order) resource.Map {
	return resource.Map{
		"id":            o.ID,
		"siteId":        o.SiteID,
		"customerName":  o.CustomerInfo.Name,
		"customerEmail": o.CustomerInfo.Email,
		"itemCount":     len(o.Items),
		"total":         o.Total,
		"paymentStatus": o.PaymentStatus,
		"createdAt":     o.CreatedAt,
	}
}

// Index lists orders newest first, optionally narrowed by ?siteId= and
// ?status=, paged by ?page= and ?perPage=.
func (oc *OrderController) Index(c *ctx.Context) {
	orders, err := oc.checkout.Orders(c.Context(), c.UserID())
	if err != nil {
		respondError(c, err)
		return
	}
	if site := c.Query("siteId"); site != "" {
		orders = collection.Filter(orders, func(o *models.Order) bool { return o.SiteID == site })
	}
	if status := models.PaymentStatus(c.Query("status")); status != "" {
		orders = collection.Filter(orders, func(o *models.Order) bool { return o.PaymentStatus == status })
	}
	orders = collection.SortBy(orders, func(a, b *models.Order) bool { return a.CreatedAt.After(b.CreatedAt) })

	c.Success(resource.PageOf(orders, c.QueryInt("page", 1), c.QueryInt("perPage", 20), orderSummary))
}

func (oc *OrderController) Show(c *ctx.Context) {
	order, err := oc.checkout.Order(c.Context(), c.UserID(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(order)
}

func (oc *OrderController) Refund(c *ctx.Context) {
	order, err := oc.checkout.Refund(c.Context(), c.UserID(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(order)
}
