package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/repositories"
	"github.com/developlogy/sitebuilder/pkg/cache"
	"github.com/developlogy/sitebuilder/pkg/event"
	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/metrics"
)

// CheckoutService turns carts into orders and charges them through the
// configured payment gateway.
type CheckoutService struct {
	orders   repositories.OrderRepository
	sites    *SiteService
	gateway  PaymentGateway
	currency string
	bus      *event.Bus
	now      Clock
	locks    cache.Store
}

// checkoutLockTTL bounds how long a crashed instance can hold a cart.
const checkoutLockTTL = 2 * time.Minute

// NewCheckoutService builds the checkout. locks holds the per-cart in-flight
// guard; share one store (Redis) between instances so a cart is charged by
// only one of them. nil keeps the guard in process.
func NewCheckoutService(orders repositories.OrderRepository, sites *SiteService, gateway PaymentGateway, currency string, locks cache.Store, bus *event.Bus, now Clock) *CheckoutService {
	if locks == nil {
		locks = cache.NewMemoryStore()
	}
	if bus == nil {
		bus = event.Default()
	}
	if currency == "" {
		currency = "USD"
	}
	return &CheckoutService{
		orders:   orders,
		sites:    sites,
		gateway:  gateway,
		currency: strings.ToUpper(currency),
		bus:      bus,
		now:      clockOr(now),
		locks:    locks,
	}
}

// Gateway is the name of the gateway orders are charged through.
func (s *CheckoutService) Gateway() string { return s.gateway.Name() }

func checkoutLockKey(cartID string) string { return "checkout:" + cartID }

func (s *CheckoutService) acquire(ctx context.Context, cartID string) error {
	ok, err := s.locks.SetNX(ctx, checkoutLockKey(cartID), true, checkoutLockTTL)
	if err != nil {
		return models.Storage("checkout lock", err)
	}
	if !ok {
		return models.ErrCheckoutInFlight
	}
	return nil
}

func (s *CheckoutService) release(ctx context.Context, cartID string) {
	if err := s.locks.Del(context.WithoutCancel(ctx), checkoutLockKey(cartID)); err != nil {
		logger.WithCtx(ctx).Warn("checkout lock not released", "cart_id", cartID, "error", err)
	}
}

// Checkout places an order for cart and charges it. On success the order is
// completed and cart is cleared. On a decline the order is saved as failed,
// cart is left as it was, and a *models.PaymentError with Declined set is
// returned alongside the order.
//
// The charge runs to completion even if ctx is cancelled, so the stored
// order always reflects what the gateway did.
func (s *CheckoutService) Checkout(ctx context.Context, cart *models.Cart, customer models.CustomerInfo, token string) (*models.Order, error) {
	if cart == nil || cart.Empty() {
		return nil, models.NewValidationError("items", "cart is empty")
	}
	customer = customer.Normalize()
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	site, err := s.sites.Public(ctx, cart.SiteID)
	if err != nil {
		return nil, err
	}

	if err := s.acquire(ctx, cart.ID); err != nil {
		return nil, err
	}
	defer s.release(ctx, cart.ID)

	now := s.now()
	snapshot := cart.Clone()
	order := &models.Order{
		ID:            "order_" + uuid.NewString(),
		SiteID:        site.ID,
		UserID:        site.OwnerID,
		Items:         snapshot.Items,
		Total:         snapshot.Total,
		CustomerInfo:  customer,
		PaymentStatus: models.PaymentPending,
		PaymentMethod: s.gateway.Name(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	// Past this point the request may go away; the charge and the order
	// record must not.
	ctx = context.WithoutCancel(ctx)
	log := logger.WithCtx(ctx).With("order_id", order.ID, "site_id", order.SiteID, "gateway", s.gateway.Name())

	result, payErr := s.gateway.Process(ctx, PaymentRequest{
		OrderID:  order.ID,
		Amount:   order.Total,
		Currency: s.currency,
		Customer: customer,
		Token:    token,
	})
	if payErr != nil {
		var pe *models.PaymentError
		if !errors.As(payErr, &pe) {
			pe = &models.PaymentError{Reason: "payment failed", Err: payErr}
		}
		order.FailureReason = pe.Reason
		if err := order.Transition(models.PaymentFailed, s.now()); err != nil {
			return nil, err
		}
		if err := s.orders.Save(ctx, order); err != nil {
			return nil, err
		}
		outcome := "error"
		if pe.Declined {
			outcome = "declined"
		}
		metrics.Checkouts.WithLabelValues(s.gateway.Name(), outcome).Inc()
		log.Warn("checkout payment failed", "declined", pe.Declined, "reason", pe.Reason, "error", payErr)
		s.bus.Fire(ctx, EventOrderFailed, orderEvent(order))
		return order, pe
	}

	order.TransactionID = result.TransactionID
	if result.Method != "" {
		order.PaymentMethod = result.Method
	}
	if err := order.Transition(models.PaymentCompleted, s.now()); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	cart.Clear(s.now())

	metrics.Checkouts.WithLabelValues(s.gateway.Name(), "completed").Inc()
	log.Info("checkout completed", "transaction_id", order.TransactionID, "total", order.Total.StringFixed(2))
	s.bus.Fire(ctx, EventOrderCompleted, orderEvent(order))
	return order, nil
}

// Orders lists the orders placed on sites owned by userID.
func (s *CheckoutService) Orders(ctx context.Context, userID string) ([]*models.Order, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	return s.orders.ListByUser(ctx, userID)
}

// Order returns one order of a site owned by userID.
func (s *CheckoutService) Order(ctx context.Context, userID, id string) (*models.Order, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	order, err := s.orders.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, models.ErrForbidden
	}
	return order, nil
}

// Refund returns the full amount of a completed order.
func (s *CheckoutService) Refund(ctx context.Context, userID, id string) (*models.Order, error) {
	order, err := s.Order(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !order.PaymentStatus.CanTransition(models.PaymentRefunded) {
		return nil, models.NewValidationError("paymentStatus", "only completed orders can be refunded")
	}

	ctx = context.WithoutCancel(ctx)
	refundID, err := s.gateway.Refund(ctx, order.TransactionID, order.Total, s.currency)
	if err != nil {
		return nil, err
	}
	if err := order.Transition(models.PaymentRefunded, s.now()); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	logger.WithCtx(ctx).Info("order refunded", "order_id", order.ID, "refund_id", refundID)
	s.bus.Fire(ctx, EventOrderRefunded, orderEvent(order))
	return order, nil
}

func orderEvent(o *models.Order) OrderEvent {
	return OrderEvent{
		OrderID:       o.ID,
		SiteID:        o.SiteID,
		OwnerID:       o.UserID,
		CustomerEmail: o.CustomerInfo.Email,
		Total:         o.Total,
		Status:        string(o.PaymentStatus),
		TransactionID: o.TransactionID,
		Reason:        o.FailureReason,
	}
}
