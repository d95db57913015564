package services_test

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
	"github.com/developlogy/sitebuilder/app/services"
	"github.com/developlogy/sitebuilder/pkg/cache"
)

// stubGateway answers every charge with result or err. When gate is set,
// Process waits for it to close first.
type stubGateway struct {
	result services.PaymentResult
	err    error
	gate   chan struct{}

	mu       sync.Mutex
	requests []services.PaymentRequest
	refunds  []string
}

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) Process(ctx context.Context, req services.PaymentRequest) (services.PaymentResult, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	if g.gate != nil {
		<-g.gate
	}
	if ctx.Err() != nil {
		return services.PaymentResult{}, ctx.Err()
	}
	return g.result, g.err
}

func (g *stubGateway) Refund(_ context.Context, txn string, _ decimal.Decimal, _ string) (string, error) {
	g.mu.Lock()
	g.refunds = append(g.refunds, txn)
	g.mu.Unlock()
	return "refund_" + txn, nil
}

func customer() models.CustomerInfo {
	return models.CustomerInfo{
		Name:  " Asha Rao ",
		Email: "Asha@Example.com",
		Address: models.Address{
			Street: "12 MG Road", City: "Pune", State: "MH", ZipCode: "411001",
		},
	}
}

// storefront onboards a site with the default products block and returns it
// with a cart holding two units of its sample product.
func storefront(t *testing.T, f *fixture) (*models.Site, *models.Cart) {
	t.Helper()
	ctx := context.Background()
	site := f.onboard(t, "owner-1", "Spice Route")
	ed := services.NewEditor(site, f.repo, f.bus, f.clock)
	_, err := ed.AddBlock(models.KindProducts)
	require.NoError(t, err)
	_, err = ed.Save(ctx)
	require.NoError(t, err)
	site = ed.Snapshot()

	carts := services.NewCartService(f.sites, f.clock)
	cart, err := carts.Add(ctx, mapStore{}, site.ID, site.Products()[0].ID, 2)
	require.NoError(t, err)
	return site, cart
}

func TestCheckout_SuccessCompletesOrderAndClearsCart(t *testing.T) {
	f := newFixture(t)
	completed := f.record(services.EventOrderCompleted)
	site, cart := storefront(t, f)
	gw := &stubGateway{result: services.PaymentResult{TransactionID: "txn_1", Method: "stub"}}
	svc := services.NewCheckoutService(f.orders, f.sites, gw, "usd", nil, f.bus, f.clock)

	order, err := svc.Checkout(context.Background(), cart, customer(), "")
	require.NoError(t, err)

	assert.Regexp(t, `^order_[0-9a-f-]{36}$`, order.ID)
	assert.Equal(t, models.PaymentCompleted, order.PaymentStatus)
	assert.Equal(t, "txn_1", order.TransactionID)
	assert.Equal(t, "59.98", order.Total.StringFixed(2))
	assert.Equal(t, "owner-1", order.UserID)
	assert.Equal(t, "Asha Rao", order.CustomerInfo.Name)
	assert.Equal(t, "asha@example.com", order.CustomerInfo.Email)
	assert.Equal(t, models.DefaultCountry, order.CustomerInfo.Address.Country)
	assert.True(t, cart.Empty())

	require.Len(t, gw.requests, 1)
	assert.Equal(t, "USD", gw.requests[0].Currency)
	assert.Equal(t, order.ID, gw.requests[0].OrderID)

	stored, err := f.orders.Find(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, stored.PaymentStatus)

	events := completed()
	require.Len(t, events, 1)
	assert.Equal(t, site.ID, events[0].(services.OrderEvent).SiteID)
}

func TestCheckout_DeclineFailsOrderAndKeepsCart(t *testing.T) {
	f := newFixture(t)
	failed := f.record(services.EventOrderFailed)
	_, cart := storefront(t, f)
	gw := &stubGateway{err: &models.PaymentError{Declined: true, Reason: "insufficient funds"}}
	svc := services.NewCheckoutService(f.orders, f.sites, gw, "USD", nil, f.bus, f.clock)

	order, err := svc.Checkout(context.Background(), cart, customer(), "")

	var pe *models.PaymentError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Declined)
	require.NotNil(t, order)
	assert.Equal(t, models.PaymentFailed, order.PaymentStatus)
	assert.Equal(t, "insufficient funds", order.FailureReason)
	assert.Equal(t, 2, cart.Count())

	stored, err := f.orders.Find(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, stored.PaymentStatus)
	assert.Len(t, failed(), 1)
}

func TestCheckout_IntegrationErrorIsNotADecline(t *testing.T) {
	f := newFixture(t)
	_, cart := storefront(t, f)
	gw := &stubGateway{err: errors.New("connection reset")}
	svc := services.NewCheckoutService(f.orders, f.sites, gw, "USD", nil, f.bus, f.clock)

	_, err := svc.Checkout(context.Background(), cart, customer(), "")

	var pe *models.PaymentError
	require.ErrorAs(t, err, &pe)
	assert.False(t, pe.Declined)
	assert.False(t, cart.Empty())
}

func TestCheckout_RejectsSecondCheckoutWhileInFlight(t *testing.T) {
	f := newFixture(t)
	_, cart := storefront(t, f)
	gate := make(chan struct{})
	gw := &stubGateway{gate: gate, result: services.PaymentResult{TransactionID: "txn_1"}}
	svc := services.NewCheckoutService(f.orders, f.sites, gw, "USD", nil, f.bus, f.clock)

	first := cart.Clone()
	done := make(chan error, 1)
	go func() {
		_, err := svc.Checkout(context.Background(), first, customer(), "")
		done <- err
	}()

	require.Eventually(t, func() bool {
		gw.mu.Lock()
		defer gw.mu.Unlock()
		return len(gw.requests) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := svc.Checkout(context.Background(), cart.Clone(), customer(), "")
	assert.ErrorIs(t, err, models.ErrCheckoutInFlight)

	close(gate)
	require.NoError(t, <-done)

	// The guard is released once the first checkout returns.
	_, err = svc.Checkout(context.Background(), cart.Clone(), customer(), "")
	assert.NoError(t, err)
}

func TestCheckout_PaymentSurvivesCancelledRequest(t *testing.T) {
	f := newFixture(t)
	_, cart := storefront(t, f)
	gate := make(chan struct{})
	gw := &stubGateway{gate: gate, result: services.PaymentResult{TransactionID: "txn_1"}}
	svc := services.NewCheckoutService(f.orders, f.sites, gw, "USD", nil, f.bus, f.clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *models.Order, 1)
	go func() {
		order, _ := svc.Checkout(ctx, cart, customer(), "")
		done <- order
	}()
	require.Eventually(t, func() bool {
		gw.mu.Lock()
		defer gw.mu.Unlock()
		return len(gw.requests) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	close(gate)

	order := <-done
	require.NotNil(t, order)
	assert.Equal(t, models.PaymentCompleted, order.PaymentStatus)
}

func TestCheckout_ValidatesInput(t *testing.T) {
	f := newFixture(t)
	_, cart := storefront(t, f)
	svc := services.NewCheckoutService(f.orders, f.sites, &stubGateway{}, "USD", nil, f.bus, f.clock)

	var ve *models.ValidationError
	_, err := svc.Checkout(context.Background(), models.NewCart("c", cart.SiteID, base), customer(), "")
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "items")

	incomplete := customer()
	incomplete.Address.City = " "
	incomplete.Email = "not-an-email"
	_, err = svc.Checkout(context.Background(), cart, incomplete, "")
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "address.city")
	assert.Contains(t, ve.Fields, "email")
}

func TestCheckout_RefundAndOwnership(t *testing.T) {
	f := newFixture(t)
	refunded := f.record(services.EventOrderRefunded)
	_, cart := storefront(t, f)
	gw := &stubGateway{result: services.PaymentResult{TransactionID: "txn_9"}}
	svc := services.NewCheckoutService(f.orders, f.sites, gw, "USD", nil, f.bus, f.clock)
	ctx := context.Background()

	order, err := svc.Checkout(ctx, cart, customer(), "")
	require.NoError(t, err)

	orders, err := svc.Orders(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)

	_, err = svc.Order(ctx, "someone-else", order.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = svc.Refund(ctx, "someone-else", order.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	out, err := svc.Refund(ctx, "owner-1", order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, out.PaymentStatus)
	assert.Equal(t, []string{"txn_9"}, gw.refunds)
	assert.Len(t, refunded(), 1)

	var ve *models.ValidationError
	_, err = svc.Refund(ctx, "owner-1", order.ID)
	assert.ErrorAs(t, err, &ve)
}

func TestCheckout_GuardIsSharedThroughTheLockStore(t *testing.T) {
	f := newFixture(t)
	_, cart := storefront(t, f)
	locks := cache.NewMemoryStore()
	gate := make(chan struct{})
	gw := &stubGateway{gate: gate, result: services.PaymentResult{TransactionID: "txn_1"}}
	nodeA := services.NewCheckoutService(f.orders, f.sites, gw, "USD", locks, f.bus, f.clock)
	nodeB := services.NewCheckoutService(f.orders, f.sites, gw, "USD", locks, f.bus, f.clock)

	done := make(chan error, 1)
	go func() {
		_, err := nodeA.Checkout(context.Background(), cart.Clone(), customer(), "")
		done <- err
	}()
	require.Eventually(t, func() bool {
		gw.mu.Lock()
		defer gw.mu.Unlock()
		return len(gw.requests) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := nodeB.Checkout(context.Background(), cart.Clone(), customer(), "")
	assert.ErrorIs(t, err, models.ErrCheckoutInFlight)

	close(gate)
	require.NoError(t, <-done)

	ok, err := locks.SetNX(context.Background(), "checkout:"+cart.ID, true, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock must be released after the first checkout")
}
