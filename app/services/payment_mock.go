package services

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/developlogy/sitebuilder/app/models"
)

// MockDeclineReason is the reason reported for a simulated decline.
const MockDeclineReason = "Payment failed due to insufficient funds or network error"

// MockGateway simulates a gateway: it waits, then approves 95% of charges.
type MockGateway struct {
	Delay       time.Duration
	RefundDelay time.Duration
	SuccessRate float64
	random      func() float64
	now         func() time.Time
}

// NewMockGateway returns a mock with the given charge delay. A nil random
// uses math/rand.
func NewMockGateway(delay time.Duration, random func() float64) *MockGateway {
	if random == nil {
		random = rand.Float64
	}
	return &MockGateway{
		Delay:       delay,
		RefundDelay: 1500 * time.Millisecond,
		SuccessRate: 0.95,
		random:      random,
		now:         time.Now,
	}
}

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) Process(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	if err := sleep(ctx, g.Delay); err != nil {
		return PaymentResult{}, gatewayError("mock", err)
	}
	if g.random() >= g.SuccessRate {
		return PaymentResult{}, declined(MockDeclineReason)
	}
	return PaymentResult{
		TransactionID: fmt.Sprintf("mock_txn_%d_%s", g.now().UnixMilli(), randomSuffix(g.random)),
		Method:        "mock",
	}, nil
}

func (g *MockGateway) Refund(ctx context.Context, transactionID string, _ decimal.Decimal, _ string) (string, error) {
	if !strings.HasPrefix(transactionID, "mock_txn_") {
		return "", &models.PaymentError{Reason: "Transaction not found"}
	}
	if err := sleep(ctx, g.RefundDelay); err != nil {
		return "", gatewayError("mock", err)
	}
	return "refund_" + transactionID, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func randomSuffix(random func() float64) string {
	var b strings.Builder
	for b.Len() < 9 {
		b.WriteString(strconv.FormatInt(int64(random()*36), 36))
	}
	return b.String()
}
