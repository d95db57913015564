package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/config"
	"github.com/developlogy/sitebuilder/pkg/http"
)

// PaymentRequest is what checkout asks a gateway to charge.
type PaymentRequest struct {
	OrderID  string
	Amount   decimal.Decimal
	Currency string
	Customer models.CustomerInfo
	// Token is the gateway-side payment reference collected by the client,
	// such as a Stripe PaymentMethod or a Razorpay payment id.
	Token string
}

// PaymentResult describes a successful charge.
type PaymentResult struct {
	TransactionID string
	Method        string
}

// PaymentGateway charges and refunds. A charge the gateway refused returns
// *models.PaymentError with Declined set; any other failure to get an answer
// returns *models.PaymentError with Declined unset.
type PaymentGateway interface {
	Name() string
	Process(ctx context.Context, req PaymentRequest) (PaymentResult, error)
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal, currency string) (string, error)
}

// NewPaymentGateway builds the gateway named by name: mock, stripe or
// razorpay.
func NewPaymentGateway(name string, client *http.Client) (PaymentGateway, error) {
	switch strings.ToLower(name) {
	case "", "mock":
		return NewMockGateway(config.MockPaymentDelay(), nil), nil
	case "stripe":
		key := config.StripeSecretKey()
		if key == "" {
			return nil, fmt.Errorf("payment: STRIPE_SECRET_KEY is required for the stripe gateway")
		}
		return NewStripeGateway(client, config.StripeBaseURL(), key), nil
	case "razorpay":
		id, secret := config.RazorpayKeyID(), config.RazorpayKeySecret()
		if id == "" || secret == "" {
			return nil, fmt.Errorf("payment: RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required for the razorpay gateway")
		}
		return NewRazorpayGateway(client, config.RazorpayBaseURL(), id, secret), nil
	}
	return nil, fmt.Errorf("payment: unknown gateway %q", name)
}

// minorUnits converts an amount to the smallest currency unit.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func declined(reason string) error {
	return &models.PaymentError{Declined: true, Reason: reason}
}

func gatewayError(gateway string, err error) error {
	return &models.PaymentError{Reason: gateway + " request failed", Err: err}
}
