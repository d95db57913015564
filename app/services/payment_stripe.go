package services

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/developlogy/sitebuilder/pkg/http"
)

// StripeTestPaymentMethod is charged when checkout supplies no token.
const StripeTestPaymentMethod = "pm_card_visa"

// StripeGateway charges through the PaymentIntents API.
type StripeGateway struct {
	client  *http.Client
	baseURL string
	key     string
}

func NewStripeGateway(client *http.Client, baseURL, secretKey string) *StripeGateway {
	if client == nil {
		client = http.Default()
	}
	return &StripeGateway{client: client, baseURL: strings.TrimRight(baseURL, "/"), key: secretKey}
}

func (g *StripeGateway) Name() string { return "stripe" }

type stripeError struct {
	Error struct {
		Type        string `json:"type"`
		Code        string `json:"code"`
		DeclineCode string `json:"decline_code"`
		Message     string `json:"message"`
	} `json:"error"`
}

type stripeIntent struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

func (g *StripeGateway) Process(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	method := req.Token
	if method == "" {
		method = StripeTestPaymentMethod
	}
	form := url.Values{
		"amount":                 {strconv.FormatInt(minorUnits(req.Amount), 10)},
		"currency":               {strings.ToLower(req.Currency)},
		"payment_method":         {method},
		"confirm":                {"true"},
		"receipt_email":          {req.Customer.Email},
		"metadata[order_id]":     {req.OrderID},
		"payment_method_types[]": {"card"},
	}

	resp, err := g.client.Post(g.baseURL+"/v1/payment_intents").
		BasicAuth(g.key, "").
		IdempotencyKey(req.OrderID).
		Form(form).
		Retry(3, 250*time.Millisecond).
		Send(ctx)
	if err != nil {
		return PaymentResult{}, gatewayError("stripe", err)
	}

	if !resp.OK() {
		var se stripeError
		if resp.Decode(&se) == nil && se.Error.Type == "card_error" {
			return PaymentResult{}, declined(se.Error.Message)
		}
		return PaymentResult{}, gatewayError("stripe", resp.Throw())
	}

	var intent stripeIntent
	if err := resp.Decode(&intent); err != nil {
		return PaymentResult{}, gatewayError("stripe", err)
	}
	switch intent.Status {
	case "succeeded", "processing":
		return PaymentResult{TransactionID: intent.ID, Method: "stripe"}, nil
	case "requires_payment_method":
		reason := "card was declined"
		if intent.LastPaymentError != nil && intent.LastPaymentError.Message != "" {
			reason = intent.LastPaymentError.Message
		}
		return PaymentResult{}, declined(reason)
	}
	return PaymentResult{}, gatewayError("stripe", &paymentStatusError{gateway: "stripe", status: intent.Status})
}

func (g *StripeGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal, _ string) (string, error) {
	form := url.Values{"payment_intent": {transactionID}}
	if amount.IsPositive() {
		form.Set("amount", strconv.FormatInt(minorUnits(amount), 10))
	}
	resp, err := g.client.Post(g.baseURL+"/v1/refunds").
		BasicAuth(g.key, "").
		IdempotencyKey("refund_" + transactionID).
		Form(form).
		Retry(3, 250*time.Millisecond).
		Send(ctx)
	if err != nil {
		return "", gatewayError("stripe", err)
	}
	if err := resp.Throw(); err != nil {
		return "", gatewayError("stripe", err)
	}
	var refund struct {
		ID string `json:"id"`
	}
	if err := resp.Decode(&refund); err != nil {
		return "", gatewayError("stripe", err)
	}
	return refund.ID, nil
}

// paymentStatusError reports a gateway answer in a state checkout cannot
// complete synchronously.
type paymentStatusError struct {
	gateway string
	status  string
}

func (e *paymentStatusError) Error() string {
	return e.gateway + ": unexpected payment status " + strconv.Quote(e.status)
}
