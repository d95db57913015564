package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/developlogy/sitebuilder/pkg/http"
)

// RazorpayGateway creates a Razorpay order for the checkout and captures the
// payment the client authorised against it.
type RazorpayGateway struct {
	client  *http.Client
	baseURL string
	keyID   string
	secret  string
}

func NewRazorpayGateway(client *http.Client, baseURL, keyID, secret string) *RazorpayGateway {
	if client == nil {
		client = http.Default()
	}
	return &RazorpayGateway{client: client, baseURL: strings.TrimRight(baseURL, "/"), keyID: keyID, secret: secret}
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Reason      string `json:"reason"`
	} `json:"error"`
}

func (g *RazorpayGateway) post(ctx context.Context, path string, body any, key string) (*http.Response, error) {
	return g.client.Post(g.baseURL+path).
		BasicAuth(g.keyID, g.secret).
		IdempotencyKey(key).
		JSON(body).
		Retry(3, 250*time.Millisecond).
		Send(ctx)
}

func (g *RazorpayGateway) Process(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	if req.Token == "" {
		return PaymentResult{}, declined("razorpay payment id is required")
	}
	amount := minorUnits(req.Amount)

	resp, err := g.post(ctx, "/v1/orders", map[string]any{
		"amount":   amount,
		"currency": strings.ToUpper(req.Currency),
		"receipt":  req.OrderID,
	}, req.OrderID)
	if err != nil {
		return PaymentResult{}, gatewayError("razorpay", err)
	}
	if err := resp.Throw(); err != nil {
		return PaymentResult{}, gatewayError("razorpay", err)
	}

	resp, err = g.post(ctx, "/v1/payments/"+req.Token+"/capture", map[string]any{
		"amount":   amount,
		"currency": strings.ToUpper(req.Currency),
	}, "capture_"+req.OrderID)
	if err != nil {
		return PaymentResult{}, gatewayError("razorpay", err)
	}
	if resp.StatusCode == 400 {
		var re razorpayError
		if resp.Decode(&re) == nil && re.Error.Code == "BAD_REQUEST_ERROR" {
			return PaymentResult{}, declined(re.Error.Description)
		}
	}
	if err := resp.Throw(); err != nil {
		return PaymentResult{}, gatewayError("razorpay", err)
	}

	var payment struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := resp.Decode(&payment); err != nil {
		return PaymentResult{}, gatewayError("razorpay", err)
	}
	if payment.Status != "captured" {
		return PaymentResult{}, declined("payment " + payment.Status)
	}
	return PaymentResult{TransactionID: payment.ID, Method: "razorpay"}, nil
}

func (g *RazorpayGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal, _ string) (string, error) {
	body := map[string]any{}
	if amount.IsPositive() {
		body["amount"] = minorUnits(amount)
	}
	resp, err := g.post(ctx, "/v1/payments/"+transactionID+"/refund", body, "refund_"+transactionID)
	if err != nil {
		return "", gatewayError("razorpay", err)
	}
	if err := resp.Throw(); err != nil {
		return "", gatewayError("razorpay", err)
	}
	var refund struct {
		ID string `json:"id"`
	}
	if err := resp.Decode(&refund); err != nil {
		return "", gatewayError("razorpay", err)
	}
	return refund.ID, nil
}
