// Package jobs holds the background jobs run by the queue workers. Each job
// is JSON-encoded on dispatch, so its exported fields are its payload.
package jobs

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/developlogy/sitebuilder/pkg/mail"
	"github.com/developlogy/sitebuilder/pkg/queue"
)

// Register makes the job types known to m so its workers can decode them.
func Register(m *queue.Manager) {
	m.Register(func() queue.Job { return &SendMagicLink{} })
	m.Register(func() queue.Job { return &SendOrderReceipt{} })
}

var magicLinkTemplate = template.Must(template.New("magic-link").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Inter, sans-serif; color: #1F2937;">
  <h1 style="color: #D97706;">Sign in to Developlogy</h1>
  <p>Click the button below to sign in. The link expires in {{.Minutes}} minutes and can be used once.</p>
  <p><a href="{{.Link}}" style="background: #D97706; color: #ffffff; padding: 12px 24px; border-radius: 6px; text-decoration: none;">Sign in</a></p>
  <p>Or enter this code: <strong style="font-size: 20px; letter-spacing: 4px;">{{.Code}}</strong></p>
  <p style="color: #6B7280; font-size: 12px;">If you did not ask to sign in, you can ignore this email.</p>
</body>
</html>`))

// SendMagicLink mails a sign-in link and its one-time code.
type SendMagicLink struct {
	Email     string    `json:"email"`
	Link      string    `json:"link"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (j *SendMagicLink) Handle(ctx context.Context) error {
	minutes := 15
	if !j.ExpiresAt.IsZero() {
		if left := int(time.Until(j.ExpiresAt).Round(time.Minute) / time.Minute); left > 0 {
			minutes = left
		}
	}
	msg := mail.To(j.Email).
		WithSubject("Your Developlogy sign-in link").
		Template(magicLinkTemplate, map[string]any{"Link": j.Link, "Code": j.Code, "Minutes": minutes})
	if err := mail.Default().Send(ctx, msg); err != nil {
		return fmt.Errorf("send magic link: %w", err)
	}
	return nil
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Inter, sans-serif; color: #1F2937;">
  <h1>Thank you for your order, {{.Name}}!</h1>
  <p>Order <strong>{{.OrderID}}</strong> from {{.SiteName}} is confirmed.</p>
  <table style="border-collapse: collapse;">
  {{range .Items}}<tr><td style="padding: 4px 12px 4px 0;">{{.Quantity}} × {{.Name}}</td><td style="text-align: right;">${{.Price}}</td></tr>
  {{end}}<tr><td style="padding-top: 8px;"><strong>Total</strong></td><td style="padding-top: 8px; text-align: right;"><strong>${{.Total}}</strong></td></tr>
  </table>
  {{if .TransactionID}}<p style="color: #6B7280; font-size: 12px;">Transaction {{.TransactionID}}</p>{{end}}
</body>
</html>`))

// ReceiptLine is one order line of a receipt.
type ReceiptLine struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// SendOrderReceipt mails the customer of a completed order.
type SendOrderReceipt struct {
	OrderID       string          `json:"orderId"`
	SiteName      string          `json:"siteName"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail"`
	Items         []ReceiptLine   `json:"items"`
	Total         decimal.Decimal `json:"total"`
	TransactionID string          `json:"transactionId"`
}

type receiptLineView struct {
	Name     string
	Quantity int
	Price    string
}

func (j *SendOrderReceipt) Handle(ctx context.Context) error {
	lines := make([]receiptLineView, 0, len(j.Items))
	for _, item := range j.Items {
		lines = append(lines, receiptLineView{Name: item.Name, Quantity: item.Quantity, Price: item.Price.StringFixed(2)})
	}
	msg := mail.To(j.CustomerEmail).
		WithSubject("Your order from " + j.SiteName).
		Template(receiptTemplate, map[string]any{
			"Name":          j.CustomerName,
			"OrderID":       j.OrderID,
			"SiteName":      j.SiteName,
			"Items":         lines,
			"Total":         j.Total.StringFixed(2),
			"TransactionID": j.TransactionID,
		})
	if err := mail.Default().Send(ctx, msg); err != nil {
		return fmt.Errorf("send order receipt %s: %w", j.OrderID, err)
	}
	return nil
}
