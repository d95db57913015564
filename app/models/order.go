package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of an order's payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:   {PaymentCompleted, PaymentFailed},
	PaymentCompleted: {PaymentRefunded},
}

// CanTransition reports whether an order may move from s to next.
func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

type CustomerInfo struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone,omitempty"`
	Address Address `json:"address"`
}

// DefaultCountry fills an empty address country.
const DefaultCountry = "US"

// Normalize trims every field and applies the default country.
func (c CustomerInfo) Normalize() CustomerInfo {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = NormalizeEmail(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address.Street = strings.TrimSpace(c.Address.Street)
	c.Address.City = strings.TrimSpace(c.Address.City)
	c.Address.State = strings.TrimSpace(c.Address.State)
	c.Address.ZipCode = strings.TrimSpace(c.Address.ZipCode)
	c.Address.Country = strings.TrimSpace(c.Address.Country)
	if c.Address.Country == "" {
		c.Address.Country = DefaultCountry
	}
	return c
}

// Validate requires name, email, street, city, state and zip code.
func (c CustomerInfo) Validate() error {
	v := NewValidationError()
	required := []struct{ field, value string }{
		{"name", c.Name},
		{"email", c.Email},
		{"address.street", c.Address.Street},
		{"address.city", c.Address.City},
		{"address.state", c.Address.State},
		{"address.zipCode", c.Address.ZipCode},
	}
	for _, r := range required {
		if r.value == "" {
			v.Fields[r.field] = "is required"
		}
	}
	if c.Email != "" && !ValidEmail(c.Email) {
		v.Fields["email"] = "must be a valid email address"
	}
	if len(v.Fields) > 0 {
		return v
	}
	return nil
}

// Order is the snapshot of a checked-out cart and its payment outcome.
type Order struct {
	ID            string          `json:"id"`
	SiteID        string          `json:"siteId"`
	UserID        string          `json:"userId,omitempty"`
	Items         []CartItem      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	CustomerInfo  CustomerInfo    `json:"customerInfo"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	PaymentMethod string          `json:"paymentMethod"`
	TransactionID string          `json:"transactionId,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Transition moves the order to next, refusing anything the payment
// lifecycle does not allow.
func (o *Order) Transition(next PaymentStatus, now time.Time) error {
	if !o.PaymentStatus.CanTransition(next) {
		return fmt.Errorf("order %s: cannot move from %s to %s: %w",
			o.ID, o.PaymentStatus, next, NewValidationError("paymentStatus", "invalid transition"))
	}
	o.PaymentStatus = next
	o.UpdatedAt = now
	return nil
}
