// Package services holds the builder's use cases: onboarding, editing,
// checkout, analytics, sign-in and export. Services depend on repository
// interfaces and an injected clock, and report failures with the sentinel
// and typed errors of package models.
package services

import (
	"time"

	"github.com/shopspring/decimal"
)

// Domain events fired on the event bus.
const (
	EventSiteSaved      = "site.saved"
	EventSiteDeleted    = "site.deleted"
	EventOrderCompleted = "order.completed"
	EventOrderFailed    = "order.failed"
	EventOrderRefunded  = "order.refunded"
	EventUserSignedIn   = "user.signed_in"
)

// SiteSaved is the payload of site.saved and site.deleted.
type SiteSaved struct {
	SiteID  string    `json:"siteId"`
	OwnerID string    `json:"ownerId"`
	Version int64     `json:"version"`
	SavedAt time.Time `json:"savedAt"`
}

// OrderEvent is the payload of the order.* events.
type OrderEvent struct {
	OrderID       string          `json:"orderId"`
	SiteID        string          `json:"siteId"`
	OwnerID       string          `json:"ownerId,omitempty"`
	CustomerEmail string          `json:"customerEmail"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	TransactionID string          `json:"transactionId,omitempty"`
	Reason        string          `json:"reason,omitempty"`
}

// SignedIn is the payload of user.signed_in.
type SignedIn struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	New    bool   `json:"new"`
}

// Clock returns the current time.
type Clock func() time.Time

func clockOr(c Clock) Clock {
	if c == nil {
		return func() time.Time { return time.Now().UTC() }
	}
	return c
}
