package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a site, user, order, block or product
	// does not exist. Callers treat it as a normal outcome, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when a user acts on a site they do not own.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthenticated is returned when a request carries no valid session.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrStaleVersion is returned when a save targets an out-of-date version.
	ErrStaleVersion = errors.New("site was modified by another session")

	// ErrCheckoutInFlight rejects a second checkout of a cart whose payment
	// has not finished yet.
	ErrCheckoutInFlight = errors.New("checkout already in progress")
)

// ValidationError carries field-level messages, keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(kv ...string) *ValidationError {
	v := &ValidationError{Fields: make(map[string]string, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Fields[kv[i]] = kv[i+1]
	}
	return v
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// PaymentError reports a payment that did not succeed. Declined is true when
// the gateway answered and refused; false means the gateway could not be
// reached or answered with something we could not use.
type PaymentError struct {
	Declined bool
	Reason   string
	Err      error
}

func (e *PaymentError) Error() string {
	if e.Declined {
		return "payment declined: " + e.Reason
	}
	if e.Err != nil {
		return fmt.Sprintf("payment gateway error: %v", e.Err)
	}
	return "payment gateway error: " + e.Reason
}

func (e *PaymentError) Unwrap() error { return e.Err }

// StorageError wraps an infrastructure failure of the persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError unless it is nil or a domain sentinel
// that must stay visible to callers.
func Storage(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrStaleVersion) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
