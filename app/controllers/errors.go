package controllers

import (
	"errors"
	"net/http"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/pkg/ctx"
	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/response"
	"github.com/developlogy/sitebuilder/pkg/workerpool"
)

// statusOf maps a service error to its HTTP status.
func statusOf(err error) int {
	var ve *models.ValidationError
	var pe *models.PaymentError
	var se *models.StorageError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.As(err, &pe):
		if pe.Declined {
			return http.StatusPaymentRequired
		}
		return http.StatusBadGateway
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrStaleVersion), errors.Is(err, models.ErrCheckoutInFlight):
		return http.StatusConflict
	case errors.Is(err, workerpool.ErrPoolFull):
		return http.StatusTooManyRequests
	case errors.As(err, &se):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the envelope for err. Internal errors are logged and
// answered with a generic message.
func respondError(c *ctx.Context, err error) {
	status := statusOf(err)

	var ve *models.ValidationError
	if errors.As(err, &ve) {
		c.ValidationError(ve.Fields)
		return
	}
	var pe *models.PaymentError
	if errors.As(err, &pe) && pe.Declined {
		c.Error(status, pe.Reason)
		return
	}

	switch {
	case status >= 500:
		logger.WithCtx(c.Context()).Error("request failed", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
		c.Error(status, http.StatusText(status))
	default:
		c.Error(status, err.Error())
	}
}

// respondWith writes an envelope carrying both data and an error message,
// used when a failed operation still produced a record (a declined order).
func respondWith(c *ctx.Context, err error, data any) {
	status := statusOf(err)
	msg := err.Error()
	var pe *models.PaymentError
	if errors.As(err, &pe) && pe.Declined {
		msg = pe.Reason
	}
	c.JSON(status, response.Envelope{Status: status, Message: msg, Data: data})
}
