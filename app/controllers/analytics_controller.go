package controllers

import (
	"net/http"
	"time"

	"github.com/developlogy/sitebuilder/app/services"
	"github.com/developlogy/sitebuilder/pkg/ctx"
	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/sse"
)

type AnalyticsController struct {
	analytics *services.AnalyticsService
	interval  time.Duration
}

// NewAnalyticsController streams live stats every interval (5s when zero).
func NewAnalyticsController(analytics *services.AnalyticsService, interval time.Duration) *AnalyticsController {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &AnalyticsController{analytics: analytics, interval: interval}
}

// Track is called by published pages. It answers 202 because the event is
// stored asynchronously.
func (ac *AnalyticsController) Track(c *ctx.Context) {
	var in services.TrackInput
	if !c.BindJSON(&in) {
		return
	}
	e, err := ac.analytics.Track(c.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, map[string]any{"status": http.StatusAccepted, "data": map[string]string{"id": e.ID}})
}

func (ac *AnalyticsController) Stats(c *ctx.Context) {
	stats, err := ac.analytics.Stats(c.Context(), c.UserID(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(stats)
}

// Events lists raw events, filtered by the RFC 3339 ?from= and ?to= bounds.
func (ac *AnalyticsController) Events(c *ctx.Context) {
	bounds := map[string]time.Time{}
	for _, key := range []string{"from", "to"} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.ValidationError(map[string]string{key: "must be an RFC 3339 timestamp"})
			return
		}
		bounds[key] = t
	}
	events, err := ac.analytics.Events(c.Context(), c.UserID(), c.Param("id"), bounds["from"], bounds["to"])
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(map[string]any{"items": events, "total": len(events)})
}

func (ac *AnalyticsController) Purge(c *ctx.Context) {
	if err := ac.analytics.Purge(c.Context(), c.UserID(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Message("Analytics deleted")
}

// Stream pushes a "stats" event every interval until the client goes away.
func (ac *AnalyticsController) Stream(c *ctx.Context) {
	userID, siteID := c.UserID(), c.Param("id")
	// Fail before switching to text/event-stream so errors keep the envelope.
	if _, err := ac.analytics.Stats(c.Context(), userID, siteID); err != nil {
		respondError(c, err)
		return
	}

	stream, err := sse.New(c.W, c.R)
	if err != nil {
		c.Error(http.StatusInternalServerError, err.Error())
		return
	}
	err = stream.Every(c.Context(), ac.interval, func() error {
		stats, err := ac.analytics.Stats(c.Context(), userID, siteID)
		if err != nil {
			return err
		}
		return stream.Send("stats", stats)
	})
	if err != nil && c.Context().Err() == nil {
		logger.WithCtx(c.Context()).Warn("analytics stream ended", "site_id", siteID, "error", err)
	}
}
