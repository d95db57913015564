package controllers

import (
	"github.com/developlogy/sitebuilder/app/listeners"
	"github.com/developlogy/sitebuilder/app/services"
	"github.com/developlogy/sitebuilder/pkg/ctx"
	"github.com/developlogy/sitebuilder/pkg/ws"
)

// NotificationController upgrades builder connections to WebSocket and
// subscribes them to the site's topic.
type NotificationController struct {
	sites *services.SiteService
	hub   *ws.Hub
}

func NewNotificationController(sites *services.SiteService, hub *ws.Hub) *NotificationController {
	return &NotificationController{sites: sites, hub: hub}
}

func (nc *NotificationController) Connect(c *ctx.Context) {
	siteID := c.Param("siteId")
	if _, err := nc.sites.Get(c.Context(), c.UserID(), siteID); err != nil {
		respondError(c, err)
		return
	}
	// Upgrade answers the handshake error itself.
	_ = ws.Upgrade(c.W, c.R, nc.hub, listeners.Topic(siteID))
}
