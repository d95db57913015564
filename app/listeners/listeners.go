// Package listeners subscribes the side effects of domain events to the bus:
// live editor notifications, broker fan-out, receipt mail and editor
// session cleanup.
package listeners

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/developlogy/sitebuilder/app/jobs"
	"github.com/developlogy/sitebuilder/app/repositories"
	"github.com/developlogy/sitebuilder/app/services"
	"github.com/developlogy/sitebuilder/pkg/broker"
	"github.com/developlogy/sitebuilder/pkg/event"
	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/ws"
)

// Deps are the collaborators the listeners push to. Nil fields switch the
// matching listener off.
type Deps struct {
	Hub       *ws.Hub
	Publisher broker.Publisher
	Jobs      services.Dispatcher
	Orders    repositories.OrderRepository
	Sites     repositories.SiteRepository
	Editors   *services.EditorRegistry
}

// Notification is the message sent to editors watching a site.
type Notification struct {
	Type    string `json:"type"`
	SiteID  string `json:"siteId"`
	Version int64  `json:"version,omitempty"`
}

// Topic is the WebSocket topic of a site.
func Topic(siteID string) string { return "site:" + siteID }

// Register subscribes every listener to bus.
func Register(bus *event.Bus, d Deps) {
	if d.Hub != nil {
		bus.Listen(services.EventSiteSaved, notifyEditors(d.Hub, services.EventSiteSaved))
		bus.Listen(services.EventSiteDeleted, notifyEditors(d.Hub, services.EventSiteDeleted))
	}
	if d.Editors != nil {
		bus.Listen(services.EventSiteDeleted, func(_ context.Context, payload any) error {
			if e, ok := payload.(services.SiteSaved); ok {
				d.Editors.CloseSite(e.SiteID)
			}
			return nil
		})
	}
	if d.Jobs != nil && d.Orders != nil && d.Sites != nil {
		bus.Listen(services.EventOrderCompleted, sendReceipt(d))
	}
	if d.Publisher != nil {
		for _, name := range []string{
			services.EventSiteSaved,
			services.EventSiteDeleted,
			services.EventOrderCompleted,
			services.EventOrderFailed,
			services.EventOrderRefunded,
			services.EventUserSignedIn,
		} {
			bus.Listen(name, publish(d.Publisher, name))
		}
	}
}

func notifyEditors(hub *ws.Hub, name string) event.Handler {
	return func(_ context.Context, payload any) error {
		e, ok := payload.(services.SiteSaved)
		if !ok {
			return fmt.Errorf("listeners: %s: unexpected payload %T", name, payload)
		}
		msg, err := json.Marshal(Notification{Type: name, SiteID: e.SiteID, Version: e.Version})
		if err != nil {
			return err
		}
		hub.Publish(Topic(e.SiteID), msg)
		return nil
	}
}

func publish(p broker.Publisher, name string) event.Handler {
	return func(ctx context.Context, payload any) error {
		return p.Publish(ctx, name, payload)
	}
}

func sendReceipt(d Deps) event.Handler {
	return func(ctx context.Context, payload any) error {
		e, ok := payload.(services.OrderEvent)
		if !ok {
			return fmt.Errorf("listeners: receipt: unexpected payload %T", payload)
		}
		order, err := d.Orders.Find(ctx, e.OrderID)
		if err != nil {
			return err
		}
		siteName := order.SiteID
		if site, err := d.Sites.Find(ctx, order.SiteID); err == nil {
			siteName = site.Name
		}

		lines := make([]jobs.ReceiptLine, 0, len(order.Items))
		for _, it := range order.Items {
			lines = append(lines, jobs.ReceiptLine{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
		}
		job := &jobs.SendOrderReceipt{
			OrderID:       order.ID,
			SiteName:      siteName,
			CustomerName:  order.CustomerInfo.Name,
			CustomerEmail: order.CustomerInfo.Email,
			Items:         lines,
			Total:         order.Total,
			TransactionID: order.TransactionID,
		}
		if err := d.Jobs.Dispatch(ctx, job); err != nil {
			return err
		}
		logger.WithCtx(ctx).Debug("receipt queued", "order_id", order.ID)
		return nil
	}
}
