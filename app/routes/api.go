// Package routes maps the HTTP API onto the controllers.
package routes

import (
	"net/http"
	"time"

	"github.com/developlogy/sitebuilder/app/controllers"
	"github.com/developlogy/sitebuilder/pkg/ctx"
	"github.com/developlogy/sitebuilder/pkg/metrics"
	"github.com/developlogy/sitebuilder/pkg/middleware"
	"github.com/developlogy/sitebuilder/pkg/router"
	"github.com/developlogy/sitebuilder/pkg/session"
)

// Controllers is everything the route table dispatches to.
type Controllers struct {
	Auth          *controllers.AuthController
	Sites         *controllers.SiteController
	Builder       *controllers.BuilderController
	Store         *controllers.StoreController
	Orders        *controllers.OrderController
	Analytics     *controllers.AnalyticsController
	Public        *controllers.PublicController
	Notifications *controllers.NotificationController
	GraphQL       http.HandlerFunc

	// Revoked is consulted by the auth middleware; nil accepts every valid
	// token.
	Revoked middleware.RevocationList
	// Sessions configures the storefront cart cookie.
	Sessions session.Options
}

func RegisterAPI(r *router.Router, h Controllers) {
	authed := middleware.Auth(h.Revoked)

	r.Get("/health", "health", ctx.Wrap(h.Public.Health))
	r.Get("/metrics", "metrics", metrics.Handler())
	r.Get("/preview/{id}", "preview", ctx.Wrap(h.Public.Preview))
	r.Get("/sitemap.xml", "sitemap", ctx.Wrap(h.Public.Sitemap))
	r.Get("/ws/builder/{siteId}", "ws.builder", ctx.Wrap(h.Notifications.Connect), authed)
	if h.GraphQL != nil {
		r.Post("/graphql", "graphql", h.GraphQL, authed)
	}

	api := r.Group("/api")

	// Sign-in
	a := api.Group("/auth")
	a.Post("/magic-link", "auth.magic-link", ctx.Wrap(h.Auth.RequestLink), middleware.RateLimit(5, time.Minute))
	a.Post("/verify", "auth.verify", ctx.Wrap(h.Auth.Verify), middleware.RateLimit(20, time.Minute))
	a.Post("/verify-code", "auth.verify-code", ctx.Wrap(h.Auth.VerifyCode), middleware.RateLimit(10, time.Minute))
	a.Get("/me", "auth.me", ctx.Wrap(h.Auth.Me), authed)
	a.Post("/logout", "auth.logout", ctx.Wrap(h.Auth.Logout), authed)

	// Public catalogue and published-site endpoints
	api.Get("/industries", "industries", ctx.Wrap(h.Sites.Industries))
	api.Get("/templates", "templates", ctx.Wrap(h.Sites.Templates))
	api.Get("/sitemap/{siteId}", "seo.sitemap", ctx.Wrap(h.Public.SiteSitemap))
	api.Get("/robots/{siteId}", "seo.robots", ctx.Wrap(h.Public.Robots))
	api.Get("/og/{siteId}", "seo.og", ctx.Wrap(h.Public.OGImage))
	api.Post("/analytics/track", "analytics.track", ctx.Wrap(h.Analytics.Track), middleware.RateLimit(600, time.Minute))

	// Storefront, keyed by the visitor's session cookie
	store := api.Group("/store/{siteId}", session.Middleware(h.Sessions))
	store.Get("/products", "store.products", ctx.Wrap(h.Store.Products))
	store.Get("/cart", "store.cart", ctx.Wrap(h.Store.Cart))
	store.Post("/cart", "store.cart.add", ctx.Wrap(h.Store.AddToCart))
	store.Patch("/cart/{productId}", "store.cart.update", ctx.Wrap(h.Store.UpdateQuantity))
	store.Delete("/cart/{productId}", "store.cart.remove", ctx.Wrap(h.Store.RemoveItem))
	store.Delete("/cart", "store.cart.clear", ctx.Wrap(h.Store.ClearCart))
	store.Post("/checkout", "store.checkout", ctx.Wrap(h.Store.Checkout), middleware.RateLimit(10, time.Minute))

	// Signed-in owner
	owner := api.Group("", authed)
	owner.Post("/onboarding", "onboarding", ctx.Wrap(h.Sites.Onboard))

	sites := owner.Group("/sites")
	sites.Get("", "sites.index", ctx.Wrap(h.Sites.Index))
	sites.Get("/{id}", "sites.show", ctx.Wrap(h.Sites.Show))
	sites.Put("/{id}", "sites.update", ctx.Wrap(h.Sites.Update))
	sites.Delete("/{id}", "sites.destroy", ctx.Wrap(h.Sites.Destroy))
	sites.Post("/{id}/export", "sites.export", ctx.Wrap(h.Sites.Export))
	sites.Get("/{id}/seo/validate", "sites.seo", ctx.Wrap(h.Sites.ValidateSEO))
	sites.Get("/{id}/analytics", "analytics.stats", ctx.Wrap(h.Analytics.Stats))
	sites.Get("/{id}/analytics/events", "analytics.events", ctx.Wrap(h.Analytics.Events))
	sites.Delete("/{id}/analytics", "analytics.purge", ctx.Wrap(h.Analytics.Purge))
	sites.Get("/{id}/analytics/stream", "analytics.stream", ctx.Wrap(h.Analytics.Stream))

	b := owner.Group("/builder/{id}")
	b.Post("/open", "builder.open", ctx.Wrap(h.Builder.Open))
	b.Get("", "builder.show", ctx.Wrap(h.Builder.Show))
	b.Post("/blocks", "builder.blocks.add", ctx.Wrap(h.Builder.AddBlock))
	b.Patch("/blocks/{blockId}", "builder.blocks.update", ctx.Wrap(h.Builder.UpdateBlock))
	b.Delete("/blocks/{blockId}", "builder.blocks.delete", ctx.Wrap(h.Builder.DeleteBlock))
	b.Post("/blocks/{blockId}/select", "builder.blocks.select", ctx.Wrap(h.Builder.SelectBlock))
	b.Post("/reorder", "builder.reorder", ctx.Wrap(h.Builder.Reorder))
	b.Patch("/theme", "builder.theme", ctx.Wrap(h.Builder.UpdateTheme))
	b.Patch("/seo", "builder.seo", ctx.Wrap(h.Builder.UpdateSEO))
	b.Post("/blocks/{blockId}/products", "builder.products.add", ctx.Wrap(h.Builder.AddProduct))
	b.Patch("/blocks/{blockId}/products/{productId}", "builder.products.update", ctx.Wrap(h.Builder.UpdateProduct))
	b.Delete("/blocks/{blockId}/products/{productId}", "builder.products.remove", ctx.Wrap(h.Builder.RemoveProduct))
	b.Post("/save", "builder.save", ctx.Wrap(h.Builder.Save))
	b.Get("/render", "builder.render", ctx.Wrap(h.Builder.Render))

	orders := owner.Group("/orders")
	orders.Get("", "orders.index", ctx.Wrap(h.Orders.Index))
	orders.Get("/{id}", "orders.show", ctx.Wrap(h.Orders.Show))
	orders.Post("/{id}/refund", "orders.refund", ctx.Wrap(h.Orders.Refund))
}
