// Package kernel builds the HTTP handler: the global middleware stack in
// front of the API route table.
package kernel

import (
	"net/http"
	"time"

	"github.com/developlogy/sitebuilder/app/routes"
	"github.com/developlogy/sitebuilder/config"
	"github.com/developlogy/sitebuilder/pkg/metrics"
	"github.com/developlogy/sitebuilder/pkg/middleware"
	"github.com/developlogy/sitebuilder/pkg/reqid"
	"github.com/developlogy/sitebuilder/pkg/router"
)

// NewRouter returns a router with every API route mounted.
//
// Global middleware, outermost first:
//  1. Prometheus metrics, so latency covers the whole request
//  2. Recovery
//  3. Request ID, injected before anything logs
//  4. Logger
//  5. CORS
//  6. Rate limiter (RATE_LIMIT_PER_MINUTE per client IP)
func NewRouter(h routes.Controllers) *router.Router {
	r := router.New()

	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions()))
	r.Use(middleware.RateLimit(config.Int("RATE_LIMIT_PER_MINUTE", 600), time.Minute))

	routes.RegisterAPI(r, h)
	return r
}

// NewHTTPKernel is NewRouter as a plain http.Handler.
func NewHTTPKernel(h routes.Controllers) http.Handler {
	return NewRouter(h).Handler()
}
