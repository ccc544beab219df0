// Package router registers the HTTP routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bike-marketplace/internal/handler"
	"github.com/iliyamo/bike-marketplace/internal/metrics"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Health  *handler.HealthHandler
	Public  *handler.PublicHandler
	Listing *handler.ListingHandler
	Buyer   *handler.BuyerHandler
	Seller  *handler.SellerHandler
	Admin   *handler.AdminHandler
}

// Middleware holds the route scoped middleware built in main.  Nil entries
// are skipped.
type Middleware struct {
	CountRequests echo.MiddlewareFunc   // every /api request
	RateLimit     echo.MiddlewareFunc   // every /api request
	Sweep         echo.MiddlewareFunc   // mutating /api routes
	Admin         []echo.MiddlewareFunc // identity then allow-list
	BlobCache     echo.MiddlewareFunc   // public blob reads
}

// Register mounts all routes.
func Register(e *echo.Echo, h Handlers, mw Middleware, metricsEnabled bool) {
	RegisterRoutes(e, h.Health, metricsEnabled)
	RegisterPublic(e, h.Public, mw)

	// RateLimit runs before every route's Sweep; throttled requests never sweep.
	api := e.Group("/api", compact(mw.CountRequests, mw.RateLimit)...)
	RegisterSeller(api, h.Listing, h.Buyer, h.Seller, mw)
	RegisterAdmin(api, h.Admin, mw)
}

// RegisterRoutes mounts the probes and, when enabled, /metrics.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler, metricsEnabled bool) {
	e.GET("/healthz", h.Health)
	e.GET("/readyz", h.Ready)
	if metricsEnabled {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}
}

// RegisterPublic serves the snapshot and images straight from the blob
// store for deployments without a CDN.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, mw Middleware) {
	cache := compact(mw.BlobCache)
	e.GET("/snapshots/listings.json", p.Snapshot, cache...)
	e.GET("/img/*", p.Image, cache...)
}

func compact(fns ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(fns))
	for _, f := range fns {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}
