package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bike-marketplace/internal/handler"
)

// RegisterSeller mounts the anonymous endpoints: listing writes, reports,
// buyer messages and the seller dashboard.  All of them are POSTs and run
// the retention sweep first.
func RegisterSeller(api *echo.Group, l *handler.ListingHandler, b *handler.BuyerHandler, s *handler.SellerHandler, mw Middleware) {
	sweep := compact(mw.Sweep)

	listing := api.Group("/listing", sweep...)
	listing.POST("/create", l.Create)
	listing.POST("/update-price", l.UpdatePrice)
	listing.POST("/delete", l.Delete)
	listing.POST("/report", l.Report)

	api.POST("/buyer/contact", b.Contact, sweep...)
	api.POST("/seller/open-dashboard", s.OpenDashboard, sweep...)
}
