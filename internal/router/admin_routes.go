package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bike-marketplace/internal/handler"
)

// RegisterAdmin mounts /api/admin.  Identity and the allow-list run first;
// the retention sweep then runs for every admin request, reads included.
func RegisterAdmin(api *echo.Group, a *handler.AdminHandler, mw Middleware) {
	chain := append(compact(mw.Admin...), compact(mw.Sweep)...)
	g := api.Group("/admin", chain...)

	// ---- Reads ----
	g.GET("/overview", a.Overview)
	g.GET("/report", a.Report)
	g.GET("/usage", a.Usage)

	// ---- Listings ----
	g.POST("/update-listing", a.UpdateListing)
	g.POST("/delete-listing", a.DeleteListing)
	g.POST("/reorder-listings", a.ReorderListings)
	g.POST("/set-rank", a.SetRank)

	// ---- Moderation ----
	g.POST("/block-ip", a.BlockIP)
	g.POST("/report-status", a.ReportStatus)
	g.POST("/reset-seller-token", a.ResetSellerToken)
	g.POST("/usage-override", a.UsageOverride)
}
