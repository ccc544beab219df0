package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bike-marketplace/internal/form"
	"github.com/iliyamo/bike-marketplace/internal/middleware"
	"github.com/iliyamo/bike-marketplace/internal/service"
)

// SellerHandler serves the token authenticated seller dashboard.
type SellerHandler struct {
	Gate      *service.Gate
	Dashboard *service.Dashboard
	Log       *zap.SugaredLogger
}

func NewSellerHandler(gate *service.Gate, dash *service.Dashboard, log *zap.SugaredLogger) *SellerHandler {
	return &SellerHandler{Gate: gate, Dashboard: dash, Log: orNop(log)}
}

type dashboardReq struct {
	SellerToken string `json:"seller_token"`
}

// OpenDashboard returns the seller's listings and received messages.
func (h *SellerHandler) OpenDashboard(c echo.Context) error {
	var req dashboardReq
	if err := form.DecodeJSON(c.Request(), &req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidJSON)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	caller := h.Gate.Identify(middleware.ClientIP(c))
	if err := h.Gate.Admit(ctx, caller, "", service.SellerChecks); err != nil {
		return respondError(c, h.Log, err)
	}
	view, err := h.Dashboard.Open(ctx, req.SellerToken)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, echo.Map{
		"extension_applied": view.ExtensionApplied,
		"listings":          view.Listings,
		"contacts":          view.Contacts,
	})
}
