package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/form"
	"github.com/iliyamo/bike-marketplace/internal/middleware"
	"github.com/iliyamo/bike-marketplace/internal/service"
)

// ListingHandler serves the anonymous seller endpoints and reports.
type ListingHandler struct {
	Gate     *service.Gate
	Listings *service.Listings
	Reports  *service.Reports
	Limits   config.Limits
	Log      *zap.SugaredLogger
}

func NewListingHandler(gate *service.Gate, listings *service.Listings, reports *service.Reports, lim config.Limits, log *zap.SugaredLogger) *ListingHandler {
	if gate == nil || listings == nil || reports == nil {
		panic("nil dependency passed to NewListingHandler")
	}
	return &ListingHandler{Gate: gate, Listings: listings, Reports: reports, Limits: lim, Log: orNop(log)}
}

type updatePriceReq struct {
	SellerToken string `json:"seller_token"`
	ListingID   string `json:"listing_id"`
	NewPrice    any    `json:"new_price"`
}

type sellerListingReq struct {
	SellerToken string `json:"seller_token"`
	ListingID   string `json:"listing_id"`
}

// Create accepts the multipart listing form.
func (h *ListingHandler) Create(c echo.Context) error {
	v, err := parseForm(c, h.Limits)
	if err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidForm)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	caller := h.Gate.Identify(middleware.ClientIP(c))
	if err := h.Gate.Admit(ctx, caller, v.Text("cf_turnstile_response"), service.CreateListingChecks); err != nil {
		return respondError(c, h.Log, err)
	}
	res, err := h.Listings.Create(ctx, service.CreateInput{
		Fields:      listingInput(v),
		SellerToken: v.Text("seller_token"),
		Images:      v.Files("images"),
		Caller:      caller,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, echo.Map{"listing_id": res.ListingID, "seller_token": res.SellerToken})
}

// UpdatePrice changes the price of one of the seller's listings.
func (h *ListingHandler) UpdatePrice(c echo.Context) error {
	var req updatePriceReq
	if err := form.DecodeJSON(c.Request(), &req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidJSON)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	caller := h.Gate.Identify(middleware.ClientIP(c))
	if err := h.Gate.Admit(ctx, caller, "", service.UpdatePriceChecks); err != nil {
		return respondError(c, h.Log, err)
	}
	noChange, err := h.Listings.UpdatePrice(ctx, req.SellerToken, req.ListingID, scalarString(req.NewPrice))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if noChange {
		return ok(c, echo.Map{"no_change": true})
	}
	return ok(c, nil)
}

// Delete removes one of the seller's listings.  Deleting a listing that was
// already removed answers ok with already_deleted.
func (h *ListingHandler) Delete(c echo.Context) error {
	var req sellerListingReq
	if err := form.DecodeJSON(c.Request(), &req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidJSON)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	caller := h.Gate.Identify(middleware.ClientIP(c))
	if err := h.Gate.Admit(ctx, caller, "", service.SellerChecks); err != nil {
		return respondError(c, h.Log, err)
	}
	gone, err := h.Listings.DeleteBySeller(ctx, req.SellerToken, req.ListingID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if gone {
		return ok(c, echo.Map{"already_deleted": true})
	}
	return ok(c, nil)
}

// Report files a moderation report against any existing listing.
func (h *ListingHandler) Report(c echo.Context) error {
	v, err := parseForm(c, h.Limits)
	if err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidForm)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	caller := h.Gate.Identify(middleware.ClientIP(c))
	if err := h.Gate.Admit(ctx, caller, v.Text("cf_turnstile_response"), service.AnonymousPostChecks); err != nil {
		return respondError(c, h.Log, err)
	}
	err = h.Reports.Submit(ctx, service.ReportInput{
		ListingID: v.Text("listing_id"),
		Reason:    v.Text("reason"),
		Details:   v.Text("details"),
		Caller:    caller,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, nil)
}
