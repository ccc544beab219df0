package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/form"
	"github.com/iliyamo/bike-marketplace/internal/service"
	"github.com/iliyamo/bike-marketplace/internal/usage"
)

// AdminHandler serves /api/admin.  Identity and the allow-list are
// enforced by middleware before any of these run.
type AdminHandler struct {
	Admin    *service.Admin
	Listings *service.Listings
	Reports  *service.Reports
	Limits   config.Limits
	Log      *zap.SugaredLogger
}

func NewAdminHandler(admin *service.Admin, listings *service.Listings, reports *service.Reports, lim config.Limits, log *zap.SugaredLogger) *AdminHandler {
	if admin == nil || listings == nil || reports == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Admin: admin, Listings: listings, Reports: reports, Limits: lim, Log: orNop(log)}
}

// ----- DTOs -----

type listingIDReq struct {
	ListingID string `json:"listing_id"`
}

type reorderReq struct {
	ListingIDs any `json:"listing_ids"`
}

type setRankReq struct {
	ListingID *string `json:"listing_id"`
	Rank      any     `json:"rank"`
}

type blockIPReq struct {
	IPHash string `json:"ip_hash"`
	IP     string `json:"ip"`
	Reason string `json:"reason"`
}

type reportStatusReq struct {
	ReportID string `json:"report_id"`
	Status   string `json:"status"`
}

type resetTokenReq struct {
	SellerID  string `json:"seller_id"`
	ListingID string `json:"listing_id"`
}

type overrideReq struct {
	Enabled any `json:"enabled"`
}

type usageResp struct {
	OK bool `json:"ok"`
	usage.Summary
}

// Overview lists every listing, message and report.
func (h *AdminHandler) Overview(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	ov, err := h.Admin.Overview(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, echo.Map{"listings": ov.Listings, "contacts": ov.Contacts, "reports": ov.Reports})
}

// UpdateListing applies a full multipart edit.  New files replace the
// stored images; clear_images drops them when no files are sent.
func (h *AdminHandler) UpdateListing(c echo.Context) error {
	v, err := parseForm(c, h.Limits)
	if err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidForm)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	err = h.Listings.AdminUpdate(ctx, service.AdminUpdateInput{
		ListingID:   v.Text("listing_id"),
		Fields:      listingInput(v),
		Images:      v.Files("images"),
		ClearImages: parseFlag(v.Text("clear_images")),
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, nil)
}

// DeleteListing removes any listing.
func (h *AdminHandler) DeleteListing(c echo.Context) error {
	var req listingIDReq
	if err := form.DecodeJSON(c.Request(), &req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidJSON)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	gone, err := h.Listings.AdminDelete(ctx, req.ListingID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if gone {
		return ok(c, echo.Map{"already_deleted": true})
	}
	return ok(c, nil)
}

// ReorderListings ranks listing_ids so the first is shown first.
func (h *AdminHandler) ReorderListings(c echo.Context) error {
	var req reorderReq
	if err := form.DecodeJSON(c.Request(), &req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidJSON)
	}
	raw, isList := req.ListingIDs.([]any)
	if !isList {
		return fail(c, http.StatusBadRequest, "listing_ids array required.")
	}
	ids := make([]string, 0, len(raw))
	for _, it := range raw {
		ids = append(ids, scalarString(it))
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	n, err := h.Listings.Reorder(ctx, ids)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, echo.Map{"updated": n})
}

// SetRank assigns a single rank.
func (h *AdminHandler) SetRank(c echo.Context) error {
	var req setRankReq
	if err := form.DecodeJSON(c.Request(), &req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidJSON)
	}
	if req.ListingID == nil || req.Rank == nil {
		return fail(c, http.StatusBadRequest, "Missing rank or listing id.")
	}
	rank, valid := parseRank(req.Rank)
	if !valid {
		return fail(c, http.StatusBadRequest, "Invalid rank.")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Listings.SetRank(ctx, *req.ListingID, rank); err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, nil)
}

func parseRank(v any) (int64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(math.Trunc(f)), true
}

// BlockIP denylists a hash or a raw address.
func (h *AdminHandler) BlockIP(c echo.Context) error {
	var req blockIPReq
	if err := form.DecodeJSON(c.Request(), &req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidJSON)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Admin.BlockIP(ctx, req.IPHash, req.IP, req.Reason); err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, nil)
}

// Report returns one report and marks an open one as under review.
func (h *AdminHandler) Report(c echo.Context) error {
	id := strings.TrimSpace(c.QueryParam("report_id"))
	if id == "" {
		return fail(c, http.StatusBadRequest, "report_id is required.")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	rep, err := h.Reports.View(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, echo.Map{"report": rep})
}

// ReportStatus moves a report forward.
func (h *AdminHandler) ReportStatus(c echo.Context) error {
	var req reportStatusReq
	if err := form.DecodeJSON(c.Request(), &req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidJSON)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	noChange, err := h.Reports.SetStatus(ctx, req.ReportID, req.Status)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if noChange {
		return ok(c, echo.Map{"no_change": true})
	}
	return ok(c, nil)
}

// ResetSellerToken issues a new token to a seller found by id or by one
// of their listings.  The token is only ever returned here.
func (h *AdminHandler) ResetSellerToken(c echo.Context) error {
	var req resetTokenReq
	if err := form.DecodeJSON(c.Request(), &req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidJSON)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	sellerID, token, err := h.Admin.ResetSellerToken(ctx, req.SellerID, req.ListingID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, echo.Map{"seller_id": sellerID, "seller_token": token})
}

// Usage returns the monthly usage summary.
func (h *AdminHandler) Usage(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	s, err := h.Admin.Usage(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, usageResp{OK: true, Summary: s})
}

// UsageOverride toggles the quota override and returns the new summary.
func (h *AdminHandler) UsageOverride(c echo.Context) error {
	var req overrideReq
	if err := form.DecodeJSON(c.Request(), &req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidJSON)
	}
	enabled, isBool := req.Enabled.(bool)
	if !isBool {
		return fail(c, http.StatusBadRequest, "enabled must be true or false.")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	s, err := h.Admin.SetOverride(ctx, enabled)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, usageResp{OK: true, Summary: s})
}
