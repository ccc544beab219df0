package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/middleware"
	"github.com/iliyamo/bike-marketplace/internal/service"
	"github.com/iliyamo/bike-marketplace/internal/validation"
)

// BuyerHandler accepts messages from buyers to sellers.
type BuyerHandler struct {
	Gate     *service.Gate
	Contacts *service.Contacts
	Limits   config.Limits
	Log      *zap.SugaredLogger
}

func NewBuyerHandler(gate *service.Gate, contacts *service.Contacts, lim config.Limits, log *zap.SugaredLogger) *BuyerHandler {
	return &BuyerHandler{Gate: gate, Contacts: contacts, Limits: lim, Log: orNop(log)}
}

// Contact stores a buyer message for a live listing.
func (h *BuyerHandler) Contact(c echo.Context) error {
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
	err = h.Contacts.Submit(ctx, service.ContactInput{
		ListingID: v.Text("listing_id"),
		Fields: validation.ContactInput{
			BuyerEmail:        v.Text("buyer_email"),
			BuyerPhone:        v.Text("buyer_phone"),
			BuyerPhoneMethods: v.StringList("buyer_phone_methods_json"),
			Message:           v.Text("message"),
		},
		Caller: caller,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, nil)
}
