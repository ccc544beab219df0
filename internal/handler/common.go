// Package handler holds the echo handlers.  Every response is a JSON object
// carrying "ok"; failures add a user facing "error" message.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/form"
	"github.com/iliyamo/bike-marketplace/internal/service"
	"github.com/iliyamo/bike-marketplace/internal/validation"
)

const (
	msgInvalidForm = "Invalid form data."
	msgInvalidJSON = "Invalid JSON body."

	requestTimeout = 10 * time.Second
)

// ok answers 200 with ok:true merged into data.
func ok(c echo.Context, data echo.Map) error {
	body := echo.Map{"ok": true}
	for k, v := range data {
		body[k] = v
	}
	return c.JSON(http.StatusOK, body)
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"ok": false, "error": msg})
}

// respondError maps a service error to its status.  Anything that is not
// a service.Error is treated as internal and logged.
func respondError(c echo.Context, log *zap.SugaredLogger, err error) error {
	var se *service.Error
	if !errors.As(err, &se) {
		log.Errorw("unhandled error", "path", c.Path(), "error", err)
		return fail(c, http.StatusInternalServerError, service.MsgInternal)
	}
	status := statusOf(se.Kind)
	if status >= http.StatusInternalServerError {
		log.Errorw("request failed", "path", c.Path(), "error", err)
	}
	return fail(c, status, se.Message)
}

func statusOf(k service.Kind) int {
	switch k {
	case service.KindValidation, service.KindExternal:
		return http.StatusBadRequest
	case service.KindAuth:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// parseForm decodes a multipart or urlencoded body capped at the total
// upload limit plus headroom for text fields.
func parseForm(c echo.Context, lim config.Limits) (*form.Values, error) {
	maxBody := lim.MaxTotalUploadBytes + 1<<20
	r := c.Request()
	r.Body = http.MaxBytesReader(c.Response(), r.Body, maxBody)
	return form.Parse(r, maxBody)
}

// listingInput reads the listing fields shared by create and admin update.
func listingInput(v *form.Values) validation.ListingInput {
	return validation.ListingInput{
		PriceSEK:           v.Text("price_sek"),
		Brand:              v.Text("brand"),
		Type:               v.Text("type"),
		Condition:          v.Text("condition"),
		WheelSizeIn:        v.Text("wheel_size_in"),
		Location:           v.Text("location"),
		Description:        v.Text("description"),
		ContactMode:        v.Text("contact_mode"),
		Features:           v.StringList("features_json"),
		Faults:             v.StringList("faults_json"),
		CurrencyMode:       v.Text("currency_mode"),
		PaymentMethods:     v.StringList("payment_methods_json"),
		PublicEmail:        v.Text("public_email"),
		PublicPhone:        v.Text("public_phone"),
		PublicPhoneMethods: v.StringList("public_phone_methods_json"),
		DeliveryPossible:   v.Text("delivery_possible"),
		DeliveryPriceSEK:   v.Text("delivery_price_sek"),
	}
}

// parseFlag accepts 1/true/yes/on.
func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// scalarString renders a JSON scalar the way a form field would carry it.
// Non scalars become "" so validators reject them.
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func orNop(log *zap.SugaredLogger) *zap.SugaredLogger {
	if log == nil {
		return zap.NewNop().Sugar()
	}
	return log
}
