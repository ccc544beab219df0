package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bike-marketplace/internal/service"
)

// RequireAdmin rejects callers whose identity is not in allow.  An empty
// allow-list admits every caller, which is the local development mode.
// It must run after AdminIdentity.
func RequireAdmin(allow []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !service.AllowAdmin(allow, AdminEmail(c)) {
				return c.JSON(http.StatusForbidden, echo.Map{"ok": false, "error": service.MsgForbidden})
			}
			return next(c)
		}
	}
}
