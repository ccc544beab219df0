package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bike-marketplace/internal/utils"
)

// AdminIdentity stores the caller's admin e-mail in the context.  With a
// secret configured only a verified HS256 assertion in Cf-Access-Jwt-Assertion
// counts; otherwise the e-mail header from the access proxy is trusted as-is.
// A missing or invalid identity leaves the context empty; RequireAdmin decides
// what that means.
func AdminIdentity(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header
			var email string
			if secret != "" {
				if raw := strings.TrimSpace(h.Get(HeaderAdminJWT)); raw != "" {
					if e, err := utils.ParseIdentityAssertion(secret, raw); err == nil {
						email = e
					} else {
						c.Logger().Debugf("admin assertion rejected: %v", err)
					}
				}
			} else {
				email = strings.ToLower(strings.TrimSpace(h.Get(HeaderAdminEmail)))
			}
			if email != "" {
				c.Set(ctxAdminEmail, email)
			}
			return next(c)
		}
	}
}
