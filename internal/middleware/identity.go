package middleware

// identity.go resolves who is calling: the best-effort client address used
// for IP hashing and throttling, and the asserted admin e-mail placed in the
// context by AdminIdentity.

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// Trusted upstream headers.  The edge proxy sets these; the origin is not
// reachable directly in production.
const (
	HeaderConnectingIP = "CF-Connecting-IP"
	HeaderForwardedFor = "X-Forwarded-For"
	HeaderAdminEmail   = "Cf-Access-Authenticated-User-Email"
	HeaderAdminJWT     = "Cf-Access-Jwt-Assertion"
)

const ctxAdminEmail = "admin_email"

// ClientIP returns the proxy supplied client address, else the first hop of
// X-Forwarded-For.  It returns "" when neither header is present.
func ClientIP(c echo.Context) string {
	h := c.Request().Header
	if ip := strings.TrimSpace(h.Get(HeaderConnectingIP)); ip != "" {
		return ip
	}
	if xff := h.Get(HeaderForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	return ""
}

// AdminEmail returns the identity stored by AdminIdentity, or "".
func AdminEmail(c echo.Context) string {
	if v, ok := c.Get(ctxAdminEmail).(string); ok {
		return v
	}
	return ""
}

// rateKeyIP is ClientIP with a socket fallback so throttling still has a key
// when the service runs without a proxy in front.
func rateKeyIP(c echo.Context) string {
	if ip := ClientIP(c); ip != "" {
		return ip
	}
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return "unknown"
}
