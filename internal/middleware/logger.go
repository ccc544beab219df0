package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestLogger writes one debug line per request.  Server errors are
// logged at warn.
func RequestLogger(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			res := c.Response()
			fields := []interface{}{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", res.Status,
				"duration", time.Since(start),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
			}
			if res.Status >= 500 {
				log.Warnw("request failed", append(fields, "error", err)...)
			} else {
				log.Debugw("request", fields...)
			}
			return nil
		}
	}
}
