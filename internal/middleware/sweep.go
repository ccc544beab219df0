package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Sweeper runs the retention sweep.
type Sweeper interface {
	RunLogged(ctx context.Context)
}

// Sweep runs the retention sweep before the handler.  It never rejects a
// request: cleanup happens even when admission later fails.
func Sweep(s Sweeper) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s.RunLogged(c.Request().Context())
			return next(c)
		}
	}
}

// UsageRecorder counts API requests.
type UsageRecorder interface {
	RecordAPIRequest(ctx context.Context, n int64) error
}

// CountAPIRequests adds every request to the monthly api_requests counter.
// Ledger failures are logged and never fail the request.
func CountAPIRequests(u UsageRecorder, log *zap.SugaredLogger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := u.RecordAPIRequest(c.Request().Context(), 1); err != nil {
				log.Warnw("api request not counted", "error", err)
			}
			return next(c)
		}
	}
}
