// Package metrics exposes Prometheus collectors for HTTP traffic, storage
// usage and swallowed cleanup failures.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bikemarket_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bikemarket_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	usageOps = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bikemarket_usage_operations",
		Help: "Operations recorded in the current month by class.",
	}, []string{"class"})

	usageStorageBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bikemarket_usage_storage_bytes",
		Help: "Bytes currently held in the blob store according to the ledger.",
	})

	usageBlocked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bikemarket_usage_blocked",
		Help: "1 while writes are refused by the usage cutoff.",
	})

	storageErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bikemarket_storage_errors_total",
		Help: "Blob store failures tolerated during cleanup.",
	}, []string{"operation"})

	sweepRemovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bikemarket_sweep_rows_total",
		Help: "Rows affected by the retention sweeper by step.",
	}, []string{"step"})
)

// Middleware records request counts and latencies per route pattern.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unknown"
			}
			method := c.Request().Method
			httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveUsage publishes the latest ledger totals.
func ObserveUsage(classA, classB, apiRequests, storageBytes int64, blocked bool) {
	usageOps.WithLabelValues("class_a").Set(float64(classA))
	usageOps.WithLabelValues("class_b").Set(float64(classB))
	usageOps.WithLabelValues("api").Set(float64(apiRequests))
	usageStorageBytes.Set(float64(storageBytes))
	if blocked {
		usageBlocked.Set(1)
	} else {
		usageBlocked.Set(0)
	}
}

// StorageError counts a tolerated blob store failure.
func StorageError(operation string) {
	storageErrorsTotal.WithLabelValues(operation).Inc()
}

// SweepRows counts rows touched by one sweeper step.
func SweepRows(step string, n int64) {
	if n > 0 {
		sweepRemovedTotal.WithLabelValues(step).Add(float64(n))
	}
}
