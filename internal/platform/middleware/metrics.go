package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinica/intake/internal/platform/metrics"
)

// Metrics records request counts and latencies on the shared collector.
// The route template (not the raw path) is used so DNIs never become labels.
func Metrics(col *metrics.Collector) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)
			col.RequestsTotal.WithLabelValues(c.Request().Method, path, status).Inc()
			col.RequestDuration.WithLabelValues(c.Request().Method, path, status).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
