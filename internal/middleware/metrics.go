package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/buhurtdb/buhurtdb/internal/metrics"
)

// Metrics returns middleware that records request counts and latency. The
// route label is the registered path template (e.g. /fights/:id/tags), not
// the raw URL, to keep label cardinality bounded. Must run inside
// RequestLogger, which resolves errors into a final status first.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			m.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
