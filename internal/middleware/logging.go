// Package middleware provides HTTP middleware for the fight catalog Echo
// server. Middleware is applied globally or per route group; see
// internal/app for registration order.
package middleware

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	requestIDHeader     = "X-Request-ID"
	contextKeyRequestID = "request_id"
)

// RequestID returns middleware that tags every request with an ID. A
// well-formed incoming X-Request-ID is reused so IDs survive a proxy hop;
// otherwise a fresh UUID is generated. The ID is echoed in the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(requestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			c.Set(contextKeyRequestID, id)
			c.Response().Header().Set(requestIDHeader, id)
			return next(c)
		}
	}
}

// GetRequestID returns the current request's ID, or "" outside RequestID.
func GetRequestID(c echo.Context) string {
	id, _ := c.Get(contextKeyRequestID).(string)
	return id
}

// RequestLogger returns middleware that logs every HTTP request with
// structured fields: method, path, status, latency, remote IP, request ID.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Resolve the status now so the log line reflects the error
				// handler's response rather than the default 200.
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Duration("latency", time.Since(start)),
				slog.String("remote_ip", c.RealIP()),
				slog.String("request_id", GetRequestID(c)),
			}
			if req.URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", req.URL.RawQuery))
			}

			level := slog.LevelInfo
			if res.Status >= 500 {
				level = slog.LevelError
			} else if res.Status >= 400 {
				level = slog.LevelWarn
			}

			slog.LogAttrs(req.Context(), level, "request", attrs...)

			return nil
		}
	}
}
