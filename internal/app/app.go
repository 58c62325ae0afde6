// Package app is the application bootstrap and dependency injection root.
// It holds the shared infrastructure (DB pool, Redis client, metrics, Echo
// instance) and wires the plugins together.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
	"github.com/buhurtdb/buhurtdb/internal/config"
	"github.com/buhurtdb/buhurtdb/internal/metrics"
	"github.com/buhurtdb/buhurtdb/internal/middleware"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	Config *config.Config

	// DB is the MariaDB connection pool shared by all plugins.
	DB *sql.DB

	// Redis backs the anonymous voter sessions.
	Redis *redis.Client

	Metrics *metrics.Metrics

	Echo *echo.Echo
}

// New creates a new App and configures Echo with global middleware and
// the JSON error handler.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()

	// We log our own startup line.
	e.HideBanner = true
	e.HidePort = true

	// c.RealIP() must see the client, not the reverse proxy, or the vote
	// rate limit buckets every caller together.
	middleware.TrustedProxies(e, middleware.DefaultTrustedProxies)

	app := &App{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Metrics: metrics.New(),
		Echo:    e,
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request ID before the logger so every log line carries it.
	a.Echo.Use(middleware.RequestID())
	a.Echo.Use(middleware.RequestLogger())

	a.Echo.Use(middleware.Metrics(a.Metrics))
	a.Echo.Use(middleware.SecurityHeaders())

	// The presentation layer is served from another origin and needs the
	// voter cookie on vote submissions.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   a.Config.AllowedOrigins(),
		AllowCredentials: true,
	}))
}

// errorHandler maps domain errors (AppError) and Echo's own HTTP errors to
// a JSON body of the form {"error": ..., "message": ...}. Internal causes
// are logged and never returned to the client.
func (a *App) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := defaultErrorMessage(code)

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		message = appErr.Message
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
				slog.String("request_id", middleware.GetRequestID(c)),
			)
		}
	case errors.As(err, &echoErr):
		// Router 404/405 and the rate limiter's 429.
		code = echoErr.Code
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		} else {
			message = defaultErrorMessage(code)
		}
	default:
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
			slog.String("request_id", middleware.GetRequestID(c)),
		)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{
		"error":   http.StatusText(code),
		"message": message,
	})
}

// defaultErrorMessage returns a client-safe message for status codes that
// arrive without one.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusNotFound:
		return "The requested resource does not exist."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusConflict:
		return "This action conflicts with the current state."
	case http.StatusUnprocessableEntity:
		return "The submitted data could not be processed."
	case http.StatusTooManyRequests:
		return "Too many requests. Please slow down."
	case http.StatusServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "An unexpected error occurred."
	}
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting buhurtdb server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
