package app

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
	"github.com/buhurtdb/buhurtdb/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:     "development",
		BaseURL: "http://localhost:3000",
		Voting: config.VotingConfig{
			DefaultThreshold:   10,
			SessionTTL:         time.Hour,
			RateLimitPerMinute: 30,
		},
	}
}

func newTestApp(t *testing.T) (*App, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return New(testConfig(), db, rdb), mock, mr
}

func serve(a *App, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestErrorHandler_AppErrorAsJSON(t *testing.T) {
	a, _, _ := newTestApp(t)
	a.Echo.GET("/conflict", func(c echo.Context) error {
		return apperror.NewConflict("fight already has an active category tag")
	})

	rec := serve(a, http.MethodGet, "/conflict")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"Conflict","message":"fight already has an active category tag"}`, rec.Body.String())
}

func TestErrorHandler_HidesInternalCause(t *testing.T) {
	a, _, _ := newTestApp(t)
	a.Echo.GET("/internal", func(c echo.Context) error {
		return apperror.NewInternal(errors.New("dial tcp 10.0.0.5:3306: connection refused"))
	})
	a.Echo.GET("/plain", func(c echo.Context) error {
		return errors.New("raw driver failure")
	})

	rec := serve(a, http.MethodGet, "/internal")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")

	rec = serve(a, http.MethodGet, "/plain")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "raw driver failure")
}

func TestErrorHandler_RouterNotFound(t *testing.T) {
	a, _, _ := newTestApp(t)
	rec := serve(a, http.MethodGet, "/nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "application/json")
}

func TestHealthz(t *testing.T) {
	a, mock, mr := newTestApp(t)
	a.RegisterRoutes()

	mock.ExpectPing()
	rec := serve(a, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	mr.Close()
	mock.ExpectPing()
	rec = serve(a, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"unavailable"`)
}

func TestRegisterRoutes_MountsEveryPlugin(t *testing.T) {
	a, _, _ := newTestApp(t)
	a.RegisterRoutes()

	registered := make(map[string]bool)
	for _, r := range a.Echo.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /metrics",
		"GET /tag-types",
		"POST /fights",
		"PATCH /fights/:id/deactivate",
		"POST /fights/:id/tags",
		"PATCH /fights/:id/tags/:tagId/deactivate",
		"POST /fights/:id/change-requests",
		"POST /change-requests/:requestId/votes",
		"POST /fighters",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	a, _, _ := newTestApp(t)
	a.RegisterRoutes()

	rec := serve(a, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "buhurt_")
}
