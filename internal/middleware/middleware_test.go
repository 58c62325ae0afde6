package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buhurtdb/buhurtdb/internal/metrics"
)

func TestRequestID_GeneratesAndReuses(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, GetRequestID(c))
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := rec.Header().Get(requestIDHeader)
	require.NotEmpty(t, generated)
	assert.Equal(t, generated, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "1b4e28ba-2fa1-11d2-883f-0016d3cca427", rec.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "<script>")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get(requestIDHeader))
}

func TestRecovery_ReturnsJSON500(t *testing.T) {
	e := echo.New()
	e.Use(Recovery())
	e.GET("/boom", func(c echo.Context) error { panic("boom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "unexpected error")
}

func TestRateLimit_RejectsBurst(t *testing.T) {
	e := echo.New()
	e.POST("/vote", func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	}, RateLimit(2, time.Minute))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/vote", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/vote", nil)
	req.RemoteAddr = "203.0.113.8:5555"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(Metrics(m))
	e.GET("/fights/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "fight not found")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fights/42", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "/fights/:id", "404")))
}

func TestTrustedProxies(t *testing.T) {
	e := echo.New()
	TrustedProxies(e, []string{"10.0.0.0/8", "not-a-cidr"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:1234"
	req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.1.2.3")
	assert.Equal(t, "198.51.100.4", e.IPExtractor(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.9:1234"
	req.Header.Set("X-Real-IP", "1.2.3.4")
	assert.Equal(t, "198.51.100.9", e.IPExtractor(req))
}

func TestCORS_PreflightAndUnknownOrigin(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{AllowedOrigins: []string{"https://ui.example"}, AllowCredentials: true}))
	e.POST("/x", func(c echo.Context) error { return errors.New("unreachable in preflight") })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://ui.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://ui.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
