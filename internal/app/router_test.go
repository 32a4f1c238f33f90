package app

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsdesk/partsdesk/internal/observability"
	"github.com/partsdesk/partsdesk/jobs"
)

func testConfig() *Config {
	return &Config{AppEnv: "test", RateLimitPerMinute: 100}
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	router := NewRouter(RouterParams{Config: testConfig()})
	rec := serve(router, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestHealthzReportsDependencyFailure(t *testing.T) {
	router := NewRouter(RouterParams{
		Config:      testConfig(),
		HealthCheck: func(*http.Request) error { return errors.New("db down") },
	})
	rec := serve(router, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpointCountsRoutes(t *testing.T) {
	metrics := observability.NewMetrics()
	router := NewRouter(RouterParams{Config: testConfig(), Metrics: metrics})

	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/healthz").Code)
	rec := serve(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `partsdesk_http_requests_total{code="200",route="/healthz"} 1`)
}

func TestRateLimitPerClient(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 2
	router := NewRouter(RouterParams{Config: cfg})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, http.MethodGet, "/healthz").Code)
}

func TestJobsHealthMounted(t *testing.T) {
	router := NewRouter(RouterParams{Config: testConfig(), JobHandler: jobs.NewHandler(nil, nil)})
	rec := serve(router, http.MethodGet, "/jobs/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}

func TestUnmountedHandlersAreAbsent(t *testing.T) {
	router := NewRouter(RouterParams{Config: testConfig()})
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/api/products").Code)
}
