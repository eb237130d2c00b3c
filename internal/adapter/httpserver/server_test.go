package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/956zs/pinit/internal/adapter/metrics"
)

func TestServer_ServesMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	srv := NewServer("8080", reg, metrics.NewHTTPMetrics(reg), nil)

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestServer_HealthRoutesWired(t *testing.T) {
	srv := newTestServer(t, HealthCheck{Name: "gateway", Check: healthOK})

	for _, path := range []string{"/health/startup", "/health/live", "/health/ready", "/version"} {
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestServer_RecordsHTTPMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	srv := NewServer("8080", reg, httpMetrics, nil)

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `pinit_http_requests_total{method="GET",route="/version",status_code="200"} 1`)
}
