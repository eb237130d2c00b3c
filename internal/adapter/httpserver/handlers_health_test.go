package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/956zs/pinit/internal/adapter/metrics"
)

func healthOK(_ context.Context) error { return nil }

func healthErr(msg string) func(context.Context) error {
	return func(_ context.Context) error { return errors.New(msg) }
}

func newTestServer(t *testing.T, checks ...HealthCheck) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewServer("8080", reg, metrics.NewHTTPMetrics(reg), checks)
}

func newTestContext(t *testing.T, srv *Server, path string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	return srv.echo.NewContext(req, rec), rec
}

func TestHandleLiveness(t *testing.T) {
	srv := newTestServer(t)
	c, rec := newTestContext(t, srv, "/health/live")

	err := srv.handleLiveness(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"uptime"`)
}

func TestHandleReadiness_AllHealthy(t *testing.T) {
	srv := newTestServer(t,
		HealthCheck{Name: "gateway", Check: healthOK},
	)
	c, rec := newTestContext(t, srv, "/health/ready")

	err := srv.handleReadiness(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestHandleReadiness_GatewayDown(t *testing.T) {
	srv := newTestServer(t,
		HealthCheck{Name: "gateway", Check: healthErr("gateway disconnected")},
	)
	c, rec := newTestContext(t, srv, "/health/ready")

	err := srv.handleReadiness(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
	assert.Contains(t, rec.Body.String(), `"failed_check":"gateway"`)
	assert.Contains(t, rec.Body.String(), `"error":"gateway disconnected"`)
}

func TestHandleReadiness_FirstFailureWins(t *testing.T) {
	srv := newTestServer(t,
		HealthCheck{Name: "gateway", Check: healthErr("gateway disconnected")},
		HealthCheck{Name: "chatapi", Check: healthErr("breaker open")},
	)
	c, rec := newTestContext(t, srv, "/health/ready")

	err := srv.handleReadiness(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"failed_check":"gateway"`)
}

func TestHandleStartup(t *testing.T) {
	srv := newTestServer(t,
		HealthCheck{Name: "gateway", Check: healthOK},
	)
	c, rec := newTestContext(t, srv, "/health/startup")

	err := srv.handleStartup(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestHandleVersion(t *testing.T) {
	srv := newTestServer(t)
	c, rec := newTestContext(t, srv, "/version")

	err := srv.handleVersion(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `"version"`)
	assert.Contains(t, body, `"commit"`)
	assert.Contains(t, body, `"build_time"`)
	assert.Contains(t, body, `"go_version"`)
}
