package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klefe6/almanac/internal/services"
)

type fakeHealthService struct {
	health    services.HealthStatus
	readiness services.HealthStatus
	liveness  services.HealthStatus
	version   map[string]any
}

func (f *fakeHealthService) Health(context.Context) services.HealthStatus    { return f.health }
func (f *fakeHealthService) Readiness(context.Context) services.HealthStatus { return f.readiness }
func (f *fakeHealthService) Liveness(context.Context) services.HealthStatus  { return f.liveness }
func (f *fakeHealthService) Version() map[string]any                         { return f.version }

var _ HealthService = (*fakeHealthService)(nil)

func newHealthRouter(svc *fakeHealthService) chi.Router {
	return NewHealthHandler(svc, discardLogger()).Routes()
}

func TestHealthHandler_Healthy(t *testing.T) {
	svc := &fakeHealthService{health: services.HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   "1.4.0",
		Checks: map[string]services.CheckResult{
			"database": {Status: "up"},
			"cache":    {Status: "up"},
		},
	}}

	rec := doJSON(t, newHealthRouter(svc), http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "data", "probes are rendered without the envelope")

	checks, ok := body["checks"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "up", checks["database"].(map[string]any)["status"])
}

func TestHealthHandler_Degraded(t *testing.T) {
	svc := &fakeHealthService{health: services.HealthStatus{
		Status: "degraded",
		Checks: map[string]services.CheckResult{
			"cache": {Status: "down", Message: "dial tcp: connection refused"},
		},
	}}

	rec := doJSON(t, newHealthRouter(svc), http.MethodGet, "/", nil)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "degraded", body["status"])
}

func TestHealthHandler_Readiness(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		svc := &fakeHealthService{readiness: services.HealthStatus{Status: "ready"}}

		rec := doJSON(t, newHealthRouter(svc), http.MethodGet, "/ready", nil)

		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		svc := &fakeHealthService{readiness: services.HealthStatus{Status: "not_ready"}}

		rec := doJSON(t, newHealthRouter(svc), http.MethodGet, "/ready", nil)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "not_ready", decodeBody(t, rec)["status"])
	})
}

func TestHealthHandler_Liveness(t *testing.T) {
	svc := &fakeHealthService{liveness: services.HealthStatus{Status: "alive", Version: "1.4.0"}}

	rec := doJSON(t, newHealthRouter(svc), http.MethodGet, "/live", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", decodeBody(t, rec)["status"])
}

func TestHealthHandler_Version(t *testing.T) {
	svc := &fakeHealthService{version: map[string]any{
		"version":    "1.4.0",
		"go_version": "go1.23.0",
	}}
	h := NewHealthHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rec := httptest.NewRecorder()
	h.Version(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "1.4.0", body["version"])
	assert.Equal(t, "go1.23.0", body["go_version"])
}
