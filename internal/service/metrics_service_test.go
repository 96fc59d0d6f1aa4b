package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshotAndExposition(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/screens/:screen", 200, 20*time.Millisecond)
	m.ObserveUpstream(http.MethodGet, "/products", 200, 10*time.Millisecond)
	m.ObserveUpstream(http.MethodGet, "/products", 0, 10*time.Millisecond)
	m.RecordStaleDiscard("products")
	m.SetOnlineUsers(3)

	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap.RequestsTotal)
	assert.EqualValues(t, 2, snap.BackendCallsTotal)
	assert.EqualValues(t, 1, snap.BackendErrorsTotal)
	assert.EqualValues(t, 1, snap.StaleResponsesDiscarded)
	assert.Equal(t, 3, snap.OnlineUsers)
	assert.InDelta(t, 10.0, snap.AverageBackendDurationMs, 0.001)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `list_stale_responses_total{screen="products"} 1`)
	assert.Contains(t, body, "presence_online_users 3")
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveUpstream(http.MethodGet, "/users", 200, time.Millisecond)
	m.SetOnlineUsers(1)
	assert.Zero(t, m.Snapshot().RequestsTotal)
}
