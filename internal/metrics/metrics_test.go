package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordAndExpose(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveRequest(http.MethodPost, "/api/auth/login", http.StatusUnauthorized, 20*time.Millisecond)
	m.AuthEvent("login", errors.New("bad password"))
	m.AuthEvent("login", nil)
	m.SocketOpened()
	m.SocketOpened()
	m.SocketClosed()

	assert.InDelta(t, 1, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/api/auth/login", "401")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.authEvents.WithLabelValues("login", "failure")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.sockets), 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "intervi_http_requests_total")
	assert.Contains(t, rec.Body.String(), "intervi_auth_events_total")
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveRequest(http.MethodGet, "", http.StatusOK, time.Millisecond)
	m.AuthEvent("login", nil)
	m.SocketOpened()
	m.SocketClosed()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
