package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intervi-api/internal/event"
)

const markerType event.Type = "test.marker"

func startHub(t *testing.T) (*event.InMemoryBus, *httptest.Server) {
	t.Helper()

	bus := event.NewBus()
	hub := NewHub(bus, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	upgrader := NewUpgrader([]string{"*"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Serve(hub, conn, r.URL.Query().Get("user"))
	}))
	t.Cleanup(srv.Close)

	return bus, srv
}

func dial(t *testing.T, srv *httptest.Server, userID string) *ws.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + userID
	conn, resp, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *ws.Conn, timeout time.Duration) (event.Event, error) {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return event.Event{}, err
	}

	var e event.Event
	require.NoError(t, json.Unmarshal(data, &e))
	return e, nil
}

// waitRegistered publishes markers until the connection receives one. A failed
// read leaves a gorilla connection unusable, so a single read waits for the
// first marker while a goroutine keeps publishing.
func waitRegistered(t *testing.T, bus event.Bus, conn *ws.Conn, userID string) {
	t.Helper()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				bus.Publish(event.New(markerType, userID, nil))
			}
		}
	}()

	e, err := readEvent(t, conn, 3*time.Second)
	require.NoError(t, err)
	require.Equal(t, markerType, e.Type)
}

// nextNonMarker skips queued markers.
func nextNonMarker(t *testing.T, conn *ws.Conn) event.Event {
	t.Helper()

	for {
		e, err := readEvent(t, conn, 2*time.Second)
		require.NoError(t, err)
		if e.Type != markerType {
			return e
		}
	}
}

func TestHubDeliversOnlyToEventOwner(t *testing.T) {
	t.Parallel()

	bus, srv := startHub(t)

	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")
	waitRegistered(t, bus, alice, "alice")
	waitRegistered(t, bus, bob, "bob")

	bus.Publish(event.New(event.TypeSessionCreated, "alice", map[string]string{"sessionId": "s-1"}))
	bus.Publish(event.New(event.TypeSessionStatusChanged, "bob", map[string]string{"sessionId": "s-2"}))

	got := nextNonMarker(t, alice)
	assert.Equal(t, event.TypeSessionCreated, got.Type)
	assert.Equal(t, "alice", got.UserID)

	got = nextNonMarker(t, bob)
	assert.Equal(t, event.TypeSessionStatusChanged, got.Type, "bob must not see alice's events")
}

func TestHubClosesClientsOnShutdown(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	hub := NewHub(bus, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := NewUpgrader(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Serve(hub, conn, "carol")
	}))
	t.Cleanup(srv.Close)

	conn := dial(t, srv, "carol")
	waitRegistered(t, bus, conn, "carol")

	cancel()

	for {
		_, err := readEvent(t, conn, 2*time.Second)
		if err != nil {
			assert.True(t, ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseNoStatusReceived, ws.CloseAbnormalClosure),
				"unexpected error: %v", err)
			return
		}
	}
}

func TestUpgraderChecksOrigin(t *testing.T) {
	t.Parallel()

	upgrader := NewUpgrader([]string{"https://app.intervi.dev"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://app.intervi.dev")
	assert.True(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, upgrader.CheckOrigin(req))
}
