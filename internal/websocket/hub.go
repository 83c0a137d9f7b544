package websocket

import (
	"context"
	"encoding/json"
	"log/slog"

	"intervi-api/internal/event"
	"intervi-api/internal/metrics"
)

// Hub routes bus events to the sockets of the user that owns each event.
type Hub struct {
	// Registered clients, grouped by user id.
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	bus     event.Bus
	metrics *metrics.Metrics
}

func NewHub(bus event.Bus, m *metrics.Metrics) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		bus:        bus,
		metrics:    m,
	}
}

// Run owns the client registry until ctx is cancelled, then closes every
// client's send channel so the write pumps terminate.
func (h *Hub) Run(ctx context.Context) {
	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					h.remove(client)
				}
			}
			return
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
			h.metrics.SocketOpened()
		case client := <-h.unregister:
			h.remove(client)
		case e, ok := <-events:
			if !ok {
				return
			}
			h.dispatch(e)
		}
	}
}

func (h *Hub) dispatch(e event.Event) {
	set := h.clients[e.UserID]
	if len(set) == 0 {
		return
	}

	message, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to marshal event", "error", err, "type", e.Type)
		return
	}

	for client := range set {
		select {
		case client.send <- message:
		default:
			slog.Warn("dropping slow realtime client", "user_id", client.userID)
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}

	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
	close(client.send)
	h.metrics.SocketClosed()
}

// attach reports false when the hub is no longer running.
func (h *Hub) attach(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) detach(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
