package handler

import (
	"log/slog"
	"net/http"
	"strings"

	ws "github.com/gorilla/websocket"

	"intervi-api/internal/service"
	"intervi-api/internal/websocket"
)

type RealtimeHandler struct {
	service  *service.RealtimeService
	hub      *websocket.Hub
	upgrader *ws.Upgrader
}

func NewRealtimeHandler(service *service.RealtimeService, hub *websocket.Hub, allowedOrigins []string) *RealtimeHandler {
	return &RealtimeHandler{
		service:  service,
		hub:      hub,
		upgrader: websocket.NewUpgrader(allowedOrigins),
	}
}

func (h *RealtimeHandler) Handshake(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusCreated, h.service.Handshake(user.ID))
}

// Connect redeems the ticket before upgrading, so a rejected ticket is a
// plain JSON 401.
func (h *RealtimeHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, err := h.service.Consume(strings.TrimSpace(r.URL.Query().Get("ticket")))
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		slog.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	websocket.Serve(h.hub, conn, userID)
}
