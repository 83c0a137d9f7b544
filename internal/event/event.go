package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeSessionCreated        Type = "session.created"
	TypeSessionMetricsUpdated Type = "session.metrics_updated"
	TypeSessionStatusChanged  Type = "session.status_changed"
)

type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	// UserID owns the event; realtime delivery is restricted to this user.
	UserID string `json:"userId"`
}

func New(t Type, userID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
