package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"intervi-api/internal/model"
)

const (
	RealtimeNamespace  = "/interview"
	RealtimeSocketPath = "/api/realtime/ws"
)

type ticket struct {
	userID    string
	expiresAt time.Time
}

// RealtimeService issues single-use tickets that authorize a websocket
// upgrade, since browsers cannot set an Authorization header on it.
type RealtimeService struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	tickets map[string]ticket
}

func NewRealtimeService(ttl time.Duration) *RealtimeService {
	return &RealtimeService{
		ttl:     ttl,
		now:     time.Now,
		tickets: map[string]ticket{},
	}
}

func (s *RealtimeService) Handshake(userID string) model.HandshakeResponse {
	now := s.now()
	id := uuid.NewString()

	s.mu.Lock()
	s.pruneLocked(now)
	s.tickets[id] = ticket{userID: userID, expiresAt: now.Add(s.ttl)}
	s.mu.Unlock()

	return model.HandshakeResponse{
		Namespace:  RealtimeNamespace,
		SocketPath: RealtimeSocketPath,
		Ticket:     id,
		ExpiresIn:  int64(s.ttl.Seconds()),
	}
}

// Consume redeems a ticket once and returns the user it was issued to.
func (s *RealtimeService) Consume(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return "", model.ErrTicketInvalid
	}
	delete(s.tickets, id)

	if !s.now().Before(t.expiresAt) {
		return "", model.ErrTicketInvalid
	}
	return t.userID, nil
}

func (s *RealtimeService) pruneLocked(now time.Time) {
	for id, t := range s.tickets {
		if !now.Before(t.expiresAt) {
			delete(s.tickets, id)
		}
	}
}
