package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intervi-api/internal/model"
)

func TestRealtimeTicketsAreSingleUse(t *testing.T) {
	t.Parallel()

	svc := NewRealtimeService(time.Minute)

	handshake := svc.Handshake("user-1")
	assert.Equal(t, RealtimeNamespace, handshake.Namespace)
	assert.Equal(t, RealtimeSocketPath, handshake.SocketPath)
	assert.Equal(t, int64(60), handshake.ExpiresIn)

	userID, err := svc.Consume(handshake.Ticket)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	_, err = svc.Consume(handshake.Ticket)
	assert.ErrorIs(t, err, model.ErrTicketInvalid)

	_, err = svc.Consume("never-issued")
	assert.ErrorIs(t, err, model.ErrTicketInvalid)
}

func TestRealtimeTicketsExpire(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewRealtimeService(30 * time.Second)
	svc.now = func() time.Time { return now }

	expired := svc.Handshake("user-1")
	now = now.Add(30 * time.Second)

	_, err := svc.Consume(expired.Ticket)
	assert.ErrorIs(t, err, model.ErrTicketInvalid)

	fresh := svc.Handshake("user-2")
	assert.NotContains(t, svc.tickets, expired.Ticket)

	userID, err := svc.Consume(fresh.Ticket)
	require.NoError(t, err)
	assert.Equal(t, "user-2", userID)
}
