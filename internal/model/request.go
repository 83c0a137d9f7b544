package model

import "time"

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type CreateSessionRequest struct {
	DomainID    string     `json:"domainId"`
	SessionType string     `json:"sessionType"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
}

type UpdateMetricsRequest struct {
	Metrics SessionMetrics `json:"metrics"`
}

type UpdateStatusRequest struct {
	Status   string     `json:"status"`
	Feedback []Feedback `json:"feedback,omitempty"`
}

type AnswerRequest struct {
	Option string `json:"option"`
}

type HandshakeResponse struct {
	Namespace  string `json:"namespace"`
	SocketPath string `json:"socketPath"`
	Ticket     string `json:"ticket"`
	ExpiresIn  int64  `json:"expiresIn"`
}
