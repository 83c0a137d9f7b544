package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Token related errors
	ErrInvalidToken = errors.New("invalid token")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Interview related errors
	ErrSessionNotFound   = errors.New("interview session not found")
	ErrDomainNotFound    = errors.New("interview domain not found")
	ErrInvalidTransition = errors.New("invalid session status transition")
	ErrQuestionNotFound  = errors.New("question not found")
	ErrTicketInvalid     = errors.New("realtime ticket invalid or expired")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
	ErrUnconfigured = errors.New("required configuration missing")
)
