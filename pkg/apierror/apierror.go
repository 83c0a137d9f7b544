package apierror

import (
	"fmt"
	"net/http"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	// Err is the underlying cause, if any. It is never serialized.
	Err error `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(code string, message string, details any, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// Wrap attaches a cause so errors.Is keeps matching sentinels through the APIError.
func Wrap(err error, code string, message string, status int) *APIError {
	return &APIError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

func BadRequest(message string, details any) *APIError {
	return New("INVALID_PAYLOAD", message, details, http.StatusBadRequest)
}

func Unauthorized(message string) *APIError {
	return New("UNAUTHORIZED", message, nil, http.StatusUnauthorized)
}

func Forbidden(message string) *APIError {
	return New("FORBIDDEN", message, nil, http.StatusForbidden)
}

func NotFound(message string) *APIError {
	return New("NOT_FOUND", message, nil, http.StatusNotFound)
}

func Conflict(message string) *APIError {
	return New("CONFLICT", message, nil, http.StatusConflict)
}

// FieldErrors collects per-field validation messages.
type FieldErrors map[string]string

func (f FieldErrors) Add(field string, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// Err returns nil when no field failed, otherwise a 400 APIError carrying the fields.
func (f FieldErrors) Err() error {
	if f.Empty() {
		return nil
	}
	return BadRequest("Invalid request payload", map[string]string(f))
}
