package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"intervi-api/internal/model"
	"intervi-api/pkg/apierror"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError is the single place where errors become HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := model.ErrorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = "INVALID_PAYLOAD"
		body.Message = "Invalid request payload"
	} else if errors.Is(err, model.ErrDuplicateEmail) {
		status = http.StatusConflict
		body.Code = "DUPLICATE_EMAIL"
		body.Message = "Email is already registered"
	} else if errors.Is(err, model.ErrInvalidCredentials) {
		status = http.StatusUnauthorized
		body.Code = "INVALID_CREDENTIALS"
		body.Message = "Invalid email or password"
	} else if errors.Is(err, model.ErrInvalidToken) {
		status = http.StatusUnauthorized
		body.Code = "INVALID_TOKEN"
		body.Message = "Invalid or expired token"
	} else if errors.Is(err, model.ErrUnauthorized) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Authentication required"
	} else if errors.Is(err, model.ErrForbidden) {
		status = http.StatusForbidden
		body.Code = "FORBIDDEN"
		body.Message = "Access denied"
	} else if errors.Is(err, model.ErrUserNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "User not found"
	} else if errors.Is(err, model.ErrSessionNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Interview session not found"
	} else if errors.Is(err, model.ErrDomainNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Interview domain not found"
	} else if errors.Is(err, model.ErrQuestionNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Question not found"
	} else if errors.Is(err, model.ErrInvalidTransition) {
		status = http.StatusConflict
		body.Code = "INVALID_TRANSITION"
		body.Message = "Session status change not allowed"
		body.Details = err.Error()
	} else if errors.Is(err, model.ErrTicketInvalid) {
		status = http.StatusUnauthorized
		body.Code = "INVALID_TICKET"
		body.Message = "Realtime ticket invalid or expired"
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}

	writeJSON(w, status, body)
}

// decodeJSON reads a JSON body into dst. An empty body is accepted when
// optional is true.
func decodeJSON(r *http.Request, dst any, optional bool) error {
	if r.Body == nil {
		if optional {
			return nil
		}
		return apierror.BadRequest("Request body is required", nil)
	}
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		if optional {
			return nil
		}
		return apierror.BadRequest("Request body is required", nil)
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apierror.New("PAYLOAD_TOO_LARGE", "Request body too large", nil, http.StatusRequestEntityTooLarge)
	}
	return apierror.BadRequest("Invalid JSON body", nil)
}
