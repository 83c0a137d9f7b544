package handler

import (
	"net/http"
	"strings"

	"intervi-api/internal/middleware"
	"intervi-api/internal/model"
	"intervi-api/internal/service"
	"intervi-api/pkg/apierror"
)

type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if err := decodeJSON(r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.Register(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Refresh takes the refresh token from the Authorization header, falling
// back to a refreshToken body field.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload model.RefreshRequest
	if err := decodeJSON(r, &payload, true); err != nil {
		writeError(w, err)
		return
	}

	refreshToken, ok := middleware.BearerToken(r)
	if !ok {
		refreshToken = strings.TrimSpace(payload.RefreshToken)
	}
	if refreshToken == "" {
		writeError(w, apierror.Unauthorized("Missing refresh token"))
		return
	}

	pair, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var payload model.RefreshRequest
	if err := decodeJSON(r, &payload, true); err != nil {
		writeError(w, err)
		return
	}

	accessToken, _ := middleware.BearerToken(r)
	if err := h.service.Logout(r.Context(), accessToken, strings.TrimSpace(payload.RefreshToken)); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	profile, err := h.service.Me(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
