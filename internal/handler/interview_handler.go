package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"intervi-api/internal/middleware"
	"intervi-api/internal/model"
	"intervi-api/internal/service"
	"intervi-api/pkg/apierror"
)

type InterviewHandler struct {
	service *service.InterviewService
}

func NewInterviewHandler(service *service.InterviewService) *InterviewHandler {
	return &InterviewHandler{service: service}
}

// actor returns the authenticated user, writing a 401 when there is none.
func actor(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return model.User{}, false
	}
	return identity.User, true
}

func queryLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, apierror.BadRequest("Invalid request payload", map[string]string{"limit": "Must be a positive integer"})
	}
	return limit, nil
}

func (h *InterviewHandler) Domains(w http.ResponseWriter, r *http.Request) {
	domains := h.service.Domains()
	writeJSON(w, http.StatusOK, model.ListResponse[model.InterviewDomain]{Items: domains, Total: len(domains)})
}

func (h *InterviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}

	var payload model.CreateSessionRequest
	if err := decodeJSON(r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.service.Create(r.Context(), user, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *InterviewHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}

	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}

	query := r.URL.Query()
	sessions, err := h.service.List(r.Context(), user,
		strings.TrimSpace(query.Get("userId")),
		strings.TrimSpace(query.Get("status")),
		limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ListResponse[model.InterviewSession]{Items: sessions, Total: len(sessions)})
}

func (h *InterviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}

	session, err := h.service.Get(r.Context(), user, chi.URLParam(r, "sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *InterviewHandler) UpdateMetrics(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}

	var payload model.UpdateMetricsRequest
	if err := decodeJSON(r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	metrics, err := h.service.UpdateMetrics(r.Context(), user, chi.URLParam(r, "sessionId"), payload.Metrics)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, metrics)
}

func (h *InterviewHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}

	var payload model.UpdateStatusRequest
	if err := decodeJSON(r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.service.UpdateStatus(r.Context(), user, chi.URLParam(r, "sessionId"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}
