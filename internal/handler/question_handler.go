package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"intervi-api/internal/model"
	"intervi-api/internal/service"
)

type QuestionHandler struct {
	service *service.QuestionService
}

func NewQuestionHandler(service *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{service: service}
}

func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}

	query := r.URL.Query()
	questions, err := h.service.List(model.QuestionQuery{
		DomainID:   query.Get("domain"),
		Difficulty: query.Get("difficulty"),
		Limit:      limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ListResponse[model.PublicQuestion]{Items: questions, Total: len(questions)})
}

func (h *QuestionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var payload model.AnswerRequest
	if err := decodeJSON(r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.Answer(chi.URLParam(r, "questionId"), payload.Option)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
