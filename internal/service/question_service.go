package service

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"intervi-api/internal/model"
	"intervi-api/pkg/apierror"
)

const (
	defaultQuestionLimit = 10
	maxQuestionLimit     = 50
)

//go:embed data/mcq_questions.json
var questionBank []byte

type QuestionService struct {
	questions []model.MCQQuestion
	byID      map[string]model.MCQQuestion
}

// NewQuestionService loads the embedded question bank.
func NewQuestionService() (*QuestionService, error) {
	var questions []model.MCQQuestion
	if err := json.Unmarshal(questionBank, &questions); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}
	return newQuestionService(questions)
}

func newQuestionService(questions []model.MCQQuestion) (*QuestionService, error) {
	byID := make(map[string]model.MCQQuestion, len(questions))
	for _, q := range questions {
		if _, dup := byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		if _, ok := findDomain(q.DomainID); !ok {
			return nil, fmt.Errorf("question %q references unknown domain %q", q.ID, q.DomainID)
		}
		byID[q.ID] = q
	}
	return &QuestionService{questions: questions, byID: byID}, nil
}

// List filters by domain id or slug and difficulty, in bank order.
func (s *QuestionService) List(query model.QuestionQuery) ([]model.PublicQuestion, error) {
	query.Difficulty = strings.ToLower(strings.TrimSpace(query.Difficulty))

	domainID := ""
	if query.DomainID != "" {
		domain, ok := findDomain(strings.TrimSpace(query.DomainID))
		if !ok {
			return nil, model.ErrDomainNotFound
		}
		domainID = domain.ID
	}

	if query.Difficulty != "" && !slices.Contains(difficultyTags, query.Difficulty) {
		return nil, apierror.BadRequest("Invalid request payload", map[string]string{
			"difficulty": "Difficulty must be one of beginner, intermediate, advanced",
		})
	}

	limit := query.Limit
	switch {
	case limit <= 0:
		limit = defaultQuestionLimit
	case limit > maxQuestionLimit:
		limit = maxQuestionLimit
	}

	result := make([]model.PublicQuestion, 0, limit)
	for _, q := range s.questions {
		if domainID != "" && q.DomainID != domainID {
			continue
		}
		if query.Difficulty != "" && q.Difficulty != query.Difficulty {
			continue
		}
		result = append(result, q.Public())
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *QuestionService) Answer(questionID string, option string) (model.AnswerResult, error) {
	q, ok := s.byID[questionID]
	if !ok {
		return model.AnswerResult{}, model.ErrQuestionNotFound
	}

	option = strings.ToLower(strings.TrimSpace(option))
	if !slices.ContainsFunc(q.Options, func(opt model.MCQOption) bool { return opt.Value == option }) {
		return model.AnswerResult{}, apierror.BadRequest("Invalid request payload", map[string]string{
			"option": "Option is not one of the question's choices",
		})
	}

	return model.AnswerResult{
		QuestionID:    q.ID,
		Correct:       option == q.CorrectOption,
		CorrectOption: q.CorrectOption,
		Explanation:   q.Explanation,
	}, nil
}
