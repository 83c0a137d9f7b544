package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intervi-api/internal/model"
	"intervi-api/pkg/apierror"
)

func TestQuestionServiceList(t *testing.T) {
	t.Parallel()

	svc, err := NewQuestionService()
	require.NoError(t, err)
	require.Len(t, svc.questions, 36)

	all, err := svc.List(model.QuestionQuery{})
	require.NoError(t, err)
	assert.Len(t, all, defaultQuestionLimit)

	sde, err := svc.List(model.QuestionQuery{DomainID: "software-dev", Limit: 500})
	require.NoError(t, err)
	require.Len(t, sde, 3)
	for _, q := range sde {
		assert.Equal(t, "sde", q.DomainID)
	}

	advanced, err := svc.List(model.QuestionQuery{DomainID: "sde", Difficulty: "ADVANCED"})
	require.NoError(t, err)
	require.Len(t, advanced, 1)
	assert.Equal(t, "sde-3", advanced[0].ID)

	_, err = svc.List(model.QuestionQuery{DomainID: "astrology"})
	assert.ErrorIs(t, err, model.ErrDomainNotFound)

	_, err = svc.List(model.QuestionQuery{Difficulty: "impossible"})
	var apiErr *apierror.APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestQuestionsHideAnswers(t *testing.T) {
	t.Parallel()

	svc, err := NewQuestionService()
	require.NoError(t, err)

	list, err := svc.List(model.QuestionQuery{Limit: 50})
	require.NoError(t, err)

	data, err := json.Marshal(list)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "correctOption")
	assert.NotContains(t, string(data), "explanation")
}

func TestQuestionServiceAnswer(t *testing.T) {
	t.Parallel()

	svc, err := NewQuestionService()
	require.NoError(t, err)

	right, err := svc.Answer("sde-1", " B ")
	require.NoError(t, err)
	assert.True(t, right.Correct)
	assert.Equal(t, "b", right.CorrectOption)
	assert.NotEmpty(t, right.Explanation)

	wrong, err := svc.Answer("sde-1", "a")
	require.NoError(t, err)
	assert.False(t, wrong.Correct)

	_, err = svc.Answer("sde-1", "z")
	var apiErr *apierror.APIError
	assert.ErrorAs(t, err, &apiErr)

	_, err = svc.Answer("nope", "a")
	assert.ErrorIs(t, err, model.ErrQuestionNotFound)
}

func TestQuestionBankRejectsBadData(t *testing.T) {
	t.Parallel()

	_, err := newQuestionService([]model.MCQQuestion{{ID: "x", DomainID: "sde"}, {ID: "x", DomainID: "sde"}})
	assert.Error(t, err)

	_, err = newQuestionService([]model.MCQQuestion{{ID: "y", DomainID: "astrology"}})
	assert.Error(t, err)
}
