package model

const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

type MCQOption struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Explanation string `json:"explanation,omitempty"`
}

type MCQQuestion struct {
	ID            string      `json:"id"`
	DomainID      string      `json:"domainId"`
	Prompt        string      `json:"prompt"`
	Options       []MCQOption `json:"options"`
	CorrectOption string      `json:"correctOption"`
	Explanation   string      `json:"explanation"`
	Difficulty    string      `json:"difficulty"`
	Tags          []string    `json:"tags"`
}

// PublicQuestion hides the answer and the per-option explanations.
type PublicQuestion struct {
	ID         string      `json:"id"`
	DomainID   string      `json:"domainId"`
	Prompt     string      `json:"prompt"`
	Options    []MCQOption `json:"options"`
	Difficulty string      `json:"difficulty"`
	Tags       []string    `json:"tags"`
}

func (q MCQQuestion) Public() PublicQuestion {
	options := make([]MCQOption, 0, len(q.Options))
	for _, opt := range q.Options {
		options = append(options, MCQOption{Label: opt.Label, Value: opt.Value})
	}

	return PublicQuestion{
		ID:         q.ID,
		DomainID:   q.DomainID,
		Prompt:     q.Prompt,
		Options:    options,
		Difficulty: q.Difficulty,
		Tags:       q.Tags,
	}
}

type QuestionQuery struct {
	DomainID   string
	Difficulty string
	Limit      int
}

type AnswerResult struct {
	QuestionID    string `json:"questionId"`
	Correct       bool   `json:"correct"`
	CorrectOption string `json:"correctOption"`
	Explanation   string `json:"explanation"`
}
