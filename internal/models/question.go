package models

type QuestionType string

const (
	TypeSingleChoice QuestionType = "single-choice"
	TypeOrdering     QuestionType = "ordering"
)

var ValidQuestionTypes = map[QuestionType]bool{
	TypeSingleChoice: true,
	TypeOrdering:     true,
}

type QuizMode string

const (
	ModeNormal    QuizMode = "normal"
	ModeFavorites QuizMode = "favorites"
)

var ValidQuizModes = map[QuizMode]bool{
	ModeNormal:    true,
	ModeFavorites: true,
}

// ── Core Structs ───────────────────────────────────────

// Question is immutable once loaded. ID is the join key between the
// repository, the result store, and quiz sessions.
type Question struct {
	ID          string       `json:"id"`
	Domain      string       `json:"domain"`
	Type        QuestionType `json:"type"`
	Text        string       `json:"text"`
	Choices     []string     `json:"choices"`
	Answer      Answer       `json:"answer"`
	Explanation string       `json:"explanation,omitempty"`
	Source      string       `json:"source,omitempty"`
}

// ── Serving Types (strip answers) ──────────────────────

// QuizQuestion is the wire shape served to clients before an answer is
// submitted: same question, no answer key.
type QuizQuestion struct {
	ID      string       `json:"id"`
	Domain  string       `json:"domain"`
	Type    QuestionType `json:"type"`
	Text    string       `json:"text"`
	Choices []string     `json:"choices"`
}

func (q *Question) ToQuizQuestion() QuizQuestion {
	return QuizQuestion{
		ID:      q.ID,
		Domain:  q.Domain,
		Type:    q.Type,
		Text:    q.Text,
		Choices: q.Choices,
	}
}
