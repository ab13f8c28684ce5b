package models

import "time"

// ── Request Types ─────────────────────────────────────

type StartQuizRequest struct {
	Domains   []string `json:"domains"`
	Mode      QuizMode `json:"mode"`
	Randomize *bool    `json:"randomize,omitempty"`
}

type SubmitAnswerRequest struct {
	Answer Answer `json:"answer"`
}

// ── Response Types ────────────────────────────────────

type StartQuizResponse struct {
	Token          string   `json:"token"`
	TotalQuestions int      `json:"total_questions"`
	Mode           QuizMode `json:"mode"`
	Randomized     bool     `json:"randomized"`
}

// AnsweredView surfaces a previously recorded submission when an
// already-answered question is redisplayed.
type AnsweredView struct {
	Submitted Answer    `json:"submitted"`
	Correct   bool      `json:"correct"`
	Timestamp time.Time `json:"timestamp"`
}

type QuestionResponse struct {
	Completed  bool          `json:"completed,omitempty"`
	Question   *QuizQuestion `json:"question,omitempty"`
	Index      int           `json:"index"`
	Total      int           `json:"total"`
	IsFavorite bool          `json:"is_favorite"`
	Mode       QuizMode      `json:"mode,omitempty"`
	Answered   *AnsweredView `json:"answered,omitempty"`
}

type SubmitAnswerResponse struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer Answer `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
	NextAvailable bool   `json:"next_available"`
}

type FavoriteResponse struct {
	IsFavorite bool `json:"is_favorite"`
}

type ExplanationResponse struct {
	Explanation string `json:"explanation"`
	Available   bool   `json:"available"`
}

type DomainCount struct {
	Domain    string `json:"domain"`
	Questions int    `json:"questions"`
}

type DomainsResponse struct {
	Domains        []DomainCount `json:"domains"`
	TotalQuestions int           `json:"total_questions"`
}

type ResetStatisticsResponse struct {
	RowsDeleted int64  `json:"rows_deleted"`
	Message     string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
