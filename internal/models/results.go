package models

import "time"

// ResultRecord is one persisted fact about a single answer submission.
// Records are append-only; only a bulk clear removes them.
type ResultRecord struct {
	ID              int64     `json:"id"`
	QuestionID      string    `json:"question_id"`
	SubmittedAnswer string    `json:"submitted_answer"`
	CorrectAnswer   string    `json:"correct_answer"`
	Correct         bool      `json:"correct"`
	Domain          string    `json:"domain"`
	Timestamp       time.Time `json:"timestamp"`
}

type DomainStats struct {
	Attempts int `json:"attempts"`
	Correct  int `json:"correct"`
}

type RecentAttempt struct {
	Domain    string    `json:"domain"`
	Correct   bool      `json:"correct"`
	Timestamp time.Time `json:"timestamp"`
}

type Summary struct {
	OverallAttempts int                    `json:"overall_attempts"`
	OverallCorrect  int                    `json:"overall_correct"`
	PerDomain       map[string]DomainStats `json:"per_domain"`
	Recent          []RecentAttempt        `json:"recent"`
	FavoriteCount   int                    `json:"favorite_count"`
}
