package results

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cissp-prep/backend/internal/models"
)

// recentLimit bounds the recent-attempts list in Summary.
const recentLimit = 10

// Store persists answer attempts and the favorites set. Every method is a
// single statement (or single transaction) against the database, so
// concurrent callers from separate browser sessions stay atomic per call.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// RecordAttempt appends one result record with the current UTC timestamp.
// Answers are stored in their JSON wire form.
func (s *Store) RecordAttempt(questionID string, submitted, correctAnswer models.Answer, isCorrect bool, domain string) error {
	submittedJSON, err := json.Marshal(submitted)
	if err != nil {
		return fmt.Errorf("serialize submitted answer: %w", err)
	}
	correctJSON, err := json.Marshal(correctAnswer)
	if err != nil {
		return fmt.Errorf("serialize correct answer: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO results (question_id, user_answer, correct_answer, correct, domain, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		questionID, string(submittedJSON), string(correctJSON),
		boolToInt(isCorrect), domain, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// SetFavorite is idempotent: setting an existing favorite or clearing a
// non-favorite succeeds without effect.
func (s *Store) SetFavorite(questionID string, fav bool) error {
	var err error
	if fav {
		_, err = s.db.Exec(
			`INSERT INTO favorites (question_id) VALUES ($1)
			 ON CONFLICT (question_id) DO NOTHING`,
			questionID,
		)
	} else {
		_, err = s.db.Exec(`DELETE FROM favorites WHERE question_id = $1`, questionID)
	}
	if err != nil {
		return fmt.Errorf("set favorite: %w", err)
	}
	return nil
}

func (s *Store) IsFavorite(questionID string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM favorites WHERE question_id = $1`, questionID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is favorite: %w", err)
	}
	return true, nil
}

func (s *Store) ListFavorites() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT question_id FROM favorites`)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	favorites := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favorites[id] = true
	}
	return favorites, rows.Err()
}

// Summary computes aggregate statistics on demand. An empty store yields a
// zeroed summary, never an error.
func (s *Store) Summary() (*models.Summary, error) {
	summary := &models.Summary{
		PerDomain: make(map[string]models.DomainStats),
		Recent:    []models.RecentAttempt{},
	}

	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(correct), 0) FROM results`,
	).Scan(&summary.OverallAttempts, &summary.OverallCorrect)
	if err != nil {
		return nil, fmt.Errorf("overall stats: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT domain, COUNT(*), COALESCE(SUM(correct), 0) FROM results GROUP BY domain`,
	)
	if err != nil {
		return nil, fmt.Errorf("per-domain stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var domain string
		var stats models.DomainStats
		if err := rows.Scan(&domain, &stats.Attempts, &stats.Correct); err != nil {
			return nil, fmt.Errorf("scan domain stats: %w", err)
		}
		summary.PerDomain[domain] = stats
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recentRows, err := s.db.Query(
		`SELECT domain, correct, timestamp FROM results ORDER BY id DESC LIMIT $1`,
		recentLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent attempts: %w", err)
	}
	defer recentRows.Close()
	for recentRows.Next() {
		var attempt models.RecentAttempt
		var correct int
		var ts string
		if err := recentRows.Scan(&attempt.Domain, &correct, &ts); err != nil {
			return nil, fmt.Errorf("scan recent attempt: %w", err)
		}
		attempt.Correct = correct != 0
		attempt.Timestamp, _ = time.Parse(time.RFC3339, ts)
		summary.Recent = append(summary.Recent, attempt)
	}
	if err := recentRows.Err(); err != nil {
		return nil, err
	}

	err = s.db.QueryRow(`SELECT COUNT(*) FROM favorites`).Scan(&summary.FavoriteCount)
	if err != nil {
		return nil, fmt.Errorf("favorite count: %w", err)
	}

	return summary, nil
}

// ClearAll deletes every result record and returns how many were removed.
// Favorites are untouched.
func (s *Store) ClearAll() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM results`)
	if err != nil {
		return 0, fmt.Errorf("clear results: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear results: %w", err)
	}
	return deleted, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
