package session

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cissp-prep/backend/internal/models"
	"github.com/cissp-prep/backend/internal/questions"
	"github.com/cissp-prep/backend/internal/results"
)

var (
	ErrNoActiveSession  = errors.New("no active quiz session")
	ErrSessionExhausted = errors.New("quiz already completed")
	ErrAtBoundary       = errors.New("already at the first question")
	ErrEmptySelection   = errors.New("no questions match the selected criteria")
)

// AnsweredEntry records the latest submission for one question within a
// session. Re-submitting after navigating back overwrites the entry; the map
// itself never shrinks while the session lives.
type AnsweredEntry struct {
	Submitted models.Answer
	Correct   bool
	Timestamp time.Time
}

// Session tracks one in-progress quiz attempt. It holds question IDs only;
// the repository is the source of truth for content. Index ranges over
// [0, len(QuestionIDs)], where Index == len(QuestionIDs) means completed.
type Session struct {
	ID          string
	Mode        models.QuizMode
	QuestionIDs []string
	Index       int
	Randomized  bool
	Answered    map[string]AnsweredEntry

	// Scratch fields for the most recent submission, consumed by the
	// explanation requester.
	LastQuestionID string
	LastAnswer     *models.Answer
	LastCorrect    bool

	mu sync.Mutex
}

// Lock serializes operations on one session. A session has a single logical
// owner, but a browser can still fire overlapping requests for it.
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Completed reports whether the session has run past its last question.
func (s *Session) Completed() bool {
	return s.Index >= len(s.QuestionIDs)
}

// SubmitResult is the outcome of scoring one submission.
type SubmitResult struct {
	Correct       bool
	CorrectAnswer models.Answer
	Explanation   string
	NextAvailable bool
}

// Current bundles what a caller needs to display the question at the
// session's position.
type Current struct {
	Question   *models.Question
	Index      int
	Total      int
	IsFavorite bool
	Answered   *AnsweredEntry
}

// Service drives session state transitions. It owns no sessions itself;
// callers hold them (web: the token store, desktop: the UI model).
type Service struct {
	repo    *questions.Repository
	results *results.Store
	rand    *rand.Rand
}

func NewService(repo *questions.Repository, store *results.Store) *Service {
	return &Service{
		repo:    repo,
		results: store,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start creates a fresh session over the given question IDs. A new session
// fully replaces any prior one; nothing is merged. Shuffling applies a
// uniform random permutation to a copy of the IDs.
func (s *Service) Start(ids []string, mode models.QuizMode, shuffle bool) (*Session, error) {
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	ordered := make([]string, len(ids))
	copy(ordered, ids)
	if shuffle {
		s.rand.Shuffle(len(ordered), func(i, j int) {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		})
	}
	return &Session{
		Mode:        mode,
		QuestionIDs: ordered,
		Index:       0,
		Randomized:  shuffle,
		Answered:    make(map[string]AnsweredEntry),
	}, nil
}

// Current returns the question at the session position, or completed=true
// once the position has moved past the end. Completion is a normal terminal
// state, not an error. Redisplays of answered questions carry the recorded
// entry so the caller can show the earlier outcome without re-scoring.
func (s *Service) Current(sess *Session) (*Current, bool, error) {
	if sess == nil || len(sess.QuestionIDs) == 0 {
		return nil, false, ErrNoActiveSession
	}
	if sess.Completed() {
		return nil, true, nil
	}

	id := sess.QuestionIDs[sess.Index]
	q, ok := s.repo.Get(id)
	if !ok {
		return nil, false, fmt.Errorf("question %q not in repository", id)
	}

	fav, err := s.results.IsFavorite(id)
	if err != nil {
		return nil, false, err
	}

	cur := &Current{
		Question:   q,
		Index:      sess.Index,
		Total:      len(sess.QuestionIDs),
		IsFavorite: fav,
	}
	if entry, answered := sess.Answered[id]; answered {
		cur.Answered = &entry
	}
	return cur, false, nil
}

// Submit scores the answer against the question at the session position,
// records the attempt, and advances by exactly one regardless of
// correctness. A repeat submission of a revisited question appends a new
// result record and overwrites the session's answered entry, so the session
// reflects the latest outcome.
func (s *Service) Submit(sess *Session, answer models.Answer) (*SubmitResult, error) {
	if sess == nil || len(sess.QuestionIDs) == 0 {
		return nil, ErrNoActiveSession
	}
	if sess.Completed() {
		return nil, ErrSessionExhausted
	}

	id := sess.QuestionIDs[sess.Index]
	q, ok := s.repo.Get(id)
	if !ok {
		return nil, fmt.Errorf("question %q not in repository", id)
	}

	correct := q.Answer.Equal(answer)

	if err := s.results.RecordAttempt(q.ID, answer, q.Answer, correct, q.Domain); err != nil {
		return nil, err
	}

	sess.Answered[q.ID] = AnsweredEntry{
		Submitted: answer,
		Correct:   correct,
		Timestamp: time.Now().UTC(),
	}
	sess.LastQuestionID = q.ID
	sess.LastAnswer = &answer
	sess.LastCorrect = correct
	sess.Index++

	return &SubmitResult{
		Correct:       correct,
		CorrectAnswer: q.Answer,
		Explanation:   q.Explanation,
		NextAvailable: !sess.Completed(),
	}, nil
}

// Previous steps back one question. It never alters the answered map or
// re-triggers scoring; the redisplayed question surfaces its recorded
// answer through Current.
func (s *Service) Previous(sess *Session) error {
	if sess == nil || len(sess.QuestionIDs) == 0 {
		return ErrNoActiveSession
	}
	if sess.Index == 0 {
		return ErrAtBoundary
	}
	sess.Index--
	return nil
}

// Skip advances without requiring or recording a submission. It reports
// completion instead of erroring at the end.
func (s *Service) Skip(sess *Session) (bool, error) {
	if sess == nil || len(sess.QuestionIDs) == 0 {
		return false, ErrNoActiveSession
	}
	if sess.Completed() {
		return true, nil
	}
	sess.Index++
	return sess.Completed(), nil
}

// ToggleFavorite flips the favorite flag of the question at the session
// position and returns the new state.
func (s *Service) ToggleFavorite(sess *Session) (bool, error) {
	if sess == nil || len(sess.QuestionIDs) == 0 {
		return false, ErrNoActiveSession
	}
	if sess.Completed() {
		return false, ErrSessionExhausted
	}

	id := sess.QuestionIDs[sess.Index]
	fav, err := s.results.IsFavorite(id)
	if err != nil {
		return false, err
	}
	if err := s.results.SetFavorite(id, !fav); err != nil {
		return false, err
	}
	return !fav, nil
}

// Clear discards all session fields, returning the value to the no-session
// state.
func (s *Session) Clear() {
	s.Mode = ""
	s.QuestionIDs = nil
	s.Index = 0
	s.Randomized = false
	s.Answered = nil
	s.LastQuestionID = ""
	s.LastAnswer = nil
	s.LastCorrect = false
}
