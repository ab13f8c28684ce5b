package quiz

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/cissp-prep/backend/internal/explain"
	"github.com/cissp-prep/backend/internal/models"
	"github.com/cissp-prep/backend/internal/questions"
	"github.com/cissp-prep/backend/internal/results"
	"github.com/cissp-prep/backend/internal/session"
)

// sessionCookie is accepted as a fallback for clients that cannot set an
// Authorization header (plain browser fetches from the bundled frontend).
const sessionCookie = "quiz_session"

type Handler struct {
	repo      *questions.Repository
	results   *results.Store
	sessions  *session.Store
	service   *session.Service
	explainer *explain.Requester
}

func NewHandler(repo *questions.Repository, store *results.Store, sessions *session.Store, service *session.Service, explainer *explain.Requester) *Handler {
	return &Handler{
		repo:      repo,
		results:   store,
		sessions:  sessions,
		service:   service,
		explainer: explainer,
	}
}

// Routes attaches every quiz endpoint to the given subrouter.
func (h *Handler) Routes(api *mux.Router) {
	api.HandleFunc("/domains", h.Domains).Methods("GET")
	api.HandleFunc("/quiz/start", h.StartQuiz).Methods("POST")
	api.HandleFunc("/quiz/question", h.CurrentQuestion).Methods("GET")
	api.HandleFunc("/quiz/answer", h.SubmitAnswer).Methods("POST")
	api.HandleFunc("/quiz/previous", h.PreviousQuestion).Methods("POST")
	api.HandleFunc("/quiz/skip", h.SkipQuestion).Methods("POST")
	api.HandleFunc("/quiz/favorite", h.ToggleFavorite).Methods("POST")
	api.HandleFunc("/quiz/explain", h.ExplainAnswer).Methods("POST")
	api.HandleFunc("/quiz/explain-question", h.ExplainQuestion).Methods("POST")
	api.HandleFunc("/quiz", h.EndQuiz).Methods("DELETE")
	api.HandleFunc("/statistics", h.Statistics).Methods("GET")
	api.HandleFunc("/statistics/reset", h.ResetStatistics).Methods("POST")
}

// ── Question Bank ───────────────────────────────────────

func (h *Handler) Domains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.DomainsResponse{
		Domains:        h.repo.Domains(),
		TotalQuestions: h.repo.Len(),
	})
}

// ── Quiz Lifecycle ──────────────────────────────────────

func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	var req models.StartQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = models.ModeNormal
	}
	if !models.ValidQuizModes[mode] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Unknown quiz mode: " + string(mode)})
		return
	}

	var ids []string
	switch mode {
	case models.ModeFavorites:
		favs, err := h.results.ListFavorites()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load favorites"})
			return
		}
		ids = h.repo.SelectIDs(favs)
	default:
		ids = h.repo.FilterIDs(req.Domains)
	}

	// Randomize defaults to on; caller must opt out explicitly.
	shuffle := req.Randomize == nil || *req.Randomize

	sess, err := h.service.Start(ids, mode, shuffle)
	if err != nil {
		if errors.Is(err, session.ErrEmptySelection) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "No questions match the selected criteria"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to start quiz"})
		return
	}

	// A new quiz replaces any previous one held by the same client.
	if old := requestToken(r); old != "" {
		h.sessions.Delete(old)
	}

	token, err := h.sessions.Put(sess)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create session"})
		return
	}

	writeJSON(w, http.StatusOK, models.StartQuizResponse{
		Token:          token,
		TotalQuestions: len(sess.QuestionIDs),
		Mode:           sess.Mode,
		Randomized:     sess.Randomized,
	})
}

func (h *Handler) EndQuiz(w http.ResponseWriter, r *http.Request) {
	h.sessions.Delete(requestToken(r))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Quiz session ended"})
}

// ── Navigation ──────────────────────────────────────────

func (h *Handler) CurrentQuestion(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Lock()
	defer sess.Unlock()

	h.writeCurrent(w, sess)
}

func (h *Handler) PreviousQuestion(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Lock()
	defer sess.Unlock()

	if err := h.service.Previous(sess); err != nil {
		if errors.Is(err, session.ErrAtBoundary) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Already at the first question"})
			return
		}
		h.writeServiceError(w, err)
		return
	}
	h.writeCurrent(w, sess)
}

func (h *Handler) SkipQuestion(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Lock()
	defer sess.Unlock()

	if _, err := h.service.Skip(sess); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeCurrent(w, sess)
}

// ── Answering ───────────────────────────────────────────

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Answer.IsZero() {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "answer is required"})
		return
	}

	sess.Lock()
	defer sess.Unlock()

	result, err := h.service.Submit(sess, req.Answer)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SubmitAnswerResponse{
		Correct:       result.Correct,
		CorrectAnswer: result.CorrectAnswer,
		Explanation:   result.Explanation,
		NextAvailable: result.NextAvailable,
	})
}

func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Lock()
	defer sess.Unlock()

	fav, err := h.service.ToggleFavorite(sess)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.FavoriteResponse{IsFavorite: fav})
}

// ── AI Explanations ─────────────────────────────────────

// ExplainAnswer produces a tutoring explanation for the most recent
// submission. Backend failures surface as a message with available=false,
// never as an HTTP error; explanations are advisory.
func (h *Handler) ExplainAnswer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Lock()
	qid := sess.LastQuestionID
	answer := sess.LastAnswer
	correct := sess.LastCorrect
	sess.Unlock()

	if answer == nil || qid == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "No submitted answer to explain"})
		return
	}
	q, found := h.repo.Get(qid)
	if !found {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Question no longer available"})
		return
	}

	text, available := h.explainer.Explain(r.Context(), q, *answer, correct)
	writeJSON(w, http.StatusOK, models.ExplanationResponse{Explanation: text, Available: available})
}

// ExplainQuestion clarifies what the current question is asking without
// revealing the answer.
func (h *Handler) ExplainQuestion(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Lock()
	cur, completed, err := h.service.Current(sess)
	sess.Unlock()

	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if completed {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Quiz already completed"})
		return
	}

	text, available := h.explainer.ExplainQuestion(r.Context(), cur.Question)
	writeJSON(w, http.StatusOK, models.ExplanationResponse{Explanation: text, Available: available})
}

// ── Statistics ──────────────────────────────────────────

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.results.Summary()
	if err != nil {
		log.Printf("[quiz] statistics query failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load statistics"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) ResetStatistics(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.results.ClearAll()
	if err != nil {
		log.Printf("[quiz] statistics reset failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to reset statistics"})
		return
	}
	writeJSON(w, http.StatusOK, models.ResetStatisticsResponse{
		RowsDeleted: deleted,
		Message:     "Statistics cleared; favorites kept",
	})
}

// ── Helpers ─────────────────────────────────────────────

// session resolves the request's token to a live session, writing the error
// response itself when there is none.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.sessions.Get(requestToken(r))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "No active quiz session"})
		return nil, false
	}
	return sess, true
}

// writeCurrent renders the session position: either the question to display
// or the completed terminal state. Callers hold the session lock.
func (h *Handler) writeCurrent(w http.ResponseWriter, sess *session.Session) {
	cur, completed, err := h.service.Current(sess)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if completed {
		writeJSON(w, http.StatusOK, models.QuestionResponse{
			Completed: true,
			Index:     len(sess.QuestionIDs),
			Total:     len(sess.QuestionIDs),
		})
		return
	}

	view := cur.Question.ToQuizQuestion()
	resp := models.QuestionResponse{
		Question:   &view,
		Index:      cur.Index,
		Total:      cur.Total,
		IsFavorite: cur.IsFavorite,
		Mode:       sess.Mode,
	}
	if cur.Answered != nil {
		resp.Answered = &models.AnsweredView{
			Submitted: cur.Answered.Submitted,
			Correct:   cur.Answered.Correct,
			Timestamp: cur.Answered.Timestamp,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNoActiveSession):
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "No active quiz session"})
	case errors.Is(err, session.ErrSessionExhausted):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Quiz already completed"})
	default:
		log.Printf("[quiz] request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal error"})
	}
}

func requestToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
