package quiz

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/cissp-prep/backend/internal/database"
	"github.com/cissp-prep/backend/internal/explain"
	"github.com/cissp-prep/backend/internal/models"
	"github.com/cissp-prep/backend/internal/questions"
	"github.com/cissp-prep/backend/internal/results"
	"github.com/cissp-prep/backend/internal/session"
	_ "modernc.org/sqlite"
)

const testBank = `[
  {"id": "sec1", "domain": "Security Architecture", "type": "single-choice",
   "question": "Which model enforces no read up?",
   "choices": ["Bell-LaPadula", "Biba", "Clark-Wilson", "Brewer-Nash"],
   "answer": "Bell-LaPadula"},
  {"id": "sec2", "domain": "Security Architecture", "type": "single-choice",
   "question": "Which principle limits access to the minimum needed?",
   "choices": ["Least privilege", "Separation of duties", "Defense in depth", "Fail safe"],
   "answer": "Least privilege"},
  {"id": "ops1", "domain": "Security Operations", "type": "ordering",
   "question": "Order the incident response steps.",
   "choices": ["Detection", "Containment", "Eradication"],
   "answer": ["Detection", "Containment", "Eradication"]}
]`

type testApp struct {
	router *mux.Router
	store  *results.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dir := t.TempDir()
	bank := filepath.Join(dir, "bank.json")
	if err := os.WriteFile(bank, []byte(testBank), 0644); err != nil {
		t.Fatal(err)
	}
	repo, err := questions.Load(bank)
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}

	db, err := sql.Open("sqlite", "file:"+filepath.Join(dir, "quiz.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)
	if err := database.Migrate(db, database.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := results.NewStore(db)
	sessions := session.NewStore([]byte("test-secret"), time.Hour)
	service := session.NewService(repo, store)
	explainer := explain.NewWithGenerator(explain.NewMockClient())

	handler := NewHandler(repo, store, sessions, service, explainer)
	router := mux.NewRouter()
	handler.Routes(router.PathPrefix("/api/v1").Subrouter())

	return &testApp{router: router, store: store}
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func (a *testApp) startQuiz(t *testing.T, req models.StartQuizRequest) string {
	t.Helper()
	rec := a.do(t, "POST", "/api/v1/quiz/start", "", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("start quiz: status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp models.StartQuizResponse
	decode(t, rec, &resp)
	if resp.Token == "" {
		t.Fatal("start quiz returned no token")
	}
	return resp.Token
}

func boolPtr(b bool) *bool { return &b }

// ── Tests ───────────────────────────────────────────────

func TestDomains(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, "GET", "/api/v1/domains", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp models.DomainsResponse
	decode(t, rec, &resp)
	if resp.TotalQuestions != 3 {
		t.Errorf("TotalQuestions = %d, want 3", resp.TotalQuestions)
	}
	if len(resp.Domains) != 2 {
		t.Fatalf("Domains = %v, want 2 entries", resp.Domains)
	}
}

func TestStartQuizUnknownDomain(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, "POST", "/api/v1/quiz/start", "", models.StartQuizRequest{
		Domains: []string{"Cryptozoology"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStartQuizUnknownMode(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, "POST", "/api/v1/quiz/start", "", map[string]string{"mode": "speedrun"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQuestionRequiresSession(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, "GET", "/api/v1/quiz/question", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	rec = app.do(t, "GET", "/api/v1/quiz/question", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", rec.Code)
	}
}

func TestQuizFlowSubmitAndAdvance(t *testing.T) {
	app := newTestApp(t)
	token := app.startQuiz(t, models.StartQuizRequest{
		Domains:   []string{"Security Architecture"},
		Randomize: boolPtr(false),
	})

	rec := app.do(t, "GET", "/api/v1/quiz/question", token, nil)
	var q models.QuestionResponse
	decode(t, rec, &q)
	if q.Question == nil || q.Question.ID != "sec1" {
		t.Fatalf("first question = %+v, want sec1", q.Question)
	}
	if q.Index != 0 || q.Total != 2 {
		t.Errorf("position = %d/%d, want 0/2", q.Index, q.Total)
	}

	rec = app.do(t, "POST", "/api/v1/quiz/answer", token, models.SubmitAnswerRequest{
		Answer: models.SingleChoice("Bell-LaPadula"),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var sub models.SubmitAnswerResponse
	decode(t, rec, &sub)
	if !sub.Correct {
		t.Error("correct answer scored as incorrect")
	}
	if !sub.NextAvailable {
		t.Error("NextAvailable should be true with one question left")
	}

	rec = app.do(t, "GET", "/api/v1/quiz/question", token, nil)
	decode(t, rec, &q)
	if q.Question == nil || q.Question.ID != "sec2" {
		t.Errorf("after submit, question = %+v, want sec2", q.Question)
	}
}

func TestSubmitIncorrectRevealsAnswer(t *testing.T) {
	app := newTestApp(t)
	token := app.startQuiz(t, models.StartQuizRequest{
		Domains:   []string{"Security Architecture"},
		Randomize: boolPtr(false),
	})

	rec := app.do(t, "POST", "/api/v1/quiz/answer", token, models.SubmitAnswerRequest{
		Answer: models.SingleChoice("Biba"),
	})
	var sub models.SubmitAnswerResponse
	decode(t, rec, &sub)
	if sub.Correct {
		t.Error("wrong answer scored as correct")
	}
	if sub.CorrectAnswer.Choice != "Bell-LaPadula" {
		t.Errorf("CorrectAnswer = %v, want Bell-LaPadula", sub.CorrectAnswer)
	}
}

func TestSubmitMissingAnswer(t *testing.T) {
	app := newTestApp(t)
	token := app.startQuiz(t, models.StartQuizRequest{Randomize: boolPtr(false)})

	rec := app.do(t, "POST", "/api/v1/quiz/answer", token, map[string]interface{}{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCompletionState(t *testing.T) {
	app := newTestApp(t)
	token := app.startQuiz(t, models.StartQuizRequest{
		Domains:   []string{"Security Operations"},
		Randomize: boolPtr(false),
	})

	rec := app.do(t, "POST", "/api/v1/quiz/answer", token, models.SubmitAnswerRequest{
		Answer: models.Ordering("Detection", "Containment", "Eradication"),
	})
	var sub models.SubmitAnswerResponse
	decode(t, rec, &sub)
	if !sub.Correct || sub.NextAvailable {
		t.Errorf("last submission = %+v, want correct and no next", sub)
	}

	rec = app.do(t, "GET", "/api/v1/quiz/question", token, nil)
	var q models.QuestionResponse
	decode(t, rec, &q)
	if !q.Completed {
		t.Error("quiz should report completed")
	}

	// Further submissions are rejected, not silently dropped.
	rec = app.do(t, "POST", "/api/v1/quiz/answer", token, models.SubmitAnswerRequest{
		Answer: models.Ordering("Detection", "Containment", "Eradication"),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("submit after completion status = %d, want 400", rec.Code)
	}
}

func TestPreviousRedisplaysAnswered(t *testing.T) {
	app := newTestApp(t)
	token := app.startQuiz(t, models.StartQuizRequest{
		Domains:   []string{"Security Architecture"},
		Randomize: boolPtr(false),
	})

	rec := app.do(t, "POST", "/api/v1/quiz/previous", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("previous at start status = %d, want 400", rec.Code)
	}

	app.do(t, "POST", "/api/v1/quiz/answer", token, models.SubmitAnswerRequest{
		Answer: models.SingleChoice("Biba"),
	})

	rec = app.do(t, "POST", "/api/v1/quiz/previous", token, nil)
	var q models.QuestionResponse
	decode(t, rec, &q)
	if q.Question == nil || q.Question.ID != "sec1" {
		t.Fatalf("previous question = %+v, want sec1", q.Question)
	}
	if q.Answered == nil {
		t.Fatal("redisplayed question should carry the recorded answer")
	}
	if q.Answered.Submitted.Choice != "Biba" || q.Answered.Correct {
		t.Errorf("answered = %+v, want Biba incorrect", q.Answered)
	}
}

func TestSkipRecordsNothing(t *testing.T) {
	app := newTestApp(t)
	token := app.startQuiz(t, models.StartQuizRequest{
		Domains:   []string{"Security Architecture"},
		Randomize: boolPtr(false),
	})

	rec := app.do(t, "POST", "/api/v1/quiz/skip", token, nil)
	var q models.QuestionResponse
	decode(t, rec, &q)
	if q.Question == nil || q.Question.ID != "sec2" {
		t.Errorf("after skip, question = %+v, want sec2", q.Question)
	}

	summary, err := app.store.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if summary.OverallAttempts != 0 {
		t.Errorf("skip recorded %d attempts, want 0", summary.OverallAttempts)
	}
}

func TestFavoritesRoundTrip(t *testing.T) {
	app := newTestApp(t)

	// Favorites mode with nothing favorited is an empty selection.
	rec := app.do(t, "POST", "/api/v1/quiz/start", "", models.StartQuizRequest{Mode: models.ModeFavorites})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("favorites-of-nothing status = %d, want 400", rec.Code)
	}

	token := app.startQuiz(t, models.StartQuizRequest{
		Domains:   []string{"Security Architecture"},
		Randomize: boolPtr(false),
	})
	rec = app.do(t, "POST", "/api/v1/quiz/favorite", token, nil)
	var fav models.FavoriteResponse
	decode(t, rec, &fav)
	if !fav.IsFavorite {
		t.Fatal("toggle should favorite the question")
	}

	token = app.startQuiz(t, models.StartQuizRequest{Mode: models.ModeFavorites})
	rec = app.do(t, "GET", "/api/v1/quiz/question", token, nil)
	var q models.QuestionResponse
	decode(t, rec, &q)
	if q.Question == nil || q.Question.ID != "sec1" {
		t.Errorf("favorites quiz question = %+v, want sec1", q.Question)
	}
	if q.Total != 1 {
		t.Errorf("favorites quiz total = %d, want 1", q.Total)
	}
	if !q.IsFavorite {
		t.Error("question in favorites quiz should be flagged as favorite")
	}
}

func TestExplainRequiresSubmission(t *testing.T) {
	app := newTestApp(t)
	token := app.startQuiz(t, models.StartQuizRequest{Randomize: boolPtr(false)})

	rec := app.do(t, "POST", "/api/v1/quiz/explain", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("explain before submit status = %d, want 400", rec.Code)
	}
}

func TestExplainAfterSubmit(t *testing.T) {
	app := newTestApp(t)
	token := app.startQuiz(t, models.StartQuizRequest{
		Domains:   []string{"Security Architecture"},
		Randomize: boolPtr(false),
	})
	app.do(t, "POST", "/api/v1/quiz/answer", token, models.SubmitAnswerRequest{
		Answer: models.SingleChoice("Bell-LaPadula"),
	})

	rec := app.do(t, "POST", "/api/v1/quiz/explain", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("explain status = %d", rec.Code)
	}
	var resp models.ExplanationResponse
	decode(t, rec, &resp)
	if !resp.Available || resp.Explanation == "" {
		t.Errorf("explanation = %+v, want available text", resp)
	}
}

func TestExplainQuestionBeforeAnswering(t *testing.T) {
	app := newTestApp(t)
	token := app.startQuiz(t, models.StartQuizRequest{Randomize: boolPtr(false)})

	rec := app.do(t, "POST", "/api/v1/quiz/explain-question", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("explain-question status = %d", rec.Code)
	}
	var resp models.ExplanationResponse
	decode(t, rec, &resp)
	if !resp.Available {
		t.Error("mock backend should always be available")
	}
}

func TestEndQuizInvalidatesToken(t *testing.T) {
	app := newTestApp(t)
	token := app.startQuiz(t, models.StartQuizRequest{Randomize: boolPtr(false)})

	rec := app.do(t, "DELETE", "/api/v1/quiz", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("end quiz status = %d", rec.Code)
	}
	rec = app.do(t, "GET", "/api/v1/quiz/question", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("question after end status = %d, want 401", rec.Code)
	}
}

func TestStatisticsAndReset(t *testing.T) {
	app := newTestApp(t)
	token := app.startQuiz(t, models.StartQuizRequest{
		Domains:   []string{"Security Architecture"},
		Randomize: boolPtr(false),
	})
	app.do(t, "POST", "/api/v1/quiz/answer", token, models.SubmitAnswerRequest{
		Answer: models.SingleChoice("Bell-LaPadula"),
	})
	app.do(t, "POST", "/api/v1/quiz/answer", token, models.SubmitAnswerRequest{
		Answer: models.SingleChoice("Defense in depth"),
	})

	rec := app.do(t, "GET", "/api/v1/statistics", "", nil)
	var summary models.Summary
	decode(t, rec, &summary)
	if summary.OverallAttempts != 2 || summary.OverallCorrect != 1 {
		t.Errorf("overall = %d/%d, want 1/2", summary.OverallCorrect, summary.OverallAttempts)
	}
	if summary.PerDomain["Security Architecture"].Attempts != 2 {
		t.Errorf("PerDomain = %v", summary.PerDomain)
	}

	rec = app.do(t, "POST", "/api/v1/statistics/reset", "", nil)
	var reset models.ResetStatisticsResponse
	decode(t, rec, &reset)
	if reset.RowsDeleted != 2 {
		t.Errorf("RowsDeleted = %d, want 2", reset.RowsDeleted)
	}

	rec = app.do(t, "GET", "/api/v1/statistics", "", nil)
	decode(t, rec, &summary)
	if summary.OverallAttempts != 0 {
		t.Errorf("attempts after reset = %d, want 0", summary.OverallAttempts)
	}
}

func TestSessionCookieAccepted(t *testing.T) {
	app := newTestApp(t)
	token := app.startQuiz(t, models.StartQuizRequest{Randomize: boolPtr(false)})

	req := httptest.NewRequest("GET", "/api/v1/quiz/question", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("cookie auth status = %d, want 200", rec.Code)
	}
}
