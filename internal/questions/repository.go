package questions

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cissp-prep/backend/internal/models"
)

// LoadError reports a question source that could not be loaded. It names the
// offending file so a bad bank is fixable instead of silently dropped.
type LoadError struct {
	File   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.File, e.Reason, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.File, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Repository is the immutable, process-lifetime collection of loaded
// questions. It is the single source of truth for question content; sessions
// store only question IDs and look content up here.
type Repository struct {
	questions []models.Question
	byID      map[string]int // index into questions
}

// Load reads the given JSON files in order. When the same question ID appears
// in more than one source, the later source wins and replaces the earlier
// entry in place.
func Load(paths ...string) (*Repository, error) {
	repo := &Repository{byID: make(map[string]int)}
	for _, path := range paths {
		loaded, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		for _, q := range loaded {
			if i, ok := repo.byID[q.ID]; ok {
				log.Printf("[questions] duplicate id %q: %s overrides %s", q.ID, q.Source, repo.questions[i].Source)
				repo.questions[i] = q
				continue
			}
			repo.byID[q.ID] = len(repo.questions)
			repo.questions = append(repo.questions, q)
		}
	}
	return repo, nil
}

// LoadDir walks dir recursively and loads every .json file, in path order.
func LoadDir(dir string) (*Repository, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, &LoadError{File: dir, Reason: "walk data directory", Err: err}
	}
	sort.Strings(paths)
	return Load(paths...)
}

func (r *Repository) Len() int {
	return len(r.questions)
}

// All returns the loaded questions in load order. Callers must not mutate
// the returned slice.
func (r *Repository) All() []models.Question {
	return r.questions
}

func (r *Repository) Get(id string) (*models.Question, bool) {
	i, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return &r.questions[i], true
}

// Domains returns per-domain question counts, sorted by domain name.
func (r *Repository) Domains() []models.DomainCount {
	counts := make(map[string]int)
	for _, q := range r.questions {
		counts[q.Domain]++
	}
	domains := make([]models.DomainCount, 0, len(counts))
	for domain, n := range counts {
		domains = append(domains, models.DomainCount{Domain: domain, Questions: n})
	}
	sort.Slice(domains, func(i, j int) bool { return domains[i].Domain < domains[j].Domain })
	return domains
}

// FilterIDs returns the IDs of questions in any of the given domains, in
// load order. An empty domain list selects the whole bank.
func (r *Repository) FilterIDs(domains []string) []string {
	if len(domains) == 0 {
		ids := make([]string, len(r.questions))
		for i, q := range r.questions {
			ids[i] = q.ID
		}
		return ids
	}
	wanted := make(map[string]bool, len(domains))
	for _, d := range domains {
		wanted[d] = true
	}
	var ids []string
	for _, q := range r.questions {
		if wanted[q.Domain] {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

// SelectIDs returns the IDs of questions whose ID is in the given set, in
// load order.
func (r *Repository) SelectIDs(idSet map[string]bool) []string {
	var ids []string
	for _, q := range r.questions {
		if idSet[q.ID] {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

// ── Source Parsing ──────────────────────────────────────

// sourceQuestion accepts both supported bank shapes: the folder format
// (id/question/choices/answer) and the exported format
// (question_number/question_text/options A-D/correct_answer).
type sourceQuestion struct {
	ID             json.RawMessage   `json:"id"`
	QuestionNumber json.RawMessage   `json:"question_number"`
	Domain         string            `json:"domain"`
	Type           string            `json:"type"`
	Question       string            `json:"question"`
	Text           string            `json:"text"`
	QuestionText   string            `json:"question_text"`
	Choices        []string          `json:"choices"`
	Options        map[string]string `json:"options"`
	Answer         models.Answer     `json:"answer"`
	CorrectAnswer  string            `json:"correct_answer"`
	Explanation    string            `json:"explanation"`
}

type sourceFile struct {
	Questions []sourceQuestion `json:"questions"`
}

func loadFile(path string) ([]models.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Reason: "read file", Err: err}
	}

	items, err := parseItems(data)
	if err != nil {
		return nil, &LoadError{File: path, Reason: "parse JSON", Err: err}
	}

	questions := make([]models.Question, 0, len(items))
	for i, item := range items {
		q, err := item.toQuestion(path, i)
		if err != nil {
			return nil, &LoadError{File: path, Reason: fmt.Sprintf("entry %d: %v", i+1, err)}
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// parseItems accepts either a bare array of questions or an object with a
// "questions" array.
func parseItems(data []byte) ([]sourceQuestion, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var file sourceFile
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, err
		}
		return file.Questions, nil
	}
	var items []sourceQuestion
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// optionKeys is the defined field order for the lettered options format.
var optionKeys = []string{"A", "B", "C", "D"}

func (sq *sourceQuestion) toQuestion(path string, index int) (models.Question, error) {
	text := sq.Question
	if text == "" {
		text = sq.Text
	}
	if text == "" {
		text = sq.QuestionText
	}
	if text == "" {
		return models.Question{}, fmt.Errorf("missing question text")
	}

	choices := sq.Choices
	answer := sq.Answer
	if len(choices) == 0 && len(sq.Options) > 0 {
		for _, key := range optionKeys {
			if text, ok := sq.Options[key]; ok {
				choices = append(choices, text)
			}
		}
		// correct_answer is a letter; resolve it to the choice text. An
		// unknown letter is kept verbatim, matching the exporter's looser
		// entries.
		if answer.IsZero() && sq.CorrectAnswer != "" {
			if resolved, ok := sq.Options[sq.CorrectAnswer]; ok {
				answer = models.SingleChoice(resolved)
			} else {
				answer = models.SingleChoice(sq.CorrectAnswer)
			}
		}
	}
	if len(choices) == 0 {
		return models.Question{}, fmt.Errorf("missing choices")
	}
	if answer.IsZero() && sq.CorrectAnswer != "" {
		answer = models.SingleChoice(sq.CorrectAnswer)
	}
	if answer.IsZero() {
		return models.Question{}, fmt.Errorf("missing answer")
	}

	qType, err := normalizeType(sq.Type)
	if err != nil {
		return models.Question{}, err
	}
	if qType == models.TypeOrdering && !answer.IsOrdering() {
		return models.Question{}, fmt.Errorf("ordering question requires an array answer")
	}

	domain := sq.Domain
	if domain == "" {
		domain = "Unknown"
	}

	return models.Question{
		ID:          resolveID(sq, path, index),
		Domain:      domain,
		Type:        qType,
		Text:        text,
		Choices:     choices,
		Answer:      answer,
		Explanation: sq.Explanation,
		Source:      path,
	}, nil
}

// normalizeType maps source type tags to the closed enum. Legacy banks tag
// single-choice questions as "mcq"; absence defaults to single-choice.
func normalizeType(t string) (models.QuestionType, error) {
	switch t {
	case "", "mcq", string(models.TypeSingleChoice):
		return models.TypeSingleChoice, nil
	case string(models.TypeOrdering):
		return models.TypeOrdering, nil
	default:
		return "", fmt.Errorf("unknown question type %q", t)
	}
}

// resolveID builds a stable string ID: explicit id, then question_number,
// then <filename>_<position>. Raw values may be JSON strings or numbers.
func resolveID(sq *sourceQuestion, path string, index int) string {
	if id := rawToString(sq.ID); id != "" {
		return id
	}
	if id := rawToString(sq.QuestionNumber); id != "" {
		return id
	}
	base := strings.TrimSuffix(filepath.Base(path), ".json")
	return fmt.Sprintf("%s_%d", base, index+1)
}

func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
