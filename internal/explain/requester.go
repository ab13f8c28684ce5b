package explain

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/cissp-prep/backend/internal/models"
)

// requestTimeout bounds one generation round-trip. There are no retries and
// no mid-flight aborts; a request either completes or times out.
const requestTimeout = 60 * time.Second

// Requester formats tutoring prompts and forwards them to a text-generation
// backend. It is advisory and best-effort: transport and service failures
// come back as user-facing message strings, never as errors, because the
// rest of the app must keep working when no model is reachable.
type Requester struct {
	gen TextGenerator
}

// New picks a backend. MOCK_EXPLAINER=true forces canned output,
// ANTHROPIC_API_KEY selects the hosted API, otherwise the local Ollama
// server is probed. When nothing is reachable the requester stays in the
// unavailable state and every request degrades to a message.
func New(ollamaHost, preferredModel string) *Requester {
	if os.Getenv("MOCK_EXPLAINER") == "true" {
		log.Println("Explainer using mock output")
		return &Requester{gen: NewMockClient()}
	}

	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		model := os.Getenv("ANTHROPIC_MODEL")
		if model == "" {
			model = "claude-sonnet-4-20250514"
		}
		log.Println("Explainer using Anthropic API:", model)
		return &Requester{gen: NewAnthropicClient(model)}
	}

	client := NewOllamaClient(ollamaHost, preferredModel)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	names, err := client.ListModels(ctx)
	if err != nil {
		log.Printf("Ollama not available - explanations will be disabled (%v)", err)
		return &Requester{}
	}
	if len(names) == 0 {
		log.Println("Ollama running but no models found - explanations disabled")
		return &Requester{}
	}
	model := preferredModel
	if !contains(names, model) {
		model = names[0]
	}
	client.SetModel(model)
	log.Println("Explainer using Ollama model:", model)
	return &Requester{gen: client}
}

// NewWithGenerator wires an explicit backend. Used by tests and by callers
// that do their own probing.
func NewWithGenerator(gen TextGenerator) *Requester {
	return &Requester{gen: gen}
}

func (r *Requester) Available() bool {
	return r != nil && r.gen != nil
}

// Explain requests a post-answer tutoring explanation for a scored
// submission. The second return value reports whether the text came from the
// model (true) or is a degradation message (false).
func (r *Requester) Explain(ctx context.Context, q *models.Question, userAnswer models.Answer, wasCorrect bool) (string, bool) {
	return r.request(ctx, BuildPostAnswerPrompt(q, userAnswer, wasCorrect))
}

// ExplainQuestion requests a pre-answer explanation of the question's intent
// without revealing the answer.
func (r *Requester) ExplainQuestion(ctx context.Context, q *models.Question) (string, bool) {
	return r.request(ctx, BuildPreAnswerPrompt(q))
}

func (r *Requester) request(ctx context.Context, prompt string) (string, bool) {
	if !r.Available() {
		return "explanation unavailable: no text-generation backend is configured", false
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	text, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		log.Printf("[explain] %s generate error: %v", r.gen.Name(), err)
		return "explanation unavailable: " + err.Error(), false
	}
	return text, true
}

func contains(names []string, want string) bool {
	for _, name := range names {
		if name == want {
			return true
		}
	}
	return false
}
