package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cissp-prep/backend/internal/explain"
	"github.com/cissp-prep/backend/internal/models"
	"github.com/cissp-prep/backend/internal/questions"
	"github.com/cissp-prep/backend/internal/results"
	"github.com/cissp-prep/backend/internal/session"
)

// phase names the screen currently shown. Transitions follow the quiz
// lifecycle: menu -> question -> feedback -> ... -> summary -> menu.
type phase int

const (
	phaseMenu phase = iota
	phaseQuestion
	phaseFeedback
	phaseExplanation
	phaseSummary
	phaseStats
	phaseError
)

// menu entries below the per-domain rows.
const (
	menuAllDomains = "All domains"
	menuFavorites  = "Favorites"
	menuStats      = "Statistics"
	menuQuit       = "Quit"
)

// Model drives the interactive terminal quiz. Unlike the web handler it
// owns the session directly; there is exactly one and it lives only as long
// as the program.
type Model struct {
	repo      *questions.Repository
	results   *results.Store
	service   *session.Service
	explainer *explain.Requester

	phase   phase
	width   int
	spinner spinner.Model

	// Menu state.
	menuItems  []string
	menuCursor int

	// Active quiz state.
	sess    *session.Session
	current *session.Current
	cursor  int      // choice cursor (single-choice) or row cursor (ordering)
	order   []string // working permutation for ordering questions
	grabbed bool     // ordering: whether the cursor row moves with the cursor

	// Feedback and explanation state.
	result      *session.SubmitResult
	explanation string
	fetching    bool

	// Statistics screen.
	summary *models.Summary

	err error
}

func New(repo *questions.Repository, store *results.Store, service *session.Service, explainer *explain.Requester) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	items := make([]string, 0, len(repo.Domains())+4)
	for _, d := range repo.Domains() {
		items = append(items, d.Domain)
	}
	items = append(items, menuAllDomains, menuFavorites, menuStats, menuQuit)

	return Model{
		repo:      repo,
		results:   store,
		service:   service,
		explainer: explainer,
		phase:     phaseMenu,
		spinner:   sp,
		menuItems: items,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// ── Messages ────────────────────────────────────────────

// explanationMsg delivers the result of an async explanation request.
type explanationMsg struct {
	text string
	ok   bool
}

// fetchExplanation runs the LLM request off the update loop. The requester
// already degrades failures to message text, so there is no error branch.
func fetchExplanation(explainer *explain.Requester, q *models.Question, answer models.Answer, correct bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		text, ok := explainer.Explain(ctx, q, answer, correct)
		return explanationMsg{text: text, ok: ok}
	}
}

func fetchQuestionExplanation(explainer *explain.Requester, q *models.Question) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		text, ok := explainer.ExplainQuestion(ctx, q)
		return explanationMsg{text: text, ok: ok}
	}
}

// ── Update ──────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		return m, nil

	case spinner.TickMsg:
		if !m.fetching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd

	case explanationMsg:
		m.fetching = false
		m.explanation = typed.text
		m.phase = phaseExplanation
		return m, nil

	case tea.KeyMsg:
		if typed.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.handleKey(typed)
	}
	return m, nil
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.phase {
	case phaseMenu:
		return m.updateMenu(key)
	case phaseQuestion:
		return m.updateQuestion(key)
	case phaseFeedback:
		return m.updateFeedback(key)
	case phaseExplanation:
		return m.updateExplanation(key)
	case phaseSummary, phaseStats, phaseError:
		return m.updateTerminal(key)
	}
	return m, nil
}

func (m Model) updateMenu(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k":
		if m.menuCursor > 0 {
			m.menuCursor--
		}
	case "down", "j":
		if m.menuCursor < len(m.menuItems)-1 {
			m.menuCursor++
		}
	case "q":
		return m, tea.Quit
	case "enter":
		return m.selectMenuItem()
	}
	return m, nil
}

func (m Model) selectMenuItem() (tea.Model, tea.Cmd) {
	choice := m.menuItems[m.menuCursor]
	switch choice {
	case menuQuit:
		return m, tea.Quit
	case menuStats:
		summary, err := m.results.Summary()
		if err != nil {
			return m.fail(err)
		}
		m.summary = summary
		m.phase = phaseStats
		return m, nil
	case menuFavorites:
		favs, err := m.results.ListFavorites()
		if err != nil {
			return m.fail(err)
		}
		return m.startQuiz(m.repo.SelectIDs(favs), models.ModeFavorites)
	case menuAllDomains:
		return m.startQuiz(m.repo.FilterIDs(nil), models.ModeNormal)
	default:
		return m.startQuiz(m.repo.FilterIDs([]string{choice}), models.ModeNormal)
	}
}

func (m Model) startQuiz(ids []string, mode models.QuizMode) (tea.Model, tea.Cmd) {
	sess, err := m.service.Start(ids, mode, true)
	if err != nil {
		return m.fail(err)
	}
	m.sess = sess
	return m.showCurrent()
}

// showCurrent loads the question at the session position, or the summary
// when the session has completed.
func (m Model) showCurrent() (tea.Model, tea.Cmd) {
	cur, completed, err := m.service.Current(m.sess)
	if err != nil {
		return m.fail(err)
	}
	if completed {
		m.phase = phaseSummary
		return m, nil
	}
	m.current = cur
	m.cursor = 0
	m.grabbed = false
	m.result = nil
	m.explanation = ""
	if cur.Question.Type == models.TypeOrdering {
		m.order = append([]string(nil), cur.Question.Choices...)
	} else {
		m.order = nil
	}
	m.phase = phaseQuestion
	return m, nil
}

func (m Model) updateQuestion(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	q := m.current.Question
	rows := len(q.Choices)

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			if m.grabbed {
				m.order[m.cursor], m.order[m.cursor-1] = m.order[m.cursor-1], m.order[m.cursor]
			}
			m.cursor--
		}
	case "down", "j":
		if m.cursor < rows-1 {
			if m.grabbed {
				m.order[m.cursor], m.order[m.cursor+1] = m.order[m.cursor+1], m.order[m.cursor]
			}
			m.cursor++
		}
	case " ":
		if q.Type == models.TypeOrdering {
			m.grabbed = !m.grabbed
		}
	case "enter":
		return m.submit()
	case "n":
		if _, err := m.service.Skip(m.sess); err != nil {
			return m.fail(err)
		}
		return m.showCurrent()
	case "p":
		if err := m.service.Previous(m.sess); err != nil && err != session.ErrAtBoundary {
			return m.fail(err)
		}
		return m.showCurrent()
	case "f":
		fav, err := m.service.ToggleFavorite(m.sess)
		if err != nil {
			return m.fail(err)
		}
		m.current.IsFavorite = fav
	case "e":
		if m.explainer.Available() {
			m.fetching = true
			return m, tea.Batch(m.spinner.Tick, fetchQuestionExplanation(m.explainer, q))
		}
	case "q":
		m.phase = phaseMenu
		m.sess = nil
	}
	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	q := m.current.Question
	var answer models.Answer
	if q.Type == models.TypeOrdering {
		answer = models.Answer{Order: append([]string(nil), m.order...)}
	} else {
		answer = models.SingleChoice(q.Choices[m.cursor])
	}

	result, err := m.service.Submit(m.sess, answer)
	if err != nil {
		return m.fail(err)
	}
	m.result = result
	m.phase = phaseFeedback
	return m, nil
}

func (m Model) updateFeedback(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "enter", "n":
		return m.showCurrent()
	case "p":
		if err := m.service.Previous(m.sess); err != nil && err != session.ErrAtBoundary {
			return m.fail(err)
		}
		return m.showCurrent()
	case "e":
		if m.explainer.Available() && m.sess.LastAnswer != nil {
			q, ok := m.repo.Get(m.sess.LastQuestionID)
			if ok {
				m.fetching = true
				return m, tea.Batch(m.spinner.Tick, fetchExplanation(m.explainer, q, *m.sess.LastAnswer, m.sess.LastCorrect))
			}
		}
	case "q":
		m.phase = phaseMenu
		m.sess = nil
	}
	return m, nil
}

func (m Model) updateExplanation(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "enter", "n":
		if m.result != nil {
			return m.showCurrent()
		}
		m.phase = phaseQuestion
	case "b":
		if m.result != nil {
			m.phase = phaseFeedback
		} else {
			m.phase = phaseQuestion
		}
	case "q":
		m.phase = phaseMenu
		m.sess = nil
	}
	return m, nil
}

// updateTerminal handles the screens that only lead back to the menu.
func (m Model) updateTerminal(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q":
		if m.phase == phaseError {
			return m, tea.Quit
		}
		fallthrough
	case "enter", "b":
		m.phase = phaseMenu
		m.sess = nil
		m.err = nil
	}
	return m, nil
}

func (m Model) fail(err error) (tea.Model, tea.Cmd) {
	m.err = err
	m.phase = phaseError
	return m, nil
}
