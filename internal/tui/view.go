package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cissp-prep/backend/internal/models"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	correctStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	wrongStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	favoriteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bodyStyle     = lipgloss.NewStyle().PaddingLeft(2)
)

func (m Model) View() string {
	if m.fetching {
		return bodyStyle.Render(m.spinner.View() + " Asking the tutor...")
	}

	switch m.phase {
	case phaseMenu:
		return m.viewMenu()
	case phaseQuestion:
		return m.viewQuestion()
	case phaseFeedback:
		return m.viewFeedback()
	case phaseExplanation:
		return m.viewExplanation()
	case phaseSummary:
		return m.viewSummary()
	case phaseStats:
		return m.viewStats()
	case phaseError:
		return m.viewError()
	}
	return ""
}

func (m Model) viewMenu() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("CISSP Prep") + "\n\n")
	b.WriteString("Pick a domain to drill:\n\n")
	for i, item := range m.menuItems {
		cursor := "  "
		line := item
		if i == m.menuCursor {
			cursor = cursorStyle.Render("> ")
			line = cursorStyle.Render(item)
		}
		b.WriteString(cursor + line + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("up/down move, enter select, q quit"))
	return bodyStyle.Render(b.String())
}

func (m Model) viewQuestion() string {
	q := m.current.Question
	var b strings.Builder

	header := fmt.Sprintf("Question %d of %d  [%s]", m.current.Index+1, m.current.Total, q.Domain)
	if m.current.IsFavorite {
		header += "  " + favoriteStyle.Render("* favorite")
	}
	b.WriteString(titleStyle.Render(header) + "\n\n")
	b.WriteString(wrap(q.Text, m.contentWidth()) + "\n\n")

	if q.Type == models.TypeOrdering {
		b.WriteString(dimStyle.Render("Arrange in the correct order (space grabs a row):") + "\n\n")
		for i, choice := range m.order {
			marker := "  "
			line := fmt.Sprintf("%d. %s", i+1, choice)
			if i == m.cursor {
				marker = cursorStyle.Render("> ")
				if m.grabbed {
					marker = cursorStyle.Render("* ")
				}
				line = cursorStyle.Render(line)
			}
			b.WriteString(marker + line + "\n")
		}
	} else {
		for i, choice := range q.Choices {
			marker := "  "
			line := fmt.Sprintf("%c) %s", 'A'+i, choice)
			if i == m.cursor {
				marker = cursorStyle.Render("> ")
				line = cursorStyle.Render(line)
			}
			b.WriteString(marker + line + "\n")
		}
	}

	if m.current.Answered != nil {
		verdict := correctStyle.Render("correct")
		if !m.current.Answered.Correct {
			verdict = wrongStyle.Render("incorrect")
		}
		b.WriteString("\n" + dimStyle.Render("Previously answered: "+m.current.Answered.Submitted.String()+" (") + verdict + dimStyle.Render(")") + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("enter submit, n skip, p back, f favorite, e explain, q menu"))
	return bodyStyle.Render(b.String())
}

func (m Model) viewFeedback() string {
	var b strings.Builder
	if m.result.Correct {
		b.WriteString(correctStyle.Render("Correct!") + "\n\n")
	} else {
		b.WriteString(wrongStyle.Render("Incorrect.") + "\n\n")
		b.WriteString("Correct answer: " + m.result.CorrectAnswer.String() + "\n\n")
	}
	if m.result.Explanation != "" {
		b.WriteString(wrap(m.result.Explanation, m.contentWidth()) + "\n\n")
	}
	hints := "enter next, p back, q menu"
	if m.explainer.Available() {
		hints = "enter next, e ask the tutor, p back, q menu"
	}
	b.WriteString(dimStyle.Render(hints))
	return bodyStyle.Render(b.String())
}

func (m Model) viewExplanation() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Tutor") + "\n\n")
	b.WriteString(wrap(m.explanation, m.contentWidth()) + "\n\n")
	b.WriteString(dimStyle.Render("enter next, b back, q menu"))
	return bodyStyle.Render(b.String())
}

func (m Model) viewSummary() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Quiz complete") + "\n\n")

	answered := 0
	correct := 0
	if m.sess != nil {
		answered = len(m.sess.Answered)
		for _, entry := range m.sess.Answered {
			if entry.Correct {
				correct++
			}
		}
		b.WriteString(fmt.Sprintf("Questions: %d  Answered: %d  Correct: %d\n", len(m.sess.QuestionIDs), answered, correct))
		if answered > 0 {
			b.WriteString(fmt.Sprintf("Score: %.0f%%\n", float64(correct)/float64(answered)*100))
		}
	}
	b.WriteString("\n" + dimStyle.Render("enter back to menu"))
	return bodyStyle.Render(b.String())
}

func (m Model) viewStats() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Statistics") + "\n\n")
	s := m.summary
	b.WriteString(fmt.Sprintf("Overall: %d correct of %d attempts\n", s.OverallCorrect, s.OverallAttempts))
	b.WriteString(fmt.Sprintf("Favorites: %d\n\n", s.FavoriteCount))

	domains := make([]string, 0, len(s.PerDomain))
	for d := range s.PerDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	for _, d := range domains {
		stats := s.PerDomain[d]
		b.WriteString(fmt.Sprintf("  %-40s %d/%d\n", d, stats.Correct, stats.Attempts))
	}

	if len(s.Recent) > 0 {
		b.WriteString("\nRecent attempts:\n")
		for _, r := range s.Recent {
			verdict := "correct"
			if !r.Correct {
				verdict = "incorrect"
			}
			b.WriteString(fmt.Sprintf("  %s  %-30s %s\n", r.Timestamp.Format("2006-01-02 15:04"), r.Domain, verdict))
		}
	}
	b.WriteString("\n" + dimStyle.Render("enter back to menu"))
	return bodyStyle.Render(b.String())
}

func (m Model) viewError() string {
	var b strings.Builder
	b.WriteString(wrongStyle.Render("Error") + "\n\n")
	if m.err != nil {
		b.WriteString(m.err.Error() + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("enter back to menu, q quit"))
	return bodyStyle.Render(b.String())
}

func (m Model) contentWidth() int {
	if m.width > 8 {
		return m.width - 4
	}
	return 76
}

// wrap breaks text at word boundaries to fit the terminal width.
func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var b strings.Builder
	lineLen := 0
	for _, word := range strings.Fields(text) {
		if lineLen > 0 && lineLen+1+len(word) > width {
			b.WriteString("\n")
			lineLen = 0
		} else if lineLen > 0 {
			b.WriteString(" ")
			lineLen++
		}
		b.WriteString(word)
		lineLen += len(word)
	}
	return b.String()
}
