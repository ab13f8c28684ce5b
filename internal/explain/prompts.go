package explain

import (
	"fmt"
	"strings"

	"github.com/cissp-prep/backend/internal/models"
)

// Prompt templates are deterministic: the same question and outcome always
// produce the same prompt, so tutoring quality differences come from the
// model, not from prompt drift.

// BuildPostAnswerPrompt asks the tutor to react to a scored submission. The
// four-point structure differs by outcome: reinforcement when correct, a
// walk through the mistake when not.
func BuildPostAnswerPrompt(q *models.Question, userAnswer models.Answer, wasCorrect bool) string {
	var b strings.Builder

	if wasCorrect {
		b.WriteString("You are an expert certification exam tutor. The student answered this question CORRECTLY.\n\n")
		b.WriteString("Provide encouragement and reinforce their understanding:\n")
		b.WriteString("1. Confirm why their answer is correct\n")
		b.WriteString("2. Explain the key concept they demonstrated understanding of\n")
		b.WriteString("3. Mention why the other options were less suitable\n")
		fmt.Fprintf(&b, "4. Share any additional insights about the %s domain\n\n", q.Domain)
	} else {
		b.WriteString("You are an expert certification exam tutor. The student answered this question INCORRECTLY.\n\n")
		b.WriteString("Help them learn from their mistake:\n")
		b.WriteString("1. Explain why their chosen answer was incorrect\n")
		b.WriteString("2. Explain why the correct answer is right\n")
		b.WriteString("3. Identify the key concept they may have missed\n")
		fmt.Fprintf(&b, "4. Provide study tips for the %s domain\n\n", q.Domain)
	}

	writeQuestionBlock(&b, q)

	mark := "CORRECT"
	if !wasCorrect {
		mark = "INCORRECT"
	}
	fmt.Fprintf(&b, "Student's Answer: %s (%s)\n", userAnswer.String(), mark)
	fmt.Fprintf(&b, "Correct Answer: %s\n\n", q.Answer.String())

	if wasCorrect {
		b.WriteString("Keep it positive and educational. Use simple formatting with numbered points.")
	} else {
		b.WriteString("Be supportive but clear about the mistake. Use simple formatting with numbered points.")
	}
	return b.String()
}

// BuildPreAnswerPrompt asks the tutor to clarify what the question wants
// without giving the answer away.
func BuildPreAnswerPrompt(q *models.Question) string {
	var b strings.Builder

	b.WriteString("You are an expert certification exam tutor. Help the student understand what this question is asking.\n\n")
	b.WriteString("Please explain:\n")
	b.WriteString("1. What the question is asking for (the key concept being tested)\n")
	fmt.Fprintf(&b, "2. How this relates to the %s domain\n", q.Domain)
	b.WriteString("3. Any important terms or concepts mentioned in the question\n")
	b.WriteString("4. What approach should be used to think about this type of question\n\n")

	writeQuestionBlock(&b, q)

	b.WriteString("DO NOT reveal the correct answer. Focus on helping the student understand what's being asked ")
	b.WriteString("and the concepts involved. This is to clarify the question, not solve it.")
	return b.String()
}

func writeQuestionBlock(b *strings.Builder, q *models.Question) {
	fmt.Fprintf(b, "Question: %s\n\n", q.Text)
	b.WriteString("Options:\n")
	for i, choice := range q.Choices {
		fmt.Fprintf(b, "%c) %s\n", 'A'+i, choice)
	}
	b.WriteString("\n")
}
