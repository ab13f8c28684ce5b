package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Answer holds a submitted or correct answer. Single-choice answers carry
// one choice string; ordering answers carry the full permutation. On the
// wire an answer is either a JSON string or a JSON array of strings.
type Answer struct {
	Choice string
	Order  []string
}

func SingleChoice(choice string) Answer {
	return Answer{Choice: choice}
}

func Ordering(items ...string) Answer {
	return Answer{Order: items}
}

func (a Answer) IsOrdering() bool {
	return a.Order != nil
}

func (a Answer) IsZero() bool {
	return a.Choice == "" && a.Order == nil
}

// Equal is exact structural equality: string equality for single-choice,
// ordered element-wise equality for ordering. No partial credit.
func (a Answer) Equal(other Answer) bool {
	if a.IsOrdering() != other.IsOrdering() {
		return false
	}
	if !a.IsOrdering() {
		return a.Choice == other.Choice
	}
	if len(a.Order) != len(other.Order) {
		return false
	}
	for i := range a.Order {
		if a.Order[i] != other.Order[i] {
			return false
		}
	}
	return true
}

func (a Answer) String() string {
	if a.IsOrdering() {
		return strings.Join(a.Order, ", ")
	}
	return a.Choice
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.IsOrdering() {
		return json.Marshal(a.Order)
	}
	return json.Marshal(a.Choice)
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*a = Answer{}
		return nil
	}
	if trimmed[0] == '[' {
		var order []string
		if err := json.Unmarshal(trimmed, &order); err != nil {
			return fmt.Errorf("answer array: %w", err)
		}
		*a = Answer{Order: order}
		return nil
	}
	var choice string
	if err := json.Unmarshal(trimmed, &choice); err != nil {
		return fmt.Errorf("answer: %w", err)
	}
	*a = Answer{Choice: choice}
	return nil
}
