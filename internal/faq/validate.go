// File path: internal/faq/validate.go
package faq

import (
	"fmt"
	"strings"
)

// Violation describes one defect in the FAQ corpus. PairID is empty when the
// pair has no id to report against.
type Violation struct {
	PairID  string
	Field   string
	Message string
}

func (v Violation) String() string {
	if v.PairID == "" {
		return fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return fmt.Sprintf("%s: %s: %s", v.PairID, v.Field, v.Message)
}

// Validate checks every pair and reports all violations rather than stopping
// at the first, so the validator tool can print the full picture.
func Validate(pairs []Pair) []Violation {
	var violations []Violation
	seen := make(map[string]int, len(pairs))
	for idx, pair := range pairs {
		label := pair.ID
		if label == "" {
			label = fmt.Sprintf("pair[%d]", idx)
		}
		if strings.TrimSpace(pair.ID) == "" {
			violations = append(violations, Violation{PairID: label, Field: "id", Message: "missing"})
		} else if first, dup := seen[pair.ID]; dup {
			violations = append(violations, Violation{
				PairID:  pair.ID,
				Field:   "id",
				Message: fmt.Sprintf("duplicate of pair[%d]", first),
			})
		} else {
			seen[pair.ID] = idx
		}
		if strings.TrimSpace(pair.Question) == "" {
			violations = append(violations, Violation{PairID: label, Field: "q", Message: "missing question"})
		}
		if strings.TrimSpace(pair.Answer) == "" {
			violations = append(violations, Violation{PairID: label, Field: "a", Message: "missing answer"})
		}
	}
	return violations
}
