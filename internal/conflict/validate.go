package conflict

import (
	"fmt"
	"time"

	"github.com/seanmcgrath/stash/internal/model"
)

// ValidationResult collects every problem found in a resolved record.
// Violations are gathered, not short-circuited, so the caller sees all of
// them at once.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// ValidateResolution checks a resolved record before it is persisted. The
// record must carry a non-empty id, title, and url, and neither created_at
// nor updated_at may be in the future relative to validation time.
func (e *Engine) ValidateResolution(local, remote, resolved *model.Article) ValidationResult {
	now := e.now()
	var problems []string

	if resolved == nil {
		return ValidationResult{Errors: []string{"resolved record is nil"}}
	}
	if resolved.ID == "" {
		problems = append(problems, "resolved record has an empty id")
	}
	if resolved.Title == "" {
		problems = append(problems, "resolved record has an empty title")
	}
	if resolved.URL == "" {
		problems = append(problems, "resolved record has an empty url")
	}
	if resolved.CreatedAt.After(now) {
		problems = append(problems, fmt.Sprintf("created_at %s is in the future", resolved.CreatedAt.Format(time.RFC3339)))
	}
	if resolved.UpdatedAt.After(now) {
		problems = append(problems, fmt.Sprintf("updated_at %s is in the future", resolved.UpdatedAt.Format(time.RFC3339)))
	}

	return ValidationResult{Valid: len(problems) == 0, Errors: problems}
}
