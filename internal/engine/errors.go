package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineFinalized is returned for any mutation after the assessment
	// completed. A caller bug, not a user error.
	ErrEngineFinalized = errors.New("assessment already finalized")

	// ErrNotStarted is returned by reads when the framework has no sections.
	// Defensive; Framework.Validate rejects such frameworks at load time.
	ErrNotStarted = errors.New("assessment not started: framework has no sections")
)

// ValidationError means the current question's answer fails its
// required/format constraints. Recoverable, surfaced to the user inline.
type ValidationError struct {
	QuestionID string
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.QuestionID, e.Message)
}

// NavigationError means an illegal jump (forward-skip or out-of-range).
// Indicates a caller bug rather than user error.
type NavigationError struct {
	Requested  int
	MaxReached int
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("cannot jump to section %d: highest section reached is %d", e.Requested, e.MaxReached)
}

// IncompleteAssessmentError means results were requested while required
// questions lack answers. The caller should return the user to the first
// unanswered required question.
type IncompleteAssessmentError struct {
	QuestionID   string
	SectionIndex int
}

func (e *IncompleteAssessmentError) Error() string {
	return fmt.Sprintf("assessment incomplete: required question %s is unanswered", e.QuestionID)
}
