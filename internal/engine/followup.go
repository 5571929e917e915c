package engine

import (
	"context"
	"strings"

	"complianceiq/internal/model"
	"complianceiq/internal/scoring"
)

// FollowUpRequest carries the context the AI capability needs to decide on
// and phrase a clarifying question.
type FollowUpRequest struct {
	AssessmentID string
	Question     *model.Question
	Answer       model.Answer
	Index        int            // follow-up round within this parent, 0-based
	History      []model.Answer // answers to earlier follow-ups of the same parent
}

// FollowUpProvider is the external AI capability. A nil question with a nil
// error means "no further question needed". Implementations must honor
// context cancellation; the engine fails open on any error.
type FollowUpProvider interface {
	GenerateFollowUp(ctx context.Context, req *FollowUpRequest) (*model.Question, error)
}

// Predicate decides whether an answered question warrants a follow-up.
// ans is never nil.
type Predicate func(q *model.Question, ans *model.Answer) bool

// PredicateFromSettings builds the follow-up predicate from the framework's
// declared triggers, so frameworks evolve independently of engine code.
// A framework with no triggers never requests follow-ups.
func PredicateFromSettings(fw *model.Framework) Predicate {
	triggers := fw.Settings.FollowUpTriggers
	return func(q *model.Question, ans *model.Answer) bool {
		for _, t := range triggers {
			if t.QuestionType != q.Type {
				continue
			}
			if t.OnNonCompliant && q.Type == model.QuestionTypeBoolean &&
				q.CompliantValue != nil && ans.Value.Bool != *q.CompliantValue {
				return true
			}
			if t.MinWords > 0 && q.Type == model.QuestionTypeFreeText &&
				len(strings.Fields(ans.Value.Text)) < t.MinWords {
				return true
			}
			if t.BelowScore > 0 {
				if score, ok := scoring.NormalizedScore(q, ans); ok && score < t.BelowScore {
					return true
				}
			}
		}
		return false
	}
}
