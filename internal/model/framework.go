package model

import (
	"fmt"
	"time"
)

// QuestionType defines the type of question
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "single_choice" // One option, per-option declared score
	QuestionTypeMultiChoice  QuestionType = "multi_choice"  // Several options, averaged score
	QuestionTypeFreeText     QuestionType = "free_text"     // Not auto-scored, neutral midpoint
	QuestionTypeNumeric      QuestionType = "numeric"       // Interpolated between declared thresholds
	QuestionTypeBoolean      QuestionType = "boolean"       // Compliant value declared per question
)

// Option is a selectable choice with its declared compliance score
type Option struct {
	Value string  `json:"value" bson:"value"`
	Label string  `json:"label" bson:"label"`
	Score float64 `json:"score" bson:"score"` // 0-100
}

// Validation holds per-question answer constraints.
// Required is enforced on advance, not on answer, so users can revise freely.
type Validation struct {
	Required  bool     `json:"required" bson:"required"`
	MinLength int      `json:"minLength,omitempty" bson:"minLength,omitempty"`
	MaxLength int      `json:"maxLength,omitempty" bson:"maxLength,omitempty"`
	Min       *float64 `json:"min,omitempty" bson:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" bson:"max,omitempty"`
}

// Question is a single assessment question.
// Scoring metadata (CompliantValue, Option.Score, ScaleMin/ScaleMax,
// TargetState) is declared in the framework, never inferred from option order.
type Question struct {
	ID         string       `json:"id" bson:"id"`
	Text       string       `json:"text" bson:"text"`
	Type       QuestionType `json:"type" bson:"type"`
	Options    []Option     `json:"options,omitempty" bson:"options,omitempty"`
	Validation Validation   `json:"validation" bson:"validation"`
	Weight     float64      `json:"weight" bson:"weight"`     // defaults to 1
	Category   string       `json:"category" bson:"category"` // gap/recommendation grouping

	// Boolean questions only: which value counts as compliant
	CompliantValue *bool `json:"compliantValue,omitempty" bson:"compliantValue,omitempty"`

	// Numeric questions only: thresholds for linear score interpolation
	ScaleMin float64 `json:"scaleMin,omitempty" bson:"scaleMin,omitempty"`
	ScaleMax float64 `json:"scaleMax,omitempty" bson:"scaleMax,omitempty"`

	// Declared ideal state, surfaced as Gap.TargetState
	TargetState string `json:"targetState,omitempty" bson:"targetState,omitempty"`

	// Set only on AI follow-ups: the framework question being clarified.
	// Follow-up ids are synthetic ("Q3:ai:0") and never collide with
	// framework ids.
	ParentID string `json:"parentId,omitempty" bson:"parentId,omitempty"`
}

// IsFollowUp reports whether the question was AI-generated rather than
// framework-defined
func (q *Question) IsFollowUp() bool {
	return q.ParentID != ""
}

// Section is an ordered group of related questions
type Section struct {
	ID        string     `json:"id" bson:"id"`
	Title     string     `json:"title" bson:"title"`
	Order     int        `json:"order" bson:"order"`
	Category  string     `json:"category,omitempty" bson:"category,omitempty"`
	Questions []Question `json:"questions" bson:"questions"`
}

// FollowUpTrigger declares when an answered question warrants an AI follow-up.
// Triggers are framework data so frameworks can evolve without engine changes.
type FollowUpTrigger struct {
	QuestionType   QuestionType `json:"questionType" bson:"questionType"`
	OnNonCompliant bool         `json:"onNonCompliant,omitempty" bson:"onNonCompliant,omitempty"` // boolean answered non-compliant
	MinWords       int          `json:"minWords,omitempty" bson:"minWords,omitempty"`             // free text shorter than this
	BelowScore     float64      `json:"belowScore,omitempty" bson:"belowScore,omitempty"`         // normalized score under this
}

// FrameworkSettings configures engine behavior for one framework
type FrameworkSettings struct {
	MaxFollowUps          int               `json:"maxFollowUps" bson:"maxFollowUps"` // per question, 0 means DefaultMaxFollowUps
	AvgSecondsPerQuestion int               `json:"avgSecondsPerQuestion" bson:"avgSecondsPerQuestion"`
	FollowUpTriggers      []FollowUpTrigger `json:"followUpTriggers,omitempty" bson:"followUpTriggers,omitempty"`
}

const (
	DefaultMaxFollowUps          = 3
	DefaultAvgSecondsPerQuestion = 30
)

// Framework is the static, versioned definition of an assessment.
// It is read-only and safely shared across concurrent engine instances.
type Framework struct {
	ID        string            `json:"id" bson:"_id,omitempty"`
	Version   string            `json:"version" bson:"version"`
	Title     string            `json:"title" bson:"title"`
	Settings  FrameworkSettings `json:"settings" bson:"settings"`
	Sections  []Section         `json:"sections" bson:"sections"`
	CreatedAt time.Time         `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt" bson:"updatedAt"`
}

// MaxFollowUps returns the configured follow-up cap, falling back to the default
func (f *Framework) MaxFollowUps() int {
	if f.Settings.MaxFollowUps > 0 {
		return f.Settings.MaxFollowUps
	}
	return DefaultMaxFollowUps
}

// AvgSecondsPerQuestion returns the time-estimate constant for progress
func (f *Framework) AvgSecondsPerQuestion() int {
	if f.Settings.AvgSecondsPerQuestion > 0 {
		return f.Settings.AvgSecondsPerQuestion
	}
	return DefaultAvgSecondsPerQuestion
}

// TotalQuestions counts framework-defined questions (AI follow-ups excluded)
func (f *Framework) TotalQuestions() int {
	n := 0
	for i := range f.Sections {
		n += len(f.Sections[i].Questions)
	}
	return n
}

// QuestionByID looks up a framework question by id
func (f *Framework) QuestionByID(id string) *Question {
	for si := range f.Sections {
		for qi := range f.Sections[si].Questions {
			if f.Sections[si].Questions[qi].ID == id {
				return &f.Sections[si].Questions[qi]
			}
		}
	}
	return nil
}

// Validate rejects malformed frameworks at load time so scoring never has to.
func (f *Framework) Validate() error {
	if len(f.Sections) == 0 {
		return fmt.Errorf("framework %s: at least one section required", f.ID)
	}
	seen := make(map[string]bool)
	for si := range f.Sections {
		sec := &f.Sections[si]
		if sec.ID == "" {
			return fmt.Errorf("framework %s: section %d missing id", f.ID, si)
		}
		if si > 0 && sec.Order <= f.Sections[si-1].Order {
			return fmt.Errorf("framework %s: section %s order must be monotonic", f.ID, sec.ID)
		}
		for qi := range sec.Questions {
			q := &sec.Questions[qi]
			if q.ID == "" {
				return fmt.Errorf("framework %s: section %s question %d missing id", f.ID, sec.ID, qi)
			}
			if seen[q.ID] {
				return fmt.Errorf("framework %s: duplicate question id %s", f.ID, q.ID)
			}
			seen[q.ID] = true
			if q.Weight < 0 {
				return fmt.Errorf("question %s: weight must be positive", q.ID)
			}
			switch q.Type {
			case QuestionTypeSingleChoice, QuestionTypeMultiChoice:
				if len(q.Options) == 0 {
					return fmt.Errorf("question %s: choice questions need at least one option", q.ID)
				}
			case QuestionTypeBoolean:
				if q.CompliantValue == nil {
					return fmt.Errorf("question %s: boolean questions must declare a compliant value", q.ID)
				}
			case QuestionTypeNumeric:
				if q.ScaleMax <= q.ScaleMin {
					return fmt.Errorf("question %s: scaleMax must exceed scaleMin", q.ID)
				}
			case QuestionTypeFreeText:
				// no extra metadata
			default:
				return fmt.Errorf("question %s: unknown type %q", q.ID, q.Type)
			}
		}
	}
	return nil
}

// EffectiveWeight returns the question weight with the default applied
func (q *Question) EffectiveWeight() float64 {
	if q.Weight > 0 {
		return q.Weight
	}
	return 1
}

// OptionByValue looks up a declared option
func (q *Question) OptionByValue(value string) *Option {
	for i := range q.Options {
		if q.Options[i].Value == value {
			return &q.Options[i]
		}
	}
	return nil
}
