package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueKind tags the concrete type carried by an AnswerValue
type ValueKind string

const (
	ValueKindBool        ValueKind = "bool"
	ValueKindText        ValueKind = "text"
	ValueKindNumber      ValueKind = "number"
	ValueKindChoice      ValueKind = "choice"
	ValueKindMultiChoice ValueKind = "multi_choice"
)

// AnswerValue is a closed tagged union over the five question types.
// Only the field matching Kind is meaningful; the scorer switches
// exhaustively on Kind so a malformed payload can never score as the
// wrong type.
type AnswerValue struct {
	Kind    ValueKind `json:"kind" bson:"kind"`
	Bool    bool      `json:"bool,omitempty" bson:"bool,omitempty"`
	Text    string    `json:"text,omitempty" bson:"text,omitempty"`
	Number  float64   `json:"number,omitempty" bson:"number,omitempty"`
	Choice  string    `json:"choice,omitempty" bson:"choice,omitempty"`
	Choices []string  `json:"choices,omitempty" bson:"choices,omitempty"`
}

func BoolValue(v bool) AnswerValue      { return AnswerValue{Kind: ValueKindBool, Bool: v} }
func TextValue(v string) AnswerValue    { return AnswerValue{Kind: ValueKindText, Text: v} }
func NumberValue(v float64) AnswerValue { return AnswerValue{Kind: ValueKindNumber, Number: v} }
func ChoiceValue(v string) AnswerValue  { return AnswerValue{Kind: ValueKindChoice, Choice: v} }
func MultiChoiceValue(v ...string) AnswerValue {
	return AnswerValue{Kind: ValueKindMultiChoice, Choices: v}
}

// String renders the literal answer for Gap.CurrentState and exports
func (v AnswerValue) String() string {
	switch v.Kind {
	case ValueKindBool:
		return strconv.FormatBool(v.Bool)
	case ValueKindText:
		return v.Text
	case ValueKindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case ValueKindChoice:
		return v.Choice
	case ValueKindMultiChoice:
		return strings.Join(v.Choices, ", ")
	}
	return ""
}

// expectedKind maps a question type to the value kind it accepts
func expectedKind(t QuestionType) ValueKind {
	switch t {
	case QuestionTypeBoolean:
		return ValueKindBool
	case QuestionTypeFreeText:
		return ValueKindText
	case QuestionTypeNumeric:
		return ValueKindNumber
	case QuestionTypeSingleChoice:
		return ValueKindChoice
	case QuestionTypeMultiChoice:
		return ValueKindMultiChoice
	}
	return ""
}

// CheckValue validates a value against the question's type and declared
// options/bounds. Required-ness is deliberately not checked here; it is
// enforced on advance so users can revise answers freely.
func (q *Question) CheckValue(v AnswerValue) error {
	want := expectedKind(q.Type)
	if v.Kind != want {
		return fmt.Errorf("question %s expects %s value, got %s", q.ID, want, v.Kind)
	}
	switch v.Kind {
	case ValueKindChoice:
		if q.OptionByValue(v.Choice) == nil {
			return fmt.Errorf("question %s: %q is not a declared option", q.ID, v.Choice)
		}
	case ValueKindMultiChoice:
		for _, c := range v.Choices {
			if q.OptionByValue(c) == nil {
				return fmt.Errorf("question %s: %q is not a declared option", q.ID, c)
			}
		}
	case ValueKindNumber:
		if q.Validation.Min != nil && v.Number < *q.Validation.Min {
			return fmt.Errorf("question %s: value %v below minimum %v", q.ID, v.Number, *q.Validation.Min)
		}
		if q.Validation.Max != nil && v.Number > *q.Validation.Max {
			return fmt.Errorf("question %s: value %v above maximum %v", q.ID, v.Number, *q.Validation.Max)
		}
	case ValueKindText:
		if q.Validation.MaxLength > 0 && len(v.Text) > q.Validation.MaxLength {
			return fmt.Errorf("question %s: answer exceeds %d characters", q.ID, q.Validation.MaxLength)
		}
	}
	return nil
}

// CheckComplete validates the constraints enforced at advance time
func (q *Question) CheckComplete(ans *Answer) error {
	if ans == nil {
		if q.Validation.Required {
			return fmt.Errorf("question %s requires an answer", q.ID)
		}
		return nil
	}
	if q.Type == QuestionTypeFreeText && q.Validation.MinLength > 0 &&
		len(strings.TrimSpace(ans.Value.Text)) < q.Validation.MinLength {
		return fmt.Errorf("question %s: answer must be at least %d characters", q.ID, q.Validation.MinLength)
	}
	return nil
}

// Answer records the latest response to one question.
// Keyed by question id; answering again overwrites, never appends.
type Answer struct {
	QuestionID string      `json:"questionId" bson:"questionId"`
	Value      AnswerValue `json:"value" bson:"value"`
	AnsweredAt time.Time   `json:"answeredAt" bson:"answeredAt"`
}
