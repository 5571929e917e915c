package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckValueKindMismatch(t *testing.T) {
	q := &Question{ID: "Q", Type: QuestionTypeBoolean, CompliantValue: boolPtr(true)}

	require.NoError(t, q.CheckValue(BoolValue(true)))
	assert.Error(t, q.CheckValue(TextValue("yes")))
	assert.Error(t, q.CheckValue(NumberValue(1)))
}

func TestCheckValueChoiceMustBeDeclared(t *testing.T) {
	q := &Question{ID: "Q", Type: QuestionTypeSingleChoice,
		Options: []Option{{Value: "a", Label: "A"}}}

	require.NoError(t, q.CheckValue(ChoiceValue("a")))
	assert.Error(t, q.CheckValue(ChoiceValue("z")))

	multi := &Question{ID: "Q", Type: QuestionTypeMultiChoice,
		Options: []Option{{Value: "a"}, {Value: "b"}}}
	require.NoError(t, multi.CheckValue(MultiChoiceValue("a", "b")))
	assert.Error(t, multi.CheckValue(MultiChoiceValue("a", "z")))
}

func TestCheckValueNumericBounds(t *testing.T) {
	q := &Question{ID: "Q", Type: QuestionTypeNumeric, ScaleMin: 0, ScaleMax: 10,
		Validation: Validation{Min: floatPtr(0), Max: floatPtr(100)}}

	require.NoError(t, q.CheckValue(NumberValue(50)))
	assert.Error(t, q.CheckValue(NumberValue(-1)))
	assert.Error(t, q.CheckValue(NumberValue(101)))
}

func TestCheckValueTextMaxLength(t *testing.T) {
	q := &Question{ID: "Q", Type: QuestionTypeFreeText,
		Validation: Validation{MaxLength: 5}}

	require.NoError(t, q.CheckValue(TextValue("short")))
	assert.Error(t, q.CheckValue(TextValue("too long for this")))
}

func TestCheckCompleteRequired(t *testing.T) {
	q := &Question{ID: "Q", Type: QuestionTypeBoolean, CompliantValue: boolPtr(true),
		Validation: Validation{Required: true}}

	assert.Error(t, q.CheckComplete(nil))
	ans := &Answer{QuestionID: "Q", Value: BoolValue(false)}
	assert.NoError(t, q.CheckComplete(ans))

	optional := &Question{ID: "Q", Type: QuestionTypeFreeText}
	assert.NoError(t, optional.CheckComplete(nil))
}

func TestCheckCompleteMinLength(t *testing.T) {
	q := &Question{ID: "Q", Type: QuestionTypeFreeText,
		Validation: Validation{MinLength: 10}}

	short := &Answer{QuestionID: "Q", Value: TextValue("   brief  ")}
	assert.Error(t, q.CheckComplete(short)) // whitespace does not count

	long := &Answer{QuestionID: "Q", Value: TextValue("a full sentence here")}
	assert.NoError(t, q.CheckComplete(long))
}

func TestAnswerValueString(t *testing.T) {
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "some text", TextValue("some text").String())
	assert.Equal(t, "2.5", NumberValue(2.5).String())
	assert.Equal(t, "quarterly", ChoiceValue("quarterly").String())
	assert.Equal(t, "mfa, rbac", MultiChoiceValue("mfa", "rbac").String())
}
