package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complianceiq/internal/model"
)

func ladderFramework() *model.Framework {
	opts := []model.Option{
		{Value: "s30", Label: "Thirty", Score: 30},
		{Value: "s50", Label: "Fifty", Score: 50},
		{Value: "s70", Label: "Seventy", Score: 70},
		{Value: "s85", Label: "Eighty-five", Score: 85},
	}
	return &model.Framework{
		ID: "fw",
		Sections: []model.Section{
			{
				ID:       "s1",
				Title:    "Ladder",
				Order:    1,
				Category: "controls",
				Questions: []model.Question{
					{ID: "Q1", Text: "one", Type: model.QuestionTypeSingleChoice, Options: opts},
					{ID: "Q2", Text: "two", Type: model.QuestionTypeSingleChoice, Options: opts},
					{ID: "Q3", Text: "three", Type: model.QuestionTypeSingleChoice, Options: opts},
					{ID: "Q4", Text: "four", Type: model.QuestionTypeSingleChoice, Options: opts},
				},
			},
		},
	}
}

func TestDeriveGapsSeverityLadder(t *testing.T) {
	fw := ladderFramework()
	answers := map[string]model.Answer{
		"Q1": ans("Q1", model.ChoiceValue("s30")), // < 40: critical
		"Q2": ans("Q2", model.ChoiceValue("s50")), // < 60: high
		"Q3": ans("Q3", model.ChoiceValue("s70")), // < 80: medium
		"Q4": ans("Q4", model.ChoiceValue("s85")), // no gap
	}

	gaps := DeriveGaps(fw, answers)
	require.Len(t, gaps, 3)

	// sorted by severity rank, critical first
	assert.Equal(t, "gap-Q1", gaps[0].ID)
	assert.Equal(t, model.GapSeverityCritical, gaps[0].Severity)
	assert.Equal(t, "gap-Q2", gaps[1].ID)
	assert.Equal(t, model.GapSeverityHigh, gaps[1].Severity)
	assert.Equal(t, "gap-Q3", gaps[2].ID)
	assert.Equal(t, model.GapSeverityMedium, gaps[2].Severity)
}

func TestDeriveGapsUnansweredRequired(t *testing.T) {
	fw := ladderFramework()
	fw.Sections[0].Questions[0].Validation.Required = true
	answers := map[string]model.Answer{
		"Q2": ans("Q2", model.ChoiceValue("s85")),
		"Q3": ans("Q3", model.ChoiceValue("s85")),
		"Q4": ans("Q4", model.ChoiceValue("s85")),
	}

	gaps := DeriveGaps(fw, answers)
	require.Len(t, gaps, 1)
	assert.Equal(t, "gap-Q1", gaps[0].ID)
	assert.Equal(t, model.GapSeverityCritical, gaps[0].Severity)
	assert.Equal(t, "unanswered", gaps[0].CurrentState)
}

func TestDeriveGapsSkipsUnansweredOptional(t *testing.T) {
	fw := ladderFramework()
	gaps := DeriveGaps(fw, map[string]model.Answer{})
	assert.Empty(t, gaps)
}

func TestGapCategoryPrecedence(t *testing.T) {
	fw := ladderFramework()
	fw.Sections[0].Questions[0].Category = "question-level"
	answers := map[string]model.Answer{
		"Q1": ans("Q1", model.ChoiceValue("s30")),
		"Q2": ans("Q2", model.ChoiceValue("s30")),
	}

	gaps := DeriveGaps(fw, answers)
	require.Len(t, gaps, 2)
	assert.Equal(t, "question-level", gaps[0].Category)
	assert.Equal(t, "controls", gaps[1].Category) // falls back to the section

	fw.Sections[0].Category = ""
	gaps = DeriveGaps(fw, answers)
	assert.Equal(t, "s1", gaps[1].Category) // then to the section id
}

func TestTargetStateFallbacks(t *testing.T) {
	declared := &model.Question{TargetState: "declared ideal"}
	assert.Equal(t, "declared ideal", targetStateFor(declared))

	boolean := &model.Question{Type: model.QuestionTypeBoolean, CompliantValue: boolPtr(true)}
	assert.Equal(t, "true", targetStateFor(boolean))

	choice := &model.Question{Type: model.QuestionTypeSingleChoice, Options: []model.Option{
		{Value: "a", Label: "Worst", Score: 10},
		{Value: "b", Label: "Best", Score: 90},
	}}
	assert.Equal(t, "Best", targetStateFor(choice))

	numeric := &model.Question{Type: model.QuestionTypeNumeric, ScaleMin: 0, ScaleMax: 10}
	assert.Equal(t, ">= 10", targetStateFor(numeric))

	text := &model.Question{Type: model.QuestionTypeFreeText}
	assert.Equal(t, "documented and reviewed", targetStateFor(text))
}

func TestDeriveRecommendationsPerGap(t *testing.T) {
	fw := ladderFramework()
	answers := map[string]model.Answer{
		"Q1": ans("Q1", model.ChoiceValue("s30")), // critical -> immediate
		"Q2": ans("Q2", model.ChoiceValue("s50")), // high -> short term
		"Q3": ans("Q3", model.ChoiceValue("s70")), // medium -> no per-gap rec
	}

	gaps := DeriveGaps(fw, answers)
	recs := DeriveRecommendations(fw, gaps)

	// two per-gap recs plus the batch rec for the 3-gap category
	require.Len(t, recs, 3)
	assert.Equal(t, "rec-Q1", recs[0].ID)
	assert.Equal(t, model.PriorityImmediate, recs[0].Priority)
	assert.Equal(t, "high", recs[0].EffortEstimate)
	assert.Equal(t, 0.9, recs[0].ImpactScore)

	assert.Equal(t, "rec-Q2", recs[1].ID)
	assert.Equal(t, model.PriorityShortTerm, recs[1].Priority)
	assert.Equal(t, "medium", recs[1].EffortEstimate)

	assert.Equal(t, "rec-batch-controls", recs[2].ID)
	assert.Equal(t, model.PriorityMediumTerm, recs[2].Priority)
}

func TestDeriveRecommendationsNoBatchBelowThreshold(t *testing.T) {
	fw := ladderFramework()
	answers := map[string]model.Answer{
		"Q1": ans("Q1", model.ChoiceValue("s30")),
		"Q2": ans("Q2", model.ChoiceValue("s50")),
	}

	recs := DeriveRecommendations(fw, DeriveGaps(fw, answers))
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.NotContains(t, r.ID, "batch")
	}
}

func TestDeriveRecommendationsDeterministicOrder(t *testing.T) {
	fw := ladderFramework()
	answers := map[string]model.Answer{
		"Q1": ans("Q1", model.ChoiceValue("s30")),
		"Q2": ans("Q2", model.ChoiceValue("s30")),
		"Q3": ans("Q3", model.ChoiceValue("s50")),
	}

	gaps := DeriveGaps(fw, answers)
	a := DeriveRecommendations(fw, gaps)
	b := DeriveRecommendations(fw, gaps)
	assert.Equal(t, a, b)

	// immediate recs first, sorted by id within the same priority
	assert.Equal(t, "rec-Q1", a[0].ID)
	assert.Equal(t, "rec-Q2", a[1].ID)
}
