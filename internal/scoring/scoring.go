// Package scoring reduces a framework and its answers into the final
// assessment result. Every function here is pure and deterministic: no
// randomness, no wall clock, framework iteration order only (never map
// order), so identical inputs always produce identical results.
package scoring

import (
	"time"

	"complianceiq/internal/model"
)

// FreeTextNeutralScore is the score assigned to answered free-text
// questions. Free text is out of scope for automatic scoring, so it
// contributes a neutral midpoint rather than penalizing or rewarding;
// reviewer overrides, where supplied, replace it.
const FreeTextNeutralScore = 50.0

// NormalizedScore maps one question's answer to 0-100. The second return
// reports whether the question participates in scoring at all: unanswered
// optional questions are excluded from the weight denominator entirely,
// while unanswered required questions score 0.
func NormalizedScore(q *model.Question, ans *model.Answer) (float64, bool) {
	if ans == nil {
		if q.Validation.Required {
			return 0, true
		}
		return 0, false
	}

	switch q.Type {
	case model.QuestionTypeBoolean:
		// Compliant value is framework-declared per question, never assumed true
		if q.CompliantValue != nil && ans.Value.Bool == *q.CompliantValue {
			return 100, true
		}
		return 0, true

	case model.QuestionTypeSingleChoice:
		if opt := q.OptionByValue(ans.Value.Choice); opt != nil {
			return clamp(opt.Score, 0, 100), true
		}
		return 0, true

	case model.QuestionTypeMultiChoice:
		if len(ans.Value.Choices) == 0 {
			if q.Validation.Required {
				return 0, true
			}
			return 0, false
		}
		sum := 0.0
		for _, c := range ans.Value.Choices {
			if opt := q.OptionByValue(c); opt != nil {
				sum += clamp(opt.Score, 0, 100)
			}
		}
		return sum / float64(len(ans.Value.Choices)), true

	case model.QuestionTypeNumeric:
		span := q.ScaleMax - q.ScaleMin
		if span <= 0 {
			return 0, true
		}
		return clamp((ans.Value.Number-q.ScaleMin)/span*100, 0, 100), true

	case model.QuestionTypeFreeText:
		return FreeTextNeutralScore, true
	}

	return 0, false
}

// SectionScore is the weighted average of the section's participating
// questions, 0-100. ok is false when no question in the section was
// answered; such sections are excluded from the overall score rather than
// counted as zero.
func SectionScore(sec *model.Section, answers map[string]model.Answer) (score float64, weight float64, ok bool) {
	var sum, weights float64
	answered := false
	for qi := range sec.Questions {
		q := &sec.Questions[qi]
		ans := lookup(answers, q.ID)
		s, participates := NormalizedScore(q, ans)
		if !participates {
			continue
		}
		if ans != nil {
			answered = true
		}
		w := q.EffectiveWeight()
		sum += w * s
		weights += w
	}
	if !answered || weights == 0 {
		return 0, 0, false
	}
	return sum / weights, weights, true
}

// Calculate reduces (framework, answers) into the terminal AssessmentResult.
// assessmentID and completedAt are supplied by the caller; everything else
// is a pure function of the inputs.
func Calculate(fw *model.Framework, answers map[string]model.Answer, assessmentID string, completedAt time.Time) *model.AssessmentResult {
	sectionScores := make(map[string]float64, len(fw.Sections))
	var overallSum, overallWeight float64
	for si := range fw.Sections {
		sec := &fw.Sections[si]
		score, weight, ok := SectionScore(sec, answers)
		if !ok {
			continue
		}
		sectionScores[sec.ID] = score
		overallSum += weight * score
		overallWeight += weight
	}

	overall := 0.0
	if overallWeight > 0 {
		overall = overallSum / overallWeight
	}

	gaps := DeriveGaps(fw, answers)
	return &model.AssessmentResult{
		AssessmentID:    assessmentID,
		FrameworkID:     fw.ID,
		OverallScore:    overall,
		SectionScores:   sectionScores,
		Gaps:            gaps,
		Recommendations: DeriveRecommendations(fw, gaps),
		CompletedAt:     completedAt,
	}
}

func lookup(answers map[string]model.Answer, id string) *model.Answer {
	if a, ok := answers[id]; ok {
		return &a
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
