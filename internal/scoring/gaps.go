package scoring

import (
	"fmt"
	"sort"
	"strconv"

	"complianceiq/internal/model"
)

// Severity ladder: a question's normalized score below a rung yields a gap
// of that severity.
const (
	GapThresholdCritical = 40.0
	GapThresholdHigh     = 60.0
	GapThresholdMedium   = 80.0
)

// batchRecommendationMinGaps is the category size at which per-gap
// recommendations get a consolidated batch suggestion, to avoid
// recommendation-list explosion on frameworks with many related questions.
const batchRecommendationMinGaps = 3

func severityFor(score float64) (model.GapSeverity, bool) {
	switch {
	case score < GapThresholdCritical:
		return model.GapSeverityCritical, true
	case score < GapThresholdHigh:
		return model.GapSeverityHigh, true
	case score < GapThresholdMedium:
		return model.GapSeverityMedium, true
	}
	return "", false
}

// DeriveGaps yields one gap per participating question whose normalized
// score falls below the severity ladder. Gap ids are derived from question
// ids so the output is deterministic.
func DeriveGaps(fw *model.Framework, answers map[string]model.Answer) []model.Gap {
	var gaps []model.Gap
	for si := range fw.Sections {
		sec := &fw.Sections[si]
		for qi := range sec.Questions {
			q := &sec.Questions[qi]
			ans := lookup(answers, q.ID)
			score, participates := NormalizedScore(q, ans)
			if !participates {
				continue
			}
			sev, gapped := severityFor(score)
			if !gapped {
				continue
			}
			current := "unanswered"
			if ans != nil {
				current = ans.Value.String()
			}
			gaps = append(gaps, model.Gap{
				ID:           "gap-" + q.ID,
				QuestionID:   q.ID,
				SectionID:    sec.ID,
				Category:     categoryFor(sec, q),
				Severity:     sev,
				Title:        fmt.Sprintf("%s: %s", sec.Title, q.Text),
				Description:  fmt.Sprintf("Answer scored %s out of 100, below the %s severity threshold.", trimFloat(score), sev),
				CurrentState: current,
				TargetState:  targetStateFor(q),
			})
		}
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		if gaps[i].Severity.Rank() != gaps[j].Severity.Rank() {
			return gaps[i].Severity.Rank() < gaps[j].Severity.Rank()
		}
		return gaps[i].ID < gaps[j].ID
	})
	return gaps
}

// DeriveRecommendations produces one remediation item per high/critical gap
// plus a consolidated recommendation for every category carrying three or
// more gaps of any severity.
func DeriveRecommendations(fw *model.Framework, gaps []model.Gap) []model.Recommendation {
	var recs []model.Recommendation
	byCategory := make(map[string][]model.Gap)
	for _, g := range gaps {
		byCategory[g.Category] = append(byCategory[g.Category], g)
		if g.Severity != model.GapSeverityCritical && g.Severity != model.GapSeverityHigh {
			continue
		}
		recs = append(recs, model.Recommendation{
			ID:             "rec-" + g.QuestionID,
			Category:       g.Category,
			Priority:       priorityFor(g.Severity),
			Title:          "Remediate: " + g.Title,
			Description:    fmt.Sprintf("Move from %q to %q.", g.CurrentState, g.TargetState),
			EffortEstimate: EffortForSeverity(g.Severity),
			ImpactScore:    ImpactForSeverity(g.Severity),
		})
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		group := byCategory[c]
		if len(group) < batchRecommendationMinGaps {
			continue
		}
		recs = append(recs, model.Recommendation{
			ID:             "rec-batch-" + c,
			Category:       c,
			Priority:       model.PriorityMediumTerm,
			Title:          fmt.Sprintf("Consolidated remediation program for %s", c),
			Description:    fmt.Sprintf("%d related gaps share this category; address them as one initiative.", len(group)),
			EffortEstimate: "high",
			ImpactScore:    batchImpact(group),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority.Rank() != recs[j].Priority.Rank() {
			return recs[i].Priority.Rank() < recs[j].Priority.Rank()
		}
		return recs[i].ID < recs[j].ID
	})
	return recs
}

func priorityFor(sev model.GapSeverity) model.RecommendationPriority {
	if sev == model.GapSeverityCritical {
		return model.PriorityImmediate
	}
	return model.PriorityShortTerm
}

// EffortForSeverity is the named effort heuristic. It lives here, not in any
// UI layer, so the same assessment always produces the same estimates.
func EffortForSeverity(sev model.GapSeverity) string {
	switch sev {
	case model.GapSeverityCritical:
		return "high"
	case model.GapSeverityHigh:
		return "medium"
	}
	return "low"
}

// ImpactForSeverity is the named impact heuristic, 0-1
func ImpactForSeverity(sev model.GapSeverity) float64 {
	switch sev {
	case model.GapSeverityCritical:
		return 0.9
	case model.GapSeverityHigh:
		return 0.7
	case model.GapSeverityMedium:
		return 0.4
	}
	return 0.2
}

func batchImpact(gaps []model.Gap) float64 {
	sum := 0.0
	for _, g := range gaps {
		sum += ImpactForSeverity(g.Severity)
	}
	return sum / float64(len(gaps))
}

// targetStateFor reads the framework-declared ideal; when absent it falls
// back to the declared compliant value or best-scored option, never to
// option ordering.
func targetStateFor(q *model.Question) string {
	if q.TargetState != "" {
		return q.TargetState
	}
	switch q.Type {
	case model.QuestionTypeBoolean:
		if q.CompliantValue != nil {
			return strconv.FormatBool(*q.CompliantValue)
		}
	case model.QuestionTypeSingleChoice, model.QuestionTypeMultiChoice:
		best := -1.0
		label := ""
		for _, opt := range q.Options {
			if opt.Score > best {
				best = opt.Score
				label = opt.Label
			}
		}
		return label
	case model.QuestionTypeNumeric:
		return fmt.Sprintf(">= %s", trimFloat(q.ScaleMax))
	}
	return "documented and reviewed"
}

func categoryFor(sec *model.Section, q *model.Question) string {
	if q.Category != "" {
		return q.Category
	}
	if sec.Category != "" {
		return sec.Category
	}
	return sec.ID
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
