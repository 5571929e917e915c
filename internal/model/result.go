package model

import "time"

// GapSeverity represents the severity of a compliance gap
type GapSeverity string

const (
	GapSeverityLow      GapSeverity = "low"
	GapSeverityMedium   GapSeverity = "medium"
	GapSeverityHigh     GapSeverity = "high"
	GapSeverityCritical GapSeverity = "critical"
)

// Rank orders severities for stable sorting (critical first)
func (s GapSeverity) Rank() int {
	switch s {
	case GapSeverityCritical:
		return 0
	case GapSeverityHigh:
		return 1
	case GapSeverityMedium:
		return 2
	case GapSeverityLow:
		return 3
	}
	return 4
}

// Gap is a scored shortfall against a compliance target, derived from one
// answer. Immutable once produced.
type Gap struct {
	ID           string      `json:"id" bson:"id"`
	QuestionID   string      `json:"questionId" bson:"questionId"`
	SectionID    string      `json:"sectionId" bson:"sectionId"`
	Category     string      `json:"category" bson:"category"`
	Severity     GapSeverity `json:"severity" bson:"severity"`
	Title        string      `json:"title" bson:"title"`
	Description  string      `json:"description" bson:"description"`
	CurrentState string      `json:"current_state" bson:"current_state"`
	TargetState  string      `json:"target_state" bson:"target_state"`
}

// RecommendationPriority buckets remediation urgency
type RecommendationPriority string

const (
	PriorityImmediate  RecommendationPriority = "immediate"
	PriorityShortTerm  RecommendationPriority = "short_term"
	PriorityMediumTerm RecommendationPriority = "medium_term"
	PriorityLongTerm   RecommendationPriority = "long_term"
)

// Rank orders priorities for stable sorting (immediate first)
func (p RecommendationPriority) Rank() int {
	switch p {
	case PriorityImmediate:
		return 0
	case PriorityShortTerm:
		return 1
	case PriorityMediumTerm:
		return 2
	case PriorityLongTerm:
		return 3
	}
	return 4
}

// Recommendation is a prioritized remediation suggestion derived from one or
// more gaps
type Recommendation struct {
	ID             string                 `json:"id" bson:"id"`
	Category       string                 `json:"category" bson:"category"`
	Priority       RecommendationPriority `json:"priority" bson:"priority"`
	Title          string                 `json:"title" bson:"title"`
	Description    string                 `json:"description" bson:"description"`
	EffortEstimate string                 `json:"effort_estimate" bson:"effort_estimate"`
	ImpactScore    float64                `json:"impact_score" bson:"impact_score"` // 0-1
}

// AssessmentResult is the immutable, terminal artifact of one assessment run.
// Once produced the engine that made it accepts no further answers.
type AssessmentResult struct {
	AssessmentID    string             `json:"assessmentId" bson:"_id,omitempty"`
	FrameworkID     string             `json:"frameworkId" bson:"frameworkId"`
	OverallScore    float64            `json:"overallScore" bson:"overallScore"`   // 0-100
	SectionScores   map[string]float64 `json:"sectionScores" bson:"sectionScores"` // section id -> 0-100
	Gaps            []Gap              `json:"gaps" bson:"gaps"`
	Recommendations []Recommendation   `json:"recommendations" bson:"recommendations"`
	CompletedAt     time.Time          `json:"completedAt" bson:"completedAt"`
}
