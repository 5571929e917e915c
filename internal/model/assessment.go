package model

import "time"

// AssessmentStatus tracks an assessment session's lifecycle
type AssessmentStatus string

const (
	AssessmentInProgress AssessmentStatus = "in_progress"
	AssessmentCompleted  AssessmentStatus = "completed"
	AssessmentAbandoned  AssessmentStatus = "abandoned"
)

// Assessment is the persistent record of one assessment run by one respondent
type Assessment struct {
	ID          string           `json:"id" bson:"_id,omitempty"`
	FrameworkID string           `json:"frameworkId" bson:"frameworkId"`
	Respondent  string           `json:"respondent" bson:"respondent"` // organization or user identifier
	Status      AssessmentStatus `json:"status" bson:"status"`
	StartedAt   time.Time        `json:"startedAt" bson:"startedAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}
