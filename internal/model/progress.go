package model

import "time"

// AssessmentProgress is a derived view over the answer store and framework.
// It is recomputed on every mutation and never persisted directly.
type AssessmentProgress struct {
	TotalQuestions    int    `json:"totalQuestions"`
	AnsweredQuestions int    `json:"answeredQuestions"`
	CurrentSection    string `json:"currentSection"`
	CurrentQuestion   string `json:"currentQuestion"`
	PercentComplete   int    `json:"percentComplete"`
	// Linear extrapolation from the framework's average-seconds-per-question
	// constant. An estimate, not a guarantee.
	EstimatedTimeRemaining time.Duration `json:"estimatedTimeRemaining"`
}

// StateKind tags the navigation state persisted in a snapshot
type StateKind string

const (
	StateInSection  StateKind = "in_section"
	StateInFollowUp StateKind = "in_follow_up"
	StateCompleted  StateKind = "completed"
)

// ProgressSnapshot is the autosave payload handed to the progress
// collaborator after every mutation, and the input for resuming a session.
// A snapshot taken mid-follow-up resumes at the same follow-up index.
type ProgressSnapshot struct {
	AssessmentID      string    `json:"assessmentId" bson:"assessmentId"`
	FrameworkID       string    `json:"frameworkId" bson:"frameworkId"`
	State             StateKind `json:"state" bson:"state"`
	SectionIndex      int       `json:"sectionIndex" bson:"sectionIndex"`
	QuestionIndex     int       `json:"questionIndex" bson:"questionIndex"`
	MaxSectionReached int       `json:"maxSectionReached" bson:"maxSectionReached"`

	// Follow-up sub-mode, valid when State == StateInFollowUp
	FollowUpParentID string     `json:"followUpParentId,omitempty" bson:"followUpParentId,omitempty"`
	FollowUpIndex    int        `json:"followUpIndex,omitempty" bson:"followUpIndex,omitempty"`
	FollowUps        []Question `json:"followUps,omitempty" bson:"followUps,omitempty"` // materialized AI questions, all parents

	Answers   []Answer           `json:"answers" bson:"answers"`
	Progress  AssessmentProgress `json:"progress" bson:"progress"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}
