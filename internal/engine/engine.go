// Package engine drives a respondent through a multi-section assessment
// framework: navigation with validation, conditional AI follow-up
// injection, progress tracking, and terminal scoring.
//
// One Engine instance owns exactly one in-progress assessment. It holds a
// mutable cursor and answer store and is not safe for concurrent use; the
// surrounding application serializes all calls from a single logical owner.
// The Framework it reads is immutable and shared freely.
package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"complianceiq/internal/model"
	"complianceiq/internal/scoring"
)

// Config carries the engine's collaborators. Zero values are usable:
// a nil Provider disables follow-ups, a nil Predicate falls back to the
// framework's declared triggers, a nil Now uses the wall clock.
type Config struct {
	AssessmentID string
	Provider     FollowUpProvider
	Predicate    Predicate
	OnProgress   func(*model.ProgressSnapshot)
	Now          func() time.Time
}

// navState is the tagged navigation variant: inSection, inFollowUp, or
// completed. Illegal combinations (follow-up mode with no parent) are
// unrepresentable because the follow-up fields are only read when kind is
// StateInFollowUp.
type navState struct {
	kind     model.StateKind
	section  int
	question int

	// follow-up sub-mode; section/question keep the parent's position
	fuParent string
	fuIndex  int
}

// Engine is the questionnaire state machine for one assessment session
type Engine struct {
	fw           *model.Framework
	assessmentID string
	answers      map[string]model.Answer
	state        navState
	maxSection   int  // highest section index reached, bounds JumpToSection
	atEnd        bool // cursor parked past the last question, ready to submit
	finalized    bool

	// materialized AI follow-ups by parent question id, in round order
	followUps map[string][]model.Question

	provider   FollowUpProvider
	predicate  Predicate
	onProgress func(*model.ProgressSnapshot)
	now        func() time.Time
}

// New builds an engine positioned at the first question of the first
// section. The framework is validated up front so malformed data is
// rejected at load time, never mid-assessment.
func New(fw *model.Framework, cfg Config) (*Engine, error) {
	if err := fw.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		fw:           fw,
		assessmentID: cfg.AssessmentID,
		answers:      make(map[string]model.Answer),
		followUps:    make(map[string][]model.Question),
		provider:     cfg.Provider,
		predicate:    cfg.Predicate,
		onProgress:   cfg.OnProgress,
		now:          cfg.Now,
	}
	if e.predicate == nil {
		e.predicate = PredicateFromSettings(fw)
	}
	if e.now == nil {
		e.now = time.Now
	}
	start, ok := firstQuestionAt(fw, 0)
	if !ok {
		return nil, fmt.Errorf("framework %s has no questions", fw.ID)
	}
	e.state = start
	e.maxSection = start.section
	return e, nil
}

// firstQuestionAt finds the first non-empty section at or after index s
func firstQuestionAt(fw *model.Framework, s int) (navState, bool) {
	for ; s < len(fw.Sections); s++ {
		if len(fw.Sections[s].Questions) > 0 {
			return navState{kind: model.StateInSection, section: s}, true
		}
	}
	return navState{}, false
}

// CurrentSection returns the section the cursor is in
func (e *Engine) CurrentSection() (*model.Section, error) {
	if len(e.fw.Sections) == 0 {
		return nil, ErrNotStarted
	}
	if e.finalized {
		return nil, ErrEngineFinalized
	}
	return &e.fw.Sections[e.state.section], nil
}

// CurrentQuestion returns the question under the cursor; in follow-up mode
// this is the pending AI question.
func (e *Engine) CurrentQuestion() (*model.Question, error) {
	if len(e.fw.Sections) == 0 {
		return nil, ErrNotStarted
	}
	if e.finalized {
		return nil, ErrEngineFinalized
	}
	if e.state.kind == model.StateInFollowUp {
		lst := e.followUps[e.state.fuParent]
		if e.state.fuIndex < len(lst) {
			return &lst[e.state.fuIndex], nil
		}
		return nil, fmt.Errorf("follow-up %d for %s not materialized", e.state.fuIndex, e.state.fuParent)
	}
	sec := &e.fw.Sections[e.state.section]
	return &sec.Questions[e.state.question], nil
}

// questionByID resolves framework questions and materialized follow-ups
func (e *Engine) questionByID(id string) *model.Question {
	if q := e.fw.QuestionByID(id); q != nil {
		return q
	}
	for parent := range e.followUps {
		lst := e.followUps[parent]
		for i := range lst {
			if lst[i].ID == id {
				return &lst[i]
			}
		}
	}
	return nil
}

// AnswerQuestion validates the value against the question's type and
// upserts it into the answer store (latest write wins). Required-ness is
// enforced at advance time, not here, so answers can be revised freely.
// Navigation state never changes.
func (e *Engine) AnswerQuestion(questionID string, value model.AnswerValue) error {
	if e.finalized {
		return ErrEngineFinalized
	}
	q := e.questionByID(questionID)
	if q == nil {
		return &ValidationError{QuestionID: questionID, Message: "unknown question"}
	}
	if err := q.CheckValue(value); err != nil {
		return &ValidationError{QuestionID: questionID, Message: err.Error()}
	}
	e.answers[questionID] = model.Answer{
		QuestionID: questionID,
		Value:      value,
		AnsweredAt: e.now(),
	}
	e.notifyProgress()
	return nil
}

// NextQuestion advances the cursor. It validates the current question's
// required/format constraints first, enters (or continues) the AI follow-up
// sub-mode when the framework's triggers warrant it, rolls over section
// boundaries, and returns false with a nil error once the last question is
// behind the cursor — the caller reads false as "ready to submit".
//
// The follow-up fetch honors ctx; on provider error, timeout, or
// cancellation the engine fails open and advances as if no follow-up was
// needed. The transition either fully completes or the state is unchanged.
func (e *Engine) NextQuestion(ctx context.Context) (bool, error) {
	if e.finalized {
		return false, ErrEngineFinalized
	}
	if len(e.fw.Sections) == 0 {
		return false, ErrNotStarted
	}

	if e.state.kind == model.StateInFollowUp {
		return e.nextFromFollowUp(ctx)
	}
	if e.atEnd {
		// already parked past the last question; still ready to submit
		return false, nil
	}

	sec := &e.fw.Sections[e.state.section]
	q := &sec.Questions[e.state.question]
	ans := e.lookup(q.ID)
	if err := q.CheckComplete(ans); err != nil {
		return false, &ValidationError{QuestionID: q.ID, Message: err.Error()}
	}

	if ans != nil && e.fw.MaxFollowUps() > 0 && e.predicate(q, ans) {
		if fu := e.fetchFollowUp(ctx, q, *ans, 0); fu != nil {
			e.state.kind = model.StateInFollowUp
			e.state.fuParent = q.ID
			e.state.fuIndex = 0
			e.notifyProgress()
			return true, nil
		}
	}
	return e.advanceCursor()
}

// nextFromFollowUp continues the bounded follow-up sequence or returns
// control to the main navigation.
func (e *Engine) nextFromFollowUp(ctx context.Context) (bool, error) {
	parent := e.fw.QuestionByID(e.state.fuParent)
	next := e.state.fuIndex + 1
	if parent != nil && next < e.fw.MaxFollowUps() {
		if ans := e.lookup(parent.ID); ans != nil {
			if fu := e.fetchFollowUp(ctx, parent, *ans, next); fu != nil {
				e.state.fuIndex = next
				e.notifyProgress()
				return true, nil
			}
		}
	}
	// exhausted (provider declined, errored, or cap reached): force-advance
	e.state.kind = model.StateInSection
	e.state.fuParent = ""
	e.state.fuIndex = 0
	return e.advanceCursor()
}

// fetchFollowUp returns the follow-up for the given round, reusing a
// previously materialized question when resuming or re-visiting. Any
// provider failure degrades to nil: an assessment must stay completable
// even with the AI capability down.
func (e *Engine) fetchFollowUp(ctx context.Context, parent *model.Question, ans model.Answer, index int) *model.Question {
	if lst := e.followUps[parent.ID]; index < len(lst) {
		return &lst[index]
	}
	if e.provider == nil {
		return nil
	}
	gen, err := e.provider.GenerateFollowUp(ctx, &FollowUpRequest{
		AssessmentID: e.assessmentID,
		Question:     parent,
		Answer:       ans,
		Index:        index,
		History:      e.followUpAnswers(parent.ID),
	})
	if err != nil || gen == nil || gen.Text == "" {
		return nil
	}
	q := model.Question{
		ID:       fmt.Sprintf("%s:ai:%d", parent.ID, index),
		Text:     gen.Text,
		Type:     model.QuestionTypeFreeText,
		Category: parent.Category,
		ParentID: parent.ID,
	}
	e.followUps[parent.ID] = append(e.followUps[parent.ID], q)
	lst := e.followUps[parent.ID]
	return &lst[len(lst)-1]
}

// followUpAnswers collects the answers given to a parent's earlier
// follow-ups, in round order.
func (e *Engine) followUpAnswers(parentID string) []model.Answer {
	var out []model.Answer
	for _, fu := range e.followUps[parentID] {
		if a, ok := e.answers[fu.ID]; ok {
			out = append(out, a)
		}
	}
	return out
}

// advanceCursor moves to the next framework question, rolling over empty
// sections; past the last question it parks the cursor and reports false.
func (e *Engine) advanceCursor() (bool, error) {
	s, q := e.state.section, e.state.question
	q++
	for s < len(e.fw.Sections) && q >= len(e.fw.Sections[s].Questions) {
		s++
		q = 0
	}
	if s >= len(e.fw.Sections) {
		e.atEnd = true
		e.notifyProgress()
		return false, nil
	}
	e.state = navState{kind: model.StateInSection, section: s, question: q}
	if s > e.maxSection {
		e.maxSection = s
	}
	e.atEnd = false
	e.notifyProgress()
	return true, nil
}

// PreviousQuestion moves the cursor back one step, leaving AI follow-up
// mode first when active. It never re-validates; users may always retreat.
// Returns false at the very first question.
func (e *Engine) PreviousQuestion() bool {
	if e.finalized || len(e.fw.Sections) == 0 {
		return false
	}
	if e.atEnd {
		e.atEnd = false
		e.notifyProgress()
		return true
	}
	if e.state.kind == model.StateInFollowUp {
		// back to the parent question; materialized follow-ups are kept
		e.state.kind = model.StateInSection
		e.state.fuParent = ""
		e.state.fuIndex = 0
		e.notifyProgress()
		return true
	}
	s, q := e.state.section, e.state.question
	if q > 0 {
		q--
	} else {
		s--
		for s >= 0 && len(e.fw.Sections[s].Questions) == 0 {
			s--
		}
		if s < 0 {
			return false
		}
		q = len(e.fw.Sections[s].Questions) - 1
	}
	e.state = navState{kind: model.StateInSection, section: s, question: q}
	e.notifyProgress()
	return true
}

// JumpToSection moves to the start of a previously visited section.
// Forward skips past unanswered content are rejected.
func (e *Engine) JumpToSection(index int) error {
	if e.finalized {
		return ErrEngineFinalized
	}
	if index < 0 || index >= len(e.fw.Sections) || index > e.maxSection {
		return &NavigationError{Requested: index, MaxReached: e.maxSection}
	}
	if len(e.fw.Sections[index].Questions) == 0 {
		return &NavigationError{Requested: index, MaxReached: e.maxSection}
	}
	e.state = navState{kind: model.StateInSection, section: index}
	e.atEnd = false
	e.notifyProgress()
	return nil
}

// Progress computes the derived progress view. Materialized follow-ups
// count toward the totals; unfetched ones cannot, since each round may or
// may not trigger another.
func (e *Engine) Progress() model.AssessmentProgress {
	total := e.fw.TotalQuestions()
	for _, lst := range e.followUps {
		total += len(lst)
	}
	answered := len(e.answers)

	p := model.AssessmentProgress{
		TotalQuestions:    total,
		AnsweredQuestions: answered,
	}
	if total > 0 {
		p.PercentComplete = int(math.Round(100 * float64(answered) / float64(total)))
	}
	if remaining := total - answered; remaining > 0 {
		p.EstimatedTimeRemaining = time.Duration(remaining*e.fw.AvgSecondsPerQuestion()) * time.Second
	}
	if e.state.kind != model.StateCompleted {
		p.CurrentSection = e.fw.Sections[e.state.section].ID
		if cur, err := e.CurrentQuestion(); err == nil {
			p.CurrentQuestion = cur.ID
		}
	}
	return p
}

// CalculateResults finalizes the assessment. It fails with
// IncompleteAssessmentError while any required question is unanswered; on
// success the engine transitions to completed and becomes read-only.
// Scoring itself is pure and deterministic; only CompletedAt is
// time-dependent.
func (e *Engine) CalculateResults(ctx context.Context) (*model.AssessmentResult, error) {
	if e.finalized {
		return nil, ErrEngineFinalized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for si := range e.fw.Sections {
		for qi := range e.fw.Sections[si].Questions {
			q := &e.fw.Sections[si].Questions[qi]
			if q.Validation.Required && e.lookup(q.ID) == nil {
				return nil, &IncompleteAssessmentError{QuestionID: q.ID, SectionIndex: si}
			}
		}
	}
	result := scoring.Calculate(e.fw, e.answers, e.assessmentID, e.now())
	e.state = navState{kind: model.StateCompleted}
	e.finalized = true
	e.notifyProgress()
	return result, nil
}

// Finalized reports whether the engine has produced its result
func (e *Engine) Finalized() bool {
	return e.finalized
}

// Answers returns a copy of the answer store
func (e *Engine) Answers() map[string]model.Answer {
	out := make(map[string]model.Answer, len(e.answers))
	for k, v := range e.answers {
		out[k] = v
	}
	return out
}

func (e *Engine) lookup(id string) *model.Answer {
	if a, ok := e.answers[id]; ok {
		return &a
	}
	return nil
}

func (e *Engine) notifyProgress() {
	if e.onProgress != nil {
		e.onProgress(e.Snapshot())
	}
}

// Snapshot captures the full resumable state: cursor (including follow-up
// sub-mode), materialized follow-ups, answers, and the derived progress
// view. Handed to the persistence collaborator after every mutation.
func (e *Engine) Snapshot() *model.ProgressSnapshot {
	answers := make([]model.Answer, 0, len(e.answers))
	for _, a := range e.answers {
		answers = append(answers, a)
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })

	var fus []model.Question
	for si := range e.fw.Sections {
		for qi := range e.fw.Sections[si].Questions {
			fus = append(fus, e.followUps[e.fw.Sections[si].Questions[qi].ID]...)
		}
	}

	kind := e.state.kind
	return &model.ProgressSnapshot{
		AssessmentID:      e.assessmentID,
		FrameworkID:       e.fw.ID,
		State:             kind,
		SectionIndex:      e.state.section,
		QuestionIndex:     e.state.question,
		MaxSectionReached: e.maxSection,
		FollowUpParentID:  e.state.fuParent,
		FollowUpIndex:     e.state.fuIndex,
		FollowUps:         fus,
		Answers:           answers,
		Progress:          e.Progress(),
		UpdatedAt:         e.now(),
	}
}

// Resume rebuilds an engine from a saved snapshot. A snapshot taken
// mid-follow-up re-enters the follow-up sub-mode at the same index; a
// snapshot without a cursor resumes at the first unanswered required
// question.
func Resume(fw *model.Framework, snap *model.ProgressSnapshot, cfg Config) (*Engine, error) {
	if cfg.AssessmentID == "" {
		cfg.AssessmentID = snap.AssessmentID
	}
	e, err := New(fw, cfg)
	if err != nil {
		return nil, err
	}
	for _, a := range snap.Answers {
		e.answers[a.QuestionID] = a
	}
	for _, fu := range snap.FollowUps {
		if fu.ParentID == "" {
			continue
		}
		e.followUps[fu.ParentID] = append(e.followUps[fu.ParentID], fu)
	}

	switch snap.State {
	case model.StateCompleted:
		e.state = navState{kind: model.StateCompleted}
		e.finalized = true
	case model.StateInFollowUp:
		if err := checkCursor(fw, snap); err != nil {
			return nil, err
		}
		if snap.FollowUpIndex >= len(e.followUps[snap.FollowUpParentID]) {
			return nil, fmt.Errorf("snapshot references follow-up %d of %s which was never materialized",
				snap.FollowUpIndex, snap.FollowUpParentID)
		}
		e.state = navState{
			kind:     model.StateInFollowUp,
			section:  snap.SectionIndex,
			question: snap.QuestionIndex,
			fuParent: snap.FollowUpParentID,
			fuIndex:  snap.FollowUpIndex,
		}
	case model.StateInSection:
		if err := checkCursor(fw, snap); err != nil {
			return nil, err
		}
		e.state = navState{kind: model.StateInSection, section: snap.SectionIndex, question: snap.QuestionIndex}
	default:
		e.state = firstUnansweredRequired(fw, e.answers)
	}

	if e.state.kind != model.StateCompleted {
		e.maxSection = e.state.section
		if snap.MaxSectionReached > e.maxSection {
			e.maxSection = snap.MaxSectionReached
		}
		if e.maxSection >= len(fw.Sections) {
			e.maxSection = len(fw.Sections) - 1
		}
	}
	return e, nil
}

func checkCursor(fw *model.Framework, snap *model.ProgressSnapshot) error {
	if snap.SectionIndex < 0 || snap.SectionIndex >= len(fw.Sections) ||
		snap.QuestionIndex < 0 || snap.QuestionIndex >= len(fw.Sections[snap.SectionIndex].Questions) {
		return fmt.Errorf("snapshot cursor %d/%d out of range for framework %s",
			snap.SectionIndex, snap.QuestionIndex, fw.ID)
	}
	return nil
}

// firstUnansweredRequired seeks the resume position for cursor-less
// snapshots: the first required question without an answer, else the first
// question.
func firstUnansweredRequired(fw *model.Framework, answers map[string]model.Answer) navState {
	for si := range fw.Sections {
		for qi := range fw.Sections[si].Questions {
			q := &fw.Sections[si].Questions[qi]
			if !q.Validation.Required {
				continue
			}
			if _, ok := answers[q.ID]; !ok {
				return navState{kind: model.StateInSection, section: si, question: qi}
			}
		}
	}
	start, _ := firstQuestionAt(fw, 0)
	return start
}

// FollowUpProgress reports the position within the active follow-up
// sequence for UI bookkeeping: the current round (1-based) and the cap.
func (e *Engine) FollowUpProgress() (round, limit int, active bool) {
	if e.state.kind != model.StateInFollowUp {
		return 0, e.fw.MaxFollowUps(), false
	}
	return e.state.fuIndex + 1, e.fw.MaxFollowUps(), true
}

// HasFollowUpsRemaining reports whether the active follow-up sequence can
// still grow before hitting the cap
func (e *Engine) HasFollowUpsRemaining() bool {
	if e.state.kind != model.StateInFollowUp {
		return false
	}
	return e.state.fuIndex+1 < e.fw.MaxFollowUps()
}

// State reports the current navigation state kind
func (e *Engine) State() model.StateKind {
	return e.state.kind
}
