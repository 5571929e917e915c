package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complianceiq/internal/model"
)

func boolPtr(v bool) *bool { return &v }

// testFramework builds a small two-section framework:
// s1: GOV1 (boolean, required), GOV2 (single choice, required)
// s2: OPS1 (free text, optional), OPS2 (numeric, required, 0-10)
func testFramework() *model.Framework {
	return &model.Framework{
		ID:      "fw-test",
		Version: "1.0",
		Title:   "Test Framework",
		Sections: []model.Section{
			{
				ID:    "s1",
				Title: "Governance",
				Order: 1,
				Questions: []model.Question{
					{
						ID:             "GOV1",
						Text:           "Is there a data protection officer?",
						Type:           model.QuestionTypeBoolean,
						Validation:     model.Validation{Required: true},
						CompliantValue: boolPtr(true),
					},
					{
						ID:   "GOV2",
						Text: "How often are policies reviewed?",
						Type: model.QuestionTypeSingleChoice,
						Options: []model.Option{
							{Value: "never", Label: "Never", Score: 0},
							{Value: "ad_hoc", Label: "Ad hoc", Score: 50},
							{Value: "annually", Label: "Annually", Score: 100},
						},
						Validation: model.Validation{Required: true},
					},
				},
			},
			{
				ID:    "s2",
				Title: "Operations",
				Order: 2,
				Questions: []model.Question{
					{
						ID:         "OPS1",
						Text:       "Describe your incident process.",
						Type:       model.QuestionTypeFreeText,
						Validation: model.Validation{Required: false},
					},
					{
						ID:         "OPS2",
						Text:       "How many drills per year?",
						Type:       model.QuestionTypeNumeric,
						Validation: model.Validation{Required: true},
						ScaleMin:   0,
						ScaleMax:   10,
					},
				},
			},
		},
	}
}

// stubProvider generates numbered follow-up questions, or fails, or declines
type stubProvider struct {
	calls   int
	err     error
	decline bool
}

func (p *stubProvider) GenerateFollowUp(ctx context.Context, req *FollowUpRequest) (*model.Question, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if p.decline {
		return nil, nil
	}
	return &model.Question{Text: fmt.Sprintf("Can you expand on that? (round %d)", req.Index)}, nil
}

func alwaysFollowUp(q *model.Question, ans *model.Answer) bool { return true }
func neverFollowUp(q *model.Question, ans *model.Answer) bool  { return false }

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.AssessmentID == "" {
		cfg.AssessmentID = "a_test"
	}
	if cfg.Predicate == nil {
		cfg.Predicate = neverFollowUp
	}
	e, err := New(testFramework(), cfg)
	require.NoError(t, err)
	return e
}

func answerAll(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(true)))
	require.NoError(t, e.AnswerQuestion("GOV2", model.ChoiceValue("annually")))
	require.NoError(t, e.AnswerQuestion("OPS1", model.TextValue("We run quarterly drills.")))
	require.NoError(t, e.AnswerQuestion("OPS2", model.NumberValue(4)))
}

func TestNewRejectsInvalidFramework(t *testing.T) {
	fw := testFramework()
	fw.Sections[0].Questions[0].CompliantValue = nil

	_, err := New(fw, Config{})
	assert.Error(t, err)
}

func TestNewStartsAtFirstQuestion(t *testing.T) {
	e := newTestEngine(t, Config{})

	q, err := e.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, "GOV1", q.ID)

	sec, err := e.CurrentSection()
	require.NoError(t, err)
	assert.Equal(t, "s1", sec.ID)
	assert.Equal(t, model.StateInSection, e.State())
}

func TestAnswerDoesNotMoveCursor(t *testing.T) {
	e := newTestEngine(t, Config{})

	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(true)))
	q, err := e.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, "GOV1", q.ID)
}

func TestAnswerRevisionOverwrites(t *testing.T) {
	e := newTestEngine(t, Config{})

	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(true)))
	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(false)))

	answers := e.Answers()
	assert.Len(t, answers, 1)
	assert.False(t, answers["GOV1"].Value.Bool)
	assert.Equal(t, 1, e.Progress().AnsweredQuestions)
}

func TestAnswerUnknownQuestion(t *testing.T) {
	e := newTestEngine(t, Config{})

	err := e.AnswerQuestion("NOPE", model.BoolValue(true))
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "NOPE", valErr.QuestionID)
}

func TestAnswerWrongKindRejected(t *testing.T) {
	e := newTestEngine(t, Config{})

	err := e.AnswerQuestion("GOV1", model.TextValue("yes"))
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestNextBlocksOnUnansweredRequired(t *testing.T) {
	e := newTestEngine(t, Config{})

	_, err := e.NextQuestion(context.Background())
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "GOV1", valErr.QuestionID)

	// cursor unchanged
	q, err := e.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, "GOV1", q.ID)
}

func TestNextSkipsUnansweredOptional(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(true)))
	require.NoError(t, e.AnswerQuestion("GOV2", model.ChoiceValue("annually")))
	mustNext(t, e, ctx, "GOV2")
	mustNext(t, e, ctx, "OPS1")

	// OPS1 is optional; advancing without an answer is allowed
	mustNext(t, e, ctx, "OPS2")
}

func mustNext(t *testing.T, e *Engine, ctx context.Context, wantID string) {
	t.Helper()
	more, err := e.NextQuestion(ctx)
	require.NoError(t, err)
	require.True(t, more)
	q, err := e.CurrentQuestion()
	require.NoError(t, err)
	require.Equal(t, wantID, q.ID)
}

func TestNextRollsOverSectionBoundary(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(true)))
	require.NoError(t, e.AnswerQuestion("GOV2", model.ChoiceValue("annually")))
	mustNext(t, e, ctx, "GOV2")
	mustNext(t, e, ctx, "OPS1")

	sec, err := e.CurrentSection()
	require.NoError(t, err)
	assert.Equal(t, "s2", sec.ID)
}

func TestNextPastEndParksAndStaysParked(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()
	answerAll(t, e)

	mustNext(t, e, ctx, "GOV2")
	mustNext(t, e, ctx, "OPS1")
	mustNext(t, e, ctx, "OPS2")

	more, err := e.NextQuestion(ctx)
	require.NoError(t, err)
	assert.False(t, more)

	// still parked, still ready to submit, no error
	more, err = e.NextQuestion(ctx)
	require.NoError(t, err)
	assert.False(t, more)

	// backing up un-parks onto the last question
	assert.True(t, e.PreviousQuestion())
	q, err := e.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, "OPS2", q.ID)
}

func TestPreviousStopsAtFirstQuestion(t *testing.T) {
	e := newTestEngine(t, Config{})
	assert.False(t, e.PreviousQuestion())

	q, err := e.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, "GOV1", q.ID)
}

func TestPreviousCrossesSectionBoundary(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(true)))
	require.NoError(t, e.AnswerQuestion("GOV2", model.ChoiceValue("annually")))
	mustNext(t, e, ctx, "GOV2")
	mustNext(t, e, ctx, "OPS1")

	assert.True(t, e.PreviousQuestion())
	q, err := e.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, "GOV2", q.ID)
}

func TestJumpToVisitedSection(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(true)))
	require.NoError(t, e.AnswerQuestion("GOV2", model.ChoiceValue("annually")))
	mustNext(t, e, ctx, "GOV2")
	mustNext(t, e, ctx, "OPS1")

	require.NoError(t, e.JumpToSection(0))
	q, err := e.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, "GOV1", q.ID)

	// forward jump back to the highest visited section is allowed
	require.NoError(t, e.JumpToSection(1))
	q, err = e.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, "OPS1", q.ID)
}

func TestJumpForwardSkipRejected(t *testing.T) {
	e := newTestEngine(t, Config{})

	err := e.JumpToSection(1)
	var navErr *NavigationError
	require.ErrorAs(t, err, &navErr)
	assert.Equal(t, 1, navErr.Requested)
	assert.Equal(t, 0, navErr.MaxReached)

	assert.Error(t, e.JumpToSection(-1))
	assert.Error(t, e.JumpToSection(99))
}

func TestFollowUpSequenceHitsCap(t *testing.T) {
	provider := &stubProvider{}
	e := newTestEngine(t, Config{Provider: provider, Predicate: alwaysFollowUp})
	ctx := context.Background()

	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(false)))

	// three rounds at the default cap of 3
	for i := 0; i < 3; i++ {
		more, err := e.NextQuestion(ctx)
		require.NoError(t, err)
		require.True(t, more)

		q, err := e.CurrentQuestion()
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("GOV1:ai:%d", i), q.ID)
		assert.True(t, q.IsFollowUp())
		assert.Equal(t, "GOV1", q.ParentID)
		assert.Equal(t, model.StateInFollowUp, e.State())

		round, limit, active := e.FollowUpProgress()
		assert.True(t, active)
		assert.Equal(t, i+1, round)
		assert.Equal(t, 3, limit)

		require.NoError(t, e.AnswerQuestion(q.ID, model.TextValue("more detail")))
	}

	// cap reached: the fourth advance force-moves to the next framework question
	mustNext(t, e, ctx, "GOV2")
	assert.Equal(t, model.StateInSection, e.State())
	assert.Equal(t, 3, provider.calls)
}

func TestFollowUpFailOpenOnProviderError(t *testing.T) {
	provider := &stubProvider{err: errors.New("model unavailable")}
	e := newTestEngine(t, Config{Provider: provider, Predicate: alwaysFollowUp})
	ctx := context.Background()

	answerAll(t, e)
	mustNext(t, e, ctx, "GOV2")
	mustNext(t, e, ctx, "OPS1")
	mustNext(t, e, ctx, "OPS2")

	more, err := e.NextQuestion(ctx)
	require.NoError(t, err)
	assert.False(t, more)

	// the assessment stays completable with the AI capability down
	result, err := e.CalculateResults(ctx)
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestFollowUpProviderDecline(t *testing.T) {
	provider := &stubProvider{decline: true}
	e := newTestEngine(t, Config{Provider: provider, Predicate: alwaysFollowUp})
	ctx := context.Background()

	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(false)))
	mustNext(t, e, ctx, "GOV2")
	assert.Equal(t, 1, provider.calls)
}

func TestFollowUpNilProvider(t *testing.T) {
	e := newTestEngine(t, Config{Predicate: alwaysFollowUp})
	ctx := context.Background()

	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(false)))
	mustNext(t, e, ctx, "GOV2")
}

func TestPreviousFromFollowUpReturnsToParent(t *testing.T) {
	provider := &stubProvider{}
	e := newTestEngine(t, Config{Provider: provider, Predicate: alwaysFollowUp})
	ctx := context.Background()

	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(false)))
	more, err := e.NextQuestion(ctx)
	require.NoError(t, err)
	require.True(t, more)

	assert.True(t, e.PreviousQuestion())
	q, err := e.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, "GOV1", q.ID)

	// re-advancing reuses the materialized question, no new provider call
	more, err = e.NextQuestion(ctx)
	require.NoError(t, err)
	require.True(t, more)
	q, err = e.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, "GOV1:ai:0", q.ID)
	assert.Equal(t, 1, provider.calls)
}

func TestProgressCountsMaterializedFollowUps(t *testing.T) {
	provider := &stubProvider{}
	e := newTestEngine(t, Config{Provider: provider, Predicate: alwaysFollowUp})
	ctx := context.Background()

	p := e.Progress()
	assert.Equal(t, 4, p.TotalQuestions)
	assert.Equal(t, 0, p.AnsweredQuestions)
	assert.Equal(t, "s1", p.CurrentSection)
	assert.Equal(t, "GOV1", p.CurrentQuestion)

	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(false)))
	more, err := e.NextQuestion(ctx)
	require.NoError(t, err)
	require.True(t, more)

	p = e.Progress()
	assert.Equal(t, 5, p.TotalQuestions)
	assert.Equal(t, 1, p.AnsweredQuestions)
	assert.Equal(t, 20, p.PercentComplete)
	assert.Equal(t, 4*30*time.Second, p.EstimatedTimeRemaining)
}

func TestProgressMonotonicOverWalkthrough(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	last := -1
	check := func() {
		p := e.Progress()
		require.GreaterOrEqual(t, p.PercentComplete, last)
		last = p.PercentComplete
	}

	check()
	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(true)))
	check()
	require.NoError(t, e.AnswerQuestion("GOV2", model.ChoiceValue("ad_hoc")))
	check()
	mustNext(t, e, ctx, "GOV2")
	mustNext(t, e, ctx, "OPS1")
	check()
	require.NoError(t, e.AnswerQuestion("OPS2", model.NumberValue(8)))
	check()
	assert.Equal(t, 75, e.Progress().PercentComplete)
}

func TestCalculateResultsIncomplete(t *testing.T) {
	e := newTestEngine(t, Config{})

	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(true)))
	_, err := e.CalculateResults(context.Background())

	var incErr *IncompleteAssessmentError
	require.ErrorAs(t, err, &incErr)
	assert.Equal(t, "GOV2", incErr.QuestionID)
	assert.Equal(t, 0, incErr.SectionIndex)
	assert.False(t, e.Finalized())
}

func TestCalculateResultsFinalizes(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()
	answerAll(t, e)

	result, err := e.CalculateResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a_test", result.AssessmentID)
	assert.Equal(t, "fw-test", result.FrameworkID)
	assert.True(t, e.Finalized())
	assert.Equal(t, model.StateCompleted, e.State())

	// the engine is read-only from here on
	assert.ErrorIs(t, e.AnswerQuestion("GOV1", model.BoolValue(false)), ErrEngineFinalized)
	_, err = e.NextQuestion(ctx)
	assert.ErrorIs(t, err, ErrEngineFinalized)
	assert.ErrorIs(t, e.JumpToSection(0), ErrEngineFinalized)
	_, err = e.CalculateResults(ctx)
	assert.ErrorIs(t, err, ErrEngineFinalized)
	assert.False(t, e.PreviousQuestion())
}

func TestCalculateResultsHonorsContext(t *testing.T) {
	e := newTestEngine(t, Config{})
	answerAll(t, e)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.CalculateResults(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, e.Finalized())
}

func TestSnapshotRoundTrip(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(true)))
	require.NoError(t, e.AnswerQuestion("GOV2", model.ChoiceValue("ad_hoc")))
	mustNext(t, e, ctx, "GOV2")
	mustNext(t, e, ctx, "OPS1")

	snap := e.Snapshot()
	assert.Equal(t, model.StateInSection, snap.State)
	assert.Equal(t, 1, snap.SectionIndex)
	assert.Equal(t, 0, snap.QuestionIndex)
	assert.Equal(t, 1, snap.MaxSectionReached)
	assert.Len(t, snap.Answers, 2)

	resumed, err := Resume(testFramework(), snap, Config{})
	require.NoError(t, err)
	q, err := resumed.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, "OPS1", q.ID)
	assert.Len(t, resumed.Answers(), 2)

	// backward navigation still works after resume
	require.NoError(t, resumed.JumpToSection(0))
}

func TestSnapshotResumeMidFollowUp(t *testing.T) {
	provider := &stubProvider{}
	e := newTestEngine(t, Config{Provider: provider, Predicate: alwaysFollowUp})
	ctx := context.Background()

	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(false)))
	more, err := e.NextQuestion(ctx)
	require.NoError(t, err)
	require.True(t, more)

	snap := e.Snapshot()
	require.Equal(t, model.StateInFollowUp, snap.State)
	require.Equal(t, "GOV1", snap.FollowUpParentID)
	require.Len(t, snap.FollowUps, 1)

	fresh := &stubProvider{}
	resumed, err := Resume(testFramework(), snap, Config{Provider: fresh, Predicate: alwaysFollowUp})
	require.NoError(t, err)

	q, err := resumed.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, "GOV1:ai:0", q.ID)
	assert.Equal(t, model.StateInFollowUp, resumed.State())

	// no regeneration for the already-materialized round
	assert.Equal(t, 0, fresh.calls)
}

func TestResumeRejectsBrokenFollowUpCursor(t *testing.T) {
	snap := &model.ProgressSnapshot{
		AssessmentID:     "a_test",
		State:            model.StateInFollowUp,
		FollowUpParentID: "GOV1",
		FollowUpIndex:    0,
		// no materialized follow-ups carried
	}
	_, err := Resume(testFramework(), snap, Config{})
	assert.Error(t, err)
}

func TestResumeRejectsOutOfRangeCursor(t *testing.T) {
	snap := &model.ProgressSnapshot{
		AssessmentID: "a_test",
		State:        model.StateInSection,
		SectionIndex: 7,
	}
	_, err := Resume(testFramework(), snap, Config{})
	assert.Error(t, err)
}

func TestResumeCursorlessSeeksFirstUnansweredRequired(t *testing.T) {
	snap := &model.ProgressSnapshot{
		AssessmentID: "a_test",
		Answers: []model.Answer{
			{QuestionID: "GOV1", Value: model.BoolValue(true)},
		},
	}
	e, err := Resume(testFramework(), snap, Config{})
	require.NoError(t, err)

	q, err := e.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, "GOV2", q.ID)
}

func TestResumeCompletedSnapshotIsReadOnly(t *testing.T) {
	snap := &model.ProgressSnapshot{
		AssessmentID: "a_test",
		State:        model.StateCompleted,
	}
	e, err := Resume(testFramework(), snap, Config{})
	require.NoError(t, err)
	assert.True(t, e.Finalized())
	assert.ErrorIs(t, e.AnswerQuestion("GOV1", model.BoolValue(true)), ErrEngineFinalized)
}

func TestOnProgressFiresOnMutations(t *testing.T) {
	var snaps []*model.ProgressSnapshot
	e := newTestEngine(t, Config{OnProgress: func(s *model.ProgressSnapshot) { snaps = append(snaps, s) }})

	require.NoError(t, e.AnswerQuestion("GOV1", model.BoolValue(true)))
	require.Len(t, snaps, 1)
	assert.Equal(t, 1, snaps[0].Progress.AnsweredQuestions)

	require.NoError(t, e.AnswerQuestion("GOV2", model.ChoiceValue("annually")))
	_, err := e.NextQuestion(context.Background())
	require.NoError(t, err)
	assert.Len(t, snaps, 3)
}

func TestDeterministicClock(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := newTestEngine(t, Config{Now: func() time.Time { return fixed }})
	answerAll(t, e)

	result, err := e.CalculateResults(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixed, result.CompletedAt)
	assert.Equal(t, fixed, e.Answers()["GOV1"].AnsweredAt)
}
