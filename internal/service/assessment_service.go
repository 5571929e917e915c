package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"complianceiq/internal/cache"
	"complianceiq/internal/engine"
	"complianceiq/internal/model"
	"complianceiq/internal/repository"
)

// AssessmentService owns the live questionnaire engines. Each in-progress
// assessment maps to exactly one engine instance behind a per-session
// mutex — the serialization point the engine's single-owner contract
// requires. Autosave and broadcasts hang off the engine's progress hook.
type AssessmentService struct {
	frameworkRepo  repository.FrameworkRepo
	assessmentRepo repository.AssessmentRepo
	resultRepo     repository.ResultRepo
	progressCache  cache.ProgressCache
	followUps      engine.FollowUpProvider
	authSvc        *AuthService
	broadcaster    Broadcaster

	mu       sync.Mutex
	sessions map[string]*session
}

// session pairs one engine with its framework and serializes access to it
type session struct {
	mu  sync.Mutex
	eng *engine.Engine
	fw  *model.Framework
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(
	frameworkRepo repository.FrameworkRepo,
	assessmentRepo repository.AssessmentRepo,
	resultRepo repository.ResultRepo,
	progressCache cache.ProgressCache,
	followUps engine.FollowUpProvider,
	authSvc *AuthService,
) *AssessmentService {
	return &AssessmentService{
		frameworkRepo:  frameworkRepo,
		assessmentRepo: assessmentRepo,
		resultRepo:     resultRepo,
		progressCache:  progressCache,
		followUps:      followUps,
		authSvc:        authSvc,
		sessions:       make(map[string]*session),
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *AssessmentService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// StartResponse is returned when an assessment session begins
type StartResponse struct {
	AssessmentID  string                   `json:"assessmentId"`
	Token         string                   `json:"token"`
	FirstQuestion *model.Question          `json:"firstQuestion"`
	Section       *model.Section           `json:"section"`
	Progress      model.AssessmentProgress `json:"progress"`
}

// Start creates a new assessment session over the given framework
func (s *AssessmentService) Start(ctx context.Context, frameworkID, respondent string) (*StartResponse, error) {
	fw, err := s.frameworkRepo.GetByID(ctx, frameworkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get framework: %w", err)
	}
	if fw == nil {
		return nil, fmt.Errorf("framework not found")
	}

	assessmentID := "a_" + uuid.New().String()[:8]
	eng, err := engine.New(fw, engine.Config{
		AssessmentID: assessmentID,
		Provider:     s.followUps,
		OnProgress:   s.progressHook(assessmentID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}

	record := &model.Assessment{
		ID:          assessmentID,
		FrameworkID: frameworkID,
		Respondent:  respondent,
		Status:      model.AssessmentInProgress,
		StartedAt:   time.Now(),
	}
	if err := s.assessmentRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}

	token, err := s.authSvc.GenerateRespondentToken(assessmentID, respondent)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	sess := &session{eng: eng, fw: fw}
	s.mu.Lock()
	s.sessions[assessmentID] = sess
	s.mu.Unlock()

	q, err := eng.CurrentQuestion()
	if err != nil {
		return nil, err
	}
	sec, err := eng.CurrentSection()
	if err != nil {
		return nil, err
	}
	return &StartResponse{
		AssessmentID:  assessmentID,
		Token:         token,
		FirstQuestion: q,
		Section:       sec,
		Progress:      eng.Progress(),
	}, nil
}

// sessionFor returns the live session, resuming it from the latest
// snapshot (Redis first, Mongo fallback) when the process no longer holds
// the engine.
func (s *AssessmentService) sessionFor(ctx context.Context, assessmentID string) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[assessmentID]
	s.mu.Unlock()
	if ok {
		// keep the cached snapshot warm while the session is active
		if err := s.progressCache.Touch(ctx, assessmentID); err != nil {
			log.Printf("snapshot ttl refresh failed for %s: %v", assessmentID, err)
		}
		return sess, nil
	}

	record, err := s.assessmentRepo.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("assessment not found")
	}
	if record.Status != model.AssessmentInProgress {
		return nil, fmt.Errorf("assessment is not in progress (status: %s)", record.Status)
	}

	snap, err := s.progressCache.GetSnapshot(ctx, assessmentID)
	if err != nil {
		log.Printf("snapshot cache read failed for %s: %v", assessmentID, err)
	}
	if snap == nil {
		if snap, err = s.assessmentRepo.GetSnapshot(ctx, assessmentID); err != nil {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
	}
	if snap == nil {
		return nil, fmt.Errorf("no saved progress for assessment %s", assessmentID)
	}

	fw, err := s.frameworkRepo.GetByID(ctx, record.FrameworkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get framework: %w", err)
	}
	if fw == nil {
		return nil, fmt.Errorf("framework %s not found", record.FrameworkID)
	}

	eng, err := engine.Resume(fw, snap, engine.Config{
		AssessmentID: assessmentID,
		Provider:     s.followUps,
		OnProgress:   s.progressHook(assessmentID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resume engine: %w", err)
	}

	sess = &session{eng: eng, fw: fw}
	s.mu.Lock()
	// another caller may have resumed concurrently; keep the first
	if existing, ok := s.sessions[assessmentID]; ok {
		sess = existing
	} else {
		s.sessions[assessmentID] = sess
	}
	s.mu.Unlock()
	return sess, nil
}

// progressHook autosaves every snapshot and notifies listeners. Persistence
// runs detached from the request so a slow write never blocks navigation.
func (s *AssessmentService) progressHook(assessmentID string) func(*model.ProgressSnapshot) {
	return func(snap *model.ProgressSnapshot) {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("recovered from panic in autosave for %s: %v", assessmentID, r)
				}
			}()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.progressCache.SetSnapshot(ctx, snap); err != nil {
				log.Printf("autosave to cache failed for %s: %v", assessmentID, err)
			}
			if err := s.assessmentRepo.SaveSnapshot(ctx, snap); err != nil {
				log.Printf("autosave to store failed for %s: %v", assessmentID, err)
			}
			if s.broadcaster != nil {
				s.broadcaster.BroadcastToAssessment(assessmentID, "progress_update", snap.Progress)
			}
		}()
	}
}

// CurrentState describes the cursor for the pull-based UI
type CurrentState struct {
	Question *model.Question          `json:"question"`
	Section  *model.Section           `json:"section"`
	Progress model.AssessmentProgress `json:"progress"`
	FollowUp bool                     `json:"followUp"`
}

// Current returns the question under the cursor
func (s *AssessmentService) Current(ctx context.Context, assessmentID string) (*CurrentState, error) {
	sess, err := s.sessionFor(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	q, err := sess.eng.CurrentQuestion()
	if err != nil {
		return nil, err
	}
	sec, err := sess.eng.CurrentSection()
	if err != nil {
		return nil, err
	}
	return &CurrentState{
		Question: q,
		Section:  sec,
		Progress: sess.eng.Progress(),
		FollowUp: q.IsFollowUp(),
	}, nil
}

// Answer records a response; navigation does not move
func (s *AssessmentService) Answer(ctx context.Context, assessmentID, questionID string, value model.AnswerValue) (model.AssessmentProgress, error) {
	sess, err := s.sessionFor(ctx, assessmentID)
	if err != nil {
		return model.AssessmentProgress{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.eng.AnswerQuestion(questionID, value); err != nil {
		return model.AssessmentProgress{}, err
	}
	return sess.eng.Progress(), nil
}

// NextResponse is returned after an advance attempt
type NextResponse struct {
	Question      *model.Question          `json:"question,omitempty"`
	Section       *model.Section           `json:"section,omitempty"`
	FollowUp      bool                     `json:"followUp"`
	ReadyToSubmit bool                     `json:"readyToSubmit"`
	Progress      model.AssessmentProgress `json:"progress"`
}

// Next advances the cursor, possibly into an AI follow-up
func (s *AssessmentService) Next(ctx context.Context, assessmentID string) (*NextResponse, error) {
	sess, err := s.sessionFor(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	more, err := sess.eng.NextQuestion(ctx)
	if err != nil {
		return nil, err
	}
	resp := &NextResponse{Progress: sess.eng.Progress()}
	if !more {
		resp.ReadyToSubmit = true
		return resp, nil
	}
	q, err := sess.eng.CurrentQuestion()
	if err != nil {
		return nil, err
	}
	sec, err := sess.eng.CurrentSection()
	if err != nil {
		return nil, err
	}
	resp.Question = q
	resp.Section = sec
	resp.FollowUp = q.IsFollowUp()
	if resp.FollowUp && s.broadcaster != nil {
		s.broadcaster.BroadcastToAssessment(assessmentID, "follow_up", q)
	}
	return resp, nil
}

// Previous moves back one question; false means already at the start
func (s *AssessmentService) Previous(ctx context.Context, assessmentID string) (*CurrentState, bool, error) {
	sess, err := s.sessionFor(ctx, assessmentID)
	if err != nil {
		return nil, false, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	moved := sess.eng.PreviousQuestion()
	q, err := sess.eng.CurrentQuestion()
	if err != nil {
		return nil, moved, err
	}
	sec, err := sess.eng.CurrentSection()
	if err != nil {
		return nil, moved, err
	}
	return &CurrentState{
		Question: q,
		Section:  sec,
		Progress: sess.eng.Progress(),
		FollowUp: q.IsFollowUp(),
	}, moved, nil
}

// Jump moves to the start of a previously visited section
func (s *AssessmentService) Jump(ctx context.Context, assessmentID string, sectionIndex int) (*CurrentState, error) {
	sess, err := s.sessionFor(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.eng.JumpToSection(sectionIndex); err != nil {
		return nil, err
	}
	q, err := sess.eng.CurrentQuestion()
	if err != nil {
		return nil, err
	}
	sec, err := sess.eng.CurrentSection()
	if err != nil {
		return nil, err
	}
	return &CurrentState{
		Question: q,
		Section:  sec,
		Progress: sess.eng.Progress(),
	}, nil
}

// Progress returns the derived progress view
func (s *AssessmentService) Progress(ctx context.Context, assessmentID string) (model.AssessmentProgress, error) {
	sess, err := s.sessionFor(ctx, assessmentID)
	if err != nil {
		return model.AssessmentProgress{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.eng.Progress(), nil
}

// Results finalizes the assessment: scores it, persists the immutable
// result, marks the session completed, and releases the engine.
func (s *AssessmentService) Results(ctx context.Context, assessmentID string) (*model.AssessmentResult, error) {
	// completed earlier (possibly by another replica): serve the stored result
	if stored, err := s.resultRepo.GetByAssessmentID(ctx, assessmentID); err == nil && stored != nil {
		return stored, nil
	}

	sess, err := s.sessionFor(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	result, err := sess.eng.CalculateResults(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.resultRepo.Save(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save result: %w", err)
	}
	completedAt := result.CompletedAt
	if err := s.assessmentRepo.SetStatus(ctx, assessmentID, model.AssessmentCompleted, &completedAt); err != nil {
		log.Printf("failed to mark assessment %s completed: %v", assessmentID, err)
	}
	if err := s.progressCache.DeleteSnapshot(ctx, assessmentID); err != nil {
		log.Printf("failed to drop cached snapshot for %s: %v", assessmentID, err)
	}

	s.mu.Lock()
	delete(s.sessions, assessmentID)
	s.mu.Unlock()

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToAssessment(assessmentID, "assessment_completed", result)
		s.broadcaster.BroadcastToAdmins("assessment_completed", map[string]interface{}{
			"assessmentId": assessmentID,
			"overallScore": result.OverallScore,
			"gaps":         len(result.Gaps),
		})
	}
	return result, nil
}

// Result returns the stored result of a completed assessment
func (s *AssessmentService) Result(ctx context.Context, assessmentID string) (*model.AssessmentResult, error) {
	result, err := s.resultRepo.GetByAssessmentID(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("result not found")
	}
	return result, nil
}

// ResultsByFramework lists completed results for a framework (admin reporting)
func (s *AssessmentService) ResultsByFramework(ctx context.Context, frameworkID string) ([]*model.AssessmentResult, error) {
	return s.resultRepo.ListByFramework(ctx, frameworkID)
}

// AssessmentsByRespondent lists a respondent's assessments across frameworks
func (s *AssessmentService) AssessmentsByRespondent(ctx context.Context, respondent string) ([]*model.Assessment, error) {
	return s.assessmentRepo.ListByRespondent(ctx, respondent)
}
