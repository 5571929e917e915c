package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"complianceiq/internal/engine"
	"complianceiq/internal/model"
	"complianceiq/internal/service"
	"complianceiq/internal/transport/rest/middleware"
)

// AssessmentHandler handles assessment session endpoints
type AssessmentHandler struct {
	assessmentSvc *service.AssessmentService
}

// NewAssessmentHandler creates a new assessment handler
func NewAssessmentHandler(assessmentSvc *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessmentSvc: assessmentSvc}
}

// StartRequest is the request body for starting an assessment
type StartRequest struct {
	FrameworkID string `json:"frameworkId"`
	Respondent  string `json:"respondent"`
}

// Start handles POST /v1/assessments
func (h *AssessmentHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FrameworkID == "" || req.Respondent == "" {
		writeError(w, http.StatusBadRequest, "frameworkId and respondent are required")
		return
	}

	resp, err := h.assessmentSvc.Start(r.Context(), req.FrameworkID, req.Respondent)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Current handles GET /v1/assessments/{id}/question/current
func (h *AssessmentHandler) Current(w http.ResponseWriter, r *http.Request) {
	assessmentID, ok := h.authorized(w, r)
	if !ok {
		return
	}

	state, err := h.assessmentSvc.Current(r.Context(), assessmentID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// AnswerRequest is the request body for recording an answer
type AnswerRequest struct {
	QuestionID string            `json:"questionId"`
	Value      model.AnswerValue `json:"value"`
}

// Answer handles PUT /v1/assessments/{id}/answers
func (h *AssessmentHandler) Answer(w http.ResponseWriter, r *http.Request) {
	assessmentID, ok := h.authorized(w, r)
	if !ok {
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	progress, err := h.assessmentSvc.Answer(r.Context(), assessmentID, req.QuestionID, req.Value)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "saved",
		"progress": progress,
	})
}

// Next handles POST /v1/assessments/{id}/next
func (h *AssessmentHandler) Next(w http.ResponseWriter, r *http.Request) {
	assessmentID, ok := h.authorized(w, r)
	if !ok {
		return
	}

	resp, err := h.assessmentSvc.Next(r.Context(), assessmentID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Previous handles POST /v1/assessments/{id}/previous
func (h *AssessmentHandler) Previous(w http.ResponseWriter, r *http.Request) {
	assessmentID, ok := h.authorized(w, r)
	if !ok {
		return
	}

	state, moved, err := h.assessmentSvc.Previous(r.Context(), assessmentID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"moved":    moved,
		"question": state.Question,
		"section":  state.Section,
		"followUp": state.FollowUp,
		"progress": state.Progress,
	})
}

// Jump handles POST /v1/assessments/{id}/sections/{index}/jump
func (h *AssessmentHandler) Jump(w http.ResponseWriter, r *http.Request) {
	assessmentID, ok := h.authorized(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid section index")
		return
	}

	state, err := h.assessmentSvc.Jump(r.Context(), assessmentID, index)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// Progress handles GET /v1/assessments/{id}/progress
func (h *AssessmentHandler) Progress(w http.ResponseWriter, r *http.Request) {
	assessmentID, ok := h.authorized(w, r)
	if !ok {
		return
	}

	progress, err := h.assessmentSvc.Progress(r.Context(), assessmentID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

// Submit handles POST /v1/assessments/{id}/results
func (h *AssessmentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	assessmentID, ok := h.authorized(w, r)
	if !ok {
		return
	}

	result, err := h.assessmentSvc.Results(r.Context(), assessmentID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Result handles GET /v1/assessments/{id}/results
func (h *AssessmentHandler) Result(w http.ResponseWriter, r *http.Request) {
	assessmentID := mux.Vars(r)["id"]

	result, err := h.assessmentSvc.Result(r.Context(), assessmentID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// authorized checks that the token's assessment matches the path
func (h *AssessmentHandler) authorized(w http.ResponseWriter, r *http.Request) (string, bool) {
	assessmentID := mux.Vars(r)["id"]
	if claimed := middleware.GetAssessmentID(r.Context()); claimed != assessmentID {
		writeError(w, http.StatusForbidden, "token not valid for this assessment")
		return "", false
	}
	return assessmentID, true
}

// writeEngineError maps engine errors to HTTP statuses
func writeEngineError(w http.ResponseWriter, err error) {
	var valErr *engine.ValidationError
	var navErr *engine.NavigationError
	var incErr *engine.IncompleteAssessmentError

	switch {
	case errors.As(err, &valErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":      valErr.Message,
			"questionId": valErr.QuestionID,
		})
	case errors.As(err, &navErr):
		writeError(w, http.StatusBadRequest, navErr.Error())
	case errors.As(err, &incErr):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":        incErr.Error(),
			"questionId":   incErr.QuestionID,
			"sectionIndex": incErr.SectionIndex,
		})
	case errors.Is(err, engine.ErrEngineFinalized):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
