package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"complianceiq/internal/service"
)

// ReportHandler handles admin reporting endpoints
type ReportHandler struct {
	assessmentSvc *service.AssessmentService
}

// NewReportHandler creates a new report handler
func NewReportHandler(assessmentSvc *service.AssessmentService) *ReportHandler {
	return &ReportHandler{assessmentSvc: assessmentSvc}
}

// FrameworkResults handles GET /v1/frameworks/{frameworkId}/results
func (h *ReportHandler) FrameworkResults(w http.ResponseWriter, r *http.Request) {
	frameworkID := mux.Vars(r)["frameworkId"]

	results, err := h.assessmentSvc.ResultsByFramework(r.Context(), frameworkID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// RespondentAssessments handles GET /v1/respondents/{respondent}/assessments
func (h *ReportHandler) RespondentAssessments(w http.ResponseWriter, r *http.Request) {
	respondent := mux.Vars(r)["respondent"]

	assessments, err := h.assessmentSvc.AssessmentsByRespondent(r.Context(), respondent)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"assessments": assessments})
}
