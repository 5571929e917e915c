package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"complianceiq/internal/model"
	"complianceiq/internal/service"
)

// FrameworkHandler handles framework management endpoints
type FrameworkHandler struct {
	frameworkSvc *service.FrameworkService
}

// NewFrameworkHandler creates a new framework handler
func NewFrameworkHandler(frameworkSvc *service.FrameworkService) *FrameworkHandler {
	return &FrameworkHandler{frameworkSvc: frameworkSvc}
}

// Create handles POST /v1/frameworks
func (h *FrameworkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var fw model.Framework
	if err := json.NewDecoder(r.Body).Decode(&fw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.frameworkSvc.Create(r.Context(), &fw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fw.ID = id
	writeJSON(w, http.StatusCreated, fw)
}

// List handles GET /v1/frameworks
func (h *FrameworkHandler) List(w http.ResponseWriter, r *http.Request) {
	frameworks, err := h.frameworkSvc.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"frameworks": frameworks})
}

// Get handles GET /v1/frameworks/{frameworkId}
func (h *FrameworkHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["frameworkId"]

	fw, err := h.frameworkSvc.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if fw == nil {
		writeError(w, http.StatusNotFound, "framework not found")
		return
	}

	writeJSON(w, http.StatusOK, fw)
}

// Update handles PUT /v1/frameworks/{frameworkId}
func (h *FrameworkHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["frameworkId"]

	var fw model.Framework
	if err := json.NewDecoder(r.Body).Decode(&fw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	fw.ID = id

	if err := h.frameworkSvc.Update(r.Context(), &fw); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, fw)
}

// Delete handles DELETE /v1/frameworks/{frameworkId}
func (h *FrameworkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["frameworkId"]

	if err := h.frameworkSvc.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
