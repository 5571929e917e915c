package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"complianceiq/internal/service"
	"complianceiq/internal/transport/rest/handler"
	"complianceiq/internal/transport/rest/middleware"
	"complianceiq/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService       *service.AuthService
	FrameworkService  *service.FrameworkService
	AssessmentService *service.AssessmentService
	WSHub             *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	frameworkHandler := handler.NewFrameworkHandler(c.FrameworkService)
	assessmentHandler := handler.NewAssessmentHandler(c.AssessmentService)
	reportHandler := handler.NewReportHandler(c.AssessmentService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/assessments", assessmentHandler.Start).Methods("POST", "OPTIONS")

	// WebSocket routes (public with token in query param)
	v1.HandleFunc("/ws/assessments/{id}", wsHandler.AssessmentWS).Methods("GET")
	v1.HandleFunc("/ws/admin", wsHandler.AdminWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Admin routes (require admin auth)
	adminRoutes := v1.NewRoute().Subrouter()
	adminRoutes.Use(authMW.RequireAdmin)

	adminRoutes.HandleFunc("/frameworks", frameworkHandler.Create).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/frameworks", frameworkHandler.List).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/frameworks/{frameworkId}", frameworkHandler.Get).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/frameworks/{frameworkId}", frameworkHandler.Update).Methods("PUT", "OPTIONS")
	adminRoutes.HandleFunc("/frameworks/{frameworkId}", frameworkHandler.Delete).Methods("DELETE", "OPTIONS")
	adminRoutes.HandleFunc("/frameworks/{frameworkId}/results", reportHandler.FrameworkResults).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/respondents/{respondent}/assessments", reportHandler.RespondentAssessments).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/assessments/{id}/results", assessmentHandler.Result).Methods("GET", "OPTIONS")

	// Respondent routes (require assessment-scoped auth)
	respondentRoutes := v1.NewRoute().Subrouter()
	respondentRoutes.Use(authMW.RequireRespondent)

	respondentRoutes.HandleFunc("/assessments/{id}/question/current", assessmentHandler.Current).Methods("GET", "OPTIONS")
	respondentRoutes.HandleFunc("/assessments/{id}/answers", assessmentHandler.Answer).Methods("PUT", "OPTIONS")
	respondentRoutes.HandleFunc("/assessments/{id}/next", assessmentHandler.Next).Methods("POST", "OPTIONS")
	respondentRoutes.HandleFunc("/assessments/{id}/previous", assessmentHandler.Previous).Methods("POST", "OPTIONS")
	respondentRoutes.HandleFunc("/assessments/{id}/sections/{index}/jump", assessmentHandler.Jump).Methods("POST", "OPTIONS")
	respondentRoutes.HandleFunc("/assessments/{id}/progress", assessmentHandler.Progress).Methods("GET", "OPTIONS")
	respondentRoutes.HandleFunc("/assessments/{id}/results", assessmentHandler.Submit).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
