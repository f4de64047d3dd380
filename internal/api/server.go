package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/verdicthq/verdict/internal/config"
	"github.com/verdicthq/verdict/internal/qualification"
	"github.com/verdicthq/verdict/internal/storage"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	flow           *qualification.Orchestrator
	repo           storage.Repository
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	flow *qualification.Orchestrator,
	repo storage.Repository,
	auth *AuthMiddleware,
) *Server {
	s := &Server{
		config:         cfg,
		flow:           flow,
		repo:           repo,
		authMiddleware: auth,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	// API v1 routes (protected by authentication)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		// Onboarding checklist
		r.Route("/onboarding", func(r chi.Router) {
			r.Get("/steps", s.handleListSteps)
			r.Get("/progress", s.handleGetProgress)
			r.Post("/steps/{id}/complete", s.handleCompleteStep)
		})

		// Qualification flow
		r.Route("/qualification", func(r chi.Router) {
			r.Get("/session", s.handleGetSession)
			r.Post("/session", s.handleStartSession)
			r.Post("/advance", s.handleAdvance)
			r.Post("/guidelines/ack", s.handleAckGuideline)
			r.Post("/guidelines/accept", s.handleAcceptGuidelines)
			r.Post("/quiz/answers", s.handleRecordAnswer)
			r.Post("/quiz/submit", s.handleSubmitQuiz)
			r.Post("/quiz/retry", s.handleRetryQuiz)
			r.Post("/demographics", s.handleSubmitDemographics)
			r.Post("/demographics/retry", s.handleRetryDemographics)
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
