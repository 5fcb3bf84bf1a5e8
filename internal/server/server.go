package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/scanflow/internal/auth"
	"github.com/claude/scanflow/internal/coach"
	"github.com/claude/scanflow/internal/recommend"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	coach  *coach.Service
	chat   *recommend.Service
	tokens *auth.Tokens
	whois  WhoIser
	log    *slog.Logger
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(coachSvc *coach.Service, chat *recommend.Service, tokens *auth.Tokens, log *slog.Logger) *Server {
	s := &Server{
		coach:  coachSvc,
		chat:   chat,
		tokens: tokens,
		log:    log,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)

	// Callables. Each handler rejects requests without a caller.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identity)
		r.Get("/me", s.handleMe)
		r.Post("/users", s.handleCreateUser)
		r.Post("/onboarding", s.handleOnboarding)
		r.Post("/scans", s.handleScan)
		r.Post("/plans/training", s.handleTrainingPlan)
		r.Post("/plans/nutrition", s.handleNutritionPlan)
		r.Post("/feedback/workout", s.handleWorkoutFeedback)
		r.Post("/feedback/nutrition", s.handleNutritionFeedback)
		r.Get("/logs/{kind}", s.handleRecentLogs)
		r.Post("/chat", s.handleChat)
	})
}

// SetTailscale enables tailnet identity for requests without a bearer token.
func (s *Server) SetTailscale(w WhoIser) {
	s.whois = w
}

// SetMCP mounts an MCP handler at /mcp behind the identity middleware.
func (s *Server) SetMCP(h http.Handler) {
	s.router.With(s.identity).Handle("/mcp", h)
}
