package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/doxnav/internal/config"
	"github.com/dgallion1/doxnav/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for doxnav.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Get("/api/sites", s.handleListSites)
		r.Route("/api/sites/{site}", func(r chi.Router) {
			r.Use(s.siteContext)
			r.Get("/navtree", s.handleNavtree)
			r.Get("/index", s.handleIndex)
			r.Get("/locate", s.handleLocate)
			r.Get("/resolve", s.handleResolve)
			r.Get("/query", s.handleQuery)
			r.Get("/search", s.handleSearch)
			r.Get("/problems", s.handleProblems)
			r.Post("/check", s.handleCheck)
		})
		r.Get("/api/checks/{jobID}/status", s.handleCheckStatus)
		r.Post("/api/validate", s.handleValidate)
		r.Get("/api/stats/checks", s.handleCheckStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
