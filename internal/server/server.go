// Package server exposes the analysis pipeline over a JSON HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/reviewpulse/reviewpulse/internal/config"
	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/internal/pipeline"
	"github.com/reviewpulse/reviewpulse/internal/registry"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Runner starts pipeline work for a job. Satisfied by *pipeline.Orchestrator.
type Runner interface {
	ExecuteJob(ctx context.Context, jobID string, target model.Target, opts pipeline.Options)
}

// Server wires HTTP handlers to the store, registry, and pipeline.
type Server struct {
	cfg      *config.Config
	store    store.Store
	registry *registry.Registry
	runner   Runner

	// jobCtx outlives individual requests so accepted jobs keep running
	// after the client disconnects.
	jobCtx context.Context
}

// New creates a Server. jobCtx bounds the lifetime of background jobs; it is
// typically the process context.
func New(jobCtx context.Context, cfg *config.Config, st store.Store, reg *registry.Registry, runner Runner) *Server {
	return &Server{
		cfg:      cfg,
		store:    st,
		registry: reg,
		runner:   runner,
		jobCtx:   jobCtx,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/analyze/preset", s.handleAnalyzePreset)
		r.Get("/targets", s.handleTargets)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Get("/jobs/{id}/results", s.handleJobResults)
		r.Delete("/jobs/{id}", s.handleDeleteJob)
		r.Get("/reports/{filename}", s.handleReport)
	})

	return r
}
