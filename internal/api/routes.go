package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(loggingMiddleware)
	r.Use(recoveryMiddleware)
	r.Use(apiHeadersMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyses", s.handleAnalyze)
		r.Get("/analyses/{id}", s.handleGetAnalysis)

		r.Post("/games/import", s.handleImport)
		r.Post("/games/resume", s.handleResumeAnalysis)
		r.Get("/games", s.handleGames)
		r.Get("/games/{id}", s.handleGameDetail)
		r.Get("/games/{id}/analysis", s.handleGameAnalysis)
		r.Post("/games/{id}/analyze", s.handleQueueGameAnalysis)
	})
	return r
}
