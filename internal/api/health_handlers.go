package api

import (
	"context"
	"net/http"
	"time"

	"github.com/vytor/fairplay/internal/logger"
)

// handleHealth reports liveness and always returns 200 OK.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady returns 200 when the database answers, 503 otherwise. Engine
// capacity is reported but never fails the check: sessions start lazily.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	body := map[string]any{"status": "ready"}
	if s.Engines != nil {
		body["engines_available"] = s.Engines.Available()
	}

	if s.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.DB.PingContext(ctx); err != nil {
			log.Warn("readiness check failed - database: %v", err)
			body["status"] = "database unavailable"
			writeJSON(w, r, http.StatusServiceUnavailable, body)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, body)
}
