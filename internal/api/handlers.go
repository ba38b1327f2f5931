package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vytor/fairplay/internal/analysis"
	"github.com/vytor/fairplay/internal/logger"
	"github.com/vytor/fairplay/internal/services"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// EngineStatus reports spare engine capacity. *analysis.EnginePool
// satisfies it.
type EngineStatus interface {
	Available() int
}

type Server struct {
	AnalysisService services.AnalysisService
	GameService     services.GameService
	DB              Pinger
	Engines         EngineStatus
	Metrics         http.Handler
	Thresholds      *analysis.Thresholds // base for per-request overrides; nil = defaults
	MaxBodyBytes    int64
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode response: %v", err)
	}
}

func (s *Server) bodyLimit() int64 {
	if s.MaxBodyBytes > 0 {
		return s.MaxBodyBytes
	}
	return 1 << 20
}
