package api

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vytor/fairplay/internal/errors"
	"github.com/vytor/fairplay/internal/logger"
	"github.com/vytor/fairplay/internal/services"
)

type analyzeRequest struct {
	PGN string `json:"pgn"`
}

// handleAnalyze runs the pipeline on a PGN sent either as the raw body or
// as {"pgn": "..."} with a JSON content type.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	text, err := s.readPGN(w, r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var opts services.AnalyzeOptions
	if opts.TopK, _, err = queryInt(r, "top_k"); err != nil {
		handleError(w, r, err)
		return
	}
	if opts.Thresholds, err = thresholdOverrides(r, s.Thresholds); err != nil {
		handleError(w, r, err)
		return
	}

	a, err := s.AnalysisService.AnalyzePGN(r.Context(), text, opts)
	if err != nil {
		handleError(w, r, err)
		return
	}

	log.Info("analysis %s: %d rows", a.ID, len(a.Rows))
	writeJSON(w, r, http.StatusOK, a)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.AnalysisService.GetAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, a)
}

func (s *Server) readPGN(w http.ResponseWriter, r *http.Request) (string, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.bodyLimit()))
	if err != nil {
		return "", errors.NewBadRequestError("request body too large or unreadable")
	}

	text := string(raw)
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		var req analyzeRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return "", errors.NewBadRequestError("invalid JSON body")
		}
		text = req.PGN
	}

	if strings.TrimSpace(text) == "" {
		return "", errors.NewInputError("game record is empty")
	}
	return text, nil
}
