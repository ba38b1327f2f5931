package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vytor/fairplay/internal/errors"
	"github.com/vytor/fairplay/internal/logger"
	"github.com/vytor/fairplay/internal/models"
)

type importRequest struct {
	Game string `json:"game"`
}

type gamesResponse struct {
	Games  []models.Game `json:"games"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req importRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.bodyLimit())).Decode(&req); err != nil {
		handleError(w, r, errors.NewBadRequestError("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Game) == "" {
		handleError(w, r, errors.NewValidationError("game", "cannot be empty"))
		return
	}

	game, err := s.GameService.ImportFromLichess(r.Context(), req.Game)
	if err != nil {
		handleError(w, r, err)
		return
	}

	log.Info("game %d imported, analysis %s", game.ID, game.AnalysisStatus)
	writeJSON(w, r, http.StatusAccepted, game)
}

func (s *Server) handleResumeAnalysis(w http.ResponseWriter, r *http.Request) {
	count, err := s.GameService.ResumeAnalysis(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]int{"queued": count})
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.GameFilter{
		GameType: q.Get("type"),
		Status:   q.Get("status"),
		Player:   q.Get("player"),
		Limit:    50,
	}

	var err error
	if n, ok, perr := queryInt(r, "limit"); perr != nil {
		err = perr
	} else if ok {
		if n < 1 || n > 200 {
			err = errors.NewValidationError("limit", "must be between 1 and 200")
		}
		filter.Limit = n
	}
	if n, ok, perr := queryInt(r, "offset"); perr != nil {
		err = perr
	} else if ok {
		if n < 0 {
			err = errors.NewValidationError("offset", "must be >= 0")
		}
		filter.Offset = n
	}
	if err != nil {
		handleError(w, r, err)
		return
	}

	games, total, err := s.GameService.ListGames(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if games == nil {
		games = []models.Game{}
	}
	writeJSON(w, r, http.StatusOK, gamesResponse{Games: games, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

func (s *Server) handleGameDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	game, err := s.GameService.GetGame(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, game)
}

func (s *Server) handleGameAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a, err := s.GameService.GetLatestAnalysis(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, a)
}

func (s *Server) handleQueueGameAnalysis(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.GameService.QueueGameAnalysis(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	log.Info("queued analysis for game %d", id)
	writeJSON(w, r, http.StatusAccepted, map[string]int64{"game_id": id})
}
