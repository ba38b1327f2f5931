package services

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/vytor/fairplay/internal/errors"
	"github.com/vytor/fairplay/internal/jobs"
	"github.com/vytor/fairplay/internal/lichess"
	"github.com/vytor/fairplay/internal/logger"
	"github.com/vytor/fairplay/internal/models"
	"github.com/vytor/fairplay/internal/pgn"
	"github.com/vytor/fairplay/internal/repository"
)

// GameService handles game-related business logic
type GameService interface {
	ImportFromLichess(ctx context.Context, idOrURL string) (*models.Game, error)
	GetGame(ctx context.Context, id int64) (*models.Game, error)
	ListGames(ctx context.Context, filter models.GameFilter) ([]models.Game, int, error)
	GetLatestAnalysis(ctx context.Context, gameID int64) (*models.Analysis, error)
	QueueGameAnalysis(ctx context.Context, gameID int64) error
	ResumeAnalysis(ctx context.Context) (int, error)
}

type gameService struct {
	gameRepo     repository.GameRepository
	analysisRepo repository.AnalysisRepository
	source       lichess.ClientInterface
	jobQueue     jobs.JobQueue
}

// NewGameService creates a new GameService
func NewGameService(
	gameRepo repository.GameRepository,
	analysisRepo repository.AnalysisRepository,
	source lichess.ClientInterface,
	jobQueue jobs.JobQueue,
) GameService {
	return &gameService{
		gameRepo:     gameRepo,
		analysisRepo: analysisRepo,
		source:       source,
		jobQueue:     jobQueue,
	}
}

// ImportFromLichess stores the game behind idOrURL and queues its analysis.
// A game imported before is returned as stored; a failed one is queued
// again.
func (s *gameService) ImportFromLichess(ctx context.Context, idOrURL string) (*models.Game, error) {
	log := logger.FromContext(ctx)

	sourceID, err := pgn.ExtractGameID(idOrURL)
	if err != nil {
		return nil, err
	}
	log = log.WithField("source_id", sourceID)

	existing, err := s.gameRepo.GetBySourceID(ctx, sourceID)
	switch {
	case err == nil:
		log.Debug("game already imported as %d (%s)", existing.ID, existing.AnalysisStatus)
		if existing.AnalysisStatus == models.StatusFailed {
			if err := s.QueueGameAnalysis(ctx, existing.ID); err != nil {
				return nil, err
			}
			existing.AnalysisStatus = models.StatusPending
		}
		return existing, nil
	case !stderrors.Is(err, sql.ErrNoRows):
		log.Error("failed to look up game: %v", err)
		return nil, errors.NewInternalError(err)
	}

	text, err := s.source.Fetch(ctx, sourceID)
	if err != nil {
		log.Warn("failed to fetch game: %v", err)
		return nil, err
	}

	rec, err := pgn.Load(text)
	if err != nil {
		log.Warn("fetched game does not load: %v", err)
		return nil, err
	}

	game := models.Game{
		SourceID:         sourceID,
		PGN:              text,
		GameType:         string(rec.Type),
		BaseSeconds:      rec.TimeControl.BaseSeconds,
		IncrementSeconds: rec.TimeControl.IncrementSeconds,
		White:            rec.White,
		Black:            rec.Black,
		Result:           rec.Result,
		ECOCode:          rec.ECOCode,
		OpeningName:      rec.OpeningName,
		AnalysisStatus:   models.StatusPending,
	}
	id, err := s.gameRepo.Insert(ctx, game)
	if err != nil {
		log.Error("failed to insert game: %v", err)
		return nil, errors.NewInternalError(err)
	}
	game.ID = id
	log.Info("imported game %d (%s, %s vs %s)", id, game.GameType, game.White, game.Black)

	// A game that misses the queue stays pending and is picked up on restart.
	if err := s.jobQueue.EnqueueAnalysis(id); err != nil {
		log.Warn("failed to enqueue analysis for game %d: %v", id, err)
	}
	return &game, nil
}

func (s *gameService) GetGame(ctx context.Context, id int64) (*models.Game, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting game: id=%d", id)

	game, err := s.gameRepo.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("game", id)
		}
		log.Error("failed to get game: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return game, nil
}

func (s *gameService) ListGames(ctx context.Context, filter models.GameFilter) ([]models.Game, int, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing games: type=%q status=%q player=%q", filter.GameType, filter.Status, filter.Player)

	games, err := s.gameRepo.List(ctx, filter)
	if err != nil {
		log.Error("failed to list games: %v", err)
		return nil, 0, errors.NewInternalError(err)
	}

	totalCount, err := s.gameRepo.Count(ctx, filter)
	if err != nil {
		log.Error("failed to count games: %v", err)
		return nil, 0, errors.NewInternalError(err)
	}

	return games, totalCount, nil
}

func (s *gameService) GetLatestAnalysis(ctx context.Context, gameID int64) (*models.Analysis, error) {
	log := logger.FromContext(ctx)

	if _, err := s.GetGame(ctx, gameID); err != nil {
		return nil, err
	}

	a, err := s.analysisRepo.LatestForGame(ctx, gameID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("analysis for game", gameID)
		}
		log.Error("failed to get analysis: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return a, nil
}

// QueueGameAnalysis marks the game pending and queues it. Games already
// processing are left alone.
func (s *gameService) QueueGameAnalysis(ctx context.Context, gameID int64) error {
	log := logger.FromContext(ctx)
	log.Debug("queueing game analysis: game_id=%d", gameID)

	game, err := s.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.AnalysisStatus == models.StatusProcessing {
		log.Debug("game already processing, skipping queue")
		return nil
	}

	if err := s.gameRepo.UpdateStatus(ctx, gameID, models.StatusPending); err != nil {
		log.Error("failed to update game status: %v", err)
		return errors.NewInternalError(err)
	}
	if err := s.jobQueue.EnqueueAnalysis(gameID); err != nil {
		log.Warn("failed to enqueue analysis for game %d: %v", gameID, err)
		return errors.NewInternalError(err)
	}
	return nil
}

// ResumeAnalysis requeues games a previous run left pending or processing.
// It returns how many were queued.
func (s *gameService) ResumeAnalysis(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	if err := s.gameRepo.ResetProcessingToPending(ctx); err != nil {
		log.Warn("failed to reset processing games: %v", err)
	}

	games, err := s.gameRepo.PendingGames(ctx, 0)
	if err != nil {
		log.Error("failed to list pending games: %v", err)
		return 0, errors.NewInternalError(err)
	}

	queued := 0
	for _, g := range games {
		if err := s.jobQueue.EnqueueAnalysis(g.ID); err != nil {
			log.Warn("failed to enqueue analysis for game %d: %v", g.ID, err)
			continue
		}
		queued++
	}

	log.Info("resumed %d of %d pending games", queued, len(games))
	return queued, nil
}
