package services

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vytor/fairplay/internal/analysis"
	"github.com/vytor/fairplay/internal/cache"
	"github.com/vytor/fairplay/internal/errors"
	"github.com/vytor/fairplay/internal/logger"
	"github.com/vytor/fairplay/internal/models"
	"github.com/vytor/fairplay/internal/pgn"
	"github.com/vytor/fairplay/internal/repository"
	"github.com/vytor/fairplay/internal/stats"
)

// AnalysisService runs games through the replay and classification pipeline
type AnalysisService interface {
	AnalyzePGN(ctx context.Context, text string, opts AnalyzeOptions) (*models.Analysis, error)
	AnalyzeGame(ctx context.Context, gameID int64) error
	GetAnalysis(ctx context.Context, id string) (*models.Analysis, error)
}

// EngineProvider hands out evaluator sessions. *analysis.EnginePool
// satisfies it.
type EngineProvider interface {
	Acquire(ctx context.Context) (analysis.Evaluator, error)
	Release(ev analysis.Evaluator)
	Available() int
}

type analysisService struct {
	gameRepo     repository.GameRepository
	analysisRepo repository.AnalysisRepository
	engines      EngineProvider
	cache        cache.Cache
	stats        stats.Collector
	config       AnalysisConfig
	thresholds   analysis.Thresholds
	now          func() time.Time
}

// NewAnalysisService creates a new AnalysisService
func NewAnalysisService(
	gameRepo repository.GameRepository,
	analysisRepo repository.AnalysisRepository,
	engines EngineProvider,
	resultCache cache.Cache,
	collector stats.Collector,
	config AnalysisConfig,
) AnalysisService {
	if collector == nil {
		collector = stats.NewNoop()
	}
	thresholds := analysis.DefaultThresholds()
	if config.Thresholds != nil {
		thresholds = *config.Thresholds
	}
	return &analysisService{
		gameRepo:     gameRepo,
		analysisRepo: analysisRepo,
		engines:      engines,
		cache:        resultCache,
		stats:        collector,
		config:       config,
		thresholds:   thresholds,
		now:          time.Now,
	}
}

// AnalyzePGN analyses a game that is not stored. The result is saved
// without a game id so it can be fetched again by its own id.
func (s *analysisService) AnalyzePGN(ctx context.Context, text string, opts AnalyzeOptions) (*models.Analysis, error) {
	log := logger.FromContext(ctx)

	params, err := s.resolve(opts)
	if err != nil {
		return nil, err
	}

	rec, err := pgn.Load(text)
	if err != nil {
		log.Debug("rejected game record: %v", err)
		return nil, err
	}
	return s.analyze(ctx, text, rec, 0, params)
}

func (s *analysisService) AnalyzeGame(ctx context.Context, gameID int64) error {
	log := logger.FromContext(ctx).WithField("game_id", gameID)
	log.Info("starting game analysis")

	game, err := s.gameRepo.Get(ctx, gameID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NewNotFoundError("game", gameID)
		}
		log.Error("failed to get game: %v", err)
		return err
	}

	if game.AnalysisStatus == models.StatusCompleted {
		log.Debug("game already analyzed, skipping")
		return nil
	}

	log = log.WithFields(map[string]any{
		"white":     game.White,
		"black":     game.Black,
		"game_type": game.GameType,
	})
	ctx = logger.NewContext(ctx, log)

	log.Debug("updating game status to processing")
	if err := s.gameRepo.UpdateStatus(ctx, gameID, models.StatusProcessing); err != nil {
		log.Error("failed to update game status: %v", err)
		return err
	}

	rec, err := pgn.Load(game.PGN)
	if err != nil {
		log.Error("stored game does not load: %v", err)
		s.setStatus(ctx, gameID, models.StatusFailed)
		return err
	}

	if game.OpeningName == "" && rec.OpeningName != "" {
		if err := s.gameRepo.UpdateOpening(ctx, gameID, rec.ECOCode, rec.OpeningName); err != nil {
			log.Warn("failed to update game opening: %v", err)
		} else {
			log.Debug("updated opening to %s (%s)", rec.OpeningName, rec.ECOCode)
		}
	}

	params, _ := s.resolve(AnalyzeOptions{})
	if _, err := s.analyze(ctx, game.PGN, rec, gameID, params); err != nil {
		if stderrors.Is(err, context.Canceled) {
			// Interrupted, not broken: leave it for the next run.
			s.setStatus(ctx, gameID, models.StatusPending)
		} else {
			s.setStatus(ctx, gameID, models.StatusFailed)
		}
		return err
	}
	return nil
}

func (s *analysisService) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	log := logger.FromContext(ctx)

	a, err := s.analysisRepo.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("analysis", id)
		}
		log.Error("failed to get analysis: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return a, nil
}

// resolve merges per-request options over the configured defaults.
func (s *analysisService) resolve(opts AnalyzeOptions) (analysis.Options, error) {
	th := s.thresholds
	params := analysis.Options{TopK: s.config.TopK, Thresholds: &th}
	if opts.TopK != 0 {
		if opts.TopK < 1 || opts.TopK > analysis.MaxCandidates {
			return params, errors.NewValidationError("top_k", fmt.Sprintf("must be between 1 and %d", analysis.MaxCandidates))
		}
		params.TopK = opts.TopK
	}
	if opts.Thresholds != nil {
		if err := opts.Thresholds.Validate(); err != nil {
			return params, errors.NewValidationError("thresholds", err.Error())
		}
		th = *opts.Thresholds
	}
	if params.TopK <= 0 {
		params.TopK = 5
	}
	return params, nil
}

// analyze serves rec from the cache or runs the pipeline on a pooled
// engine session, then stores the result. gameID 0 means an ad-hoc game.
func (s *analysisService) analyze(ctx context.Context, text string, rec models.GameRecord, gameID int64, params analysis.Options) (*models.Analysis, error) {
	log := logger.FromContext(ctx)
	key := cache.Key(text, *params.Thresholds, params.TopK, s.config.Depth)

	if cached, ok := s.lookup(ctx, key); ok {
		log.Info("analysis served from cache: %s", cached.ID)
		if gameID == 0 || cached.GameID == gameID {
			return cached, nil
		}
		// Same game imported again: store a copy under the new game.
		cached.ID = uuid.NewString()
		cached.GameID = gameID
		cached.CreatedAt = s.now().UTC()
		if err := s.save(ctx, *cached, key); err != nil {
			return nil, err
		}
		return cached, nil
	}

	start := time.Now()
	result, err := s.run(ctx, rec, params)
	if err != nil {
		s.stats.IncCounter(stats.MetricAnalysisFailures, 1)
		if stderrors.Is(err, errors.ErrEngineUnavailable) {
			s.stats.IncCounter(stats.MetricEngineUnavailable, 1)
		}
		log.Error("analysis failed after %v: %v", time.Since(start), err)
		return nil, err
	}
	elapsed := time.Since(start)
	s.stats.IncCounter(stats.MetricAnalyses, 1)
	s.stats.IncCounter(stats.MetricPliesAnalyzed, int64(len(rec.Moves)))
	s.stats.ObserveHistogram(stats.MetricAnalysisSeconds, elapsed.Seconds())
	log.Info("analysed %d plies in %v", len(rec.Moves), elapsed)

	a := models.Analysis{
		ID:          uuid.NewString(),
		GameID:      gameID,
		GameType:    rec.Type,
		TimeControl: rec.TimeControl,
		White:       rec.White,
		Black:       rec.Black,
		Result:      rec.Result,
		ECOCode:     rec.ECOCode,
		OpeningName: rec.OpeningName,
		Thresholds:  *params.Thresholds,
		TopK:        params.TopK,
		Depth:       s.config.Depth,
		Rows:        result.Rows,
		Summary:     result.Summary,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.save(ctx, a, key); err != nil {
		return nil, err
	}
	s.store(ctx, key, a)
	return &a, nil
}

// run holds one engine session for the whole replay and always gives it
// back. A deadline hit anywhere during the run is ENGINE_UNAVAILABLE.
func (s *analysisService) run(ctx context.Context, rec models.GameRecord, params analysis.Options) (*analysis.Result, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	ev, err := s.engines.Acquire(ctx)
	if err != nil {
		return nil, errors.FromDeadline(err)
	}
	defer func() {
		s.engines.Release(ev)
		s.stats.SetGauge(stats.MetricEnginesAvailable, int64(s.engines.Available()))
	}()
	s.stats.SetGauge(stats.MetricEnginesAvailable, int64(s.engines.Available()))

	result, err := analysis.Run(ctx, ev, rec, params)
	if err != nil {
		return nil, errors.FromDeadline(err)
	}
	return result, nil
}

func (s *analysisService) lookup(ctx context.Context, key string) (*models.Analysis, bool) {
	if s.cache == nil {
		return nil, false
	}
	log := logger.FromContext(ctx)

	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn("cache lookup failed: %v", err)
	}
	if err != nil || !ok {
		s.stats.IncCounter(stats.MetricCacheMisses, 1)
		return nil, false
	}

	var a models.Analysis
	if err := json.Unmarshal(raw, &a); err != nil {
		log.Warn("discarding undecodable cache entry: %v", err)
		s.stats.IncCounter(stats.MetricCacheMisses, 1)
		return nil, false
	}
	s.stats.IncCounter(stats.MetricCacheHits, 1)
	return &a, true
}

func (s *analysisService) store(ctx context.Context, key string, a models.Analysis) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(a)
	if err == nil {
		err = s.cache.Set(ctx, key, raw)
	}
	if err != nil {
		logger.FromContext(ctx).Warn("failed to cache analysis %s: %v", a.ID, err)
	}
}

func (s *analysisService) save(ctx context.Context, a models.Analysis, key string) error {
	if err := s.analysisRepo.Save(ctx, a, key); err != nil {
		logger.FromContext(ctx).Error("failed to save analysis: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *analysisService) setStatus(ctx context.Context, gameID int64, status string) {
	// The caller's context may already be cancelled.
	if err := s.gameRepo.UpdateStatus(context.WithoutCancel(ctx), gameID, status); err != nil {
		logger.FromContext(ctx).Error("failed to mark game %s: %v", status, err)
	}
}
