package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vytor/fairplay/internal/analysis"
	"github.com/vytor/fairplay/internal/cache"
	apperrors "github.com/vytor/fairplay/internal/errors"
	"github.com/vytor/fairplay/internal/models"
	"github.com/vytor/fairplay/internal/stats"
	"github.com/vytor/fairplay/internal/testutil"
	"github.com/vytor/fairplay/internal/testutil/mocks"
)

type fakeEngines struct {
	mu       sync.Mutex
	ev       analysis.Evaluator
	err      error
	wait     bool // block in Acquire until ctx is done
	acquired int
	released int
}

func (f *fakeEngines) Acquire(ctx context.Context) (analysis.Evaluator, error) {
	if f.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.acquired++
	return f.ev, nil
}

func (f *fakeEngines) Release(analysis.Evaluator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
}

func (f *fakeEngines) Available() int { return 1 }

type analysisFixture struct {
	games    *mocks.MockGameRepository
	analyses *mocks.MockAnalysisRepository
	engines  *fakeEngines
	cache    *cache.LRU
	stats    *stats.Memory
	svc      AnalysisService
}

func newAnalysisFixture(t *testing.T, cfg AnalysisConfig) *analysisFixture {
	t.Helper()
	lru, err := cache.NewLRU(16, time.Hour)
	require.NoError(t, err)

	f := &analysisFixture{
		games:    new(mocks.MockGameRepository),
		analyses: new(mocks.MockAnalysisRepository),
		engines:  &fakeEngines{ev: testutil.FixtureEvaluator()},
		cache:    lru,
		stats:    stats.NewMemory(),
	}
	if cfg.Depth == 0 {
		cfg.Depth = 12
	}
	f.svc = NewAnalysisService(f.games, f.analyses, f.engines, f.cache, f.stats, cfg)
	return f
}

func anyAnalysis() any { return mock.AnythingOfType("models.Analysis") }

func TestAnalyzePGN(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{TopK: 3})
	f.analyses.On("Save", mock.Anything, anyAnalysis(), mock.AnythingOfType("string")).Return(nil).Once()

	a, err := f.svc.AnalyzePGN(context.Background(), testutil.FixturePGN, AnalyzeOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Zero(t, a.GameID)
	assert.Equal(t, models.Blitz, a.GameType)
	assert.Equal(t, models.TimeControl{BaseSeconds: 180, IncrementSeconds: 2}, a.TimeControl)
	assert.Equal(t, "joddle", a.White)
	assert.Equal(t, 3, a.TopK)
	assert.Equal(t, 12, a.Depth)
	assert.Equal(t, analysis.DefaultThresholds(), a.Thresholds)
	require.Len(t, a.Rows, 5)
	assert.Equal(t, 1, a.Summary.Black.CriticalCount)
	assert.Equal(t, 1, a.Summary.Black.FlaggedCount)

	assert.Equal(t, 1, f.engines.acquired)
	assert.Equal(t, 1, f.engines.released)
	assert.Equal(t, int64(1), f.stats.Counter(stats.MetricAnalyses))
	assert.Equal(t, int64(9), f.stats.Counter(stats.MetricPliesAnalyzed))
	assert.Equal(t, int64(1), f.stats.Counter(stats.MetricCacheMisses))
	assert.Len(t, f.stats.Observations(stats.MetricAnalysisSeconds), 1)
	assert.Equal(t, 1, f.cache.Len())
	f.analyses.AssertExpectations(t)
}

func TestAnalyzePGN_ServedFromCache(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{TopK: 3})
	f.analyses.On("Save", mock.Anything, anyAnalysis(), mock.AnythingOfType("string")).Return(nil).Once()

	first, err := f.svc.AnalyzePGN(context.Background(), testutil.FixturePGN, AnalyzeOptions{})
	require.NoError(t, err)
	second, err := f.svc.AnalyzePGN(context.Background(), testutil.FixturePGN, AnalyzeOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, 1, f.engines.acquired)
	assert.Equal(t, int64(1), f.stats.Counter(stats.MetricCacheHits))
	f.analyses.AssertExpectations(t)
}

func TestAnalyzePGN_OptionsChangeCacheKey(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{TopK: 3})
	f.analyses.On("Save", mock.Anything, anyAnalysis(), mock.AnythingOfType("string")).Return(nil).Twice()

	_, err := f.svc.AnalyzePGN(context.Background(), testutil.FixturePGN, AnalyzeOptions{})
	require.NoError(t, err)

	strict := analysis.DefaultThresholds()
	strict.LongThinkSeconds = 100
	a, err := f.svc.AnalyzePGN(context.Background(), testutil.FixturePGN, AnalyzeOptions{Thresholds: &strict, TopK: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, f.engines.acquired)
	assert.Equal(t, 2, a.TopK)
	assert.Equal(t, 0, a.Summary.Black.FlaggedCount)
}

func TestAnalyzePGN_ZeroConfiguredThresholds(t *testing.T) {
	zero := analysis.Thresholds{}
	f := newAnalysisFixture(t, AnalysisConfig{TopK: 3, Thresholds: &zero})
	f.analyses.On("Save", mock.Anything, anyAnalysis(), mock.AnythingOfType("string")).Return(nil).Once()

	a, err := f.svc.AnalyzePGN(context.Background(), testutil.FixturePGN, AnalyzeOptions{})
	require.NoError(t, err)

	assert.Equal(t, zero, a.Thresholds)
	assert.Greater(t, a.Summary.Black.FlaggedCount, 1)
}

func TestAnalyzePGN_InvalidOptions(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{TopK: 3})

	_, err := f.svc.AnalyzePGN(context.Background(), testutil.FixturePGN, AnalyzeOptions{TopK: analysis.MaxCandidates + 1})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeValidation, appErr.Code)

	bad := analysis.DefaultThresholds()
	bad.ForcedEval = -1
	_, err = f.svc.AnalyzePGN(context.Background(), testutil.FixturePGN, AnalyzeOptions{Thresholds: &bad})
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeValidation, appErr.Code)

	assert.Zero(t, f.engines.acquired)
}

func TestAnalyzePGN_InputError(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{})

	_, err := f.svc.AnalyzePGN(context.Background(), `[Event "casual bullet game"]`+"\n\n1. e4 *", AnalyzeOptions{})
	assert.ErrorIs(t, err, apperrors.ErrInput)
	assert.Zero(t, f.engines.acquired)
}

func TestAnalyzePGN_EngineUnavailable(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{})
	f.engines.err = apperrors.NewEngineUnavailableError(errors.New("exec: not found"))

	_, err := f.svc.AnalyzePGN(context.Background(), testutil.FixturePGN, AnalyzeOptions{})
	assert.ErrorIs(t, err, apperrors.ErrEngineUnavailable)
	assert.Equal(t, int64(1), f.stats.Counter(stats.MetricAnalysisFailures))
	assert.Equal(t, int64(1), f.stats.Counter(stats.MetricEngineUnavailable))
	assert.Equal(t, 0, f.cache.Len())
}

func TestAnalyzePGN_TimeoutIsEngineUnavailable(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{Timeout: 20 * time.Millisecond})
	f.engines.wait = true

	_, err := f.svc.AnalyzePGN(context.Background(), testutil.FixturePGN, AnalyzeOptions{})
	assert.ErrorIs(t, err, apperrors.ErrEngineUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnalyzePGN_EvaluatorFailureReleasesSession(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{})
	ev := testutil.FixtureEvaluator()
	ev.FailAt = 4
	ev.Fail = apperrors.NewEngineUnavailableError(errors.New("broken pipe"))
	f.engines.ev = ev

	_, err := f.svc.AnalyzePGN(context.Background(), testutil.FixturePGN, AnalyzeOptions{})
	assert.ErrorIs(t, err, apperrors.ErrEngineUnavailable)
	assert.Equal(t, 1, f.engines.acquired)
	assert.Equal(t, 1, f.engines.released)
}

func TestAnalyzePGN_SaveFailure(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{})
	f.analyses.On("Save", mock.Anything, anyAnalysis(), mock.AnythingOfType("string")).Return(errors.New("disk full"))

	_, err := f.svc.AnalyzePGN(context.Background(), testutil.FixturePGN, AnalyzeOptions{})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInternal, appErr.Code)
	assert.Equal(t, 0, f.cache.Len())
}

func TestAnalyzePGN_CorruptCacheEntryIsMiss(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{TopK: 3})
	f.analyses.On("Save", mock.Anything, anyAnalysis(), mock.AnythingOfType("string")).Return(nil).Once()

	key := cache.Key(testutil.FixturePGN, analysis.DefaultThresholds(), 3, 12)
	require.NoError(t, f.cache.Set(context.Background(), key, []byte("{not json")))

	_, err := f.svc.AnalyzePGN(context.Background(), testutil.FixturePGN, AnalyzeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.engines.acquired)

	raw, ok, err := f.cache.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, json.Valid(raw))
}

func storedGame(status string) *models.Game {
	return &models.Game{
		ID:             7,
		SourceID:       "abcdefgh",
		PGN:            testutil.FixturePGN,
		GameType:       "blitz",
		White:          "joddle",
		Black:          "testJoddle",
		OpeningName:    "Queen's Pawn Game",
		ECOCode:        "A41",
		AnalysisStatus: status,
	}
}

func TestAnalyzeGame(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{TopK: 3})
	f.games.On("Get", mock.Anything, int64(7)).Return(storedGame(models.StatusPending), nil)
	f.games.On("UpdateStatus", mock.Anything, int64(7), models.StatusProcessing).Return(nil).Once()
	f.analyses.On("Save", mock.Anything, mock.MatchedBy(func(a models.Analysis) bool {
		return a.GameID == 7 && len(a.Rows) == 5
	}), mock.AnythingOfType("string")).Return(nil).Once()

	require.NoError(t, f.svc.AnalyzeGame(context.Background(), 7))

	f.games.AssertExpectations(t)
	f.analyses.AssertExpectations(t)
	f.games.AssertNotCalled(t, "UpdateStatus", mock.Anything, int64(7), models.StatusFailed)
}

func TestAnalyzeGame_FillsMissingOpening(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{})
	g := storedGame(models.StatusPending)
	g.OpeningName, g.ECOCode = "", ""
	f.games.On("Get", mock.Anything, int64(7)).Return(g, nil)
	f.games.On("UpdateStatus", mock.Anything, int64(7), models.StatusProcessing).Return(nil)
	f.games.On("UpdateOpening", mock.Anything, int64(7), "A41", "Queen's Pawn Game").Return(nil).Once()
	f.analyses.On("Save", mock.Anything, anyAnalysis(), mock.AnythingOfType("string")).Return(nil)

	require.NoError(t, f.svc.AnalyzeGame(context.Background(), 7))
	f.games.AssertExpectations(t)
}

func TestAnalyzeGame_AlreadyCompleted(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{})
	f.games.On("Get", mock.Anything, int64(7)).Return(storedGame(models.StatusCompleted), nil)

	require.NoError(t, f.svc.AnalyzeGame(context.Background(), 7))
	assert.Zero(t, f.engines.acquired)
	f.games.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyzeGame_NotFound(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{})
	f.games.On("Get", mock.Anything, int64(99)).Return(nil, sql.ErrNoRows)

	err := f.svc.AnalyzeGame(context.Background(), 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAnalyzeGame_EngineFailureMarksFailed(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{})
	f.engines.err = apperrors.NewEngineUnavailableError(errors.New("no binary"))
	f.games.On("Get", mock.Anything, int64(7)).Return(storedGame(models.StatusPending), nil)
	f.games.On("UpdateStatus", mock.Anything, int64(7), models.StatusProcessing).Return(nil).Once()
	f.games.On("UpdateStatus", mock.Anything, int64(7), models.StatusFailed).Return(nil).Once()

	err := f.svc.AnalyzeGame(context.Background(), 7)
	assert.ErrorIs(t, err, apperrors.ErrEngineUnavailable)
	f.games.AssertExpectations(t)
}

func TestAnalyzeGame_CancelledReturnsToPending(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{})
	f.engines.wait = true
	f.games.On("Get", mock.Anything, int64(7)).Return(storedGame(models.StatusPending), nil)
	f.games.On("UpdateStatus", mock.Anything, int64(7), models.StatusProcessing).Return(nil).Once()
	f.games.On("UpdateStatus", mock.Anything, int64(7), models.StatusPending).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := f.svc.AnalyzeGame(ctx, 7)
	assert.ErrorIs(t, err, context.Canceled)
	f.games.AssertExpectations(t)
	f.games.AssertNotCalled(t, "UpdateStatus", mock.Anything, int64(7), models.StatusFailed)
}

func TestAnalyzeGame_BadStoredRecordMarksFailed(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{})
	g := storedGame(models.StatusPending)
	g.PGN = "garbage"
	f.games.On("Get", mock.Anything, int64(7)).Return(g, nil)
	f.games.On("UpdateStatus", mock.Anything, int64(7), models.StatusProcessing).Return(nil).Once()
	f.games.On("UpdateStatus", mock.Anything, int64(7), models.StatusFailed).Return(nil).Once()

	err := f.svc.AnalyzeGame(context.Background(), 7)
	assert.ErrorIs(t, err, apperrors.ErrInput)
	f.games.AssertExpectations(t)
}

func TestAnalyzeGame_ReusesCachedAnalysis(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{TopK: 3})
	var saved []models.Analysis
	f.analyses.On("Save", mock.Anything, anyAnalysis(), mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { saved = append(saved, args.Get(1).(models.Analysis)) }).
		Return(nil)
	f.games.On("Get", mock.Anything, int64(7)).Return(storedGame(models.StatusPending), nil)
	f.games.On("UpdateStatus", mock.Anything, int64(7), models.StatusProcessing).Return(nil)

	_, err := f.svc.AnalyzePGN(context.Background(), testutil.FixturePGN, AnalyzeOptions{})
	require.NoError(t, err)
	require.NoError(t, f.svc.AnalyzeGame(context.Background(), 7))

	require.Len(t, saved, 2)
	assert.Equal(t, 1, f.engines.acquired)
	assert.Equal(t, int64(7), saved[1].GameID)
	assert.NotEqual(t, saved[0].ID, saved[1].ID)
	assert.Equal(t, saved[0].Rows, saved[1].Rows)
}

func TestGetAnalysis(t *testing.T) {
	f := newAnalysisFixture(t, AnalysisConfig{})
	f.analyses.On("Get", mock.Anything, "found").Return(&models.Analysis{ID: "found"}, nil)
	f.analyses.On("Get", mock.Anything, "missing").Return(nil, sql.ErrNoRows)
	f.analyses.On("Get", mock.Anything, "broken").Return(nil, errors.New("db closed"))

	a, err := f.svc.GetAnalysis(context.Background(), "found")
	require.NoError(t, err)
	assert.Equal(t, "found", a.ID)

	_, err = f.svc.GetAnalysis(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.GetAnalysis(context.Background(), "broken")
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInternal, appErr.Code)
}
