package repository

import (
	"context"

	"github.com/vytor/fairplay/internal/models"
)

// GameRepository handles game data access
type GameRepository interface {
	Get(ctx context.Context, id int64) (*models.Game, error)
	GetBySourceID(ctx context.Context, sourceID string) (*models.Game, error)
	List(ctx context.Context, filter models.GameFilter) ([]models.Game, error)
	Count(ctx context.Context, filter models.GameFilter) (int, error)
	Insert(ctx context.Context, game models.Game) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	UpdateOpening(ctx context.Context, id int64, ecoCode, openingName string) error
	ResetProcessingToPending(ctx context.Context) error
	PendingGames(ctx context.Context, limit int) ([]models.Game, error)
}

// AnalysisRepository handles stored pipeline results
type AnalysisRepository interface {
	Save(ctx context.Context, analysis models.Analysis, cacheKey string) error
	Get(ctx context.Context, id string) (*models.Analysis, error)
	LatestForGame(ctx context.Context, gameID int64) (*models.Analysis, error)
	FindByCacheKey(ctx context.Context, cacheKey string) (*models.Analysis, error)
}
