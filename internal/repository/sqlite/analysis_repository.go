package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/vytor/fairplay/internal/logger"
	"github.com/vytor/fairplay/internal/models"
	"github.com/vytor/fairplay/internal/repository"
)

var analysisColumns = []string{
	"id", "game_id", "game_type", "base_seconds", "increment_seconds", "white", "black",
	"result", "eco_code", "opening_name", "top_k", "depth", "thresholds", "rows", "summary", "created_at",
}

type analysisRepository struct {
	db *sql.DB
}

// NewAnalysisRepository creates a new AnalysisRepository implementation
func NewAnalysisRepository(db *sql.DB) repository.AnalysisRepository {
	return &analysisRepository{db: db}
}

// Save stores a and, when it belongs to a stored game, marks that game
// completed in the same transaction.
func (r *analysisRepository) Save(ctx context.Context, a models.Analysis, cacheKey string) error {
	log := logger.FromContext(ctx).WithPrefix("analysis_repo")
	log.Debug("saving analysis: id=%s, game_id=%d, rows=%d", a.ID, a.GameID, len(a.Rows))

	thresholds, err := json.Marshal(a.Thresholds)
	if err != nil {
		return fmt.Errorf("encode thresholds: %w", err)
	}
	rows, err := json.Marshal(a.Rows)
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	summary, err := json.Marshal(a.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	columns := []string{
		"id", "game_id", "cache_key", "game_type", "base_seconds", "increment_seconds",
		"white", "black", "result", "eco_code", "opening_name", "top_k", "depth",
		"thresholds", "rows", "summary",
	}
	values := []any{
		a.ID, nullInt64(a.GameID), cacheKey, string(a.GameType), a.TimeControl.BaseSeconds,
		a.TimeControl.IncrementSeconds, a.White, a.Black, a.Result, a.ECOCode, a.OpeningName,
		a.TopK, a.Depth, string(thresholds), string(rows), string(summary),
	}
	if !a.CreatedAt.IsZero() {
		columns = append(columns, "created_at")
		values = append(values, a.CreatedAt.UTC())
	}
	insert := sqlBuilder.Insert("analyses").Columns(columns...).Values(values...)
	sqlStr, args, err := insert.ToSql()
	if err != nil {
		return err
	}

	err = tx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return err
		}
		if a.GameID == 0 {
			return nil
		}
		_, err := tx.ExecContext(ctx, `UPDATE games SET analysis_status = ? WHERE id = ?`, models.StatusCompleted, a.GameID)
		return err
	})
	if err != nil {
		log.Error("failed to save analysis: %v", err)
	}
	return err
}

func (r *analysisRepository) findOne(ctx context.Context, where squirrel.Sqlizer) (*models.Analysis, error) {
	sqlStr, args, err := sqlBuilder.Select(analysisColumns...).
		From("analyses").
		Where(where).
		OrderBy("created_at DESC", "rowid DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var (
		a                         models.Analysis
		gameID                    sql.NullInt64
		gameType                  string
		thresholds, rows, summary string
	)
	err = r.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&a.ID, &gameID, &gameType, &a.TimeControl.BaseSeconds, &a.TimeControl.IncrementSeconds,
		&a.White, &a.Black, &a.Result, &a.ECOCode, &a.OpeningName, &a.TopK, &a.Depth,
		&thresholds, &rows, &summary, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.GameID = gameID.Int64
	a.GameType = models.GameType(gameType)

	if err := json.Unmarshal([]byte(thresholds), &a.Thresholds); err != nil {
		return nil, fmt.Errorf("decode thresholds: %w", err)
	}
	if err := json.Unmarshal([]byte(rows), &a.Rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	if err := json.Unmarshal([]byte(summary), &a.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &a, nil
}

func (r *analysisRepository) lookup(ctx context.Context, what string, where squirrel.Sqlizer) (*models.Analysis, error) {
	log := logger.FromContext(ctx).WithPrefix("analysis_repo")
	log.Debug("getting analysis by %s", what)

	a, err := r.findOne(ctx, where)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("analysis not found by %s", what)
		} else {
			log.Error("failed to get analysis by %s: %v", what, err)
		}
		return nil, err
	}
	return a, nil
}

func (r *analysisRepository) Get(ctx context.Context, id string) (*models.Analysis, error) {
	return r.lookup(ctx, "id", squirrel.Eq{"id": id})
}

func (r *analysisRepository) LatestForGame(ctx context.Context, gameID int64) (*models.Analysis, error) {
	return r.lookup(ctx, "game", squirrel.Eq{"game_id": gameID})
}

func (r *analysisRepository) FindByCacheKey(ctx context.Context, cacheKey string) (*models.Analysis, error) {
	return r.lookup(ctx, "cache key", squirrel.Eq{"cache_key": cacheKey})
}
