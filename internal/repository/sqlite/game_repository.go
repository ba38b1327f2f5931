package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"

	"github.com/vytor/fairplay/internal/logger"
	"github.com/vytor/fairplay/internal/models"
	"github.com/vytor/fairplay/internal/repository"
)

var gameColumns = []string{
	"id", "source_id", "pgn", "game_type", "base_seconds", "increment_seconds",
	"white", "black", "result", "eco_code", "opening_name", "analysis_status", "created_at",
}

type gameRepository struct {
	db *sql.DB
}

// NewGameRepository creates a new GameRepository implementation
func NewGameRepository(db *sql.DB) repository.GameRepository {
	return &gameRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (models.Game, error) {
	var (
		g        models.Game
		sourceID sql.NullString
	)
	err := row.Scan(&g.ID, &sourceID, &g.PGN, &g.GameType, &g.BaseSeconds, &g.IncrementSeconds,
		&g.White, &g.Black, &g.Result, &g.ECOCode, &g.OpeningName, &g.AnalysisStatus, &g.CreatedAt)
	g.SourceID = sourceID.String
	return g, err
}

func (r *gameRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Game, error) {
	query, args, err := sqlBuilder.Select(gameColumns...).From("games").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	g, err := scanGame(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *gameRepository) Get(ctx context.Context, id int64) (*models.Game, error) {
	log := logger.FromContext(ctx).WithPrefix("game_repo")
	log.Debug("getting game: id=%d", id)

	g, err := r.getOne(ctx, squirrel.Eq{"id": id})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("game not found: id=%d", id)
		} else {
			log.Error("failed to get game: %v", err)
		}
		return nil, err
	}
	log.Debug("game found: %s vs %s", g.White, g.Black)
	return g, nil
}

func (r *gameRepository) GetBySourceID(ctx context.Context, sourceID string) (*models.Game, error) {
	log := logger.FromContext(ctx).WithPrefix("game_repo")
	log.Debug("getting game: source_id=%s", sourceID)

	g, err := r.getOne(ctx, squirrel.Eq{"source_id": sourceID})
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Error("failed to get game by source id: %v", err)
	}
	return g, err
}

func applyGameFilter(q squirrel.SelectBuilder, filter models.GameFilter) squirrel.SelectBuilder {
	if filter.GameType != "" {
		q = q.Where(squirrel.Eq{"game_type": filter.GameType})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"analysis_status": filter.Status})
	}
	if filter.Player != "" {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"white": filter.Player},
			squirrel.Eq{"black": filter.Player},
		})
	}
	return q
}

func (r *gameRepository) List(ctx context.Context, filter models.GameFilter) ([]models.Game, error) {
	log := logger.FromContext(ctx).WithPrefix("game_repo")
	log.Debug("listing games with filter: type=%s, status=%s, player=%s", filter.GameType, filter.Status, filter.Player)

	query := applyGameFilter(sqlBuilder.Select(gameColumns...).From("games"), filter)

	orderDir := "DESC"
	if filter.OrderDir == "ASC" {
		orderDir = "ASC"
	}
	query = query.OrderBy("created_at "+orderDir, "id "+orderDir)

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	offset := max(filter.Offset, 0)
	query = query.Limit(uint64(limit)).Offset(uint64(offset))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to list games: %v", err)
		return nil, err
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			log.Error("failed to scan game row: %v", err)
			return nil, err
		}
		games = append(games, g)
	}
	log.Debug("found %d games", len(games))
	return games, rows.Err()
}

func (r *gameRepository) Count(ctx context.Context, filter models.GameFilter) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("game_repo")

	sqlStr, args, err := applyGameFilter(sqlBuilder.Select("COUNT(*)").From("games"), filter).ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return 0, err
	}

	var count int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		log.Error("failed to count games: %v", err)
		return 0, err
	}
	return count, nil
}

// Insert stores g. A game whose source id is already stored is left
// untouched and its existing id returned.
func (r *gameRepository) Insert(ctx context.Context, g models.Game) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("game_repo")
	log.Debug("inserting game: source_id=%s, %s vs %s", g.SourceID, g.White, g.Black)

	if g.AnalysisStatus == "" {
		g.AnalysisStatus = models.StatusPending
	}

	sqlStr, args, err := sqlBuilder.Insert("games").
		Columns("source_id", "pgn", "game_type", "base_seconds", "increment_seconds",
			"white", "black", "result", "eco_code", "opening_name", "analysis_status").
		Values(nullString(g.SourceID), g.PGN, g.GameType, g.BaseSeconds, g.IncrementSeconds,
			g.White, g.Black, g.Result, g.ECOCode, g.OpeningName, g.AnalysisStatus).
		Suffix("ON CONFLICT(source_id) DO NOTHING").
		ToSql()
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to insert game: %v", err)
		return 0, err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		id, err := res.LastInsertId()
		if err == nil {
			log.Debug("game inserted: id=%d", id)
		}
		return id, err
	}

	existing, err := r.GetBySourceID(ctx, g.SourceID)
	if err != nil {
		log.Error("failed to get game id: %v", err)
		return 0, err
	}
	log.Debug("game exists: id=%d", existing.ID)
	return existing.ID, nil
}

func (r *gameRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	log := logger.FromContext(ctx).WithPrefix("game_repo")
	log.Debug("updating game status: game_id=%d, status=%s", id, status)

	_, err := r.db.ExecContext(ctx, `UPDATE games SET analysis_status = ? WHERE id = ?`, status, id)
	if err != nil {
		log.Error("failed to update game status: %v", err)
	}
	return err
}

func (r *gameRepository) UpdateOpening(ctx context.Context, id int64, ecoCode, openingName string) error {
	log := logger.FromContext(ctx).WithPrefix("game_repo")
	log.Debug("updating game opening: game_id=%d, eco=%s, opening=%s", id, ecoCode, openingName)

	_, err := r.db.ExecContext(ctx, `
UPDATE games
SET eco_code = ?, opening_name = ?
WHERE id = ?
`, ecoCode, openingName, id)
	if err != nil {
		log.Error("failed to update game opening: %v", err)
	}
	return err
}

// ResetProcessingToPending requeues games left processing by a previous run.
func (r *gameRepository) ResetProcessingToPending(ctx context.Context) error {
	log := logger.FromContext(ctx).WithPrefix("game_repo")
	log.Debug("resetting processing games to pending")

	_, err := r.db.ExecContext(ctx, `
UPDATE games
SET analysis_status = 'pending'
WHERE analysis_status = 'processing'
`)
	if err != nil {
		log.Error("failed to reset processing games: %v", err)
	}
	return err
}

func (r *gameRepository) PendingGames(ctx context.Context, limit int) ([]models.Game, error) {
	return r.List(ctx, models.GameFilter{Status: models.StatusPending, Limit: limit, OrderDir: "ASC"})
}
