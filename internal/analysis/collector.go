package analysis

import (
	"context"
	"time"

	"github.com/vytor/fairplay/internal/logger"
	"github.com/vytor/fairplay/internal/models"
)

// Collect replays rec on ev and records, for every ply, the candidate lines
// and evaluation of the position the move was played from. Evaluator and
// illegal-move errors are returned unchanged.
func Collect(ctx context.Context, ev Evaluator, rec models.GameRecord, topK int) (models.SideTables, error) {
	log := logger.FromContext(ctx).WithPrefix("collector")

	replay, err := NewReplay(rec.StartFEN, rec.Moves)
	if err != nil {
		return models.SideTables{}, err
	}
	if err := ev.SetPosition(replay.StartFEN()); err != nil {
		return models.SideTables{}, err
	}

	start := time.Now()
	first := SideToMove(replay.StartFEN())
	tables := models.SideTables{
		First: first,
		White: make([]models.PlyRecord, 0, (replay.Len()+1)/2),
		Black: make([]models.PlyRecord, 0, (replay.Len()+1)/2),
	}

	for t, err := range replay.All() {
		if err != nil {
			log.Warn("replay stopped: %v", err)
			return models.SideTables{}, err
		}
		if err := ctx.Err(); err != nil {
			return models.SideTables{}, err
		}

		lines, err := ev.TopCandidates(ctx, topK)
		if err != nil {
			return models.SideTables{}, err
		}
		eval, err := ev.Evaluate(ctx)
		if err != nil {
			return models.SideTables{}, err
		}
		if err := ev.ApplyMove(t.Move); err != nil {
			return models.SideTables{}, err
		}

		ply := models.PlyRecord{
			Ply:        t.Ply,
			Side:       t.Side,
			Move:       t.Move,
			FEN:        t.FENBefore,
			Capture:    t.Capture,
			Clock:      clockAt(rec.Clocks, t.Ply),
			Eval:       eval,
			Candidates: presentCandidates(lines),
		}
		log.Debug("ply %d %s %s: %d candidates", t.Ply, t.Side, t.Move, len(ply.Candidates))

		if t.Side == models.White {
			tables.White = append(tables.White, ply)
		} else {
			tables.Black = append(tables.Black, ply)
		}
	}

	log.Info("collected %d plies in %v", replay.Len(), time.Since(start))
	return tables, nil
}

// presentCandidates drops lines without a numeric evaluation, keeping order.
func presentCandidates(lines []EngineLine) []models.Candidate {
	out := make([]models.Candidate, 0, len(lines))
	for _, l := range lines {
		if l.Eval == nil {
			continue
		}
		out = append(out, models.Candidate{Move: l.Move, Eval: *l.Eval})
	}
	return out
}

func clockAt(clocks []*float64, ply int) *float64 {
	if ply < 0 || ply >= len(clocks) || clocks[ply] == nil {
		return nil
	}
	v := *clocks[ply]
	return &v
}
