package analysis

import (
	"github.com/vytor/fairplay/internal/models"
)

// BuildFeatures pairs the per-side tables into move rows and derives time
// spent, opponent captures, evaluation spread and evaluation deltas. Row i
// holds the i-th move of the side that moved first and the reply to it.
// Missing inputs produce nil features, never zero.
func BuildFeatures(tables models.SideTables, increment int) []models.MoveRow {
	firstSide := tables.FirstSide()
	secondSide := firstSide.Opponent()
	first, second := tables.Plies(firstSide), tables.Plies(secondSide)

	n := max(len(first), len(second))
	rows := make([]models.MoveRow, n)
	inc := float64(increment)

	for i := 0; i < n; i++ {
		rows[i].Number = i + 1

		if p, ok := plyAt(first, i); ok {
			f := baseFeatures(p)
			f.TimeSpent = timeSpent(first, i, inc)
			if prev, ok := plyAt(second, i-1); ok {
				f.OppCapture = boolPtr(prev.Capture)
			}
			if reply, ok := plyAt(second, i); ok {
				f.EvalDelta, f.Quality = evalChange(p.Eval, reply.Eval, firstSide)
			}
			*rows[i].Side(firstSide) = f
		}

		var f models.SideFeatures
		if p, ok := plyAt(second, i); ok {
			f = baseFeatures(p)
			f.TimeSpent = timeSpent(second, i, inc)
			if next, ok := plyAt(first, i+1); ok {
				f.EvalDelta, f.Quality = evalChange(p.Eval, next.Eval, secondSide)
			}
		}
		// The second side's opponent capture refers to the first side's move
		// in the same row and is reported even when there was no reply.
		if p, ok := plyAt(first, i); ok {
			f.OppCapture = boolPtr(p.Capture)
		}
		*rows[i].Side(secondSide) = f
	}
	return rows
}

func baseFeatures(p models.PlyRecord) models.SideFeatures {
	evals := p.CandidateEvals()
	moves := make([]string, len(p.Candidates))
	for i, c := range p.Candidates {
		moves[i] = c.Move
	}
	return models.SideFeatures{
		Move:           p.Move,
		FEN:            p.FEN,
		Capture:        boolPtr(p.Capture),
		Clock:          p.Clock,
		Eval:           p.Eval,
		Candidates:     evals,
		CandidateMoves: moves,
		EvalSpread:     EvalSpread(evals),
	}
}

// TimeSpent is prev - cur + increment, nil when either clock is unknown.
func TimeSpent(prev, cur *float64, increment float64) *float64 {
	if prev == nil || cur == nil {
		return nil
	}
	v := *prev - *cur + increment
	return &v
}

func timeSpent(side []models.PlyRecord, i int, inc float64) *float64 {
	prev, ok := plyAt(side, i-1)
	if !ok {
		return nil
	}
	return TimeSpent(prev.Clock, side[i].Clock, inc)
}

// EvalSpread is max - min over the candidate evaluations, nil when there
// are none.
func EvalSpread(evals []float64) *float64 {
	if len(evals) == 0 {
		return nil
	}
	lo, hi := evals[0], evals[0]
	for _, v := range evals[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	spread := hi - lo
	return &spread
}

// evalChange returns how the mover's evaluation changed across its move and
// the resulting quality grade.
func evalChange(before, after *float64, mover models.Side) (*float64, models.Quality) {
	if before == nil || after == nil {
		return nil, ""
	}
	delta := MoverPerspective(*after-*before, mover)
	return &delta, ClassifyMove(*before, *after, mover == models.White)
}

func plyAt(side []models.PlyRecord, i int) (models.PlyRecord, bool) {
	if i < 0 || i >= len(side) {
		return models.PlyRecord{}, false
	}
	return side[i], true
}

func boolPtr(b bool) *bool {
	return &b
}
