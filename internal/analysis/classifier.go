package analysis

import (
	"math"

	"github.com/vytor/fairplay/internal/models"
)

// Thresholds tune Classify and Flag.
type Thresholds = models.Thresholds

// Default classifier thresholds.
const (
	DefaultForcedEval       = 3.0
	DefaultCriticalSpread   = 2.0
	DefaultDecisiveEval     = 2.0
	DefaultLongThinkSeconds = 5.0
)

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ForcedEval:       DefaultForcedEval,
		CriticalSpread:   DefaultCriticalSpread,
		DecisiveEval:     DefaultDecisiveEval,
		LongThinkSeconds: DefaultLongThinkSeconds,
	}
}

// Classify labels a position from its candidate evaluations, best first.
// ok is false when there are no candidates at all.
//
// One candidate, or a gap between the two best lines above ForcedEval, is
// forced ("forced capture" when the move played took a piece). Otherwise a
// spread between best and worst above CriticalSpread in a position that is
// not already decided (|best| < DecisiveEval) is critical. Comparisons use
// absolute values, so the result does not depend on whose point of view the
// evaluations are in.
func Classify(candidates []float64, capture bool, th Thresholds) (models.Label, bool) {
	switch len(candidates) {
	case 0:
		return models.LabelNone, false
	case 1:
		return models.LabelForced, true
	}

	best := candidates[0]
	if math.Abs(best-candidates[1]) > th.ForcedEval {
		if capture {
			return models.LabelForcedCapture, true
		}
		return models.LabelForced, true
	}

	worst := candidates[len(candidates)-1]
	if math.Abs(best-worst) > th.CriticalSpread && math.Abs(best) < th.DecisiveEval {
		return models.LabelCritical, true
	}
	return models.LabelNone, true
}

// Flag marks forced moves that took at least LongThinkSeconds. An unknown
// time spent is never flagged.
func Flag(label models.Label, timeSpent *float64, th Thresholds) string {
	if timeSpent == nil || *timeSpent < th.LongThinkSeconds {
		return models.FlagNone
	}
	switch label {
	case models.LabelForced:
		return models.FlagLongForcedMove
	case models.LabelForcedCapture:
		return models.FlagLongForcedCapture
	default:
		return models.FlagNone
	}
}

// LabelRows classifies and flags every present move in rows.
func LabelRows(rows []models.MoveRow, th Thresholds) {
	for i := range rows {
		for _, side := range []models.Side{models.White, models.Black} {
			f := rows[i].Side(side)
			if !f.Present() {
				continue
			}
			capture := f.Capture != nil && *f.Capture
			label, ok := Classify(f.Candidates, capture, th)
			if !ok {
				f.Label = nil
				f.Flag = models.FlagNone
				continue
			}
			f.Label = &label
			f.Flag = Flag(label, f.TimeSpent, th)
		}
	}
}

// ClassifyMove grades a move by the evaluation it gave away. Evaluations are
// in pawns from white's point of view.
func ClassifyMove(evalBefore, evalAfter float64, isWhiteMove bool) models.Quality {
	diff := evalAfter - evalBefore

	// A drop is a loss for white; a rise is a loss for black.
	var loss float64
	if isWhiteMove {
		loss = -diff
	} else {
		loss = diff
	}

	switch {
	case loss > 2.0:
		return models.QualityBlunder
	case loss > 1.0:
		return models.QualityMistake
	case loss > 0.5:
		return models.QualityInaccuracy
	default:
		return models.QualityGood
	}
}
