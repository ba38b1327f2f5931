package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/vytor/fairplay/internal/models"
)

// Summarize aggregates labelled rows per side. Time statistics cover
// critical moves with a known time spent and use the population standard
// deviation; undefined values are NaN.
func Summarize(rows []models.MoveRow) models.Summary {
	return models.Summary{
		White: summarizeSide(rows, models.White),
		Black: summarizeSide(rows, models.Black),
	}
}

func summarizeSide(rows []models.MoveRow, side models.Side) models.SideSummary {
	var (
		out    models.SideSummary
		times  []float64
		losses []float64
	)

	for i := range rows {
		f := rows[i].Side(side)
		if !f.Present() {
			continue
		}
		if f.EvalDelta != nil {
			losses = append(losses, math.Max(-*f.EvalDelta, 0))
		}
		if f.Flag != models.FlagNone {
			out.FlaggedCount++
		}
		if f.Label == nil {
			continue
		}
		switch *f.Label {
		case models.LabelCritical:
			out.CriticalCount++
			if f.TimeSpent != nil {
				times = append(times, *f.TimeSpent)
			}
		case models.LabelForced:
			out.ForcedCount++
		case models.LabelForcedCapture:
			out.ForcedCaptureCount++
		}
	}

	out.MeanTime, out.StdDevTime, out.CV = TimeStats(times)
	out.AvgLoss = math.NaN()
	if len(losses) > 0 {
		out.AvgLoss = stat.Mean(losses, nil)
	}
	return out
}

// TimeStats returns mean, population standard deviation and coefficient of
// variation of times. All three are NaN for an empty input; CV is NaN when
// the mean is zero.
func TimeStats(times []float64) (mean, stdev, cv float64) {
	if len(times) == 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	mean, variance := stat.PopMeanVariance(times, nil)
	stdev = math.Sqrt(variance)
	if mean == 0 {
		return mean, stdev, math.NaN()
	}
	return mean, stdev, stdev / mean
}
