package analysis

import (
	"context"

	"github.com/vytor/fairplay/internal/models"
)

// Options control one pipeline run. A nil Thresholds means
// DefaultThresholds; any non-nil value is used as given.
type Options struct {
	TopK       int
	Thresholds *Thresholds
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = 5
	}
	if o.TopK > MaxCandidates {
		o.TopK = MaxCandidates
	}
	if o.Thresholds == nil {
		th := DefaultThresholds()
		o.Thresholds = &th
	}
	return o
}

// Result is everything the pipeline produces for one game.
type Result struct {
	Tables  models.SideTables
	Rows    []models.MoveRow
	Summary models.Summary
}

// Run collects evaluations for rec on ev, then builds features, labels and
// summary. The caller owns ev and closes it.
func Run(ctx context.Context, ev Evaluator, rec models.GameRecord, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	tables, err := Collect(ctx, ev, rec, opts.TopK)
	if err != nil {
		return nil, err
	}

	rows := BuildFeatures(tables, rec.TimeControl.IncrementSeconds)
	LabelRows(rows, *opts.Thresholds)

	return &Result{
		Tables:  tables,
		Rows:    rows,
		Summary: Summarize(rows),
	}, nil
}
