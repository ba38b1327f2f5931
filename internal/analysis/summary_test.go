package analysis_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vytor/fairplay/internal/analysis"
	"github.com/vytor/fairplay/internal/models"
	"github.com/vytor/fairplay/internal/testutil"
)

func labelled(move string, label models.Label, timeSpent *float64) models.SideFeatures {
	return models.SideFeatures{Move: move, Label: &label, TimeSpent: timeSpent}
}

func TestSummarize_CriticalTimes(t *testing.T) {
	rows := []models.MoveRow{
		{White: labelled("e2e4", models.LabelCritical, testutil.Ptr(2.0)), Black: labelled("e7e5", models.LabelForced, testutil.Ptr(1.0))},
		{White: labelled("g1f3", models.LabelCritical, testutil.Ptr(4.0)), Black: labelled("b8c6", models.LabelForcedCapture, testutil.Ptr(9.0))},
		{White: labelled("f1b5", models.LabelCritical, testutil.Ptr(6.0))},
		{White: labelled("e1g1", models.LabelCritical, nil)},
	}
	rows[1].Black.Flag = models.FlagLongForcedCapture

	s := analysis.Summarize(rows)

	assert.Equal(t, 4, s.White.CriticalCount)
	assert.InDelta(t, 4.0, s.White.MeanTime, 1e-9)
	assert.InDelta(t, math.Sqrt(8.0/3.0), s.White.StdDevTime, 1e-9)
	assert.InDelta(t, math.Sqrt(8.0/3.0)/4.0, s.White.CV, 1e-9)

	assert.Equal(t, 0, s.Black.CriticalCount)
	assert.Equal(t, 1, s.Black.ForcedCount)
	assert.Equal(t, 1, s.Black.ForcedCaptureCount)
	assert.Equal(t, 1, s.Black.FlaggedCount)
	assert.True(t, math.IsNaN(s.Black.MeanTime))
	assert.True(t, math.IsNaN(s.Black.StdDevTime))
	assert.True(t, math.IsNaN(s.Black.CV))
}

func TestSummarize_Empty(t *testing.T) {
	s := analysis.Summarize(nil)
	for _, side := range []models.SideSummary{s.White, s.Black} {
		assert.Equal(t, 0, side.CriticalCount)
		assert.True(t, math.IsNaN(side.MeanTime))
		assert.True(t, math.IsNaN(side.CV))
		assert.True(t, math.IsNaN(side.AvgLoss))
	}
}

func TestSummarize_AvgLoss(t *testing.T) {
	rows := []models.MoveRow{
		{White: models.SideFeatures{Move: "e2e4", EvalDelta: testutil.Ptr(-1.0)}},
		{White: models.SideFeatures{Move: "d2d4", EvalDelta: testutil.Ptr(0.5)}},
		{White: models.SideFeatures{Move: "c2c4"}},
	}
	s := analysis.Summarize(rows)
	assert.InDelta(t, 0.5, s.White.AvgLoss, 1e-9)
}

func TestTimeStats(t *testing.T) {
	mean, stdev, cv := analysis.TimeStats([]float64{0, 0})
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0.0, stdev)
	assert.True(t, math.IsNaN(cv), "cv is undefined for a zero mean")

	mean, stdev, cv = analysis.TimeStats([]float64{3})
	assert.Equal(t, 3.0, mean)
	assert.Equal(t, 0.0, stdev)
	assert.Equal(t, 0.0, cv)
}

func TestSideSummary_JSONNulls(t *testing.T) {
	s := analysis.Summarize(nil)
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mean_time":null`)
	assert.Contains(t, string(data), `"cv":null`)

	var back models.Summary
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, math.IsNaN(back.White.MeanTime))
}
