package analysis_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vytor/fairplay/internal/analysis"
	apperrors "github.com/vytor/fairplay/internal/errors"
	"github.com/vytor/fairplay/internal/models"
	"github.com/vytor/fairplay/internal/testutil"
)

func TestCollect_SplitsPliesPerSide(t *testing.T) {
	ev := &testutil.ScriptedEvaluator{
		Plies: []testutil.ScriptedPly{
			{Lines: []analysis.EngineLine{testutil.Line("d2d4", 0.3), testutil.Line("e2e4", 0.25)}, Eval: testutil.Ptr(0.3)},
			{Lines: []analysis.EngineLine{testutil.Line("g8f6", 0.35), testutil.MateLine("d7d6")}, Eval: testutil.Ptr(0.35)},
		},
	}

	tables, err := analysis.Collect(context.Background(), ev, fixtureRecord(), 5)
	require.NoError(t, err)
	require.Len(t, tables.White, 5)
	require.Len(t, tables.Black, 4)

	w0 := tables.White[0]
	assert.Equal(t, 0, w0.Ply)
	assert.Equal(t, models.White, w0.Side)
	assert.Equal(t, "d2d4", w0.Move)
	assert.Equal(t, startFEN, w0.FEN)
	assert.Equal(t, []models.Candidate{{Move: "d2d4", Eval: 0.3}, {Move: "e2e4", Eval: 0.25}}, w0.Candidates)
	require.NotNil(t, w0.Eval)
	assert.Equal(t, 0.3, *w0.Eval)
	require.NotNil(t, w0.Clock)
	assert.Equal(t, 180.0, *w0.Clock)

	b0 := tables.Black[0]
	assert.Equal(t, 1, b0.Ply)
	assert.Equal(t, models.Black, b0.Side)
	assert.Equal(t, []models.Candidate{{Move: "g8f6", Eval: 0.35}}, b0.Candidates, "mate lines are dropped")

	assert.Empty(t, tables.White[1].Candidates)
	assert.Nil(t, tables.White[1].Eval)

	assert.True(t, tables.Black[3].Capture)
	assert.Equal(t, 120.0, *tables.Black[3].Clock)

	assert.Equal(t, startFEN, ev.StartFEN())
	assert.Equal(t, fixtureMoves, ev.Applied())
	assert.Equal(t, len(fixtureMoves), ev.Searches())
}

func TestCollect_RespectsTopK(t *testing.T) {
	ev := &testutil.ScriptedEvaluator{
		Plies: []testutil.ScriptedPly{
			{Lines: []analysis.EngineLine{testutil.Line("d2d4", 0.3), testutil.Line("e2e4", 0.25), testutil.Line("c2c4", 0.2)}},
		},
	}
	rec := fixtureRecord()
	rec.Moves = rec.Moves[:1]

	tables, err := analysis.Collect(context.Background(), ev, rec, 2)
	require.NoError(t, err)
	assert.Len(t, tables.White[0].Candidates, 2)
	assert.Empty(t, tables.Black)
}

func TestCollect_EngineFailure(t *testing.T) {
	ev := &testutil.ScriptedEvaluator{
		FailAt: 3,
		Fail:   apperrors.NewEngineUnavailableError(errors.New("pipe closed")),
	}

	_, err := analysis.Collect(context.Background(), ev, fixtureRecord(), 5)
	assert.ErrorIs(t, err, apperrors.ErrEngineUnavailable)
	assert.Len(t, ev.Applied(), 3)
}

func TestCollect_IllegalMove(t *testing.T) {
	rec := fixtureRecord()
	rec.Moves[4] = "d4d6"

	_, err := analysis.Collect(context.Background(), &testutil.ScriptedEvaluator{}, rec, 5)
	assert.ErrorIs(t, err, apperrors.ErrIllegalMove)
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := analysis.Collect(ctx, &testutil.ScriptedEvaluator{}, fixtureRecord(), 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollect_ShortClockList(t *testing.T) {
	rec := fixtureRecord()
	rec.Clocks = rec.Clocks[:3]

	tables, err := analysis.Collect(context.Background(), &testutil.ScriptedEvaluator{}, rec, 5)
	require.NoError(t, err)
	assert.NotNil(t, tables.White[1].Clock)
	assert.Nil(t, tables.Black[1].Clock)
	assert.Nil(t, tables.White[4].Clock)
}
