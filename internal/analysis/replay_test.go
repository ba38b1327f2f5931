package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vytor/fairplay/internal/analysis"
	apperrors "github.com/vytor/fairplay/internal/errors"
	"github.com/vytor/fairplay/internal/models"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestReplay_FixtureTransitions(t *testing.T) {
	r, err := analysis.NewReplay("", fixtureMoves)
	require.NoError(t, err)
	assert.Equal(t, len(fixtureMoves), r.Len())
	assert.Equal(t, startFEN, r.StartFEN())

	var (
		captures []bool
		sides    []models.Side
	)
	for tr, err := range r.All() {
		require.NoError(t, err)
		assert.Equal(t, fixtureMoves[tr.Ply], tr.Move)
		captures = append(captures, tr.Capture)
		sides = append(sides, tr.Side)
	}

	assert.Equal(t, []bool{false, false, false, false, true, true, true, true, false}, captures)
	assert.Equal(t, models.White, sides[0])
	assert.Equal(t, models.Black, sides[1])
	assert.Equal(t, models.White, sides[8])
}

func TestReplay_PositionKeys(t *testing.T) {
	r, err := analysis.NewReplay("", fixtureMoves)
	require.NoError(t, err)

	keys, err := r.PositionKeys()
	require.NoError(t, err)
	require.Len(t, keys, len(fixtureMoves)+1)

	// Positions reached without a double pawn push, so the en passant field
	// is unambiguous.
	assert.Equal(t, startFEN, keys[0])
	assert.Equal(t, "rnbqkbnr/ppp1pppp/3p4/8/3P4/8/PPP1PPPP/RNBQKBNR w KQkq - 0 2", keys[2])
	assert.Equal(t, "rnbqkbnr/ppp2ppp/8/4p3/2P5/8/PP2PPPP/RNBQKBNR w KQkq - 0 4", keys[6])
	assert.Equal(t, "rnbk1bnr/ppp2ppp/8/4p3/2P5/8/PP2PPPP/RNB1KBNR w KQ - 0 5", keys[8])
	assert.Equal(t, "rnbk1bnr/ppp2ppp/8/4p3/2P5/2N5/PP2PPPP/R1B1KBNR b KQ - 1 5", keys[9])
}

func TestReplay_Restartable(t *testing.T) {
	r, err := analysis.NewReplay("", fixtureMoves)
	require.NoError(t, err)

	// Stop the first pass early, then run a full second pass.
	for tr, err := range r.All() {
		require.NoError(t, err)
		if tr.Ply == 2 {
			break
		}
	}

	first := ""
	n := 0
	for tr, err := range r.All() {
		require.NoError(t, err)
		if n == 0 {
			first = tr.FENBefore
		}
		n++
	}
	assert.Equal(t, startFEN, first)
	assert.Equal(t, len(fixtureMoves), n)
}

func TestReplay_IllegalMove(t *testing.T) {
	r, err := analysis.NewReplay("", []string{"e2e4", "e7e5", "e1e3"})
	require.NoError(t, err)

	var (
		seen    int
		lastErr error
	)
	for _, err := range r.All() {
		if err != nil {
			lastErr = err
			break
		}
		seen++
	}
	assert.Equal(t, 2, seen)
	require.Error(t, lastErr)
	assert.ErrorIs(t, lastErr, apperrors.ErrIllegalMove)
	assert.Contains(t, lastErr.Error(), "e1e3")

	_, err = r.PositionKeys()
	assert.ErrorIs(t, err, apperrors.ErrIllegalMove)
}

func TestReplay_MalformedMove(t *testing.T) {
	r, err := analysis.NewReplay("", []string{"xx"})
	require.NoError(t, err)

	_, err = r.PositionKeys()
	assert.ErrorIs(t, err, apperrors.ErrIllegalMove)
}

func TestReplay_NormalizesMoves(t *testing.T) {
	r, err := analysis.NewReplay("", []string{" E2E4 "})
	require.NoError(t, err)

	for tr, err := range r.All() {
		require.NoError(t, err)
		assert.Equal(t, "e2e4", tr.Move)
	}
}

func TestReplay_FromFEN(t *testing.T) {
	// Black to move, white pawn on e5 can be taken en passant after d7d5.
	fen := "4k3/3p4/8/4P3/8/8/8/4K3 b - - 0 1"
	r, err := analysis.NewReplay(fen, []string{"d7d5", "e5d6"})
	require.NoError(t, err)

	var trs []analysis.Transition
	for tr, err := range r.All() {
		require.NoError(t, err)
		trs = append(trs, tr)
	}
	require.Len(t, trs, 2)
	assert.Equal(t, models.Black, trs[0].Side)
	assert.False(t, trs[0].Capture)
	assert.Equal(t, models.White, trs[1].Side)
	assert.True(t, trs[1].Capture, "en passant counts as a capture")
}

func TestReplay_InvalidFEN(t *testing.T) {
	_, err := analysis.NewReplay("not a fen", nil)
	assert.ErrorIs(t, err, apperrors.ErrInput)
}

func TestReplay_Empty(t *testing.T) {
	r, err := analysis.NewReplay("", nil)
	require.NoError(t, err)

	keys, err := r.PositionKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{startFEN}, keys)
}
