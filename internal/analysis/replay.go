package analysis

import (
	"fmt"
	"iter"
	"strings"

	"github.com/corentings/chess/v2"

	apperrors "github.com/vytor/fairplay/internal/errors"
	"github.com/vytor/fairplay/internal/models"
)

// Transition is one applied move: the positions on either side of it and
// whether it took a piece.
type Transition struct {
	Ply       int
	Side      models.Side
	Move      string
	FENBefore string
	FENAfter  string
	Capture   bool
}

// Replay walks a move list from a starting position. It holds no cursor, so
// each call to All starts again from the first move.
type Replay struct {
	start *chess.Position
	moves []string
}

// NewReplay prepares a replay of moves (UCI) from startFEN. An empty
// startFEN means the standard initial position.
func NewReplay(startFEN string, moves []string) (*Replay, error) {
	start, err := startingPosition(startFEN)
	if err != nil {
		return nil, err
	}
	normalized := make([]string, len(moves))
	for i, m := range moves {
		normalized[i] = NormalizeUCI(m)
	}
	return &Replay{start: start, moves: normalized}, nil
}

func startingPosition(fen string) (*chess.Position, error) {
	if strings.TrimSpace(fen) == "" {
		return chess.StartingPosition(), nil
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, apperrors.NewInputError("invalid starting position %q: %v", fen, err)
	}
	return chess.NewGame(opt).Position(), nil
}

// Len returns the number of moves in the replay.
func (r *Replay) Len() int {
	return len(r.moves)
}

// StartFEN returns the key of the starting position.
func (r *Replay) StartFEN() string {
	return r.start.String()
}

// All yields one Transition per move in order. The first illegal move ends
// the sequence with an ILLEGAL_MOVE error.
func (r *Replay) All() iter.Seq2[Transition, error] {
	return func(yield func(Transition, error) bool) {
		pos := r.start
		for ply, uci := range r.moves {
			move, err := findLegalMove(pos, uci)
			if err != nil {
				yield(Transition{}, apperrors.NewIllegalMoveError(ply, uci, err))
				return
			}
			next := pos.Update(move)
			t := Transition{
				Ply:       ply,
				Side:      sideOf(pos),
				Move:      uci,
				FENBefore: pos.String(),
				FENAfter:  next.String(),
				Capture:   IsCapture(move),
			}
			if !yield(t, nil) {
				return
			}
			pos = next
		}
	}
}

// PositionKeys returns the starting position followed by the position after
// each move, len(moves)+1 entries in all.
func (r *Replay) PositionKeys() ([]string, error) {
	keys := make([]string, 0, len(r.moves)+1)
	keys = append(keys, r.StartFEN())
	for t, err := range r.All() {
		if err != nil {
			return nil, err
		}
		keys = append(keys, t.FENAfter)
	}
	return keys, nil
}

func findLegalMove(pos *chess.Position, uci string) (*chess.Move, error) {
	if len(uci) < 4 || len(uci) > 5 {
		return nil, fmt.Errorf("malformed move %q", uci)
	}
	for _, m := range pos.ValidMoves() {
		if MoveToUCI(&m) == uci {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("no legal move %s in %s", uci, pos.String())
}

func sideOf(pos *chess.Position) models.Side {
	if pos.Turn() == chess.Black {
		return models.Black
	}
	return models.White
}
