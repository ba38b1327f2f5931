package analysis

import "context"

// MaxCandidates caps how many engine lines a caller may request per position.
const MaxCandidates = 10

// EngineLine is one candidate line reported by an evaluator. Eval is in pawns
// from white's point of view and nil when the line is a forced mate.
type EngineLine struct {
	Move string
	Eval *float64
}

// Evaluator is a stateful engine session. It tracks a current position that
// SetPosition resets and ApplyMove advances; searches always run on that
// position. A session is owned by one analysis at a time.
type Evaluator interface {
	SetPosition(fen string) error
	ApplyMove(uci string) error
	TopCandidates(ctx context.Context, k int) ([]EngineLine, error)
	Evaluate(ctx context.Context) (*float64, error)
	Close() error
}
