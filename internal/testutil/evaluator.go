package testutil

import (
	"context"
	"sync"

	"github.com/vytor/fairplay/internal/analysis"
)

// ScriptedPly is what a ScriptedEvaluator reports for one position.
type ScriptedPly struct {
	Lines []analysis.EngineLine
	Eval  *float64
}

// ScriptedEvaluator is a deterministic analysis.Evaluator. It answers the
// n-th position after SetPosition with Plies[n]; positions past the end of
// the script have no candidates and no evaluation.
type ScriptedEvaluator struct {
	Plies []ScriptedPly

	// FailAt and Fail make TopCandidates return Fail at that ply.
	FailAt int
	Fail   error

	mu       sync.Mutex
	ply      int
	startFEN string
	applied  []string
	closed   bool
	searches int
}

var _ analysis.Evaluator = (*ScriptedEvaluator)(nil)

func (s *ScriptedEvaluator) SetPosition(fen string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startFEN = fen
	s.ply = 0
	s.applied = nil
	return nil
}

func (s *ScriptedEvaluator) ApplyMove(uci string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = append(s.applied, uci)
	s.ply++
	return nil
}

func (s *ScriptedEvaluator) TopCandidates(_ context.Context, k int) ([]analysis.EngineLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++
	if s.Fail != nil && s.ply == s.FailAt {
		return nil, s.Fail
	}
	if s.ply >= len(s.Plies) {
		return nil, nil
	}
	lines := s.Plies[s.ply].Lines
	if len(lines) > k {
		lines = lines[:k]
	}
	return append([]analysis.EngineLine(nil), lines...), nil
}

func (s *ScriptedEvaluator) Evaluate(context.Context) (*float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ply >= len(s.Plies) || s.Plies[s.ply].Eval == nil {
		return nil, nil
	}
	v := *s.Plies[s.ply].Eval
	return &v, nil
}

func (s *ScriptedEvaluator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// StartFEN returns the position passed to the last SetPosition.
func (s *ScriptedEvaluator) StartFEN() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startFEN
}

// Applied returns the moves applied since the last SetPosition.
func (s *ScriptedEvaluator) Applied() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.applied...)
}

// Closed reports whether Close was called.
func (s *ScriptedEvaluator) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Searches returns how many times TopCandidates was called.
func (s *ScriptedEvaluator) Searches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches
}

// Line builds an EngineLine with a numeric evaluation.
func Line(move string, eval float64) analysis.EngineLine {
	return analysis.EngineLine{Move: move, Eval: &eval}
}

// MateLine builds an EngineLine without a numeric evaluation.
func MateLine(move string) analysis.EngineLine {
	return analysis.EngineLine{Move: move}
}
