package testutil

import "github.com/vytor/fairplay/internal/analysis"

// FixturePGN is a short blitz game with clock comments on every move.
const FixturePGN = `[Event "rated blitz game"]
[Site "https://lichess.org/test"]
[Date "2999.12.31"]
[White "joddle"]
[Black "testJoddle"]
[Result "1/2-1/2"]
[WhiteElo "2100"]
[BlackElo "2000"]
[Variant "Standard"]
[TimeControl "180+2"]
[ECO "A41"]
[Opening "Queen's Pawn Game"]

1. d4 { [%clk 0:03:00] } d6 { [%clk 0:03:00] }
2. c4 { [%clk 0:02:59] } e5 { [%clk 0:02:59] }
3. dxe5 { [%clk 0:02:58] } dxe5 { [%clk 0:02:58] }
4. Qxd8+ { [%clk 0:02:58] } Kxd8 { [%clk 0:02:00] }
5. Nc3 { [%clk 0:02:50] } 1/2-1/2
`

// FixtureEvaluator scripts an engine for FixturePGN. With default
// thresholds black's first move is critical, 3... dxe5 a forced capture and
// 4... Kxd8 a forced move flagged for the 60 seconds it took.
func FixtureEvaluator() *ScriptedEvaluator {
	return &ScriptedEvaluator{
		Plies: []ScriptedPly{
			// 1. d4
			{Lines: []analysis.EngineLine{Line("d2d4", 0.3), Line("e2e4", 0.3), Line("g1f3", 0.2)}, Eval: Ptr(0.3)},
			// 1... d6
			{Lines: []analysis.EngineLine{Line("d7d5", 0.4), Line("d7d6", 0.5), Line("f7f6", 2.9)}, Eval: Ptr(0.4)},
			// 2. c4
			{Lines: []analysis.EngineLine{Line("c2c4", 0.5), Line("e2e4", 0.4)}, Eval: Ptr(0.5)},
			// 2... e5
			{Lines: []analysis.EngineLine{Line("e7e5", 0.6), Line("g8f6", 0.6)}, Eval: Ptr(0.6)},
			// 3. dxe5
			{Lines: []analysis.EngineLine{Line("d4e5", 0.7), Line("d4d5", 0.5)}, Eval: Ptr(0.7)},
			// 3... dxe5
			{Lines: []analysis.EngineLine{Line("d6e5", 0.5), Line("b8c6", 4.0)}, Eval: Ptr(0.5)},
			// 4. Qxd8+
			{Lines: []analysis.EngineLine{Line("d1d8", 0.4), Line("c1e3", 0.3)}, Eval: Ptr(0.4)},
			// 4... Kxd8
			{Lines: []analysis.EngineLine{Line("e8d8", 0.4)}, Eval: Ptr(0.4)},
			// 5. Nc3
			{Lines: []analysis.EngineLine{Line("b1c3", 0.4), Line("g1f3", 0.4)}, Eval: Ptr(0.4)},
		},
	}
}
