package analysis_test

import (
	"github.com/vytor/fairplay/internal/models"
)

// Rated blitz 180+2: 1. d4 d6 2. c4 e5 3. dxe5 dxe5 4. Qxd8+ Kxd8 5. Nc3
var fixtureMoves = []string{
	"d2d4", "d7d6",
	"c2c4", "e7e5",
	"d4e5", "d6e5",
	"d1d8", "e8d8",
	"b1c3",
}

var fixtureClocks = []float64{180, 180, 179, 179, 178, 178, 178, 120, 170}

func fixtureRecord() models.GameRecord {
	clocks := make([]*float64, len(fixtureClocks))
	for i := range fixtureClocks {
		v := fixtureClocks[i]
		clocks[i] = &v
	}
	return models.GameRecord{
		Type:        models.Blitz,
		TimeControl: models.TimeControl{BaseSeconds: 180, IncrementSeconds: 2},
		Moves:       append([]string(nil), fixtureMoves...),
		Clocks:      clocks,
		White:       "joddle",
		Black:       "testJoddle",
		Result:      "1/2-1/2",
	}
}

func floatsOrNil(ps []*float64) []any {
	out := make([]any, len(ps))
	for i, p := range ps {
		if p == nil {
			out[i] = nil
			continue
		}
		out[i] = *p
	}
	return out
}

func boolsOrNil(ps []*bool) []any {
	out := make([]any, len(ps))
	for i, p := range ps {
		if p == nil {
			out[i] = nil
			continue
		}
		out[i] = *p
	}
	return out
}
