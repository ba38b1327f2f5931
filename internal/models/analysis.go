package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Candidate is one engine line: the first move of the line and its
// evaluation in pawns from white's point of view.
type Candidate struct {
	Move string  `json:"move"`
	Eval float64 `json:"eval"`
}

// PlyRecord is the collected data for a single half-move.
type PlyRecord struct {
	Ply        int         `json:"ply"`
	Side       Side        `json:"side"`
	Move       string      `json:"move"`
	FEN        string      `json:"fen"` // position the move was played from
	Capture    bool        `json:"capture"`
	Clock      *float64    `json:"clock"`
	Eval       *float64    `json:"eval"`
	Candidates []Candidate `json:"candidates"` // best first, mate lines dropped
}

// CandidateEvals returns the candidate evaluations in order.
func (p PlyRecord) CandidateEvals() []float64 {
	out := make([]float64, len(p.Candidates))
	for i, c := range p.Candidates {
		out[i] = c.Eval
	}
	return out
}

// SideTables holds collected plies split per side. Index i of each slice is
// the i-th move of that side. First is the side that moved first (empty
// means White); the other side's slice may be one shorter.
type SideTables struct {
	First Side        `json:"first,omitempty"`
	White []PlyRecord `json:"white"`
	Black []PlyRecord `json:"black"`
}

// FirstSide returns the side that made the first move.
func (t SideTables) FirstSide() Side {
	if t.First == Black {
		return Black
	}
	return White
}

// Plies returns the moves of s.
func (t SideTables) Plies(s Side) []PlyRecord {
	if s == Black {
		return t.Black
	}
	return t.White
}

// Label classifies a position by how constrained the mover's choice was.
type Label string

const (
	LabelNone          Label = ""
	LabelForced        Label = "forced"
	LabelForcedCapture Label = "forced capture"
	LabelCritical      Label = "critical"
)

// IsForced reports whether the label is one of the forced variants.
func (l Label) IsForced() bool {
	return l == LabelForced || l == LabelForcedCapture
}

// Flags raised on forced moves that took unusually long.
const (
	FlagNone              = ""
	FlagLongForcedMove    = "long time spent on forced move"
	FlagLongForcedCapture = "long time spent on forced capture"
)

// Quality grades how much evaluation a move gave away.
type Quality string

const (
	QualityGood       Quality = "good"
	QualityInaccuracy Quality = "inaccuracy"
	QualityMistake    Quality = "mistake"
	QualityBlunder    Quality = "blunder"
)

// SideFeatures are the per-move features for one side of a move row.
// Move is empty when the side made no move in that row.
type SideFeatures struct {
	Move           string    `json:"move,omitempty"`
	FEN            string    `json:"fen,omitempty"`
	Capture        *bool     `json:"capture"`
	OppCapture     *bool     `json:"opp_capture"`
	Clock          *float64  `json:"clock"`
	TimeSpent      *float64  `json:"time_spent"`
	Eval           *float64  `json:"eval"`
	Candidates     []float64 `json:"candidates"`
	CandidateMoves []string  `json:"candidate_moves,omitempty"`
	EvalSpread     *float64  `json:"eval_spread"`
	EvalDelta      *float64  `json:"eval_delta"`
	Quality        Quality   `json:"quality,omitempty"`
	Label          *Label    `json:"label"`
	Flag           string    `json:"flag"`
}

// Present reports whether the side actually moved in this row.
func (f SideFeatures) Present() bool {
	return f.Move != ""
}

// MoveRow pairs white's and black's features for one move number.
type MoveRow struct {
	Number int          `json:"move_number"`
	White  SideFeatures `json:"white"`
	Black  SideFeatures `json:"black"`
}

// Side returns the features for s.
func (r *MoveRow) Side(s Side) *SideFeatures {
	if s == Black {
		return &r.Black
	}
	return &r.White
}

// Thresholds tune the classifier. All evaluations are in pawns.
type Thresholds struct {
	ForcedEval       float64 `json:"forced_eval"`
	CriticalSpread   float64 `json:"critical_spread"`
	DecisiveEval     float64 `json:"decisive_eval"`
	LongThinkSeconds float64 `json:"long_think_seconds"`
}

// Validate rejects negative or non-finite thresholds.
func (t Thresholds) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"forced_eval", t.ForcedEval},
		{"critical_spread", t.CriticalSpread},
		{"decisive_eval", t.DecisiveEval},
		{"long_think_seconds", t.LongThinkSeconds},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) || c.value < 0 {
			return fmt.Errorf("threshold %s must be a non-negative number, got %v", c.name, c.value)
		}
	}
	return nil
}

// SideSummary aggregates one side's moves. Float fields are NaN when
// undefined and encode as JSON null.
type SideSummary struct {
	CriticalCount      int
	MeanTime           float64
	StdDevTime         float64
	CV                 float64
	ForcedCount        int
	ForcedCaptureCount int
	FlaggedCount       int
	AvgLoss            float64
}

type sideSummaryJSON struct {
	CriticalCount      int      `json:"critical_count"`
	MeanTime           *float64 `json:"mean_time"`
	StdDevTime         *float64 `json:"stdev_time"`
	CV                 *float64 `json:"cv"`
	ForcedCount        int      `json:"forced_count"`
	ForcedCaptureCount int      `json:"forced_capture_count"`
	FlaggedCount       int      `json:"flagged_count"`
	AvgLoss            *float64 `json:"avg_loss"`
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func fromNullable(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func (s SideSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(sideSummaryJSON{
		CriticalCount:      s.CriticalCount,
		MeanTime:           nullable(s.MeanTime),
		StdDevTime:         nullable(s.StdDevTime),
		CV:                 nullable(s.CV),
		ForcedCount:        s.ForcedCount,
		ForcedCaptureCount: s.ForcedCaptureCount,
		FlaggedCount:       s.FlaggedCount,
		AvgLoss:            nullable(s.AvgLoss),
	})
}

func (s *SideSummary) UnmarshalJSON(data []byte) error {
	var raw sideSummaryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = SideSummary{
		CriticalCount:      raw.CriticalCount,
		MeanTime:           fromNullable(raw.MeanTime),
		StdDevTime:         fromNullable(raw.StdDevTime),
		CV:                 fromNullable(raw.CV),
		ForcedCount:        raw.ForcedCount,
		ForcedCaptureCount: raw.ForcedCaptureCount,
		FlaggedCount:       raw.FlaggedCount,
		AvgLoss:            fromNullable(raw.AvgLoss),
	}
	return nil
}

// Summary is the per-game aggregate.
type Summary struct {
	White SideSummary `json:"white"`
	Black SideSummary `json:"black"`
}

// Analysis is the full result of running a game through the pipeline.
type Analysis struct {
	ID          string      `json:"id"`
	GameID      int64       `json:"game_id,omitempty"`
	GameType    GameType    `json:"game_type"`
	TimeControl TimeControl `json:"time_control"`
	White       string      `json:"white"`
	Black       string      `json:"black"`
	Result      string      `json:"result"`
	ECOCode     string      `json:"eco_code,omitempty"`
	OpeningName string      `json:"opening_name,omitempty"`
	Thresholds  Thresholds  `json:"thresholds"`
	TopK        int         `json:"top_k"`
	Depth       int         `json:"depth"`
	Rows        []MoveRow   `json:"rows"`
	Summary     Summary     `json:"summary"`
	CreatedAt   time.Time   `json:"created_at"`
}
