package models

import "time"

// Side identifies which player made a move.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

// GameType is the speed class of a game, taken from its Event tag.
type GameType string

const (
	Blitz     GameType = "blitz"
	Rapid     GameType = "rapid"
	Classical GameType = "classical"
)

// TimeControl is a "base+increment" control in seconds.
type TimeControl struct {
	BaseSeconds      int `json:"base_seconds"`
	IncrementSeconds int `json:"increment_seconds"`
}

// GameRecord is a loaded game ready for replay.
type GameRecord struct {
	Type        GameType          `json:"type"`
	TimeControl TimeControl       `json:"time_control"`
	StartFEN    string            `json:"start_fen"`
	Moves       []string          `json:"moves"`  // UCI, one per ply
	Clocks      []*float64        `json:"clocks"` // seconds remaining after each ply, nil when not recorded
	White       string            `json:"white"`
	Black       string            `json:"black"`
	WhiteElo    int               `json:"white_elo,omitempty"`
	BlackElo    int               `json:"black_elo,omitempty"`
	Result      string            `json:"result"`
	Site        string            `json:"site,omitempty"`
	ECOCode     string            `json:"eco_code,omitempty"`
	OpeningName string            `json:"opening_name,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Analysis statuses for stored games.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Game is a stored game awaiting or holding an analysis.
type Game struct {
	ID               int64     `json:"id"`
	SourceID         string    `json:"source_id"`
	PGN              string    `json:"pgn"`
	GameType         string    `json:"game_type"`
	BaseSeconds      int       `json:"base_seconds"`
	IncrementSeconds int       `json:"increment_seconds"`
	White            string    `json:"white"`
	Black            string    `json:"black"`
	Result           string    `json:"result"`
	ECOCode          string    `json:"eco_code"`
	OpeningName      string    `json:"opening_name"`
	AnalysisStatus   string    `json:"analysis_status"`
	CreatedAt        time.Time `json:"created_at"`
}

type GameFilter struct {
	GameType string
	Status   string
	Player   string
	Limit    int
	Offset   int
	OrderDir string
}
