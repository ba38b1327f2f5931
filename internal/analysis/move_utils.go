package analysis

import (
	"strings"

	"github.com/corentings/chess/v2"
)

// MoveToUCI converts a chess Move to UCI format (e.g., "e2e4", "e7e8q")
func MoveToUCI(move *chess.Move) string {
	if move == nil {
		return ""
	}

	uci := squareToString(move.S1()) + squareToString(move.S2())

	switch move.Promo() {
	case chess.Queen:
		uci += "q"
	case chess.Rook:
		uci += "r"
	case chess.Bishop:
		uci += "b"
	case chess.Knight:
		uci += "n"
	}

	return uci
}

// IsCapture reports whether move takes a piece, en passant included.
func IsCapture(move *chess.Move) bool {
	if move == nil {
		return false
	}
	return move.HasTag(chess.Capture) || move.HasTag(chess.EnPassant)
}

// NormalizeUCI lowercases and trims a UCI move string.
func NormalizeUCI(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// squareToString converts a Square to algebraic notation (e.g., "e2", "a8")
func squareToString(sq chess.Square) string {
	return string([]byte{byte('a' + sq.File()), byte('1' + sq.Rank())})
}
