package analysis

import (
	"strings"

	"github.com/vytor/fairplay/internal/models"
)

// WhitePerspective converts a score reported for the side to move into
// white's point of view. Every evaluation that leaves this package has
// passed through here.
func WhitePerspective(score float64, sideToMove models.Side) float64 {
	if sideToMove == models.Black {
		return -score
	}
	return score
}

// MoverPerspective converts a white-perspective score into mover's point of view.
func MoverPerspective(whiteScore float64, mover models.Side) float64 {
	return WhitePerspective(whiteScore, mover)
}

// SideToMove reads the active colour field of a FEN.
func SideToMove(fen string) models.Side {
	parts := strings.Fields(fen)
	if len(parts) > 1 && parts[1] == "b" {
		return models.Black
	}
	return models.White
}
