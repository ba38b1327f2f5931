package pgn

import (
	"regexp"
	"strings"

	apperrors "github.com/vytor/fairplay/internal/errors"
)

var headerRe = regexp.MustCompile(`\[(\w+)\s+"([^"]*)"\]`)

// ParsePGNHeaders extracts PGN header tags into a map
func ParsePGNHeaders(pgn string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(pgn, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "[") {
			continue
		}
		m := headerRe.FindStringSubmatch(line)
		if len(m) == 3 {
			out[m[1]] = m[2]
		}
	}
	return out
}

var (
	gameIDRe    = regexp.MustCompile(`^[A-Za-z0-9]{8}$`)
	gameURLRe   = regexp.MustCompile(`lichess\.org/(?:game/export/)?([A-Za-z0-9]{8})(?:[A-Za-z0-9]{4})?(?:[/?#]|$)`)
	gameIDLenRe = regexp.MustCompile(`^[A-Za-z0-9]{12}$`)
)

// ExtractGameID returns the 8 character lichess game id from a bare id, a
// 12 character player id, or a game URL. Anything else is an INPUT_ERROR.
func ExtractGameID(idOrURL string) (string, error) {
	s := strings.TrimSpace(idOrURL)
	switch {
	case s == "":
		return "", apperrors.NewInputError("game identifier is empty")
	case gameIDRe.MatchString(s):
		return s, nil
	case gameIDLenRe.MatchString(s):
		return s[:8], nil
	}
	if m := gameURLRe.FindStringSubmatch(s); len(m) == 2 {
		return m[1], nil
	}
	return "", apperrors.NewInputError("malformed game identifier %q", idOrURL)
}
