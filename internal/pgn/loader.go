package pgn

import (
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"

	"github.com/vytor/fairplay/internal/analysis"
	apperrors "github.com/vytor/fairplay/internal/errors"
	"github.com/vytor/fairplay/internal/models"
)

var (
	commentRe     = regexp.MustCompile(`\{[^}]*\}|;[^\n]*`)
	moveNumberRe  = regexp.MustCompile(`^\d+\.+`)
	sanRe         = regexp.MustCompile(`^([KQRBN]?[a-h]?[1-8]?x?[a-h][1-8](=?[QRBN])?|O-O(-O)?)[+#]?$`)
	timeControlRe = regexp.MustCompile(`^(\d+)\+(\d+)$`)
	clockRe       = regexp.MustCompile(`^(\d+):(\d{1,2}):(\d{1,2}(?:\.\d+)?)$`)
)

// Load parses a single PGN game into a GameRecord. Unsupported game types,
// a missing or malformed TimeControl, unparsable movetext and empty move
// lists are INPUT_ERRORs.
func Load(text string) (models.GameRecord, error) {
	if strings.TrimSpace(text) == "" {
		return models.GameRecord{}, apperrors.NewInputError("game record is empty")
	}

	headers := ParsePGNHeaders(text)
	gameType, err := ParseGameType(headers["Event"])
	if err != nil {
		return models.GameRecord{}, err
	}
	tc, err := ParseTimeControl(headers["TimeControl"])
	if err != nil {
		return models.GameRecord{}, err
	}

	opt, err := chess.PGN(strings.NewReader(text))
	if err != nil {
		if illegal := findIllegalMove(text, headers["FEN"]); illegal != nil {
			return models.GameRecord{}, illegal
		}
		return models.GameRecord{}, apperrors.NewInputError("parse PGN: %v", err)
	}
	game := chess.NewGame(opt)

	moves := game.Moves()
	if len(moves) == 0 {
		return models.GameRecord{}, apperrors.NewInputError("game record has no moves")
	}

	tags := maps.Clone(headers)

	rec := models.GameRecord{
		Type:        gameType,
		TimeControl: tc,
		StartFEN:    strings.TrimSpace(tags["FEN"]),
		Moves:       make([]string, len(moves)),
		Clocks:      make([]*float64, len(moves)),
		White:       tags["White"],
		Black:       tags["Black"],
		WhiteElo:    atoiOrZero(tags["WhiteElo"]),
		BlackElo:    atoiOrZero(tags["BlackElo"]),
		Result:      tags["Result"],
		Site:        tags["Site"],
		ECOCode:     tags["ECO"],
		OpeningName: tags["Opening"],
		Tags:        tags,
	}
	for i, m := range moves {
		rec.Moves[i] = analysis.MoveToUCI(m)
		rec.Clocks[i] = moveClock(m)
	}

	if rec.ECOCode == "" && rec.StartFEN == "" {
		if o := opening.NewBookECO().Find(moves); o != nil {
			rec.ECOCode, rec.OpeningName = o.Code(), o.Title()
		}
	}
	return rec, nil
}

// ParseGameType maps an Event tag to a game type.
func ParseGameType(event string) (models.GameType, error) {
	e := strings.ToLower(event)
	for _, t := range []models.GameType{models.Blitz, models.Rapid, models.Classical} {
		if strings.Contains(e, string(t)) {
			return t, nil
		}
	}
	if strings.TrimSpace(event) == "" {
		return "", apperrors.NewInputError("missing Event tag")
	}
	return "", apperrors.NewInputError("unsupported game type in Event tag %q", event)
}

// ParseTimeControl parses a "base+increment" TimeControl tag.
func ParseTimeControl(tag string) (models.TimeControl, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return models.TimeControl{}, apperrors.NewInputError("missing TimeControl tag")
	}
	m := timeControlRe.FindStringSubmatch(tag)
	if m == nil {
		return models.TimeControl{}, apperrors.NewInputError("malformed TimeControl tag %q", tag)
	}
	base, _ := strconv.Atoi(m[1])
	inc, _ := strconv.Atoi(m[2])
	return models.TimeControl{BaseSeconds: base, IncrementSeconds: inc}, nil
}

// ParseClock converts a %clk value (H:MM:SS with optional fraction) to
// seconds.
func ParseClock(s string) (float64, error) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("malformed clock %q", s)
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	secs, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed clock %q: %w", s, err)
	}
	return float64(h*3600+mins*60) + secs, nil
}

// findIllegalMove replays the SAN movetext of a game the PGN parser
// rejected and returns an ILLEGAL_MOVE error for the first well-formed move
// that is not legal in its position. It returns nil when the movetext is
// malformed rather than illegal.
func findIllegalMove(text, fen string) error {
	pos := chess.StartingPosition()
	if strings.TrimSpace(fen) != "" {
		opt, err := chess.FEN(fen)
		if err != nil {
			return nil
		}
		pos = chess.NewGame(opt).Position()
	}

	ply := 0
	for _, tok := range movetextTokens(text) {
		if !sanRe.MatchString(tok) {
			return nil
		}
		move, err := chess.AlgebraicNotation{}.Decode(pos, tok)
		if err != nil {
			return apperrors.NewIllegalMoveError(ply, tok, err)
		}
		pos = pos.Update(move)
		ply++
	}
	return nil
}

// movetextTokens returns the SAN moves of a single-game PGN with tags,
// comments, variations, NAGs, move numbers and the result removed.
func movetextTokens(text string) []string {
	var body strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "[") {
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	movetext := commentRe.ReplaceAllString(body.String(), " ")

	var (
		out   []string
		depth int
	)
	for _, tok := range strings.Fields(strings.NewReplacer("(", " ( ", ")", " ) ").Replace(movetext)) {
		switch {
		case tok == "(":
			depth++
			continue
		case tok == ")":
			depth--
			continue
		case depth > 0, strings.HasPrefix(tok, "$"):
			continue
		}
		switch tok {
		case "1-0", "0-1", "1/2-1/2", "*":
			continue
		}
		tok = moveNumberRe.ReplaceAllString(tok, "")
		tok = strings.TrimRight(tok, "!?")
		tok = strings.ReplaceAll(tok, "0-0", "O-O")
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func moveClock(m *chess.Move) *float64 {
	for _, key := range []string{"clk", "%clk"} {
		raw, ok := m.GetCommand(key)
		if !ok {
			continue
		}
		if v, err := ParseClock(raw); err == nil {
			return &v
		}
	}
	return nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
