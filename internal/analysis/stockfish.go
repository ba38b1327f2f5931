package analysis

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/vytor/fairplay/internal/errors"
	"github.com/vytor/fairplay/internal/logger"
	"github.com/vytor/fairplay/internal/models"
)

const (
	initTimeout = 5 * time.Second
	quitTimeout = 2 * time.Second
)

var errEngineBroken = errors.New("engine session left in an unknown state by an earlier failure")

// EngineOptions configures a Stockfish session.
type EngineOptions struct {
	Path           string
	Depth          int
	Threads        int
	HashMB         int
	MinThinkMillis int
	MoveTimeMillis int // 0 = depth only
}

func (o EngineOptions) withDefaults() EngineOptions {
	if o.Path == "" {
		o.Path = "stockfish"
	}
	if o.Depth <= 0 {
		o.Depth = 18
	}
	if o.Threads <= 0 {
		o.Threads = 1
	}
	if o.HashMB <= 0 {
		o.HashMB = 16
	}
	return o
}

// Engine is an Evaluator backed by a Stockfish process speaking UCI.
type Engine struct {
	opts EngineOptions
	log  *logger.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	lines   chan string
	done    chan struct{}
	multiPV int
	broken  bool

	startFEN string
	moves    []string
	fresh    bool

	lastKey   string
	lastLines []EngineLine
}

var _ Evaluator = (*Engine)(nil)

// NewEngine starts a Stockfish process and completes the UCI handshake.
// Any failure is reported as ENGINE_UNAVAILABLE.
func NewEngine(ctx context.Context, opts EngineOptions) (*Engine, error) {
	opts = opts.withDefaults()
	log := logger.FromContext(ctx).WithPrefix("stockfish")

	log.Info("starting stockfish engine: %s", opts.Path)
	// Not CommandContext: the session outlives the context used to start it.
	cmd := exec.Command(opts.Path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		log.Error("failed to create stdin pipe: %v", err)
		return nil, apperrors.NewEngineUnavailableError(err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		log.Error("failed to create stdout pipe: %v", err)
		return nil, apperrors.NewEngineUnavailableError(err)
	}

	if err := cmd.Start(); err != nil {
		log.Error("failed to start stockfish: %v", err)
		return nil, apperrors.NewEngineUnavailableError(err)
	}

	e := &Engine{
		opts:  opts,
		log:   log,
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan string, 64),
		done:  make(chan struct{}),
		fresh: true,
	}
	go e.readLoop(bufio.NewReader(stdout))

	log.Debug("initializing UCI protocol")
	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	if err := e.init(initCtx); err != nil {
		log.Error("failed to initialize UCI: %v", err)
		_ = e.Close()
		return nil, apperrors.NewEngineUnavailableError(err)
	}

	log.Info("stockfish engine ready")
	return e, nil
}

func (e *Engine) readLoop(r *bufio.Reader) {
	defer close(e.lines)
	for {
		line, err := r.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			select {
			case e.lines <- line:
			case <-e.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (e *Engine) init(ctx context.Context) error {
	if err := e.sendLocked("uci"); err != nil {
		return err
	}
	if err := e.awaitToken(ctx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}
	for _, opt := range e.optionCommands() {
		if err := e.sendLocked(opt); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	e.multiPV = 1
	if err := e.sendLocked("isready"); err != nil {
		return err
	}
	if err := e.awaitToken(ctx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (e *Engine) optionCommands() []string {
	cmds := []string{
		fmt.Sprintf("setoption name Threads value %d", e.opts.Threads),
		fmt.Sprintf("setoption name Hash value %d", e.opts.HashMB),
		"setoption name MultiPV value 1",
	}
	if e.opts.MinThinkMillis > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Minimum Thinking Time value %d", e.opts.MinThinkMillis))
	}
	return cmds
}

// SetPosition makes fen the current position and clears applied moves.
func (e *Engine) SetPosition(fen string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.startFEN = strings.TrimSpace(fen)
	e.moves = e.moves[:0]
	e.fresh = true
	return nil
}

// ApplyMove advances the current position by one UCI move.
func (e *Engine) ApplyMove(uci string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	uci = NormalizeUCI(uci)
	if len(uci) < 4 || len(uci) > 5 {
		return fmt.Errorf("malformed move %q", uci)
	}
	e.moves = append(e.moves, uci)
	return nil
}

// TopCandidates returns up to k lines for the current position, best first.
func (e *Engine) TopCandidates(ctx context.Context, k int) ([]EngineLine, error) {
	if k <= 0 {
		return nil, nil
	}
	if k > MaxCandidates {
		k = MaxCandidates
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.searchLocked(ctx, k)
}

// Evaluate returns the evaluation of the current position, nil for a forced
// mate. It reuses the principal line of the last search when that search ran
// on the same position.
func (e *Engine) Evaluate(ctx context.Context) (*float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lines := e.lastLines
	if e.lastKey != e.positionKey() || len(lines) == 0 {
		var err error
		lines, err = e.searchLocked(ctx, 1)
		if err != nil {
			return nil, err
		}
	}
	if len(lines) == 0 || lines[0].Eval == nil {
		return nil, nil
	}
	v := *lines[0].Eval
	return &v, nil
}

// Broken reports whether a failed search left the process unusable.
func (e *Engine) Broken() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.broken
}

func (e *Engine) searchLocked(ctx context.Context, k int) ([]EngineLine, error) {
	if e.broken || e.cmd == nil {
		return nil, apperrors.NewEngineUnavailableError(errEngineBroken)
	}

	key := e.positionKey()
	log := e.log.WithFields(map[string]any{
		"depth":   e.opts.Depth,
		"multipv": k,
	})
	start := time.Now()

	if e.fresh {
		if err := e.newGameLocked(ctx); err != nil {
			return nil, e.fail(ctx, err)
		}
	}
	if k != e.multiPV {
		if err := e.sendLocked(fmt.Sprintf("setoption name MultiPV value %d", k)); err != nil {
			return nil, e.fail(ctx, err)
		}
		e.multiPV = k
	}
	if err := e.sendLocked(buildPositionCommand(e.startFEN, e.moves)); err != nil {
		return nil, e.fail(ctx, err)
	}
	if err := e.sendLocked(buildGoCommand(e.opts)); err != nil {
		return nil, e.fail(ctx, err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, computeSearchTimeout(e.opts))
	defer cancel()

	stm := e.sideToMove()
	found := make(map[int]EngineLine)
	for {
		line, err := e.readLine(searchCtx)
		if err != nil {
			log.Error("search failed after %v: %v", time.Since(start), err)
			return nil, e.fail(ctx, err)
		}
		switch {
		case strings.HasPrefix(line, "info "):
			if idx, l, ok := parseInfo(line, stm); ok {
				found[idx] = l
			}
		case strings.HasPrefix(line, "bestmove"):
			lines := collapseLines(found, k)
			log.Debug("search completed in %v: %d lines", time.Since(start), len(lines))
			e.lastKey, e.lastLines = key, lines
			return lines, nil
		}
	}
}

func (e *Engine) newGameLocked(ctx context.Context) error {
	if err := e.sendLocked("ucinewgame"); err != nil {
		return err
	}
	if err := e.sendLocked("isready"); err != nil {
		return err
	}
	readyCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	if err := e.awaitToken(readyCtx, "readyok"); err != nil {
		return err
	}
	e.fresh = false
	e.lastKey, e.lastLines = "", nil
	return nil
}

// fail marks the session unusable. Caller cancellation is passed through;
// everything else, deadlines included, is ENGINE_UNAVAILABLE.
func (e *Engine) fail(ctx context.Context, err error) error {
	e.broken = true
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return err
	}
	return apperrors.NewEngineUnavailableError(err)
}

func (e *Engine) positionKey() string {
	return e.startFEN + "|" + strings.Join(e.moves, " ")
}

func (e *Engine) sideToMove() models.Side {
	side := models.White
	if e.startFEN != "" {
		side = SideToMove(e.startFEN)
	}
	if len(e.moves)%2 == 1 {
		side = side.Opponent()
	}
	return side
}

// Close stops the engine process, killing it if it ignores quit.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cmd == nil {
		return nil
	}

	e.log.Debug("closing stockfish engine")
	_ = e.sendLocked("quit")
	_ = e.stdin.Close()
	close(e.done)

	waitErr := make(chan error, 1)
	go func() { waitErr <- e.cmd.Wait() }()

	var err error
	select {
	case err = <-waitErr:
	case <-time.After(quitTimeout):
		e.log.Warn("stockfish ignored quit, killing process")
		_ = e.cmd.Process.Kill()
		err = <-waitErr
	}
	e.cmd = nil

	if err != nil {
		e.log.Debug("stockfish process exited: %v", err)
	} else {
		e.log.Debug("stockfish process exited cleanly")
	}
	return err
}

func (e *Engine) sendLocked(cmd string) error {
	_, err := io.WriteString(e.stdin, cmd+"\n")
	return err
}

func (e *Engine) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-e.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

func (e *Engine) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := e.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func buildPositionCommand(fen string, moves []string) string {
	var sb strings.Builder
	if fen == "" || fen == "startpos" {
		sb.WriteString("position startpos")
	} else {
		sb.WriteString("position fen ")
		sb.WriteString(fen)
	}
	if len(moves) > 0 {
		sb.WriteString(" moves ")
		sb.WriteString(strings.Join(moves, " "))
	}
	return sb.String()
}

func buildGoCommand(opts EngineOptions) string {
	args := []string{"go", "depth", strconv.Itoa(opts.Depth)}
	if opts.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(opts.MoveTimeMillis))
	}
	return strings.Join(args, " ")
}

func computeSearchTimeout(opts EngineOptions) time.Duration {
	if opts.MoveTimeMillis > 0 {
		return time.Duration(opts.MoveTimeMillis+2000) * time.Millisecond * 3
	}
	base := time.Duration(opts.Depth) * 500 * time.Millisecond
	if base < 8*time.Second {
		base = 8 * time.Second
	}
	if base > 60*time.Second {
		base = 60 * time.Second
	}
	return base
}

// parseInfo reads one "info" line. Bound scores and lines without a
// principal variation are skipped. Scores are converted to pawns from white's
// point of view; mate scores become nil.
func parseInfo(line string, sideToMove models.Side) (int, EngineLine, bool) {
	parts := strings.Fields(line)
	var (
		multipv  = 1
		eval     *float64
		hasScore bool
		pvIdx    = -1
	)

	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					multipv = v
				}
				i++
			}
		case "score":
			if i+2 >= len(parts) {
				return 0, EngineLine{}, false
			}
			v, err := strconv.Atoi(parts[i+2])
			if err != nil {
				return 0, EngineLine{}, false
			}
			switch parts[i+1] {
			case "cp":
				pawns := WhitePerspective(float64(v)/100, sideToMove)
				eval = &pawns
			case "mate":
				eval = nil
			default:
				return 0, EngineLine{}, false
			}
			hasScore = true
			i += 2
		case "lowerbound", "upperbound":
			return 0, EngineLine{}, false
		case "pv":
			pvIdx = i + 1
			i = len(parts)
		}
	}

	if !hasScore || pvIdx == -1 || pvIdx >= len(parts) {
		return 0, EngineLine{}, false
	}
	return multipv, EngineLine{Move: parts[pvIdx], Eval: eval}, true
}

func collapseLines(m map[int]EngineLine, k int) []EngineLine {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for idx := range m {
		keys = append(keys, idx)
	}
	sort.Ints(keys)
	if len(keys) > k {
		keys = keys[:k]
	}
	out := make([]EngineLine, 0, len(keys))
	for _, idx := range keys {
		out = append(out, m[idx])
	}
	return out
}
