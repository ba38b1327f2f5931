package analysis

import (
	"context"
	"errors"
	"sync"

	apperrors "github.com/vytor/fairplay/internal/errors"
	"github.com/vytor/fairplay/internal/logger"
)

var errPoolClosed = errors.New("engine pool closed")

// Launcher starts a new evaluator session.
type Launcher func(ctx context.Context, opts EngineOptions) (Evaluator, error)

// StockfishLauncher starts Stockfish processes.
func StockfishLauncher(ctx context.Context, opts EngineOptions) (Evaluator, error) {
	return NewEngine(ctx, opts)
}

// EnginePool bounds how many evaluator sessions run at once and keeps idle
// ones around for reuse. Sessions are started lazily.
type EnginePool struct {
	opts   EngineOptions
	launch Launcher
	slots  chan struct{}
	idle   chan Evaluator
	mu     sync.Mutex
	closed bool
	log    *logger.Logger
}

// PoolOption configures an EnginePool.
type PoolOption func(*EnginePool)

// WithLauncher replaces the function used to start sessions.
func WithLauncher(l Launcher) PoolOption {
	return func(p *EnginePool) {
		p.launch = l
	}
}

// NewEnginePool creates a pool allowing at most size concurrent sessions.
func NewEnginePool(opts EngineOptions, size int, poolOpts ...PoolOption) *EnginePool {
	if size <= 0 {
		size = 2
	}
	p := &EnginePool{
		opts:   opts.withDefaults(),
		launch: StockfishLauncher,
		slots:  make(chan struct{}, size),
		idle:   make(chan Evaluator, size),
		log:    logger.Default().WithPrefix("engine-pool"),
	}
	for _, o := range poolOpts {
		o(p)
	}
	p.log.Info("engine pool allows %d concurrent sessions", size)
	return p
}

// Options returns the engine options sessions are started with.
func (p *EnginePool) Options() EngineOptions {
	return p.opts
}

// Acquire reserves a session, reusing an idle one when possible. Waiting
// past ctx's deadline or failing to start a session is ENGINE_UNAVAILABLE.
func (p *EnginePool) Acquire(ctx context.Context) (Evaluator, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, apperrors.NewEngineUnavailableError(errPoolClosed)
	}

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewEngineUnavailableError(ctx.Err())
		}
		return nil, ctx.Err()
	}

	select {
	case ev := <-p.idle:
		return ev, nil
	default:
	}

	ev, err := p.launch(ctx, p.opts)
	if err != nil {
		<-p.slots
		p.log.Error("failed to start engine session: %v", err)
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.NewEngineUnavailableError(err)
	}
	return ev, nil
}

// Release returns a session to the pool. Broken sessions and sessions
// released after Close are shut down instead.
func (p *EnginePool) Release(ev Evaluator) {
	if ev == nil {
		return
	}
	defer func() { <-p.slots }()

	p.mu.Lock()
	defer p.mu.Unlock()

	broken := false
	if b, ok := ev.(interface{ Broken() bool }); ok {
		broken = b.Broken()
	}
	if p.closed || broken {
		_ = ev.Close()
		return
	}
	select {
	case p.idle <- ev:
	default:
		_ = ev.Close()
	}
}

// Close shuts down idle sessions. Sessions still in use are closed when
// released.
func (p *EnginePool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	p.log.Info("closing engine pool")
	for {
		select {
		case ev := <-p.idle:
			_ = ev.Close()
		default:
			return
		}
	}
}

// Available returns how many more sessions can be acquired without waiting.
func (p *EnginePool) Available() int {
	return cap(p.slots) - len(p.slots)
}
