package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vytor/fairplay/internal/stats"
)

type funcJob struct {
	name string
	fn   func(context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Run(ctx context.Context) error { return j.fn(ctx) }

type recordingAnalyzer struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (r *recordingAnalyzer) AnalyzeGame(_ context.Context, gameID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, gameID)
	return r.err
}

func (r *recordingAnalyzer) seen() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.ids...)
}

func TestPool_RunsJobs(t *testing.T) {
	p := NewPool(2, 8)
	p.Start(context.Background())

	var wg sync.WaitGroup
	var mu sync.Mutex
	ran := map[string]bool{}
	for _, name := range []string{"a", "b", "c"} {
		wg.Add(1)
		require.NoError(t, p.Submit(funcJob{name: name, fn: func(context.Context) error {
			defer wg.Done()
			mu.Lock()
			ran[name] = true
			mu.Unlock()
			return nil
		}}))
	}
	wg.Wait()
	p.Stop()

	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, ran)
}

func TestPool_SubmitQueueFull(t *testing.T) {
	p := NewPool(1, 1)
	block := funcJob{name: "block", fn: func(context.Context) error { return nil }}

	// Not started, so nothing drains the queue.
	require.NoError(t, p.Submit(block))
	assert.ErrorIs(t, p.Submit(block), ErrQueueFull)
	assert.Equal(t, 1, p.QueueSize())
}

func TestPool_SubmitAfterStop(t *testing.T) {
	p := NewPool(1, 1)
	p.Start(context.Background())
	p.Stop()
	p.Stop()

	err := p.Submit(funcJob{name: "late", fn: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrPoolStopped)
}

func TestPool_SurvivesFailingAndPanickingJobs(t *testing.T) {
	p := NewPool(1, 4)
	p.Start(context.Background())
	defer p.Stop()

	done := make(chan struct{})
	require.NoError(t, p.Submit(funcJob{name: "fail", fn: func(context.Context) error { return errors.New("boom") }}))
	require.NoError(t, p.Submit(funcJob{name: "panic", fn: func(context.Context) error { panic("bad") }}))
	require.NoError(t, p.Submit(funcJob{name: "ok", fn: func(context.Context) error {
		close(done)
		return nil
	}}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive failing jobs")
	}
}

func TestPool_StopCancelsRunningJob(t *testing.T) {
	p := NewPool(1, 1)
	p.Start(context.Background())

	started := make(chan struct{})
	cancelled := make(chan struct{})
	require.NoError(t, p.Submit(funcJob{name: "long", fn: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}}))

	<-started
	p.Stop()

	select {
	case <-cancelled:
	default:
		t.Fatal("running job was not cancelled")
	}
}

func TestPool_ReportsQueueDepth(t *testing.T) {
	m := stats.NewMemory()
	p := NewPool(1, 4, WithStats(m))

	noop := funcJob{name: "noop", fn: func(context.Context) error { return nil }}
	require.NoError(t, p.Submit(noop))
	require.NoError(t, p.Submit(noop))

	assert.Equal(t, int64(2), m.Gauge(stats.MetricQueueDepth))
}

func TestAnalyzeGameJob(t *testing.T) {
	svc := &recordingAnalyzer{err: errors.New("engine down")}
	job := &AnalyzeGameJob{Analyzer: svc, GameID: 42}

	assert.Equal(t, "analyze_game:42", job.Name())
	assert.EqualError(t, job.Run(context.Background()), "engine down")
	assert.Equal(t, []int64{42}, svc.seen())
}
