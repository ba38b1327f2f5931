package jobs

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vytor/fairplay/internal/worker"
)

type analyzerFunc func(ctx context.Context, gameID int64) error

func (f analyzerFunc) AnalyzeGame(ctx context.Context, gameID int64) error { return f(ctx, gameID) }

func TestWorkerQueue_EnqueueAnalysis(t *testing.T) {
	pool := worker.NewPool(1, 4)

	var wg sync.WaitGroup
	var got []int64
	var mu sync.Mutex
	q := NewWorkerQueue(pool, analyzerFunc(func(_ context.Context, id int64) error {
		defer wg.Done()
		mu.Lock()
		got = append(got, id)
		mu.Unlock()
		return nil
	}))

	wg.Add(2)
	require.NoError(t, q.EnqueueAnalysis(7))
	require.NoError(t, q.EnqueueAnalysis(8))
	assert.Equal(t, 2, q.Pending())

	pool.Start(context.Background())
	wg.Wait()
	pool.Stop()

	assert.ElementsMatch(t, []int64{7, 8}, got)
	assert.Equal(t, 0, q.Pending())
}

func TestWorkerQueue_Full(t *testing.T) {
	pool := worker.NewPool(1, 1)
	q := NewWorkerQueue(pool, analyzerFunc(func(context.Context, int64) error { return nil }))

	require.NoError(t, q.EnqueueAnalysis(1))
	assert.ErrorIs(t, q.EnqueueAnalysis(2), worker.ErrQueueFull)
}
