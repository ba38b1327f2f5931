package jobs

import (
	"github.com/vytor/fairplay/internal/worker"
)

// WorkerQueue feeds analysis jobs into a worker pool.
type WorkerQueue struct {
	pool     *worker.Pool
	analyzer worker.GameAnalyzer
}

func NewWorkerQueue(pool *worker.Pool, analyzer worker.GameAnalyzer) *WorkerQueue {
	return &WorkerQueue{pool: pool, analyzer: analyzer}
}

var _ JobQueue = (*WorkerQueue)(nil)

func (q *WorkerQueue) EnqueueAnalysis(gameID int64) error {
	return q.pool.Submit(&worker.AnalyzeGameJob{Analyzer: q.analyzer, GameID: gameID})
}

func (q *WorkerQueue) Pending() int {
	return q.pool.QueueSize()
}
