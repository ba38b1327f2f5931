package jobs

// JobQueue hands stored games to the background analysers.
type JobQueue interface {
	// EnqueueAnalysis schedules gameID without blocking. It fails when the
	// queue is full or shutting down.
	EnqueueAnalysis(gameID int64) error
	// Pending is the number of games waiting for a worker.
	Pending() int
}
