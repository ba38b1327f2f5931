package worker

import (
	"context"
	"fmt"
)

// GameAnalyzer runs the analysis pipeline for a stored game. It is
// satisfied by services.AnalysisService.
type GameAnalyzer interface {
	AnalyzeGame(ctx context.Context, gameID int64) error
}

// AnalyzeGameJob analyses one stored game.
type AnalyzeGameJob struct {
	Analyzer GameAnalyzer
	GameID   int64
}

func (j *AnalyzeGameJob) Name() string { return fmt.Sprintf("analyze_game:%d", j.GameID) }

func (j *AnalyzeGameJob) Run(ctx context.Context) error {
	return j.Analyzer.AnalyzeGame(ctx, j.GameID)
}
