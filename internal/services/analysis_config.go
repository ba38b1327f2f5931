package services

import (
	"time"

	"github.com/vytor/fairplay/internal/analysis"
)

// AnalysisConfig holds the defaults applied to every analysis.
type AnalysisConfig struct {
	TopK       int
	Depth      int
	Thresholds *analysis.Thresholds // nil = analysis.DefaultThresholds
	Timeout    time.Duration          // 0 = no deadline
}

// AnalyzeOptions override AnalysisConfig for one request. Zero values keep
// the configured defaults.
type AnalyzeOptions struct {
	TopK       int
	Thresholds *analysis.Thresholds
}
