// Package stats collects service metrics behind a small interface.
package stats

// Metric names.
const (
	MetricAnalyses          = "fairplay_analyses_total"
	MetricAnalysisFailures  = "fairplay_analysis_failures_total"
	MetricEngineUnavailable = "fairplay_engine_unavailable_total"
	MetricCacheHits         = "fairplay_cache_hits_total"
	MetricCacheMisses       = "fairplay_cache_misses_total"
	MetricPliesAnalyzed     = "fairplay_plies_analyzed_total"
	MetricAnalysisSeconds   = "fairplay_analysis_seconds"
	MetricEnginesAvailable  = "fairplay_engines_available"
	MetricQueueDepth        = "fairplay_analysis_queue_depth"
)

// Help text for known metrics; unknown names use the name itself.
var Help = map[string]string{
	MetricAnalyses:          "Games analysed successfully.",
	MetricAnalysisFailures:  "Analyses that ended in an error.",
	MetricEngineUnavailable: "Analyses aborted because no engine session could be used.",
	MetricCacheHits:         "Analyses served from the result cache.",
	MetricCacheMisses:       "Analyses not found in the result cache.",
	MetricPliesAnalyzed:     "Half-moves evaluated by the engine.",
	MetricAnalysisSeconds:   "Wall time of one game analysis.",
	MetricEnginesAvailable:  "Engine sessions that can be acquired without waiting.",
	MetricQueueDepth:        "Jobs waiting in the background analysis queue.",
}

// Collector defines the interface for collecting metrics.
type Collector interface {
	IncCounter(name string, delta int64)
	SetGauge(name string, value int64)
	ObserveHistogram(name string, value float64)
}
