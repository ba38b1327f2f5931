package config

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vytor/fairplay/internal/analysis"
)

type Config struct {
	Addr                string
	DBPath              string
	StockfishPath       string
	StockfishDepth      int
	StockfishThreads    int
	StockfishHashMB     int
	StockfishMinThinkMs int
	StockfishMaxTime    int // milliseconds per search, 0 = no limit
	MaxEngines          int
	TopK                int
	LogLevel            string
	LogFormat           string
	AnalysisWorkerCount int
	AnalysisQueueSize   int
	AnalysisTimeoutSec  int
	LichessBaseURL      string
	RedisURL            string
	CacheSize           int
	CacheTTLSec         int
	ThresholdsFile      string
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:                envOr("ADDR", ":8080"),
		DBPath:              envOr("DB_PATH", "file:fairplay.db"),
		StockfishPath:       envOr("STOCKFISH_PATH", "stockfish"),
		StockfishDepth:      envIntOr("STOCKFISH_DEPTH", 18),
		StockfishThreads:    envIntOr("STOCKFISH_THREADS", 2),
		StockfishHashMB:     envIntOr("STOCKFISH_HASH_MB", 64),
		StockfishMinThinkMs: envIntOr("STOCKFISH_MIN_THINK_MS", 100),
		StockfishMaxTime:    envIntOr("STOCKFISH_MAX_TIME_MS", 0),
		MaxEngines:          envIntOr("MAX_ENGINES", 2),
		TopK:                envIntOr("TOP_K", 5),
		LogLevel:            envOr("LOG_LEVEL", "INFO"),
		LogFormat:           envOr("LOG_FORMAT", "console"),
		AnalysisWorkerCount: envIntOr("ANALYSIS_WORKER_COUNT", 2),
		AnalysisQueueSize:   envIntOr("ANALYSIS_QUEUE_SIZE", 64),
		AnalysisTimeoutSec:  envIntOr("ANALYSIS_TIMEOUT_SEC", 0),
		LichessBaseURL:      envOr("LICHESS_BASE_URL", "https://lichess.org"),
		RedisURL:            envOr("REDIS_URL", ""),
		CacheSize:           envIntOr("CACHE_SIZE", 256),
		CacheTTLSec:         envIntOr("CACHE_TTL_SEC", 86400),
		ThresholdsFile:      envOr("THRESHOLDS_FILE", ""),
	}
}

// Validate checks every setting and reports all problems at once.
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Addr) == "" {
		problems = append(problems, "ADDR cannot be empty")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		problems = append(problems, "DB_PATH cannot be empty")
	}
	if c.StockfishPath != "" {
		if _, err := exec.LookPath(c.StockfishPath); err != nil {
			problems = append(problems, fmt.Sprintf("STOCKFISH_PATH %q not found: %v", c.StockfishPath, err))
		}
	}
	if c.StockfishDepth < 1 || c.StockfishDepth > 30 {
		problems = append(problems, fmt.Sprintf("STOCKFISH_DEPTH must be between 1 and 30, got %d", c.StockfishDepth))
	}
	if c.StockfishThreads <= 0 {
		problems = append(problems, fmt.Sprintf("STOCKFISH_THREADS must be > 0, got %d", c.StockfishThreads))
	}
	if c.StockfishHashMB <= 0 {
		problems = append(problems, fmt.Sprintf("STOCKFISH_HASH_MB must be > 0, got %d", c.StockfishHashMB))
	}
	if c.StockfishMinThinkMs < 0 {
		problems = append(problems, fmt.Sprintf("STOCKFISH_MIN_THINK_MS must be >= 0, got %d", c.StockfishMinThinkMs))
	}
	if c.StockfishMaxTime < 0 {
		problems = append(problems, fmt.Sprintf("STOCKFISH_MAX_TIME_MS must be >= 0, got %d", c.StockfishMaxTime))
	}
	if c.MaxEngines <= 0 {
		problems = append(problems, fmt.Sprintf("MAX_ENGINES must be > 0, got %d", c.MaxEngines))
	}
	if c.TopK < 1 || c.TopK > analysis.MaxCandidates {
		problems = append(problems, fmt.Sprintf("TOP_K must be between 1 and %d, got %d", analysis.MaxCandidates, c.TopK))
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		problems = append(problems, fmt.Sprintf("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR, got %q", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("LOG_FORMAT must be console or json, got %q", c.LogFormat))
	}
	if c.AnalysisWorkerCount <= 0 {
		problems = append(problems, fmt.Sprintf("ANALYSIS_WORKER_COUNT must be > 0, got %d", c.AnalysisWorkerCount))
	}
	if c.AnalysisQueueSize <= 0 {
		problems = append(problems, fmt.Sprintf("ANALYSIS_QUEUE_SIZE must be > 0, got %d", c.AnalysisQueueSize))
	}
	if c.AnalysisTimeoutSec < 0 {
		problems = append(problems, fmt.Sprintf("ANALYSIS_TIMEOUT_SEC must be >= 0, got %d", c.AnalysisTimeoutSec))
	}
	if c.CacheSize <= 0 {
		problems = append(problems, fmt.Sprintf("CACHE_SIZE must be > 0, got %d", c.CacheSize))
	}
	if c.CacheTTLSec < 0 {
		problems = append(problems, fmt.Sprintf("CACHE_TTL_SEC must be >= 0, got %d", c.CacheTTLSec))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// EngineOptions translates the Stockfish settings for the engine launcher.
func (c Config) EngineOptions() analysis.EngineOptions {
	return analysis.EngineOptions{
		Path:           c.StockfishPath,
		Depth:          c.StockfishDepth,
		Threads:        c.StockfishThreads,
		HashMB:         c.StockfishHashMB,
		MinThinkMillis: c.StockfishMinThinkMs,
		MoveTimeMillis: c.StockfishMaxTime,
	}
}

type thresholdsFile struct {
	ForcedEval       *float64 `yaml:"forced_eval"`
	CriticalSpread   *float64 `yaml:"critical_spread"`
	DecisiveEval     *float64 `yaml:"decisive_eval"`
	LongThinkSeconds *float64 `yaml:"long_think_seconds"`
}

// LoadThresholds returns the classification thresholds, overlaying the YAML
// profile at ThresholdsFile on the defaults. Keys missing from the file keep
// their default value.
func (c Config) LoadThresholds() (analysis.Thresholds, error) {
	th := analysis.DefaultThresholds()
	if c.ThresholdsFile == "" {
		return th, nil
	}

	raw, err := os.ReadFile(c.ThresholdsFile)
	if err != nil {
		return th, fmt.Errorf("read thresholds file: %w", err)
	}
	return ParseThresholds(raw)
}

// ParseThresholds decodes a YAML thresholds profile over the defaults.
func ParseThresholds(raw []byte) (analysis.Thresholds, error) {
	th := analysis.DefaultThresholds()

	var f thresholdsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return th, fmt.Errorf("decode thresholds: %w", err)
	}
	if f.ForcedEval != nil {
		th.ForcedEval = *f.ForcedEval
	}
	if f.CriticalSpread != nil {
		th.CriticalSpread = *f.CriticalSpread
	}
	if f.DecisiveEval != nil {
		th.DecisiveEval = *f.DecisiveEval
	}
	if f.LongThinkSeconds != nil {
		th.LongThinkSeconds = *f.LongThinkSeconds
	}
	if err := th.Validate(); err != nil {
		return th, err
	}
	return th, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}
