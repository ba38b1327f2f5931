package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vytor/fairplay/internal/analysis"
	"github.com/vytor/fairplay/internal/api"
	"github.com/vytor/fairplay/internal/cache"
	"github.com/vytor/fairplay/internal/config"
	"github.com/vytor/fairplay/internal/db"
	"github.com/vytor/fairplay/internal/jobs"
	"github.com/vytor/fairplay/internal/lichess"
	"github.com/vytor/fairplay/internal/logger"
	"github.com/vytor/fairplay/internal/repository/sqlite"
	"github.com/vytor/fairplay/internal/services"
	promstats "github.com/vytor/fairplay/internal/stats/prometheus"
	"github.com/vytor/fairplay/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithFormat(cfg.LogFormat),
		logger.WithColors(cfg.LogFormat != "json"),
	)
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	log.Info("===========================================")
	log.Info("Fairplay Server Starting")
	log.Info("===========================================")

	if err := cfg.Validate(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("stockfish_path=%s", cfg.StockfishPath)
	log.Debug("stockfish_depth=%d", cfg.StockfishDepth)
	log.Debug("max_engines=%d", cfg.MaxEngines)
	log.Debug("top_k=%d", cfg.TopK)
	log.Debug("analysis_worker_count=%d", cfg.AnalysisWorkerCount)
	log.Debug("analysis_queue_size=%d", cfg.AnalysisQueueSize)
	log.Debug("analysis_timeout_sec=%d", cfg.AnalysisTimeoutSec)
	log.Debug("redis=%t", cfg.RedisURL != "")

	thresholds, err := cfg.LoadThresholds()
	if err != nil {
		log.Error("failed to load thresholds: %v", err)
		os.Exit(1)
	}
	log.Debug("thresholds=%+v", thresholds)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCache, err := cache.New(ctx, cache.Options{
		RedisURL: cfg.RedisURL,
		Size:     cfg.CacheSize,
		TTL:      time.Duration(cfg.CacheTTLSec) * time.Second,
	})
	if err != nil {
		log.Error("failed to open result cache: %v", err)
		os.Exit(1)
	}
	defer resultCache.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := promstats.New(registry)

	engines := analysis.NewEnginePool(cfg.EngineOptions(), cfg.MaxEngines)
	defer engines.Close()

	gameRepo := sqlite.NewGameRepository(database.DB)
	analysisRepo := sqlite.NewAnalysisRepository(database.DB)

	analysisService := services.NewAnalysisService(gameRepo, analysisRepo, engines, resultCache, metrics, services.AnalysisConfig{
		TopK:       cfg.TopK,
		Depth:      cfg.StockfishDepth,
		Thresholds: &thresholds,
		Timeout:    time.Duration(cfg.AnalysisTimeoutSec) * time.Second,
	})

	analysisPool := worker.NewPool(cfg.AnalysisWorkerCount, cfg.AnalysisQueueSize, worker.WithStats(metrics))
	jobQueue := jobs.NewWorkerQueue(analysisPool, analysisService)
	gameService := services.NewGameService(gameRepo, analysisRepo, lichess.New(cfg.LichessBaseURL), jobQueue)

	srv := &api.Server{
		AnalysisService: analysisService,
		GameService:     gameService,
		DB:              database,
		Engines:         engines,
		Metrics:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Thresholds:      &thresholds,
	}

	analysisPool.Start(ctx)

	// Games interrupted by a previous shutdown.
	if n, err := gameService.ResumeAnalysis(ctx); err != nil {
		log.Warn("failed to resume pending analyses: %v", err)
	} else if n > 0 {
		log.Info("resumed %d pending analyses", n)
	}

	httpServer := &http.Server{
		Addr:        cfg.Addr,
		Handler:     srv.Routes(),
		ReadTimeout: 15 * time.Second,
		// Synchronous analyses can take a while.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	log.Debug("stopping analysis pool")
	cancel()
	analysisPool.Stop()

	log.Info("===========================================")
	log.Info("Fairplay Server Stopped")
	log.Info("===========================================")
}
