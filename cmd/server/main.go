package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/agentfolio/axscore/api"
	axdb "github.com/agentfolio/axscore/db"
	"github.com/agentfolio/axscore/internal/alerts"
	"github.com/agentfolio/axscore/internal/baseline"
	"github.com/agentfolio/axscore/internal/benchmark"
	"github.com/agentfolio/axscore/internal/config"
	"github.com/agentfolio/axscore/internal/db"
	"github.com/agentfolio/axscore/internal/jobs"
	"github.com/agentfolio/axscore/internal/recommend"
	"github.com/agentfolio/axscore/internal/report"
	"github.com/agentfolio/axscore/internal/repository/sqlite"
	"github.com/agentfolio/axscore/internal/scanner"
	"github.com/agentfolio/axscore/internal/scans"
	"github.com/agentfolio/axscore/internal/textgen"
	"github.com/agentfolio/axscore/internal/usage"
	"github.com/agentfolio/axscore/pkg/ollama"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	api.SetLogger(logger)
	ollama.SetLogger(logger)

	logger.Info("starting axscore server",
		slog.String("version", version), slog.String("build_time", buildTime))

	ctx := context.Background()

	database, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Migrate(ctx, database, axdb.Migrations); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}

	// AI provider is optional; with it disabled every generation takes the
	// deterministic fallback path
	var generator textgen.Generator
	if cfg.Ollama.Enabled {
		client, err := ollama.NewDefaultClient(ollamaConfig(cfg.Ollama))
		if err != nil {
			log.Fatalf("Failed to create ollama client: %v", err)
		}
		generator = client
	} else {
		logger.Info("ollama disabled, using deterministic fallbacks")
	}
	engine, err := textgen.NewEngine(generator, cfg.Ollama.Model, cfg.Ollama.Timeout, logger)
	if err != nil {
		log.Fatalf("Failed to create text engine: %v", err)
	}

	repo := sqlite.New(database, logger)
	sc := scanner.New(scanner.Config{
		ProbeTimeout: cfg.Scanner.ProbeTimeout,
		BodyLimit:    cfg.Scanner.BodyLimit,
		UserAgent:    cfg.Scanner.UserAgent,
	}, nil, logger)
	analyzer := recommend.New(engine, logger)

	services := &api.Services{
		Scans:      scans.NewService(sc, analyzer, repo, repo, repo, logger),
		Baselines:  baseline.NewManager(repo, repo, logger),
		Alerts:     alerts.NewGenerator(repo, repo, repo, repo, logger),
		Benchmark:  benchmark.NewService(repo, repo, repo, sc, logger),
		Reports:    report.NewGenerator(repo, repo, repo, repo, engine, logger),
		Usage:      usage.NewTracker(repo, repo, logger),
		Developers: repo,
		Sites:      repo,
		ScanRepo:   repo,
		RecRepo:    repo,
		ReportRepo: repo,
	}

	handler := api.SetupRoutes(cfg, version, buildTime, services)

	// Background workers and the recurring schedules
	jobRepo := jobs.NewRepository(database)
	handlers := jobs.NewHandlers(jobRepo, services.Alerts, services.Reports, repo, repo, logger)
	pool := jobs.NewWorkerPool(jobRepo, handlers.Map(), logger, cfg.Workers)
	pool.Start(ctx)
	scheduler := jobs.NewScheduler(jobRepo, logger)
	scheduler.Start(ctx)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	scheduler.Stop()
	pool.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := database.Close(); err != nil {
		logger.Error("close db", slog.Any("err", err))
	}

	logger.Info("server exited")
}

func ollamaConfig(c config.OllamaConfig) ollama.Config {
	out := ollama.DefaultConfig()
	if c.BaseURL != "" {
		out.BaseURL = c.BaseURL
	}
	if c.Model != "" {
		out.Model = c.Model
	}
	if c.Timeout > 0 {
		out.Timeout = c.Timeout
	}
	if c.Retries > 0 {
		out.Retries = c.Retries
	}
	if c.Backoff > 0 {
		out.Backoff = c.Backoff
	}
	if c.CircuitFailureThreshold > 0 {
		out.CircuitFailureThreshold = c.CircuitFailureThreshold
	}
	if c.CircuitReset > 0 {
		out.CircuitReset = c.CircuitReset
	}
	return out
}
