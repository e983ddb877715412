package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/jobscout/internal/config"
	"github.com/jonathan/jobscout/internal/db"
	"github.com/jonathan/jobscout/internal/ingest"
	"github.com/jonathan/jobscout/internal/llm"
	"github.com/jonathan/jobscout/internal/logger"
	"github.com/jonathan/jobscout/internal/scheduler"
	"github.com/jonathan/jobscout/internal/search"
	"github.com/jonathan/jobscout/internal/server"
	"github.com/jonathan/jobscout/internal/sources"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes search, result, and scheduler endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	log, err := logger.New(cfg.LogJSON, cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Migrate(ctx); err != nil {
		return err
	}

	var judge *llm.FitJudge
	if cfg.GeminiAPIKey != "" {
		client, err := llm.NewGeminiClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
		if err != nil {
			return fmt.Errorf("failed to initialize LLM client: %w", err)
		}
		defer func() { _ = client.Close() }()
		judge = llm.NewFitJudge(client, time.Duration(cfg.LLMTimeoutSeconds)*time.Second)
	} else {
		log.Warn("GEMINI_API_KEY not set, runs will use fallback scoring only")
		judge = llm.NewFitJudge(nil, 0)
	}

	runner := search.NewRunner(database, ingest.NewMerger(database),
		[]sources.Connector{sources.NewLinkedInConnector()},
		judge, log, search.Config{
			MaxLLMJobsPerRun:   cfg.MaxLLMJobsPerRun,
			LLMConcurrency:     cfg.LLMConcurrency,
			MaxResultsPerQuery: cfg.MaxResultsPerQuery,
		})

	sched := scheduler.New(database, runner.Run, log, cfg.ScheduleIntervalMinutes)
	if err := sched.Restore(ctx); err != nil {
		log.Warn("failed to restore scheduler state", zap.Error(err))
	}
	defer sched.Stop(context.Background())

	srv := server.New(server.Config{Port: cfg.Port}, database, runner, sched, log)
	return srv.Start()
}
