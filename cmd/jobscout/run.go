package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/jobscout/internal/config"
	"github.com/jonathan/jobscout/internal/db"
	"github.com/jonathan/jobscout/internal/ingest"
	"github.com/jonathan/jobscout/internal/llm"
	"github.com/jonathan/jobscout/internal/logger"
	"github.com/jonathan/jobscout/internal/search"
	"github.com/jonathan/jobscout/internal/sources"
	"github.com/jonathan/jobscout/internal/types"
)

var runCmd = &cobra.Command{
	Use:   "run <search-id>",
	Short: "Run one search immediately and print the outcome",
	Args:  cobra.ExactArgs(1),
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(_ *cobra.Command, args []string) error {
	searchID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid search ID: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
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

	judge := llm.NewFitJudge(nil, 0)
	if cfg.GeminiAPIKey != "" {
		client, err := llm.NewGeminiClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
		if err != nil {
			return fmt.Errorf("failed to initialize LLM client: %w", err)
		}
		defer func() { _ = client.Close() }()
		judge = llm.NewFitJudge(client, time.Duration(cfg.LLMTimeoutSeconds)*time.Second)
	}

	runner := search.NewRunner(database, ingest.NewMerger(database),
		[]sources.Connector{sources.NewLinkedInConnector()},
		judge, log, search.Config{
			MaxLLMJobsPerRun:   cfg.MaxLLMJobsPerRun,
			LLMConcurrency:     cfg.LLMConcurrency,
			MaxResultsPerQuery: cfg.MaxResultsPerQuery,
		})

	run, err := runner.Run(ctx, searchID, types.RunTriggerManual)
	if err != nil {
		return err
	}

	fmt.Printf("run %s finished: status=%s found=%d new=%d skipped=%d fallback=%d excluded=%d\n",
		run.ID, run.Status, run.TotalFound, run.NewFound, run.Skipped, run.Fallback, run.Excluded)
	return nil
}
