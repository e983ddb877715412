// Package config loads application settings from the environment. Call
// godotenv.Load before Load when a .env file should participate.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Config holds all runtime settings.
type Config struct {
	DatabaseURL  string `validate:"required"`
	GeminiAPIKey string // empty disables LLM scoring
	Port         int    `validate:"min=1,max=65535"`

	ScheduleIntervalMinutes int `validate:"min=1"`
	MaxLLMJobsPerRun        int `validate:"min=0"`
	LLMConcurrency          int `validate:"min=1"`
	LLMTimeoutSeconds       int `validate:"min=1"`
	MaxResultsPerQuery      int `validate:"min=1"`

	LogJSON bool
	Debug   bool
}

// Load reads configuration from environment variables, applying defaults
// and validating the result.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		GeminiAPIKey:            os.Getenv("GEMINI_API_KEY"),
		Port:                    envInt("PORT", 8080),
		ScheduleIntervalMinutes: envInt("SCHEDULE_INTERVAL_MINUTES", 60),
		MaxLLMJobsPerRun:        envInt("MAX_LLM_JOBS_PER_RUN", 25),
		LLMConcurrency:          envInt("LLM_CONCURRENCY", 4),
		LLMTimeoutSeconds:       envInt("LLM_TIMEOUT_SECONDS", 45),
		MaxResultsPerQuery:      envInt("MAX_RESULTS_PER_QUERY", 100),
		LogJSON:                 envBool("LOG_JSON", false),
		Debug:                   envBool("DEBUG", false),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
