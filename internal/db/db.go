// Package db provides PostgreSQL persistence for profiles, postings,
// searches, results, and run bookkeeping.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS cv_profiles (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		cv_key TEXT UNIQUE NOT NULL,
		skills TEXT[] NOT NULL DEFAULT '{}',
		experience JSONB NOT NULL DEFAULT '[]',
		education TEXT[] NOT NULL DEFAULT '{}',
		languages TEXT[] NOT NULL DEFAULT '{}',
		target_roles TEXT[] NOT NULL DEFAULT '{}',
		seniority TEXT NOT NULL DEFAULT '',
		industries TEXT[] NOT NULL DEFAULT '{}',
		recommended_queries TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS job_postings (
		id UUID PRIMARY KEY,
		source TEXT NOT NULL,
		external_job_id TEXT,
		canonical_url TEXT NOT NULL,
		canonical_url_hash TEXT NOT NULL,
		title TEXT NOT NULL,
		company TEXT,
		location TEXT,
		description TEXT NOT NULL DEFAULT '',
		modality TEXT NOT NULL DEFAULT 'unknown',
		easy_apply BOOLEAN NOT NULL DEFAULT FALSE,
		applicant_count INTEGER,
		posted_at TIMESTAMPTZ,
		job_category TEXT,
		job_subcategory TEXT,
		content_hash TEXT NOT NULL DEFAULT '',
		first_seen_at TIMESTAMPTZ NOT NULL,
		last_seen_at TIMESTAMPTZ NOT NULL
	)`,

	// Identity is (source, external_job_id) when the portal supplies an ID,
	// otherwise (source, canonical_url_hash). Rows with an external ID are
	// allowed to share a URL hash with each other.
	`CREATE UNIQUE INDEX IF NOT EXISTS job_postings_source_external_id
		ON job_postings (source, external_job_id)
		WHERE external_job_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS job_postings_source_url_hash
		ON job_postings (source, canonical_url_hash)
		WHERE external_job_id IS NULL`,
	`CREATE INDEX IF NOT EXISTS job_postings_url_hash
		ON job_postings (source, canonical_url_hash)`,

	`CREATE TABLE IF NOT EXISTS search_configs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		profile_id UUID NOT NULL REFERENCES cv_profiles(id) ON DELETE CASCADE,
		country TEXT,
		city TEXT,
		time_window_hours INTEGER NOT NULL DEFAULT 24,
		keywords TEXT[] NOT NULL DEFAULT '{}',
		sources TEXT[] NOT NULL DEFAULT '{}',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS search_results (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		search_id UUID NOT NULL REFERENCES search_configs(id) ON DELETE CASCADE,
		posting_id UUID NOT NULL REFERENCES job_postings(id) ON DELETE CASCADE,
		match_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
		llm_fit_score DOUBLE PRECISION,
		final_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		fit_reasons TEXT[] NOT NULL DEFAULT '{}',
		llm_status TEXT NOT NULL DEFAULT 'fallback',
		analysis_hash TEXT,
		is_new BOOLEAN NOT NULL DEFAULT TRUE,
		checked BOOLEAN NOT NULL DEFAULT FALSE,
		discovered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (search_id, posting_id)
	)`,

	`CREATE TABLE IF NOT EXISTS search_runs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		search_id UUID NOT NULL REFERENCES search_configs(id) ON DELETE CASCADE,
		trigger_kind TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		finished_at TIMESTAMPTZ,
		total_found INTEGER NOT NULL DEFAULT 0,
		new_found INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		fallback INTEGER NOT NULL DEFAULT 0,
		excluded INTEGER NOT NULL DEFAULT 0,
		error TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS scheduler_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		running BOOLEAN NOT NULL DEFAULT FALSE,
		interval_minutes INTEGER NOT NULL DEFAULT 60,
		last_tick_at TIMESTAMPTZ
	)`,
	`INSERT INTO scheduler_state (id, running) VALUES (1, FALSE)
		ON CONFLICT (id) DO NOTHING`,
}

// Migrate creates the schema. Every statement is idempotent so Migrate can
// run on every startup.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
