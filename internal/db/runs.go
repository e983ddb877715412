package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jobscout/internal/types"
)

// CreateRun records the start of a search run and returns its ID.
func (db *DB) CreateRun(ctx context.Context, searchID uuid.UUID, trigger string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO search_runs (search_id, trigger_kind, status)
		 VALUES ($1, $2, 'running')
		 RETURNING id`,
		searchID, trigger,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// FinishRun records the outcome of a run.
func (db *DB) FinishRun(ctx context.Context, run *types.SearchRun) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE search_runs SET status = $2, finished_at = NOW(),
			total_found = $3, new_found = $4, skipped = $5, fallback = $6,
			excluded = $7, error = $8
		 WHERE id = $1`,
		run.ID, run.Status, run.TotalFound, run.NewFound, run.Skipped,
		run.Fallback, run.Excluded, run.Error)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs of a search, newest first.
func (db *DB) ListRuns(ctx context.Context, searchID uuid.UUID, limit int) ([]*types.SearchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, search_id, trigger_kind, status, started_at, finished_at,
			total_found, new_found, skipped, fallback, excluded, error
		 FROM search_runs WHERE search_id = $1
		 ORDER BY started_at DESC LIMIT $2`,
		searchID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*types.SearchRun
	for rows.Next() {
		var r types.SearchRun
		err := rows.Scan(&r.ID, &r.SearchID, &r.Trigger, &r.Status, &r.StartedAt,
			&r.FinishedAt, &r.TotalFound, &r.NewFound, &r.Skipped, &r.Fallback,
			&r.Excluded, &r.Error)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// SchedulerState is the persisted scheduler toggle.
type SchedulerState struct {
	Running         bool
	IntervalMinutes int
	LastTickAt      *time.Time
}

// GetSchedulerState reads the singleton scheduler row.
func (db *DB) GetSchedulerState(ctx context.Context) (*SchedulerState, error) {
	var s SchedulerState
	err := db.pool.QueryRow(ctx,
		`SELECT running, interval_minutes, last_tick_at FROM scheduler_state WHERE id = 1`,
	).Scan(&s.Running, &s.IntervalMinutes, &s.LastTickAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return &SchedulerState{IntervalMinutes: 60}, nil
		}
		return nil, fmt.Errorf("failed to get scheduler state: %w", err)
	}
	return &s, nil
}

// SaveSchedulerState persists the scheduler toggle.
func (db *DB) SaveSchedulerState(ctx context.Context, s *SchedulerState) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO scheduler_state (id, running, interval_minutes, last_tick_at)
		 VALUES (1, $1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET running = $1, interval_minutes = $2, last_tick_at = $3`,
		s.Running, s.IntervalMinutes, s.LastTickAt)
	if err != nil {
		return fmt.Errorf("failed to save scheduler state: %w", err)
	}
	return nil
}

// TouchSchedulerTick records the time of the latest scheduler pass.
func (db *DB) TouchSchedulerTick(ctx context.Context, at time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE scheduler_state SET last_tick_at = $1 WHERE id = 1`, at)
	if err != nil {
		return fmt.Errorf("failed to record scheduler tick: %w", err)
	}
	return nil
}
