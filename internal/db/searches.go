package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jobscout/internal/types"
)

const searchColumns = `id, profile_id, country, city, time_window_hours,
	keywords, sources, active, created_at`

func scanSearch(row pgx.Row) (*types.SearchConfig, error) {
	var s types.SearchConfig
	var sources []string

	err := row.Scan(&s.ID, &s.ProfileID, &s.Country, &s.City, &s.TimeWindowHours,
		&s.Keywords, &sources, &s.Active, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	for _, name := range sources {
		s.Sources = append(s.Sources, types.Source(name))
	}
	return &s, nil
}

// CreateSearch stores a new search config.
func (db *DB) CreateSearch(ctx context.Context, s *types.SearchConfig) (*types.SearchConfig, error) {
	sources := make([]string, 0, len(s.Sources))
	for _, src := range s.Sources {
		sources = append(sources, string(src))
	}
	keywords := s.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	stored, err := scanSearch(db.pool.QueryRow(ctx,
		`INSERT INTO search_configs (profile_id, country, city, time_window_hours, keywords, sources, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+searchColumns,
		s.ProfileID, s.Country, s.City, s.TimeWindowHours, keywords, sources, s.Active,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create search: %w", err)
	}
	return stored, nil
}

// GetSearch retrieves a search config by ID.
func (db *DB) GetSearch(ctx context.Context, id uuid.UUID) (*types.SearchConfig, error) {
	s, err := scanSearch(db.pool.QueryRow(ctx,
		`SELECT `+searchColumns+` FROM search_configs WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get search: %w", err)
	}
	return s, nil
}

// ListActiveSearches returns every search the scheduler should run.
func (db *DB) ListActiveSearches(ctx context.Context) ([]*types.SearchConfig, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+searchColumns+` FROM search_configs WHERE active ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}
	defer rows.Close()

	var searches []*types.SearchConfig
	for rows.Next() {
		s, err := scanSearch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search: %w", err)
		}
		searches = append(searches, s)
	}
	return searches, rows.Err()
}

// SetSearchActive toggles a search on or off.
func (db *DB) SetSearchActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE search_configs SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to update search: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update search: no row with id %s", id)
	}
	return nil
}
