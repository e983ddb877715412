package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jobscout/internal/types"
)

const profileColumns = `id, cv_key, skills, experience, education, languages,
	target_roles, seniority, industries, recommended_queries, created_at, updated_at`

func scanProfile(row pgx.Row) (*types.CandidateProfile, error) {
	var p types.CandidateProfile
	var experienceJSON []byte

	err := row.Scan(&p.ID, &p.CVKey, &p.Skills, &experienceJSON, &p.Education,
		&p.Languages, &p.TargetRoles, &p.Seniority, &p.Industries,
		&p.RecommendedQueries, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if experienceJSON != nil {
		_ = json.Unmarshal(experienceJSON, &p.Experience)
	}
	return &p, nil
}

func notNull(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// UpsertProfile stores a profile keyed by cv_key, latest wins.
func (db *DB) UpsertProfile(ctx context.Context, p *types.CandidateProfile) (*types.CandidateProfile, error) {
	if p.Experience == nil {
		p.Experience = []types.ExperienceEntry{}
	}
	experienceJSON, err := json.Marshal(p.Experience)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal experience: %w", err)
	}

	stored, err := scanProfile(db.pool.QueryRow(ctx,
		`INSERT INTO cv_profiles (cv_key, skills, experience, education, languages,
			target_roles, seniority, industries, recommended_queries)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (cv_key) DO UPDATE SET
			skills = $2, experience = $3, education = $4, languages = $5,
			target_roles = $6, seniority = $7, industries = $8,
			recommended_queries = $9, updated_at = NOW()
		 RETURNING `+profileColumns,
		p.CVKey, notNull(p.Skills), experienceJSON, notNull(p.Education), notNull(p.Languages),
		notNull(p.TargetRoles), p.Seniority, notNull(p.Industries), notNull(p.RecommendedQueries),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return stored, nil
}

// GetProfile retrieves a profile by ID.
func (db *DB) GetProfile(ctx context.Context, id uuid.UUID) (*types.CandidateProfile, error) {
	p, err := scanProfile(db.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM cv_profiles WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetProfileByKey retrieves a profile by cv_key.
func (db *DB) GetProfileByKey(ctx context.Context, cvKey string) (*types.CandidateProfile, error) {
	p, err := scanProfile(db.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM cv_profiles WHERE cv_key = $1`, cvKey))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile by key: %w", err)
	}
	return p, nil
}
