package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jonathan/jobscout/internal/ingest"
	"github.com/jonathan/jobscout/internal/types"
)

const postingColumns = `id, source, external_job_id, canonical_url, canonical_url_hash,
	title, company, location, description, modality, easy_apply, applicant_count,
	posted_at, job_category, job_subcategory, content_hash, first_seen_at, last_seen_at`

func scanPosting(row pgx.Row) (*types.Posting, error) {
	var p types.Posting
	err := row.Scan(&p.ID, &p.Source, &p.ExternalJobID, &p.CanonicalURL, &p.CanonicalURLHash,
		&p.Title, &p.Company, &p.Location, &p.Description, &p.Modality, &p.EasyApply,
		&p.ApplicantCount, &p.PostedAt, &p.JobCategory, &p.JobSubcategory,
		&p.ContentHash, &p.FirstSeenAt, &p.LastSeenAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindPostingByExternalID retrieves a posting by source-native ID.
func (db *DB) FindPostingByExternalID(ctx context.Context, source types.Source, externalID string) (*types.Posting, error) {
	p, err := scanPosting(db.pool.QueryRow(ctx,
		`SELECT `+postingColumns+` FROM job_postings
		 WHERE source = $1 AND external_job_id = $2`,
		source, externalID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find posting by external ID: %w", err)
	}
	return p, nil
}

// FindPostingByURLHash retrieves a posting by canonical URL hash. When both
// an ID-less and ID-ful row share the hash, the ID-less one wins so that
// URL-only observations keep merging into the row they created.
func (db *DB) FindPostingByURLHash(ctx context.Context, source types.Source, urlHash string) (*types.Posting, error) {
	p, err := scanPosting(db.pool.QueryRow(ctx,
		`SELECT `+postingColumns+` FROM job_postings
		 WHERE source = $1 AND canonical_url_hash = $2
		 ORDER BY (external_job_id IS NULL) DESC, last_seen_at DESC
		 LIMIT 1`,
		source, urlHash,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find posting by URL hash: %w", err)
	}
	return p, nil
}

// InsertPosting stores a new posting. A unique violation on either identity
// index comes back as ingest.ErrConflict so the merger can re-route to a
// merge.
func (db *DB) InsertPosting(ctx context.Context, p *types.Posting) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO job_postings (`+postingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		p.ID, p.Source, p.ExternalJobID, p.CanonicalURL, p.CanonicalURLHash,
		p.Title, p.Company, p.Location, p.Description, p.Modality, p.EasyApply,
		p.ApplicantCount, p.PostedAt, p.JobCategory, p.JobSubcategory,
		p.ContentHash, p.FirstSeenAt, p.LastSeenAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ingest.ErrConflict
		}
		return fmt.Errorf("failed to insert posting: %w", err)
	}
	return nil
}

// UpdatePosting overwrites a posting's mutable fields.
func (db *DB) UpdatePosting(ctx context.Context, p *types.Posting) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE job_postings SET
			external_job_id = $2, canonical_url = $3, canonical_url_hash = $4,
			title = $5, company = $6, location = $7, description = $8,
			modality = $9, easy_apply = $10, applicant_count = $11, posted_at = $12,
			job_category = $13, job_subcategory = $14, content_hash = $15,
			last_seen_at = $16
		 WHERE id = $1`,
		p.ID, p.ExternalJobID, p.CanonicalURL, p.CanonicalURLHash,
		p.Title, p.Company, p.Location, p.Description,
		p.Modality, p.EasyApply, p.ApplicantCount, p.PostedAt,
		p.JobCategory, p.JobSubcategory, p.ContentHash, p.LastSeenAt)
	if err != nil {
		return fmt.Errorf("failed to update posting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update posting: no row with id %s", p.ID)
	}
	return nil
}

// GetPosting retrieves a posting by ID.
func (db *DB) GetPosting(ctx context.Context, id uuid.UUID) (*types.Posting, error) {
	p, err := scanPosting(db.pool.QueryRow(ctx,
		`SELECT `+postingColumns+` FROM job_postings WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get posting: %w", err)
	}
	return p, nil
}

var _ ingest.PostingStore = (*DB)(nil)
