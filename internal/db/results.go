package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jobscout/internal/results"
	"github.com/jonathan/jobscout/internal/types"
)

// UpsertResult stores or refreshes the scoring of one posting for a search.
// A refreshed row keeps its checked flag and discovered_at so a user's
// triage survives re-runs; is_new is only ever set true by the insert arm.
func (db *DB) UpsertResult(ctx context.Context, r *types.SearchResult) error {
	reasons := r.FitReasons
	if reasons == nil {
		reasons = []string{}
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO search_results (search_id, posting_id, match_percent, llm_fit_score,
			final_score, fit_reasons, llm_status, analysis_hash, is_new, discovered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, NOW())
		 ON CONFLICT (search_id, posting_id) DO UPDATE SET
			match_percent = $3, llm_fit_score = $4, final_score = $5,
			fit_reasons = $6, llm_status = $7, analysis_hash = $8`,
		r.SearchID, r.PostingID, r.MatchPercent, r.LLMFitScore,
		r.FinalScore, reasons, r.LLMStatus, r.AnalysisHash)
	if err != nil {
		return fmt.Errorf("failed to upsert result: %w", err)
	}
	return nil
}

// MarkResultsSeen clears is_new on every result of a search. Runs call this
// first so only postings (re)discovered by the current run end up flagged new.
func (db *DB) MarkResultsSeen(ctx context.Context, searchID uuid.UUID) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE search_results SET is_new = FALSE WHERE search_id = $1`, searchID)
	if err != nil {
		return fmt.Errorf("failed to mark results seen: %w", err)
	}
	return nil
}

// GetResultAnalysis returns the stored analysis hash and LLM scoring for a
// search/posting pair, or nils when the pair is unknown.
func (db *DB) GetResultAnalysis(ctx context.Context, searchID, postingID uuid.UUID) (*types.SearchResult, error) {
	var r types.SearchResult
	err := db.pool.QueryRow(ctx,
		`SELECT id, search_id, posting_id, match_percent, llm_fit_score, final_score,
			fit_reasons, llm_status, analysis_hash, is_new, checked, discovered_at
		 FROM search_results WHERE search_id = $1 AND posting_id = $2`,
		searchID, postingID,
	).Scan(&r.ID, &r.SearchID, &r.PostingID, &r.MatchPercent, &r.LLMFitScore,
		&r.FinalScore, &r.FitReasons, &r.LLMStatus, &r.AnalysisHash,
		&r.IsNew, &r.Checked, &r.DiscoveredAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return &r, nil
}

// ListResultRows returns every result of a search joined to its posting.
// Filtering, sorting, and pagination happen in the results package.
func (db *DB) ListResultRows(ctx context.Context, searchID uuid.UUID) ([]results.Row, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT r.id, r.search_id, r.posting_id, r.match_percent, r.llm_fit_score,
			r.final_score, r.fit_reasons, r.llm_status, r.analysis_hash,
			r.is_new, r.checked, r.discovered_at,
			p.id, p.source, p.external_job_id, p.canonical_url, p.canonical_url_hash,
			p.title, p.company, p.location, p.description, p.modality, p.easy_apply,
			p.applicant_count, p.posted_at, p.job_category, p.job_subcategory,
			p.content_hash, p.first_seen_at, p.last_seen_at
		 FROM search_results r
		 JOIN job_postings p ON p.id = r.posting_id
		 WHERE r.search_id = $1`,
		searchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var out []results.Row
	for rows.Next() {
		var row results.Row
		r := &row.Result
		p := &row.Posting
		err := rows.Scan(&r.ID, &r.SearchID, &r.PostingID, &r.MatchPercent, &r.LLMFitScore,
			&r.FinalScore, &r.FitReasons, &r.LLMStatus, &r.AnalysisHash,
			&r.IsNew, &r.Checked, &r.DiscoveredAt,
			&p.ID, &p.Source, &p.ExternalJobID, &p.CanonicalURL, &p.CanonicalURLHash,
			&p.Title, &p.Company, &p.Location, &p.Description, &p.Modality, &p.EasyApply,
			&p.ApplicantCount, &p.PostedAt, &p.JobCategory, &p.JobSubcategory,
			&p.ContentHash, &p.FirstSeenAt, &p.LastSeenAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SetResultChecked marks a result as triaged. Checking also drops the new
// flag so the result stops counting toward the unread badge.
func (db *DB) SetResultChecked(ctx context.Context, resultID uuid.UUID, checked bool) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE search_results SET checked = $2, is_new = CASE WHEN $2 THEN FALSE ELSE is_new END
		 WHERE id = $1`,
		resultID, checked)
	if err != nil {
		return fmt.Errorf("failed to set result checked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to set result checked: no row with id %s", resultID)
	}
	return nil
}

// ClearResults deletes every result of a search.
func (db *DB) ClearResults(ctx context.Context, searchID uuid.UUID) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM search_results WHERE search_id = $1`, searchID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear results: %w", err)
	}
	return tag.RowsAffected(), nil
}
