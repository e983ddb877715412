package types

import (
	"time"

	"github.com/google/uuid"
)

// SearchConfig is a persisted search context: the profile plus the query
// parameters a run executes against.
type SearchConfig struct {
	ID              uuid.UUID `json:"id"`
	ProfileID       uuid.UUID `json:"profile_id"`
	Country         *string   `json:"country"`
	City            *string   `json:"city"`
	TimeWindowHours int       `json:"time_window_hours"`
	Keywords        []string  `json:"keywords"`
	Sources         []Source  `json:"sources"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// LLMStatus values recorded on a search result.
const (
	LLMStatusOK       = "ok"
	LLMStatusFallback = "fallback"
)

// SearchResult associates a search context with one canonical posting and
// carries the computed scores. Exactly one row exists per (search, posting)
// pair; re-running a search updates the row in place.
type SearchResult struct {
	ID           uuid.UUID `json:"id"`
	SearchID     uuid.UUID `json:"search_id"`
	PostingID    uuid.UUID `json:"posting_id"`
	MatchPercent float64   `json:"match_percent"` // deterministic match, 0-100
	LLMFitScore  *float64  `json:"llm_fit_score"` // LLM fit in [0,1], nil when no LLM analysis exists
	FinalScore   float64   `json:"final_score"`   // blended score, 0-100
	FitReasons   []string  `json:"fit_reasons"`
	LLMStatus    string    `json:"llm_status"` // LLMStatusOK or LLMStatusFallback
	AnalysisHash *string   `json:"-"`          // content hash the last LLM analysis was computed for
	IsNew        bool      `json:"is_new"`
	Checked      bool      `json:"checked"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Run trigger values.
const (
	RunTriggerManual    = "manual"
	RunTriggerScheduled = "scheduled"
)

// Run status values.
const (
	RunStatusRunning = "running"
	RunStatusOK      = "ok"
	RunStatusError   = "error"
)

// SearchRun records one execution of a search context together with its
// observability counters.
type SearchRun struct {
	ID         uuid.UUID  `json:"id"`
	SearchID   uuid.UUID  `json:"search_id"`
	Trigger    string     `json:"trigger"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Status     string     `json:"status"`
	TotalFound int        `json:"total_found"` // postings that survived dedup and the exclusion rule
	NewFound   int        `json:"new_found"`   // result rows created for the first time
	Skipped    int        `json:"skipped"`     // unidentifiable postings rejected
	Fallback   int        `json:"fallback"`    // postings scored without an LLM fit value
	Excluded   int        `json:"excluded"`    // postings dropped by the applicant-count rule
	Error      *string    `json:"error"`
}
