// Package types defines the core domain types shared across the job search
// pipeline: candidate profiles, raw and canonical postings, search
// configurations and scored results.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source identifies a job portal a posting was observed on.
type Source string

// Supported portal identifiers. Connectors register under these IDs; any
// other value is rejected at the search config boundary.
const (
	SourceLinkedInPublic  Source = "linkedin_public"
	SourceBNEPublic       Source = "bne_public"
	SourceEmpleosPublicos Source = "empleos_publicos_public"
)

// Valid reports whether s is one of the allowed portal identifiers.
func (s Source) Valid() bool {
	switch s {
	case SourceLinkedInPublic, SourceBNEPublic, SourceEmpleosPublicos:
		return true
	}
	return false
}

// Modality describes the work arrangement advertised by a posting.
type Modality string

// Modality values. Unknown is used when the posting text gives no signal.
const (
	ModalityRemote  Modality = "remote"
	ModalityHybrid  Modality = "hybrid"
	ModalityOnsite  Modality = "onsite"
	ModalityUnknown Modality = "unknown"
)

// RawPosting is the untrusted output of a single source query. It is never
// persisted as-is; the normalizer maps it into a Posting.
type RawPosting struct {
	Source        Source
	ExternalJobID string // source-native ID, empty if the portal has none
	URL           string
	Title         string
	Company       string
	Location      string
	Description   string
	PostedText    string     // relative-time hint, e.g. "3 hours ago"
	PostedAt      *time.Time // absolute timestamp when the source provides one
	ApplicantText string     // raw applicant count text, e.g. "25 applicants"
	CardText      string     // surrounding card text used for modality / easy-apply detection
}

// Posting is the canonical, deduplicated form of a job posting. One row
// exists per identity key; postings are shared across search contexts.
type Posting struct {
	ID               uuid.UUID  `json:"id"`
	Source           Source     `json:"source"`
	ExternalJobID    *string    `json:"external_job_id"`
	CanonicalURL     string     `json:"canonical_url"`
	CanonicalURLHash string     `json:"-"`
	Title            string     `json:"title"`
	Company          *string    `json:"company"`
	Location         *string    `json:"location"`
	Description      string     `json:"description"`
	Modality         Modality   `json:"modality"`
	EasyApply        bool       `json:"easy_apply"`
	ApplicantCount   *int       `json:"applicant_count"`
	PostedAt         *time.Time `json:"posted_at"`
	JobCategory      *string    `json:"job_category"`
	JobSubcategory   *string    `json:"job_subcategory"`
	ContentHash      string     `json:"-"`
	FirstSeenAt      time.Time  `json:"first_seen_at"`
	LastSeenAt       time.Time  `json:"last_seen_at"`
}

// IdentityKey returns the deduplication key for the posting: the source-native
// ID when present, otherwise the canonical URL hash. Empty when the posting
// carries neither and cannot be deduplicated safely.
func (p *Posting) IdentityKey() string {
	if p.ExternalJobID != nil && *p.ExternalJobID != "" {
		return fmt.Sprintf("%s::id::%s", p.Source, *p.ExternalJobID)
	}
	if p.CanonicalURLHash != "" {
		return fmt.Sprintf("%s::url::%s", p.Source, p.CanonicalURLHash)
	}
	return ""
}

// PostedAgeHours returns the posting age in hours relative to now, or nil
// when the posting time is unknown. Never negative.
func (p *Posting) PostedAgeHours(now time.Time) *float64 {
	if p.PostedAt == nil {
		return nil
	}
	age := now.Sub(*p.PostedAt).Hours()
	if age < 0 {
		age = 0
	}
	return &age
}
