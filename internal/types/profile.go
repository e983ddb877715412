package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExperienceEntry is one position from a CV.
type ExperienceEntry struct {
	Role     string `json:"role"`
	Company  string `json:"company,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// Line renders the entry the way it appeared on the CV, for tokenization and
// query seeding.
func (e ExperienceEntry) Line() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.Role, e.Company, e.Duration} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, " - ")
}

// CandidateProfile is the structured profile derived from one CV document.
// It is immutable once computed; re-analysis replaces the row for the same
// CVKey (latest wins).
type CandidateProfile struct {
	ID         uuid.UUID         `json:"id"`
	CVKey      string            `json:"cv_key"` // stable key of the CV document this profile belongs to
	Skills     []string          `json:"skills"`
	Experience []ExperienceEntry `json:"experience"`
	Education  []string          `json:"education"`
	Languages  []string          `json:"languages"`

	// Optional enrichment from profile analysis; empty when only the
	// heuristic extraction ran.
	TargetRoles        []string `json:"target_roles"`
	Seniority          string   `json:"seniority"`
	Industries         []string `json:"industries"`
	RecommendedQueries []string `json:"recommended_queries"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExperienceLines returns the experience entries as CV-style lines.
func (p *CandidateProfile) ExperienceLines() []string {
	lines := make([]string, 0, len(p.Experience))
	for _, e := range p.Experience {
		if l := e.Line(); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
