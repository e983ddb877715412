// Package sources defines the job source connector interface and the
// registry of supported sources. Connectors return raw postings only;
// normalization and persistence are the caller's concern.
package sources

import (
	"context"
	"errors"
	"strings"

	"github.com/jonathan/jobscout/internal/types"
)

// ErrSourceUnavailable indicates the source rejected or failed the request
// after retries. Callers treat it as a per-source failure, not a run failure.
var ErrSourceUnavailable = errors.New("source unavailable")

// Query describes one search against a source.
type Query struct {
	Keywords        string
	Location        string
	TimeWindowHours int
	Limit           int
}

// Connector fetches raw postings from one external source.
type Connector interface {
	// Source identifies which source this connector serves.
	Source() types.Source
	// FetchJobs runs one query and returns raw postings. Implementations
	// retry transient failures internally and return ErrSourceUnavailable
	// when the source cannot be reached.
	FetchJobs(ctx context.Context, query Query) ([]types.RawPosting, error)
}

// SourceStatus describes how complete a connector is.
type SourceStatus string

const (
	StatusSupported SourceStatus = "supported"
	StatusPlanned   SourceStatus = "planned"
)

// Spec describes a registered source.
type Spec struct {
	Source types.Source
	Status SourceStatus
	Note   string
}

// Registry lists every known source. Planned entries are accepted in search
// configs and skipped at run time.
var Registry = []Spec{
	{Source: types.SourceLinkedInPublic, Status: StatusSupported},
	{Source: types.SourceBNEPublic, Status: StatusPlanned, Note: "bolsa nacional de empleo listing markup pending"},
	{Source: types.SourceEmpleosPublicos, Status: StatusPlanned, Note: "public sector portal paginates via form posts"},
}

// Lookup returns the spec for a source.
func Lookup(source types.Source) (Spec, bool) {
	for _, spec := range Registry {
		if spec.Source == source {
			return spec, true
		}
	}
	return Spec{}, false
}

// NormalizeSources validates and deduplicates a list of source names,
// defaulting to every registered source when the list is empty. Unknown
// names are dropped.
func NormalizeSources(names []string) []types.Source {
	if len(names) == 0 {
		out := make([]types.Source, 0, len(Registry))
		for _, spec := range Registry {
			out = append(out, spec.Source)
		}
		return out
	}

	seen := make(map[types.Source]bool)
	var out []types.Source
	for _, name := range names {
		source := types.Source(strings.ToLower(strings.TrimSpace(name)))
		if !source.Valid() || seen[source] {
			continue
		}
		seen[source] = true
		out = append(out, source)
	}
	return out
}
