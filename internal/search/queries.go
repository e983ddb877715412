package search

import (
	"strings"

	"github.com/jonathan/jobscout/internal/types"
)

const (
	maxQueriesPerRun = 20
	defaultQuery     = "software engineer"
)

// BuildQueries derives the keyword queries a run fires at each source. The
// profile's explicit targets come first so they survive the cap, then the
// search's own keywords, then roles held in past positions. Queries are
// deduplicated case-insensitively and capped; an empty derivation falls back
// to a generic query rather than running nothing.
func BuildQueries(profile *types.CandidateProfile, search *types.SearchConfig) []string {
	var candidates []string
	candidates = append(candidates, profile.TargetRoles...)
	candidates = append(candidates, profile.RecommendedQueries...)
	candidates = append(candidates, search.Keywords...)
	for _, exp := range profile.Experience {
		candidates = append(candidates, exp.Role)
	}

	seen := make(map[string]bool)
	var queries []string
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		key := strings.ToLower(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, c)
		if len(queries) == maxQueriesPerRun {
			break
		}
	}

	if len(queries) == 0 {
		queries = []string{defaultQuery}
	}
	return queries
}

// queryLocation picks the location string sent to sources: the city when
// set, otherwise the country.
func queryLocation(search *types.SearchConfig) string {
	if search.City != nil && *search.City != "" {
		return *search.City
	}
	if search.Country != nil && *search.Country != "" {
		return *search.Country
	}
	return ""
}
