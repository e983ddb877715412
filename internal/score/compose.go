// Package score composes the final ranking score for a posting from the
// deterministic match, an optional LLM fit value, recency and location
// proximity, and applies the applicant-count product rule.
package score

import (
	"strings"

	"github.com/jonathan/jobscout/internal/types"
)

// Weights of the hybrid formula, used when an LLM fit value is available.
const (
	hybridLLMWeight      = 0.55
	hybridMatchWeight    = 0.25
	hybridRecencyWeight  = 0.10
	hybridLocationWeight = 0.10
)

// Weights of the fallback formula, used when the LLM is disabled,
// unavailable, or failed for this posting.
const (
	fallbackMatchWeight    = 0.75
	fallbackRecencyWeight  = 0.15
	fallbackLocationWeight = 0.10
)

// ApplicantCountThreshold is the product rule: postings at or above this
// applicant count are excluded from the result set entirely.
const ApplicantCountThreshold = 100

// Input carries the pre-computed signals for one posting. MatchPercent is
// on the 0-100 scale; LLMFit, when present, is in [0,1].
type Input struct {
	MatchPercent  float64
	LLMFit        *float64
	RecencyScore  float64 // [0,1]
	LocationScore float64 // [0,1]
}

// Compose blends the inputs into the final score on the 0-100 scale. The
// formula is selected by LLM availability: with a fit value the LLM term
// dominates, otherwise the deterministic match carries the weight.
func Compose(in Input) float64 {
	matchNorm := clamp01(in.MatchPercent / 100)
	recency := clamp01(in.RecencyScore)
	location := clamp01(in.LocationScore)

	var value float64
	if in.LLMFit != nil {
		llm := clamp01(*in.LLMFit)
		value = hybridLLMWeight*llm +
			hybridMatchWeight*matchNorm +
			hybridRecencyWeight*recency +
			hybridLocationWeight*location
	} else {
		value = fallbackMatchWeight*matchNorm +
			fallbackRecencyWeight*recency +
			fallbackLocationWeight*location
	}

	return clamp01(value) * 100
}

// Excluded applies the applicant-count product rule against the posting's
// latest observation. An unknown count never excludes.
func Excluded(applicantCount *int) bool {
	return applicantCount != nil && *applicantCount >= ApplicantCountThreshold
}

// Recency maps a posting age to [0,1]: newer is higher, on a bounded step
// curve. Unknown age gets a neutral mid value, never zero and never the
// maximum.
func Recency(postedAgeHours *float64) float64 {
	if postedAgeHours == nil {
		return 0.30
	}
	age := *postedAgeHours
	switch {
	case age <= 1:
		return 1.0
	case age <= 3:
		return 0.85
	case age <= 8:
		return 0.70
	case age <= 24:
		return 0.55
	case age <= 72:
		return 0.40
	default:
		return 0.25
	}
}

// Location scores proximity of the posting to the requested city/country:
// 1.0 on a city match, 0.8 on a country match, 0.7 when the posting is
// remote or hybrid, and a low baseline otherwise. Never a hard exclusion.
func Location(location *string, modality types.Modality, city, country *string) float64 {
	loc := strings.ToLower(deref(location))
	cityWant := strings.ToLower(strings.TrimSpace(deref(city)))
	countryWant := strings.ToLower(strings.TrimSpace(deref(country)))

	if cityWant != "" && strings.Contains(loc, cityWant) {
		return 1.0
	}
	if countryWant != "" && strings.Contains(loc, countryWant) {
		return 0.8
	}
	if modality == types.ModalityRemote || modality == types.ModalityHybrid {
		return 0.7
	}
	return 0.4
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
