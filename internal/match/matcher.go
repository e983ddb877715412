// Package match computes the deterministic textual fit between a candidate
// profile and a job posting. It has no external dependencies, never fails,
// and is order-independent over the profile's list fields.
package match

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jonathan/jobscout/internal/types"
)

// Component weights. Skills dominate; experience and education refine.
const (
	skillWeight      = 0.5
	experienceWeight = 0.3
	educationWeight  = 0.2

	// A skill that only appears in the description counts less than one
	// found in the title.
	titleHitWeight       = 1.0
	descriptionHitWeight = 0.6

	maxReasons = 5
)

// skillTokens is the fixed vocabulary of skill terms recognized in posting
// text. Multi-word entries are matched as substrings.
var skillTokens = []string{
	"python", "java", "javascript", "typescript", "go", "sql", "react",
	"node", "aws", "azure", "gcp", "docker", "kubernetes", "terraform",
	"power bi", "tableau", "excel", "fastapi", "django", "spring",
	"postgresql", "mysql", "redis", "kafka", "linux", "git",
}

// Match is the result of scoring one posting against one profile.
type Match struct {
	Percent       float64 // 0-100
	Reasons       []string
	MatchedSkills []string
	Breakdown     Breakdown
}

// Breakdown exposes the component ratios (each 0-1) behind the percent.
type Breakdown struct {
	Skills     float64
	Experience float64
	Education  float64
}

// Score computes the deterministic match between profile and posting.
// Total: any input, including empty profiles and postings, yields a bounded
// result.
func Score(profile *types.CandidateProfile, posting *types.Posting) Match {
	title := strings.ToLower(posting.Title)
	description := strings.ToLower(posting.Description)
	jobText := title + " " + description
	jobTokens := tokenize([]string{jobText})

	profileSkills := tokenizeSkills(profile.Skills)
	profileExperience := tokenize(profile.ExperienceLines())
	profileEducation := tokenize(profile.Education)

	skillScore, matched := skillOverlap(profileSkills, title, description)
	experienceScore := ratio(countIntersection(profileExperience, jobTokens), float64(len(profileExperience)))
	educationScore := ratio(countIntersection(profileEducation, jobTokens), float64(len(profileEducation)))

	// Weighted average over the components that carry signal: a CV without
	// education lines should not be penalized on the education axis, and a
	// posting demanding no recognizable skills contributes no skill axis.
	weightSum := 0.0
	scoreSum := 0.0
	if skillScore > 0 || postingDemandsSkills(title, description) {
		weightSum += skillWeight
		scoreSum += skillWeight * skillScore
	}
	if len(profileExperience) > 0 {
		weightSum += experienceWeight
		scoreSum += experienceWeight * experienceScore
	}
	if len(profileEducation) > 0 {
		weightSum += educationWeight
		scoreSum += educationWeight * educationScore
	}

	percent := 0.0
	if weightSum > 0 {
		percent = clamp(scoreSum/weightSum*100, 0, 100)
	}

	return Match{
		Percent:       percent,
		Reasons:       buildReasons(matched, profile, title),
		MatchedSkills: matched,
		Breakdown: Breakdown{
			Skills:     skillScore,
			Experience: experienceScore,
			Education:  educationScore,
		},
	}
}

// postingDemandsSkills reports whether the posting text mentions any term
// from the skill vocabulary at all.
func postingDemandsSkills(title, description string) bool {
	for _, token := range skillTokens {
		if containsTerm(title, token) || containsTerm(description, token) {
			return true
		}
	}
	return false
}

// skillOverlap weighs the profile's skills against the skill terms the
// posting asks for. The denominator is the posting's demand, so a posting
// asking for three skills you all have scores 1.0 regardless of how many
// other skills the CV lists. Returns the matched skills sorted title hits
// first, then alphabetically.
func skillOverlap(profileSkills map[string]bool, title, description string) (float64, []string) {
	type hit struct {
		token   string
		inTitle bool
	}

	var demanded []hit
	for _, token := range skillTokens {
		inTitle := containsTerm(title, token)
		if inTitle || containsTerm(description, token) {
			demanded = append(demanded, hit{token: token, inTitle: inTitle})
		}
	}
	if len(demanded) == 0 {
		return 0, nil
	}

	totalWeight := 0.0
	matchedWeight := 0.0
	var matched []hit
	for _, h := range demanded {
		w := descriptionHitWeight
		if h.inTitle {
			w = titleHitWeight
		}
		totalWeight += w
		if profileSkills[h.token] {
			matchedWeight += w
			matched = append(matched, h)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].inTitle != matched[j].inTitle {
			return matched[i].inTitle
		}
		return matched[i].token < matched[j].token
	})
	names := make([]string, len(matched))
	for i, h := range matched {
		names[i] = h.token
	}

	return ratio(matchedWeight, totalWeight), names
}

func buildReasons(matchedSkills []string, profile *types.CandidateProfile, title string) []string {
	var reasons []string

	for _, role := range profile.TargetRoles {
		if role != "" && strings.Contains(title, strings.ToLower(role)) {
			reasons = append(reasons, fmt.Sprintf("Title matches target role %q", role))
			break
		}
	}

	for _, skill := range matchedSkills {
		if len(reasons) >= maxReasons {
			break
		}
		reasons = append(reasons, fmt.Sprintf("Posting asks for %s, which is on the CV", skill))
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "No direct skill overlap with the CV")
	}
	return reasons
}

var tokenPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.#-]{2,}`)

// tokenize extracts the token set of the given lines. Tokens are three or
// more characters, so noise words like "a" and "of" drop out.
func tokenize(lines []string) map[string]bool {
	tokens := make(map[string]bool)
	for _, line := range lines {
		for _, token := range tokenPattern.FindAllString(strings.ToLower(line), -1) {
			tokens[token] = true
		}
	}
	return tokens
}

// tokenizeSkills normalizes the profile's skill list against the fixed
// vocabulary, keeping multi-word skills like "power bi" intact.
func tokenizeSkills(skills []string) map[string]bool {
	out := make(map[string]bool)
	for _, s := range skills {
		low := strings.ToLower(strings.TrimSpace(s))
		if low == "" {
			continue
		}
		out[low] = true
		if low == "golang" {
			out["go"] = true
		}
	}
	return out
}

// containsTerm matches token as a whole term, so "go" does not match
// "category" and "java" does not match "javascript".
func containsTerm(text, token string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], token)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(token)
		beforeOK := start == 0 || isBoundary(text[start-1])
		afterOK := end == len(text) || isBoundary(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
		if idx >= len(text) {
			return false
		}
	}
}

func isBoundary(b byte) bool {
	return !(b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '+' || b == '#' || b == '.')
}

func countIntersection(a, b map[string]bool) float64 {
	n := 0.0
	for token := range a {
		if b[token] {
			n++
		}
	}
	return n
}

func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return clamp(num/den, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
