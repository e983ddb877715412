package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/jobscout/internal/types"
)

const applicantKeywords = `(?:applicants?|postulantes?|solicitantes?|candidatos?)`

var (
	countBeforeKeyword = regexp.MustCompile(`(?i)(\d[\d\s.,kK]*)\s*\+?\s*` + applicantKeywords)
	countAfterKeyword  = regexp.MustCompile(`(?i)` + applicantKeywords + `\D*(\d[\d\s.,kK]*)`)
	amongFirstPattern  = regexp.MustCompile(`(?i)(?:among\s+first|first|primeros?|entre\s+los\s+primeros)\D*(\d[\d\s.,kK]*)`)
	plainCountPattern  = regexp.MustCompile(`^\d[\d\s.,kK]*\+?$`)
)

// ParseApplicantCount extracts an applicant count from source text like
// "25 applicants" or "Sé de los primeros 10 postulantes". The second return
// is false when the text carries no recognizable count.
func ParseApplicantCount(raw string) (int, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return 0, false
	}

	for _, re := range []*regexp.Regexp{countBeforeKeyword, countAfterKeyword, amongFirstPattern} {
		if m := re.FindStringSubmatch(cleaned); m != nil {
			return parseCountToken(m[1]), true
		}
	}

	// Plain numeric sources only; avoids pulling random numbers out of
	// full descriptions.
	if plainCountPattern.MatchString(cleaned) {
		return parseCountToken(cleaned), true
	}
	return 0, false
}

var nonDigits = regexp.MustCompile(`\D`)

func parseCountToken(value string) int {
	token := strings.TrimSuffix(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), " ", ""), "+")
	if token == "" {
		return 0
	}
	if strings.HasSuffix(token, "k") {
		base := strings.ReplaceAll(strings.TrimSuffix(token, "k"), ",", ".")
		if f, err := strconv.ParseFloat(base, 64); err == nil {
			return int(f * 1000)
		}
	}
	digits := nonDigits.ReplaceAllString(token, "")
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

var relativeTimePattern = regexp.MustCompile(`(\d+)\s*(minute|minuto|hour|hora|day|dia|week|semana|month|mes)`)

// ParsePostedAt resolves a relative-time hint such as "3 hours ago" or
// "hace 2 dias" to an absolute timestamp relative to now. Returns nil when
// the text carries no recognizable duration.
func ParsePostedAt(raw string, now time.Time) *time.Time {
	low := strings.ToLower(strings.TrimSpace(raw))
	if low == "" {
		return nil
	}
	m := relativeTimePattern.FindStringSubmatch(low)
	if m == nil {
		return nil
	}
	qty, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}

	var d time.Duration
	switch {
	case strings.HasPrefix(m[2], "minut"):
		d = time.Duration(qty) * time.Minute
	case strings.HasPrefix(m[2], "hour"), strings.HasPrefix(m[2], "hora"):
		d = time.Duration(qty) * time.Hour
	case strings.HasPrefix(m[2], "day"), strings.HasPrefix(m[2], "dia"):
		d = time.Duration(qty) * 24 * time.Hour
	case strings.HasPrefix(m[2], "week"), strings.HasPrefix(m[2], "semana"):
		d = time.Duration(qty) * 7 * 24 * time.Hour
	case strings.HasPrefix(m[2], "month"), strings.HasPrefix(m[2], "mes"):
		d = time.Duration(qty) * 30 * 24 * time.Hour
	default:
		return nil
	}

	t := now.Add(-d)
	return &t
}

// DetectModality classifies the work arrangement from posting text.
func DetectModality(text string) types.Modality {
	low := strings.ToLower(text)
	switch {
	case strings.Contains(low, "remote") || strings.Contains(low, "remoto"):
		return types.ModalityRemote
	case strings.Contains(low, "hybrid") || strings.Contains(low, "hibrid") || strings.Contains(low, "híbrido"):
		return types.ModalityHybrid
	case strings.Contains(low, "on-site") || strings.Contains(low, "onsite") || strings.Contains(low, "presencial"):
		return types.ModalityOnsite
	}
	return types.ModalityUnknown
}

// DetectEasyApply reports whether the posting advertises in-portal
// application.
func DetectEasyApply(text string) bool {
	low := strings.ToLower(text)
	return strings.Contains(low, "easy apply") || strings.Contains(low, "solicitud sencilla")
}
