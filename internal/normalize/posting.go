package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/jonathan/jobscout/internal/types"
)

// Posting maps a raw posting into its canonical shape. It never fails: any
// field that cannot be derived is left nil or unknown so one bad posting
// does not abort the rest of the batch. The result carries no ID and no
// seen timestamps; the merger assigns those.
func Posting(raw types.RawPosting, now time.Time) types.Posting {
	canonicalURL := CanonicalURL(raw.URL)

	p := types.Posting{
		Source:       raw.Source,
		CanonicalURL: canonicalURL,
		Title:        strings.TrimSpace(raw.Title),
		Description:  strings.TrimSpace(raw.Description),
		Modality:     types.ModalityUnknown,
	}
	if canonicalURL != "" {
		p.CanonicalURLHash = HashURL(canonicalURL)
	}

	externalID := strings.TrimSpace(raw.ExternalJobID)
	if externalID == "" && raw.Source == types.SourceLinkedInPublic {
		externalID = ExtractLinkedInJobID(canonicalURL)
	}
	if externalID != "" {
		p.ExternalJobID = &externalID
	}

	if company := strings.TrimSpace(raw.Company); company != "" {
		p.Company = &company
	}
	if location := strings.TrimSpace(raw.Location); location != "" {
		p.Location = &location
	}

	if raw.PostedAt != nil {
		p.PostedAt = raw.PostedAt
	} else {
		p.PostedAt = ParsePostedAt(raw.PostedText, now)
	}

	if count, ok := ParseApplicantCount(raw.ApplicantText); ok {
		p.ApplicantCount = &count
	}

	detectionText := raw.CardText + " " + raw.Description + " " + raw.Location
	p.Modality = DetectModality(detectionText)
	p.EasyApply = DetectEasyApply(detectionText)

	category, subcategory := Classify(p.Title, p.Description)
	p.JobCategory = &category
	p.JobSubcategory = &subcategory

	p.ContentHash = ContentHash(&p)
	return p
}

// ContentHash fingerprints the fields the LLM evaluation depends on. A
// re-run skips re-analysis while the hash is unchanged.
func ContentHash(p *types.Posting) string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(p.Title)),
		strings.ToLower(strings.TrimSpace(deref(p.Company))),
		strings.ToLower(strings.TrimSpace(deref(p.Location))),
		strings.ToLower(strings.TrimSpace(p.Description)),
		strings.ToLower(string(p.Modality)),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
