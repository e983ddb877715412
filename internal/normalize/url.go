// Package normalize maps raw postings from untrusted sources into canonical,
// deduplicatable postings. All functions are pure: a field that cannot be
// derived is left unknown rather than failing the batch.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var multiSlash = regexp.MustCompile(`/+`)

// Tracking query parameters stripped during URL canonicalization.
var trackingParams = []string{
	"gclid", "fbclid", "msclkid", "mc_cid", "mc_eid", "mkt_tok",
	"refid", "trackingid", "trk",
}

// CanonicalURL normalizes a posting URL so that the same posting observed
// through different links resolves to the same string: default scheme,
// lowercased scheme and host, tracking parameters and fragment removed,
// remaining query sorted, duplicate and trailing slashes collapsed.
// Returns "" when the URL is empty or unparseable.
func CanonicalURL(raw string) string {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return ""
	}
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + strings.TrimLeft(candidate, "/")
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" {
		return ""
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimRight(multiSlash.ReplaceAllString(u.Path, "/"), "/")

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") {
			q.Del(k)
			continue
		}
		for _, t := range trackingParams {
			if lk == t {
				q.Del(k)
				break
			}
		}
	}
	for k := range q {
		sort.Strings(q[k])
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// HashURL returns the stable identity hash of a canonical URL.
func HashURL(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

var linkedInJobIDPattern = regexp.MustCompile(`/jobs/view/(\d+)`)

// ExtractLinkedInJobID pulls the numeric job ID out of a LinkedIn posting
// URL, or returns "" when the URL does not carry one.
func ExtractLinkedInJobID(rawURL string) string {
	m := linkedInJobIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}
