package sources

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/jobscout/internal/normalize"
	"github.com/jonathan/jobscout/internal/types"
)

const (
	linkedInGuestSearchURL = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"
	linkedInJobDetailURL   = "https://www.linkedin.com/jobs-guest/jobs/api/jobPosting/"
	linkedInPageSize       = 25
	linkedInMaxPages       = 4
	linkedInMaxRetries     = 3
	linkedInBaseBackoff    = 2 * time.Second
	linkedInUserAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

var linkedInTransientStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// LinkedInConnector scrapes the LinkedIn public guest job search, which
// serves paginated HTML fragments of job cards without authentication.
type LinkedInConnector struct {
	httpClient  *http.Client
	baseURL     string
	detailURL   string
	baseBackoff time.Duration
}

// NewLinkedInConnector creates a connector with sane HTTP defaults.
func NewLinkedInConnector() *LinkedInConnector {
	return &LinkedInConnector{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     linkedInGuestSearchURL,
		detailURL:   linkedInJobDetailURL,
		baseBackoff: linkedInBaseBackoff,
	}
}

// Source identifies this connector.
func (c *LinkedInConnector) Source() types.Source {
	return types.SourceLinkedInPublic
}

// FetchJobs pages through guest search results for one query.
func (c *LinkedInConnector) FetchJobs(ctx context.Context, query Query) ([]types.RawPosting, error) {
	limit := query.Limit
	if limit <= 0 || limit > linkedInPageSize*linkedInMaxPages {
		limit = linkedInPageSize * linkedInMaxPages
	}

	var postings []types.RawPosting
	for start := 0; start < limit; start += linkedInPageSize {
		pageURL := c.buildSearchURL(query, start)
		body, err := c.fetchWithRetry(ctx, pageURL)
		if err != nil {
			if len(postings) > 0 {
				// Keep what earlier pages already produced.
				return postings, nil
			}
			return nil, err
		}

		page, err := parseLinkedInCards(body)
		if err != nil {
			return postings, fmt.Errorf("failed to parse job cards: %w", err)
		}
		if len(page) == 0 {
			break
		}
		postings = append(postings, page...)
		if len(page) < linkedInPageSize {
			break
		}
	}

	if len(postings) > limit {
		postings = postings[:limit]
	}
	c.enrichWithDetails(ctx, postings)
	return postings, nil
}

// enrichWithDetails fetches the guest job-posting fragment per job to fill
// in the description and applicant count the search cards lack. A failed
// detail fetch stops further detail requests; the card data already
// gathered stays usable.
func (c *LinkedInConnector) enrichWithDetails(ctx context.Context, postings []types.RawPosting) {
	for i := range postings {
		if postings[i].ExternalJobID == "" {
			continue
		}
		body, err := c.fetchWithRetry(ctx, c.detailURL+postings[i].ExternalJobID)
		if err != nil {
			return
		}
		description, applicantText := parseLinkedInDetail(body)
		if description != "" {
			postings[i].Description = description
		}
		if applicantText != "" {
			postings[i].ApplicantText = applicantText
		}
	}
}

func (c *LinkedInConnector) buildSearchURL(query Query, start int) string {
	params := url.Values{}
	params.Set("keywords", query.Keywords)
	if query.Location != "" {
		params.Set("location", query.Location)
	}
	if query.TimeWindowHours > 0 {
		params.Set("f_TPR", fmt.Sprintf("r%d", query.TimeWindowHours*3600))
	}
	if start > 0 {
		params.Set("start", fmt.Sprintf("%d", start))
	}
	return c.baseURL + "?" + params.Encode()
}

func (c *LinkedInConnector) fetchWithRetry(ctx context.Context, pageURL string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= linkedInMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.baseBackoff * time.Duration(1<<(attempt-1))
			backoff += time.Duration(rand.Int63n(int64(c.baseBackoff / 2)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		body, status, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			continue
		}
		if status == http.StatusOK {
			return body, nil
		}
		if !linkedInTransientStatus[status] {
			return "", fmt.Errorf("%w: unexpected status %d", ErrSourceUnavailable, status)
		}
		lastErr = fmt.Errorf("status %d", status)
	}
	return "", fmt.Errorf("%w: %v", ErrSourceUnavailable, lastErr)
}

func (c *LinkedInConnector) fetchPage(ctx context.Context, pageURL string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", linkedInUserAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), resp.StatusCode, nil
}

// parseLinkedInCards extracts raw postings from a guest search HTML fragment.
// Each card is an <li> wrapping a base-card div with title, company, location
// and a relative posted-time element.
func parseLinkedInCards(html string) ([]types.RawPosting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var postings []types.RawPosting
	doc.Find("li").Each(func(_ int, card *goquery.Selection) {
		link := card.Find("a.base-card__full-link").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			// Some fragments use the older result-card markup.
			link = card.Find("a[href*='/jobs/view/']").First()
			href, ok = link.Attr("href")
			if !ok || href == "" {
				return
			}
		}

		title := cleanText(card.Find("h3.base-search-card__title").First().Text())
		if title == "" {
			title = cleanText(link.Text())
		}
		if title == "" {
			return
		}

		raw := types.RawPosting{
			Source:   types.SourceLinkedInPublic,
			URL:      href,
			Title:    title,
			Company:  cleanText(card.Find("h4.base-search-card__subtitle").First().Text()),
			Location: cleanText(card.Find("span.job-search-card__location").First().Text()),
			CardText: cleanText(card.Text()),
		}
		raw.ExternalJobID = normalize.ExtractLinkedInJobID(href)

		timeEl := card.Find("time").First()
		if datetime, ok := timeEl.Attr("datetime"); ok {
			if t, err := time.Parse("2006-01-02", datetime); err == nil {
				raw.PostedAt = &t
			}
		}
		if raw.PostedAt == nil {
			raw.PostedText = cleanText(timeEl.Text())
		}

		postings = append(postings, raw)
	})

	return postings, nil
}

// parseLinkedInDetail extracts the description body and the applicant-count
// caption from a guest job-posting fragment. Either falls back to the whole
// document text when the expected markup is absent.
func parseLinkedInDetail(html string) (description, applicantText string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}

	description = cleanText(doc.Find(".show-more-less-html__markup").First().Text())
	if description == "" {
		description = cleanText(doc.Text())
	}

	applicantText = cleanText(doc.Find(".num-applicants__caption").First().Text())
	if applicantText == "" {
		full := cleanText(doc.Text())
		if strings.Contains(strings.ToLower(full), "applicant") {
			applicantText = full
		}
	}
	return description, applicantText
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
