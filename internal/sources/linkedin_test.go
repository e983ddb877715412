package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobscout/internal/types"
)

const sampleCardHTML = `
<ul>
  <li>
    <div class="base-card">
      <a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/3944021567?refId=abc&trackingId=xyz">
        <span class="sr-only">Senior Backend Engineer</span>
      </a>
      <div class="base-search-card__info">
        <h3 class="base-search-card__title">Senior Backend Engineer</h3>
        <h4 class="base-search-card__subtitle"><a href="#">Globant</a></h4>
        <div class="base-search-card__metadata">
          <span class="job-search-card__location">Santiago, Chile</span>
          <time class="job-search-card__listdate" datetime="2026-08-28">1 day ago</time>
        </div>
      </div>
    </div>
  </li>
  <li>
    <div class="base-card">
      <a class="base-card__full-link" href="https://cl.linkedin.com/jobs/view/data-analyst-at-falabella-3944099999">
        <span class="sr-only">Data Analyst</span>
      </a>
      <div class="base-search-card__info">
        <h3 class="base-search-card__title">Data Analyst</h3>
        <h4 class="base-search-card__subtitle"><a href="#">Falabella</a></h4>
        <div class="base-search-card__metadata">
          <span class="job-search-card__location">Remote</span>
          <time>3 hours ago</time>
        </div>
      </div>
    </div>
  </li>
  <li><div class="base-card">no link here</div></li>
</ul>`

func TestParseLinkedInCards(t *testing.T) {
	postings, err := parseLinkedInCards(sampleCardHTML)
	require.NoError(t, err)
	require.Len(t, postings, 2)

	first := postings[0]
	assert.Equal(t, types.SourceLinkedInPublic, first.Source)
	assert.Equal(t, "Senior Backend Engineer", first.Title)
	assert.Equal(t, "Globant", first.Company)
	assert.Equal(t, "Santiago, Chile", first.Location)
	assert.Equal(t, "3944021567", first.ExternalJobID)
	require.NotNil(t, first.PostedAt)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), *first.PostedAt)
	assert.Empty(t, first.PostedText)

	second := postings[1]
	assert.Equal(t, "Data Analyst", second.Title)
	assert.Equal(t, "Remote", second.Location)
	// Slug-style view URLs carry the numeric ID as a suffix, which the
	// /jobs/view/(\d+) pattern does not match. Identity falls back to URL.
	assert.Empty(t, second.ExternalJobID)
	assert.Nil(t, second.PostedAt)
	assert.Equal(t, "3 hours ago", second.PostedText)
}

func TestParseLinkedInCards_EmptyFragment(t *testing.T) {
	postings, err := parseLinkedInCards("<ul></ul>")
	require.NoError(t, err)
	assert.Empty(t, postings)
}

func TestBuildSearchURL(t *testing.T) {
	c := NewLinkedInConnector()
	u := c.buildSearchURL(Query{Keywords: "data engineer", Location: "Chile", TimeWindowHours: 24}, 25)

	assert.Contains(t, u, "keywords=data+engineer")
	assert.Contains(t, u, "location=Chile")
	assert.Contains(t, u, "f_TPR=r86400")
	assert.Contains(t, u, "start=25")
}

func TestBuildSearchURL_FirstPageOmitsStart(t *testing.T) {
	c := NewLinkedInConnector()
	u := c.buildSearchURL(Query{Keywords: "go"}, 0)

	assert.NotContains(t, u, "start=")
	assert.NotContains(t, u, "f_TPR")
}

const sampleDetailHTML = `
<section class="core-section-container">
  <h2 class="top-card-layout__title">Senior Backend Engineer</h2>
  <figcaption class="num-applicants__caption">Over 200 applicants</figcaption>
  <div class="show-more-less-html__markup">
    We build data pipelines with Python and SQL on a fully remote team.
  </div>
</section>`

// testConnector wires a connector at a test server, routing search and
// detail requests to separate counters.
func testConnector(t *testing.T, search, detail http.HandlerFunc) (*LinkedInConnector, *atomic.Int32, *atomic.Int32) {
	t.Helper()
	var searchCalls, detailCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		searchCalls.Add(1)
		search(w, r)
	})
	mux.HandleFunc("/jobPosting/", func(w http.ResponseWriter, r *http.Request) {
		detailCalls.Add(1)
		detail(w, r)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c := NewLinkedInConnector()
	c.baseURL = server.URL + "/search"
	c.detailURL = server.URL + "/jobPosting/"
	c.httpClient = server.Client()
	c.baseBackoff = 2 * time.Millisecond
	return c, &searchCalls, &detailCalls
}

func serveHTML(html string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(html))
	}
}

func TestFetchJobs_RetriesTransientStatus(t *testing.T) {
	var attempts atomic.Int32
	c, searchCalls, _ := testConnector(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(sampleCardHTML))
	}, serveHTML(sampleDetailHTML))

	postings, err := c.FetchJobs(context.Background(), Query{Keywords: "engineer", Limit: 25})
	require.NoError(t, err)
	assert.Len(t, postings, 2)
	assert.GreaterOrEqual(t, searchCalls.Load(), int32(2))
}

func TestFetchJobs_PermanentStatusFailsFast(t *testing.T) {
	c, searchCalls, detailCalls := testConnector(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}, serveHTML(sampleDetailHTML))

	_, err := c.FetchJobs(context.Background(), Query{Keywords: "engineer", Limit: 25})
	require.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Equal(t, int32(1), searchCalls.Load())
	assert.Equal(t, int32(0), detailCalls.Load())
}

func TestFetchJobs_StopsOnShortPage(t *testing.T) {
	// 2 cards, well under a full page.
	c, searchCalls, _ := testConnector(t, serveHTML(sampleCardHTML), serveHTML(sampleDetailHTML))

	postings, err := c.FetchJobs(context.Background(), Query{Keywords: "engineer"})
	require.NoError(t, err)
	assert.Len(t, postings, 2)
	assert.Equal(t, int32(1), searchCalls.Load())
}

func TestFetchJobs_EnrichesWithDetailPage(t *testing.T) {
	c, _, detailCalls := testConnector(t, serveHTML(sampleCardHTML), serveHTML(sampleDetailHTML))

	postings, err := c.FetchJobs(context.Background(), Query{Keywords: "engineer"})
	require.NoError(t, err)
	require.Len(t, postings, 2)

	// The card with an extractable job ID gets the detail body.
	assert.Contains(t, postings[0].Description, "Python and SQL")
	assert.Equal(t, "Over 200 applicants", postings[0].ApplicantText)
	// The slug-style card has no ID, so no detail request is made for it.
	assert.Empty(t, postings[1].Description)
	assert.Equal(t, int32(1), detailCalls.Load())
}

func TestFetchJobs_DetailFailureKeepsCardData(t *testing.T) {
	c, _, detailCalls := testConnector(t, serveHTML(sampleCardHTML), func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	postings, err := c.FetchJobs(context.Background(), Query{Keywords: "engineer"})
	require.NoError(t, err)
	require.Len(t, postings, 2)
	assert.Equal(t, "Senior Backend Engineer", postings[0].Title)
	assert.Empty(t, postings[0].Description)
	assert.Equal(t, int32(1), detailCalls.Load())
}

func TestParseLinkedInDetail(t *testing.T) {
	description, applicantText := parseLinkedInDetail(sampleDetailHTML)
	assert.Equal(t, "We build data pipelines with Python and SQL on a fully remote team.", description)
	assert.Equal(t, "Over 200 applicants", applicantText)

	// Without the expected markup the whole text stands in, and applicant
	// text is only kept when it plausibly mentions applicants.
	description, applicantText = parseLinkedInDetail("<div>Plain posting body</div>")
	assert.Equal(t, "Plain posting body", description)
	assert.Empty(t, applicantText)
}

func TestNormalizeSources(t *testing.T) {
	t.Run("empty defaults to all", func(t *testing.T) {
		out := NormalizeSources(nil)
		assert.Len(t, out, len(Registry))
	})

	t.Run("drops unknown and duplicates", func(t *testing.T) {
		out := NormalizeSources([]string{"linkedin_public", "LINKEDIN_PUBLIC", "myspace_jobs", " bne_public "})
		assert.Equal(t, []types.Source{types.SourceLinkedInPublic, types.SourceBNEPublic}, out)
	})
}

func TestLookup(t *testing.T) {
	spec, ok := Lookup(types.SourceLinkedInPublic)
	require.True(t, ok)
	assert.Equal(t, StatusSupported, spec.Status)

	_, ok = Lookup(types.Source("unknown"))
	assert.False(t, ok)
}
