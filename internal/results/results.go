// Package results turns persisted search results into ranked, filtered,
// paginated views with facet counts. All selection logic lives here so the
// HTTP layer and storage stay thin.
package results

import (
	"sort"
	"strings"
	"time"

	"github.com/jonathan/jobscout/internal/score"
	"github.com/jonathan/jobscout/internal/types"
)

// Row pairs a search result with its posting.
type Row struct {
	Result  types.SearchResult
	Posting types.Posting
}

// Sort orders for result listings.
type Sort string

const (
	// SortNewest orders by when the posting first entered the system.
	SortNewest Sort = "newest"
	// SortBestFit orders by final score.
	SortBestFit Sort = "best_fit"
)

// ParseSort maps a query parameter to a sort order, defaulting to newest.
func ParseSort(s string) Sort {
	if Sort(strings.ToLower(strings.TrimSpace(s))) == SortBestFit {
		return SortBestFit
	}
	return SortNewest
}

// Filters narrows a result listing. Zero values mean "no constraint".
type Filters struct {
	OnlyNew           bool
	Source            string
	Category          string
	Subcategory       string
	Modality          string
	MaxPostedAgeHours *float64
	LocationContains  string
}

// Page is one page of a listing.
type Page struct {
	Items      []Row `json:"items"`
	Total      int   `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Select applies the crowded-posting exclusion, filters, sort, and
// pagination to rows. It never mutates the input slice.
func Select(rows []Row, filters Filters, sortBy Sort, page, pageSize int, now time.Time) Page {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}

	filtered := apply(rows, filters, filterAll, now)
	sortRows(filtered, sortBy)

	total := len(filtered)
	totalPages := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return Page{
		Items:      filtered[start:end],
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    end < total,
	}
}

// NewCount reports how many unchecked new rows survive the crowded-posting
// exclusion.
func NewCount(rows []Row) int {
	n := 0
	for _, row := range rows {
		if score.Excluded(row.Posting.ApplicantCount) {
			continue
		}
		if row.Result.IsNew && !row.Result.Checked {
			n++
		}
	}
	return n
}

func sortRows(rows []Row, sortBy Sort) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch sortBy {
		case SortBestFit:
			if a.Result.FinalScore != b.Result.FinalScore {
				return a.Result.FinalScore > b.Result.FinalScore
			}
			if !a.Posting.FirstSeenAt.Equal(b.Posting.FirstSeenAt) {
				return a.Posting.FirstSeenAt.After(b.Posting.FirstSeenAt)
			}
		default:
			if !a.Posting.FirstSeenAt.Equal(b.Posting.FirstSeenAt) {
				return a.Posting.FirstSeenAt.After(b.Posting.FirstSeenAt)
			}
			if a.Result.FinalScore != b.Result.FinalScore {
				return a.Result.FinalScore > b.Result.FinalScore
			}
		}
		return a.Result.ID.String() < b.Result.ID.String()
	})
}

// filterDimension identifies one filter axis, so facet counting can apply
// every filter except the axis being counted.
type filterDimension int

const (
	filterAll filterDimension = iota
	filterSource
	filterCategory
	filterSubcategory
	filterModality
	filterPosted
	filterLocation
)

func apply(rows []Row, f Filters, skip filterDimension, now time.Time) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if score.Excluded(row.Posting.ApplicantCount) {
			continue
		}
		if f.OnlyNew && (!row.Result.IsNew || row.Result.Checked) {
			continue
		}
		if skip != filterSource && f.Source != "" && string(row.Posting.Source) != f.Source {
			continue
		}
		if skip != filterCategory && f.Category != "" && deref(row.Posting.JobCategory) != f.Category {
			continue
		}
		if skip != filterSubcategory && f.Subcategory != "" && deref(row.Posting.JobSubcategory) != f.Subcategory {
			continue
		}
		if skip != filterModality && f.Modality != "" && string(row.Posting.Modality) != f.Modality {
			continue
		}
		if skip != filterPosted && f.MaxPostedAgeHours != nil {
			age := row.Posting.PostedAgeHours(now)
			if age == nil || *age > *f.MaxPostedAgeHours {
				continue
			}
		}
		if skip != filterLocation && f.LocationContains != "" {
			loc := strings.ToLower(deref(row.Posting.Location))
			if !strings.Contains(loc, strings.ToLower(f.LocationContains)) {
				continue
			}
		}
		out = append(out, row)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
