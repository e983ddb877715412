package results

import "time"

// FacetSet carries per-dimension value counts for a result listing. Each
// dimension is counted against the rows that pass every active filter
// except its own, so selecting a facet value never zeroes out its siblings.
type FacetSet struct {
	Sources       map[string]int `json:"sources"`
	Categories    map[string]int `json:"categories"`
	Subcategories map[string]int `json:"subcategories"`
	Modalities    map[string]int `json:"modalities"`
	Locations     map[string]int `json:"locations"`
	Posted        map[string]int `json:"posted"`
	NewCount      int            `json:"new_count"`
}

// Posted-age bucket labels, finest first. A posting lands in the first
// bucket its age fits.
var postedBuckets = []struct {
	label string
	hours float64
}{
	{"1h", 1},
	{"3h", 3},
	{"8h", 8},
	{"24h", 24},
	{"72h", 72},
	{"7d", 168},
	{"30d", 720},
}

const (
	bucketOlder   = "older"
	bucketUnknown = "unknown"
)

// PostedBucket labels a posting age in hours.
func PostedBucket(ageHours *float64) string {
	if ageHours == nil {
		return bucketUnknown
	}
	for _, b := range postedBuckets {
		if *ageHours <= b.hours {
			return b.label
		}
	}
	return bucketOlder
}

// Facets counts facet values for rows under the given filters.
func Facets(rows []Row, filters Filters, now time.Time) FacetSet {
	set := FacetSet{
		Sources:       map[string]int{},
		Categories:    map[string]int{},
		Subcategories: map[string]int{},
		Modalities:    map[string]int{},
		Locations:     map[string]int{},
		Posted:        map[string]int{},
	}

	for _, row := range apply(rows, filters, filterSource, now) {
		set.Sources[string(row.Posting.Source)]++
	}
	for _, row := range apply(rows, filters, filterCategory, now) {
		if c := deref(row.Posting.JobCategory); c != "" {
			set.Categories[c]++
		}
	}
	for _, row := range apply(rows, filters, filterSubcategory, now) {
		if c := deref(row.Posting.JobSubcategory); c != "" {
			set.Subcategories[c]++
		}
	}
	for _, row := range apply(rows, filters, filterModality, now) {
		if m := string(row.Posting.Modality); m != "" {
			set.Modalities[m]++
		}
	}
	for _, row := range apply(rows, filters, filterLocation, now) {
		if l := deref(row.Posting.Location); l != "" {
			set.Locations[l]++
		}
	}
	for _, row := range apply(rows, filters, filterPosted, now) {
		set.Posted[PostedBucket(row.Posting.PostedAgeHours(now))]++
	}
	set.NewCount = NewCount(apply(rows, filters, filterAll, now))

	return set
}
