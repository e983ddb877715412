package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobscout/internal/types"
)

func rawPosting(externalID, url, title string) types.RawPosting {
	return types.RawPosting{
		Source:        types.SourceLinkedInPublic,
		ExternalJobID: externalID,
		URL:           url,
		Title:         title,
		Description:   "some description",
	}
}

func TestIngest_IdempotentSameExternalID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	merger := NewMerger(store)

	t0 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(1 * time.Hour)
	t2 := t0.Add(2 * time.Hour)

	first, created, err := merger.Ingest(ctx, rawPosting("123", "https://a.example.com/jobs/view/123", "Backend Engineer"), t0)
	require.NoError(t, err)
	assert.True(t, created)

	for _, at := range []time.Time{t1, t2} {
		p, created, err := merger.Ingest(ctx, rawPosting("123", "https://a.example.com/jobs/view/123", "Backend Engineer"), at)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, p.ID)
	}

	assert.Equal(t, 1, store.Count())
	stored, err := store.GetPosting(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, t0, stored.FirstSeenAt)
	assert.Equal(t, t2, stored.LastSeenAt)
}

func TestIngest_SameExternalIDDifferentURLsMerge(t *testing.T) {
	ctx := context.Background()
	merger := NewMerger(NewMemoryStore())
	now := time.Now()

	a, _, err := merger.Ingest(ctx, rawPosting("123", "https://a.example.com/jobs/view/123", "Backend Engineer"), now)
	require.NoError(t, err)
	b, created, err := merger.Ingest(ctx, rawPosting("123", "https://b.example.com/other/path", "Backend Engineer"), now.Add(time.Minute))
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, a.ID, b.ID)
}

func TestIngest_SameURLNoExternalIDMerges(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	merger := NewMerger(store)
	now := time.Now()

	raw := types.RawPosting{
		Source: types.SourceBNEPublic,
		URL:    "https://www.bne.cl/oferta/555?utm_source=mail",
		Title:  "Analista",
	}
	dup := types.RawPosting{
		Source: types.SourceBNEPublic,
		URL:    "https://WWW.BNE.CL/oferta/555/",
		Title:  "Analista de Datos",
	}

	a, _, err := merger.Ingest(ctx, raw, now)
	require.NoError(t, err)
	b, created, err := merger.Ingest(ctx, dup, now.Add(time.Minute))
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, 1, store.Count())
	// Latest observation wins on mutable fields.
	assert.Equal(t, "Analista de Datos", b.Title)
}

func TestIngest_ReobservationKeepsRefinedTaxonomy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	merger := NewMerger(store)
	now := time.Now()

	raw := rawPosting("123", "https://a.example.com/jobs/view/123", "Backend Engineer")
	p, _, err := merger.Ingest(ctx, raw, now)
	require.NoError(t, err)

	// A later analysis pass stores a refined category on the posting.
	refined := "Finance"
	sub := "Risk"
	p.JobCategory = &refined
	p.JobSubcategory = &sub
	require.NoError(t, store.UpdatePosting(ctx, p))

	// The identical observation must not regress it to the keyword answer.
	same, created, err := merger.Ingest(ctx, raw, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, created)
	require.NotNil(t, same.JobCategory)
	assert.Equal(t, "Finance", *same.JobCategory)
	require.NotNil(t, same.JobSubcategory)
	assert.Equal(t, "Risk", *same.JobSubcategory)

	// Changed content re-derives the taxonomy.
	changed := raw
	changed.Title = "Accountant"
	changed.Description = "prepare financial statements"
	rederived, _, err := merger.Ingest(ctx, changed, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, rederived.JobCategory)
	assert.NotEqual(t, "Finance", *rederived.JobCategory)
}

func TestIngest_DifferentExternalIDsNeverMerge(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	merger := NewMerger(store)
	now := time.Now()

	url := "https://jobs.example.com/shared-landing-page"
	_, _, err := merger.Ingest(ctx, rawPosting("111", url, "Role A"), now)
	require.NoError(t, err)
	_, created, err := merger.Ingest(ctx, rawPosting("222", url, "Role B"), now)
	require.NoError(t, err)

	assert.True(t, created)
	assert.Equal(t, 2, store.Count())
}

func TestIngest_UnidentifiableRejected(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	merger := NewMerger(store)

	raw := types.RawPosting{Source: types.SourceLinkedInPublic, Title: "Mystery role"}
	p, created, err := merger.Ingest(ctx, raw, time.Now())

	assert.ErrorIs(t, err, ErrUnidentifiable)
	assert.Nil(t, p)
	assert.False(t, created)
	assert.Equal(t, 0, store.Count())
}

func TestIngest_LatestTitleWinsFirstSeenPreserved(t *testing.T) {
	// Two observations of job 123: titles "Backend Engineer" then
	// "Backend Engineer (Remote)". One row remains, with the later title
	// and the original first_seen_at.
	ctx := context.Background()
	store := NewMemoryStore()
	merger := NewMerger(store)

	t0 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(3 * time.Hour)

	first, _, err := merger.Ingest(ctx, rawPosting("123", "https://a.example.com/jobs/view/123", "Backend Engineer"), t0)
	require.NoError(t, err)
	second, created, err := merger.Ingest(ctx, rawPosting("123", "https://a.example.com/jobs/view/123", "Backend Engineer (Remote)"), t1)
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Backend Engineer (Remote)", second.Title)
	assert.Equal(t, t0, second.FirstSeenAt)
	assert.Equal(t, t1, second.LastSeenAt)
	assert.Equal(t, 1, store.Count())
}

func TestIngest_MergeDoesNotEraseKnownFields(t *testing.T) {
	ctx := context.Background()
	merger := NewMerger(NewMemoryStore())
	now := time.Now()

	full := rawPosting("123", "https://a.example.com/jobs/view/123", "Backend Engineer")
	full.Company = "Acme"
	full.ApplicantText = "42 applicants"
	_, _, err := merger.Ingest(ctx, full, now)
	require.NoError(t, err)

	sparse := rawPosting("123", "https://a.example.com/jobs/view/123", "Backend Engineer")
	merged, _, err := merger.Ingest(ctx, sparse, now.Add(time.Minute))
	require.NoError(t, err)

	require.NotNil(t, merged.Company)
	assert.Equal(t, "Acme", *merged.Company)
	require.NotNil(t, merged.ApplicantCount)
	assert.Equal(t, 42, *merged.ApplicantCount)
}

func TestIngest_InsertConflictRoutesToMerge(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	merger := NewMerger(&conflictOnFirstLookup{MemoryStore: store})
	now := time.Now()

	a, _, err := merger.Ingest(ctx, rawPosting("123", "https://a.example.com/jobs/view/123", "Backend Engineer"), now)
	require.NoError(t, err)
	b, created, err := merger.Ingest(ctx, rawPosting("123", "https://a.example.com/jobs/view/123", "Backend Engineer"), now.Add(time.Minute))
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, 1, store.Count())
}

// conflictOnFirstLookup simulates a concurrent writer: the first lookup for
// each key reports no row even though an insert would conflict.
type conflictOnFirstLookup struct {
	*MemoryStore
	misses int
}

func (s *conflictOnFirstLookup) FindPostingByExternalID(ctx context.Context, source types.Source, externalID string) (*types.Posting, error) {
	found, err := s.MemoryStore.FindPostingByExternalID(ctx, source, externalID)
	if found != nil && s.misses == 0 {
		s.misses++
		return nil, nil
	}
	return found, err
}
