// Package ingest implements the deduplicating merge of normalized postings
// into the posting store: one stored row per identity key, updated in place
// on every re-observation.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jobscout/internal/normalize"
	"github.com/jonathan/jobscout/internal/types"
)

var (
	// ErrUnidentifiable is returned for postings that carry neither a
	// source-native ID nor a derivable URL; they cannot be deduplicated
	// safely and are not persisted.
	ErrUnidentifiable = errors.New("posting carries no external id and no canonical url")

	// ErrConflict is returned by stores when an insert would violate an
	// identity uniqueness constraint. The merger resolves it by re-routing
	// through the merge path.
	ErrConflict = errors.New("posting identity conflict")
)

// PostingStore is the persistence capability the merger needs. Lookups
// return (nil, nil) when no row matches.
type PostingStore interface {
	FindPostingByExternalID(ctx context.Context, source types.Source, externalID string) (*types.Posting, error)
	FindPostingByURLHash(ctx context.Context, source types.Source, urlHash string) (*types.Posting, error)
	InsertPosting(ctx context.Context, p *types.Posting) error
	UpdatePosting(ctx context.Context, p *types.Posting) error
}

// Merger resolves incoming postings against the store. Ingest calls are
// serialized so that concurrent ingestion from two sources never races to
// insert two rows for the same identity key.
type Merger struct {
	store PostingStore
	mu    sync.Mutex
}

// NewMerger returns a Merger writing through the given store.
func NewMerger(store PostingStore) *Merger {
	return &Merger{store: store}
}

// Ingest normalizes raw and merges it into the store. Identity precedence:
// (source, external_job_id) when the source-native ID is present, otherwise
// (source, canonical_url_hash). Returns the stored posting and whether a
// new row was created. Re-ingesting the identical posting advances
// last_seen_at on the one existing row; first_seen_at and the identity
// fields are never changed after creation.
func (m *Merger) Ingest(ctx context.Context, raw types.RawPosting, observedAt time.Time) (*types.Posting, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	incoming := normalize.Posting(raw, observedAt)
	if incoming.IdentityKey() == "" {
		return nil, false, ErrUnidentifiable
	}

	existing, err := m.lookup(ctx, &incoming)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		mergeInto(existing, &incoming, observedAt)
		if err := m.store.UpdatePosting(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("failed to update posting: %w", err)
		}
		return existing, false, nil
	}

	incoming.ID = uuid.New()
	incoming.FirstSeenAt = observedAt
	incoming.LastSeenAt = observedAt
	err = m.store.InsertPosting(ctx, &incoming)
	if errors.Is(err, ErrConflict) {
		// Lost a race with another writer; resolve through the merge path.
		existing, lookupErr := m.lookup(ctx, &incoming)
		if lookupErr != nil {
			return nil, false, lookupErr
		}
		if existing == nil {
			return nil, false, fmt.Errorf("failed to resolve posting conflict: %w", err)
		}
		mergeInto(existing, &incoming, observedAt)
		if err := m.store.UpdatePosting(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("failed to update posting: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert posting: %w", err)
	}
	return &incoming, true, nil
}

func (m *Merger) lookup(ctx context.Context, incoming *types.Posting) (*types.Posting, error) {
	if incoming.ExternalJobID != nil {
		found, err := m.store.FindPostingByExternalID(ctx, incoming.Source, *incoming.ExternalJobID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up posting by external id: %w", err)
		}
		// A posting with a source-native ID only ever matches on that ID;
		// coinciding URLs must not merge postings with different IDs.
		return found, nil
	}
	if incoming.CanonicalURLHash != "" {
		found, err := m.store.FindPostingByURLHash(ctx, incoming.Source, incoming.CanonicalURLHash)
		if err != nil {
			return nil, fmt.Errorf("failed to look up posting by url hash: %w", err)
		}
		if found != nil && found.ExternalJobID != nil {
			// The stored row is keyed by its external ID; an ID-less
			// observation of the same URL still belongs to it.
			return found, nil
		}
		return found, nil
	}
	return nil, nil
}

// mergeInto overwrites the mutable fields of existing with the latest
// observation. Identity fields and first_seen_at stay untouched.
func mergeInto(existing, incoming *types.Posting, observedAt time.Time) {
	if incoming.Title != "" {
		existing.Title = incoming.Title
	}
	if incoming.Company != nil {
		existing.Company = incoming.Company
	}
	if incoming.Location != nil {
		existing.Location = incoming.Location
	}
	if incoming.Description != "" {
		existing.Description = incoming.Description
	}
	if incoming.Modality != types.ModalityUnknown {
		existing.Modality = incoming.Modality
	}
	existing.EasyApply = incoming.EasyApply
	if incoming.ApplicantCount != nil {
		existing.ApplicantCount = incoming.ApplicantCount
	}
	if incoming.PostedAt != nil {
		existing.PostedAt = incoming.PostedAt
	}
	if incoming.CanonicalURL != "" {
		existing.CanonicalURL = incoming.CanonicalURL
	}
	previousHash := existing.ContentHash
	existing.ContentHash = normalize.ContentHash(existing)
	// The stored taxonomy may be LLM-refined. Only re-derive it when the
	// posting content actually changed.
	if existing.ContentHash != previousHash || existing.JobCategory == nil {
		existing.JobCategory = incoming.JobCategory
		existing.JobSubcategory = incoming.JobSubcategory
	}
	existing.LastSeenAt = observedAt
}
