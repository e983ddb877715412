package ingest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/jobscout/internal/types"
)

// MemoryStore is an in-memory PostingStore honoring the same identity
// uniqueness rules as the relational store. Used in tests and as a reference
// for the merge contract.
type MemoryStore struct {
	mu       sync.Mutex
	postings map[uuid.UUID]*types.Posting
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{postings: make(map[uuid.UUID]*types.Posting)}
}

// FindPostingByExternalID implements PostingStore.
func (s *MemoryStore) FindPostingByExternalID(_ context.Context, source types.Source, externalID string) (*types.Posting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.postings {
		if p.Source == source && p.ExternalJobID != nil && *p.ExternalJobID == externalID {
			return copyPosting(p), nil
		}
	}
	return nil, nil
}

// FindPostingByURLHash implements PostingStore. When several rows share the
// hash (distinct external IDs), the ID-less row wins.
func (s *MemoryStore) FindPostingByURLHash(_ context.Context, source types.Source, urlHash string) (*types.Posting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var withID *types.Posting
	for _, p := range s.postings {
		if p.Source != source || p.CanonicalURLHash != urlHash {
			continue
		}
		if p.ExternalJobID == nil {
			return copyPosting(p), nil
		}
		if withID == nil || p.LastSeenAt.After(withID.LastSeenAt) {
			withID = p
		}
	}
	if withID != nil {
		return copyPosting(withID), nil
	}
	return nil, nil
}

// InsertPosting implements PostingStore, returning ErrConflict when the
// identity key is already taken.
func (s *MemoryStore) InsertPosting(_ context.Context, p *types.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.postings {
		if existing.Source != p.Source {
			continue
		}
		if p.ExternalJobID != nil && existing.ExternalJobID != nil && *existing.ExternalJobID == *p.ExternalJobID {
			return ErrConflict
		}
		if p.ExternalJobID == nil && existing.ExternalJobID == nil && existing.CanonicalURLHash == p.CanonicalURLHash && p.CanonicalURLHash != "" {
			return ErrConflict
		}
	}
	s.postings[p.ID] = copyPosting(p)
	return nil
}

// UpdatePosting implements PostingStore.
func (s *MemoryStore) UpdatePosting(_ context.Context, p *types.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postings[p.ID] = copyPosting(p)
	return nil
}

// GetPosting returns a posting by ID, or nil.
func (s *MemoryStore) GetPosting(_ context.Context, id uuid.UUID) (*types.Posting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.postings[id]; ok {
		return copyPosting(p), nil
	}
	return nil, nil
}

// Count returns the number of stored postings.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.postings)
}

func copyPosting(p *types.Posting) *types.Posting {
	cp := *p
	return &cp
}
