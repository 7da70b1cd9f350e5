package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	accounting "homesite-energy/internal/accounting/domain"
)

// PostingStore is an in-memory posting store.
type PostingStore struct {
	mu       sync.RWMutex
	postings []accounting.Posting
}

// NewPostingStore constructs a store.
func NewPostingStore() *PostingStore {
	return &PostingStore{}
}

// Append records postings.
func (s *PostingStore) Append(ctx context.Context, postings []accounting.Posting) error {
	_ = ctx
	if len(postings) == 0 {
		return nil
	}
	s.mu.Lock()
	s.postings = append(s.postings, postings...)
	s.mu.Unlock()
	return nil
}

// ListBetween returns postings with From <= At < To in posting-time
// order. A zero To means no upper bound.
func (s *PostingStore) ListBetween(ctx context.Context, from, to time.Time) ([]accounting.Posting, error) {
	_ = ctx
	s.mu.RLock()
	var result []accounting.Posting
	for _, posting := range s.postings {
		if posting.At.Before(from) {
			continue
		}
		if !to.IsZero() && !posting.At.Before(to) {
			continue
		}
		result = append(result, posting)
	}
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool { return result[i].At.Before(result[j].At) })
	return result, nil
}

// Len returns the number of stored postings.
func (s *PostingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.postings)
}
