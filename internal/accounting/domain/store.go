package accounting

import (
	"context"
	"time"
)

// PostingStore persists accounted postings. Postings are append-only;
// corrections are compensating postings.
type PostingStore interface {
	Append(ctx context.Context, postings []Posting) error
	ListBetween(ctx context.Context, from, to time.Time) ([]Posting, error)
}
