package domain

import (
	"context"
	"time"
)

// ObjectStore is the blob storage collaborator used by the dataset loader.
// Implementations map their failures onto ErrNotFound, ErrAuth and ErrTimeout.
type ObjectStore interface {
	// List returns every object key that starts with prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Get reads the full content of one object.
	Get(ctx context.Context, key string) ([]byte, error)
}

// ListingCache remembers object listings for a bounded time so repeated
// lookups skip the store's list call.
type ListingCache interface {
	// GetListing returns the cached keys for prefix and whether they were found.
	GetListing(ctx context.Context, prefix string) ([]string, bool, error)

	// PutListing stores keys for prefix for ttl.
	PutListing(ctx context.Context, prefix string, keys []string, ttl time.Duration) error
}

// DatasetLoader materializes the partitioned datasets found under a prefix.
type DatasetLoader interface {
	LoadSessions(ctx context.Context, prefix string) (SessionTable, error)
	LoadTransactions(ctx context.Context, prefix string) (TransactionTable, error)
}
