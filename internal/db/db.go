package db

import (
	"context"
	"time"

	"github.com/trialgrid/trialsearch/internal/domain/query"
	"github.com/trialgrid/trialsearch/internal/domain/trial"
)

// Index is the search-backend facade combining all sub-interfaces.
// Consumers depend on the narrow sub-interfaces, not on Index.
type Index interface {
	Pinger
	Searcher
	DocGetter
	Aggregator
	BulkIndexer
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks search-backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Hit is one matched document with its ranking metadata.
type Hit struct {
	Trial      trial.Trial
	Score      float64
	Highlights map[string][]string
}

// Result is the outcome of one search round trip.
type Result struct {
	Total int
	Hits  []Hit
}

// Searcher executes structured and similarity queries against the index.
type Searcher interface {
	// Search runs a query spec and returns up to size hits by
	// descending score. Documents with an identifier in exclude are
	// filtered out server-side.
	Search(ctx context.Context, spec query.Spec, size int, exclude []string) (*Result, error)
	// SimilarTo returns documents whose content resembles the given
	// one, excluding the document itself and any identifier in exclude.
	SimilarTo(ctx context.Context, nctID string, size int, exclude []string) (*Result, error)
}

// DocGetter fetches a single document by identifier.
type DocGetter interface {
	GetTrial(ctx context.Context, nctID string) (trial.Trial, error)
}

// Bucket is one value of a terms aggregation with its document count.
type Bucket struct {
	Value string
	Count int
}

// Aggregator computes facet counts over the whole index.
type Aggregator interface {
	// Facets returns the distinct values and counts of each requested
	// field. Nested fields use their dotted path.
	Facets(ctx context.Context, fields []string) (map[string][]Bucket, error)
}

// BulkFailure describes one rejected document of a bulk write.
type BulkFailure struct {
	NCTID  string
	Reason string
}

// BulkIndexer writes normalized documents to the index in batches.
type BulkIndexer interface {
	// BulkIndex upserts the given trials. Per-document rejections come
	// back in the result; a transport-level failure is an error.
	BulkIndex(ctx context.Context, trials []trial.Trial) ([]BulkFailure, error)
}

// KVStore provides simple key-value operations for caching.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
