package filters

import (
	"context"

	"github.com/trialgrid/trialsearch/internal/db"
)

// Aggregator computes facet counts over the index.
type Aggregator interface {
	Facets(ctx context.Context, fields []string) (map[string][]db.Bucket, error)
}
