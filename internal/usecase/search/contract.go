package search

import (
	"context"

	"github.com/trialgrid/trialsearch/internal/db"
	"github.com/trialgrid/trialsearch/internal/domain/entities"
	"github.com/trialgrid/trialsearch/internal/domain/query"
	"github.com/trialgrid/trialsearch/internal/domain/trial"
)

// Index is the search-backend contract for the orchestrator.
type Index interface {
	Search(ctx context.Context, spec query.Spec, size int, exclude []string) (*db.Result, error)
	SimilarTo(ctx context.Context, nctID string, size int, exclude []string) (*db.Result, error)
}

// DocGetter fetches one trial by identifier.
type DocGetter interface {
	GetTrial(ctx context.Context, nctID string) (trial.Trial, error)
}

// EntityProvider resolves a query's structured entities. Never fails:
// extraction problems surface as an empty entity set.
type EntityProvider interface {
	Entities(ctx context.Context, query string) entities.Normalized
}
