package ingest

import (
	"context"

	"github.com/trialgrid/trialsearch/internal/db"
	"github.com/trialgrid/trialsearch/internal/domain/trial"
)

// Indexer writes normalized trials to the search index.
type Indexer interface {
	BulkIndex(ctx context.Context, trials []trial.Trial) ([]db.BulkFailure, error)
}
