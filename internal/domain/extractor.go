package domain

import (
	"context"

	"github.com/trialgrid/trialsearch/internal/domain/entities"
)

// Extractor pulls structured entities out of a natural-language query.
// Implementations wrap provider failures in ErrExtractionUnavailable.
type Extractor interface {
	Extract(ctx context.Context, query string) (entities.Extracted, error)
}
