package extract

import (
	"context"

	"github.com/trialgrid/trialsearch/internal/domain/entities"
)

// Extractor pulls raw entities from a natural-language query.
type Extractor interface {
	Extract(ctx context.Context, query string) (entities.Extracted, error)
}
