// Package extract turns a natural-language query into validated
// structured entities. Extraction is advisory: any failure yields an
// empty result so the search path can proceed on text alone.
package extract

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/trialgrid/trialsearch/internal/domain/entities"
	"github.com/trialgrid/trialsearch/internal/logger"
)

// Service runs extraction with a deadline and vocabulary validation.
type Service struct {
	extractor  Extractor
	normalizer *entities.Normalizer
	timeout    time.Duration
}

// New creates an extraction service. extractor can be nil, in which
// case every query resolves to an empty entity set.
func New(extractor Extractor, normalizer *entities.Normalizer, timeout time.Duration) *Service {
	return &Service{
		extractor:  extractor,
		normalizer: normalizer,
		timeout:    timeout,
	}
}

// Provider exposes the underlying extractor for health probing.
// Nil when the service runs without extraction.
func (s *Service) Provider() Extractor {
	return s.extractor
}

// Entities extracts and validates entities for the given query.
// Never fails: provider errors and timeouts degrade to an empty set.
func (s *Service) Entities(ctx context.Context, query string) entities.Normalized {
	if s.extractor == nil {
		return entities.Normalized{}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, err := s.extractor.Extract(ctx, query)
	if err != nil {
		logger.FromContext(ctx).Warn("Entity extraction degraded to text-only search", zap.Error(err))
		return entities.Normalized{}
	}
	return s.normalizer.Normalize(&raw)
}
