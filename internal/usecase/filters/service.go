// Package filters exposes the distinct filterable values of the index.
package filters

import (
	"context"
	"fmt"

	"github.com/trialgrid/trialsearch/internal/db"
	"github.com/trialgrid/trialsearch/internal/domain"
	"github.com/trialgrid/trialsearch/internal/domain/trial"
)

// Value is one filter option with its trial count.
type Value struct {
	Value string
	Count int
}

// Catalog lists the available filter values per field.
type Catalog struct {
	Phases     []Value
	Statuses   []Value
	StudyTypes []Value
	Conditions []Value
	Sponsors   []Value
}

// Service resolves the filter catalog from index aggregations.
type Service struct {
	aggs Aggregator
}

// New creates a filters service.
func New(aggs Aggregator) *Service {
	return &Service{aggs: aggs}
}

// Catalog fetches the current filter values with their counts.
func (s *Service) Catalog(ctx context.Context) (Catalog, error) {
	facets, err := s.aggs.Facets(ctx, []string{
		trial.FieldPhase,
		trial.FieldOverallStatus,
		trial.FieldStudyType,
		trial.FieldConditionName,
		trial.FieldSponsorName,
	})
	if err != nil {
		return Catalog{}, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
	}

	return Catalog{
		Phases:     values(facets[trial.FieldPhase]),
		Statuses:   values(facets[trial.FieldOverallStatus]),
		StudyTypes: values(facets[trial.FieldStudyType]),
		Conditions: values(facets[trial.FieldConditionName]),
		Sponsors:   values(facets[trial.FieldSponsorName]),
	}, nil
}

func values(buckets []db.Bucket) []Value {
	out := make([]Value, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, Value{Value: b.Value, Count: b.Count})
	}
	return out
}
