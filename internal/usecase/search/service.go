// Package search orchestrates tiered trial search: a structured query
// first, progressive relaxation while results are scarce, and a
// content-similarity fallback as the last tier.
package search

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/trialgrid/trialsearch/internal/db"
	"github.com/trialgrid/trialsearch/internal/domain"
	"github.com/trialgrid/trialsearch/internal/domain/entities"
	"github.com/trialgrid/trialsearch/internal/domain/query"
	dsearch "github.com/trialgrid/trialsearch/internal/domain/search"
	"github.com/trialgrid/trialsearch/internal/domain/trial"
	"github.com/trialgrid/trialsearch/internal/logger"
	"github.com/trialgrid/trialsearch/internal/metrics"
)

var nctIDPattern = regexp.MustCompile(`^NCT[0-9]{8}$`)

// relaxationSteps maps config step names to clause kinds.
var relaxationSteps = map[string]query.Kind{
	"keywords":      query.KindKeywords,
	"locations":     query.KindLocations,
	"sponsors":      query.KindSponsors,
	"interventions": query.KindInterventions,
	"conditions":    query.KindConditions,
	"study_type":    query.KindStudyType,
	"status":        query.KindStatus,
	"phase":         query.KindPhase,
}

// Config tunes the orchestrator.
type Config struct {
	// SufficiencyThreshold is the result count below which the next
	// tier runs.
	SufficiencyThreshold int
	// CandidateWindow is how many hits each tier may contribute.
	CandidateWindow int
	// RelaxationOrder lists clause kinds by step name, dropped first
	// to last.
	RelaxationOrder []string
	DefaultPageSize int
	MaxPageSize     int
}

// Request is one search invocation.
type Request struct {
	Query    string
	Page     int
	PageSize int
	Filters  query.Filters
	// SkipExtraction forces a plain text search with no entity hints.
	SkipExtraction bool
}

// Service coordinates extraction, query building, and tiered retrieval.
type Service struct {
	index   Index
	docs    DocGetter
	ents    EntityProvider
	builder *query.Builder
	cfg     Config
}

// New creates the orchestrator.
func New(index Index, docs DocGetter, ents EntityProvider, builder *query.Builder, cfg Config) *Service {
	if cfg.SufficiencyThreshold <= 0 {
		cfg.SufficiencyThreshold = 5
	}
	if cfg.CandidateWindow <= 0 {
		cfg.CandidateWindow = 100
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 10
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if len(cfg.RelaxationOrder) == 0 {
		cfg.RelaxationOrder = []string{
			"keywords", "locations", "sponsors", "interventions",
			"conditions", "study_type", "status", "phase",
		}
	}
	return &Service{index: index, docs: docs, ents: ents, builder: builder, cfg: cfg}
}

// Get fetches one trial by its identifier.
func (s *Service) Get(ctx context.Context, nctID string) (trial.Trial, error) {
	if !nctIDPattern.MatchString(nctID) {
		return trial.Trial{}, fmt.Errorf("malformed trial identifier %q: %w", nctID, domain.ErrInvalidRequest)
	}
	t, err := s.docs.GetTrial(ctx, nctID)
	if err != nil {
		if errors.Is(err, db.ErrDocNotFound) {
			return trial.Trial{}, fmt.Errorf("%s: %w", nctID, domain.ErrTrialNotFound)
		}
		return trial.Trial{}, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
	}
	return t, nil
}

// Search runs the tiered retrieval for one request and returns the
// requested page. Pages past the last one come back empty.
func (s *Service) Search(ctx context.Context, req Request) (*dsearch.Page, entities.Normalized, error) {
	page, pageSize := s.clampPaging(req.Page, req.PageSize)

	var ents entities.Normalized
	if !req.SkipExtraction {
		ents = s.ents.Entities(ctx, req.Query)
	}

	spec, err := s.builder.Build(req.Query, ents, req.Filters)
	if err != nil {
		return nil, ents, err
	}

	exact, similar, searchType, steps, err := s.collect(ctx, spec)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(string(searchType), "error").Inc()
		return nil, ents, err
	}

	metrics.SearchRequestsTotal.WithLabelValues(string(searchType), "success").Inc()
	metrics.SearchRelaxationSteps.WithLabelValues(string(searchType)).Observe(float64(steps))

	// Only the exact tier is paginated. Similar hits are a separate
	// accessor and never shift the page numbering.
	result := &dsearch.Page{
		Hits:       dsearch.Slice(exact, page, pageSize),
		Similar:    similar,
		Total:      len(exact),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: dsearch.TotalPages(len(exact), pageSize),
		SearchType: searchType,
	}
	return result, ents, nil
}

// collect walks the tiers until the result set is sufficient or no
// tier remains. Every hit appears exactly once: later tiers exclude
// all identifiers gathered so far. A canceled context between tiers
// stops the walk and keeps whatever the completed tiers gathered.
func (s *Service) collect(ctx context.Context, spec query.Spec) ([]dsearch.Hit, []dsearch.Hit, dsearch.Type, int, error) {
	searchType := dsearch.TypeExact
	if !spec.Structured() {
		searchType = dsearch.TypeBasic
	}

	var exact []dsearch.Hit
	seen := make(map[string]struct{})

	res, err := s.runSearch(ctx, spec, nil)
	if err != nil {
		return nil, nil, searchType, 0, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
	}
	exact = appendTier(exact, seen, res, dsearch.TierExact)

	steps := 0
	for _, step := range s.cfg.RelaxationOrder {
		if len(exact) >= s.cfg.SufficiencyThreshold {
			break
		}
		if err := ctx.Err(); err != nil {
			return exact, nil, searchType, steps, nil
		}

		kind, ok := relaxationSteps[step]
		if !ok {
			continue
		}
		relaxed, ok := spec.Without(kind)
		if !ok {
			continue
		}
		spec = relaxed
		steps++

		res, err := s.runSearch(ctx, spec, ids(seen))
		if err != nil {
			return nil, nil, searchType, steps, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
		}
		before := len(exact)
		exact = appendTier(exact, seen, res, dsearch.TierExact)
		if len(exact) > before && searchType == dsearch.TypeExact {
			searchType = dsearch.TypeHybrid
		}
	}

	var similar []dsearch.Hit
	if len(exact) < s.cfg.SufficiencyThreshold && len(exact) > 0 {
		if err := ctx.Err(); err != nil {
			return exact, nil, searchType, steps, nil
		}
		seed := exact[0].Trial.NCTID
		res, err := s.runSimilar(ctx, seed, s.cfg.CandidateWindow, ids(seen))
		if err != nil {
			logger.FromContext(ctx).Warn("Similarity tier failed", zap.String("seed", seed), zap.Error(err))
		} else {
			similar = appendTier(similar, seen, res, dsearch.TierSimilar)
			if len(similar) > 0 && searchType != dsearch.TypeBasic {
				searchType = dsearch.TypeHybrid
			}
		}
	}

	return exact, similar, searchType, steps, nil
}

// Similar returns trials resembling the given one by content.
func (s *Service) Similar(ctx context.Context, nctID string, limit int) ([]dsearch.Hit, error) {
	if !nctIDPattern.MatchString(nctID) {
		return nil, fmt.Errorf("malformed trial identifier %q: %w", nctID, domain.ErrInvalidRequest)
	}
	if limit <= 0 || limit > s.cfg.MaxPageSize {
		limit = s.cfg.DefaultPageSize
	}

	res, err := s.runSimilar(ctx, nctID, limit, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
	}

	var hits []dsearch.Hit
	seen := make(map[string]struct{})
	return appendTier(hits, seen, res, dsearch.TierSimilar), nil
}

func (s *Service) runSearch(ctx context.Context, spec query.Spec, exclude []string) (*db.Result, error) {
	start := time.Now()
	res, err := s.index.Search(ctx, spec, s.cfg.CandidateWindow, exclude)
	metrics.SearchBackendDuration.WithLabelValues("search").Observe(time.Since(start).Seconds())
	return res, err
}

func (s *Service) runSimilar(ctx context.Context, nctID string, size int, exclude []string) (*db.Result, error) {
	start := time.Now()
	res, err := s.index.SimilarTo(ctx, nctID, size, exclude)
	metrics.SearchBackendDuration.WithLabelValues("mlt").Observe(time.Since(start).Seconds())
	return res, err
}

func (s *Service) clampPaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}
	return page, pageSize
}

// appendTier merges one tier's hits, skipping already-seen documents
// and breaking score ties by identifier for a stable order.
func appendTier(hits []dsearch.Hit, seen map[string]struct{}, res *db.Result, tier dsearch.Tier) []dsearch.Hit {
	batch := make([]dsearch.Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		if _, ok := seen[h.Trial.NCTID]; ok {
			continue
		}
		seen[h.Trial.NCTID] = struct{}{}
		batch = append(batch, dsearch.Hit{
			Trial:      h.Trial,
			Score:      h.Score,
			Tier:       tier,
			Highlights: h.Highlights,
		})
	}
	sort.SliceStable(batch, func(i, j int) bool {
		if batch[i].Score != batch[j].Score {
			return batch[i].Score > batch[j].Score
		}
		return batch[i].Trial.NCTID < batch[j].Trial.NCTID
	})
	return append(hits, batch...)
}

func ids(seen map[string]struct{}) []string {
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
