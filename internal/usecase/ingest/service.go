// Package ingest runs the preprocessing pipeline: raw records are
// normalized on a worker pool, then written to the index in batches.
package ingest

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/trialgrid/trialsearch/internal/domain"
	"github.com/trialgrid/trialsearch/internal/domain/trial"
	"github.com/trialgrid/trialsearch/internal/metrics"
	"github.com/trialgrid/trialsearch/internal/normalize"
)

// Service is the ingestion pipeline.
type Service struct {
	indexer   Indexer
	pool      *ants.Pool
	batchSize int
	logger    *zap.Logger
}

// New creates a pipeline with the given worker count and batch size.
// Zero values fall back to sensible defaults.
func New(indexer Indexer, workers, batchSize int, logger *zap.Logger) (*Service, error) {
	if workers < 1 {
		workers = runtime.NumCPU() / 2
		if workers < 1 {
			workers = 1
		}
	}
	if batchSize < 1 {
		batchSize = 500
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Service{
		indexer:   indexer,
		pool:      pool,
		batchSize: batchSize,
		logger:    logger,
	}, nil
}

// Release shuts down the worker pool.
func (s *Service) Release() {
	s.pool.Release()
}

// Normalize converts raw records into trials on the worker pool.
// Record order is preserved. Records without an identifier are skipped
// and counted; they never abort the run.
func (s *Service) Normalize(records []map[string]any, stats *Stats) []trial.Trial {
	results := make([]*trial.Trial, len(records))
	var wg sync.WaitGroup

	for i, raw := range records {
		i, raw := i, raw
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			t, err := normalize.Record(raw, stats)
			if err != nil {
				stats.markSkipped()
				metrics.IngestRecordsTotal.WithLabelValues("skipped").Inc()
				s.logger.Warn("Skipped record", zap.Int("position", i), zap.Error(err))
				return
			}
			stats.markValid()
			metrics.IngestRecordsTotal.WithLabelValues("valid").Inc()
			results[i] = &t
		})
		if err != nil {
			// pool released mid-run; process inline
			wg.Done()
			t, nerr := normalize.Record(raw, stats)
			if nerr != nil {
				stats.markSkipped()
				continue
			}
			stats.markValid()
			results[i] = &t
		}
	}
	wg.Wait()

	trials := make([]trial.Trial, 0, len(records))
	for _, t := range results {
		if t != nil {
			trials = append(trials, *t)
		}
	}
	return trials
}

// Run normalizes and indexes all records, returning the counters.
// Per-document index rejections are counted and logged; only a
// transport-level backend failure aborts the run.
func (s *Service) Run(ctx context.Context, records []map[string]any) (Summary, error) {
	stats := &Stats{}
	trials := s.Normalize(records, stats)

	for start := 0; start < len(trials); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return stats.Summary(), fmt.Errorf("ingest canceled: %w", err)
		}

		end := start + s.batchSize
		if end > len(trials) {
			end = len(trials)
		}
		batch := trials[start:end]

		batchStart := time.Now()
		failures, err := s.indexer.BulkIndex(ctx, batch)
		if err != nil {
			stats.markFailed(len(batch))
			metrics.IngestRecordsTotal.WithLabelValues("failed").Add(float64(len(batch)))
			return stats.Summary(), fmt.Errorf("bulk index batch at %d: %w", start, err)
		}
		metrics.IngestBatchDuration.WithLabelValues().Observe(time.Since(batchStart).Seconds())

		stats.markIndexed(len(batch) - len(failures))
		stats.markFailed(len(failures))
		for _, f := range failures {
			metrics.IngestRecordsTotal.WithLabelValues("failed").Inc()
			werr := domain.NewIndexWriteError(f.NCTID, f.Reason)
			stats.Warn(werr.Error())
			s.logger.Warn("Index write rejected", zap.String("nct_id", f.NCTID), zap.String("reason", f.Reason))
		}
	}

	return stats.Summary(), nil
}
