package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/trialgrid/trialsearch/internal/config"
	dbElastic "github.com/trialgrid/trialsearch/internal/db/elastic"
	logpkg "github.com/trialgrid/trialsearch/internal/logger"
	"github.com/trialgrid/trialsearch/internal/metrics"
	"github.com/trialgrid/trialsearch/internal/usecase/ingest"
	"github.com/trialgrid/trialsearch/internal/version"
)

func main() {
	var (
		inputPath = flag.String("input", "", "path to a JSON array of raw trial records")
		workers   = flag.Int("workers", 0, "normalization workers (default from config)")
		batchSize = flag.Int("batch-size", 0, "bulk indexing batch size (default from config)")
	)
	flag.Parse()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if *inputPath == "" {
		logger.Fatal("Missing required -input flag")
	}
	if *workers <= 0 {
		*workers = cfg.Ingest.Workers
	}
	if *batchSize <= 0 {
		*batchSize = cfg.Ingest.BatchSize
	}

	logger.Info("Starting trialsearch ingest",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("input", *inputPath),
		zap.Int("workers", *workers),
		zap.Int("batch_size", *batchSize),
	)

	records, err := loadRecords(*inputPath)
	if err != nil {
		logger.Fatal("Failed to load input", zap.Error(err))
	}
	logger.Info("Loaded raw records", zap.Int("count", len(records)))

	index, err := dbElastic.NewClient(dbElastic.Config{
		Addr:     cfg.Elastic.Addr,
		Index:    cfg.Elastic.Index,
		Username: cfg.Elastic.Username,
		Password: cfg.Elastic.Password,
		Timeout:  time.Duration(cfg.Elastic.TimeoutSec) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create search client", zap.Error(err))
	}
	defer index.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := index.WaitForReady(ctx, 30*time.Second); err != nil {
		logger.Fatal("Search backend not ready", zap.Error(err))
	}

	metrics.RegisterIngestMetrics()

	pipeline, err := ingest.New(index, *workers, *batchSize, logger)
	if err != nil {
		logger.Fatal("Failed to create pipeline", zap.Error(err))
	}
	defer pipeline.Release()

	start := time.Now()
	summary, err := pipeline.Run(ctx, records)
	if err != nil {
		logger.Fatal("Ingest failed",
			zap.Error(err),
			zap.Int("indexed", summary.Indexed),
			zap.Int("failed", summary.Failed),
		)
	}

	for _, w := range summary.Warnings {
		logger.Warn("Record warning", zap.String("warning", w))
	}

	logger.Info("Ingest complete",
		zap.Int("total", summary.Total),
		zap.Int("valid", summary.Valid),
		zap.Int("skipped", summary.Skipped),
		zap.Int("indexed", summary.Indexed),
		zap.Int("failed", summary.Failed),
		zap.Int("warnings", len(summary.Warnings)),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// loadRecords reads a JSON array of raw trial objects.
func loadRecords(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []map[string]any
	if err := json.NewDecoder(f).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}
