package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/trialgrid/trialsearch/internal/config"
	dbElastic "github.com/trialgrid/trialsearch/internal/db/elastic"
	dbRedis "github.com/trialgrid/trialsearch/internal/db/redis"
	"github.com/trialgrid/trialsearch/internal/domain"
	"github.com/trialgrid/trialsearch/internal/domain/entities"
	"github.com/trialgrid/trialsearch/internal/domain/query"
	logpkg "github.com/trialgrid/trialsearch/internal/logger"
	"github.com/trialgrid/trialsearch/internal/metrics"
	"github.com/trialgrid/trialsearch/internal/repository/entcache"
	chiTransport "github.com/trialgrid/trialsearch/internal/transport/chi"
	openaiExt "github.com/trialgrid/trialsearch/internal/transport/openai"
	"github.com/trialgrid/trialsearch/internal/usecase/extract"
	filtersuc "github.com/trialgrid/trialsearch/internal/usecase/filters"
	healthuc "github.com/trialgrid/trialsearch/internal/usecase/health"
	searchuc "github.com/trialgrid/trialsearch/internal/usecase/search"
	"github.com/trialgrid/trialsearch/internal/version"
)

func main() {
	// Load configuration based on ENV
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

	logger.Info("Starting trialsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("elastic_addr", cfg.Elastic.Addr),
		zap.String("elastic_index", cfg.Elastic.Index),
	)

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

	ctx := context.Background()
	if err := index.WaitForReady(ctx, 30*time.Second); err != nil {
		logger.Fatal("Search backend not ready", zap.Error(err))
	}
	logger.Info("Connected to search backend")

	// Register metrics explicitly (no init())
	metrics.RegisterSearchMetrics()
	metrics.RegisterExtractionMetrics()

	extractSvc := buildExtraction(ctx, cfg, logger)

	builder := query.NewBuilder(query.Config{Boosts: cfg.Search.Boosts})

	searchSvc := searchuc.New(index, index, extractSvc, builder, searchuc.Config{
		SufficiencyThreshold: cfg.Search.SufficiencyThreshold,
		CandidateWindow:      cfg.Search.CandidateWindow,
		RelaxationOrder:      cfg.Search.RelaxationOrder,
		DefaultPageSize:      cfg.Search.DefaultPageSize,
		MaxPageSize:          cfg.Search.MaxPageSize,
	})
	filtersSvc := filtersuc.New(index)
	healthSvc := healthuc.New(index, newExtractionHealthChecker(extractSvc))

	server := chiTransport.NewServer(searchSvc, filtersSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildExtraction assembles the extractor chain: OpenAI -> Cached -> usecase.
// With no API key configured the service runs without extraction and
// every query is treated as plain text.
func buildExtraction(ctx context.Context, cfg config.Config, logger *zap.Logger) *extract.Service {
	normalizer := entities.NewNormalizer(entities.DefaultVocabularies())
	timeout := time.Duration(cfg.Extraction.TimeoutSec) * time.Second

	if cfg.Extraction.APIKey == "" {
		logger.Warn("No extraction API key configured, structured search disabled")
		return extract.New(nil, normalizer, timeout)
	}

	var extractor domain.Extractor = openaiExt.NewExtractor(&openaiExt.Config{
		APIKey:      cfg.Extraction.APIKey,
		BaseURL:     cfg.Extraction.BaseURL,
		Model:       cfg.Extraction.Model,
		Temperature: cfg.Extraction.Temperature,
		Logger:      logger,
	})
	logger.Info("Extraction provider created", zap.String("model", cfg.Extraction.Model))

	// Cached (empty redis addr disables caching)
	if cfg.Redis.Addr != "" {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		if err := store.WaitForReady(ctx, 30*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		ttl := time.Duration(cfg.Extraction.CacheTTLSec) * time.Second
		extractor = entcache.New(extractor, store, ttl, metrics.ExtractionCacheTotal, logger)
		logger.Info("Extraction cache enabled", zap.Duration("ttl", ttl))
	}

	return extract.New(extractor, normalizer, timeout)
}

// extractionHealthChecker adapts the extraction provider to health.ExtractionChecker.
type extractionHealthChecker struct {
	checker interface {
		HealthCheck(ctx context.Context) error
	}
}

func newExtractionHealthChecker(svc *extract.Service) healthuc.ExtractionChecker {
	hc, ok := svc.Provider().(interface {
		HealthCheck(ctx context.Context) error
	})
	if !ok {
		return nil
	}
	return &extractionHealthChecker{checker: hc}
}

func (h *extractionHealthChecker) HealthCheck(ctx context.Context) error {
	if err := h.checker.HealthCheck(ctx); err != nil {
		return fmt.Errorf("extraction health check: %w", err)
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
