// Package entcache caches entity-extraction results in a key-value
// store. Cache failures degrade to misses, never to request errors.
package entcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/trialgrid/trialsearch/internal/db"
	"github.com/trialgrid/trialsearch/internal/domain"
	"github.com/trialgrid/trialsearch/internal/domain/entities"
)

const cacheKeyPrefix = "trialsearch:ent_cache:"

// store is the consumer interface for the extraction cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedExtractor caches extraction results in a key-value store.
type CachedExtractor struct {
	inner      domain.Extractor
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Extractor,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedExtractor {
	return &CachedExtractor{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Extract returns a cached result or calls the inner extractor.
// Semantically identical queries share a cache entry: the key is
// derived from the lowercased, whitespace-trimmed query.
func (c *CachedExtractor) Extract(ctx context.Context, query string) (entities.Extracted, error) {
	key := c.cacheKey(query)

	if ents, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return ents, nil
	}

	c.incCache("miss")

	ents, err := c.inner.Extract(ctx, query)
	if err != nil {
		return entities.Extracted{}, fmt.Errorf("extract entities: %w", err)
	}

	c.putToCache(ctx, key, ents)
	return ents, nil
}

// HealthCheck delegates to the inner extractor when it supports probing.
func (c *CachedExtractor) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(interface {
		HealthCheck(ctx context.Context) error
	}); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *CachedExtractor) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedExtractor) cacheKey(query string) string {
	norm := strings.ToLower(strings.TrimSpace(query))
	h := sha256.Sum256([]byte(norm))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedExtractor) getFromCache(ctx context.Context, key string) (entities.Extracted, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read extraction cache", zap.String("key", key), zap.Error(err))
		}
		return entities.Extracted{}, false
	}

	var ents entities.Extracted
	if err := json.Unmarshal(data, &ents); err != nil {
		c.logger.Warn("Corrupt extraction cache entry", zap.String("key", key), zap.Error(err))
		return entities.Extracted{}, false
	}
	return ents, true
}

func (c *CachedExtractor) putToCache(ctx context.Context, key string, ents entities.Extracted) {
	data, err := json.Marshal(ents)
	if err != nil {
		c.logger.Warn("Failed to encode extraction result", zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache extraction result", zap.String("key", key), zap.Error(err))
	}
}
