// Package embcache caches raw embedding calls in the key-value store so
// re-ingesting an unchanged paper or faculty dataset does not re-bill the
// provider for text it has already embedded.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/scholarmesh/paperdex/internal/db"
	"github.com/scholarmesh/paperdex/internal/domain"
)

// Entries are keyed by the sha256 of the embedded text, so the cache survives
// reordering and partial re-ingestion of a dataset.
var keyPrefix = domain.KeyPrefix + "emb_cache:"

// store is the slice of the KV store the cache needs.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CachedEmbedder wraps an Embedder with a content-addressed vector cache.
type CachedEmbedder struct {
	inner  domain.Embedder
	store  store
	hits   *prometheus.CounterVec
	logger *zap.Logger
}

// New creates a caching decorator around inner. hits is a counter vec with
// label "result" ("hit"/"miss"); nil disables cache metrics.
func New(
	inner domain.Embedder,
	s store,
	hits *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:  inner,
		store:  s,
		hits:   hits,
		logger: logger,
	}
}

// Embed serves the vector from the cache when the exact text was embedded
// before. A hit reports zero tokens since no provider call happened; a miss
// delegates to the inner embedder and stores the fresh vector.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := cacheKey(text)

	if vec := c.lookup(ctx, key); vec != nil {
		c.count("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.count("miss")

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	if err := c.store.Set(ctx, key, encodeVector(result.Embedding)); err != nil {
		// a lost cache write only costs a future re-embed
		c.logger.Warn("embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}

// lookup returns the cached vector or nil. Read errors and corrupt entries
// degrade to a miss.
func (c *CachedEmbedder) lookup(ctx context.Context, key string) []float32 {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("embedding cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	vec, err := decodeVector(data)
	if err != nil {
		c.logger.Warn("corrupt embedding cache entry, re-embedding",
			zap.String("key", key), zap.Error(err))
		return nil
	}
	return vec
}

func (c *CachedEmbedder) count(result string) {
	if c.hits != nil {
		c.hits.WithLabelValues(result).Inc()
	}
}

func cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return keyPrefix + hex.EncodeToString(h[:])
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("cache entry truncated: %d bytes", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
