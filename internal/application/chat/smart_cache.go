package chat

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitalroute/v1/internal/domain/chat"
	"github.com/vitalroute/v1/internal/ports/outbound"
)

// SmartQueryCache maps normalized query patterns to precomputed or
// previously served answers. It is the cheapest path in the pipeline:
// lookup is side-effect free, never blocks on anything beyond a single
// cache round trip, and a miss is nil, never an error the caller must act on.
type SmartQueryCache struct {
	cache  outbound.CacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

// CachedAnswer is a precomputed local answer with provenance
type CachedAnswer struct {
	Answer     string            `json:"answer"`
	DataSource chat.AnswerSource `json:"data_source"`
	Confidence float64           `json:"confidence"`
	Metrics    []string          `json:"metrics,omitempty"`
	CachedAt   time.Time         `json:"cached_at"`
	LastUsedAt time.Time         `json:"last_used_at"`
	HitCount   int64             `json:"hit_count"`
}

// NewSmartQueryCache creates a smart query cache
func NewSmartQueryCache(cache outbound.CacheRepository, ttl time.Duration, logger *zap.Logger) *SmartQueryCache {
	return &SmartQueryCache{
		cache:  cache,
		ttl:    ttl,
		logger: logger.Named("smart-cache"),
	}
}

func (c *SmartQueryCache) entryKey(userID uuid.UUID, normalizedQuery string) string {
	sum := sha256.Sum256([]byte(normalizedQuery))
	return fmt.Sprintf("smartcache:%s:%x", userID, sum[:8])
}

func (c *SmartQueryCache) metricIndexKey(userID uuid.UUID, metric string) string {
	return fmt.Sprintf("smartcache:index:%s:%s", userID, strings.ToLower(metric))
}

// Lookup tries a literal/pattern match for the user's normalized query.
// Miss returns (nil, nil).
func (c *SmartQueryCache) Lookup(ctx context.Context, userID uuid.UUID, normalizedQuery string) (*CachedAnswer, error) {
	data, err := c.cache.Get(ctx, c.entryKey(userID, normalizedQuery))
	if err != nil {
		return nil, nil
	}

	var answer CachedAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		c.logger.Warn("Dropping unreadable cache entry", zap.Error(err))
		return nil, nil
	}

	c.logger.Debug("Smart cache hit",
		zap.String("user_id", userID.String()),
		zap.Int64("hit_count", answer.HitCount),
	)
	return &answer, nil
}

// Store caches an answer for a normalized query and indexes it under the
// profile metrics it depends on, so a material profile change can
// invalidate it.
func (c *SmartQueryCache) Store(ctx context.Context, userID uuid.UUID, normalizedQuery string, answer CachedAnswer) error {
	answer.CachedAt = time.Now()
	answer.LastUsedAt = answer.CachedAt

	data, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("failed to marshal cached answer: %w", err)
	}

	key := c.entryKey(userID, normalizedQuery)
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		return err
	}

	// Dependency index: metric name -> entry keys.
	for _, metric := range answer.Metrics {
		idx := c.metricIndexKey(userID, metric)
		keys := c.readIndex(ctx, idx)
		keys[key] = true
		c.writeIndex(ctx, idx, keys)
	}
	return nil
}

// InvalidateMetric drops every cached answer that depends on a profile
// metric whose value changed materially.
func (c *SmartQueryCache) InvalidateMetric(ctx context.Context, userID uuid.UUID, metric string) {
	idx := c.metricIndexKey(userID, metric)
	keys := c.readIndex(ctx, idx)
	for key := range keys {
		if err := c.cache.Delete(ctx, key); err != nil {
			c.logger.Warn("Cache invalidation failed",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
	if len(keys) > 0 {
		c.cache.Delete(ctx, idx)
		c.logger.Debug("Invalidated cached answers for metric",
			zap.String("metric", metric),
			zap.Int("entries", len(keys)),
		)
	}
}

func statsKey(source chat.AnswerSource) string {
	return "smartcache:stats:" + string(source)
}

// Record logs which pipeline stage answered a query, for coverage analytics
func (c *SmartQueryCache) Record(ctx context.Context, userID uuid.UUID, normalizedQuery string, source chat.AnswerSource) {
	if _, err := c.cache.Increment(ctx, statsKey(source)); err != nil {
		c.logger.Debug("Coverage counter update failed",
			zap.String("source", string(source)),
			zap.Error(err),
		)
		return
	}
	c.logger.Debug("Answer outcome recorded",
		zap.String("user_id", userID.String()),
		zap.String("query", normalizedQuery),
		zap.String("source", string(source)),
	)
}

// CoverageStats reports the share of queries answered without a paid call,
// broken down by which local stage answered
type CoverageStats struct {
	CacheHits         int64   `json:"cache_hits"`
	ProfileHits       int64   `json:"profile_hits"`
	RemoteAnswers     int64   `json:"remote_answers"`
	LocalDataCoverage float64 `json:"local_data_coverage"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
}

// Coverage returns current local-answer coverage
func (c *SmartQueryCache) Coverage(ctx context.Context) CoverageStats {
	cacheHits, _ := c.cache.Counter(ctx, statsKey(chat.SourceSmartCache))
	profileHits, _ := c.cache.Counter(ctx, statsKey(chat.SourceHealthProfile))
	paid, _ := c.cache.Counter(ctx, statsKey(chat.SourceProvider))
	free, _ := c.cache.Counter(ctx, statsKey(chat.SourceLocal))

	stats := CoverageStats{
		CacheHits:     cacheHits,
		ProfileHits:   profileHits,
		RemoteAnswers: paid + free,
	}
	if total := cacheHits + profileHits + stats.RemoteAnswers; total > 0 {
		stats.LocalDataCoverage = float64(cacheHits+profileHits) / float64(total)
		stats.CacheHitRate = float64(cacheHits) / float64(total)
	}
	return stats
}

func (c *SmartQueryCache) readIndex(ctx context.Context, idx string) map[string]bool {
	keys := make(map[string]bool)
	if data, err := c.cache.Get(ctx, idx); err == nil {
		json.Unmarshal(data, &keys)
	}
	return keys
}

func (c *SmartQueryCache) writeIndex(ctx context.Context, idx string, keys map[string]bool) {
	data, err := json.Marshal(keys)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, idx, data, c.ttl); err != nil {
		c.logger.Debug("Cache index write failed", zap.Error(err))
	}
}
