package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/fisiohome/fisiohome-api/pkg/errors"
)

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool, duration time.Duration)
	ObserveCacheWrite(duration time.Duration)
}

// CacheService wraps the Redis repository with hit/miss metrics and a
// shared TTL. A nil store disables caching entirely.
type CacheService struct {
	store   cacheStore
	metrics cacheMetrics
	ttl     time.Duration
	logger  *zap.Logger
}

func NewCacheService(store cacheStore, metrics cacheMetrics, ttl time.Duration, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{store: store, metrics: metrics, ttl: ttl, logger: logger}
}

// Enabled reports whether a backing store is configured.
func (s *CacheService) Enabled() bool {
	return s != nil && s.store != nil
}

// GetJSON loads key into dest. Returns false on miss or read failure.
func (s *CacheService) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}

	start := time.Now()
	err := s.store.Get(ctx, key, dest)
	elapsed := time.Since(start)

	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false, elapsed)
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}

	if s.metrics != nil {
		s.metrics.RecordCacheOperation(true, elapsed)
	}
	return true
}

// SetJSON stores value under key with the configured TTL. Failures are
// logged, never surfaced.
func (s *CacheService) SetJSON(ctx context.Context, key string, value interface{}) {
	if !s.Enabled() {
		return
	}

	start := time.Now()
	if err := s.store.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveCacheWrite(time.Since(start))
	}
}

// Invalidate removes all keys matching pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) {
	if !s.Enabled() {
		return
	}
	if err := s.store.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
