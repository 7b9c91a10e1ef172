package cache

import (
	"context"

	"github.com/quizly/backend/core"
)

// New returns a RedisCache when an address is configured, a MemoryCache otherwise.
func New(ctx context.Context, conf core.CacheConfig, logger core.Logger) (core.Cache, func() error, error) {
	if conf.RedisAddr == "" {
		logger.Info("cache: no redis configured, using in-process LRU")
		return NewMemoryCache(conf.LRUSize), func() error { return nil }, nil
	}
	rc, err := NewRedisCache(ctx, conf, "quizly:")
	if err != nil {
		return nil, nil, err
	}
	logger.Info("cache: connected to redis", map[string]interface{}{"addr": conf.RedisAddr})
	return rc, rc.Close, nil
}
