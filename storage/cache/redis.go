package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/quizly/backend/core"
	"github.com/quizly/backend/services/metrics"
)

const backendRedis = "redis"

// RedisCache is the shared cache used when several API instances run side by side.
type RedisCache struct {
	client *redis.Client
	prefix string
}

var _ core.Cache = (*RedisCache)(nil)

// NewRedisCache connects to Redis and waits for it to answer.
func NewRedisCache(ctx context.Context, conf core.CacheConfig, prefix string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.RedisAddr,
		Password: conf.RedisPassword,
		DB:       conf.RedisDB,
	})
	rc := &RedisCache{client: client, prefix: prefix}
	if err := rc.waitReady(ctx, 10); err != nil {
		_ = client.Close()
		return nil, err
	}
	return rc, nil
}

// waitReady pings Redis until it answers. Waits 100ms longer between each attempt.
func (rc *RedisCache) waitReady(ctx context.Context, maxAttempts int) error {
	var err error
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = rc.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "redis ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "redis ping timeout")
}

func (rc *RedisCache) key(k string) string { return rc.prefix + k }

func (rc *RedisCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

func (rc *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := rc.client.Get(ctx, rc.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			metrics.CacheMisses.WithLabelValues(backendRedis).Inc()
			return false, nil
		}
		metrics.CacheErrors.WithLabelValues(backendRedis, "get").Inc()
		return false, errors.Wrapf(err, "getting %q", key)
	}
	if err = json.Unmarshal(data, dest); err != nil {
		metrics.CacheErrors.WithLabelValues(backendRedis, "unmarshal").Inc()
		return false, errors.Wrapf(err, "decoding %q", key)
	}
	metrics.CacheHits.WithLabelValues(backendRedis).Inc()
	return true, nil
}

func (rc *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		metrics.CacheErrors.WithLabelValues(backendRedis, "marshal").Inc()
		return errors.Wrapf(err, "encoding %q", key)
	}
	if err = rc.client.Set(ctx, rc.key(key), data, ttl).Err(); err != nil {
		metrics.CacheErrors.WithLabelValues(backendRedis, "set").Inc()
		return errors.Wrapf(err, "setting %q", key)
	}
	return nil
}

func (rc *RedisCache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		metrics.CacheErrors.WithLabelValues(backendRedis, "marshal").Inc()
		return false, errors.Wrapf(err, "encoding %q", key)
	}
	ok, err := rc.client.SetNX(ctx, rc.key(key), data, ttl).Result()
	if err != nil {
		metrics.CacheErrors.WithLabelValues(backendRedis, "setnx").Inc()
		return false, errors.Wrapf(err, "setting %q", key)
	}
	return ok, nil
}

func (rc *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, rc.key(k))
	}
	if err := rc.client.Del(ctx, prefixed...).Err(); err != nil {
		metrics.CacheErrors.WithLabelValues(backendRedis, "delete").Inc()
		return errors.Wrap(err, "deleting keys")
	}
	return nil
}
