package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrCacheMiss  = errors.New("cache miss")
	ErrCacheStale = errors.New("cache generation changed")
)

var cacheTracer = otel.Tracer("floorplan/redis")

// RedisCache stores JSON encoded values in Redis
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) span(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return cacheTracer.Start(ctx, "redis."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("db.system", "redis"))...),
	)
}

// Get decodes the value under key into dest. A missing key yields ErrCacheMiss.
func (r *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	ctx, span := r.span(ctx, "get", attribute.String("cache.key", key))
	defer span.End()

	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return ErrCacheMiss
	case err != nil:
		span.RecordError(err)
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))

	if err := json.Unmarshal(data, dest); err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache decode %s: %w", key, err)
	}
	return nil
}

// Set encodes value as JSON and stores it for ttl
func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	ctx, span := r.span(ctx, "set",
		attribute.String("cache.key", key),
		attribute.Int64("cache.ttl_seconds", int64(ttl.Seconds())),
	)
	defer span.End()

	data, err := json.Marshal(value)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Generation returns the counter stored at genKey, zero when absent
func (r *RedisCache) Generation(ctx context.Context, genKey string) (int64, error) {
	ctx, span := r.span(ctx, "get", attribute.String("cache.key", genKey))
	defer span.End()

	gen, err := r.client.Get(ctx, genKey).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		span.RecordError(err)
		return 0, fmt.Errorf("cache get %s: %w", genKey, err)
	}
	return gen, nil
}

// SetAtGeneration stores value only while genKey still holds gen.
// A concurrent BumpGeneration aborts the write and returns ErrCacheStale.
func (r *RedisCache) SetAtGeneration(ctx context.Context, key string, value interface{}, ttl time.Duration, genKey string, gen int64) error {
	ctx, span := r.span(ctx, "set",
		attribute.String("cache.key", key),
		attribute.Int64("cache.generation", gen),
	)
	defer span.End()

	data, err := json.Marshal(value)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return ErrCacheStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		err = ErrCacheStale
	}
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// BumpGeneration increments genKey and drops keys in one transaction, so
// fills that read the previous generation can no longer land.
func (r *RedisCache) BumpGeneration(ctx context.Context, genKey string, genTTL time.Duration, keys ...string) error {
	ctx, span := r.span(ctx, "incr", attribute.String("cache.key", genKey))
	defer span.End()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, genTTL)
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache bump %s: %w", genKey, err)
	}
	return nil
}

// Delete drops keys; deleting nothing is a no-op
func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ctx, span := r.span(ctx, "del", attribute.Int("cache.key_count", len(keys)))
	defer span.End()

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}
