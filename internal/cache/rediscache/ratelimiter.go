package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Bucket - именованный лимит для одной категории публичных запросов.
type Bucket struct {
	Name   string
	Limit  int64
	Window time.Duration
}

type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// RateLimiter считает обращения фиксированным окном: INCR по ключу
// bucket+identity и TTL окна на первом обращении.
type RateLimiter struct {
	c       *redis.Client
	buckets map[string]Bucket
}

func NewRateLimiter(addr string, buckets ...Bucket) *RateLimiter {
	m := make(map[string]Bucket, len(buckets))
	for _, b := range buckets {
		m[b.Name] = b
	}
	return &RateLimiter{
		c:       redis.NewClient(&redis.Options{Addr: addr}),
		buckets: m,
	}
}

// Check увеличивает счётчик и возвращает решение. Неизвестный bucket
// пропускается: лимит на него просто не настроен.
func (rl *RateLimiter) Check(ctx context.Context, bucket, identity string) (Decision, error) {
	b, ok := rl.buckets[bucket]
	if !ok || b.Limit <= 0 {
		return Decision{Allowed: true, Remaining: -1}, nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", b.Name, identity)

	pipe := rl.c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, b.Window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, errors.Wrap(err, "redis ratelimit")
	}

	n := incr.Val()
	remaining := b.Limit - n
	if remaining < 0 {
		remaining = 0
	}

	resetAt := time.Now().Add(b.Window)
	if d, err := ttl.Result(); err == nil && d > 0 {
		resetAt = time.Now().Add(d)
	}

	return Decision{
		Allowed:   n <= b.Limit,
		Limit:     b.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
