package cache

import (
	"context"
	"time"
)

// BytesCache - опциональный кэш "лучшее усилие": ошибки и промахи
// равнозначны для вызывающего кода.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
