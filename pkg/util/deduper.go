package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper remembers keys for ttl so a retried request is applied once.
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce returns true the first time scope+key is seen within ttl and
// false for duplicates. When Redis is unavailable it returns true so the
// request is processed rather than dropped.
func (d *Deduper) AcquireOnce(ctx context.Context, scope, key string) bool {
	if key == "" {
		return true
	}
	dedupKey := dedupKey(scope, key)

	ok, err := d.rdb.SetNX(ctx, dedupKey, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("scope", scope),
			zap.String("key", key),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("Skipped duplicated request",
			zap.String("scope", scope),
			zap.String("dedup_key", dedupKey),
		)
	}

	return ok
}

// Release forgets scope+key so a request that failed after AcquireOnce can be
// retried with the same key.
func (d *Deduper) Release(ctx context.Context, scope, key string) {
	if key == "" {
		return
	}
	if err := d.rdb.Del(ctx, dedupKey(scope, key)).Err(); err != nil {
		d.logger.Warn("Failed to release dedup key",
			zap.String("scope", scope),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func dedupKey(scope, key string) string {
	return fmt.Sprintf("dedup:%s:%s", scope, key)
}
