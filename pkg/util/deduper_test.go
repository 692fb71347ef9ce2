package util

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDeduper_AcquireOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewDeduper(rdb, time.Minute, zap.NewNop())
	ctx := context.Background()

	assert.True(t, d.AcquireOnce(ctx, "save", "k1"))
	assert.False(t, d.AcquireOnce(ctx, "save", "k1"))
	assert.True(t, d.AcquireOnce(ctx, "save", "k2"))
	assert.True(t, d.AcquireOnce(ctx, "other", "k1"))

	mr.FastForward(2 * time.Minute)
	assert.True(t, d.AcquireOnce(ctx, "save", "k1"))
}

func TestDeduper_ReleaseAllowsRetry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewDeduper(rdb, time.Minute, zap.NewNop())
	ctx := context.Background()

	assert.True(t, d.AcquireOnce(ctx, "save", "k1"))
	assert.True(t, d.AcquireOnce(ctx, "save", "k2"))

	d.Release(ctx, "save", "k1")

	assert.False(t, mr.Exists("dedup:save:k1"))
	assert.True(t, d.AcquireOnce(ctx, "save", "k1"))
	assert.False(t, d.AcquireOnce(ctx, "save", "k2"))
}

func TestDeduper_EmptyKeyAlwaysProcessed(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewDeduper(rdb, time.Minute, zap.NewNop())

	assert.True(t, d.AcquireOnce(context.Background(), "save", ""))
	assert.True(t, d.AcquireOnce(context.Background(), "save", ""))
}

func TestDeduper_RedisDownAllowsProcessing(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewDeduper(rdb, time.Minute, zap.NewNop())
	mr.Close()

	assert.True(t, d.AcquireOnce(context.Background(), "save", "k1"))
}
