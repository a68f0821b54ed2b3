package quotecache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"optionsmonitor/src/model"
)

// An unreachable Redis must degrade to cache misses, never errors or panics.
func TestCacheFailsOpenWhenRedisUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	cache := WithClient(rdb, 300*time.Second)

	ctx := context.Background()

	quote, ok := cache.Get(ctx, "AAPL261218C00150000")
	assert.Nil(t, quote)
	assert.False(t, ok)

	// Set and Del swallow the outage the same way.
	cache.Set(ctx, "AAPL261218C00150000", &model.Quote{Price: 10.5})
	cache.Del(ctx, "AAPL261218C00150000")
}

func TestCacheKeyNamespacing(t *testing.T) {
	assert.Equal(t, "quote:AAPL261218C00150000", cacheKey("AAPL261218C00150000"))
}
