package quotecache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	logger "github.com/sirupsen/logrus"

	"optionsmonitor/src/model"
)

// Cache is a fail-open quote cache over Redis: when Redis is unreachable,
// Get reports a miss and Set/Del are no-ops, so a cache outage slows polling
// down (every quote becomes a fetch) but never breaks it.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New builds a cache from env config. The returned cache is usable even if
// Redis is down; connectivity is probed lazily per operation.
func New() *Cache {
	config := GetConfig()

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	return &Cache{
		rdb: rdb,
		ttl: time.Duration(config.TTLSeconds) * time.Second,
	}
}

// WithClient allows overriding the redis client, used by tests.
func WithClient(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func cacheKey(contractKey string) string {
	return "quote:" + contractKey
}

// Get returns the cached quote for a contract, or (nil, false) on miss.
// Any Redis or decode error counts as a miss.
func (c *Cache) Get(ctx context.Context, contractKey string) (*model.Quote, bool) {
	data, err := c.rdb.Get(ctx, cacheKey(contractKey)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.WithField("contract", contractKey).
				WithError(err).Warn("Quote cache get failed, treating as miss")
		}
		return nil, false
	}

	var quote model.Quote
	if err := json.Unmarshal(data, &quote); err != nil {
		logger.WithField("contract", contractKey).
			WithError(err).Warn("Corrupt cached quote, treating as miss")
		return nil, false
	}

	return &quote, true
}

// Set stores a quote under its contract key for the configured TTL.
func (c *Cache) Set(ctx context.Context, contractKey string, quote *model.Quote) {
	data, err := json.Marshal(quote)
	if err != nil {
		logger.WithField("contract", contractKey).
			WithError(err).Warn("Failed to encode quote for cache")
		return
	}

	if err := c.rdb.Set(ctx, cacheKey(contractKey), data, c.ttl).Err(); err != nil {
		logger.WithField("contract", contractKey).
			WithError(err).Warn("Quote cache set failed, continuing without cache")
	}
}

// Del drops a cached quote, used when a fetch must be forced next time.
func (c *Cache) Del(ctx context.Context, contractKey string) {
	if err := c.rdb.Del(ctx, cacheKey(contractKey)).Err(); err != nil {
		logger.WithField("contract", contractKey).
			WithError(err).Warn("Quote cache del failed, continuing")
	}
}
