package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"unistay/internal/logger"
)

// Cache is a thin JSON read-through layer over Redis. A nil *Cache is valid
// and disables caching, so the service runs without Redis.
type Cache struct {
	client *redis.Client
	log    *logger.Logger
}

// New connects to Redis and verifies the connection. Returns nil (cache
// disabled) if the ping fails.
func New(addr string, log *logger.Logger) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("CACHE", "Redis unreachable at "+addr+", caching disabled: "+err.Error())
		return nil
	}

	log.Info("CACHE", "Connected to Redis at "+addr)
	return &Cache{client: client, log: log}
}

// GetJSON loads key into dest. Returns false on miss, disabled cache, or error.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.log.Warn("CACHE", "GET "+key+" failed: "+err.Error())
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		c.log.Warn("CACHE", "decode "+key+" failed: "+err.Error())
		return false
	}
	return true
}

// SetJSON stores v under key with a TTL. Failures are logged, not returned.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("CACHE", "encode "+key+" failed: "+err.Error())
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.log.Warn("CACHE", "SET "+key+" failed: "+err.Error())
	}
}

// Delete drops keys after a write invalidates them.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("CACHE", "DEL failed: "+err.Error())
	}
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
