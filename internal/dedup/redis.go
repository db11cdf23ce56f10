package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "actuarylist:seen:"

// RedisCache is a Cache shared between hosts. Each link is its own key with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewRedisCache(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisCache{client: client, ttl: opts.TTL, logger: logger}, nil
}

// IsSeen reports lookup errors as unseen.
func (c *RedisCache) IsSeen(ctx context.Context, url string) bool {
	n, err := c.client.Exists(ctx, keyPrefix+url).Result()
	if err != nil {
		c.logger.Warn("redis lookup failed", zap.String("link", url), zap.Error(err))
		return false
	}
	return n > 0
}

func (c *RedisCache) Add(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()
	pipe := c.client.Pipeline()
	for _, url := range urls {
		pipe.Set(ctx, keyPrefix+url, now, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
