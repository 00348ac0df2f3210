package readcache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Cache.Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Cache stores string values under a namespace and key.
type Cache interface {
	Get(ctx context.Context, namespace string, key string) (string, error)
	Set(ctx context.Context, namespace string, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, namespace string, key string) error
}

// RedisConfig selects a single node or a cluster.
type RedisConfig struct {
	Addrs    []string
	Password string
	DB       int
}

// RedisCache implements Cache on go-redis.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache connects to a single node, or to a cluster when several addresses are given.
func NewRedisCache(config RedisConfig) *RedisCache {
	var client redis.UniversalClient
	if len(config.Addrs) > 1 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    config.Addrs,
			Password: config.Password,
		})
	} else {
		addr := ""
		if len(config.Addrs) == 1 {
			addr = config.Addrs[0]
		}
		client = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.Password,
			DB:       config.DB,
		})
	}
	return &RedisCache{client: client}
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// Ping checks connectivity.
func (cache *RedisCache) Ping(ctx context.Context) error {
	return cache.client.Ping(ctx).Err()
}

// Close releases the client.
func (cache *RedisCache) Close() error {
	return cache.client.Close()
}

func (cache *RedisCache) Get(ctx context.Context, namespace string, key string) (string, error) {
	value, err := cache.client.Get(ctx, namespace+":"+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return value, err
}

func (cache *RedisCache) Set(ctx context.Context, namespace string, key string, value string, ttl time.Duration) error {
	return cache.client.Set(ctx, namespace+":"+key, value, ttl).Err()
}

func (cache *RedisCache) Delete(ctx context.Context, namespace string, key string) error {
	return cache.client.Del(ctx, namespace+":"+key).Err()
}
