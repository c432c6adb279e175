package main

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const CACHE_KEY_PREFIX = "osumap:fmt:"

// FormatCache stores canonical encodings keyed by the hash of their input.
type FormatCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

func cacheKey(input []byte) string {
	sum := md5.Sum(input)
	return CACHE_KEY_PREFIX + hex.EncodeToString(sum[:])
}

type RedisCache struct {
	client *redis.Client
	cfg    *Config
}

func NewRedisCache(cfg *Config) *RedisCache {
	return &RedisCache{cfg: cfg}
}

// Init connects and pings. redis_url is either host:port or a redis:// URL.
func (c *RedisCache) Init(ctx context.Context) error {
	opts := &redis.Options{Addr: c.cfg.RedisURL}
	if strings.Contains(c.cfg.RedisURL, "://") {
		parsed, err := redis.ParseURL(c.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}
	c.client = redis.NewClient(opts)

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.client.Ping(ctxPing).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, key, value, c.cfg.CacheTTL).Err()
}

func (c *RedisCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
