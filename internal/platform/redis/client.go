// Package redis connects the optional Redis ledger backend.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"bloodlink/internal/platform/config"
)

// Client is a connected go-redis client. It satisfies redis.Cmdable, so
// stores take it directly.
type Client struct {
	*redis.Client
}

// New parses cfg.URL, applies pool and timeout overrides, and pings once.
// An empty URL means Redis is not configured and yields a nil client.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{Client: rdb}, nil
}

func clientOptions(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Health pings the server; /healthz reports it under "redis".
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
