// Package redis implements the exchange-rate cache and the refresh lock on
// go-redis/v9. All keys live under the "kimchibot:" namespace.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// keyNamespace prefixes every key this process writes, so a shared Redis
// instance stays partitioned.
const keyNamespace = "kimchibot"

// key joins parts under the process namespace: key("fx", "rate") is
// "kimchibot:fx:rate".
func key(parts ...string) string {
	return keyNamespace + ":" + strings.Join(parts, ":")
}

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// Client wraps a go-redis Client. The scanner's Redis footprint is small
// (one hot rate record and one lock), so the pool defaults stay low.
type Client struct {
	rdb *redis.Client
}

// New creates a Redis Client and pings it to verify connectivity before any
// cycle depends on it.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   poolSize,
		MaxRetries: cfg.MaxRetries,
	}

	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	rdb := redis.NewClient(opts)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
