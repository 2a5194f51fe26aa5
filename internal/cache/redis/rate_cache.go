package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/kimchibot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// rateCacheKey is the single hot record holding the current exchange rate.
var rateCacheKey = key("fx", "rate")

// RateCache implements domain.RateCache using a Redis hash with fields
// "rate", "hour" and "fetched_at" (Unix nanosecond timestamp).
type RateCache struct {
	rdb *redis.Client
}

// NewRateCache creates a RateCache backed by the given Client.
func NewRateCache(c *Client) *RateCache {
	return &RateCache{rdb: c.rdb}
}

// Set stores the exchange rate record, replacing any previous one.
func (rc *RateCache) Set(ctx context.Context, rate domain.ExchangeRate) error {
	fields := map[string]interface{}{
		"rate":       strconv.FormatFloat(rate.Rate, 'f', -1, 64),
		"hour":       strconv.Itoa(rate.Hour),
		"fetched_at": strconv.FormatInt(rate.FetchedAt.UnixNano(), 10),
	}
	if err := rc.rdb.HSet(ctx, rateCacheKey, fields).Err(); err != nil {
		return fmt.Errorf("redis: set rate: %w", err)
	}
	return nil
}

// Get retrieves the cached exchange rate. It returns domain.ErrNotFound when
// no rate has been stored yet.
func (rc *RateCache) Get(ctx context.Context) (domain.ExchangeRate, error) {
	vals, err := rc.rdb.HGetAll(ctx, rateCacheKey).Result()
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("redis: get rate: %w", err)
	}
	if len(vals) == 0 {
		return domain.ExchangeRate{}, domain.ErrNotFound
	}

	rate, err := strconv.ParseFloat(vals["rate"], 64)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("redis: parse rate: %w", err)
	}
	hour, err := strconv.Atoi(vals["hour"])
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("redis: parse hour: %w", err)
	}
	tsNano, err := strconv.ParseInt(vals["fetched_at"], 10, 64)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("redis: parse fetched_at: %w", err)
	}

	return domain.ExchangeRate{
		Rate:      rate,
		Hour:      hour,
		FetchedAt: time.Unix(0, tsNano).UTC(),
	}, nil
}

// Compile-time interface check.
var _ domain.RateCache = (*RateCache)(nil)
