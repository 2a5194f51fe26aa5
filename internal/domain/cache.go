package domain

import (
	"context"
	"time"
)

// RateCache holds the single hot exchange-rate record {hour, rate}. Read at
// the start of every cycle, rewritten at most once per clock hour.
type RateCache interface {
	Get(ctx context.Context) (ExchangeRate, error)
	Set(ctx context.Context, rate ExchangeRate) error
}

// LockManager guards the exchange-rate refresh so concurrent invocations do
// not all hit the FX provider on the hour boundary.
type LockManager interface {
	// Acquire returns an unlock func on success, or ErrLockHeld when another
	// holder owns the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// RateStore is the durable append-only record of fetched FX rates.
type RateStore interface {
	Insert(ctx context.Context, rate ExchangeRate) error
	Latest(ctx context.Context) (ExchangeRate, error)
}

// AlertStore records fired spread alerts.
type AlertStore interface {
	Insert(ctx context.Context, alert Alert) error
}
