package fx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/kimchibot/internal/domain"
)

const (
	// refreshLockKey names the refresh guard; the lock manager applies its
	// own key namespace.
	refreshLockKey = "fx:refresh"
	refreshLockTTL = 30 * time.Second
)

// CachedProvider serves the cached rate while it is fresh for the current
// clock hour and refreshes it under a distributed lock otherwise. When the
// lock is contended a stale value is still usable for one cycle.
type CachedProvider struct {
	inner  Provider
	cache  domain.RateCache
	lock   domain.LockManager
	store  domain.RateStore
	logger *slog.Logger
	now    func() time.Time
}

func NewCachedProvider(inner Provider, cache domain.RateCache, lock domain.LockManager, store domain.RateStore, logger *slog.Logger) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		cache:  cache,
		lock:   lock,
		store:  store,
		logger: logger.With("component", "fx_cache"),
		now:    time.Now,
	}
}

func (p *CachedProvider) Rate(ctx context.Context) (domain.ExchangeRate, error) {
	cached, err := p.cache.Get(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		p.logger.Warn("rate cache read failed", "error", err)
	}
	if err == nil && cached.FreshAt(p.now().UTC()) {
		return cached, nil
	}

	unlock, err := p.lock.Acquire(ctx, refreshLockKey, refreshLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return p.fallback(ctx, cached)
		}
		return domain.ExchangeRate{}, fmt.Errorf("fx: acquire refresh lock: %w", err)
	}
	defer unlock()

	fresh, err := p.inner.Rate(ctx)
	if err != nil {
		return domain.ExchangeRate{}, err
	}

	if err := p.cache.Set(ctx, fresh); err != nil {
		p.logger.Warn("rate cache write failed", "error", err)
	}
	if p.store != nil {
		if err := p.store.Insert(ctx, fresh); err != nil {
			p.logger.Warn("rate store insert failed", "error", err)
		}
	}
	return fresh, nil
}

// fallback runs when another invocation holds the refresh lock. A stale
// cached rate is better than aborting the cycle; failing that, the durable
// store may have a usable row.
func (p *CachedProvider) fallback(ctx context.Context, cached domain.ExchangeRate) (domain.ExchangeRate, error) {
	if cached.Rate > 0 {
		p.logger.Info("refresh lock held, using stale cached rate", "rate", cached.Rate, "fetched_at", cached.FetchedAt)
		return cached, nil
	}
	if p.store != nil {
		stored, err := p.store.Latest(ctx)
		if err == nil && stored.Rate > 0 {
			p.logger.Info("refresh lock held, using stored rate", "rate", stored.Rate, "fetched_at", stored.FetchedAt)
			return stored, nil
		}
	}
	return domain.ExchangeRate{}, fmt.Errorf("fx: refresh in progress and no prior rate to fall back on: %w", domain.ErrStaleRate)
}

var _ Provider = (*CachedProvider)(nil)
