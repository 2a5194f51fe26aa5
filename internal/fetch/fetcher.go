// Package fetch runs one venue's orderbook collection under a bounded worker
// pool. Every listed symbol yields exactly one result; workers write into
// their own pre-assigned slot so there is no shared mutable accumulation, and
// the barrier join is the only synchronization point.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/alanyoungcy/kimchibot/internal/domain"
	"github.com/alanyoungcy/kimchibot/internal/venue"
)

// Pool fetches orderbooks for one venue. The concurrency cap and request
// pacing are per-venue configuration, tuned to each API's rate limiter.
type Pool struct {
	adapter     venue.Adapter
	concurrency int64
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// New creates a Pool for the adapter. concurrency bounds in-flight fetches;
// reqsPerSec paces request starts (0 disables pacing).
func New(adapter venue.Adapter, concurrency int, reqsPerSec float64, logger *slog.Logger) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	var limiter *rate.Limiter
	if reqsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(reqsPerSec), concurrency)
	}
	return &Pool{
		adapter:     adapter,
		concurrency: int64(concurrency),
		limiter:     limiter,
		logger:      logger.With(slog.String("component", "fetch"), slog.String("venue", adapter.Name())),
	}
}

// Run lists the venue's symbols and fetches every book, returning one result
// per symbol. All results complete (or fail) before Run returns; there is no
// partial consumption. Venues implementing BulkFetcher are served by a single
// request instead of the pool.
func (p *Pool) Run(ctx context.Context) ([]domain.BookResult, error) {
	if bulk, ok := p.adapter.(venue.BulkFetcher); ok {
		results, err := bulk.FetchBooks(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch: %s bulk: %w", p.adapter.Name(), err)
		}
		p.logResults(results)
		return results, nil
	}

	symbols, err := p.adapter.ListSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch: %s list symbols: %w", p.adapter.Name(), err)
	}
	results := p.fetchSymbols(ctx, symbols)
	p.logResults(results)
	return results, nil
}

// fetchSymbols fans out FetchBook calls under the semaphore. Symbols that
// cannot be started (context expired at the admission gate) are still
// accounted for with a failure marker — nothing is silently dropped.
func (p *Pool) fetchSymbols(ctx context.Context, symbols []string) []domain.BookResult {
	results := make([]domain.BookResult, len(symbols))
	sem := semaphore.NewWeighted(p.concurrency)
	var wg sync.WaitGroup

	for i, symbol := range symbols {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				results[i] = domain.BookResult{Symbol: symbol, Status: domain.BookMalformed}
				continue
			}
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = domain.BookResult{Symbol: symbol, Status: domain.BookMalformed}
			continue
		}

		wg.Add(1)
		go func(slot int, symbol string) {
			defer wg.Done()
			defer sem.Release(1)
			results[slot] = p.adapter.FetchBook(ctx, symbol)
		}(i, symbol)
	}

	wg.Wait()
	return results
}

func (p *Pool) logResults(results []domain.BookResult) {
	var ok, rateLimited, failed int
	for _, r := range results {
		switch r.Status {
		case domain.BookOK:
			ok++
		case domain.BookRateLimited:
			rateLimited++
		default:
			failed++
			p.logger.Debug("book fetch failed",
				slog.String("symbol", r.Symbol),
				slog.String("error", r.Err().Error()),
			)
		}
	}
	p.logger.Info("venue fetch complete",
		slog.Int("ok", ok),
		slog.Int("rate_limited", rateLimited),
		slog.Int("failed", failed),
	)
}
