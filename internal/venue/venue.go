// Package venue defines the exchange adapter contract and the shared
// depth-liquidity math applied to every venue's orderbook.
package venue

import (
	"context"

	"github.com/alanyoungcy/kimchibot/internal/domain"
)

// Adapter is the contract every exchange integration implements: list the
// relevant market universe, fetch one symbol's book, and translate between
// venue-native identifiers and normalized base-asset symbols.
type Adapter interface {
	// Name returns the venue display name, e.g. "Upbit".
	Name() string
	// ListSymbols returns venue-native market identifiers filtered to the
	// venue's relevant quote-currency market, with deny-listed and excluded
	// assets already removed. No orderbook traffic happens here.
	ListSymbols(ctx context.Context) ([]string, error)
	// FetchBook returns the depth-reduced orderbook for one venue-native
	// symbol. Failures are reported in the result's Status, never by panic.
	FetchBook(ctx context.Context, symbol string) domain.BookResult
	// Normalize strips the venue's quote-currency marker from a market
	// identifier. It is idempotent: normalizing a normalized symbol is a
	// no-op.
	Normalize(symbol string) string
}

// BulkFetcher is implemented by venues whose API returns every orderbook in a
// single call. The fetcher uses it instead of fanning out per symbol.
type BulkFetcher interface {
	FetchBooks(ctx context.Context) ([]domain.BookResult, error)
}

// BidBandLiquidity sums price*size over bid levels whose price is at or above
// (1-band)*mid. This is the sell-side absorption capacity on a base venue:
// the notional that can be sold into without leaving the band.
func BidBandLiquidity(bids []domain.PriceLevel, mid, band float64) float64 {
	floor := (1 - band) * mid
	var total float64
	for _, lvl := range bids {
		if lvl.Price >= floor {
			total += lvl.Price * lvl.Size
		}
	}
	return total
}

// AskBandLiquidity sums price*size over ask levels whose price is at or below
// (1+band)*mid. This is the buy-side absorption capacity on a comparison
// venue: the notional that can be bought without leaving the band.
func AskBandLiquidity(asks []domain.PriceLevel, mid, band float64) float64 {
	ceil := (1 + band) * mid
	var total float64
	for _, lvl := range asks {
		if lvl.Price <= ceil {
			total += lvl.Price * lvl.Size
		}
	}
	return total
}

// Excluder reports whether a normalized symbol is deny-listed or maps to a
// different underlying instrument on this venue. Built once from config.
type Excluder struct {
	blocked map[string]bool
}

// NewExcluder combines a venue's deny list and instrument-exclusion list into
// a single lookup over normalized symbols.
func NewExcluder(denyList, excludeSymbols []string) *Excluder {
	blocked := make(map[string]bool, len(denyList)+len(excludeSymbols))
	for _, s := range denyList {
		blocked[s] = true
	}
	for _, s := range excludeSymbols {
		blocked[s] = true
	}
	return &Excluder{blocked: blocked}
}

// Excluded reports whether the normalized symbol must be skipped.
func (e *Excluder) Excluded(symbol string) bool {
	return e.blocked[symbol]
}
