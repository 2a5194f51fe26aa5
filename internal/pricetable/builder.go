// Package pricetable assembles per-venue fetch results into USD-normalized
// price tables.
package pricetable

import (
	"fmt"

	"github.com/alanyoungcy/kimchibot/internal/domain"
	"github.com/alanyoungcy/kimchibot/internal/venue"
)

// Build converts one venue's orderbook results into a PriceTable keyed by
// normalized symbol. divisor is the venue-native-currency units per USD: the
// cached FX rate for won venues, 1 for dollar-stablecoin venues. Bid, ask,
// and liquidity are all divided by the same divisor.
//
// Rows whose fetch failed, or whose book carries non-positive prices or
// liquidity, are omitted — never zero-filled. The second return value lists
// the venue-native symbols the venue throttled this cycle so the caller can
// raise the distinct rate-limit notification.
func Build(adapter venue.Adapter, results []domain.BookResult, divisor float64) (*domain.PriceTable, []string, error) {
	if divisor <= 0 {
		return nil, nil, fmt.Errorf("pricetable: %s: non-positive divisor %g", adapter.Name(), divisor)
	}

	table := domain.NewPriceTable(adapter.Name())
	var rateLimited []string

	for _, r := range results {
		switch r.Status {
		case domain.BookOK:
			snap := r.Snapshot
			if snap.Bid <= 0 || snap.Ask <= 0 || snap.Liquidity <= 0 {
				continue
			}
			table.Add(domain.PriceRow{
				Symbol:       adapter.Normalize(r.Symbol),
				PriceUSD:     snap.Bid / divisor,
				AskPriceUSD:  snap.Ask / divisor,
				LiquidityUSD: snap.Liquidity / divisor,
			})
		case domain.BookRateLimited:
			rateLimited = append(rateLimited, r.Symbol)
		default:
			// Malformed or missing books are silently excluded; the next
			// cycle is the retry.
		}
	}

	return table, rateLimited, nil
}
