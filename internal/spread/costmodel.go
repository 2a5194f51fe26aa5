package spread

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/kimchibot/internal/domain"
)

// CostModel estimates the fractional round-trip cost of realizing a spread:
// buy on the comparison venue, transfer, sell on the base venue, convert
// back. The estimate taxes every row of a pair evaluation.
type CostModel interface {
	// TransferCost returns the cost as a fraction (0.02 = 2%). It must fail
	// rather than guess when its inputs are missing.
	TransferCost(base, compare *domain.PriceTable) (float64, error)
}

// ReferenceSpreadCost approximates transfer cost with the reference asset's
// own cross-venue ask spread: moving value off the base venue via the
// reference asset pays roughly that asset's premium. A heuristic stand-in,
// not a measured fee.
type ReferenceSpreadCost struct {
	// Asset is the normalized reference symbol, e.g. "ETH".
	Asset string
}

// TransferCost computes |base.ask - compare.price| / compare.price for the
// reference asset. The reference asset missing from either table is a hard
// precondition failure: evaluation must not proceed with an undefined
// correction.
func (m ReferenceSpreadCost) TransferCost(base, compare *domain.PriceTable) (float64, error) {
	baseRow, ok := base.Lookup(m.Asset)
	if !ok {
		return 0, fmt.Errorf("spread: %s on %s: %w", m.Asset, base.Venue, domain.ErrMissingReference)
	}
	compRow, ok := compare.Lookup(m.Asset)
	if !ok {
		return 0, fmt.Errorf("spread: %s on %s: %w", m.Asset, compare.Venue, domain.ErrMissingReference)
	}
	if compRow.PriceUSD <= 0 {
		return 0, fmt.Errorf("spread: %s on %s has non-positive price: %w", m.Asset, compare.Venue, domain.ErrMissingReference)
	}

	return math.Abs(baseRow.AskPriceUSD-compRow.PriceUSD) / compRow.PriceUSD, nil
}

// Compile-time interface check.
var _ CostModel = ReferenceSpreadCost{}
