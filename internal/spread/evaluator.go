// Package spread joins two venues' price tables and decides which rows cross
// the alert thresholds. The evaluation is pure and per-cycle: no state
// carries over between invocations.
package spread

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/alanyoungcy/kimchibot/internal/domain"
)

// Thresholds are the alert gates. A row fires only when every gate holds.
type Thresholds struct {
	ProfitPct         float64
	AbsoluteProfitUSD float64
	LiquidityUSD      float64
}

// Evaluator computes spread results for base x comparison venue pairs.
type Evaluator struct {
	thresholds Thresholds
	cost       CostModel
	logger     *slog.Logger
}

// NewEvaluator creates an Evaluator with the given gates and transfer-cost
// model.
func NewEvaluator(thresholds Thresholds, cost CostModel, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
		cost:       cost,
		logger:     logger.With(slog.String("component", "spread")),
	}
}

// EvaluatePair left-joins base rows onto comparison rows by normalized
// symbol and returns one SpreadResult per joined row. Rows without a
// comparison counterpart are excluded. The transfer-cost precondition is
// evaluated first; its failure aborts the whole pair.
//
// For rows where the base price exceeds the comparison price, the modeled
// round-trip profit is
//
//	profit_pct = 100 * (pct_diff + 1) * (1 - cost) - 100
//
// and abs_profit applies that percentage to the base venue's depth
// liquidity. Rows priced higher on the comparison side keep zero profit and
// never trigger.
func (e *Evaluator) EvaluatePair(base, compare *domain.PriceTable) ([]domain.SpreadResult, error) {
	cost, err := e.cost.TransferCost(base, compare)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s vs %s: %w", base.Venue, compare.Venue, err)
	}

	results := make([]domain.SpreadResult, 0, base.Len())
	for _, symbol := range base.Symbols() {
		baseRow, _ := base.Lookup(symbol)
		compRow, ok := compare.Lookup(symbol)
		if !ok {
			continue
		}
		if compRow.PriceUSD <= 0 {
			continue
		}

		res := domain.SpreadResult{
			Symbol:              symbol,
			BaseVenue:           base.Venue,
			CompareVenue:        compare.Venue,
			USDDiff:             baseRow.PriceUSD - compRow.PriceUSD,
			AskUSDDiff:          baseRow.AskPriceUSD - compRow.PriceUSD,
			BaseLiquidityUSD:    baseRow.LiquidityUSD,
			CompareLiquidityUSD: compRow.LiquidityUSD,
		}
		res.PctDiff = math.Abs(res.USDDiff) / compRow.PriceUSD
		res.AskPctDiff = math.Abs(res.AskUSDDiff) / compRow.PriceUSD

		if res.USDDiff > 0 {
			res.ProfitPct = 100*(res.PctDiff+1)*(1-cost) - 100
			res.AbsProfitUSD = res.ProfitPct / 100 * baseRow.LiquidityUSD
			res.Triggered = res.ProfitPct > e.thresholds.ProfitPct &&
				res.AbsProfitUSD > e.thresholds.AbsoluteProfitUSD &&
				res.BaseLiquidityUSD > e.thresholds.LiquidityUSD &&
				res.CompareLiquidityUSD > e.thresholds.LiquidityUSD
		}

		if res.Triggered {
			e.logger.Debug("row triggered",
				slog.String("symbol", symbol),
				slog.String("base", base.Venue),
				slog.String("compare", compare.Venue),
				slog.Float64("profit_pct", res.ProfitPct),
				slog.Float64("abs_profit_usd", res.AbsProfitUSD),
			)
		}

		results = append(results, res)
	}

	return results, nil
}
