package domain

import "time"

// SpreadResult is the per-symbol outcome of joining a base venue's row
// against a comparison venue's row. It exists only to decide alert emission
// within one evaluation; nothing persists it.
type SpreadResult struct {
	Symbol       string
	BaseVenue    string
	CompareVenue string

	USDDiff    float64 // base.price_usd - comparison.price_usd
	PctDiff    float64 // |USDDiff| / comparison.price_usd
	AskUSDDiff float64
	AskPctDiff float64

	ProfitPct    float64 // modeled round-trip profit, percent
	AbsProfitUSD float64 // ProfitPct applied to base-venue liquidity

	BaseLiquidityUSD    float64
	CompareLiquidityUSD float64

	Triggered bool
}

// Alert is a fired spread alert, ready for the operator channel and the
// durable alert log.
type Alert struct {
	ID           string
	CycleID      string
	Symbol       string
	BaseVenue    string
	CompareVenue string
	PctDiff      float64
	USDDiff      float64
	ProfitPct    float64
	AbsProfitUSD float64
	LiquidityUSD float64
	DetectedAt   time.Time
}
