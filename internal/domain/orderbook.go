package domain

import "time"

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderBookSnapshot is the depth-reduced view of one venue orderbook: top of
// book plus the notional liquidity available inside the configured band around
// mid. Prices and liquidity are in the venue's native quote currency.
// Snapshots are built fresh each scan cycle and never mutated.
type OrderBookSnapshot struct {
	Venue     string
	Symbol    string // venue-native market identifier, e.g. "KRW-ETH" or "ETHUSDT"
	Bid       float64
	Ask       float64
	Liquidity float64
	Time      time.Time
}

// Mid returns the midpoint between best bid and best ask.
func (s OrderBookSnapshot) Mid() float64 {
	return (s.Bid + s.Ask) / 2
}

// BookStatus classifies the outcome of a single orderbook fetch. Callers
// switch on the status instead of untangling error chains; only BookOK
// carries a usable snapshot.
type BookStatus int

const (
	BookOK BookStatus = iota
	// BookRateLimited means the venue explicitly rejected the request for
	// throttling reasons. The symbol is dropped for the cycle and the
	// operator is notified separately from generic failures.
	BookRateLimited
	// BookNotFound means the venue does not know the symbol.
	BookNotFound
	// BookMalformed means the response decoded but carried no usable levels
	// (empty book, missing fields, non-positive prices).
	BookMalformed
)

// String returns a short identifier for logging.
func (s BookStatus) String() string {
	switch s {
	case BookOK:
		return "ok"
	case BookRateLimited:
		return "rate_limited"
	case BookNotFound:
		return "not_found"
	case BookMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// BookResult is the tagged outcome of fetching one symbol's orderbook.
// Snapshot is only meaningful when Status == BookOK.
type BookResult struct {
	Symbol   string
	Status   BookStatus
	Snapshot OrderBookSnapshot
}

// Err maps a non-OK status to its sentinel error, or nil for BookOK.
func (r BookResult) Err() error {
	switch r.Status {
	case BookOK:
		return nil
	case BookRateLimited:
		return ErrRateLimited
	case BookNotFound:
		return ErrNotFound
	default:
		return ErrMalformedResponse
	}
}
