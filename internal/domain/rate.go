package domain

import "time"

// ExchangeRate is the cached local-currency-per-USD conversion factor.
// Hour is the clock hour (0-23) at which the rate was fetched; the rate is
// valid for reuse until the hour boundary is crossed.
type ExchangeRate struct {
	Rate      float64
	Hour      int
	FetchedAt time.Time
}

// FreshAt reports whether the rate may be reused at time t under the
// same-clock-hour freshness policy.
func (r ExchangeRate) FreshAt(t time.Time) bool {
	return r.Rate > 0 && r.Hour == t.Hour()
}
