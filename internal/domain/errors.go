package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrMalformedResponse = errors.New("malformed response")
	ErrMissingReference  = errors.New("reference asset missing from price table")
	ErrStaleRate         = errors.New("exchange rate is stale")
	ErrLockHeld          = errors.New("lock already held")
)
