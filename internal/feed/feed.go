// Package feed streams live reference-asset prices over venue websockets and
// logs the instantaneous premium. The scan path stays REST-snapshot-based;
// this is an operator's live view, not an alert source.
package feed

import (
	"context"
	"time"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// Tick is one live price observation from a venue stream. Price is in the
// venue's native quote currency.
type Tick struct {
	Venue  string
	Symbol string // venue-native market identifier
	Price  float64
	Time   time.Time
}

// TickHandler is called for every received tick.
type TickHandler func(ctx context.Context, tick Tick)
