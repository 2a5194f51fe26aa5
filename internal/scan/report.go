package scan

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/kimchibot/internal/domain"
)

// AlertTitle is the header line for spread alert notifications.
const AlertTitle = "Kimchi Premium Alert"

// AlertMessage renders a triggered spread row as the four-line operator
// message.
func AlertMessage(r domain.SpreadResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s is higher than %s by %.2f %%.\n", r.Symbol, r.BaseVenue, r.CompareVenue, r.PctDiff*100)
	fmt.Fprintf(&b, "Absolute Diff - $ %.2f\n", r.USDDiff)
	fmt.Fprintf(&b, "Profit Pct Estimate - %.2f %%\n", r.ProfitPct)
	fmt.Fprintf(&b, "%s Rough USD Liquidity - $ %.2f", r.BaseVenue, r.BaseLiquidityUSD)
	return b.String()
}

// RateLimitMessage summarizes venue throttling for the operator. Symbols are
// listed in fetch order.
func RateLimitMessage(venueName string, symbols []string) string {
	return fmt.Sprintf("%s throttled %d orderbook request(s): %s",
		venueName, len(symbols), strings.Join(symbols, ", "))
}

// HeartbeatMessage is sent once per cycle when no spread cleared the trigger
// gates, so a silent channel still proves the scanner ran.
func HeartbeatMessage(pairs, symbols int) string {
	return fmt.Sprintf("Scan complete. No opportunity above thresholds across %d pair(s), %d joined symbol(s).", pairs, symbols)
}

// FailureMessage reports an aborted cycle.
func FailureMessage(err error) string {
	return "Scan cycle failed: " + err.Error()
}
