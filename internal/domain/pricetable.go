package domain

// PriceRow is one asset's USD-normalized pricing on a single venue.
// AskPriceUSD is populated for base venues only; comparison venues are read
// at their bid/trade price.
type PriceRow struct {
	Symbol       string // normalized base asset, e.g. "ETH"
	PriceUSD     float64
	AskPriceUSD  float64
	LiquidityUSD float64
}

// PriceTable holds one venue's rows keyed by normalized symbol. Symbols are
// unique within a table; rows with missing or non-positive book data are
// excluded at build time, never zero-filled.
type PriceTable struct {
	Venue string
	rows  map[string]PriceRow
	order []string
}

// NewPriceTable creates an empty table for the given venue display name.
func NewPriceTable(venue string) *PriceTable {
	return &PriceTable{
		Venue: venue,
		rows:  make(map[string]PriceRow),
	}
}

// Add inserts a row. A later row for the same symbol replaces the earlier one
// without disturbing iteration order.
func (t *PriceTable) Add(row PriceRow) {
	if _, ok := t.rows[row.Symbol]; !ok {
		t.order = append(t.order, row.Symbol)
	}
	t.rows[row.Symbol] = row
}

// Lookup returns the row for a normalized symbol.
func (t *PriceTable) Lookup(symbol string) (PriceRow, bool) {
	row, ok := t.rows[symbol]
	return row, ok
}

// Len returns the number of rows.
func (t *PriceTable) Len() int {
	return len(t.rows)
}

// Symbols returns the symbols in insertion order.
func (t *PriceTable) Symbols() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}
