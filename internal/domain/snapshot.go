package domain

import "github.com/shopspring/decimal"

// SnapshotRow is one dated cost-basis aggregate in the daily snapshot table.
// The table holds at most one row per (date, currency).
type SnapshotRow struct {
	// Date in YYYY-MM-DD form.
	Date          string
	Currency      string
	TotalQuantity decimal.Decimal
	TotalCost     decimal.Decimal
	AvgPrice      decimal.Decimal
}
