// Package domain defines core data structures used throughout the ledger tool.
package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Source identifies the kind of remote event a ledger entry came from.
type Source string

const (
	// SourceFill marks entries produced by matched spot trades.
	SourceFill Source = "fill"
	// SourceDeposit marks interest-bearing inflows with no transaction price.
	SourceDeposit Source = "deposit"
)

// Side of a ledger entry. Deposits are never buy or sell.
type Side string

const (
	SideBuy     Side = "buy"
	SideSell    Side = "sell"
	SideDeposit Side = "deposit"
)

// Pair is an asset pair in BASE_QUOTE form.
type Pair struct {
	// Base currency symbol.
	Base string
	// Quote currency symbol.
	Quote string
}

// String returns the string representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.Base, p.Quote)
}

// Symbol returns the concatenated symbol representation.
func (p Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.Base, p.Quote)
}

// PairFromString parses a BASE_QUOTE pair. A missing quote part defaults to
// USDT, matching how the exchange reports single-currency pairs.
func PairFromString(s string) (Pair, error) {
	if s == "" {
		return Pair{}, fmt.Errorf("empty pair")
	}
	parts := strings.Split(s, "_")
	if len(parts) == 1 {
		return Pair{Base: parts[0], Quote: "USDT"}, nil
	}
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, fmt.Errorf("invalid pair %q", s)
	}
	return Pair{Base: parts[0], Quote: parts[1]}, nil
}

// LedgerEntry is one immutable row of the account ledger. Entries are created
// only from remote source responses and never mutated afterwards.
type LedgerEntry struct {
	// ID is globally unique: source prefix plus the remote id, or
	// currency+timestamp for deposits lacking a natural id.
	ID     string
	Source Source
	// OccurredAt is the canonical sort key, unix seconds UTC.
	OccurredAt int64
	// OccurredAtMilli disambiguates entries that collide at second granularity.
	OccurredAtMilli int64
	AssetPair       string
	BaseAsset       string
	QuoteAsset      string
	Side            Side
	// Quantity of the base asset transacted or deposited.
	Quantity decimal.Decimal
	// UnitPrice is zero for deposits.
	UnitPrice decimal.Decimal
	FeeAmount decimal.Decimal
	FeeAsset  string
	OrderRef  string
}

// String returns a human-readable string representation.
func (e *LedgerEntry) String() string {
	return fmt.Sprintf("%s %s %s %s @ %s", e.ID, e.AssetPair, e.Side, e.Quantity.String(), e.UnitPrice.String())
}
