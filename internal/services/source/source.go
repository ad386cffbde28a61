// Package source abstracts the exchange account-history API.
package source

import (
	"context"
	"time"

	"github.com/vadiminshakov/basis/internal/domain"
)

// LedgerSource lists account history events with occurred_at in [from, to).
// Implementations exhaust pagination internally and convert raw exchange
// records into domain.LedgerEntry, so callers always receive fully-typed
// collections. A returned error means the whole call yielded no usable data.
type LedgerSource interface {
	ListFills(ctx context.Context, from, to time.Time) ([]domain.LedgerEntry, error)
	ListDeposits(ctx context.Context, from, to time.Time) ([]domain.LedgerEntry, error)
}
