// Package history reconstructs and extends the local ledger from the remote
// account-history API, which caps every query's time span and paginates.
package history

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/basis/internal/domain"
	"github.com/vadiminshakov/basis/internal/services/source"
)

const (
	// DefaultWindow is the widest range a single history query accepts.
	DefaultWindow = 30 * 24 * time.Hour
	// DefaultStopAfter is the span of consecutive empty history that ends a backfill.
	DefaultStopAfter = 30 * 24 * time.Hour
)

// StopPredicate reports whether a backfill should stop, given the total span
// of consecutive empty windows seen so far. Swappable so the empty-run
// heuristic can be replaced, e.g. by an account-creation cutoff.
type StopPredicate func(emptyRun time.Duration) bool

// StopAfterEmptyRun stops once consecutive empty history reaches threshold.
// Anything older than the silence is assumed not to exist; a quiet gap longer
// than the threshold followed by real older history would be missed.
func StopAfterEmptyRun(threshold time.Duration) StopPredicate {
	return func(emptyRun time.Duration) bool {
		return emptyRun >= threshold
	}
}

// Backfiller reconstructs full account history by walking backward from now
// in fixed windows. Used only when the local ledger is empty.
type Backfiller struct {
	src    source.LedgerSource
	window time.Duration
	pace   time.Duration
	stop   StopPredicate
	logger *zap.Logger
}

// NewBackfiller creates a backward scanner over src.
func NewBackfiller(src source.LedgerSource, window, pace time.Duration, stop StopPredicate, logger *zap.Logger) *Backfiller {
	if window <= 0 {
		window = DefaultWindow
	}
	if stop == nil {
		stop = StopAfterEmptyRun(DefaultStopAfter)
	}
	return &Backfiller{
		src:    src,
		window: window,
		pace:   pace,
		stop:   stop,
		logger: logger,
	}
}

// Scan walks backward from now window by window and collects every fill and
// deposit until the stop predicate fires. A failed fetch degrades that source
// to zero records for the window; it never aborts the scan, though it may
// produce a false empty window that ends the backfill early.
func (b *Backfiller) Scan(ctx context.Context, now time.Time) ([]domain.LedgerEntry, error) {
	var (
		out      []domain.LedgerEntry
		emptyRun time.Duration
	)

	windowEnd := now
	for !b.stop(emptyRun) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		windowStart := windowEnd.Add(-b.window)

		fills, err := b.src.ListFills(ctx, windowStart, windowEnd)
		if err != nil {
			b.logger.Warn("fills fetch failed, treating as empty for this window",
				zap.Time("from", windowStart),
				zap.Time("to", windowEnd),
				zap.Error(err))
			fills = nil
		}

		deposits, err := b.src.ListDeposits(ctx, windowStart, windowEnd)
		if err != nil {
			b.logger.Warn("deposits fetch failed, treating as empty for this window",
				zap.Time("from", windowStart),
				zap.Time("to", windowEnd),
				zap.Error(err))
			deposits = nil
		}

		b.logger.Info("backfill window scanned",
			zap.Time("from", windowStart),
			zap.Time("to", windowEnd),
			zap.Int("fills", len(fills)),
			zap.Int("deposits", len(deposits)))

		if len(fills)+len(deposits) > 0 {
			out = append(out, fills...)
			out = append(out, deposits...)
			emptyRun = 0
		} else {
			emptyRun += b.window
		}

		windowEnd = windowStart
		if err := pace(ctx, b.pace); err != nil {
			return nil, err
		}
	}

	b.logger.Info("backfill finished", zap.Int("entries", len(out)))
	return out, nil
}

func pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
