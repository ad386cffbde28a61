// Package internal wires the sync pipeline: load the cached ledger, backfill
// or incrementally sync against the remote source, merge and persist, then
// derive cost basis and append the daily snapshot.
package internal

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/basis/internal/domain"
	"github.com/vadiminshakov/basis/internal/report"
	"github.com/vadiminshakov/basis/internal/services/costbasis"
	"github.com/vadiminshakov/basis/internal/services/history"
	"github.com/vadiminshakov/basis/internal/storage/ledger"
	"github.com/vadiminshakov/basis/internal/storage/snapshot"
)

// App runs one full sync-and-aggregate pass. Strictly sequential; nothing
// here mutates shared state concurrently.
type App struct {
	backfiller *history.Backfiller
	syncer     *history.IncrementalSyncer
	ledger     *ledger.Store
	snapshots  *snapshot.Store
	logger     *zap.Logger
	out        io.Writer
}

// NewApp wires the pipeline. All collaborators are injected so the remote
// source behind backfiller and syncer can be a deterministic fake in tests.
func NewApp(
	backfiller *history.Backfiller,
	syncer *history.IncrementalSyncer,
	ledgerStore *ledger.Store,
	snapshotStore *snapshot.Store,
	logger *zap.Logger,
	out io.Writer,
) *App {
	return &App{
		backfiller: backfiller,
		syncer:     syncer,
		ledger:     ledgerStore,
		snapshots:  snapshotStore,
		logger:     logger,
		out:        out,
	}
}

// Run executes one pass as of now and returns once the summary is printed
// and the snapshot appended.
func (a *App) Run(ctx context.Context, now time.Time) error {
	cached, err := a.ledger.Load()
	if err != nil {
		return errors.Wrap(err, "load cached ledger")
	}

	var fresh []domain.LedgerEntry
	if len(cached) == 0 {
		a.logger.Info("no cached ledger, starting full backfill")
		fresh, err = a.backfiller.Scan(ctx, now)
	} else {
		last, _ := ledger.LastTimestamp(cached)
		a.logger.Info("cached ledger loaded",
			zap.Int("entries", len(cached)),
			zap.Time("last_entry", time.Unix(last, 0).UTC()))
		fresh, err = a.syncer.SyncSince(ctx, time.Unix(last, 0), now)
	}
	if err != nil {
		return errors.Wrap(err, "fetch remote history")
	}

	merged := ledger.Merge(cached, fresh)
	if len(merged) == 0 {
		a.logger.Info("no ledger entries found, nothing to do")
		return nil
	}

	if len(fresh) > 0 {
		if err := a.ledger.Persist(merged); err != nil {
			return errors.Wrap(err, "persist ledger")
		}
		a.logger.Info("ledger persisted",
			zap.Int("entries", len(merged)),
			zap.Int("new", len(fresh)))
	} else {
		a.logger.Info("no new entries, ledger left untouched")
	}

	stats := costbasis.Compute(merged)
	if len(stats) == 0 {
		a.logger.Info("no buy fills in ledger, skipping cost basis output")
		return nil
	}

	fmt.Fprintln(a.out, report.Render(now, stats))

	if err := a.snapshots.AppendDaily(now, stats); err != nil {
		return errors.Wrap(err, "append daily snapshot")
	}
	a.logger.Info("daily snapshot written", zap.Int("assets", len(stats)))

	return nil
}
