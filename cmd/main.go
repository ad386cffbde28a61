// Command basis keeps a durable local ledger of an exchange account's trade
// fills and interest deposits and derives per-asset weighted average
// acquisition cost. The first run backfills full history in windows; later
// runs fetch only new records.
//
// Usage:
//
//	basis --config config.yaml
//	basis (uses CLI arguments)
//
// Required environment variables (a .env file is honored):
//
//	For Gate: GATE_API_KEY, GATE_API_SECRET
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//
// Exits with status 2 when credentials are missing, before any network call.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vadiminshakov/basis/config"
	"github.com/vadiminshakov/basis/internal"
	"github.com/vadiminshakov/basis/internal/clients"
	"github.com/vadiminshakov/basis/internal/services/history"
	"github.com/vadiminshakov/basis/internal/services/source"
	"github.com/vadiminshakov/basis/internal/storage/ledger"
	"github.com/vadiminshakov/basis/internal/storage/snapshot"
)

const (
	ledgerFileName   = "trades.csv"
	snapshotFileName = "daily_stats.csv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var src source.LedgerSource
	switch cfg.Platform {
	case "gate":
		apiKey := os.Getenv("GATE_API_KEY")
		apiSecret := os.Getenv("GATE_API_SECRET")
		if apiKey == "" || apiSecret == "" {
			fmt.Fprintln(os.Stderr, "GATE_API_KEY and GATE_API_SECRET environment variables must be set")
			os.Exit(2)
		}
		src = source.NewGateSource(clients.NewGateClient(), apiKey, apiSecret, cfg.Pace, logger)
	case "binance":
		apiKey := os.Getenv("BINANCE_API_KEY")
		apiSecret := os.Getenv("BINANCE_API_SECRET")
		if apiKey == "" || apiSecret == "" {
			fmt.Fprintln(os.Stderr, "BINANCE_API_KEY and BINANCE_API_SECRET environment variables must be set")
			os.Exit(2)
		}
		src = source.NewBinanceSource(clients.NewBinanceClient(apiKey, apiSecret), cfg.Pairs, cfg.Pace, logger)
	default:
		log.Fatalf("unsupported platform %q", cfg.Platform)
	}

	ledgerStore, err := ledger.NewStore(filepath.Join(cfg.DataDir, ledgerFileName))
	if err != nil {
		log.Fatal(err)
	}
	snapshotStore, err := snapshot.NewStore(filepath.Join(cfg.DataDir, snapshotFileName))
	if err != nil {
		log.Fatal(err)
	}

	window := time.Duration(cfg.WindowDays) * 24 * time.Hour
	stopAfter := time.Duration(cfg.StopEmptyDays) * 24 * time.Hour

	app := internal.NewApp(
		history.NewBackfiller(src, window, cfg.Pace, history.StopAfterEmptyRun(stopAfter), logger),
		history.NewIncrementalSyncer(src, window, cfg.Pace, logger),
		ledgerStore,
		snapshotStore,
		logger,
		os.Stdout,
	)

	if err := app.Run(ctx, time.Now()); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}
