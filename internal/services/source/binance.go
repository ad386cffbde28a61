package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/basis/internal/domain"
	"github.com/vadiminshakov/basis/pkg/retrier"
)

const (
	binanceFillsPageLimit = 1000

	// myTrades rejects requests with startTime and endTime more than
	// 24 hours apart (error -1127)
	binanceMaxTradeRange = 24 * time.Hour
)

// BinanceSource reads spot fills and deposit inflows from Binance.
// MyTrades on Binance is a per-symbol query, so the source walks a configured
// set of pairs for every range instead of one account-wide listing.
type BinanceSource struct {
	client  *binance.Client
	pairs   []domain.Pair
	pace    time.Duration
	retrier *retrier.Retrier
	logger  *zap.Logger
}

// NewBinanceSource creates a Binance backed ledger source for the given pairs.
func NewBinanceSource(client *binance.Client, pairs []domain.Pair, pace time.Duration, logger *zap.Logger) *BinanceSource {
	return &BinanceSource{
		client: client,
		pairs:  pairs,
		pace:   pace,
		retrier: retrier.New(
			retrier.WithInitialInterval(200*time.Millisecond),
			retrier.WithMaxRetries(2),
		),
		logger: logger,
	}
}

// ListFills returns all spot trades over the configured pairs in [from, to).
func (s *BinanceSource) ListFills(ctx context.Context, from, to time.Time) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry

	for _, pair := range s.pairs {
		pairEntries, err := s.listPairFills(ctx, pair, from, to)
		if err != nil {
			return nil, errors.Wrapf(err, "list binance trades for %s", pair.String())
		}
		entries = append(entries, pairEntries...)

		if err := pace(ctx, s.pace); err != nil {
			return nil, err
		}
	}

	return entries, nil
}

func (s *BinanceSource) listPairFills(ctx context.Context, pair domain.Pair, from, to time.Time) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry

	for i, slice := range timeSlices(from, to, binanceMaxTradeRange) {
		if i > 0 {
			if err := pace(ctx, s.pace); err != nil {
				return nil, err
			}
		}
		sliceEntries, err := s.listPairFillsRange(ctx, pair, slice[0], slice[1])
		if err != nil {
			return nil, err
		}
		entries = append(entries, sliceEntries...)
	}

	return entries, nil
}

func (s *BinanceSource) listPairFillsRange(ctx context.Context, pair domain.Pair, from, to time.Time) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry

	fromID := int64(-1)
	for {
		trades, err := retrier.DoWithData(s.retrier, ctx, func(ctx context.Context) ([]*binance.TradeV3, error) {
			svc := s.client.NewListTradesService().
				Symbol(pair.Symbol()).
				Limit(binanceFillsPageLimit)
			if fromID >= 0 {
				// paginate by trade id once the first window page is in
				svc.FromID(fromID)
			} else {
				svc.StartTime(from.UnixMilli()).EndTime(to.UnixMilli() - 1)
			}
			return svc.Do(ctx)
		})
		if err != nil {
			return nil, err
		}
		if len(trades) == 0 {
			break
		}

		done := false
		for _, t := range trades {
			if t.Time >= to.UnixMilli() {
				done = true
				break
			}
			if t.Time < from.UnixMilli() {
				continue
			}
			entry, err := fillFromBinanceTrade(pair, t)
			if err != nil {
				return nil, errors.Wrapf(err, "decode binance trade %d", t.ID)
			}
			entries = append(entries, entry)
		}
		if done || len(trades) < binanceFillsPageLimit {
			break
		}

		fromID = trades[len(trades)-1].ID + 1
		if err := pace(ctx, s.pace); err != nil {
			return nil, err
		}
	}

	return entries, nil
}

// timeSlices splits [from, to) into consecutive ranges no wider than max.
func timeSlices(from, to time.Time, max time.Duration) [][2]time.Time {
	var out [][2]time.Time
	for cur := from; cur.Before(to); {
		end := cur.Add(max)
		if end.After(to) {
			end = to
		}
		out = append(out, [2]time.Time{cur, end})
		cur = end
	}
	return out
}

// ListDeposits returns all deposit records with insert time in [from, to).
func (s *BinanceSource) ListDeposits(ctx context.Context, from, to time.Time) ([]domain.LedgerEntry, error) {
	deposits, err := retrier.DoWithData(s.retrier, ctx, func(ctx context.Context) ([]*binance.Deposit, error) {
		return s.client.NewListDepositsService().
			StartTime(from.UnixMilli()).
			EndTime(to.UnixMilli() - 1).
			Do(ctx)
	})
	if err != nil {
		return nil, errors.Wrap(err, "list binance deposits")
	}

	entries := make([]domain.LedgerEntry, 0, len(deposits))
	for _, d := range deposits {
		quantity, err := decimal.NewFromString(d.Amount)
		if err != nil {
			return nil, errors.Wrapf(err, "decode binance deposit for %s", d.Coin)
		}

		pair := domain.Pair{Base: d.Coin, Quote: "USDT"}
		entries = append(entries, domain.LedgerEntry{
			ID:              fmt.Sprintf("earn_%s_%d", d.Coin, d.InsertTime),
			Source:          domain.SourceDeposit,
			OccurredAt:      d.InsertTime / 1000,
			OccurredAtMilli: d.InsertTime,
			AssetPair:       pair.String(),
			BaseAsset:       pair.Base,
			QuoteAsset:      pair.Quote,
			Side:            domain.SideDeposit,
			Quantity:        quantity,
			UnitPrice:       decimal.Zero,
			FeeAmount:       decimal.Zero,
			FeeAsset:        d.Coin,
		})
	}

	return entries, nil
}

func fillFromBinanceTrade(pair domain.Pair, t *binance.TradeV3) (domain.LedgerEntry, error) {
	quantity, err := decimal.NewFromString(t.Quantity)
	if err != nil {
		return domain.LedgerEntry{}, errors.Wrap(err, "parse quantity")
	}
	price, err := decimal.NewFromString(t.Price)
	if err != nil {
		return domain.LedgerEntry{}, errors.Wrap(err, "parse price")
	}
	fee := decimal.Zero
	if t.Commission != "" {
		fee, err = decimal.NewFromString(t.Commission)
		if err != nil {
			return domain.LedgerEntry{}, errors.Wrap(err, "parse commission")
		}
	}

	side := domain.SideSell
	if t.IsBuyer {
		side = domain.SideBuy
	}

	return domain.LedgerEntry{
		ID:              fmt.Sprintf("spot_%s_%d", pair.Symbol(), t.ID),
		Source:          domain.SourceFill,
		OccurredAt:      t.Time / 1000,
		OccurredAtMilli: t.Time,
		AssetPair:       pair.String(),
		BaseAsset:       pair.Base,
		QuoteAsset:      pair.Quote,
		Side:            side,
		Quantity:        quantity,
		UnitPrice:       price,
		FeeAmount:       fee,
		FeeAsset:        t.CommissionAsset,
		OrderRef:        strconv.FormatInt(t.OrderID, 10),
	}, nil
}
