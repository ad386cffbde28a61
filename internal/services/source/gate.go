package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/antihax/optional"
	gateapi "github.com/gateio/gateapi-go/v6"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/basis/internal/domain"
	"github.com/vadiminshakov/basis/pkg/retrier"
)

const (
	gateFillsPageLimit    = 1000
	gateDepositsPageLimit = 100

	// label Gate returns when from/to fall outside the accepted range;
	// benign end-of-data, never a failure
	gateLabelInvalidParam = "INVALID_PARAM_VALUE"
)

// GateSource reads spot fills and EarnUni lending inflows from Gate.io.
// Each list call walks every page of the range before returning.
type GateSource struct {
	client  *gateapi.APIClient
	key     string
	secret  string
	pace    time.Duration
	retrier *retrier.Retrier
	logger  *zap.Logger
}

// NewGateSource creates a Gate.io backed ledger source.
func NewGateSource(client *gateapi.APIClient, key, secret string, pace time.Duration, logger *zap.Logger) *GateSource {
	return &GateSource{
		client: client,
		key:    key,
		secret: secret,
		pace:   pace,
		retrier: retrier.New(
			retrier.WithInitialInterval(200*time.Millisecond),
			retrier.WithMaxRetries(2),
		),
		logger: logger,
	}
}

func (s *GateSource) auth(ctx context.Context) context.Context {
	return context.WithValue(ctx, gateapi.ContextGateAPIV4, gateapi.GateAPIV4{
		Key:    s.key,
		Secret: s.secret,
	})
}

// ListFills returns all spot trades with create time in [from, to).
func (s *GateSource) ListFills(ctx context.Context, from, to time.Time) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry

	for page := int32(1); ; page++ {
		trades, err := retrier.DoWithData(s.retrier, ctx, func(ctx context.Context) ([]gateapi.Trade, error) {
			opts := &gateapi.ListMyTradesOpts{
				Limit: optional.NewInt32(gateFillsPageLimit),
				Page:  optional.NewInt32(page),
				From:  optional.NewInt64(from.Unix()),
				To:    optional.NewInt64(to.Unix()),
			}
			trades, _, err := s.client.SpotApi.ListMyTrades(s.auth(ctx), opts)
			if err != nil && isGateParamRange(err) {
				return nil, nil
			}
			return trades, err
		})
		if err != nil {
			return nil, errors.Wrapf(err, "list gate spot trades page %d", page)
		}
		if len(trades) == 0 {
			break
		}

		for _, t := range trades {
			entry, err := fillFromGateTrade(t)
			if err != nil {
				return nil, errors.Wrapf(err, "decode gate trade %s", t.Id)
			}
			entries = append(entries, entry)
		}

		if len(trades) < gateFillsPageLimit {
			break
		}
		if err := pace(ctx, s.pace); err != nil {
			return nil, err
		}
	}

	return entries, nil
}

// ListDeposits returns all EarnUni lending records with create time in [from, to).
func (s *GateSource) ListDeposits(ctx context.Context, from, to time.Time) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry

	for page := int32(1); ; page++ {
		records, err := retrier.DoWithData(s.retrier, ctx, func(ctx context.Context) ([]gateapi.UniLendRecord, error) {
			opts := &gateapi.ListUniLendRecordsOpts{
				Limit: optional.NewInt32(gateDepositsPageLimit),
				Page:  optional.NewInt32(page),
				From:  optional.NewInt64(from.Unix()),
				To:    optional.NewInt64(to.Unix()),
			}
			records, _, err := s.client.EarnUniApi.ListUniLendRecords(s.auth(ctx), opts)
			if err != nil && isGateParamRange(err) {
				return nil, nil
			}
			return records, err
		})
		if err != nil {
			return nil, errors.Wrapf(err, "list gate earn records page %d", page)
		}
		if len(records) == 0 {
			break
		}

		for _, r := range records {
			entry, err := depositFromGateRecord(r)
			if err != nil {
				return nil, errors.Wrapf(err, "decode gate earn record for %s", r.Currency)
			}
			entries = append(entries, entry)
		}

		if len(records) < gateDepositsPageLimit {
			break
		}
		if err := pace(ctx, s.pace); err != nil {
			return nil, err
		}
	}

	return entries, nil
}

func fillFromGateTrade(t gateapi.Trade) (domain.LedgerEntry, error) {
	sec, err := parseUnix(t.CreateTime)
	if err != nil {
		return domain.LedgerEntry{}, errors.Wrap(err, "parse create time")
	}

	ms := sec * 1000
	if t.CreateTimeMs != "" {
		if precise, err := parseUnix(t.CreateTimeMs); err == nil {
			ms = precise
		}
	}

	pair, err := domain.PairFromString(t.CurrencyPair)
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	quantity, err := decimal.NewFromString(t.Amount)
	if err != nil {
		return domain.LedgerEntry{}, errors.Wrap(err, "parse amount")
	}
	price, err := decimal.NewFromString(t.Price)
	if err != nil {
		return domain.LedgerEntry{}, errors.Wrap(err, "parse price")
	}
	fee := decimal.Zero
	if t.Fee != "" {
		fee, err = decimal.NewFromString(t.Fee)
		if err != nil {
			return domain.LedgerEntry{}, errors.Wrap(err, "parse fee")
		}
	}

	var side domain.Side
	switch t.Side {
	case "buy":
		side = domain.SideBuy
	case "sell":
		side = domain.SideSell
	default:
		return domain.LedgerEntry{}, fmt.Errorf("unknown trade side %q", t.Side)
	}

	return domain.LedgerEntry{
		ID:              "spot_" + t.Id,
		Source:          domain.SourceFill,
		OccurredAt:      sec,
		OccurredAtMilli: ms,
		AssetPair:       pair.String(),
		BaseAsset:       pair.Base,
		QuoteAsset:      pair.Quote,
		Side:            side,
		Quantity:        quantity,
		UnitPrice:       price,
		FeeAmount:       fee,
		FeeAsset:        t.FeeCurrency,
		OrderRef:        t.OrderId,
	}, nil
}

func depositFromGateRecord(r gateapi.UniLendRecord) (domain.LedgerEntry, error) {
	// EarnUni create times are reported in milliseconds
	ms := r.CreateTime
	sec := ms / 1000

	quantity, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return domain.LedgerEntry{}, errors.Wrap(err, "parse amount")
	}

	pair := domain.Pair{Base: r.Currency, Quote: "USDT"}

	return domain.LedgerEntry{
		ID:              fmt.Sprintf("earn_%s_%d", r.Currency, ms),
		Source:          domain.SourceDeposit,
		OccurredAt:      sec,
		OccurredAtMilli: ms,
		AssetPair:       pair.String(),
		BaseAsset:       pair.Base,
		QuoteAsset:      pair.Quote,
		Side:            domain.SideDeposit,
		Quantity:        quantity,
		UnitPrice:       decimal.Zero,
		FeeAmount:       decimal.Zero,
		FeeAsset:        r.Currency,
	}, nil
}

func isGateParamRange(err error) bool {
	var apiErr gateapi.GateAPIError
	if errors.As(err, &apiErr) {
		return apiErr.Label == gateLabelInvalidParam
	}
	return false
}

// parseUnix handles timestamps Gate reports as strings with an optional
// fractional part, e.g. "1648628897" or "1648628897632.783".
func parseUnix(s string) (int64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
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
