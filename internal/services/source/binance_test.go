package source

import (
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/basis/internal/domain"
)

func TestFillFromBinanceTrade(t *testing.T) {
	pair := domain.Pair{Base: "BTC", Quote: "USDT"}
	trade := &binance.TradeV3{
		ID:              42,
		Symbol:          "BTCUSDT",
		Price:           "65000.5",
		Quantity:        "0.25",
		Commission:      "0.00025",
		CommissionAsset: "BTC",
		Time:            1756641600123,
		IsBuyer:         true,
		OrderID:         987654,
	}

	entry, err := fillFromBinanceTrade(pair, trade)
	require.NoError(t, err)

	assert.Equal(t, "spot_BTCUSDT_42", entry.ID)
	assert.Equal(t, domain.SourceFill, entry.Source)
	assert.Equal(t, int64(1756641600), entry.OccurredAt)
	assert.Equal(t, int64(1756641600123), entry.OccurredAtMilli)
	assert.Equal(t, "BTC_USDT", entry.AssetPair)
	assert.Equal(t, "BTC", entry.BaseAsset)
	assert.Equal(t, "USDT", entry.QuoteAsset)
	assert.Equal(t, domain.SideBuy, entry.Side)
	assert.True(t, entry.Quantity.Equal(decimal.RequireFromString("0.25")))
	assert.True(t, entry.UnitPrice.Equal(decimal.RequireFromString("65000.5")))
	assert.True(t, entry.FeeAmount.Equal(decimal.RequireFromString("0.00025")))
	assert.Equal(t, "BTC", entry.FeeAsset)
	assert.Equal(t, "987654", entry.OrderRef)
}

func TestFillFromBinanceTradeSellerSide(t *testing.T) {
	pair := domain.Pair{Base: "ETH", Quote: "USDT"}
	trade := &binance.TradeV3{
		ID:       7,
		Price:    "3000",
		Quantity: "1",
		Time:     1756641600000,
		IsBuyer:  false,
	}

	entry, err := fillFromBinanceTrade(pair, trade)
	require.NoError(t, err)
	assert.Equal(t, domain.SideSell, entry.Side)
	assert.True(t, entry.FeeAmount.IsZero())
}

func TestFillFromBinanceTradeRejectsBadQuantity(t *testing.T) {
	pair := domain.Pair{Base: "BTC", Quote: "USDT"}
	_, err := fillFromBinanceTrade(pair, &binance.TradeV3{Quantity: "not-a-number"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity")
}

func TestTimeSlicesCapsRangeWidth(t *testing.T) {
	from := time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)
	to := from.Add(70 * time.Hour)

	slices := timeSlices(from, to, 24*time.Hour)
	require.Len(t, slices, 3)

	assert.Equal(t, from, slices[0][0])
	assert.Equal(t, to, slices[2][1])
	for i, r := range slices {
		assert.LessOrEqual(t, r[1].Sub(r[0]), 24*time.Hour)
		if i > 0 {
			assert.Equal(t, slices[i-1][1], r[0])
		}
	}
}

func TestTimeSlicesSingleSliceWhenRangeFits(t *testing.T) {
	from := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	to := from.Add(6 * time.Hour)

	slices := timeSlices(from, to, 24*time.Hour)
	require.Len(t, slices, 1)
	assert.Equal(t, [2]time.Time{from, to}, slices[0])
}

func TestTimeSlicesEmptyRange(t *testing.T) {
	at := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, timeSlices(at, at, 24*time.Hour))
}
