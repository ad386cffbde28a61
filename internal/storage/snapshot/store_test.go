package snapshot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/basis/internal/domain"
)

func stats() []domain.AssetCostBasis {
	return []domain.AssetCostBasis{
		{
			Currency:      "BTC",
			TotalQuantity: decimal.NewFromInt(2),
			TotalCost:     decimal.NewFromInt(100000),
			AvgPrice:      decimal.NewFromInt(50000),
		},
		{
			Currency:      "ETH",
			TotalQuantity: decimal.NewFromInt(10),
			TotalCost:     decimal.NewFromInt(30000),
			AvgPrice:      decimal.NewFromInt(3000),
		},
	}
}

func TestAppendDailyIdempotent(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "daily_stats.csv"))
	require.NoError(t, err)

	day := time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC)
	require.NoError(t, store.AppendDaily(day, stats()))
	require.NoError(t, store.AppendDaily(day, stats()))

	rows, err := store.Load()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	perKey := map[string]int{}
	for _, row := range rows {
		assert.Equal(t, "2026-08-31", row.Date)
		perKey[row.Date+"/"+row.Currency]++
	}
	for key, n := range perKey {
		assert.Equal(t, 1, n, "duplicate snapshot row for %s", key)
	}
}

func TestAppendDailyKeepsOtherDates(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "daily_stats.csv"))
	require.NoError(t, err)

	yesterday := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	today := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.AppendDaily(yesterday, stats()))
	require.NoError(t, store.AppendDaily(today, stats()[:1]))

	rows, err := store.Load()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	var yesterdayRows, todayRows int
	for _, row := range rows {
		switch row.Date {
		case "2026-08-30":
			yesterdayRows++
		case "2026-08-31":
			todayRows++
		}
	}
	assert.Equal(t, 2, yesterdayRows)
	assert.Equal(t, 1, todayRows)
}

func TestAppendDailyRecomputeReplacesSameDate(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "daily_stats.csv"))
	require.NoError(t, err)

	day := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendDaily(day, stats()))

	updated := []domain.AssetCostBasis{
		{
			Currency:      "BTC",
			TotalQuantity: decimal.NewFromInt(3),
			TotalCost:     decimal.NewFromInt(150000),
			AvgPrice:      decimal.NewFromInt(50000),
		},
	}
	require.NoError(t, store.AppendDaily(day, updated))

	rows, err := store.Load()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "BTC", rows[0].Currency)
	assert.True(t, rows[0].TotalQuantity.Equal(decimal.NewFromInt(3)))
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "daily_stats.csv"))
	require.NoError(t, err)

	rows, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, rows)
}
