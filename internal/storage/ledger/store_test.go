package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/basis/internal/domain"
)

func entry(id string, at int64, quantity string) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:              id,
		Source:          domain.SourceFill,
		OccurredAt:      at,
		OccurredAtMilli: at * 1000,
		AssetPair:       "BTC_USDT",
		BaseAsset:       "BTC",
		QuoteAsset:      "USDT",
		Side:            domain.SideBuy,
		Quantity:        decimal.RequireFromString(quantity),
		UnitPrice:       decimal.NewFromInt(100),
		FeeAmount:       decimal.Zero,
		FeeAsset:        "USDT",
		OrderRef:        "order-1",
	}
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "trades.csv"))
	require.NoError(t, err)

	entries, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPersistLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	store, err := NewStore(path)
	require.NoError(t, err)

	want := []domain.LedgerEntry{
		entry("spot_1", 100, "0.5"),
		entry("spot_2", 200, "1.25"),
	}
	require.NoError(t, store.Persist(want))

	got, err := store.Load()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "spot_1", got[0].ID)
	assert.True(t, got[0].Quantity.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, domain.SideBuy, got[0].Side)
	assert.Equal(t, int64(200), got[1].OccurredAt)
	assert.Equal(t, int64(200000), got[1].OccurredAtMilli)

	// no leftover temp file after the atomic replace
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestMergeDedupIdempotent(t *testing.T) {
	existing := []domain.LedgerEntry{entry("spot_1", 100, "1")}
	incoming := []domain.LedgerEntry{entry("spot_1", 100, "1"), entry("spot_2", 200, "2")}

	once := Merge(existing, incoming)
	twice := Merge(once, incoming)

	assert.Equal(t, once, twice)
	require.Len(t, twice, 2)
}

func TestMergeIncomingWinsOnSameID(t *testing.T) {
	existing := []domain.LedgerEntry{entry("spot_1", 100, "1")}
	incoming := []domain.LedgerEntry{entry("spot_1", 100, "3")}

	merged := Merge(existing, incoming)
	require.Len(t, merged, 1)
	assert.True(t, merged[0].Quantity.Equal(decimal.NewFromInt(3)))
}

func TestMergeKeepsLastDuplicateWithinIncoming(t *testing.T) {
	incoming := []domain.LedgerEntry{entry("spot_1", 100, "1"), entry("spot_1", 100, "2")}

	merged := Merge(nil, incoming)
	require.Len(t, merged, 1)
	assert.True(t, merged[0].Quantity.Equal(decimal.NewFromInt(2)))
}

func TestMergeSortsAscendingStable(t *testing.T) {
	existing := []domain.LedgerEntry{
		entry("spot_b", 300, "1"),
		entry("spot_a", 100, "1"),
	}
	incoming := []domain.LedgerEntry{
		entry("spot_c", 200, "1"),
		entry("spot_d", 200, "1"),
	}

	merged := Merge(existing, incoming)
	require.Len(t, merged, 4)

	for i := 1; i < len(merged); i++ {
		assert.LessOrEqual(t, merged[i-1].OccurredAt, merged[i].OccurredAt)
	}
	// ties keep arrival order
	assert.Equal(t, "spot_c", merged[1].ID)
	assert.Equal(t, "spot_d", merged[2].ID)

	seen := map[string]bool{}
	for _, e := range merged {
		assert.False(t, seen[e.ID], "duplicate id %s", e.ID)
		seen[e.ID] = true
	}
}

func TestMergeEmptyIncomingIsNoop(t *testing.T) {
	existing := []domain.LedgerEntry{entry("spot_1", 100, "1")}

	merged := Merge(existing, nil)
	assert.Equal(t, existing, merged)
}

func TestLastTimestamp(t *testing.T) {
	_, ok := LastTimestamp(nil)
	assert.False(t, ok)

	last, ok := LastTimestamp([]domain.LedgerEntry{
		entry("spot_1", 100, "1"),
		entry("spot_2", 300, "1"),
		entry("spot_3", 200, "1"),
	})
	require.True(t, ok)
	assert.Equal(t, int64(300), last)
}
