// Package ledger persists the account ledger as a CSV table, the single
// source of truth on disk.
package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/basis/internal/domain"
)

// column order is part of the on-disk compatibility contract
var header = []string{
	"id",
	"source",
	"occurred_at",
	"occurred_at_precise",
	"asset_pair",
	"base_asset",
	"quote_asset",
	"side",
	"quantity",
	"unit_price",
	"fee_amount",
	"fee_asset",
	"order_ref",
}

// Store reads and writes the ledger file.
type Store struct {
	path string
}

// NewStore creates a ledger store at path, creating parent directories.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create ledger dir")
	}
	return &Store{path: path}, nil
}

// Load returns the persisted ledger, or an empty one when no file exists yet.
func (s *Store) Load() ([]domain.LedgerEntry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "open ledger file")
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read ledger file")
	}
	if len(records) == 0 {
		return nil, nil
	}

	entries := make([]domain.LedgerEntry, 0, len(records)-1)
	for i, record := range records[1:] {
		entry, err := entryFromRecord(record)
		if err != nil {
			return nil, errors.Wrapf(err, "decode ledger row %d", i+2)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Persist atomically replaces the ledger file with the given entries.
// Write-then-rename keeps a crash mid-write from corrupting the store.
func (s *Store) Persist(entries []domain.LedgerEntry) error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "create ledger temp file")
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return errors.Wrap(err, "write ledger header")
	}
	for _, e := range entries {
		if err := w.Write(recordFromEntry(e)); err != nil {
			f.Close()
			return errors.Wrap(err, "write ledger row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return errors.Wrap(err, "flush ledger temp file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close ledger temp file")
	}

	return errors.Wrap(os.Rename(tmp, s.path), "replace ledger file")
}

// Merge unions existing and incoming entries keyed by id. The freshly fetched
// version wins on collision. The result is resorted ascending by occurred_at,
// stable on ties.
func Merge(existing, incoming []domain.LedgerEntry) []domain.LedgerEntry {
	if len(incoming) == 0 {
		return existing
	}

	// a duplicate inside the incoming batch keeps only its last occurrence
	lastIdx := make(map[string]int, len(incoming))
	for i, e := range incoming {
		lastIdx[e.ID] = i
	}

	merged := make([]domain.LedgerEntry, 0, len(existing)+len(incoming))
	for _, e := range existing {
		if _, replaced := lastIdx[e.ID]; !replaced {
			merged = append(merged, e)
		}
	}
	for i, e := range incoming {
		if lastIdx[e.ID] == i {
			merged = append(merged, e)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].OccurredAt < merged[j].OccurredAt
	})

	return merged
}

// LastTimestamp returns the max occurred_at over the ledger; ok is false for
// an empty ledger. It seeds the next incremental sync.
func LastTimestamp(entries []domain.LedgerEntry) (int64, bool) {
	if len(entries) == 0 {
		return 0, false
	}
	last := entries[0].OccurredAt
	for _, e := range entries[1:] {
		if e.OccurredAt > last {
			last = e.OccurredAt
		}
	}
	return last, true
}

func recordFromEntry(e domain.LedgerEntry) []string {
	return []string{
		e.ID,
		string(e.Source),
		strconv.FormatInt(e.OccurredAt, 10),
		strconv.FormatInt(e.OccurredAtMilli, 10),
		e.AssetPair,
		e.BaseAsset,
		e.QuoteAsset,
		string(e.Side),
		e.Quantity.String(),
		e.UnitPrice.String(),
		e.FeeAmount.String(),
		e.FeeAsset,
		e.OrderRef,
	}
}

func entryFromRecord(record []string) (domain.LedgerEntry, error) {
	if len(record) != len(header) {
		return domain.LedgerEntry{}, fmt.Errorf("expected %d columns, got %d", len(header), len(record))
	}

	occurredAt, err := strconv.ParseInt(record[2], 10, 64)
	if err != nil {
		return domain.LedgerEntry{}, errors.Wrap(err, "parse occurred_at")
	}
	occurredAtMilli, err := strconv.ParseInt(record[3], 10, 64)
	if err != nil {
		return domain.LedgerEntry{}, errors.Wrap(err, "parse occurred_at_precise")
	}
	quantity, err := decimal.NewFromString(record[8])
	if err != nil {
		return domain.LedgerEntry{}, errors.Wrap(err, "parse quantity")
	}
	unitPrice, err := decimal.NewFromString(record[9])
	if err != nil {
		return domain.LedgerEntry{}, errors.Wrap(err, "parse unit_price")
	}
	feeAmount, err := decimal.NewFromString(record[10])
	if err != nil {
		return domain.LedgerEntry{}, errors.Wrap(err, "parse fee_amount")
	}

	return domain.LedgerEntry{
		ID:              record[0],
		Source:          domain.Source(record[1]),
		OccurredAt:      occurredAt,
		OccurredAtMilli: occurredAtMilli,
		AssetPair:       record[4],
		BaseAsset:       record[5],
		QuoteAsset:      record[6],
		Side:            domain.Side(record[7]),
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		FeeAmount:       feeAmount,
		FeeAsset:        record[11],
		OrderRef:        record[12],
	}, nil
}
