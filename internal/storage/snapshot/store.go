// Package snapshot keeps a dated history of cost-basis aggregates, one CSV
// row per (date, currency).
package snapshot

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/basis/internal/domain"
)

const dateLayout = "2006-01-02"

var header = []string{"date", "currency", "total_amount", "total_cost", "avg_price"}

// Store reads and writes the daily snapshot file.
type Store struct {
	path string
}

// NewStore creates a snapshot store at path, creating parent directories.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create snapshot dir")
	}
	return &Store{path: path}, nil
}

// Load returns all persisted snapshot rows, empty when no file exists yet.
func (s *Store) Load() ([]domain.SnapshotRow, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "open snapshot file")
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read snapshot file")
	}
	if len(records) == 0 {
		return nil, nil
	}

	rows := make([]domain.SnapshotRow, 0, len(records)-1)
	for i, record := range records[1:] {
		row, err := rowFromRecord(record)
		if err != nil {
			return nil, errors.Wrapf(err, "decode snapshot row %d", i+2)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// AppendDaily replaces the given day's rows with fresh aggregates and keeps
// every other date untouched. Running it twice with the same input leaves the
// table unchanged.
func (s *Store) AppendDaily(day time.Time, stats []domain.AssetCostBasis) error {
	date := day.Format(dateLayout)

	rows, err := s.Load()
	if err != nil {
		return err
	}

	kept := make([]domain.SnapshotRow, 0, len(rows)+len(stats))
	for _, row := range rows {
		if row.Date != date {
			kept = append(kept, row)
		}
	}
	for _, st := range stats {
		kept = append(kept, domain.SnapshotRow{
			Date:          date,
			Currency:      st.Currency,
			TotalQuantity: st.TotalQuantity,
			TotalCost:     st.TotalCost,
			AvgPrice:      st.AvgPrice,
		})
	}

	return s.persist(kept)
}

func (s *Store) persist(rows []domain.SnapshotRow) error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "create snapshot temp file")
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return errors.Wrap(err, "write snapshot header")
	}
	for _, row := range rows {
		record := []string{
			row.Date,
			row.Currency,
			row.TotalQuantity.String(),
			row.TotalCost.String(),
			row.AvgPrice.String(),
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return errors.Wrap(err, "write snapshot row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return errors.Wrap(err, "flush snapshot temp file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close snapshot temp file")
	}

	return errors.Wrap(os.Rename(tmp, s.path), "replace snapshot file")
}

func rowFromRecord(record []string) (domain.SnapshotRow, error) {
	if len(record) != len(header) {
		return domain.SnapshotRow{}, fmt.Errorf("expected %d columns, got %d", len(header), len(record))
	}

	quantity, err := decimal.NewFromString(record[2])
	if err != nil {
		return domain.SnapshotRow{}, errors.Wrap(err, "parse total_amount")
	}
	cost, err := decimal.NewFromString(record[3])
	if err != nil {
		return domain.SnapshotRow{}, errors.Wrap(err, "parse total_cost")
	}
	avg, err := decimal.NewFromString(record[4])
	if err != nil {
		return domain.SnapshotRow{}, errors.Wrap(err, "parse avg_price")
	}

	return domain.SnapshotRow{
		Date:          record[0],
		Currency:      record[1],
		TotalQuantity: quantity,
		TotalCost:     cost,
		AvgPrice:      avg,
	}, nil
}
