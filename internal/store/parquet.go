package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"koscore/internal/domain"
)

// ParquetArchive mirrors the SQLite price history into per-code, per-year
// Parquet files so the series can be backed up, shipped, or restored without
// re-collecting. It is not a query path; the SQLite store stays authoritative.
type ParquetArchive struct {
	DataDir string
}

// NewParquetArchive creates a ParquetArchive rooted at the given directory.
func NewParquetArchive(dataDir string) *ParquetArchive {
	return &ParquetArchive{DataDir: dataDir}
}

// PriceRecord is the Parquet schema for archived daily prices.
type PriceRecord struct {
	Code         string `parquet:"code"`
	Date         string `parquet:"date"` // YYYY-MM-DD
	Open         int64  `parquet:"open"`
	High         int64  `parquet:"high"`
	Low          int64  `parquet:"low"`
	Close        int64  `parquet:"close"`
	Volume       int64  `parquet:"volume"`
	TradingValue int64  `parquet:"trading_value"`
}

// Export reads the full series for a code from src and writes it into the
// archive, merged with whatever the archive already holds. It returns the
// number of points written.
func (a *ParquetArchive) Export(ctx context.Context, src PriceStore, code string) (int, error) {
	prices, err := src.Prices(ctx, code)
	if err != nil {
		return 0, fmt.Errorf("loading prices for %s: %w", code, err)
	}
	if len(prices) == 0 {
		return 0, nil
	}

	// Group by year.
	groups := make(map[string][]PriceRecord)
	for _, p := range prices {
		year := yearOf(p.Date)
		groups[year] = append(groups[year], PriceRecord{
			Code:         p.Code,
			Date:         p.Date,
			Open:         p.Open,
			High:         p.High,
			Low:          p.Low,
			Close:        p.Close,
			Volume:       p.Volume,
			TradingValue: p.TradingValue,
		})
	}

	total := 0
	for year, records := range groups {
		path := a.pricePath(code, year)

		// Read existing records to merge.
		existing, _ := readParquetFile[PriceRecord](path)
		merged := mergePriceRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return total, fmt.Errorf("writing archive for %s/%s: %w", code, year, err)
		}
		total += len(records)
	}
	return total, nil
}

// Import reads every archived year file for a code and upserts the points
// into dst. It returns the number of points restored.
func (a *ParquetArchive) Import(ctx context.Context, dst PriceStore, code string) (int, error) {
	dir := filepath.Join(a.DataDir, "kr", "daily", strings.ToUpper(code))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	total := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		records, err := readParquetFile[PriceRecord](filepath.Join(dir, e.Name()))
		if err != nil {
			return total, fmt.Errorf("reading archive %s: %w", e.Name(), err)
		}

		prices := make([]domain.PricePoint, 0, len(records))
		for _, r := range records {
			prices = append(prices, domain.PricePoint{
				Code:         r.Code,
				Date:         r.Date,
				Open:         r.Open,
				High:         r.High,
				Low:          r.Low,
				Close:        r.Close,
				Volume:       r.Volume,
				TradingValue: r.TradingValue,
			})
		}
		if err := dst.SavePrices(ctx, prices); err != nil {
			return total, fmt.Errorf("restoring %s from %s: %w", code, e.Name(), err)
		}
		total += len(prices)
	}
	return total, nil
}

// ListCodes lists all codes present in the archive.
func (a *ParquetArchive) ListCodes() ([]string, error) {
	dir := filepath.Join(a.DataDir, "kr", "daily")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var codes []string
	for _, e := range entries {
		if e.IsDir() {
			codes = append(codes, e.Name())
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// pricePath returns the filesystem path for one archived year.
// Layout: <dataDir>/kr/daily/<CODE>/<YYYY>.parquet
func (a *ParquetArchive) pricePath(code, year string) string {
	return filepath.Join(a.DataDir, "kr", "daily", strings.ToUpper(code), year+".parquet")
}

func yearOf(date string) string {
	if len(date) >= 4 {
		if _, err := strconv.Atoi(date[:4]); err == nil {
			return date[:4]
		}
	}
	return "0000"
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergePriceRecords deduplicates records by (code, date), preferring new
// records over existing ones. Results are sorted by date.
func mergePriceRecords(existing, incoming []PriceRecord) []PriceRecord {
	type key struct {
		code string
		date string
	}
	seen := make(map[key]PriceRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Code, r.Date}] = r
	}
	for _, r := range incoming {
		seen[key{r.Code, r.Date}] = r
	}

	merged := make([]PriceRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Date < merged[j].Date
	})
	return merged
}
