package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"tradedesk/internal/domain"
)

// Compile-time interface checks.
var _ BarStore = (*ParquetStore)(nil)
var _ IndicatorStore = (*ParquetStore)(nil)

// ParquetStore implements BarStore and IndicatorStore using Parquet files on
// disk.
type ParquetStore struct {
	DataDir string
	Market  string
}

// NewParquetStore creates a ParquetStore rooted at the given data directory
// for the given market.
func NewParquetStore(dataDir string, market domain.Market) *ParquetStore {
	return &ParquetStore{DataDir: dataDir, Market: string(market)}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// BarRecord is the Parquet schema for daily bar data.
type BarRecord struct {
	Symbol     string  `parquet:"symbol"`
	Timestamp  int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open       float64 `parquet:"open"`
	High       float64 `parquet:"high"`
	Low        float64 `parquet:"low"`
	Close      float64 `parquet:"close"`
	Volume     int64   `parquet:"volume"`
	TradeCount int64   `parquet:"trade_count"`
	VWAP       float64 `parquet:"vwap"`
}

// IndicatorRecord is the Parquet schema for precomputed daily indicators.
// Optional columns stay unset while the lookback window has not filled.
type IndicatorRecord struct {
	Symbol    string   `parquet:"symbol"`
	Timestamp int64    `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	SMA20     *float64 `parquet:"sma_20,optional"`
	SMA50     *float64 `parquet:"sma_50,optional"`
	RSI14     *float64 `parquet:"rsi_14,optional"`
	BBUpper   *float64 `parquet:"bb_upper,optional"`
	BBMiddle  *float64 `parquet:"bb_middle,optional"`
	BBLower   *float64 `parquet:"bb_lower,optional"`
}

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// WriteBars writes bar data to Parquet files organized by symbol and year.
// Each symbol+year combination produces a separate file at:
//
//	<DataDir>/<market>/daily/<SYMBOL>/<YYYY>.parquet
//
// Existing records are merged and deduplicated by (symbol, timestamp).
func (s *ParquetStore) WriteBars(_ context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	type key struct {
		symbol string
		year   int
	}
	groups := make(map[key][]BarRecord)
	for _, b := range bars {
		k := key{symbol: b.Symbol, year: b.Timestamp.Year()}
		groups[k] = append(groups[k], BarRecord{
			Symbol:     b.Symbol,
			Timestamp:  b.Timestamp.UnixMilli(),
			Open:       b.Open,
			High:       b.High,
			Low:        b.Low,
			Close:      b.Close,
			Volume:     b.Volume,
			TradeCount: b.TradeCount,
			VWAP:       b.VWAP,
		})
	}

	for k, records := range groups {
		path := s.barPath(k.symbol, k.year)

		existing, _ := readParquetFile[BarRecord](path)
		merged := mergeRecords(existing, records,
			func(r BarRecord) recordKey { return recordKey{r.Symbol, r.Timestamp} },
			func(r BarRecord) int64 { return r.Timestamp })

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", k.symbol, k.year, err)
		}
	}
	return nil
}

// ReadBars reads bar data from Parquet files for the given symbol and time range.
func (s *ParquetStore) ReadBars(_ context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error) {
	if market == "" {
		market = s.Market
	}

	var bars []domain.Bar
	for year := start.Year(); year <= end.Year(); year++ {
		path := filepath.Join(s.DataDir, market, "daily", strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))

		records, err := readParquetFile[BarRecord](path)
		if err != nil {
			// No file for this year, skip.
			continue
		}

		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if inRange(ts, start, end) {
				bars = append(bars, domain.Bar{
					Symbol:     r.Symbol,
					Timestamp:  ts,
					Open:       r.Open,
					High:       r.High,
					Low:        r.Low,
					Close:      r.Close,
					Volume:     r.Volume,
					TradeCount: r.TradeCount,
					VWAP:       r.VWAP,
				})
			}
		}
	}
	return bars, nil
}

// ListSymbols lists all symbols that have bar data in the given market.
func (s *ParquetStore) ListSymbols(_ context.Context, market string) ([]string, error) {
	if market == "" {
		market = s.Market
	}
	dir := filepath.Join(s.DataDir, market, "daily")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// ---------------------------------------------------------------------------
// IndicatorStore implementation
// ---------------------------------------------------------------------------

// WriteIndicators writes indicator sets to Parquet files organized the same
// way as bars:
//
//	<DataDir>/<market>/indicators/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) WriteIndicators(_ context.Context, sets []domain.IndicatorSet) error {
	if len(sets) == 0 {
		return nil
	}

	type key struct {
		symbol string
		year   int
	}
	groups := make(map[key][]IndicatorRecord)
	for _, is := range sets {
		k := key{symbol: is.Symbol, year: is.Timestamp.Year()}
		groups[k] = append(groups[k], IndicatorRecord{
			Symbol:    is.Symbol,
			Timestamp: is.Timestamp.UnixMilli(),
			SMA20:     is.SMA20,
			SMA50:     is.SMA50,
			RSI14:     is.RSI14,
			BBUpper:   is.BBUpper,
			BBMiddle:  is.BBMiddle,
			BBLower:   is.BBLower,
		})
	}

	for k, records := range groups {
		path := s.indicatorPath(k.symbol, k.year)

		existing, _ := readParquetFile[IndicatorRecord](path)
		merged := mergeRecords(existing, records,
			func(r IndicatorRecord) recordKey { return recordKey{r.Symbol, r.Timestamp} },
			func(r IndicatorRecord) int64 { return r.Timestamp })

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing indicators for %s/%d: %w", k.symbol, k.year, err)
		}
	}
	return nil
}

// ReadIndicators reads indicator sets for the given symbol and time range.
func (s *ParquetStore) ReadIndicators(_ context.Context, symbol string, market string, start, end time.Time) ([]domain.IndicatorSet, error) {
	if market == "" {
		market = s.Market
	}

	var sets []domain.IndicatorSet
	for year := start.Year(); year <= end.Year(); year++ {
		path := filepath.Join(s.DataDir, market, "indicators", strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))

		records, err := readParquetFile[IndicatorRecord](path)
		if err != nil {
			continue
		}

		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if inRange(ts, start, end) {
				sets = append(sets, domain.IndicatorSet{
					Symbol:    r.Symbol,
					Timestamp: ts,
					SMA20:     r.SMA20,
					SMA50:     r.SMA50,
					RSI14:     r.RSI14,
					BBUpper:   r.BBUpper,
					BBMiddle:  r.BBMiddle,
					BBLower:   r.BBLower,
				})
			}
		}
	}
	return sets, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// barPath returns the filesystem path for a bar Parquet file.
// Layout: <dataDir>/<market>/daily/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) barPath(symbol string, year int) string {
	return filepath.Join(s.DataDir, s.Market, "daily", strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))
}

// indicatorPath returns the filesystem path for an indicator Parquet file.
// Layout: <dataDir>/<market>/indicators/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) indicatorPath(symbol string, year int) string {
	return filepath.Join(s.DataDir, s.Market, "indicators", strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))
}

func inRange(ts, start, end time.Time) bool {
	return (ts.Equal(start) || ts.After(start)) && (ts.Equal(end) || ts.Before(end))
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

type recordKey struct {
	symbol string
	ts     int64
}

// mergeRecords deduplicates records by key, preferring incoming records over
// existing ones. Results are sorted by timestamp.
func mergeRecords[T any](existing, incoming []T, keyOf func(T) recordKey, tsOf func(T) int64) []T {
	seen := make(map[recordKey]T, len(existing)+len(incoming))
	for _, r := range existing {
		seen[keyOf(r)] = r
	}
	for _, r := range incoming {
		seen[keyOf(r)] = r
	}

	merged := make([]T, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return tsOf(merged[i]) < tsOf(merged[j])
	})
	return merged
}
