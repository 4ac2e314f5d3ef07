package marketdata

import (
	"context"
	"testing"
	"time"

	"tradedesk/internal/domain"
	"tradedesk/internal/store"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedStore(t *testing.T) *store.ParquetStore {
	t.Helper()
	ps := store.NewParquetStore(t.TempDir(), domain.MarketUS)
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "AAPL", Timestamp: day(2024, 3, 4), Open: 100, High: 102, Low: 99, Close: 101, Volume: 5000},
		{Symbol: "AAPL", Timestamp: day(2024, 3, 5), Open: 101, High: 104, Low: 100, Close: 103, Volume: 6000},
		{Symbol: "MSFT", Timestamp: day(2024, 3, 4), Open: 400, High: 405, Low: 398, Close: 402, Volume: 3000},
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	sets := []domain.IndicatorSet{
		{Symbol: "AAPL", Timestamp: day(2024, 3, 5), SMA20: domain.Float(100.5), RSI14: domain.Float(62)},
	}
	if err := ps.WriteIndicators(ctx, sets); err != nil {
		t.Fatalf("WriteIndicators: %v", err)
	}
	return ps
}

func TestGetDailyBar(t *testing.T) {
	ps := seedStore(t)
	p := NewStoreProvider(ps, ps, domain.MarketUS, day(2024, 3, 1), day(2024, 3, 31))

	bar, err := p.GetDailyBar(context.Background(), "AAPL", day(2024, 3, 5))
	if err != nil {
		t.Fatalf("GetDailyBar: %v", err)
	}
	if bar == nil {
		t.Fatal("expected a bar")
	}
	if bar.Close != 103 {
		t.Errorf("close = %v, want 103", bar.Close)
	}
}

func TestGetDailyBarMissing(t *testing.T) {
	ps := seedStore(t)
	p := NewStoreProvider(ps, ps, domain.MarketUS, day(2024, 3, 1), day(2024, 3, 31))

	// Day with no bar for the symbol.
	bar, err := p.GetDailyBar(context.Background(), "AAPL", day(2024, 3, 6))
	if err != nil {
		t.Fatalf("GetDailyBar: %v", err)
	}
	if bar != nil {
		t.Errorf("expected nil bar, got %+v", bar)
	}

	// Unknown symbol.
	bar, err = p.GetDailyBar(context.Background(), "NOPE", day(2024, 3, 5))
	if err != nil {
		t.Fatalf("GetDailyBar unknown symbol: %v", err)
	}
	if bar != nil {
		t.Errorf("expected nil bar for unknown symbol, got %+v", bar)
	}
}

func TestGetIndicators(t *testing.T) {
	ps := seedStore(t)
	p := NewStoreProvider(ps, ps, domain.MarketUS, day(2024, 3, 1), day(2024, 3, 31))

	set, err := p.GetIndicators(context.Background(), "AAPL", day(2024, 3, 5))
	if err != nil {
		t.Fatalf("GetIndicators: %v", err)
	}
	if set == nil {
		t.Fatal("expected an indicator set")
	}
	if set.SMA20 == nil || *set.SMA20 != 100.5 {
		t.Errorf("SMA20 = %v, want 100.5", set.SMA20)
	}

	// Day without a computed bundle.
	set, err = p.GetIndicators(context.Background(), "AAPL", day(2024, 3, 4))
	if err != nil {
		t.Fatalf("GetIndicators missing day: %v", err)
	}
	if set != nil {
		t.Errorf("expected nil indicator set, got %+v", set)
	}
}

func TestSampleSymbols(t *testing.T) {
	ps := seedStore(t)
	p := NewStoreProvider(ps, ps, domain.MarketUS, day(2024, 3, 1), day(2024, 3, 31))

	symbols, err := p.SampleSymbols(context.Background(), 10)
	if err != nil {
		t.Fatalf("SampleSymbols: %v", err)
	}
	if len(symbols) != 2 {
		t.Fatalf("expected 2 symbols, got %v", symbols)
	}

	capped, err := p.SampleSymbols(context.Background(), 1)
	if err != nil {
		t.Fatalf("SampleSymbols capped: %v", err)
	}
	if len(capped) != 1 {
		t.Errorf("expected 1 symbol, got %v", capped)
	}
}
