package ingest

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

func TestRunRequiresSymbols(t *testing.T) {
	ps := store.NewParquetStore(t.TempDir(), domain.MarketUS)
	g := NewDailyBarGatherer(DailyBarConfig{}, ps, ps)

	if err := g.Run(context.Background()); err == nil {
		t.Fatal("expected error with no symbols configured")
	}
}

func TestSymbolsWithBars(t *testing.T) {
	bars := []domain.Bar{
		{Symbol: "AAPL"}, {Symbol: "MSFT"}, {Symbol: "AAPL"},
	}
	symbols := symbolsWithBars(bars)
	if len(symbols) != 2 {
		t.Errorf("symbols = %v", symbols)
	}
}

func TestComputeIndicatorsFromStoredBars(t *testing.T) {
	ctx := context.Background()
	ps := store.NewParquetStore(t.TempDir(), domain.MarketUS)

	// 60 rising daily bars give every indicator a full lookback window.
	start := day(2024, 1, 1)
	var bars []domain.Bar
	for i := 0; i < 60; i++ {
		bars = append(bars, domain.Bar{
			Symbol:    "AAPL",
			Timestamp: start.AddDate(0, 0, i),
			Close:     100 + float64(i),
			Volume:    1000,
		})
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	g := NewDailyBarGatherer(DailyBarConfig{
		Symbols: []string{"AAPL"},
		Span:    DateRange{Start: start, End: start.AddDate(0, 0, 59)},
	}, ps, ps)

	if err := g.computeIndicators(ctx, []string{"AAPL"}); err != nil {
		t.Fatalf("computeIndicators: %v", err)
	}

	sets, err := ps.ReadIndicators(ctx, "AAPL", "", start, start.AddDate(0, 0, 59))
	if err != nil {
		t.Fatalf("ReadIndicators: %v", err)
	}
	if len(sets) != 60 {
		t.Fatalf("expected 60 indicator rows, got %d", len(sets))
	}
	last := sets[len(sets)-1]
	if last.SMA20 == nil || last.SMA50 == nil || last.RSI14 == nil || last.BBUpper == nil {
		t.Errorf("final row missing indicators: %+v", last)
	}
	if sets[0].SMA20 != nil {
		t.Errorf("warmup row should have nil SMA20")
	}
}

func TestGathererName(t *testing.T) {
	ps := store.NewParquetStore(t.TempDir(), domain.MarketUS)
	g := NewDailyBarGatherer(DailyBarConfig{}, ps, ps)
	if g.Name() != "daily-bars" {
		t.Errorf("name = %s", g.Name())
	}
}
