package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"tradedesk/internal/backtest"
	"tradedesk/internal/domain"
	"tradedesk/internal/events"
	"tradedesk/internal/marketdata"
	"tradedesk/internal/news"
	"tradedesk/internal/store"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeNews struct {
	articles []news.Article
}

func (f *fakeNews) Fetch(_ context.Context, _ string, _, _ time.Time, _ int) ([]news.Article, error) {
	return f.articles, nil
}

type testEnv struct {
	server  *httptest.Server
	results store.ResultStore
}

// newTestEnv wires a full server against temp stores. The pool runs two
// workers so POSTed backtests execute for real.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.DiscardHandler)

	results, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { results.Close() })

	ps := store.NewParquetStore(t.TempDir(), domain.MarketUS)
	seedBars(t, ps)

	factory := func(start, end time.Time) marketdata.Provider {
		return marketdata.NewStoreProvider(ps, ps, domain.MarketUS, start, end)
	}
	runner := backtest.NewRunner(results, factory, events.NopPublisher{}, 10, log)
	pool := backtest.NewPool(runner, 16, log)
	pool.Start(context.Background(), 2)
	t.Cleanup(pool.Stop)

	api := NewServer(runner, pool, results, ps, &fakeNews{articles: []news.Article{
		{Headline: "earnings beat", Source: "alpaca", CreatedAt: day(2024, 3, 6)},
	}}, log)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, results: results}
}

// seedBars writes a week of bars and indicators scripted so an sma-cross
// run buys on Wednesday and exits on Friday.
func seedBars(t *testing.T, ps *store.ParquetStore) {
	t.Helper()
	ctx := context.Background()

	script := []struct {
		date  time.Time
		close float64
		sma20 *float64
		sma50 *float64
	}{
		{day(2024, 3, 4), 100, domain.Float(95), domain.Float(100)},
		{day(2024, 3, 5), 100, domain.Float(98), domain.Float(100)},
		{day(2024, 3, 6), 100, domain.Float(105), domain.Float(100)},
		{day(2024, 3, 7), 104, domain.Float(105), domain.Float(100)},
		{day(2024, 3, 8), 110, domain.Float(98), domain.Float(100)},
	}
	var bars []domain.Bar
	var sets []domain.IndicatorSet
	for _, s := range script {
		bars = append(bars, domain.Bar{
			Symbol: "AAPL", Timestamp: s.date,
			Open: s.close, High: s.close + 1, Low: s.close - 1, Close: s.close, Volume: 1000,
		})
		sets = append(sets, domain.IndicatorSet{
			Symbol: "AAPL", Timestamp: s.date, SMA20: s.sma20, SMA50: s.sma50,
		})
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}
	if err := ps.WriteIndicators(ctx, sets); err != nil {
		t.Fatalf("WriteIndicators: %v", err)
	}
}

func getJSON(t *testing.T, url string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
}

func postJSON(t *testing.T, url string, body any, wantStatus int, out any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshalling body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("POST %s status = %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	var body map[string]string
	getJSON(t, env.server.URL+"/health", http.StatusOK, &body)
	if body["status"] != "ok" {
		t.Errorf("health = %v", body)
	}
}

func TestListStrategies(t *testing.T) {
	env := newTestEnv(t)
	var out []StrategyJSON
	getJSON(t, env.server.URL+"/api/strategies", http.StatusOK, &out)
	if len(out) != 3 {
		t.Fatalf("expected 3 seeded strategies, got %d", len(out))
	}
}

func TestCreateStrategy(t *testing.T) {
	env := newTestEnv(t)

	var created StrategyJSON
	postJSON(t, env.server.URL+"/api/strategies", CreateStrategyRequest{
		Name:       "Tight RSI",
		Kind:       "rsi-reversion",
		Parameters: map[string]float64{"oversold": 20},
	}, http.StatusCreated, &created)
	if created.ID == "" || created.Kind != "rsi-reversion" {
		t.Errorf("created = %+v", created)
	}

	postJSON(t, env.server.URL+"/api/strategies", CreateStrategyRequest{
		Name: "Bad", Kind: "momentum",
	}, http.StatusBadRequest, nil)
	postJSON(t, env.server.URL+"/api/strategies", CreateStrategyRequest{
		Kind: "sma-cross",
	}, http.StatusBadRequest, nil)
}

func TestBacktestEndToEnd(t *testing.T) {
	env := newTestEnv(t)

	var accepted BacktestAccepted
	postJSON(t, env.server.URL+"/api/backtests", CreateBacktestRequest{
		StrategyID:     "sma-cross",
		StartDate:      "2024-03-04",
		EndDate:        "2024-03-08",
		InitialCapital: 100000,
		Commission:     0.001,
		Symbols:        []string{"AAPL"},
	}, http.StatusAccepted, &accepted)
	if accepted.BacktestID == "" || accepted.Status != "running" {
		t.Fatalf("accepted = %+v", accepted)
	}

	// Poll until the asynchronous run completes.
	var bt BacktestJSON
	deadline := time.Now().Add(5 * time.Second)
	for {
		getJSON(t, env.server.URL+"/api/backtests/"+accepted.BacktestID, http.StatusOK, &bt)
		if bt.Status == "completed" || bt.Status == "failed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("backtest stuck in status %s", bt.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if bt.Status != "completed" {
		t.Fatalf("status = %s, want completed", bt.Status)
	}
	if bt.Stats == nil || bt.Stats.TotalTrades != 1 {
		t.Fatalf("stats = %+v", bt.Stats)
	}

	var trades []TradeJSON
	getJSON(t, env.server.URL+"/api/backtests/"+accepted.BacktestID+"/trades", http.StatusOK, &trades)
	if len(trades) != 1 || trades[0].Status != "closed" {
		t.Fatalf("trades = %+v", trades)
	}

	var curve []EquityPointJSON
	getJSON(t, env.server.URL+"/api/backtests/"+accepted.BacktestID+"/equity-curve", http.StatusOK, &curve)
	if len(curve) != 5 {
		t.Fatalf("expected 5 equity points, got %d", len(curve))
	}

	var list []BacktestJSON
	getJSON(t, env.server.URL+"/api/backtests?status=completed", http.StatusOK, &list)
	if len(list) != 1 || list[0].ID != accepted.BacktestID {
		t.Errorf("list = %+v", list)
	}
}

func TestCreateBacktestValidation(t *testing.T) {
	env := newTestEnv(t)

	postJSON(t, env.server.URL+"/api/backtests", CreateBacktestRequest{
		StrategyID: "sma-cross", StartDate: "not-a-date", EndDate: "2024-03-08", InitialCapital: 1000,
	}, http.StatusBadRequest, nil)
	postJSON(t, env.server.URL+"/api/backtests", CreateBacktestRequest{
		StrategyID: "unknown", StartDate: "2024-03-04", EndDate: "2024-03-08", InitialCapital: 1000,
	}, http.StatusBadRequest, nil)
}

func TestGetBacktestNotFound(t *testing.T) {
	env := newTestEnv(t)
	getJSON(t, env.server.URL+"/api/backtests/missing", http.StatusNotFound, nil)
	getJSON(t, env.server.URL+"/api/backtests/missing/trades", http.StatusNotFound, nil)
	getJSON(t, env.server.URL+"/api/backtests/missing/equity-curve", http.StatusNotFound, nil)
}

func TestGetBars(t *testing.T) {
	env := newTestEnv(t)

	var bars []BarJSON
	getJSON(t, env.server.URL+"/api/bars/AAPL?start=2024-03-04&end=2024-03-08", http.StatusOK, &bars)
	if len(bars) != 5 {
		t.Fatalf("expected 5 bars, got %d", len(bars))
	}
	if bars[0].Date != "2024-03-04" {
		t.Errorf("first bar date = %s", bars[0].Date)
	}

	getJSON(t, env.server.URL+"/api/bars/AAPL?start=nope", http.StatusBadRequest, nil)
}

func TestGetNews(t *testing.T) {
	env := newTestEnv(t)

	var out NewsResponse
	getJSON(t, env.server.URL+"/api/news/aapl", http.StatusOK, &out)
	if out.Symbol != "AAPL" {
		t.Errorf("symbol = %s, want AAPL", out.Symbol)
	}
	if len(out.Articles) != 1 || out.Articles[0].Headline != "earnings beat" {
		t.Errorf("articles = %+v", out.Articles)
	}
}
