// Package httpapi exposes the REST surface: strategy catalog, backtest
// lifecycle and results, bar queries, and news.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tradedesk/internal/backtest"
	"tradedesk/internal/domain"
	"tradedesk/internal/news"
	"tradedesk/internal/store"
	"tradedesk/internal/strategy"
	"tradedesk/internal/util"
)

// NewsSource fetches recent articles for a symbol.
type NewsSource interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time, limit int) ([]news.Article, error)
}

// Server serves the trading terminal HTTP API.
type Server struct {
	runner  *backtest.Runner
	pool    *backtest.Pool
	results store.ResultStore
	bars    store.BarStore
	news    NewsSource
	log     *slog.Logger
}

// NewServer creates the API server. news may be nil when no provider is
// configured.
func NewServer(runner *backtest.Runner, pool *backtest.Pool, results store.ResultStore, bars store.BarStore, newsSource NewsSource, log *slog.Logger) *Server {
	return &Server{
		runner:  runner,
		pool:    pool,
		results: results,
		bars:    bars,
		news:    newsSource,
		log:     log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/strategies", s.handleListStrategies)
	mux.HandleFunc("POST /api/strategies", s.handleCreateStrategy)
	mux.HandleFunc("GET /api/backtests", s.handleListBacktests)
	mux.HandleFunc("POST /api/backtests", s.handleCreateBacktest)
	mux.HandleFunc("GET /api/backtests/{id}", s.handleGetBacktest)
	mux.HandleFunc("GET /api/backtests/{id}/trades", s.handleTrades)
	mux.HandleFunc("GET /api/backtests/{id}/equity-curve", s.handleEquityCurve)
	mux.HandleFunc("GET /api/bars/{symbol}", s.handleBars)
	mux.HandleFunc("GET /api/news/{symbol}", s.handleNews)
}

// Handler returns an http.Handler with CORS and request-logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(s.logMiddleware(mux))
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start).Round(time.Microsecond))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Strategies
// ---------------------------------------------------------------------------

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	specs, err := s.results.ListStrategies(r.Context())
	if err != nil {
		s.log.Error("listing strategies", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list strategies")
		return
	}
	out := make([]StrategyJSON, 0, len(specs))
	for i := range specs {
		out = append(out, convertStrategy(&specs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateStrategy(w http.ResponseWriter, r *http.Request) {
	var req CreateStrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	spec := &domain.StrategySpec{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Kind:        domain.StrategyKind(req.Kind),
		Description: req.Description,
		Parameters:  req.Parameters,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	if spec.Parameters == nil {
		spec.Parameters = map[string]float64{}
	}
	// Reject kinds the engine cannot run.
	if _, err := strategy.FromSpec(spec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.results.CreateStrategy(r.Context(), spec); err != nil {
		s.log.Error("creating strategy", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create strategy")
		return
	}
	writeJSON(w, http.StatusCreated, convertStrategy(spec))
}

// ---------------------------------------------------------------------------
// Backtests
// ---------------------------------------------------------------------------

func (s *Server) handleListBacktests(w http.ResponseWriter, r *http.Request) {
	strategyID := r.URL.Query().Get("strategy_id")
	status := domain.BacktestStatus(r.URL.Query().Get("status"))

	backtests, err := s.results.ListBacktests(r.Context(), strategyID, status)
	if err != nil {
		s.log.Error("listing backtests", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list backtests")
		return
	}
	out := make([]BacktestJSON, 0, len(backtests))
	for i := range backtests {
		out = append(out, convertBacktest(&backtests[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBacktest(w http.ResponseWriter, r *http.Request) {
	var req CreateBacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	start, err := util.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid startDate %q", req.StartDate))
		return
	}
	end, err := util.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid endDate %q", req.EndDate))
		return
	}

	bt, err := s.runner.Create(r.Context(), backtest.CreateRequest{
		StrategyID:     req.StrategyID,
		Name:           req.Name,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: req.InitialCapital,
		Commission:     req.Commission,
		Slippage:       req.Slippage,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.pool.Submit(bt.ID, req.Symbols); err != nil {
		if errors.Is(err, backtest.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, "backtest queue is full, retry later")
			return
		}
		s.log.Error("submitting backtest", "backtest_id", bt.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to dispatch backtest")
		return
	}

	writeJSON(w, http.StatusAccepted, BacktestAccepted{
		BacktestID: bt.ID,
		Status:     string(domain.BacktestRunning),
	})
}

func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	bt, err := s.results.GetBacktest(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "backtest not found")
			return
		}
		s.log.Error("loading backtest", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load backtest")
		return
	}
	writeJSON(w, http.StatusOK, convertBacktest(bt))
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.results.GetBacktest(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "backtest not found")
			return
		}
		s.log.Error("loading backtest", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load backtest")
		return
	}

	trades, err := s.results.ListTrades(r.Context(), id)
	if err != nil {
		s.log.Error("listing trades", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	out := make([]TradeJSON, 0, len(trades))
	for i := range trades {
		out = append(out, convertTrade(&trades[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEquityCurve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.results.GetBacktest(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "backtest not found")
			return
		}
		s.log.Error("loading backtest", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load backtest")
		return
	}

	curve, err := s.results.ListEquityCurve(r.Context(), id)
	if err != nil {
		s.log.Error("listing equity curve", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list equity curve")
		return
	}
	out := make([]EquityPointJSON, 0, len(curve))
	for i := range curve {
		out = append(out, convertEquityPoint(&curve[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// ---------------------------------------------------------------------------
// Bars and news
// ---------------------------------------------------------------------------

// dateRange reads start/end query params, defaulting to the trailing year.
func dateRange(r *http.Request) (time.Time, time.Time, error) {
	now := util.Midnight(time.Now().UTC())
	start, end := now.AddDate(-1, 0, 0), now

	var err error
	if v := r.URL.Query().Get("start"); v != "" {
		if start, err = util.ParseDate(v); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start %q", v)
		}
	}
	if v := r.URL.Query().Get("end"); v != "" {
		if end, err = util.ParseDate(v); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end %q", v)
		}
	}
	return start, end, nil
}

func (s *Server) handleBars(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	start, end, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bars, err := s.bars.ReadBars(r.Context(), symbol, "", start, end)
	if err != nil {
		s.log.Error("reading bars", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read bars")
		return
	}
	out := make([]BarJSON, 0, len(bars))
	for i := range bars {
		out = append(out, convertBar(&bars[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if s.news == nil {
		writeError(w, http.StatusServiceUnavailable, "news source not configured")
		return
	}

	symbol := strings.ToUpper(r.PathValue("symbol"))
	start, end, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	articles, err := s.news.Fetch(r.Context(), symbol, start, end, 50)
	if err != nil {
		s.log.Error("fetching news", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch news")
		return
	}

	out := make([]ArticleJSON, 0, len(articles))
	for _, a := range articles {
		out = append(out, ArticleJSON{
			Headline:  a.Headline,
			Summary:   a.Summary,
			Source:    a.Source,
			URL:       a.URL,
			CreatedAt: a.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, NewsResponse{Symbol: symbol, Articles: out})
}
