package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"tradedesk/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ ResultStore = (*SQLiteStore)(nil)

// SQLiteStore implements ResultStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const migration = `
CREATE TABLE IF NOT EXISTS strategies (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	parameters  TEXT NOT NULL DEFAULT '{}',
	is_active   INTEGER NOT NULL DEFAULT 1,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS backtests (
	id              TEXT PRIMARY KEY,
	strategy_id     TEXT NOT NULL,
	name            TEXT NOT NULL,
	start_date      TEXT NOT NULL,
	end_date        TEXT NOT NULL,
	initial_capital REAL NOT NULL,
	commission      REAL NOT NULL,
	slippage        REAL NOT NULL,
	status          TEXT NOT NULL,
	total_return    REAL,
	max_drawdown    REAL,
	sharpe_ratio    REAL,
	win_rate        REAL,
	profit_factor   REAL,
	total_trades    INTEGER,
	winning_trades  INTEGER,
	losing_trades   INTEGER,
	avg_win         REAL,
	avg_loss        REAL,
	largest_win     REAL,
	largest_loss    REAL,
	created_at      TEXT NOT NULL,
	completed_at    TEXT
);

CREATE TABLE IF NOT EXISTS backtest_trades (
	id           TEXT PRIMARY KEY,
	backtest_id  TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	entry_date   TEXT NOT NULL,
	entry_price  REAL NOT NULL,
	exit_date    TEXT,
	exit_price   REAL,
	quantity     INTEGER NOT NULL,
	commission   REAL NOT NULL,
	pnl          REAL,
	pnl_percent  REAL,
	status       TEXT NOT NULL,
	entry_reason TEXT NOT NULL DEFAULT '',
	exit_reason  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_backtest_trades_backtest
	ON backtest_trades (backtest_id, entry_date);

CREATE TABLE IF NOT EXISTS backtest_equity_curve (
	backtest_id     TEXT NOT NULL,
	trade_date      TEXT NOT NULL,
	portfolio_value REAL NOT NULL,
	cash            REAL NOT NULL,
	positions_value REAL NOT NULL,
	daily_return    REAL NOT NULL,
	PRIMARY KEY (backtest_id, trade_date)
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs the
// schema migration, and seeds the built-in strategy catalog when empty.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(migration); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migration: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.seedStrategies(); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding strategies: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// seedStrategies inserts the built-in strategy catalog entries if the
// strategies table is empty. Seeded ids equal the strategy kind.
func (s *SQLiteStore) seedStrategies() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM strategies`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	builtins := []domain.StrategySpec{
		{
			ID:          string(domain.KindSMACross),
			Name:        "Simple Moving Average Crossover",
			Kind:        domain.KindSMACross,
			Description: "Buy when SMA20 crosses above SMA50, sell when it crosses back below.",
			Parameters:  map[string]float64{"stop_loss": 0.05, "take_profit": 0.10},
		},
		{
			ID:          string(domain.KindRSIReversion),
			Name:        "RSI Mean Reversion",
			Kind:        domain.KindRSIReversion,
			Description: "Buy when RSI14 drops below the oversold level, sell above overbought.",
			Parameters:  map[string]float64{"oversold": 30, "overbought": 70, "stop_loss": 0.05},
		},
		{
			ID:          string(domain.KindBollingerBreakout),
			Name:        "Bollinger Bands Breakout",
			Kind:        domain.KindBollingerBreakout,
			Description: "Buy on a close above the upper band, sell on a close below the lower band.",
			Parameters:  map[string]float64{"stop_loss": 0.05, "take_profit": 0.10},
		},
	}

	now := time.Now().UTC()
	for i := range builtins {
		builtins[i].IsActive = true
		builtins[i].CreatedAt = now
		if err := s.CreateStrategy(context.Background(), &builtins[i]); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Backtests
// ---------------------------------------------------------------------------

// CreateBacktest inserts a new backtest record.
func (s *SQLiteStore) CreateBacktest(ctx context.Context, bt *domain.Backtest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backtests (id, strategy_id, name, start_date, end_date,
			initial_capital, commission, slippage, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bt.ID, bt.StrategyID, bt.Name,
		bt.StartDate.Format(domain.DateLayout), bt.EndDate.Format(domain.DateLayout),
		bt.InitialCapital, bt.Commission, bt.Slippage,
		string(bt.Status), bt.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting backtest %s: %w", bt.ID, err)
	}
	return nil
}

// GetBacktest retrieves a backtest by id.
func (s *SQLiteStore) GetBacktest(ctx context.Context, id string) (*domain.Backtest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, strategy_id, name, start_date, end_date, initial_capital,
			commission, slippage, status, total_return, max_drawdown,
			sharpe_ratio, win_rate, profit_factor, total_trades,
			winning_trades, losing_trades, avg_win, avg_loss, largest_win,
			largest_loss, created_at, completed_at
		FROM backtests WHERE id = ?`, id)

	bt, err := scanBacktest(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying backtest %s: %w", id, err)
	}
	return bt, nil
}

// ListBacktests returns backtests filtered by strategy id and/or status.
func (s *SQLiteStore) ListBacktests(ctx context.Context, strategyID string, status domain.BacktestStatus) ([]domain.Backtest, error) {
	query := `
		SELECT id, strategy_id, name, start_date, end_date, initial_capital,
			commission, slippage, status, total_return, max_drawdown,
			sharpe_ratio, win_rate, profit_factor, total_trades,
			winning_trades, losing_trades, avg_win, avg_loss, largest_win,
			largest_loss, created_at, completed_at
		FROM backtests WHERE 1=1`
	var args []any
	if strategyID != "" {
		query += ` AND strategy_id = ?`
		args = append(args, strategyID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing backtests: %w", err)
	}
	defer rows.Close()

	var backtests []domain.Backtest
	for rows.Next() {
		bt, err := scanBacktest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning backtest: %w", err)
		}
		backtests = append(backtests, *bt)
	}
	return backtests, rows.Err()
}

// UpdateStatus transitions a backtest's status.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status domain.BacktestStatus) error {
	var res sql.Result
	var err error
	if status == domain.BacktestCompleted {
		res, err = s.db.ExecContext(ctx,
			`UPDATE backtests SET status = ?, completed_at = ? WHERE id = ?`,
			string(status), time.Now().UTC().Format(time.RFC3339), id)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE backtests SET status = ? WHERE id = ?`, string(status), id)
	}
	if err != nil {
		return fmt.Errorf("updating status of %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// WriteStatistics writes the final statistics onto a backtest as a single
// atomic update.
func (s *SQLiteStore) WriteStatistics(ctx context.Context, id string, stats domain.Stats) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE backtests SET
			total_return = ?, max_drawdown = ?, sharpe_ratio = ?,
			win_rate = ?, profit_factor = ?, total_trades = ?,
			winning_trades = ?, losing_trades = ?, avg_win = ?, avg_loss = ?,
			largest_win = ?, largest_loss = ?
		WHERE id = ?`,
		stats.TotalReturn, stats.MaxDrawdown, stats.SharpeRatio,
		stats.WinRate, stats.ProfitFactor, stats.TotalTrades,
		stats.WinningTrades, stats.LosingTrades, stats.AvgWin, stats.AvgLoss,
		stats.LargestWin, stats.LargestLoss, id,
	)
	if err != nil {
		return fmt.Errorf("writing statistics for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Trades
// ---------------------------------------------------------------------------

// AppendTrade inserts a newly opened trade.
func (s *SQLiteStore) AppendTrade(ctx context.Context, t *domain.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backtest_trades (id, backtest_id, symbol, entry_date,
			entry_price, quantity, commission, status, entry_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.BacktestID, t.Symbol, t.EntryDate.Format(domain.DateLayout),
		t.EntryPrice, t.Quantity, t.Commission, string(t.Status), t.EntryReason,
	)
	if err != nil {
		return fmt.Errorf("inserting trade %s: %w", t.ID, err)
	}
	return nil
}

// UpdateTrade persists the closing leg of a trade.
func (s *SQLiteStore) UpdateTrade(ctx context.Context, t *domain.Trade) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE backtest_trades
		SET exit_date = ?, exit_price = ?, pnl = ?, pnl_percent = ?,
			commission = ?, status = ?, exit_reason = ?
		WHERE id = ?`,
		t.ExitDate.Format(domain.DateLayout), t.ExitPrice, t.PnL, t.PnLPercent,
		t.Commission, string(t.Status), t.ExitReason, t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating trade %s: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTrades returns all trades for a backtest ordered by entry date.
func (s *SQLiteStore) ListTrades(ctx context.Context, backtestID string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, backtest_id, symbol, entry_date, entry_price, exit_date,
			exit_price, quantity, commission, pnl, pnl_percent, status,
			entry_reason, exit_reason
		FROM backtest_trades
		WHERE backtest_id = ?
		ORDER BY entry_date, id`, backtestID)
	if err != nil {
		return nil, fmt.Errorf("listing trades for %s: %w", backtestID, err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var (
			t         domain.Trade
			entryDate string
			exitDate  sql.NullString
			exitPrice sql.NullFloat64
			pnl       sql.NullFloat64
			pnlPct    sql.NullFloat64
			status    string
		)
		if err := rows.Scan(&t.ID, &t.BacktestID, &t.Symbol, &entryDate,
			&t.EntryPrice, &exitDate, &exitPrice, &t.Quantity, &t.Commission,
			&pnl, &pnlPct, &status, &t.EntryReason, &t.ExitReason); err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		t.Status = domain.TradeStatus(status)
		t.EntryDate, _ = time.Parse(domain.DateLayout, entryDate)
		if exitDate.Valid {
			t.ExitDate, _ = time.Parse(domain.DateLayout, exitDate.String)
		}
		t.ExitPrice = exitPrice.Float64
		t.PnL = pnl.Float64
		t.PnLPercent = pnlPct.Float64
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ---------------------------------------------------------------------------
// Equity curve
// ---------------------------------------------------------------------------

// AppendEquityPoint inserts one equity curve point. Re-running a date for
// the same backtest overwrites the previous snapshot.
func (s *SQLiteStore) AppendEquityPoint(ctx context.Context, p *domain.EquityPoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backtest_equity_curve (backtest_id, trade_date,
			portfolio_value, cash, positions_value, daily_return)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (backtest_id, trade_date) DO UPDATE SET
			portfolio_value = excluded.portfolio_value,
			cash = excluded.cash,
			positions_value = excluded.positions_value,
			daily_return = excluded.daily_return`,
		p.BacktestID, p.Date.Format(domain.DateLayout),
		p.PortfolioValue, p.Cash, p.PositionsValue, p.DailyReturn,
	)
	if err != nil {
		return fmt.Errorf("inserting equity point for %s: %w", p.BacktestID, err)
	}
	return nil
}

// ListEquityCurve returns the equity curve for a backtest ordered by date.
func (s *SQLiteStore) ListEquityCurve(ctx context.Context, backtestID string) ([]domain.EquityPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT backtest_id, trade_date, portfolio_value, cash,
			positions_value, daily_return
		FROM backtest_equity_curve
		WHERE backtest_id = ?
		ORDER BY trade_date`, backtestID)
	if err != nil {
		return nil, fmt.Errorf("listing equity curve for %s: %w", backtestID, err)
	}
	defer rows.Close()

	var curve []domain.EquityPoint
	for rows.Next() {
		var (
			p    domain.EquityPoint
			date string
		)
		if err := rows.Scan(&p.BacktestID, &date, &p.PortfolioValue,
			&p.Cash, &p.PositionsValue, &p.DailyReturn); err != nil {
			return nil, fmt.Errorf("scanning equity point: %w", err)
		}
		p.Date, _ = time.Parse(domain.DateLayout, date)
		curve = append(curve, p)
	}
	return curve, rows.Err()
}

// ---------------------------------------------------------------------------
// Strategies
// ---------------------------------------------------------------------------

// CreateStrategy inserts a strategy catalog entry.
func (s *SQLiteStore) CreateStrategy(ctx context.Context, spec *domain.StrategySpec) error {
	params, err := json.Marshal(spec.Parameters)
	if err != nil {
		return fmt.Errorf("marshalling parameters: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO strategies (id, name, kind, description, parameters, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		spec.ID, spec.Name, string(spec.Kind), spec.Description,
		string(params), boolToInt(spec.IsActive), spec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting strategy %s: %w", spec.ID, err)
	}
	return nil
}

// GetStrategy retrieves a strategy by id.
func (s *SQLiteStore) GetStrategy(ctx context.Context, id string) (*domain.StrategySpec, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, description, parameters, is_active, created_at
		FROM strategies WHERE id = ?`, id)

	spec, err := scanStrategy(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying strategy %s: %w", id, err)
	}
	return spec, nil
}

// ListStrategies returns all active strategies ordered by name.
func (s *SQLiteStore) ListStrategies(ctx context.Context) ([]domain.StrategySpec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, description, parameters, is_active, created_at
		FROM strategies WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing strategies: %w", err)
	}
	defer rows.Close()

	var specs []domain.StrategySpec
	for rows.Next() {
		spec, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning strategy: %w", err)
		}
		specs = append(specs, *spec)
	}
	return specs, rows.Err()
}

// ---------------------------------------------------------------------------
// Row scanning
// ---------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...any) error
}

func scanBacktest(row scanner) (*domain.Backtest, error) {
	var (
		bt          domain.Backtest
		startDate   string
		endDate     string
		status      string
		createdAt   string
		completedAt sql.NullString
		totalReturn sql.NullFloat64
		maxDD       sql.NullFloat64
		sharpe      sql.NullFloat64
		winRate     sql.NullFloat64
		pf          sql.NullFloat64
		totalTrades sql.NullInt64
		winTrades   sql.NullInt64
		loseTrades  sql.NullInt64
		avgWin      sql.NullFloat64
		avgLoss     sql.NullFloat64
		largestWin  sql.NullFloat64
		largestLoss sql.NullFloat64
	)

	err := row.Scan(&bt.ID, &bt.StrategyID, &bt.Name, &startDate, &endDate,
		&bt.InitialCapital, &bt.Commission, &bt.Slippage, &status,
		&totalReturn, &maxDD, &sharpe, &winRate, &pf, &totalTrades,
		&winTrades, &loseTrades, &avgWin, &avgLoss, &largestWin,
		&largestLoss, &createdAt, &completedAt)
	if err != nil {
		return nil, err
	}

	bt.Status = domain.BacktestStatus(status)
	bt.StartDate, _ = time.Parse(domain.DateLayout, startDate)
	bt.EndDate, _ = time.Parse(domain.DateLayout, endDate)
	bt.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if completedAt.Valid {
		bt.CompletedAt, _ = time.Parse(time.RFC3339, completedAt.String)
	}

	// Statistics columns are written together; total_trades is the marker.
	if totalTrades.Valid {
		bt.Stats = &domain.Stats{
			TotalReturn:   totalReturn.Float64,
			MaxDrawdown:   maxDD.Float64,
			SharpeRatio:   sharpe.Float64,
			WinRate:       winRate.Float64,
			ProfitFactor:  pf.Float64,
			TotalTrades:   int(totalTrades.Int64),
			WinningTrades: int(winTrades.Int64),
			LosingTrades:  int(loseTrades.Int64),
			AvgWin:        avgWin.Float64,
			AvgLoss:       avgLoss.Float64,
			LargestWin:    largestWin.Float64,
			LargestLoss:   largestLoss.Float64,
		}
	}
	return &bt, nil
}

func scanStrategy(row scanner) (*domain.StrategySpec, error) {
	var (
		spec      domain.StrategySpec
		kind      string
		params    string
		isActive  int
		createdAt string
	)
	if err := row.Scan(&spec.ID, &spec.Name, &kind, &spec.Description,
		&params, &isActive, &createdAt); err != nil {
		return nil, err
	}
	spec.Kind = domain.StrategyKind(kind)
	spec.IsActive = isActive != 0
	spec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if err := json.Unmarshal([]byte(params), &spec.Parameters); err != nil {
		return nil, fmt.Errorf("unmarshalling parameters: %w", err)
	}
	return &spec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
