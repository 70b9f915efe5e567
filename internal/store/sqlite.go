package store

import (
	"context"
	"database/sql"
	"fmt"

	"koscore/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ PriceStore = (*SQLiteStore)(nil)
var _ StockStore = (*SQLiteStore)(nil)
var _ FinancialStore = (*SQLiteStore)(nil)
var _ NewsStore = (*SQLiteStore)(nil)

// SQLiteStore implements PriceStore, StockStore, FinancialStore, and
// NewsStore backed by a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs the
// schema migration, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stocks (
			code    TEXT PRIMARY KEY,
			name    TEXT NOT NULL,
			market  TEXT NOT NULL DEFAULT 'kr',
			sector  TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			code          TEXT NOT NULL,
			date          TEXT NOT NULL,
			open_price    INTEGER,
			high_price    INTEGER,
			low_price     INTEGER,
			close_price   INTEGER,
			volume        INTEGER,
			trading_value INTEGER DEFAULT 0,
			created_at    TEXT DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(code, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_code_date ON price_history(code, date)`,
		`CREATE INDEX IF NOT EXISTS idx_price_date ON price_history(date)`,
		`CREATE TABLE IF NOT EXISTS financials (
			code           TEXT PRIMARY KEY,
			per            REAL,
			pbr            REAL,
			psr            REAL,
			revenue_growth REAL,
			op_growth      REAL,
			roe            REAL,
			op_margin      REAL,
			debt_ratio     REAL,
			current_ratio  REAL,
			updated_at     TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS news (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			code      TEXT NOT NULL,
			date      TEXT NOT NULL,
			headline  TEXT NOT NULL,
			source    TEXT NOT NULL DEFAULT '',
			sentiment TEXT NOT NULL DEFAULT 'neutral',
			impact    TEXT NOT NULL DEFAULT 'low',
			UNIQUE(code, date, headline)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_news_code_date ON news(code, date)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// PriceStore implementation
// ---------------------------------------------------------------------------

// SavePrices upserts a batch of price points inside one transaction.
func (s *SQLiteStore) SavePrices(ctx context.Context, prices []domain.PricePoint) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_history
			(code, date, open_price, high_price, low_price, close_price, volume, trading_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code, date) DO UPDATE SET
			open_price    = excluded.open_price,
			high_price    = excluded.high_price,
			low_price     = excluded.low_price,
			close_price   = excluded.close_price,
			volume        = excluded.volume,
			trading_value = excluded.trading_value`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range prices {
		p := &prices[i]
		if _, err := stmt.ExecContext(ctx, p.Code, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, p.TradingValue); err != nil {
			return fmt.Errorf("upserting price %s/%s: %w", p.Code, p.Date, err)
		}
	}
	return tx.Commit()
}

// Prices returns the full ascending series for a code.
func (s *SQLiteStore) Prices(ctx context.Context, code string) ([]domain.PricePoint, error) {
	return s.queryPrices(ctx, `
		SELECT code, date, open_price, high_price, low_price, close_price, volume, trading_value
		FROM price_history WHERE code = ? ORDER BY date ASC`, code)
}

// PricesInRange returns points within [start, end], ascending.
func (s *SQLiteStore) PricesInRange(ctx context.Context, code, start, end string) ([]domain.PricePoint, error) {
	return s.queryPrices(ctx, `
		SELECT code, date, open_price, high_price, low_price, close_price, volume, trading_value
		FROM price_history WHERE code = ? AND date >= ? AND date <= ? ORDER BY date ASC`, code, start, end)
}

// RecentPrices returns up to limit points, newest first.
func (s *SQLiteStore) RecentPrices(ctx context.Context, code string, limit int) ([]domain.PricePoint, error) {
	return s.queryPrices(ctx, `
		SELECT code, date, open_price, high_price, low_price, close_price, volume, trading_value
		FROM price_history WHERE code = ? ORDER BY date DESC LIMIT ?`, code, limit)
}

// LatestPrice returns the newest stored point, or (nil, nil) with no data.
func (s *SQLiteStore) LatestPrice(ctx context.Context, code string) (*domain.PricePoint, error) {
	prices, err := s.RecentPrices(ctx, code, 1)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, nil
	}
	return &prices[0], nil
}

// DateRange returns the first and last stored dates for a code.
func (s *SQLiteStore) DateRange(ctx context.Context, code string) (string, string, error) {
	var first, last sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(date), MAX(date) FROM price_history WHERE code = ?`, code,
	).Scan(&first, &last)
	if err != nil {
		return "", "", err
	}
	return first.String, last.String, nil
}

func (s *SQLiteStore) queryPrices(ctx context.Context, query string, args ...any) ([]domain.PricePoint, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.Code, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &p.TradingValue); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// ---------------------------------------------------------------------------
// StockStore implementation
// ---------------------------------------------------------------------------

// SaveStock upserts a watch-list entry.
func (s *SQLiteStore) SaveStock(ctx context.Context, st *domain.Stock) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stocks (code, name, market, sector) VALUES (?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name, market = excluded.market, sector = excluded.sector`,
		st.Code, st.Name, string(st.Market), st.Sector)
	return err
}

// Stock retrieves a stock by code, (nil, nil) when unknown.
func (s *SQLiteStore) Stock(ctx context.Context, code string) (*domain.Stock, error) {
	var st domain.Stock
	var market string
	err := s.db.QueryRowContext(ctx,
		`SELECT code, name, market, sector FROM stocks WHERE code = ?`, code,
	).Scan(&st.Code, &st.Name, &market, &st.Sector)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	st.Market = domain.Market(market)
	return &st, nil
}

// ListStocks returns the whole watch-list ordered by code.
func (s *SQLiteStore) ListStocks(ctx context.Context) ([]domain.Stock, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, name, market, sector FROM stocks ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stocks []domain.Stock
	for rows.Next() {
		var st domain.Stock
		var market string
		if err := rows.Scan(&st.Code, &st.Name, &market, &st.Sector); err != nil {
			return nil, err
		}
		st.Market = domain.Market(market)
		stocks = append(stocks, st)
	}
	return stocks, rows.Err()
}

// ---------------------------------------------------------------------------
// FinancialStore implementation
// ---------------------------------------------------------------------------

// SaveFinancials upserts the fundamental snapshot for a code.
func (s *SQLiteStore) SaveFinancials(ctx context.Context, f *domain.Financials) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO financials
			(code, per, pbr, psr, revenue_growth, op_growth, roe, op_margin, debt_ratio, current_ratio, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(code) DO UPDATE SET
			per            = excluded.per,
			pbr            = excluded.pbr,
			psr            = excluded.psr,
			revenue_growth = excluded.revenue_growth,
			op_growth      = excluded.op_growth,
			roe            = excluded.roe,
			op_margin      = excluded.op_margin,
			debt_ratio     = excluded.debt_ratio,
			current_ratio  = excluded.current_ratio,
			updated_at     = CURRENT_TIMESTAMP`,
		f.Code,
		nullFloat(f.PER), nullFloat(f.PBR), nullFloat(f.PSR),
		nullFloat(f.RevenueGrowth), nullFloat(f.OpGrowth),
		nullFloat(f.ROE), nullFloat(f.OpMargin),
		nullFloat(f.DebtRatio), nullFloat(f.CurrentRatio))
	return err
}

// Financials retrieves the snapshot for a code, (nil, nil) when none exists.
func (s *SQLiteStore) Financials(ctx context.Context, code string) (*domain.Financials, error) {
	var f domain.Financials
	var per, pbr, psr, rev, op, roe, margin, debt, current sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT code, per, pbr, psr, revenue_growth, op_growth, roe, op_margin, debt_ratio, current_ratio
		FROM financials WHERE code = ?`, code,
	).Scan(&f.Code, &per, &pbr, &psr, &rev, &op, &roe, &margin, &debt, &current)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.PER = floatPtr(per)
	f.PBR = floatPtr(pbr)
	f.PSR = floatPtr(psr)
	f.RevenueGrowth = floatPtr(rev)
	f.OpGrowth = floatPtr(op)
	f.ROE = floatPtr(roe)
	f.OpMargin = floatPtr(margin)
	f.DebtRatio = floatPtr(debt)
	f.CurrentRatio = floatPtr(current)
	return &f, nil
}

// ---------------------------------------------------------------------------
// NewsStore implementation
// ---------------------------------------------------------------------------

// SaveNews upserts a batch of news items inside one transaction.
func (s *SQLiteStore) SaveNews(ctx context.Context, items []domain.NewsItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO news (code, date, headline, source, sentiment, impact)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(code, date, headline) DO UPDATE SET
			source = excluded.source, sentiment = excluded.sentiment, impact = excluded.impact`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range items {
		n := &items[i]
		if _, err := stmt.ExecContext(ctx, n.Code, n.Date, n.Headline, n.Source, string(n.Sentiment), string(n.Impact)); err != nil {
			return fmt.Errorf("upserting news %s/%s: %w", n.Code, n.Date, err)
		}
	}
	return tx.Commit()
}

// News returns items for a code with date >= since, newest first.
func (s *SQLiteStore) News(ctx context.Context, code, since string, limit int) ([]domain.NewsItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, date, headline, source, sentiment, impact
		FROM news WHERE code = ? AND date >= ?
		ORDER BY date DESC, id DESC LIMIT ?`, code, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.NewsItem
	for rows.Next() {
		var n domain.NewsItem
		var sentiment, impact string
		if err := rows.Scan(&n.Code, &n.Date, &n.Headline, &n.Source, &sentiment, &impact); err != nil {
			return nil, err
		}
		n.Sentiment = domain.Sentiment(sentiment)
		n.Impact = domain.Impact(impact)
		items = append(items, n)
	}
	return items, rows.Err()
}

// ---------------------------------------------------------------------------
// Null helpers
// ---------------------------------------------------------------------------

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
