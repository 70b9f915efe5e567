// Package store defines storage interfaces for persisting and retrieving
// domain objects — price history, watch-list stocks, financial snapshots, and
// news — plus the SQLite implementation and a Parquet archive.
package store

import (
	"context"

	"koscore/internal/domain"
)

// PriceStore persists and retrieves daily price history.
type PriceStore interface {
	// SavePrices upserts a batch of price points keyed by (code, date).
	SavePrices(ctx context.Context, prices []domain.PricePoint) error

	// Prices returns the FULL price series for a code in ascending date
	// order. Callers that need a date range must not pre-clip here: the
	// backtest lookback window reaches back before its start date.
	Prices(ctx context.Context, code string) ([]domain.PricePoint, error)

	// PricesInRange returns points with start <= date <= end, ascending.
	PricesInRange(ctx context.Context, code, start, end string) ([]domain.PricePoint, error)

	// RecentPrices returns up to limit points in descending date order.
	RecentPrices(ctx context.Context, code string, limit int) ([]domain.PricePoint, error)

	// LatestPrice returns the most recent point for a code. Returns
	// (nil, nil) when no data exists.
	LatestPrice(ctx context.Context, code string) (*domain.PricePoint, error)

	// DateRange returns the first and last stored dates for a code. Both
	// are empty when no data exists.
	DateRange(ctx context.Context, code string) (first, last string, err error)
}

// StockStore persists and retrieves watch-list entries.
type StockStore interface {
	// SaveStock upserts a stock keyed by code.
	SaveStock(ctx context.Context, s *domain.Stock) error

	// Stock retrieves a stock by code. Returns (nil, nil) when unknown.
	Stock(ctx context.Context, code string) (*domain.Stock, error)

	// ListStocks returns the whole watch-list ordered by code.
	ListStocks(ctx context.Context) ([]domain.Stock, error)
}

// FinancialStore persists the latest fundamental snapshot per stock.
type FinancialStore interface {
	// SaveFinancials upserts the snapshot keyed by code.
	SaveFinancials(ctx context.Context, f *domain.Financials) error

	// Financials retrieves the snapshot for a code. Returns (nil, nil) when
	// none is stored.
	Financials(ctx context.Context, code string) (*domain.Financials, error)
}

// NewsStore persists collected news items.
type NewsStore interface {
	// SaveNews upserts a batch of items keyed by (code, date, headline).
	SaveNews(ctx context.Context, items []domain.NewsItem) error

	// News returns items for a code with date >= since, newest first, up to
	// limit.
	News(ctx context.Context, code, since string, limit int) ([]domain.NewsItem, error)
}
