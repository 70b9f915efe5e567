// Package backtest simulates the score-driven trading rule over one stock's
// daily history and reports the resulting performance. The simulation holds a
// single long position at a time, works in integer won, and never looks past
// the day it is trading on.
package backtest

import "errors"

var (
	// ErrNoPriceData means the stock has no stored price history at all.
	ErrNoPriceData = errors.New("backtest: no price data")
	// ErrNoDataInRange means the stored history does not overlap the
	// requested date range.
	ErrNoDataInRange = errors.New("backtest: no data in range")
	// ErrInvalidThresholds means the sell threshold is not strictly below
	// the buy threshold, which would make the rule oscillate.
	ErrInvalidThresholds = errors.New("backtest: sell threshold must be below buy threshold")
)

// Default simulation parameters.
const (
	DefaultInitialCapital = 10_000_000 // won
	DefaultBuyThreshold   = 20.0
	DefaultSellThreshold  = 12.0
	DefaultLookback       = 200
	DefaultCommissionRate = 0.00015 // per side, on gross notional
	DefaultTaxRate        = 0.0023  // sell side only
)

// Params configures one simulation run.
type Params struct {
	Code           string
	StartDate      string // YYYY-MM-DD, inclusive
	EndDate        string // YYYY-MM-DD, inclusive
	InitialCapital int64  // won
	BuyThreshold   float64
	SellThreshold  float64
	Lookback       int // trailing days fed to the scorer, current day included
	CommissionRate float64
	TaxRate        float64
}

// DefaultParams returns Params for the given code and range with every other
// field at its default.
func DefaultParams(code, start, end string) Params {
	return Params{
		Code:           code,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: DefaultInitialCapital,
		BuyThreshold:   DefaultBuyThreshold,
		SellThreshold:  DefaultSellThreshold,
		Lookback:       DefaultLookback,
		CommissionRate: DefaultCommissionRate,
		TaxRate:        DefaultTaxRate,
	}
}

// TradeKind distinguishes the two ledger entry types.
type TradeKind string

const (
	TradeBuy  TradeKind = "buy"
	TradeSell TradeKind = "sell"
)

// Trade is one executed order. Profit and ProfitPct are set on sells only.
type Trade struct {
	Kind           TradeKind `json:"type"`
	Date           string    `json:"date"`
	Price          int64     `json:"price"`
	Shares         int64     `json:"shares"`
	Score          float64   `json:"score"`
	PortfolioValue int64     `json:"portfolioValue"`
	Profit         *int64    `json:"profit,omitempty"`
	ProfitPct      *float64  `json:"profitPct,omitempty"`
}

// Position is the state of the simulated portfolio on a given day.
type Position string

const (
	PositionHolding Position = "holding"
	PositionCash    Position = "cash"
)

// DailySnapshot records the portfolio at the close of one simulated day.
type DailySnapshot struct {
	Date           string   `json:"date"`
	Price          int64    `json:"price"`
	Score          float64  `json:"score"` // rounded to one decimal
	PortfolioValue int64    `json:"portfolioValue"`
	Position       Position `json:"position"`
	Shares         int64    `json:"shares"`
}

// Metrics summarizes a finished run. Percentages are rounded to two decimals
// except WinRate (one decimal); everything upstream is computed unrounded.
type Metrics struct {
	TotalReturnPct      float64 `json:"totalReturn"`
	AnnualizedReturnPct float64 `json:"annualizedReturn"`
	BuyHoldReturnPct    float64 `json:"buyHoldReturn"`
	MaxDrawdownPct      float64 `json:"maxDrawdown"`
	SharpeRatio         float64 `json:"sharpeRatio"`
	WinRatePct          float64 `json:"winRate"`
	TradeCount          int     `json:"tradeCount"`
	TradingDays         int     `json:"tradingDays"`
	FinalValue          int64   `json:"finalValue"`
}

// Result is the full output of one run.
type Result struct {
	Daily   []DailySnapshot `json:"dailyData"`
	Trades  []Trade         `json:"trades"`
	Metrics Metrics         `json:"metrics"`
}
