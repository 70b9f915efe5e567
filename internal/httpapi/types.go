package httpapi

import (
	"koscore/internal/backtest"
	"koscore/internal/scoring"
)

// StockJSON is one watch-list entry in list and detail responses.
type StockJSON struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market string `json:"market"`
	Sector string `json:"sector,omitempty"`
}

// StockDetailJSON is the GET /api/stocks/{code} payload: the entry plus its
// latest close when price history exists.
type StockDetailJSON struct {
	StockJSON
	LatestClose int64  `json:"latestClose,omitempty"`
	LatestDate  string `json:"latestDate,omitempty"`
}

// StockScoreJSON is a watch-list entry with its latest composite score.
type StockScoreJSON struct {
	StockJSON
	TotalScore float64 `json:"totalScore"`
	Grade      string  `json:"grade"`
	PriceDate  string  `json:"priceDate,omitempty"`
}

// StocksResponse is the GET /api/stocks payload.
type StocksResponse struct {
	Stocks []StockScoreJSON `json:"stocks"`
	Count  int              `json:"count"`
}

// PricePointJSON is one daily bar in history responses.
type PricePointJSON struct {
	Date   string `json:"date"`
	Open   int64  `json:"open"`
	High   int64  `json:"high"`
	Low    int64  `json:"low"`
	Close  int64  `json:"close"`
	Volume int64  `json:"volume"`
}

// HistoryResponse is the GET /api/stocks/{code}/history payload, newest first.
type HistoryResponse struct {
	Code   string           `json:"code"`
	Prices []PricePointJSON `json:"prices"`
	Count  int              `json:"count"`
}

// BacktestRequest is the POST /api/backtest/{code}/run body. Zero-valued
// fields fall back to the configured defaults.
type BacktestRequest struct {
	StartDate      string  `json:"startDate"`
	EndDate        string  `json:"endDate"`
	InitialCapital int64   `json:"initialCapital"`
	BuyThreshold   float64 `json:"buyThreshold"`
	SellThreshold  float64 `json:"sellThreshold"`
}

// BacktestParamsJSON echoes the effective parameters of a run.
type BacktestParamsJSON struct {
	StartDate      string  `json:"startDate"`
	EndDate        string  `json:"endDate"`
	InitialCapital int64   `json:"initialCapital"`
	BuyThreshold   float64 `json:"buyThreshold"`
	SellThreshold  float64 `json:"sellThreshold"`
	LookbackDays   int     `json:"lookbackDays"`
	CommissionRate float64 `json:"commissionRate"`
	TaxRate        float64 `json:"taxRate"`
}

// BacktestMetricsJSON is the metrics block of a backtest response.
type BacktestMetricsJSON struct {
	TotalReturn      float64 `json:"totalReturn"`
	AnnualizedReturn float64 `json:"annualizedReturn"`
	MaxDrawdown      float64 `json:"maxDrawdown"`
	SharpeRatio      float64 `json:"sharpeRatio"`
	WinRate          float64 `json:"winRate"`
	TradeCount       int     `json:"tradeCount"`
	FinalValue       int64   `json:"finalValue"`
	TradingDays      int     `json:"tradingDays"`
}

// BacktestBenchmarkJSON compares the strategy against buy-and-hold.
type BacktestBenchmarkJSON struct {
	BuyHoldReturn float64 `json:"buyHoldReturn"`
}

// BacktestResponse is the POST /api/backtest/{code}/run payload.
type BacktestResponse struct {
	StockCode string                   `json:"stockCode"`
	StockName string                   `json:"stockName"`
	Params    BacktestParamsJSON       `json:"params"`
	DailyData []backtest.DailySnapshot `json:"dailyData"`
	Trades    []backtest.Trade         `json:"trades"`
	Metrics   BacktestMetricsJSON      `json:"metrics"`
	Benchmark BacktestBenchmarkJSON    `json:"benchmark"`
}

// DateRangeResponse is the GET /api/backtest/{code}/date-range payload.
type DateRangeResponse struct {
	Code      string `json:"code"`
	FirstDate string `json:"firstDate"`
	LastDate  string `json:"lastDate"`
	HasData   bool   `json:"hasData"`
}

// AnalysisResponse is the GET /api/analysis/{code} payload: the full
// composite breakdown for one stock.
type AnalysisResponse struct {
	scoring.CompositeResult
}

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status string `json:"status"`
	Stocks int    `json:"stocks"`
}
