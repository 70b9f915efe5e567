// Package koscore provides a Go SDK for the koscore-server REST API.
package koscore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to a running koscore-server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the given base URL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("koscore: %d %s", e.StatusCode, e.Message)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Stock is one watch-list entry.
type Stock struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market string `json:"market"`
	Sector string `json:"sector,omitempty"`
}

// ScoredStock is a watch-list entry with its latest composite score.
type ScoredStock struct {
	Stock
	TotalScore float64 `json:"totalScore"`
	Grade      string  `json:"grade"`
	PriceDate  string  `json:"priceDate,omitempty"`
}

// PricePoint is one daily bar.
type PricePoint struct {
	Date   string `json:"date"`
	Open   int64  `json:"open"`
	High   int64  `json:"high"`
	Low    int64  `json:"low"`
	Close  int64  `json:"close"`
	Volume int64  `json:"volume"`
}

// ListStocks retrieves the scored watch-list.
func (c *Client) ListStocks(ctx context.Context) ([]ScoredStock, error) {
	var resp struct {
		Stocks []ScoredStock `json:"stocks"`
	}
	if err := c.get(ctx, "/api/stocks", &resp); err != nil {
		return nil, err
	}
	return resp.Stocks, nil
}

// StockDetail is a watch-list entry with its latest close, when price
// history exists.
type StockDetail struct {
	Stock
	LatestClose int64  `json:"latestClose,omitempty"`
	LatestDate  string `json:"latestDate,omitempty"`
}

// GetStock retrieves one watch-list entry.
func (c *Client) GetStock(ctx context.Context, code string) (*StockDetail, error) {
	var s StockDetail
	if err := c.get(ctx, "/api/stocks/"+url.PathEscape(code), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetHistory retrieves up to days of recent prices, newest first.
func (c *Client) GetHistory(ctx context.Context, code string, days int) ([]PricePoint, error) {
	path := "/api/stocks/" + url.PathEscape(code) + "/history"
	if days > 0 {
		path += "?days=" + strconv.Itoa(days)
	}
	var resp struct {
		Prices []PricePoint `json:"prices"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Prices, nil
}

// Analysis is the composite score breakdown for one stock. Component detail
// is kept as raw JSON so SDK users can pick what they need.
type Analysis struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Date        string          `json:"analysisDate"`
	TotalScore  float64         `json:"totalScore"`
	Grade       string          `json:"grade"`
	Technical   json.RawMessage `json:"technical"`
	Fundamental json.RawMessage `json:"fundamental"`
	Sentiment   json.RawMessage `json:"sentiment"`
}

// GetAnalysis retrieves the composite score breakdown for a stock.
func (c *Client) GetAnalysis(ctx context.Context, code string) (*Analysis, error) {
	var a Analysis
	if err := c.get(ctx, "/api/analysis/"+url.PathEscape(code), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// BacktestRequest configures a backtest run. Zero-valued fields fall back to
// server defaults.
type BacktestRequest struct {
	StartDate      string  `json:"startDate"`
	EndDate        string  `json:"endDate"`
	InitialCapital int64   `json:"initialCapital,omitempty"`
	BuyThreshold   float64 `json:"buyThreshold,omitempty"`
	SellThreshold  float64 `json:"sellThreshold,omitempty"`
}

// BacktestMetrics summarizes a run's performance.
type BacktestMetrics struct {
	TotalReturn      float64 `json:"totalReturn"`
	AnnualizedReturn float64 `json:"annualizedReturn"`
	MaxDrawdown      float64 `json:"maxDrawdown"`
	SharpeRatio      float64 `json:"sharpeRatio"`
	WinRate          float64 `json:"winRate"`
	TradeCount       int     `json:"tradeCount"`
	FinalValue       int64   `json:"finalValue"`
	TradingDays      int     `json:"tradingDays"`
}

// BacktestResult is a completed run.
type BacktestResult struct {
	StockCode string          `json:"stockCode"`
	StockName string          `json:"stockName"`
	Metrics   BacktestMetrics `json:"metrics"`
	DailyData json.RawMessage `json:"dailyData"`
	Trades    json.RawMessage `json:"trades"`
	Benchmark struct {
		BuyHoldReturn float64 `json:"buyHoldReturn"`
	} `json:"benchmark"`
}

// RunBacktest runs a backtest for a stock.
func (c *Client) RunBacktest(ctx context.Context, code string, req BacktestRequest) (*BacktestResult, error) {
	var res BacktestResult
	if err := c.post(ctx, "/api/backtest/"+url.PathEscape(code)+"/run", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DateRange is the available price history span for a stock.
type DateRange struct {
	Code      string `json:"code"`
	FirstDate string `json:"firstDate"`
	LastDate  string `json:"lastDate"`
	HasData   bool   `json:"hasData"`
}

// GetDateRange retrieves the available backtest range for a stock.
func (c *Client) GetDateRange(ctx context.Context, code string) (*DateRange, error) {
	var dr DateRange
	if err := c.get(ctx, "/api/backtest/"+url.PathEscape(code)+"/date-range", &dr); err != nil {
		return nil, err
	}
	return &dr, nil
}
