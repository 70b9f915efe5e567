// Package httpapi serves the dashboard REST API: watch-list scores, price
// history, composite analysis, and backtest runs.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"koscore/internal/backtest"
	"koscore/internal/config"
	"koscore/internal/domain"
	"koscore/internal/scoring"
	"koscore/internal/store"
)

// Request bounds for backtest runs.
const (
	minCapital = 1_000_000     // won
	maxCapital = 1_000_000_000 // won

	defaultHistoryDays = 120
	maxHistoryDays     = 1000

	// scoreWindow is the trailing window fed to the technical scorer for
	// dashboard analysis, matching the backtest lookback default.
	scoreWindow = 200
)

// Store is the persistence surface the API needs.
type Store interface {
	store.PriceStore
	store.StockStore
	store.FinancialStore
	store.NewsStore
}

// Server serves the koscore HTTP API.
type Server struct {
	store     Store
	composite *scoring.Composite
	engine    *backtest.Engine
	defaults  config.BacktestConfig
	newsDays  int
	log       *slog.Logger
}

// NewServer creates a Server. defaults seeds backtest parameters the request
// body leaves zero; newsDays is the sentiment collection window.
func NewServer(st Store, composite *scoring.Composite, engine *backtest.Engine, defaults config.BacktestConfig, newsDays int, log *slog.Logger) *Server {
	return &Server{
		store:     st,
		composite: composite,
		engine:    engine,
		defaults:  defaults,
		newsDays:  newsDays,
		log:       log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/stocks", s.handleListStocks)
	mux.HandleFunc("GET /api/stocks/{code}", s.handleStock)
	mux.HandleFunc("GET /api/stocks/{code}/history", s.handleHistory)
	mux.HandleFunc("GET /api/analysis/{code}", s.handleAnalysis)
	mux.HandleFunc("POST /api/backtest/{code}/run", s.handleBacktest)
	mux.HandleFunc("GET /api/backtest/{code}/date-range", s.handleDateRange)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
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

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stocks, err := s.store.ListStocks(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, HealthResponse{Status: "ok", Stocks: len(stocks)})
}

// lookupStock fetches a stock and writes the 404 itself when unknown. The
// bool reports whether the caller may proceed.
func (s *Server) lookupStock(w http.ResponseWriter, r *http.Request) (*domain.Stock, bool) {
	code := r.PathValue("code")
	stock, err := s.store.Stock(r.Context(), code)
	if err != nil {
		s.log.Error("loading stock", "code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stock")
		return nil, false
	}
	if stock == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown stock %s", code))
		return nil, false
	}
	return stock, true
}

func (s *Server) handleListStocks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stocks, err := s.store.ListStocks(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list stocks")
		return
	}

	// Score the watch-list concurrently; a failing stock drops out of the
	// listing rather than failing the whole response.
	scored := make([]*StockScoreJSON, len(stocks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range stocks {
		g.Go(func() error {
			st := &stocks[i]
			res, err := s.analyze(gctx, st)
			if err != nil {
				s.log.Warn("scoring stock", "code", st.Code, "error", err)
				return nil
			}
			scored[i] = &StockScoreJSON{
				StockJSON: StockJSON{
					Code:   st.Code,
					Name:   st.Name,
					Market: string(st.Market),
					Sector: st.Sector,
				},
				TotalScore: res.Total,
				Grade:      res.Grade,
				PriceDate:  res.Date,
			}
			return nil
		})
	}
	g.Wait()

	out := make([]StockScoreJSON, 0, len(stocks))
	for _, entry := range scored {
		if entry != nil {
			out = append(out, *entry)
		}
	}
	writeJSON(w, StocksResponse{Stocks: out, Count: len(out)})
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	stock, ok := s.lookupStock(w, r)
	if !ok {
		return
	}

	detail := StockDetailJSON{StockJSON: StockJSON{
		Code:   stock.Code,
		Name:   stock.Name,
		Market: string(stock.Market),
		Sector: stock.Sector,
	}}
	latest, err := s.store.LatestPrice(r.Context(), stock.Code)
	if err != nil {
		s.log.Error("loading latest price", "code", stock.Code, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load latest price")
		return
	}
	if latest != nil {
		detail.LatestClose = latest.Close
		detail.LatestDate = latest.Date
	}
	writeJSON(w, detail)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	stock, ok := s.lookupStock(w, r)
	if !ok {
		return
	}

	days := defaultHistoryDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxHistoryDays {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("days must be 1..%d", maxHistoryDays))
			return
		}
		days = n
	}

	prices, err := s.store.RecentPrices(r.Context(), stock.Code, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load prices")
		return
	}

	out := make([]PricePointJSON, len(prices))
	for i, p := range prices {
		out[i] = PricePointJSON{
			Date: p.Date, Open: p.Open, High: p.High, Low: p.Low,
			Close: p.Close, Volume: p.Volume,
		}
	}
	writeJSON(w, HistoryResponse{Code: stock.Code, Prices: out, Count: len(out)})
}

// analyze runs the composite scorer over a stock's latest data.
func (s *Server) analyze(ctx context.Context, stock *domain.Stock) (scoring.CompositeResult, error) {
	recent, err := s.store.RecentPrices(ctx, stock.Code, scoreWindow)
	if err != nil {
		return scoring.CompositeResult{}, err
	}
	// RecentPrices is newest-first; scorers want ascending.
	window := make([]domain.PricePoint, len(recent))
	for i, p := range recent {
		window[len(recent)-1-i] = p
	}

	fin, err := s.store.Financials(ctx, stock.Code)
	if err != nil {
		return scoring.CompositeResult{}, err
	}

	since := time.Now().AddDate(0, 0, -s.newsDays).Format(domain.DateFormat)
	news, err := s.store.News(ctx, stock.Code, since, 50)
	if err != nil {
		return scoring.CompositeResult{}, err
	}

	return s.composite.Analyze(stock, window, fin, news), nil
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	stock, ok := s.lookupStock(w, r)
	if !ok {
		return
	}

	res, err := s.analyze(r.Context(), stock)
	if err != nil {
		s.log.Error("analysis", "code", stock.Code, "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	writeJSON(w, AnalysisResponse{CompositeResult: res})
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	stock, ok := s.lookupStock(w, r)
	if !ok {
		return
	}

	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.StartDate == "" || req.EndDate == "" {
		writeError(w, http.StatusBadRequest, "startDate and endDate are required")
		return
	}
	if req.StartDate > req.EndDate {
		writeError(w, http.StatusBadRequest, "startDate must not be after endDate")
		return
	}

	params := backtest.Params{
		Code:           stock.Code,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		InitialCapital: req.InitialCapital,
		BuyThreshold:   req.BuyThreshold,
		SellThreshold:  req.SellThreshold,
		Lookback:       s.defaults.LookbackWindow,
		CommissionRate: s.defaults.CommissionRate,
		TaxRate:        s.defaults.TaxRate,
	}
	if params.InitialCapital == 0 {
		params.InitialCapital = s.defaults.InitialCapital
	}
	if params.BuyThreshold == 0 {
		params.BuyThreshold = s.defaults.BuyThreshold
	}
	if params.SellThreshold == 0 {
		params.SellThreshold = s.defaults.SellThreshold
	}

	if params.InitialCapital < minCapital || params.InitialCapital > maxCapital {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("initialCapital must be %d..%d won", minCapital, maxCapital))
		return
	}
	if params.BuyThreshold < 0 || params.BuyThreshold > scoring.MaxTechnical ||
		params.SellThreshold < 0 || params.SellThreshold > scoring.MaxTechnical {
		writeError(w, http.StatusBadRequest, "thresholds must be within 0..30")
		return
	}

	res, err := s.engine.Run(r.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, backtest.ErrInvalidThresholds),
			errors.Is(err, backtest.ErrNoPriceData),
			errors.Is(err, backtest.ErrNoDataInRange):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.log.Error("backtest", "code", stock.Code, "error", err)
			writeError(w, http.StatusInternalServerError, "backtest failed")
		}
		return
	}

	writeJSON(w, BacktestResponse{
		StockCode: stock.Code,
		StockName: stock.Name,
		Params: BacktestParamsJSON{
			StartDate:      params.StartDate,
			EndDate:        params.EndDate,
			InitialCapital: params.InitialCapital,
			BuyThreshold:   params.BuyThreshold,
			SellThreshold:  params.SellThreshold,
			LookbackDays:   params.Lookback,
			CommissionRate: params.CommissionRate,
			TaxRate:        params.TaxRate,
		},
		DailyData: res.Daily,
		Trades:    res.Trades,
		Metrics: BacktestMetricsJSON{
			TotalReturn:      res.Metrics.TotalReturnPct,
			AnnualizedReturn: res.Metrics.AnnualizedReturnPct,
			MaxDrawdown:      res.Metrics.MaxDrawdownPct,
			SharpeRatio:      res.Metrics.SharpeRatio,
			WinRate:          res.Metrics.WinRatePct,
			TradeCount:       res.Metrics.TradeCount,
			FinalValue:       res.Metrics.FinalValue,
			TradingDays:      res.Metrics.TradingDays,
		},
		Benchmark: BacktestBenchmarkJSON{BuyHoldReturn: res.Metrics.BuyHoldReturnPct},
	})
}

func (s *Server) handleDateRange(w http.ResponseWriter, r *http.Request) {
	stock, ok := s.lookupStock(w, r)
	if !ok {
		return
	}

	first, last, err := s.store.DateRange(r.Context(), stock.Code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load date range")
		return
	}
	writeJSON(w, DateRangeResponse{
		Code:      stock.Code,
		FirstDate: first,
		LastDate:  last,
		HasData:   first != "",
	})
}
