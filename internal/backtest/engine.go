package backtest

import (
	"context"
	"math"

	"koscore/internal/domain"
	"koscore/internal/scoring"
	"koscore/internal/store"
)

// Engine runs simulations against a price store using an injected scorer.
// It holds no per-run state, so one Engine may serve concurrent runs.
type Engine struct {
	prices store.PriceStore
	scorer scoring.Scorer
}

// NewEngine creates an Engine.
func NewEngine(prices store.PriceStore, scorer scoring.Scorer) *Engine {
	return &Engine{prices: prices, scorer: scorer}
}

// Run simulates the trading rule over the requested range. All validation
// happens before the first simulated day; a returned error means no partial
// result was produced.
func (e *Engine) Run(ctx context.Context, p Params) (*Result, error) {
	if p.SellThreshold >= p.BuyThreshold {
		return nil, ErrInvalidThresholds
	}
	if p.Lookback <= 0 {
		p.Lookback = DefaultLookback
	}

	all, err := e.prices.Prices(ctx, p.Code)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNoPriceData
	}

	startIdx, endIdx := locateRange(all, p.StartDate, p.EndDate)
	if startIdx < 0 || endIdx < startIdx {
		return nil, ErrNoDataInRange
	}

	sim := simulation{params: p, cash: p.InitialCapital}
	for i := startIdx; i <= endIdx; i++ {
		windowStart := i - p.Lookback + 1
		if windowStart < 0 {
			windowStart = 0
		}
		window := all[windowStart : i+1]

		day := all[i]
		score := e.scorer.Score(window)
		sim.step(day.Date, day.Close, score)
	}

	res := &Result{
		Daily:  sim.daily,
		Trades: sim.trades,
	}
	res.Metrics = computeMetrics(p, sim.daily, sim.trades, all[startIdx].Close, all[endIdx].Close)
	return res, nil
}

// locateRange returns the first index with date >= start and the last index
// with date <= end. startIdx is -1 when no date reaches start; endIdx is -1
// when no date is within end.
func locateRange(prices []domain.PricePoint, start, end string) (startIdx, endIdx int) {
	startIdx, endIdx = -1, -1
	for i := range prices {
		if prices[i].Date >= start {
			startIdx = i
			break
		}
	}
	for i := len(prices) - 1; i >= 0; i-- {
		if prices[i].Date <= end {
			endIdx = i
			break
		}
	}
	return startIdx, endIdx
}

// simulation is the mutable state of one run: cash, the open position, and
// the accumulated ledger.
type simulation struct {
	params Params

	cash     int64
	shares   int64
	buyPrice int64 // average cost of the open position

	trades []Trade
	daily  []DailySnapshot
}

// step processes one trading day: apply the rule, then record the close.
func (s *simulation) step(date string, price int64, score float64) {
	if price > 0 {
		if s.shares == 0 && score >= s.params.BuyThreshold {
			s.buy(date, price, score)
		} else if s.shares > 0 && score < s.params.SellThreshold {
			s.sell(date, price, score)
		}
	}

	pos := PositionCash
	if s.shares > 0 {
		pos = PositionHolding
	}
	s.daily = append(s.daily, DailySnapshot{
		Date:           date,
		Price:          price,
		Score:          round1(score),
		PortfolioValue: s.cash + s.shares*price,
		Position:       pos,
		Shares:         s.shares,
	})
}

// buy spends as much cash as the commission leaves room for, in whole shares.
// A day where even one share is unaffordable is a silent no-op.
func (s *simulation) buy(date string, price int64, score float64) {
	available := float64(s.cash) * (1 - s.params.CommissionRate)
	shares := int64(available / float64(price))
	if shares <= 0 {
		return
	}

	cost := shares * price
	commission := int64(float64(cost) * s.params.CommissionRate)
	s.cash -= cost + commission
	s.shares = shares
	s.buyPrice = price

	s.trades = append(s.trades, Trade{
		Kind:           TradeBuy,
		Date:           date,
		Price:          price,
		Shares:         shares,
		Score:          round1(score),
		PortfolioValue: s.cash + s.shares*price,
	})
}

// sell liquidates the whole position. Commission and tax are floored on the
// gross notional; profit is measured against the recorded average cost.
func (s *simulation) sell(date string, price int64, score float64) {
	proceeds := s.shares * price
	commission := int64(float64(proceeds) * s.params.CommissionRate)
	tax := int64(float64(proceeds) * s.params.TaxRate)
	net := proceeds - commission - tax

	profit := net - s.buyPrice*s.shares
	profitPct := round2(float64(price-s.buyPrice) / float64(s.buyPrice) * 100)

	s.cash += net
	s.trades = append(s.trades, Trade{
		Kind:           TradeSell,
		Date:           date,
		Price:          price,
		Shares:         s.shares,
		Score:          round1(score),
		PortfolioValue: s.cash,
		Profit:         &profit,
		ProfitPct:      &profitPct,
	})

	s.shares = 0
	s.buyPrice = 0
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
