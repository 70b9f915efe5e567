package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"testing"

	"koscore/internal/domain"
	"koscore/internal/scoring"
)

// memPriceStore is an in-memory PriceStore covering what the engine needs.
type memPriceStore struct {
	series map[string][]domain.PricePoint
}

func newMemPriceStore() *memPriceStore {
	return &memPriceStore{series: make(map[string][]domain.PricePoint)}
}

func (m *memPriceStore) SavePrices(_ context.Context, prices []domain.PricePoint) error {
	for _, p := range prices {
		m.series[p.Code] = append(m.series[p.Code], p)
	}
	for code := range m.series {
		s := m.series[code]
		sort.Slice(s, func(i, j int) bool { return s[i].Date < s[j].Date })
	}
	return nil
}

func (m *memPriceStore) Prices(_ context.Context, code string) ([]domain.PricePoint, error) {
	return m.series[code], nil
}

func (m *memPriceStore) PricesInRange(_ context.Context, code, start, end string) ([]domain.PricePoint, error) {
	var out []domain.PricePoint
	for _, p := range m.series[code] {
		if p.Date >= start && p.Date <= end {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPriceStore) RecentPrices(_ context.Context, code string, limit int) ([]domain.PricePoint, error) {
	s := m.series[code]
	var out []domain.PricePoint
	for i := len(s) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s[i])
	}
	return out, nil
}

func (m *memPriceStore) LatestPrice(_ context.Context, code string) (*domain.PricePoint, error) {
	s := m.series[code]
	if len(s) == 0 {
		return nil, nil
	}
	return &s[len(s)-1], nil
}

func (m *memPriceStore) DateRange(_ context.Context, code string) (string, string, error) {
	s := m.series[code]
	if len(s) == 0 {
		return "", "", nil
	}
	return s[0].Date, s[len(s)-1].Date, nil
}

// scriptedScorer returns a fixed score per date, falling back to a default.
type scriptedScorer struct {
	byDate   map[string]float64
	fallback float64
}

func (s *scriptedScorer) Score(window []domain.PricePoint) float64 {
	if len(window) == 0 {
		return s.fallback
	}
	last := window[len(window)-1].Date
	if v, ok := s.byDate[last]; ok {
		return v
	}
	return s.fallback
}

var _ scoring.Scorer = (*scriptedScorer)(nil)

// fixedScorer always returns the same score.
type fixedScorer struct{ v float64 }

func (s fixedScorer) Score([]domain.PricePoint) float64 { return s.v }

// seedSeries stores count consecutive synthetic trading days starting at
// 2024-03-01 with the given closes.
func seedSeries(t *testing.T, st *memPriceStore, code string, closes []int64) []string {
	t.Helper()
	dates := make([]string, len(closes))
	points := make([]domain.PricePoint, len(closes))
	for i, c := range closes {
		// Synthetic calendar: day numbers 01..99 within two months.
		var d string
		if i < 28 {
			d = fmt.Sprintf("2024-03-%02d", i+1)
		} else {
			d = fmt.Sprintf("2024-04-%02d", i-27)
		}
		dates[i] = d
		points[i] = domain.PricePoint{Code: code, Date: d, Close: c, Volume: 1000}
	}
	if err := st.SavePrices(context.Background(), points); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return dates
}

func constSeries(n int, v int64) []int64 {
	s := make([]int64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestRunValidatesThresholds(t *testing.T) {
	e := NewEngine(newMemPriceStore(), fixedScorer{15})
	p := DefaultParams("005930", "2024-03-01", "2024-03-31")
	p.BuyThreshold = 12
	p.SellThreshold = 20

	if _, err := e.Run(context.Background(), p); !errors.Is(err, ErrInvalidThresholds) {
		t.Fatalf("err = %v, want ErrInvalidThresholds", err)
	}

	p.BuyThreshold = 20
	p.SellThreshold = 20
	if _, err := e.Run(context.Background(), p); !errors.Is(err, ErrInvalidThresholds) {
		t.Fatalf("equal thresholds: err = %v, want ErrInvalidThresholds", err)
	}
}

func TestRunNoPriceData(t *testing.T) {
	e := NewEngine(newMemPriceStore(), fixedScorer{15})
	_, err := e.Run(context.Background(), DefaultParams("000000", "2024-03-01", "2024-03-31"))
	if !errors.Is(err, ErrNoPriceData) {
		t.Fatalf("err = %v, want ErrNoPriceData", err)
	}
}

func TestRunEmptyRange(t *testing.T) {
	st := newMemPriceStore()
	seedSeries(t, st, "005930", constSeries(5, 1000))
	e := NewEngine(st, fixedScorer{15})

	// Start after the last available date.
	_, err := e.Run(context.Background(), DefaultParams("005930", "2024-05-01", "2024-05-31"))
	if !errors.Is(err, ErrNoDataInRange) {
		t.Fatalf("start past data: err = %v, want ErrNoDataInRange", err)
	}

	// End before the first available date.
	_, err = e.Run(context.Background(), DefaultParams("005930", "2024-01-01", "2024-01-31"))
	if !errors.Is(err, ErrNoDataInRange) {
		t.Fatalf("end before data: err = %v, want ErrNoDataInRange", err)
	}
}

func TestThresholdHysteresis(t *testing.T) {
	st := newMemPriceStore()
	dates := seedSeries(t, st, "005930", constSeries(3, 1000))

	scorer := &scriptedScorer{byDate: map[string]float64{
		dates[0]: 25, // buy
		dates[1]: 15, // between thresholds: hold
		dates[2]: 25, // already holding: no second buy
	}}
	e := NewEngine(st, scorer)

	res, err := e.Run(context.Background(), DefaultParams("005930", dates[0], dates[2]))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 1 || res.Trades[0].Kind != TradeBuy {
		t.Fatalf("trades = %+v, want exactly one buy", res.Trades)
	}
	for i, d := range res.Daily {
		if d.Position != PositionHolding {
			t.Errorf("day %d position = %s, want holding", i, d.Position)
		}
	}
}

func TestForcedLossScenario(t *testing.T) {
	st := newMemPriceStore()
	dates := seedSeries(t, st, "005930", []int64{1000, 900})

	scorer := &scriptedScorer{byDate: map[string]float64{
		dates[0]: 25, // buy at 1000
		dates[1]: 5,  // sell at 900
	}}
	e := NewEngine(st, scorer)

	res, err := e.Run(context.Background(), DefaultParams("005930", dates[0], dates[1]))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 2 {
		t.Fatalf("trade count = %d, want 2", len(res.Trades))
	}

	buy, sell := res.Trades[0], res.Trades[1]
	if buy.Kind != TradeBuy || sell.Kind != TradeSell {
		t.Fatalf("trade kinds = %s/%s", buy.Kind, sell.Kind)
	}

	// floor(10,000,000 * (1-0.00015) / 1000) = 9998 shares.
	if buy.Shares != 9998 {
		t.Errorf("buy shares = %d, want 9998", buy.Shares)
	}
	if sell.ProfitPct == nil || *sell.ProfitPct != -10.0 {
		t.Errorf("profitPct = %v, want -10.0", sell.ProfitPct)
	}
	if sell.Profit == nil || *sell.Profit >= 0 {
		t.Errorf("profit = %v, want negative", sell.Profit)
	}

	// Fees make the realized loss deeper than the raw price move.
	gross := buy.Shares * (900 - 1000)
	if *sell.Profit >= gross {
		t.Errorf("profit %d should be below gross move %d", *sell.Profit, gross)
	}
}

func TestCashConservationAndStateExclusivity(t *testing.T) {
	st := newMemPriceStore()
	closes := []int64{1000, 1050, 990, 1100, 950, 1200, 800, 1000, 1010, 990}
	dates := seedSeries(t, st, "005930", closes)

	scorer := &scriptedScorer{fallback: 15, byDate: map[string]float64{
		dates[0]: 25, // buy
		dates[2]: 5,  // sell
		dates[4]: 25, // buy again
		dates[6]: 5,  // sell again
	}}
	e := NewEngine(st, scorer)

	res, err := e.Run(context.Background(), DefaultParams("005930", dates[0], dates[len(dates)-1]))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Reconstruct cash from the ledger and verify every snapshot satisfies
	// value == cash + shares*close exactly.
	cash := int64(DefaultInitialCapital)
	ti := 0
	var shares int64
	for _, d := range res.Daily {
		for ti < len(res.Trades) && res.Trades[ti].Date == d.Date {
			tr := res.Trades[ti]
			if tr.Kind == TradeBuy {
				cost := tr.Shares * tr.Price
				cash -= cost + int64(float64(cost)*DefaultCommissionRate)
				shares = tr.Shares
			} else {
				proceeds := tr.Shares * tr.Price
				cash += proceeds - int64(float64(proceeds)*DefaultCommissionRate) - int64(float64(proceeds)*DefaultTaxRate)
				shares = 0
			}
			ti++
		}
		if want := cash + shares*d.Price; d.PortfolioValue != want {
			t.Errorf("%s portfolio = %d, want %d", d.Date, d.PortfolioValue, want)
		}
		if (d.Position == PositionHolding) != (d.Shares > 0) {
			t.Errorf("%s position %s inconsistent with %d shares", d.Date, d.Position, d.Shares)
		}
	}
	if ti != len(res.Trades) {
		t.Errorf("replayed %d of %d trades", ti, len(res.Trades))
	}
}

func TestNoLookAhead(t *testing.T) {
	base := []int64{1000, 1010, 1020, 1030, 1040}
	divergent := []int64{1000, 1010, 1020, 5000, 5000}

	run := func(closes []int64) *Result {
		st := newMemPriceStore()
		dates := seedSeries(t, st, "005930", closes)
		e := NewEngine(st, &recordingScorer{})
		p := DefaultParams("005930", dates[0], dates[2])
		res, err := e.Run(context.Background(), p)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return res
	}

	a := run(base)
	b := run(divergent)

	// The simulated range ends at day 2, before the series diverge; results
	// must be identical even though later data differs.
	if !reflect.DeepEqual(a, b) {
		t.Errorf("results differ despite identical data through the range:\n%+v\n%+v", a, b)
	}
}

// recordingScorer scores by window length so any look-ahead would show up as
// a different score.
type recordingScorer struct{}

func (recordingScorer) Score(window []domain.PricePoint) float64 {
	sum := int64(0)
	for _, p := range window {
		sum += p.Close
	}
	return float64(sum % 30)
}

func TestIdempotence(t *testing.T) {
	st := newMemPriceStore()
	closes := make([]int64, 40)
	for i := range closes {
		closes[i] = 1000 + int64(i%7)*13
	}
	dates := seedSeries(t, st, "005930", closes)

	e := NewEngine(st, &recordingScorer{})
	p := DefaultParams("005930", dates[0], dates[len(dates)-1])

	a, err := e.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := e.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run (again): %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical params and data must reproduce the identical result")
	}
}

func TestBuyHoldBenchmark(t *testing.T) {
	st := newMemPriceStore()
	closes := make([]int64, 30)
	for i := range closes {
		closes[i] = 1000 + int64(i)*10 // steady rise, never triggers a sell
	}
	dates := seedSeries(t, st, "005930", closes)

	e := NewEngine(st, fixedScorer{25})
	res, err := e.Run(context.Background(), DefaultParams("005930", dates[0], dates[len(dates)-1]))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	m := res.Metrics
	if m.BuyHoldReturnPct <= 0 {
		t.Fatalf("buy-hold return = %f, want positive", m.BuyHoldReturnPct)
	}
	// Strategy buys on day one and never sells: total return tracks buy-hold
	// minus the entry commission and the cash fragment that stayed uninvested.
	if m.TotalReturnPct <= 0 {
		t.Errorf("strategy return = %f, want positive", m.TotalReturnPct)
	}
	if m.TotalReturnPct > m.BuyHoldReturnPct {
		t.Errorf("strategy %f beat frictionless buy-hold %f", m.TotalReturnPct, m.BuyHoldReturnPct)
	}
	if m.BuyHoldReturnPct-m.TotalReturnPct > 1.0 {
		t.Errorf("strategy trails buy-hold by %f pts, want < 1", m.BuyHoldReturnPct-m.TotalReturnPct)
	}
}

func TestOpenPositionNotForceClosed(t *testing.T) {
	st := newMemPriceStore()
	dates := seedSeries(t, st, "005930", []int64{1000, 1100, 1200})

	e := NewEngine(st, fixedScorer{25}) // buys and never sells
	res, err := e.Run(context.Background(), DefaultParams("005930", dates[0], dates[2]))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	last := res.Daily[len(res.Daily)-1]
	if last.Position != PositionHolding {
		t.Errorf("final position = %s, want holding", last.Position)
	}
	// The open gain is marked to market in final value but invisible to
	// win rate, which only counts realized sells.
	if res.Metrics.FinalValue <= DefaultInitialCapital {
		t.Errorf("final value = %d, want above initial", res.Metrics.FinalValue)
	}
	if res.Metrics.WinRatePct != 0 {
		t.Errorf("win rate = %f, want 0 with no sells", res.Metrics.WinRatePct)
	}
	if res.Metrics.TradeCount != 1 {
		t.Errorf("trade count = %d, want 1 (the buy)", res.Metrics.TradeCount)
	}
}

func TestZeroPriceDayIsNoOp(t *testing.T) {
	st := newMemPriceStore()
	dates := seedSeries(t, st, "005930", []int64{1000, 0, 1000})

	e := NewEngine(st, &scriptedScorer{fallback: 15, byDate: map[string]float64{
		dates[1]: 25, // buy signal on the zero-price day must not execute
	}})
	res, err := e.Run(context.Background(), DefaultParams("005930", dates[0], dates[2]))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 0 {
		t.Errorf("trades = %+v, want none on a zero-price day", res.Trades)
	}
}

func TestInsufficientFundsSilentNoOp(t *testing.T) {
	st := newMemPriceStore()
	dates := seedSeries(t, st, "005930", []int64{1_000_000})

	p := DefaultParams("005930", dates[0], dates[0])
	p.InitialCapital = 500_000 // cannot afford one share

	e := NewEngine(st, fixedScorer{25})
	res, err := e.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 0 {
		t.Errorf("trades = %+v, want none", res.Trades)
	}
	if res.Daily[0].PortfolioValue != 500_000 {
		t.Errorf("portfolio = %d, want untouched 500000", res.Daily[0].PortfolioValue)
	}
}

func TestMetricsDrawdownAndSharpe(t *testing.T) {
	daily := []DailySnapshot{
		{PortfolioValue: 100},
		{PortfolioValue: 120},
		{PortfolioValue: 90},
		{PortfolioValue: 110},
	}

	dd := maxDrawdown(daily)
	if !almost(dd, 25.0) { // (120-90)/120
		t.Errorf("max drawdown = %f, want 25.0", dd)
	}

	// Hand-computed Sharpe for returns [0.2, -0.25, 2/9].
	r := []float64{0.2, -0.25, 2.0 / 9.0}
	mean := (r[0] + r[1] + r[2]) / 3
	var sq float64
	for _, v := range r {
		sq += (v - mean) * (v - mean)
	}
	std := math.Sqrt(sq / 2)
	want := (mean - annualRiskFree/tradingDaysPerYear) / std * math.Sqrt(tradingDaysPerYear)
	if got := sharpe(daily); !almost(got, want) {
		t.Errorf("sharpe = %f, want %f", got, want)
	}

	if sharpe(daily[:1]) != 0 {
		t.Error("sharpe of one snapshot must be 0")
	}
	flat := []DailySnapshot{{PortfolioValue: 100}, {PortfolioValue: 100}, {PortfolioValue: 100}}
	if sharpe(flat) != 0 {
		t.Error("sharpe of zero-variance series must be 0")
	}
}

func TestMonotonicPeakInvariant(t *testing.T) {
	st := newMemPriceStore()
	closes := []int64{1000, 1200, 800, 1500, 600, 1100}
	dates := seedSeries(t, st, "005930", closes)

	e := NewEngine(st, fixedScorer{25})
	res, err := e.Run(context.Background(), DefaultParams("005930", dates[0], dates[len(dates)-1]))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var peak int64
	for _, d := range res.Daily {
		if d.PortfolioValue > peak {
			peak = d.PortfolioValue
		}
		if peak < d.PortfolioValue {
			t.Errorf("%s peak %d below value %d", d.Date, peak, d.PortfolioValue)
		}
	}
	if res.Metrics.MaxDrawdownPct < 0 {
		t.Errorf("max drawdown = %f, want >= 0", res.Metrics.MaxDrawdownPct)
	}
}

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
