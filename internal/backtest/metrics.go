package backtest

import "math"

// tradingDaysPerYear is the annualization basis for returns and Sharpe.
const tradingDaysPerYear = 252

// annualRiskFree is the risk-free rate the Sharpe ratio discounts, per year.
const annualRiskFree = 0.035

// computeMetrics derives the performance summary from a finished run. It is a
// pure function of the snapshots and ledger; all rounding happens here, at
// the boundary.
func computeMetrics(p Params, daily []DailySnapshot, trades []Trade, startClose, endClose int64) Metrics {
	m := Metrics{
		TradeCount:  len(trades),
		TradingDays: len(daily),
	}
	if len(daily) == 0 {
		return m
	}

	initial := float64(p.InitialCapital)
	final := daily[len(daily)-1].PortfolioValue
	m.FinalValue = final

	m.TotalReturnPct = round2((float64(final) - initial) / initial * 100)

	if m.TradingDays > 0 && final > 0 {
		years := float64(m.TradingDays) / tradingDaysPerYear
		m.AnnualizedReturnPct = round2((math.Pow(float64(final)/initial, 1/years) - 1) * 100)
	}

	if startClose > 0 {
		m.BuyHoldReturnPct = round2(float64(endClose-startClose) / float64(startClose) * 100)
	}

	m.MaxDrawdownPct = round2(maxDrawdown(daily))
	m.SharpeRatio = round2(sharpe(daily))

	wins, sells := 0, 0
	for _, t := range trades {
		if t.Kind != TradeSell {
			continue
		}
		sells++
		if t.Profit != nil && *t.Profit > 0 {
			wins++
		}
	}
	if sells > 0 {
		m.WinRatePct = round1(float64(wins) / float64(sells) * 100)
	}
	return m
}

// maxDrawdown returns the largest percentage fall from a running peak. The
// peak starts at zero, so the first snapshot establishes it.
func maxDrawdown(daily []DailySnapshot) float64 {
	var peak int64
	var maxDD float64
	for _, d := range daily {
		if d.PortfolioValue > peak {
			peak = d.PortfolioValue
		}
		if peak > 0 {
			dd := float64(peak-d.PortfolioValue) / float64(peak) * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpe computes the annualized Sharpe ratio from daily simple returns,
// using a sample standard deviation. Fewer than two snapshots, no usable
// returns, or zero variance all yield 0.
func sharpe(daily []DailySnapshot) float64 {
	if len(daily) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(daily)-1)
	for i := 1; i < len(daily); i++ {
		prev := daily[i-1].PortfolioValue
		if prev <= 0 {
			continue
		}
		returns = append(returns, float64(daily[i].PortfolioValue-prev)/float64(prev))
	}
	if len(returns) == 0 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	if len(returns) < 2 {
		return 0
	}
	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(returns)-1))
	if std == 0 {
		return 0
	}

	riskFreeDaily := annualRiskFree / tradingDaysPerYear
	return (mean - riskFreeDaily) / std * math.Sqrt(tradingDaysPerYear)
}
