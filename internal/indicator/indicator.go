// Package indicator computes technical indicators from an ascending window
// of daily prices. All functions are pure and recompute from scratch on every
// call; there is no incremental state, so a window is scored identically no
// matter what came before or after it.
package indicator

import (
	"koscore/internal/domain"
)

// Snapshot holds the indicator values for the last day of a window. Fields
// are nil when the window is too short to compute them.
type Snapshot struct {
	Date  string
	Close int64

	MA5   *float64
	MA20  *float64
	MA60  *float64
	MA120 *float64

	RSI14 *float64

	MACD       *float64
	MACDSignal *float64
	MACDHist   *float64

	VolumeRatio *float64 // last day's volume / 20-day average volume
}

// Compute derives a Snapshot from the given window. An empty window yields a
// zero Snapshot.
func Compute(window []domain.PricePoint) Snapshot {
	if len(window) == 0 {
		return Snapshot{}
	}

	closes := make([]float64, len(window))
	volumes := make([]float64, len(window))
	for i := range window {
		closes[i] = float64(window[i].Close)
		volumes[i] = float64(window[i].Volume)
	}

	last := window[len(window)-1]
	snap := Snapshot{
		Date:  last.Date,
		Close: last.Close,

		MA5:   SMA(closes, 5),
		MA20:  SMA(closes, 20),
		MA60:  SMA(closes, 60),
		MA120: SMA(closes, 120),

		RSI14: RSI(closes, 14),

		VolumeRatio: VolumeRatio(volumes, 20),
	}
	snap.MACD, snap.MACDSignal, snap.MACDHist = MACD(closes, 12, 26, 9)
	return snap
}

// SMA returns the simple moving average of the last n values, or nil when
// fewer than n values exist.
func SMA(values []float64, n int) *float64 {
	if n <= 0 || len(values) < n {
		return nil
	}
	sum := 0.0
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	avg := sum / float64(n)
	return &avg
}

// EMA returns the full exponential moving average series with span n
// (alpha = 2/(n+1)), seeded at the first value. The result has the same
// length as the input.
func EMA(values []float64, n int) []float64 {
	if len(values) == 0 {
		return nil
	}
	alpha := 2.0 / (float64(n) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI returns the relative strength index over the given period using simple
// rolling means of gains and losses, or nil when fewer than period+1 values
// exist. When the trailing window has no losses the index saturates at 100;
// a window with neither gains nor losses yields nil.
func RSI(values []float64, period int) *float64 {
	if period <= 0 || len(values) < period+1 {
		return nil
	}

	// Deltas over the trailing `period` steps.
	start := len(values) - period - 1
	var gainSum, lossSum float64
	for i := start + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum += -delta
		}
	}

	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	if avgLoss == 0 {
		if avgGain == 0 {
			return nil
		}
		v := 100.0
		return &v
	}

	rs := avgGain / avgLoss
	rsi := 100.0 - 100.0/(1.0+rs)
	return &rsi
}

// MACD returns the MACD line, signal line, and histogram for the last day,
// or nils when fewer than slow+signal values exist.
func MACD(values []float64, fast, slow, signal int) (line, sig, hist *float64) {
	if len(values) < slow+signal {
		return nil, nil, nil
	}

	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)

	macdSeries := make([]float64, len(values))
	for i := range values {
		macdSeries[i] = emaFast[i] - emaSlow[i]
	}
	signalSeries := EMA(macdSeries, signal)

	l := macdSeries[len(macdSeries)-1]
	s := signalSeries[len(signalSeries)-1]
	h := l - s
	return &l, &s, &h
}

// VolumeRatio returns the last value divided by the mean of the trailing n
// values (inclusive), or nil when fewer than n values exist or the average
// is zero.
func VolumeRatio(volumes []float64, n int) *float64 {
	avg := SMA(volumes, n)
	if avg == nil || *avg <= 0 {
		return nil
	}
	ratio := volumes[len(volumes)-1] / *avg
	return &ratio
}
