// Package scoring converts indicator, fundamental, and news data into the
// bounded scores the dashboard and the backtesting engine consume. Technical
// is worth 30 points, fundamental 50, sentiment 20; the composite is 100.
package scoring

import (
	"math"

	"koscore/internal/domain"
)

// Scorer produces a bounded score from a trailing price window. It must be
// pure and total: any non-empty window yields a value, short windows get the
// scorer's own neutral default, and no call may panic or error. The backtest
// engine compares the result against its buy/sell thresholds without knowing
// the scale.
type Scorer interface {
	Score(window []domain.PricePoint) float64
}

// Component is one sub-score with its ceiling and a human-readable reason.
type Component struct {
	Score       float64 `json:"score"`
	Max         float64 `json:"max"`
	Description string  `json:"description"`
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
