package scoring

import (
	"fmt"

	"koscore/internal/domain"
	"koscore/internal/indicator"
)

// Technical score ceilings.
const (
	MaxMAArrangement = 6.0
	MaxMADivergence  = 6.0
	MaxRSI           = 5.0
	MaxMACD          = 5.0
	MaxVolume        = 8.0

	MaxTechnical = 30.0

	// NeutralTechnical is returned for windows too short to analyze.
	NeutralTechnical = 15.0

	// minTechnicalWindow is the smallest window the analyzer will score.
	minTechnicalWindow = 20
)

// TechnicalScorer scores a price window out of 30 points from five
// indicator-derived components. It implements Scorer.
type TechnicalScorer struct{}

var _ Scorer = (*TechnicalScorer)(nil)

// NewTechnicalScorer creates a TechnicalScorer.
func NewTechnicalScorer() *TechnicalScorer {
	return &TechnicalScorer{}
}

// Score returns the technical score for the window, rounded to one decimal.
// Windows shorter than 20 points get the neutral 15.0.
func (s *TechnicalScorer) Score(window []domain.PricePoint) float64 {
	if len(window) < minTechnicalWindow {
		return NeutralTechnical
	}
	b := s.Breakdown(window)
	return b.Total
}

// TechnicalBreakdown holds the per-component scores behind a technical total.
type TechnicalBreakdown struct {
	Total         float64   `json:"totalScore"`
	Max           float64   `json:"maxScore"`
	MAArrangement Component `json:"maArrangement"`
	MADivergence  Component `json:"maDivergence"`
	RSI           Component `json:"rsi"`
	MACD          Component `json:"macd"`
	Volume        Component `json:"volume"`
}

// Breakdown computes all five components for the window. Short windows still
// produce a breakdown; each component falls back to its neutral default when
// its indicator is unavailable.
func (s *TechnicalScorer) Breakdown(window []domain.PricePoint) TechnicalBreakdown {
	snap := indicator.Compute(window)

	b := TechnicalBreakdown{
		Max:           MaxTechnical,
		MAArrangement: maArrangementScore(snap),
		MADivergence:  maDivergenceScore(snap),
		RSI:           rsiScore(snap),
		MACD:          macdScore(snap),
		Volume:        volumeScore(snap),
	}
	b.Total = round1(b.MAArrangement.Score + b.MADivergence.Score + b.RSI.Score + b.MACD.Score + b.Volume.Score)
	return b
}

// maArrangementScore grades how bullishly the moving averages are stacked:
// price > MA5 > MA20 > MA60 > MA120 is a full 6, the inverse stacking is 0,
// partial orderings score proportionally.
func maArrangementScore(snap indicator.Snapshot) Component {
	if snap.MA5 == nil || snap.MA20 == nil || snap.Close <= 0 {
		return Component{Score: 3.0, Max: MaxMAArrangement, Description: "insufficient MA data (neutral)"}
	}

	values := []float64{float64(snap.Close), *snap.MA5, *snap.MA20}
	if snap.MA60 != nil {
		values = append(values, *snap.MA60)
	}
	if snap.MA120 != nil {
		values = append(values, *snap.MA120)
	}

	ordered := 0
	pairs := len(values) - 1
	for i := 0; i < pairs; i++ {
		if values[i] > values[i+1] {
			ordered++
		}
	}

	ratio := float64(ordered) / float64(pairs)
	score := round1(ratio * MaxMAArrangement)

	var desc string
	switch {
	case ratio >= 1.0:
		desc = "fully bullish stacking"
	case ratio >= 0.75:
		desc = "mostly bullish stacking"
	case ratio >= 0.5:
		desc = "mixed stacking"
	case ratio >= 0.25:
		desc = "mostly bearish stacking"
	default:
		desc = "fully bearish stacking"
	}
	return Component{Score: score, Max: MaxMAArrangement, Description: desc}
}

// maDivergenceScore grades the gap between price and MA20. Moderate positive
// gaps score best; extremes in either direction are penalized, with a small
// rebound allowance for deeply oversold prices.
func maDivergenceScore(snap indicator.Snapshot) Component {
	if snap.MA20 == nil || *snap.MA20 == 0 || snap.Close <= 0 {
		return Component{Score: 3.0, Max: MaxMADivergence, Description: "no MA20 data"}
	}

	div := (float64(snap.Close) - *snap.MA20) / *snap.MA20 * 100

	var score float64
	var desc string
	switch {
	case div >= 10:
		score, desc = 2.0, fmt.Sprintf("overheated (%+.1f%% above MA20)", div)
	case div >= 5:
		score, desc = 5.0, fmt.Sprintf("rising (%+.1f%% above MA20)", div)
	case div >= 0:
		score, desc = 6.0, fmt.Sprintf("healthy rise (%+.1f%% vs MA20)", div)
	case div >= -5:
		score, desc = 4.0, fmt.Sprintf("mild pullback (%.1f%% vs MA20)", div)
	case div >= -10:
		score, desc = 2.0, fmt.Sprintf("falling (%.1f%% vs MA20)", div)
	default:
		score, desc = 3.0, fmt.Sprintf("oversold (%.1f%% vs MA20, rebound watch)", div)
	}
	return Component{Score: score, Max: MaxMADivergence, Description: desc}
}

// rsiScore grades RSI(14). The sweet spot is the 30-40 undervalued band.
func rsiScore(snap indicator.Snapshot) Component {
	if snap.RSI14 == nil {
		return Component{Score: 2.5, Max: MaxRSI, Description: "RSI unavailable"}
	}
	rsi := *snap.RSI14

	var score float64
	var desc string
	switch {
	case rsi < 30:
		score, desc = 4.0, fmt.Sprintf("oversold (RSI %.1f)", rsi)
	case rsi < 40:
		score, desc = 5.0, fmt.Sprintf("undervalued (RSI %.1f)", rsi)
	case rsi < 60:
		score, desc = 3.0, fmt.Sprintf("neutral (RSI %.1f)", rsi)
	case rsi < 70:
		score, desc = 2.0, fmt.Sprintf("overvalued (RSI %.1f)", rsi)
	default:
		score, desc = 1.0, fmt.Sprintf("overbought (RSI %.1f)", rsi)
	}
	return Component{Score: score, Max: MaxRSI, Description: desc}
}

// macdScore grades the MACD line/histogram quadrant.
func macdScore(snap indicator.Snapshot) Component {
	if snap.MACD == nil || snap.MACDHist == nil {
		return Component{Score: 2.5, Max: MaxMACD, Description: "MACD unavailable"}
	}
	macd, hist := *snap.MACD, *snap.MACDHist

	var score float64
	var desc string
	switch {
	case macd > 0 && hist > 0:
		score, desc = 5.0, "strong uptrend"
	case macd > 0:
		score, desc = 3.0, "uptrend losing steam"
	case hist > 0:
		score, desc = 4.0, "downtrend easing (rebound signal)"
	default:
		score, desc = 1.0, "strong downtrend"
	}
	return Component{Score: score, Max: MaxMACD, Description: desc}
}

// volumeScore grades the last day's volume against its 20-day average.
// Lively-but-not-frantic volume scores best; a spike above 2x is flagged.
func volumeScore(snap indicator.Snapshot) Component {
	if snap.VolumeRatio == nil {
		return Component{Score: 4.0, Max: MaxVolume, Description: "volume data unavailable"}
	}
	ratio := *snap.VolumeRatio

	var score float64
	var desc string
	switch {
	case ratio >= 2.0:
		score, desc = 6.0, fmt.Sprintf("volume spike (%.1fx average)", ratio)
	case ratio >= 1.5:
		score, desc = 8.0, fmt.Sprintf("active volume (%.1fx average)", ratio)
	case ratio >= 1.0:
		score, desc = 6.0, fmt.Sprintf("normal volume (%.1fx average)", ratio)
	case ratio >= 0.5:
		score, desc = 4.0, fmt.Sprintf("light volume (%.1fx average)", ratio)
	default:
		score, desc = 2.0, fmt.Sprintf("very light volume (%.1fx average)", ratio)
	}
	return Component{Score: score, Max: MaxVolume, Description: desc}
}
