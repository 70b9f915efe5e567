package scoring

import (
	"fmt"

	"koscore/internal/domain"
)

// Fundamental score ceilings.
const (
	MaxPER           = 8.0
	MaxPBR           = 7.0
	MaxPSR           = 5.0
	MaxRevenueGrowth = 6.0
	MaxOpGrowth      = 6.0
	MaxROE           = 5.0
	MaxOpMargin      = 5.0
	MaxDebtRatio     = 4.0
	MaxCurrentRatio  = 4.0

	MaxFundamental = 50.0
)

// FundamentalScorer scores a financial snapshot out of 50 points across nine
// valuation, growth, profitability, and stability ratios. Missing ratios fall
// back to the midpoint of their ladder, so a stock with no financials at all
// lands near 25.
type FundamentalScorer struct{}

// NewFundamentalScorer creates a FundamentalScorer.
func NewFundamentalScorer() *FundamentalScorer {
	return &FundamentalScorer{}
}

// FundamentalBreakdown holds the per-ratio scores behind a fundamental total.
type FundamentalBreakdown struct {
	Total         float64   `json:"totalScore"`
	Max           float64   `json:"maxScore"`
	PER           Component `json:"per"`
	PBR           Component `json:"pbr"`
	PSR           Component `json:"psr"`
	RevenueGrowth Component `json:"revenueGrowth"`
	OpGrowth      Component `json:"opGrowth"`
	ROE           Component `json:"roe"`
	OpMargin      Component `json:"opMargin"`
	DebtRatio     Component `json:"debtRatio"`
	CurrentRatio  Component `json:"currentRatio"`
}

// Score returns the fundamental total. A nil snapshot is treated as one with
// every field missing.
func (s *FundamentalScorer) Score(f *domain.Financials) float64 {
	return s.Breakdown(f).Total
}

// Breakdown computes all nine ratio components.
func (s *FundamentalScorer) Breakdown(f *domain.Financials) FundamentalBreakdown {
	if f == nil {
		f = &domain.Financials{}
	}
	b := FundamentalBreakdown{
		Max:           MaxFundamental,
		PER:           perScore(f.PER),
		PBR:           pbrScore(f.PBR),
		PSR:           psrScore(f.PSR),
		RevenueGrowth: revenueGrowthScore(f.RevenueGrowth),
		OpGrowth:      opGrowthScore(f.OpGrowth),
		ROE:           roeScore(f.ROE),
		OpMargin:      opMarginScore(f.OpMargin),
		DebtRatio:     debtRatioScore(f.DebtRatio),
		CurrentRatio:  currentRatioScore(f.CurrentRatio),
	}
	b.Total = round1(b.PER.Score + b.PBR.Score + b.PSR.Score +
		b.RevenueGrowth.Score + b.OpGrowth.Score +
		b.ROE.Score + b.OpMargin.Score +
		b.DebtRatio.Score + b.CurrentRatio.Score)
	return b
}

func perScore(per *float64) Component {
	if per == nil {
		return Component{Score: 4.0, Max: MaxPER, Description: "no PER data"}
	}
	v := *per

	var score float64
	var desc string
	switch {
	case v < 0:
		score, desc = 1.0, fmt.Sprintf("loss-making (PER %.1f)", v)
	case v < 5:
		score, desc = 8.0, fmt.Sprintf("undervalued (PER %.1f)", v)
	case v < 10:
		score, desc = 7.0, fmt.Sprintf("good (PER %.1f)", v)
	case v < 15:
		score, desc = 5.0, fmt.Sprintf("fair (PER %.1f)", v)
	case v < 20:
		score, desc = 3.0, fmt.Sprintf("slightly rich (PER %.1f)", v)
	case v < 30:
		score, desc = 2.0, fmt.Sprintf("rich (PER %.1f)", v)
	default:
		score, desc = 1.0, fmt.Sprintf("overvalued (PER %.1f)", v)
	}
	return Component{Score: score, Max: MaxPER, Description: desc}
}

func pbrScore(pbr *float64) Component {
	if pbr == nil {
		return Component{Score: 3.5, Max: MaxPBR, Description: "no PBR data"}
	}
	v := *pbr

	var score float64
	var desc string
	switch {
	case v < 0:
		score, desc = 1.0, fmt.Sprintf("negative equity (PBR %.2f)", v)
	case v < 0.5:
		score, desc = 7.0, fmt.Sprintf("deeply undervalued (PBR %.2f)", v)
	case v < 1.0:
		score, desc = 6.0, fmt.Sprintf("undervalued (PBR %.2f)", v)
	case v < 1.5:
		score, desc = 4.0, fmt.Sprintf("fair (PBR %.2f)", v)
	case v < 2.0:
		score, desc = 3.0, fmt.Sprintf("slightly rich (PBR %.2f)", v)
	case v < 3.0:
		score, desc = 2.0, fmt.Sprintf("rich (PBR %.2f)", v)
	default:
		score, desc = 1.0, fmt.Sprintf("overvalued (PBR %.2f)", v)
	}
	return Component{Score: score, Max: MaxPBR, Description: desc}
}

func psrScore(psr *float64) Component {
	if psr == nil {
		return Component{Score: 2.5, Max: MaxPSR, Description: "no PSR data"}
	}
	v := *psr

	var score float64
	var desc string
	switch {
	case v < 0.5:
		score, desc = 5.0, fmt.Sprintf("undervalued (PSR %.2f)", v)
	case v < 1.0:
		score, desc = 4.0, fmt.Sprintf("good (PSR %.2f)", v)
	case v < 2.0:
		score, desc = 3.0, fmt.Sprintf("fair (PSR %.2f)", v)
	case v < 4.0:
		score, desc = 2.0, fmt.Sprintf("slightly rich (PSR %.2f)", v)
	default:
		score, desc = 1.0, fmt.Sprintf("rich (PSR %.2f)", v)
	}
	return Component{Score: score, Max: MaxPSR, Description: desc}
}

func revenueGrowthScore(growth *float64) Component {
	if growth == nil {
		return Component{Score: 3.0, Max: MaxRevenueGrowth, Description: "no revenue growth data"}
	}
	v := *growth

	var score float64
	var desc string
	switch {
	case v >= 30:
		score, desc = 6.0, fmt.Sprintf("high growth (%+.1f%%)", v)
	case v >= 20:
		score, desc = 5.0, fmt.Sprintf("strong growth (%+.1f%%)", v)
	case v >= 10:
		score, desc = 4.0, fmt.Sprintf("solid growth (%+.1f%%)", v)
	case v >= 0:
		score, desc = 3.0, fmt.Sprintf("flat (%+.1f%%)", v)
	case v >= -10:
		score, desc = 2.0, fmt.Sprintf("declining (%.1f%%)", v)
	default:
		score, desc = 1.0, fmt.Sprintf("sharp decline (%.1f%%)", v)
	}
	return Component{Score: score, Max: MaxRevenueGrowth, Description: desc}
}

func opGrowthScore(growth *float64) Component {
	if growth == nil {
		return Component{Score: 3.0, Max: MaxOpGrowth, Description: "no operating profit growth data"}
	}
	v := *growth

	var score float64
	var desc string
	switch {
	case v >= 50:
		score, desc = 6.0, fmt.Sprintf("surging (%+.1f%%)", v)
	case v >= 30:
		score, desc = 5.0, fmt.Sprintf("high growth (%+.1f%%)", v)
	case v >= 10:
		score, desc = 4.0, fmt.Sprintf("good (%+.1f%%)", v)
	case v >= 0:
		score, desc = 3.0, fmt.Sprintf("flat (%+.1f%%)", v)
	case v >= -20:
		score, desc = 2.0, fmt.Sprintf("declining (%.1f%%)", v)
	default:
		score, desc = 1.0, fmt.Sprintf("plunging (%.1f%%)", v)
	}
	return Component{Score: score, Max: MaxOpGrowth, Description: desc}
}

func roeScore(roe *float64) Component {
	if roe == nil {
		return Component{Score: 2.5, Max: MaxROE, Description: "no ROE data"}
	}
	v := *roe

	var score float64
	var desc string
	switch {
	case v >= 20:
		score, desc = 5.0, fmt.Sprintf("excellent (ROE %.1f%%)", v)
	case v >= 15:
		score, desc = 4.0, fmt.Sprintf("good (ROE %.1f%%)", v)
	case v >= 10:
		score, desc = 3.0, fmt.Sprintf("fair (ROE %.1f%%)", v)
	case v >= 5:
		score, desc = 2.0, fmt.Sprintf("weak (ROE %.1f%%)", v)
	default:
		score, desc = 1.0, fmt.Sprintf("poor (ROE %.1f%%)", v)
	}
	return Component{Score: score, Max: MaxROE, Description: desc}
}

func opMarginScore(margin *float64) Component {
	if margin == nil {
		return Component{Score: 2.5, Max: MaxOpMargin, Description: "no operating margin data"}
	}
	v := *margin

	var score float64
	var desc string
	switch {
	case v >= 20:
		score, desc = 5.0, fmt.Sprintf("excellent (OPM %.1f%%)", v)
	case v >= 15:
		score, desc = 4.0, fmt.Sprintf("good (OPM %.1f%%)", v)
	case v >= 10:
		score, desc = 3.0, fmt.Sprintf("fair (OPM %.1f%%)", v)
	case v >= 5:
		score, desc = 2.0, fmt.Sprintf("weak (OPM %.1f%%)", v)
	default:
		score, desc = 1.0, fmt.Sprintf("poor (OPM %.1f%%)", v)
	}
	return Component{Score: score, Max: MaxOpMargin, Description: desc}
}

// debtRatioScore grades leverage; lower is better.
func debtRatioScore(ratio *float64) Component {
	if ratio == nil {
		return Component{Score: 2.0, Max: MaxDebtRatio, Description: "no debt ratio data"}
	}
	v := *ratio

	var score float64
	var desc string
	switch {
	case v < 50:
		score, desc = 4.0, fmt.Sprintf("very sound (debt %.0f%%)", v)
	case v < 100:
		score, desc = 3.0, fmt.Sprintf("stable (debt %.0f%%)", v)
	case v < 150:
		score, desc = 2.0, fmt.Sprintf("average (debt %.0f%%)", v)
	case v < 200:
		score, desc = 1.5, fmt.Sprintf("caution (debt %.0f%%)", v)
	default:
		score, desc = 1.0, fmt.Sprintf("risky (debt %.0f%%)", v)
	}
	return Component{Score: score, Max: MaxDebtRatio, Description: desc}
}

// currentRatioScore grades short-term liquidity; higher is better.
func currentRatioScore(ratio *float64) Component {
	if ratio == nil {
		return Component{Score: 2.0, Max: MaxCurrentRatio, Description: "no current ratio data"}
	}
	v := *ratio

	var score float64
	var desc string
	switch {
	case v >= 200:
		score, desc = 4.0, fmt.Sprintf("very stable (current %.0f%%)", v)
	case v >= 150:
		score, desc = 3.0, fmt.Sprintf("stable (current %.0f%%)", v)
	case v >= 100:
		score, desc = 2.0, fmt.Sprintf("average (current %.0f%%)", v)
	default:
		score, desc = 1.0, fmt.Sprintf("caution (current %.0f%%)", v)
	}
	return Component{Score: score, Max: MaxCurrentRatio, Description: desc}
}
