package scoring

import "koscore/internal/domain"

// MaxComposite is the composite ceiling: technical 30 + fundamental 50 +
// sentiment 20.
const MaxComposite = 100.0

// gradeThresholds maps letter grades to their minimum composite score,
// checked best-first.
var gradeThresholds = []struct {
	grade string
	min   float64
}{
	{"A+", 90},
	{"A", 80},
	{"B+", 70},
	{"B", 60},
	{"C+", 50},
	{"C", 40},
	{"D", 30},
}

// Grade maps a composite score to its letter grade. Anything below 30 is F.
func Grade(score float64) string {
	for _, g := range gradeThresholds {
		if score >= g.min {
			return g.grade
		}
	}
	return "F"
}

// CompositeResult is a full scoring pass over one stock.
type CompositeResult struct {
	Code  string  `json:"code"`
	Name  string  `json:"name"`
	Date  string  `json:"analysisDate"`
	Total float64 `json:"totalScore"`
	Max   float64 `json:"maxScore"`
	Grade string  `json:"grade"`

	Technical   TechnicalBreakdown   `json:"technical"`
	Fundamental FundamentalBreakdown `json:"fundamental"`
	Sentiment   SentimentBreakdown   `json:"sentiment"`
}

// Composite combines the three analyzers into one 100-point scorer.
type Composite struct {
	Technical   *TechnicalScorer
	Fundamental *FundamentalScorer
	Sentiment   *SentimentScorer
}

// NewComposite builds a Composite with the given news collection window.
func NewComposite(sentimentDays int) *Composite {
	return &Composite{
		Technical:   NewTechnicalScorer(),
		Fundamental: NewFundamentalScorer(),
		Sentiment:   NewSentimentScorer(sentimentDays),
	}
}

// Analyze scores one stock from its trailing price window, latest financial
// snapshot, and recent news. Missing inputs degrade to each analyzer's
// neutral defaults rather than failing.
func (c *Composite) Analyze(stock *domain.Stock, window []domain.PricePoint, fin *domain.Financials, news []domain.NewsItem) CompositeResult {
	res := CompositeResult{
		Max:         MaxComposite,
		Technical:   c.Technical.Breakdown(window),
		Fundamental: c.Fundamental.Breakdown(fin),
		Sentiment:   c.Sentiment.Breakdown(news),
	}
	if stock != nil {
		res.Code = stock.Code
		res.Name = stock.Name
	}
	if len(window) > 0 {
		res.Date = window[len(window)-1].Date
	}

	// Short windows collapse the whole technical breakdown to the neutral
	// total, matching Scorer.Score.
	if len(window) < minTechnicalWindow {
		res.Technical.Total = NeutralTechnical
	}

	res.Total = round1(res.Technical.Total + res.Fundamental.Total + res.Sentiment.Total)
	res.Grade = Grade(res.Total)
	return res
}
