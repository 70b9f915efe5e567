package scoring

import (
	"testing"

	"koscore/internal/domain"
	"koscore/internal/indicator"
)

func fp(v float64) *float64 { return &v }

func TestTechnicalShortWindowNeutral(t *testing.T) {
	window := []domain.PricePoint{
		{Date: "2024-01-02", Close: 72000, Volume: 1000},
		{Date: "2024-01-03", Close: 71000, Volume: 1100},
	}
	s := NewTechnicalScorer()
	if got := s.Score(window); got != NeutralTechnical {
		t.Errorf("short window score = %f, want %f", got, NeutralTechnical)
	}
	if got := s.Score(nil); got != NeutralTechnical {
		t.Errorf("empty window score = %f, want %f", got, NeutralTechnical)
	}
}

func TestMAArrangement(t *testing.T) {
	tests := []struct {
		name string
		snap indicator.Snapshot
		want float64
	}{
		{
			name: "fully bullish with all four MAs",
			snap: indicator.Snapshot{Close: 1000, MA5: fp(950), MA20: fp(900), MA60: fp(850), MA120: fp(800)},
			want: 6.0,
		},
		{
			name: "fully bearish",
			snap: indicator.Snapshot{Close: 800, MA5: fp(850), MA20: fp(900), MA60: fp(950), MA120: fp(1000)},
			want: 0.0,
		},
		{
			name: "half ordered without long MAs",
			snap: indicator.Snapshot{Close: 1000, MA5: fp(950), MA20: fp(960)},
			want: 3.0, // 1 of 2 pairs ordered
		},
		{
			name: "missing MA20 is neutral",
			snap: indicator.Snapshot{Close: 1000, MA5: fp(950)},
			want: 3.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maArrangementScore(tt.snap); got.Score != tt.want {
				t.Errorf("score = %f, want %f (%s)", got.Score, tt.want, got.Description)
			}
		})
	}
}

func TestMADivergence(t *testing.T) {
	tests := []struct {
		name  string
		close int64
		ma20  float64
		want  float64
	}{
		{"overheated +12%", 1120, 1000, 2.0},
		{"rising +7%", 1070, 1000, 5.0},
		{"healthy +2%", 1020, 1000, 6.0},
		{"exactly on MA20", 1000, 1000, 6.0},
		{"mild pullback -3%", 970, 1000, 4.0},
		{"falling -8%", 920, 1000, 2.0},
		{"oversold -15%", 850, 1000, 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := indicator.Snapshot{Close: tt.close, MA20: fp(tt.ma20)}
			if got := maDivergenceScore(snap); got.Score != tt.want {
				t.Errorf("score = %f, want %f (%s)", got.Score, tt.want, got.Description)
			}
		})
	}

	if got := maDivergenceScore(indicator.Snapshot{Close: 1000}); got.Score != 3.0 {
		t.Errorf("nil MA20 score = %f, want 3.0", got.Score)
	}
}

func TestRSIScore(t *testing.T) {
	tests := []struct {
		rsi  float64
		want float64
	}{
		{25, 4.0},
		{35, 5.0},
		{50, 3.0},
		{65, 2.0},
		{80, 1.0},
	}
	for _, tt := range tests {
		snap := indicator.Snapshot{RSI14: fp(tt.rsi)}
		if got := rsiScore(snap); got.Score != tt.want {
			t.Errorf("RSI %.0f score = %f, want %f", tt.rsi, got.Score, tt.want)
		}
	}
	if got := rsiScore(indicator.Snapshot{}); got.Score != 2.5 {
		t.Errorf("nil RSI score = %f, want 2.5", got.Score)
	}
}

func TestMACDScore(t *testing.T) {
	tests := []struct {
		name       string
		macd, hist float64
		want       float64
	}{
		{"strong uptrend", 1.5, 0.3, 5.0},
		{"uptrend losing steam", 1.5, -0.3, 3.0},
		{"downtrend easing", -1.5, 0.3, 4.0},
		{"strong downtrend", -1.5, -0.3, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := indicator.Snapshot{MACD: fp(tt.macd), MACDHist: fp(tt.hist)}
			if got := macdScore(snap); got.Score != tt.want {
				t.Errorf("score = %f, want %f", got.Score, tt.want)
			}
		})
	}
	if got := macdScore(indicator.Snapshot{}); got.Score != 2.5 {
		t.Errorf("nil MACD score = %f, want 2.5", got.Score)
	}
}

func TestVolumeScore(t *testing.T) {
	tests := []struct {
		ratio float64
		want  float64
	}{
		{2.5, 6.0},
		{1.7, 8.0}, // the sweet spot beats the spike
		{1.2, 6.0},
		{0.7, 4.0},
		{0.3, 2.0},
	}
	for _, tt := range tests {
		snap := indicator.Snapshot{VolumeRatio: fp(tt.ratio)}
		if got := volumeScore(snap); got.Score != tt.want {
			t.Errorf("ratio %.1f score = %f, want %f", tt.ratio, got.Score, tt.want)
		}
	}
	if got := volumeScore(indicator.Snapshot{}); got.Score != 4.0 {
		t.Errorf("nil volume ratio score = %f, want 4.0", got.Score)
	}
}

func TestFundamentalTypicalSnapshot(t *testing.T) {
	f := &domain.Financials{
		Code:          "005930",
		PER:           fp(12.5),  // 5.0
		PBR:           fp(1.2),   // 4.0
		PSR:           fp(0.8),   // 4.0
		RevenueGrowth: fp(15.3),  // 4.0
		OpGrowth:      fp(22.5),  // 4.0
		ROE:           fp(14.2),  // 3.0
		OpMargin:      fp(11.5),  // 3.0
		DebtRatio:     fp(85.0),  // 3.0
		CurrentRatio:  fp(165.0), // 3.0
	}
	s := NewFundamentalScorer()
	b := s.Breakdown(f)

	if b.Total != 33.0 {
		t.Errorf("total = %f, want 33.0", b.Total)
	}
	if b.PER.Score != 5.0 || b.PBR.Score != 4.0 || b.PSR.Score != 4.0 {
		t.Errorf("valuation scores = %f/%f/%f, want 5/4/4", b.PER.Score, b.PBR.Score, b.PSR.Score)
	}
	if b.RevenueGrowth.Score != 4.0 || b.OpGrowth.Score != 4.0 {
		t.Errorf("growth scores = %f/%f, want 4/4", b.RevenueGrowth.Score, b.OpGrowth.Score)
	}
}

func TestFundamentalAllMissing(t *testing.T) {
	s := NewFundamentalScorer()
	// 4 + 3.5 + 2.5 + 3 + 3 + 2.5 + 2.5 + 2 + 2 = 25.0
	if got := s.Score(nil); got != 25.0 {
		t.Errorf("all-missing total = %f, want 25.0", got)
	}
	if got := s.Score(&domain.Financials{Code: "000000"}); got != 25.0 {
		t.Errorf("empty snapshot total = %f, want 25.0", got)
	}
}

func TestFundamentalLadderEdges(t *testing.T) {
	if got := perScore(fp(-3.2)); got.Score != 1.0 {
		t.Errorf("negative PER = %f, want 1.0", got.Score)
	}
	if got := perScore(fp(4.9)); got.Score != 8.0 {
		t.Errorf("PER 4.9 = %f, want 8.0", got.Score)
	}
	if got := pbrScore(fp(0.4)); got.Score != 7.0 {
		t.Errorf("PBR 0.4 = %f, want 7.0", got.Score)
	}
	if got := pbrScore(fp(-0.1)); got.Score != 1.0 {
		t.Errorf("negative PBR = %f, want 1.0", got.Score)
	}
	if got := debtRatioScore(fp(180)); got.Score != 1.5 {
		t.Errorf("debt 180%% = %f, want 1.5", got.Score)
	}
	if got := currentRatioScore(fp(200)); got.Score != 4.0 {
		t.Errorf("current 200%% = %f, want 4.0", got.Score)
	}
	if got := opGrowthScore(fp(-25)); got.Score != 1.0 {
		t.Errorf("op growth -25%% = %f, want 1.0", got.Score)
	}
}

func sampleNews() []domain.NewsItem {
	return []domain.NewsItem{
		{Headline: "실적 호조", Sentiment: domain.SentimentPositive, Impact: domain.ImpactHigh},
		{Headline: "수출 증가", Sentiment: domain.SentimentPositive, Impact: domain.ImpactMedium},
		{Headline: "경기 불확실성", Sentiment: domain.SentimentNegative, Impact: domain.ImpactLow},
		{Headline: "신제품 발표", Sentiment: domain.SentimentPositive, Impact: domain.ImpactMedium},
		{Headline: "가격 상승 전망", Sentiment: domain.SentimentPositive, Impact: domain.ImpactHigh},
		{Headline: "환율 변동성", Sentiment: domain.SentimentNeutral, Impact: domain.ImpactLow},
		{Headline: "주주환원 정책", Sentiment: domain.SentimentPositive, Impact: domain.ImpactMedium},
	}
}

func TestSentimentBatch(t *testing.T) {
	s := NewSentimentScorer(7)
	b := s.Breakdown(sampleNews())

	// 5 of 6 opinionated articles positive: tone 10. Two high-impact: 5.
	// Seven articles: volume 2. Total 17.
	if b.Sentiment.Score != 10.0 {
		t.Errorf("tone = %f, want 10.0 (%s)", b.Sentiment.Score, b.Sentiment.Description)
	}
	if b.Impact.Score != 5.0 {
		t.Errorf("impact = %f, want 5.0 (%s)", b.Impact.Score, b.Impact.Description)
	}
	if b.Volume.Score != 2.0 {
		t.Errorf("volume = %f, want 2.0 (%s)", b.Volume.Score, b.Volume.Description)
	}
	if b.Total != 17.0 {
		t.Errorf("total = %f, want 17.0", b.Total)
	}

	sum := b.NewsSummary
	if sum.Positive != 5 || sum.Negative != 1 || sum.Neutral != 1 {
		t.Errorf("summary = %+v, want 5/1/1", sum)
	}
	if sum.HighImpact != 2 || sum.MediumImpact != 3 {
		t.Errorf("impact tally = %d/%d, want 2/3", sum.HighImpact, sum.MediumImpact)
	}
}

func TestSentimentNoNews(t *testing.T) {
	s := NewSentimentScorer(7)
	b := s.Breakdown(nil)

	if b.Sentiment.Score != 5.0 {
		t.Errorf("tone = %f, want neutral 5.0", b.Sentiment.Score)
	}
	if b.Impact.Score != 3.0 {
		t.Errorf("impact = %f, want 3.0", b.Impact.Score)
	}
	if b.Volume.Score != 1.0 {
		t.Errorf("volume = %f, want 1.0", b.Volume.Score)
	}
	if b.Total != 9.0 {
		t.Errorf("total = %f, want 9.0", b.Total)
	}
}

func TestSentimentNegativeMajorityPenalty(t *testing.T) {
	items := []domain.NewsItem{
		{Headline: "악재 1", Sentiment: domain.SentimentNegative, Impact: domain.ImpactLow},
		{Headline: "악재 2", Sentiment: domain.SentimentNegative, Impact: domain.ImpactLow},
		{Headline: "악재 3", Sentiment: domain.SentimentNegative, Impact: domain.ImpactLow},
	}
	s := NewSentimentScorer(7)
	b := s.Breakdown(items)

	// Base 2.0 minus the 2-point penalty floors at 1.0.
	if b.Sentiment.Score != 1.0 {
		t.Errorf("tone = %f, want floored 1.0 (%s)", b.Sentiment.Score, b.Sentiment.Description)
	}
}

func TestSentimentOnlyNeutralCoverage(t *testing.T) {
	items := []domain.NewsItem{
		{Headline: "공시", Sentiment: domain.SentimentNeutral, Impact: domain.ImpactLow},
		{Headline: "인사", Sentiment: domain.SentimentNeutral, Impact: domain.ImpactLow},
	}
	s := NewSentimentScorer(7)
	b := s.Breakdown(items)
	if b.Sentiment.Score != 5.0 {
		t.Errorf("tone = %f, want neutral 5.0", b.Sentiment.Score)
	}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{95, "A+"}, {90, "A+"}, {89.9, "A"}, {80, "A"},
		{75, "B+"}, {65, "B"}, {55, "C+"}, {45, "C"},
		{35, "D"}, {29.9, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		if got := Grade(tt.score); got != tt.want {
			t.Errorf("Grade(%.1f) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestCompositeAnalyze(t *testing.T) {
	stock := &domain.Stock{Code: "005930", Name: "삼성전자", Market: domain.MarketKR}

	window := make([]domain.PricePoint, 150)
	price := int64(60000)
	for i := range window {
		price += 100
		window[i] = domain.PricePoint{
			Code: "005930", Date: "2024-06-28", Close: price, Volume: 10_000_000,
		}
	}

	c := NewComposite(7)
	res := c.Analyze(stock, window, &domain.Financials{PER: fp(8.0)}, sampleNews())

	if res.Code != "005930" || res.Name != "삼성전자" {
		t.Errorf("identity = %s/%s", res.Code, res.Name)
	}
	if res.Date != "2024-06-28" {
		t.Errorf("analysis date = %s, want 2024-06-28", res.Date)
	}
	want := round1(res.Technical.Total + res.Fundamental.Total + res.Sentiment.Total)
	if res.Total != want {
		t.Errorf("total = %f, want sum of parts %f", res.Total, want)
	}
	if res.Total < 0 || res.Total > MaxComposite {
		t.Errorf("total %f out of [0,100]", res.Total)
	}
	if res.Grade != Grade(res.Total) {
		t.Errorf("grade = %s, want %s", res.Grade, Grade(res.Total))
	}
}

func TestCompositeShortWindowNeutralTechnical(t *testing.T) {
	c := NewComposite(7)
	res := c.Analyze(nil, nil, nil, nil)

	if res.Technical.Total != NeutralTechnical {
		t.Errorf("technical = %f, want neutral %f", res.Technical.Total, NeutralTechnical)
	}
	// 15 + 25 + 9 = 49 → C.
	if res.Total != 49.0 {
		t.Errorf("total = %f, want 49.0", res.Total)
	}
	if res.Grade != "C" {
		t.Errorf("grade = %s, want C", res.Grade)
	}
}
