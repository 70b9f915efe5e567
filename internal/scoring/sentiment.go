package scoring

import (
	"fmt"

	"koscore/internal/domain"
)

// Sentiment score ceilings.
const (
	MaxNewsSentiment = 10.0
	MaxNewsImpact    = 6.0
	MaxNewsVolume    = 4.0

	MaxSentiment = 20.0
)

// SentimentScorer scores a batch of tagged news items out of 20 points:
// tone (10), price-impact weight (6), and sheer article count as an interest
// proxy (4).
type SentimentScorer struct {
	// Days is the collection window the volume component reports in its
	// description. Zero means unspecified.
	Days int
}

// NewSentimentScorer creates a SentimentScorer describing a collection window
// of the given number of days.
func NewSentimentScorer(days int) *SentimentScorer {
	return &SentimentScorer{Days: days}
}

// SentimentBreakdown holds the per-component scores behind a sentiment total.
type SentimentBreakdown struct {
	Total     float64   `json:"totalScore"`
	Max       float64   `json:"maxScore"`
	Sentiment Component `json:"sentiment"`
	Impact    Component `json:"impact"`
	Volume    Component `json:"volume"`

	NewsSummary NewsSummary `json:"newsSummary"`
}

// NewsSummary is the tally the components are graded from.
type NewsSummary struct {
	Total        int `json:"total"`
	Positive     int `json:"positive"`
	Negative     int `json:"negative"`
	Neutral      int `json:"neutral"`
	HighImpact   int `json:"highImpact"`
	MediumImpact int `json:"mediumImpact"`
}

func summarize(items []domain.NewsItem) NewsSummary {
	var s NewsSummary
	s.Total = len(items)
	for _, it := range items {
		switch it.Sentiment {
		case domain.SentimentPositive:
			s.Positive++
		case domain.SentimentNegative:
			s.Negative++
		default:
			s.Neutral++
		}
		switch it.Impact {
		case domain.ImpactHigh:
			s.HighImpact++
		case domain.ImpactMedium:
			s.MediumImpact++
		}
	}
	return s
}

// Score returns the sentiment total for the news batch.
func (s *SentimentScorer) Score(items []domain.NewsItem) float64 {
	return s.Breakdown(items).Total
}

// Breakdown computes all three components for the news batch.
func (s *SentimentScorer) Breakdown(items []domain.NewsItem) SentimentBreakdown {
	sum := summarize(items)
	b := SentimentBreakdown{
		Max:         MaxSentiment,
		Sentiment:   sentimentToneScore(sum),
		Impact:      impactScore(sum),
		Volume:      s.newsVolumeScore(sum),
		NewsSummary: sum,
	}
	b.Total = round1(b.Sentiment.Score + b.Impact.Score + b.Volume.Score)
	return b
}

// sentimentToneScore grades the positive share among opinionated articles.
// A majority-negative batch takes an extra 2-point penalty, floored at 1.
func sentimentToneScore(sum NewsSummary) Component {
	if sum.Total == 0 {
		return Component{Score: 5.0, Max: MaxNewsSentiment, Description: "no news (neutral)"}
	}

	opinionated := sum.Positive + sum.Negative
	if opinionated == 0 {
		return Component{Score: 5.0, Max: MaxNewsSentiment,
			Description: fmt.Sprintf("no opinionated coverage (%d articles)", sum.Total)}
	}

	posRatio := float64(sum.Positive) / float64(opinionated)
	negRatio := float64(sum.Negative) / float64(opinionated)

	var score float64
	var desc string
	switch {
	case posRatio >= 0.8:
		score, desc = 10.0, "very positive"
	case posRatio >= 0.6:
		score, desc = 8.0, "positive"
	case posRatio >= 0.4:
		score, desc = 6.0, "mixed"
	case posRatio >= 0.2:
		score, desc = 4.0, "somewhat negative"
	default:
		score, desc = 2.0, "negative"
	}

	if negRatio >= 0.5 {
		score -= 2.0
		if score < 1.0 {
			score = 1.0
		}
		desc += " (mostly negative)"
	}

	detail := fmt.Sprintf("%s (%d positive, %d negative, %d neutral)", desc, sum.Positive, sum.Negative, sum.Neutral)
	return Component{Score: score, Max: MaxNewsSentiment, Description: detail}
}

// impactScore grades how much of the coverage is likely to move the price.
func impactScore(sum NewsSummary) Component {
	if sum.Total == 0 {
		return Component{Score: 3.0, Max: MaxNewsImpact, Description: "no news"}
	}

	var score float64
	var desc string
	switch {
	case sum.HighImpact >= 3:
		score, desc = 6.0, fmt.Sprintf("many high-impact articles (%d)", sum.HighImpact)
	case sum.HighImpact == 2:
		score, desc = 5.0, "2 high-impact articles"
	case sum.HighImpact == 1:
		score, desc = 4.0, "1 high-impact article"
	case sum.MediumImpact > 0:
		score, desc = 3.0, fmt.Sprintf("%d medium-impact articles", sum.MediumImpact)
	default:
		score, desc = 2.0, "no price-moving coverage"
	}
	return Component{Score: score, Max: MaxNewsImpact, Description: desc}
}

// newsVolumeScore grades raw article count as a proxy for market interest.
func (s *SentimentScorer) newsVolumeScore(sum NewsSummary) Component {
	var score float64
	var desc string
	switch {
	case sum.Total >= 20:
		score, desc = 4.0, "high interest"
	case sum.Total >= 10:
		score, desc = 3.0, "moderate interest"
	case sum.Total >= 5:
		score, desc = 2.0, "low interest"
	default:
		score, desc = 1.0, "very low interest"
	}
	detail := fmt.Sprintf("%s (%d articles/%dd)", desc, sum.Total, s.Days)
	return Component{Score: score, Max: MaxNewsVolume, Description: detail}
}
