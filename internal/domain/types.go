// Package domain defines the core data types shared across the koscore
// platform: daily price points, watch-list stocks, financial snapshots, and
// news items.
package domain

// Market identifies the exchange a stock trades on.
type Market string

const (
	MarketKR Market = "kr"
	MarketUS Market = "us"
)

// DateFormat is the canonical calendar-date layout used throughout the
// system. Dates are kept as strings because lexicographic order equals
// chronological order for this layout.
const DateFormat = "2006-01-02"

// PricePoint is one trading day of OHLCV data for a stock. Prices are whole
// currency units (won for KRX listings). A PricePoint is immutable once
// stored; non-trading days are simply absent from a series, never zero-filled.
type PricePoint struct {
	Code         string
	Date         string // YYYY-MM-DD
	Open         int64
	High         int64
	Low          int64
	Close        int64
	Volume       int64
	TradingValue int64 // turnover in won; 0 when the source does not provide it
}

// Stock is one watch-list entry.
type Stock struct {
	Code   string
	Name   string
	Market Market
	Sector string
}

// Financials is the latest fundamental snapshot for a stock. Fields are
// pointers because any datum may be missing from the source; scorers apply
// their own neutral defaults for nil values.
type Financials struct {
	Code          string
	PER           *float64
	PBR           *float64
	PSR           *float64
	RevenueGrowth *float64 // YoY, percent
	OpGrowth      *float64 // YoY, percent
	ROE           *float64 // percent
	OpMargin      *float64 // percent
	DebtRatio     *float64 // percent
	CurrentRatio  *float64 // percent
}

// Sentiment classifies the tone of a news item.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Impact classifies how likely a news item is to move the price.
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// NewsItem is one collected news article, tagged at collection time.
type NewsItem struct {
	Code      string
	Date      string // YYYY-MM-DD
	Headline  string
	Source    string
	Sentiment Sentiment
	Impact    Impact
}
