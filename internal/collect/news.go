package collect

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"koscore/internal/domain"
	"koscore/internal/store"
	"koscore/internal/util"
)

var _ Collector = (*NewsCollector)(nil)

// impactKeyword classifies a headline by the first keyword it contains.
// Order matters: earnings and deal terms outrank general market-direction
// words.
type impactKeyword struct {
	word      string
	sentiment domain.Sentiment
	impact    domain.Impact
}

var impactKeywords = []impactKeyword{
	// High impact: earnings, deals, capital events.
	{"실적", domain.SentimentPositive, domain.ImpactHigh},
	{"매출", domain.SentimentPositive, domain.ImpactHigh},
	{"영업이익", domain.SentimentPositive, domain.ImpactHigh},
	{"순이익", domain.SentimentPositive, domain.ImpactHigh},
	{"흑자", domain.SentimentPositive, domain.ImpactHigh},
	{"적자", domain.SentimentNegative, domain.ImpactHigh},
	{"수주", domain.SentimentPositive, domain.ImpactHigh},
	{"계약", domain.SentimentPositive, domain.ImpactHigh},
	{"공급", domain.SentimentPositive, domain.ImpactHigh},
	{"인수", domain.SentimentPositive, domain.ImpactHigh},
	{"합병", domain.SentimentPositive, domain.ImpactHigh},
	{"투자", domain.SentimentPositive, domain.ImpactHigh},
	{"유상증자", domain.SentimentNegative, domain.ImpactHigh},
	{"무상증자", domain.SentimentPositive, domain.ImpactHigh},
	{"상장", domain.SentimentPositive, domain.ImpactHigh},

	// Medium impact: products, analyst actions, labor and legal noise.
	{"신제품", domain.SentimentPositive, domain.ImpactMedium},
	{"출시", domain.SentimentPositive, domain.ImpactMedium},
	{"양산", domain.SentimentPositive, domain.ImpactMedium},
	{"목표가", domain.SentimentPositive, domain.ImpactMedium},
	{"매수", domain.SentimentPositive, domain.ImpactMedium},
	{"매도", domain.SentimentNegative, domain.ImpactMedium},
	{"상승", domain.SentimentPositive, domain.ImpactMedium},
	{"하락", domain.SentimentNegative, domain.ImpactMedium},
	{"급등", domain.SentimentPositive, domain.ImpactMedium},
	{"급락", domain.SentimentNegative, domain.ImpactMedium},
	{"신고가", domain.SentimentPositive, domain.ImpactMedium},
	{"배당", domain.SentimentPositive, domain.ImpactMedium},
	{"자사주", domain.SentimentPositive, domain.ImpactMedium},
	{"주주환원", domain.SentimentPositive, domain.ImpactMedium},
	{"구조조정", domain.SentimentNegative, domain.ImpactMedium},
	{"파업", domain.SentimentNegative, domain.ImpactMedium},
	{"소송", domain.SentimentNegative, domain.ImpactMedium},
	{"과징금", domain.SentimentNegative, domain.ImpactMedium},
	{"제재", domain.SentimentNegative, domain.ImpactMedium},
	{"규제", domain.SentimentNegative, domain.ImpactMedium},
	{"특허", domain.SentimentPositive, domain.ImpactMedium},
	{"승인", domain.SentimentPositive, domain.ImpactMedium},
}

// TagHeadline classifies a headline by keyword scan, first match wins.
// Headlines with no keyword are neutral, low impact.
func TagHeadline(headline string) (domain.Sentiment, domain.Impact) {
	for _, k := range impactKeywords {
		if strings.Contains(headline, k.word) {
			return k.sentiment, k.impact
		}
	}
	return domain.SentimentNeutral, domain.ImpactLow
}

// NewsCollector fetches recent articles per watch-list stock from Google News
// RSS and stores them with keyword sentiment tags.
type NewsCollector struct {
	stocks  store.StockStore
	news    store.NewsStore
	client  *http.Client
	baseURL string // RSS endpoint; empty for Google News
	days    int
	limit   int
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewNewsCollector creates a NewsCollector keeping up to limit articles per
// stock from the trailing days window.
func NewNewsCollector(stocks store.StockStore, news store.NewsStore, baseURL string, days, limit, rateLimitPerMin int) *NewsCollector {
	if baseURL == "" {
		baseURL = "https://news.google.com/rss/search"
	}
	return &NewsCollector{
		stocks:  stocks,
		news:    news,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		days:    days,
		limit:   limit,
		limiter: util.NewRateLimiter(rateLimitPerMin),
		log:     slog.Default().With("collector", "news"),
	}
}

// Name returns the collector identifier.
func (c *NewsCollector) Name() string { return "news" }

// Run fetches and stores news for every watch-list entry.
func (c *NewsCollector) Run(ctx context.Context) error {
	stocks, err := c.stocks.ListStocks(ctx)
	if err != nil {
		return fmt.Errorf("listing stocks: %w", err)
	}

	var failed int
	for i := range stocks {
		st := &stocks[i]
		if err := c.collectOne(ctx, st); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("collecting news", "code", st.Code, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("news: %d of %d stocks failed", failed, len(stocks))
	}
	return nil
}

func (c *NewsCollector) collectOne(ctx context.Context, st *domain.Stock) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	items, err := c.fetch(ctx, st)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	if err := c.news.SaveNews(ctx, items); err != nil {
		return err
	}
	c.log.Info("collected", "code", st.Code, "articles", len(items))
	return nil
}

type rssResponse struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	PubDate string `xml:"pubDate"`
}

func (c *NewsCollector) fetch(ctx context.Context, st *domain.Stock) ([]domain.NewsItem, error) {
	q := url.QueryEscape(st.Name + " 주가")
	u := c.baseURL + "?q=" + q + "&hl=ko&gl=KR&ceid=KR:ko"

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss status %d", resp.StatusCode)
	}

	var rss rssResponse
	if err := xml.NewDecoder(resp.Body).Decode(&rss); err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -c.days)
	var items []domain.NewsItem
	for _, item := range rss.Channel.Items {
		if len(items) >= c.limit {
			break
		}
		t, err := time.Parse(time.RFC1123Z, item.PubDate)
		if err != nil {
			t, err = time.Parse(time.RFC1123, item.PubDate)
			if err != nil {
				continue
			}
		}
		if t.Before(cutoff) {
			continue
		}

		headline := item.Title
		// Google News appends " - <publisher>".
		if idx := strings.LastIndex(headline, " - "); idx > 0 {
			headline = headline[:idx]
		}

		sentiment, impact := TagHeadline(headline)
		items = append(items, domain.NewsItem{
			Code:      st.Code,
			Date:      t.Format(domain.DateFormat),
			Headline:  headline,
			Source:    "google",
			Sentiment: sentiment,
			Impact:    impact,
		})
	}
	return items, nil
}
