package collect

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"koscore/internal/domain"
	"koscore/internal/store"
	"koscore/internal/util"
)

var _ Collector = (*KRDailyCollector)(nil)

// KRDailyCollector fetches daily OHLCV CSV files for KRX-listed watch-list
// entries. The source serves EUC-KR encoded CSV with one row per trading day.
type KRDailyCollector struct {
	stocks      store.StockStore
	prices      store.PriceStore
	client      *http.Client
	baseURL     string
	startDate   string
	limiter     *util.RateLimiter
	maxAttempts int
	log         *slog.Logger
}

// NewKRDailyCollector creates a KRDailyCollector. baseURL is the CSV endpoint;
// startDate bounds the first fetch for stocks with no stored history.
func NewKRDailyCollector(stocks store.StockStore, prices store.PriceStore, baseURL, startDate string, rateLimitPerMin, maxAttempts int) *KRDailyCollector {
	return &KRDailyCollector{
		stocks:      stocks,
		prices:      prices,
		client:      &http.Client{Timeout: 30 * time.Second},
		baseURL:     baseURL,
		startDate:   startDate,
		limiter:     util.NewRateLimiter(rateLimitPerMin),
		maxAttempts: maxAttempts,
		log:         slog.Default().With("collector", "kr-daily"),
	}
}

// Name returns the collector identifier.
func (c *KRDailyCollector) Name() string { return "kr-daily" }

// Run fetches and upserts daily prices for every KR watch-list entry. One
// failing stock is logged and skipped; the pass continues.
func (c *KRDailyCollector) Run(ctx context.Context) error {
	stocks, err := c.stocks.ListStocks(ctx)
	if err != nil {
		return fmt.Errorf("listing stocks: %w", err)
	}

	var failed int
	for i := range stocks {
		st := &stocks[i]
		if st.Market != domain.MarketKR {
			continue
		}
		if err := c.collectOne(ctx, st); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("collecting", "code", st.Code, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("kr-daily: %d of %d stocks failed", failed, len(stocks))
	}
	return nil
}

func (c *KRDailyCollector) collectOne(ctx context.Context, st *domain.Stock) error {
	// Resume from the day after the last stored date.
	from := c.startDate
	_, last, err := c.prices.DateRange(ctx, st.Code)
	if err != nil {
		return err
	}
	if last != "" {
		t, err := time.Parse(domain.DateFormat, last)
		if err != nil {
			return fmt.Errorf("stored date %q: %w", last, err)
		}
		from = t.AddDate(0, 0, 1).Format(domain.DateFormat)
	}

	// Nothing new can exist before the next KRX session.
	if from > util.PrevKRXTradingDay(time.Now()).Format(domain.DateFormat) {
		return nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var points []domain.PricePoint
	err = util.Retry(ctx, c.maxAttempts, time.Second, func() error {
		var err error
		points, err = c.fetch(ctx, st.Code, from)
		return err
	})
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	if err := c.prices.SavePrices(ctx, points); err != nil {
		return err
	}
	c.log.Info("collected", "code", st.Code, "points", len(points), "from", from)
	return nil
}

func (c *KRDailyCollector) fetch(ctx context.Context, code, from string) ([]domain.PricePoint, error) {
	u := fmt.Sprintf("%s?code=%s&from=%s", c.baseURL, url.QueryEscape(code), url.QueryEscape(from))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", code, resp.StatusCode)
	}

	return ParseDailyCSV(resp.Body, code)
}

// ParseDailyCSV decodes an EUC-KR daily OHLCV CSV into price points. The
// expected columns are date, open, high, low, close, volume, with an optional
// trailing trading-value column. A header row is detected and skipped; rows
// that do not parse are skipped rather than failing the file.
func ParseDailyCSV(r io.Reader, code string) ([]domain.PricePoint, error) {
	decoded := transform.NewReader(r, korean.EUCKR.NewDecoder())
	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1

	var points []domain.PricePoint
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 6 {
			continue
		}

		date := strings.TrimSpace(rec[0])
		if _, err := time.Parse(domain.DateFormat, date); err != nil {
			continue // header or malformed row
		}

		var vals [5]int64
		ok := true
		for i := 0; i < 5; i++ {
			v, err := parseWon(rec[i+1])
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			continue
		}

		p := domain.PricePoint{
			Code:   code,
			Date:   date,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		}
		if len(rec) >= 7 {
			if tv, err := parseWon(rec[6]); err == nil {
				p.TradingValue = tv
			}
		}
		points = append(points, p)
	}
	return points, nil
}

// parseWon parses an integer that may carry thousands separators.
func parseWon(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseInt(s, 10, 64)
}
