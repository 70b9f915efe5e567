package collect

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"koscore/internal/domain"
	"koscore/internal/store"
)

var _ Collector = (*USDailyCollector)(nil)

// USDailyCollector fetches daily bars for US-listed watch-list entries from
// the Alpaca market-data API. Dollar prices are stored as integer cents so
// the whole pipeline stays in integer minor units.
type USDailyCollector struct {
	client    *marketdata.Client
	stocks    store.StockStore
	prices    store.PriceStore
	startDate string
	log       *slog.Logger
}

// NewUSDailyCollector creates a USDailyCollector with the given Alpaca
// credentials.
func NewUSDailyCollector(apiKey, apiSecret, dataURL string, stocks store.StockStore, prices store.PriceStore, startDate string) *USDailyCollector {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &USDailyCollector{
		client:    marketdata.NewClient(opts),
		stocks:    stocks,
		prices:    prices,
		startDate: startDate,
		log:       slog.Default().With("collector", "us-daily"),
	}
}

// Name returns the collector identifier.
func (c *USDailyCollector) Name() string { return "us-daily" }

// Run fetches daily bars for every US watch-list entry in one multi-symbol
// request and upserts them.
func (c *USDailyCollector) Run(ctx context.Context) error {
	stocks, err := c.stocks.ListStocks(ctx)
	if err != nil {
		return fmt.Errorf("listing stocks: %w", err)
	}

	var symbols []string
	for _, st := range stocks {
		if st.Market == domain.MarketUS {
			symbols = append(symbols, st.Code)
		}
	}
	if len(symbols) == 0 {
		return nil
	}

	start, err := time.Parse(domain.DateFormat, c.startDate)
	if err != nil {
		return fmt.Errorf("parsing start date %q: %w", c.startDate, err)
	}

	multiBars, err := c.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("GetMultiBars: %w", err)
	}

	var points []domain.PricePoint
	for symbol, bars := range multiBars {
		for _, b := range bars {
			points = append(points, domain.PricePoint{
				Code:   symbol,
				Date:   b.Timestamp.Format(domain.DateFormat),
				Open:   dollarsToCents(b.Open),
				High:   dollarsToCents(b.High),
				Low:    dollarsToCents(b.Low),
				Close:  dollarsToCents(b.Close),
				Volume: int64(b.Volume),
			})
		}
	}
	if len(points) == 0 {
		return nil
	}

	if err := c.prices.SavePrices(ctx, points); err != nil {
		return fmt.Errorf("saving bars: %w", err)
	}
	c.log.Info("collected", "symbols", len(symbols), "points", len(points))
	return nil
}

// dollarsToCents rounds to the nearest cent; Alpaca bar prices already carry
// at most sub-cent noise from floating point.
func dollarsToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}
