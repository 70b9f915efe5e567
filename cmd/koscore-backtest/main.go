package main

import (
	"context"
	"flag"
	"log"
	"os"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"koscore/internal/backtest"
	"koscore/internal/config"
	"koscore/internal/scoring"
	"koscore/internal/store"
	"koscore/internal/util"
)

func main() {
	var (
		code    = flag.String("code", "", "stock code (required)")
		start   = flag.String("start", "", "start date YYYY-MM-DD (required)")
		end     = flag.String("end", "", "end date YYYY-MM-DD (required)")
		capital = flag.Int64("capital", 0, "initial capital in won (default from config)")
		buy     = flag.Float64("buy", 0, "buy threshold (default from config)")
		sell    = flag.Float64("sell", 0, "sell threshold (default from config)")
	)
	flag.Parse()

	if *code == "" || *start == "" || *end == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfgPath := "config/koscore.yaml"
	if p := os.Getenv("KOSCORE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	params := backtest.Params{
		Code:           *code,
		StartDate:      *start,
		EndDate:        *end,
		InitialCapital: *capital,
		BuyThreshold:   *buy,
		SellThreshold:  *sell,
		Lookback:       cfg.Backtest.LookbackWindow,
		CommissionRate: cfg.Backtest.CommissionRate,
		TaxRate:        cfg.Backtest.TaxRate,
	}
	if params.InitialCapital == 0 {
		params.InitialCapital = cfg.Backtest.InitialCapital
	}
	if params.BuyThreshold == 0 {
		params.BuyThreshold = cfg.Backtest.BuyThreshold
	}
	if params.SellThreshold == 0 {
		params.SellThreshold = cfg.Backtest.SellThreshold
	}

	engine := backtest.NewEngine(st, scoring.NewTechnicalScorer())
	res, err := engine.Run(context.Background(), params)
	if err != nil {
		log.Fatalf("backtest: %v", err)
	}

	printReport(params, res)
}

// printReport writes a human-readable run summary with thousands-separated
// won amounts.
func printReport(p backtest.Params, res *backtest.Result) {
	pr := message.NewPrinter(language.Korean)

	pr.Printf("backtest %s  %s ~ %s\n", p.Code, p.StartDate, p.EndDate)
	pr.Printf("capital %d won  buy>=%.1f sell<%.1f\n\n", p.InitialCapital, p.BuyThreshold, p.SellThreshold)

	if len(res.Trades) == 0 {
		pr.Printf("no trades executed\n\n")
	}
	for _, t := range res.Trades {
		switch t.Kind {
		case backtest.TradeBuy:
			pr.Printf("%s  BUY  %d x %d won  score %.1f  value %d\n",
				t.Date, t.Shares, t.Price, t.Score, t.PortfolioValue)
		case backtest.TradeSell:
			pr.Printf("%s  SELL %d x %d won  score %.1f  value %d  profit %d (%.2f%%)\n",
				t.Date, t.Shares, t.Price, t.Score, t.PortfolioValue, *t.Profit, *t.ProfitPct)
		}
	}

	m := res.Metrics
	pr.Printf("\ntrading days  %d\n", m.TradingDays)
	pr.Printf("final value   %d won\n", m.FinalValue)
	pr.Printf("total return  %.2f%%  (annualized %.2f%%)\n", m.TotalReturnPct, m.AnnualizedReturnPct)
	pr.Printf("buy & hold    %.2f%%\n", m.BuyHoldReturnPct)
	pr.Printf("max drawdown  %.2f%%\n", m.MaxDrawdownPct)
	pr.Printf("sharpe ratio  %.2f\n", m.SharpeRatio)
	pr.Printf("win rate      %.1f%%  (%d trades)\n", m.WinRatePct, m.TradeCount)
}
