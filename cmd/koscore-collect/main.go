package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"koscore/internal/collect"
	"koscore/internal/config"
	"koscore/internal/store"
	"koscore/internal/util"
)

func main() {
	only := flag.String("only", "", "comma-separated collector names to run (default all)")
	flag.Parse()

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

	collectors := []collect.Collector{
		collect.NewKRDailyCollector(st, st,
			cfg.Collect.KRDaily.BaseURL,
			cfg.Collect.KRDaily.StartDate,
			cfg.Collect.KRDaily.RateLimitPerMin,
			cfg.Collect.KRDaily.MaxAttempts,
		),
		collect.NewUSDailyCollector(
			cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL,
			st, st,
			cfg.Collect.USDaily.StartDate,
		),
		collect.NewNewsCollector(st, st, "",
			cfg.Collect.News.Days,
			cfg.Collect.News.Limit,
			cfg.Collect.News.RateLimitPerMin,
		),
	}

	wanted := map[string]bool{}
	if *only != "" {
		for _, name := range strings.Split(*only, ",") {
			wanted[strings.TrimSpace(name)] = true
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var failed int
	for _, c := range collectors {
		if len(wanted) > 0 && !wanted[c.Name()] {
			continue
		}
		logger.Info("running collector", "name", c.Name())
		if err := c.Run(ctx); err != nil {
			if ctx.Err() != nil {
				log.Fatalf("interrupted: %v", ctx.Err())
			}
			logger.Error("collector failed", "name", c.Name(), "error", err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}

	// Mirror collected price history into the Parquet archive.
	if cfg.Storage.ArchiveDir != "" {
		arch := store.NewParquetArchive(cfg.Storage.ArchiveDir)
		stocks, err := st.ListStocks(ctx)
		if err != nil {
			log.Fatalf("listing stocks for archive: %v", err)
		}
		for _, s := range stocks {
			n, err := arch.Export(ctx, st, s.Code)
			if err != nil {
				logger.Error("archiving", "code", s.Code, "error", err)
				continue
			}
			logger.Info("archived", "code", s.Code, "points", n)
		}
	}
}
