package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/whalebridge/config"
	"github.com/alejandrodnm/whalebridge/internal/adapters/polymarket"
	"github.com/alejandrodnm/whalebridge/internal/adapters/storage"
	"github.com/alejandrodnm/whalebridge/internal/adapters/telegram"
	"github.com/alejandrodnm/whalebridge/internal/ports"
	"github.com/alejandrodnm/whalebridge/internal/tracker"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	jsonOut := flag.Bool("json", false, "write signals to the signals file (bridge mode)")
	minSize := flag.Float64("min-size", 0, "min whale trade size USD (overrides config)")
	marketID := flag.String("market-id", "", "scan one market by condition ID")
	noResFilter := flag.Bool("no-resolution-filter", false, "skip the resolution window filter")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	setupLogger(cfg.Log)

	slog.Info("whale tracker starting",
		"config", *configPath,
		"json", *jsonOut,
		"markets_target", cfg.Tracker.MarketsTarget,
	)

	client := polymarket.NewClient(cfg.API.GammaBase, cfg.API.DataBase)

	// Human mode alerts per signal over Telegram; in JSON mode the bridge
	// owns the channel and the tracker stays silent.
	var notifier ports.Notifier
	if !*jsonOut && cfg.Telegram.BotToken != "" {
		notifier, err = telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			slog.Warn("telegram unavailable, console only", "err", err)
			notifier = nil
		}
	}

	trackerCfg := tracker.Config{
		WhaleMinSizeUSD:   cfg.Tracker.WhaleMinSizeUSD,
		MinLiquidityUSD:   cfg.Tracker.MinLiquidityUSD,
		Tier1Divergence:   cfg.Tracker.Tier1Divergence,
		Tier2Divergence:   cfg.Tracker.Tier2Divergence,
		ResolutionMinDays: cfg.Tracker.ResolutionMinDays,
		ResolutionMaxDays: cfg.Tracker.ResolutionMaxDays,
		MarketsTarget:     cfg.Tracker.MarketsTarget,
		PageSize:          cfg.Tracker.PageSize,
	}

	t := tracker.New(trackerCfg, client, client, notifier)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := t.Scan(ctx, tracker.Options{
		MinSize:              *minSize,
		TargetMarketID:       *marketID,
		SkipResolutionFilter: *noResFilter,
	})
	if err != nil {
		slog.Error("scan failed", "err", err)
		os.Exit(1)
	}

	for _, sig := range result.Signals {
		slog.Info("signal",
			"tier", sig.Tier,
			"market", sig.MarketName,
			"divergence_pct", sig.Divergence*100,
			"resolves_days", sig.DaysToResolve,
		)
	}

	if *jsonOut {
		store := storage.NewSignalStore(cfg.Paths.SignalsFile)
		if err := store.SaveScan(result); err != nil {
			slog.Error("failed to write signals file", "err", err)
			os.Exit(1)
		}
		slog.Info("signals written",
			"file", cfg.Paths.SignalsFile,
			"count", result.SignalsCount,
		)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
