package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/whalebridge/config"
	"github.com/alejandrodnm/whalebridge/internal/adapters/notify"
	"github.com/alejandrodnm/whalebridge/internal/adapters/polymarket"
	"github.com/alejandrodnm/whalebridge/internal/adapters/storage"
	"github.com/alejandrodnm/whalebridge/internal/adapters/telegram"
	"github.com/alejandrodnm/whalebridge/internal/bridge"
	"github.com/alejandrodnm/whalebridge/internal/domain"
	"github.com/alejandrodnm/whalebridge/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "print proposals to stdout, persist nothing")
	signalsPath := flag.String("signals", "", "signals file (overrides config)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	signalsFile := cfg.Paths.SignalsFile
	if *signalsPath != "" {
		signalsFile = *signalsPath
	}

	slog.Info("whalebridge starting",
		"config", *configPath,
		"signals", signalsFile,
		"ledger", cfg.LedgerPath(),
		"dry_run", *dryRun,
	)

	client := polymarket.NewClient(cfg.API.GammaBase, cfg.API.DataBase)

	var notifier ports.Notifier
	if *dryRun {
		notifier = notify.NewConsole()
	} else {
		notifier, err = telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			slog.Error("failed to init telegram", "err", err)
			os.Exit(1)
		}
	}

	var archive ports.Archive
	if !*dryRun {
		sqlArchive, err := storage.NewSQLiteArchive(cfg.Paths.ArchiveDSN)
		if err != nil {
			slog.Error("failed to open archive", "err", err, "dsn", cfg.Paths.ArchiveDSN)
			os.Exit(1)
		}
		defer sqlArchive.Close()
		archive = sqlArchive
	}

	bridgeCfg := bridge.Config{
		Sizer: domain.SizerConfig{
			MinBet:        cfg.Risk.MinBet,
			MaxBet:        cfg.Risk.MaxBet,
			KellyFraction: cfg.Risk.KellyFraction,
		},
		Guards: bridge.Guards{
			MaxExposurePct: cfg.Risk.MaxExposurePct,
			MaxCategoryPct: cfg.Risk.MaxCategoryPct,
			MinBet:         cfg.Risk.MinBet,
			SentTTL:        cfg.SentTTL(),
			BlockedTTL:     cfg.BlockedTTL(),
		},
		MaxProposalsDay: cfg.Risk.MaxProposalsDay,
		DryRun:          *dryRun,
	}

	b := bridge.New(bridgeCfg,
		storage.NewSignalStore(signalsFile),
		storage.NewLedgerStore(cfg.LedgerPath()),
		storage.NewPendingStore(cfg.Paths.PendingFile),
		client,
		notifier,
		archive,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := b.Run(ctx); err != nil {
		slog.Error("bridge exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("whalebridge stopped cleanly")
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
