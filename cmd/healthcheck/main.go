package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/alejandrodnm/whalebridge/config"
	"github.com/alejandrodnm/whalebridge/internal/adapters/notify"
	"github.com/alejandrodnm/whalebridge/internal/adapters/storage"
	"github.com/alejandrodnm/whalebridge/internal/adapters/telegram"
	"github.com/alejandrodnm/whalebridge/internal/health"
	"github.com/alejandrodnm/whalebridge/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	console := flag.Bool("console", false, "print the report instead of sending to Telegram")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	checker := health.New(
		storage.NewSignalStore(cfg.Paths.SignalsFile),
		storage.NewLedgerStore(cfg.LedgerPath()),
		storage.NewPendingStore(cfg.Paths.PendingFile),
	)

	var notifier ports.Notifier
	if *console {
		notifier = notify.NewConsole()
	} else {
		notifier, err = telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			slog.Warn("telegram unavailable, falling back to console", "err", err)
			notifier = notify.NewConsole()
		}
	}

	if err := checker.Report(context.Background(), notifier); err != nil {
		slog.Error("health check failed", "err", err)
		os.Exit(1)
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
