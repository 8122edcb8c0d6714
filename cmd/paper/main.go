package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/alejandrodnm/whalebridge/config"
	"github.com/alejandrodnm/whalebridge/internal/adapters/notify"
	"github.com/alejandrodnm/whalebridge/internal/adapters/polymarket"
	"github.com/alejandrodnm/whalebridge/internal/adapters/storage"
	"github.com/alejandrodnm/whalebridge/internal/domain"
	"github.com/alejandrodnm/whalebridge/internal/engine"
)

const usage = `Paper Trading Engine
Usage: paper <command> [args]

Commands:
  init [-force]                                             create the ledger
  buy <market_id> <YES|NO> <amount> <entry_price> <tier> <market_name...> [category]
  status                                                    open positions with live P&L
  resolve <position_id> <WIN|LOSS> [exit_price]             settle a position
  report                                                    performance + go-live scorecard
`

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	ledgers := storage.NewLedgerStore(cfg.LedgerPath())
	client := polymarket.NewClient(cfg.API.GammaBase, cfg.API.DataBase)

	eng := engine.New(engine.Config{
		StartingBalance: cfg.Risk.StartingBalance,
		MaxBet:          cfg.Risk.MaxBet,
		MaxExposurePct:  cfg.Risk.MaxExposurePct,
	}, ledgers, client)

	console := notify.NewConsole()

	var cmdErr error
	switch args[0] {
	case "init":
		cmdErr = runInit(eng, args[1:])
	case "buy":
		cmdErr = runBuy(eng, args[1:])
	case "status":
		cmdErr = runStatus(eng, console)
	case "resolve":
		cmdErr = runResolve(eng, args[1:])
	case "report":
		cmdErr = runReport(eng, console)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if cmdErr != nil {
		slog.Error("command failed", "command", args[0], "err", cmdErr)
		os.Exit(1)
	}
}

func runInit(eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "wipe an existing ledger and start over")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ledger, err := eng.Init(*force)
	if err != nil {
		return err
	}
	fmt.Printf("[OK] Paper trading ledger initialized\n")
	fmt.Printf("     Virtual balance : $%.2f\n", ledger.Meta.VirtualBalance)
	return nil
}

func runBuy(eng *engine.Engine, args []string) error {
	if len(args) < 6 {
		return fmt.Errorf("usage: buy <market_id> <YES|NO> <amount> <entry_price> <tier> <market_name...> [category]")
	}

	amount, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[2], err)
	}
	entryPrice, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return fmt.Errorf("invalid entry price %q: %w", args[3], err)
	}
	tier, err := strconv.Atoi(args[4])
	if err != nil {
		return fmt.Errorf("invalid tier %q: %w", args[4], err)
	}

	// The last word may be an explicit category; otherwise it is part of
	// the market name and the category is detected from keywords.
	nameArgs := args[5:]
	category := ""
	if len(nameArgs) > 0 {
		if _, ok := domain.ParseCategory(nameArgs[len(nameArgs)-1]); ok {
			category = strings.ToLower(nameArgs[len(nameArgs)-1])
			nameArgs = nameArgs[:len(nameArgs)-1]
		}
	}

	pos, warnings, err := eng.Buy(engine.BuyInput{
		MarketID:   args[0],
		MarketName: strings.Join(nameArgs, " "),
		Side:       args[1],
		Amount:     amount,
		EntryPrice: entryPrice,
		Category:   category,
		Tier:       tier,
	})
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Printf("[WARN] %s\n", w)
	}

	fmt.Printf("\n[PAPER TRADE EXECUTED]\n")
	fmt.Printf("  ID           : %s\n", pos.ID)
	fmt.Printf("  Market       : %s (%s)\n", pos.MarketName, pos.MarketID)
	fmt.Printf("  Side         : %s\n", pos.Side)
	fmt.Printf("  Amount       : $%.2f virtual\n", pos.VirtualAmount)
	fmt.Printf("  Entry Price  : %.4f\n", pos.EntryPrice)
	fmt.Printf("  Shares       : %g\n", pos.Shares)
	fmt.Printf("  Signal Tier  : %d\n", pos.SignalTier)
	fmt.Printf("  Category     : %s\n", pos.Category)
	return nil
}

func runStatus(eng *engine.Engine, console *notify.Console) error {
	report, err := eng.Status(context.Background())
	if err != nil {
		return err
	}
	console.PrintStatus(*report)
	return nil
}

func runResolve(eng *engine.Engine, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: resolve <position_id> <WIN|LOSS> [exit_price]")
	}

	var pos *domain.Position
	var err error
	if len(args) >= 3 {
		exit, perr := strconv.ParseFloat(args[2], 64)
		if perr != nil {
			return fmt.Errorf("invalid exit price %q: %w", args[2], perr)
		}
		pos, err = eng.ResolveAt(args[0], args[1], exit)
	} else {
		pos, err = eng.Resolve(args[0], args[1])
	}
	if err != nil {
		return err
	}

	fmt.Printf("\n[PAPER POSITION RESOLVED]\n")
	fmt.Printf("  Market       : %s\n", pos.MarketName)
	fmt.Printf("  Outcome      : %s\n", pos.Outcome)
	fmt.Printf("  Exit Price   : %.4f\n", pos.ExitPrice)
	fmt.Printf("  Exit Value   : $%.2f\n", pos.ExitValue)
	fmt.Printf("  Realized P&L : $%+.2f (%+.1f%%)\n", pos.RealizedPnL, pos.ROIPct)
	return nil
}

func runReport(eng *engine.Engine, console *notify.Console) error {
	report, err := eng.Report()
	if err != nil {
		return err
	}
	console.PrintReport(*report)
	return nil
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
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
