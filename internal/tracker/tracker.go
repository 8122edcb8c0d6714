// Package tracker scans Polymarket for whale trades and turns them into
// divergence signals for the bridge.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/whalebridge/internal/domain"
	"github.com/alejandrodnm/whalebridge/internal/ports"
)

// skipThreshold drops near-settled markets: anything priced under 5% or
// over 95% has no edge left to trade.
const skipThreshold = 0.05

// tradesPerMarket is how many recent trades we pull per market.
const tradesPerMarket = 100

// Config holds the scan parameters.
type Config struct {
	WhaleMinSizeUSD   float64
	MinLiquidityUSD   float64
	Tier1Divergence   float64
	Tier2Divergence   float64
	ResolutionMinDays int
	ResolutionMaxDays int
	MarketsTarget     int
	PageSize          int
}

// Options tweaks a single scan without touching the config.
type Options struct {
	MinSize              float64 // overrides Config.WhaleMinSizeUSD when > 0
	TargetMarketID       string  // scan one market, bypassing all filters
	SkipResolutionFilter bool
}

// Tracker runs whale scans. notifier may be nil (JSON mode — the bridge
// owns Telegram there).
type Tracker struct {
	cfg      Config
	markets  ports.MarketProvider
	trades   ports.TradeProvider
	notifier ports.Notifier
	now      func() time.Time
}

// New creates a Tracker.
func New(cfg Config, markets ports.MarketProvider, trades ports.TradeProvider,
	notifier ports.Notifier) *Tracker {
	return &Tracker{
		cfg:      cfg,
		markets:  markets,
		trades:   trades,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Scan fetches active markets, filters them down to liquid near-resolution
// ones and extracts at most one whale signal per market.
func (t *Tracker) Scan(ctx context.Context, opts Options) (*domain.ScanResult, error) {
	minSize := t.cfg.WhaleMinSizeUSD
	if opts.MinSize > 0 {
		minSize = opts.MinSize
	}

	var markets []domain.Market
	if opts.TargetMarketID != "" {
		markets = []domain.Market{{ConditionID: opts.TargetMarketID, YesPrice: 0.5}}
		slog.Info("single market mode — filters bypassed", "market", opts.TargetMarketID)
	} else {
		all, err := t.markets.ActiveMarkets(ctx, t.cfg.MarketsTarget, t.cfg.PageSize)
		if err != nil {
			return nil, fmt.Errorf("tracker.Scan: %w", err)
		}
		slog.Info("markets fetched", "count", len(all))

		liquid := t.filterLiquid(all)
		slog.Info("liquidity filter", "pass", len(liquid), "min_usd", t.cfg.MinLiquidityUSD)

		if opts.SkipResolutionFilter {
			markets = liquid
			slog.Info("resolution filter skipped")
		} else {
			markets = t.filterByResolution(liquid)
		}
	}

	result := &domain.ScanResult{
		ScannedAt:      t.now(),
		MarketsScanned: len(markets),
		Signals:        []domain.Signal{},
	}

	for _, market := range markets {
		key := market.Key()
		if key == "" {
			continue
		}

		trades, err := t.trades.MarketTrades(ctx, key, tradesPerMarket)
		if err != nil {
			slog.Warn("trades fetch failed", "market", truncateID(key), "err", err)
			continue
		}

		whales := whaleTrades(trades, minSize)
		if len(whales) == 0 {
			continue
		}
		slog.Info("whale activity", "market", truncate(market.Question, 40), "trades", len(whales))

		for _, whale := range whales {
			if whale.Wallet == "unknown" {
				continue
			}

			sig, ok := t.buildSignal(market, whale)
			if !ok {
				continue
			}

			// One signal per market: the first qualifying whale wins
			if hasSignalFor(result.Signals, sig.MarketID) {
				continue
			}
			result.Signals = append(result.Signals, sig)

			slog.Info("signal found",
				"tier", sig.Tier,
				"divergence_pct", round1(sig.Divergence*100),
				"size_usd", whale.SizeUSD,
				"resolves_days", sig.DaysToResolve,
			)

			if t.notifier != nil {
				if err := t.notifier.Send(ctx, formatSignal(market, whale, sig)); err != nil {
					slog.Warn("signal alert failed", "err", err)
				}
			}
		}
	}

	result.SignalsCount = len(result.Signals)
	slog.Info("scan complete", "signals", result.SignalsCount, "markets", result.MarketsScanned)
	return result, nil
}

// filterLiquid keeps markets whose best of volume/liquidity clears the floor.
func (t *Tracker) filterLiquid(markets []domain.Market) []domain.Market {
	var liquid []domain.Market
	for _, m := range markets {
		if math.Max(m.Volume, m.Liquidity) >= t.cfg.MinLiquidityUSD {
			liquid = append(liquid, m)
		}
	}
	return liquid
}

// filterByResolution keeps markets resolving within the configured window
// and stamps the resolution metadata the bridge needs.
func (t *Tracker) filterByResolution(markets []domain.Market) []domain.Market {
	now := t.now()
	var filtered []domain.Market
	var skippedPast, skippedFar, skippedNoDate int

	for _, m := range markets {
		if m.EndDate.IsZero() {
			skippedNoDate++
			continue
		}
		daysLeft := int(m.EndDate.Sub(now).Hours() / 24)
		switch {
		case daysLeft < t.cfg.ResolutionMinDays:
			skippedPast++
		case daysLeft > t.cfg.ResolutionMaxDays:
			skippedFar++
		default:
			m.DaysToResolve = daysLeft
			filtered = append(filtered, m)
		}
	}
	slog.Info("resolution filter",
		"window_days", fmt.Sprintf("%d-%d", t.cfg.ResolutionMinDays, t.cfg.ResolutionMaxDays),
		"pass", len(filtered),
		"skipped_expired", skippedPast,
		"skipped_too_far", skippedFar,
		"skipped_no_date", skippedNoDate,
	)
	return filtered
}

// whaleTrades keeps trades at or above the whale size floor.
func whaleTrades(trades []domain.Trade, minSize float64) []domain.Trade {
	var whales []domain.Trade
	for _, tr := range trades {
		if tr.SizeUSD >= minSize {
			whales = append(whales, tr)
		}
	}
	return whales
}

// buildSignal computes divergence and tier for one whale trade. Returns
// false for tier-0 divergence and near-settled markets.
func (t *Tracker) buildSignal(market domain.Market, whale domain.Trade) (domain.Signal, bool) {
	marketProb := market.YesPrice
	if marketProb == 0 {
		marketProb = 0.5
	}
	whaleProb := whale.Price
	divergence := math.Abs(whaleProb - marketProb)

	tier := 0
	switch {
	case divergence >= t.cfg.Tier1Divergence:
		tier = 1
	case divergence >= t.cfg.Tier2Divergence:
		tier = 2
	}
	if tier == 0 {
		return domain.Signal{}, false
	}
	if marketProb < skipThreshold || marketProb > 1-skipThreshold {
		return domain.Signal{}, false
	}

	return domain.Signal{
		MarketID:      market.Key(),
		MarketName:    market.Question,
		MarketSlug:    market.Slug,
		YesPrice:      marketProb,
		Tier:          tier,
		Divergence:    round4(divergence),
		WhaleProb:     round4(whaleProb),
		MarketProb:    round4(marketProb),
		Direction:     whale.Direction,
		SizeUSD:       whale.SizeUSD,
		Wallet:        whale.Wallet,
		EndDateISO:    market.EndDateISO,
		DaysToResolve: market.DaysToResolve,
		ScannedAt:     t.now(),
	}, true
}

// formatSignal renders the human-mode Telegram alert.
func formatSignal(market domain.Market, whale domain.Trade, sig domain.Signal) string {
	label := "TIER 2 - MONITOR"
	prefix := "??"
	if sig.Tier == 1 {
		label = "TIER 1 - ACT"
		prefix = "!!"
	}
	return fmt.Sprintf(
		"%s WHALE SIGNAL\n\n"+
			"Market: %s\n"+
			"Resolves in: %d days\n"+
			"Direction: %s  Size: $%.2f\n"+
			"Whale price: %.3f\n\n"+
			"Market YES: %.3f (%.1f%%)\n"+
			"Whale implied: %.3f (%.1f%%)\n"+
			"Divergence: +%.1f%%\n\n"+
			"Signal: %s\n"+
			"Reply YES to investigate.",
		prefix, truncate(market.Question, 60), sig.DaysToResolve,
		whale.Direction, whale.SizeUSD, whale.Price,
		sig.MarketProb, sig.MarketProb*100,
		sig.WhaleProb, sig.WhaleProb*100,
		sig.Divergence*100, label)
}

func hasSignalFor(signals []domain.Signal, marketID string) bool {
	for _, s := range signals {
		if s.MarketID == marketID {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func truncateID(s string) string {
	return truncate(s, 12)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
