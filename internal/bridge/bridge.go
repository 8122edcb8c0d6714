package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/whalebridge/internal/domain"
	"github.com/alejandrodnm/whalebridge/internal/ports"
)

// Config holds everything tunable about a bridge run. Injected, never
// package state.
type Config struct {
	Sizer           domain.SizerConfig
	Guards          Guards
	MaxProposalsDay int
	DryRun          bool
}

// Bridge wires signals to Telegram proposals through the guard chain.
type Bridge struct {
	cfg      Config
	signals  ports.SignalStore
	ledgers  ports.LedgerStore
	pending  ports.PendingStore
	valuer   *Valuer
	notifier ports.Notifier
	archive  ports.Archive // optional
	now      func() time.Time
}

// New creates a Bridge. archive may be nil (dry runs).
func New(cfg Config, signals ports.SignalStore, ledgers ports.LedgerStore,
	pending ports.PendingStore, prices ports.PriceProvider,
	notifier ports.Notifier, archive ports.Archive) *Bridge {
	return &Bridge{
		cfg:      cfg,
		signals:  signals,
		ledgers:  ledgers,
		pending:  pending,
		valuer:   NewValuer(prices),
		notifier: notifier,
		archive:  archive,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one bridge cycle: load signals, value the portfolio, walk
// every signal through the guard chain, send proposals, purge expired
// records and archive the verdicts.
func (b *Bridge) Run(ctx context.Context) error {
	startedAt := b.now()
	slog.Info("bridge started",
		"daily_cap", b.cfg.MaxProposalsDay,
		"kelly_fraction", b.cfg.Sizer.KellyFraction,
		"dry_run", b.cfg.DryRun,
	)

	scan, err := b.signals.LoadScan()
	if err != nil {
		return fmt.Errorf("bridge.Run: load signals: %w", err)
	}
	slog.Info("signals loaded",
		"count", len(scan.Signals),
		"markets_scanned", scan.MarketsScanned,
		"scanned_at", scan.ScannedAt,
	)
	if len(scan.Signals) == 0 {
		slog.Info("no signals to process — exiting cleanly")
		return nil
	}

	ledger, err := b.ledgers.Load()
	if err != nil {
		if errors.Is(err, domain.ErrLedgerMissing) {
			return fmt.Errorf("bridge.Run: no ledger — run `paper init` first: %w", err)
		}
		return fmt.Errorf("bridge.Run: load ledger: %w", err)
	}

	manager, err := NewManager(b.pending, b.cfg.MaxProposalsDay,
		b.cfg.Guards.SentTTL, b.cfg.Guards.BlockedTTL, b.cfg.DryRun)
	if err != nil {
		return fmt.Errorf("bridge.Run: %w", err)
	}

	canSend, sentToday := manager.CanSend(b.now())
	slog.Info("daily cap", "sent_today", sentToday, "max", b.cfg.MaxProposalsDay)
	if !canSend {
		slog.Warn("daily cap reached — no more proposals today, resets at midnight UTC")
		return nil
	}

	valuation := b.valuer.PortfolioValue(ctx, ledger)
	catExposure := ledger.CategoryExposure(valuation.Total)
	slog.Info("portfolio",
		"cash", valuation.Cash,
		"open", valuation.OpenValue,
		"total", valuation.Total,
		"stale_prices", valuation.Stale,
	)

	var verdicts []domain.SignalVerdict
	proposalsSent := 0
	remaining := b.cfg.MaxProposalsDay - sentToday

	for _, sig := range scan.Signals {
		if proposalsSent >= remaining {
			slog.Warn("daily cap reached mid-loop — stopping")
			break
		}

		if err := sig.Validate(); err != nil {
			slog.Warn("skipping malformed signal", "market_id", sig.MarketID, "err", err)
			continue
		}

		category := domain.DetectCategory(sig.MarketName)
		slog.Info("processing signal",
			"market", truncate(sig.MarketName, 50),
			"tier", sig.Tier,
			"category", category,
			"resolves_days", sig.DaysToResolve,
		)

		verdict, sent := b.processSignal(ctx, sig, category, ledger, manager, valuation, catExposure)
		verdicts = append(verdicts, verdict)
		if sent {
			proposalsSent++
			_, sentNow := manager.CanSend(b.now())
			slog.Info("proposal sent",
				"sent_today", sentNow,
				"max", b.cfg.MaxProposalsDay,
				"market", truncate(sig.MarketName, 50),
			)
		}
	}

	slog.Info("bridge complete", "proposals_sent", proposalsSent)

	if !b.cfg.DryRun {
		removed, err := manager.Purge(b.now())
		if err != nil {
			slog.Warn("purge failed", "err", err)
		} else if removed > 0 {
			slog.Info("cleaned expired proposals", "removed", removed)
		}
	}

	if b.archive != nil {
		run := domain.BridgeRun{
			StartedAt:      startedAt,
			SignalsIn:      len(scan.Signals),
			ProposalsSent:  proposalsSent,
			PortfolioTotal: valuation.Total,
			StalePrices:    valuation.Stale,
			DryRun:         b.cfg.DryRun,
		}
		if err := b.archive.SaveRun(ctx, run, verdicts); err != nil {
			slog.Warn("archive write failed", "err", err)
		}
	}

	return nil
}

// processSignal walks one signal through the guard chain. Returns the
// verdict for the archive and whether a proposal went out.
func (b *Bridge) processSignal(ctx context.Context, sig domain.Signal, category domain.Category,
	ledger *domain.Ledger, manager *Manager, valuation Valuation,
	catExposure map[domain.Category]float64) (domain.SignalVerdict, bool) {

	verdict := domain.SignalVerdict{
		MarketID:   sig.MarketID,
		MarketName: sig.MarketName,
		Tier:       sig.Tier,
		Category:   category,
	}

	// Guard 1: tier
	tier := b.cfg.Guards.Tier(sig)
	slog.Info("guard tier", "pass", tier.OK, "reason", tier.Reason)
	if !tier.OK {
		verdict.Guard, verdict.Reason = "tier", tier.Reason
		return verdict, false
	}

	// Variable sizing (Kelly)
	size, err := b.cfg.Sizer.Size(sig.Divergence, sig.MarketProb, valuation.Total)
	if err != nil {
		slog.Warn("sizing failed", "market_id", sig.MarketID, "err", err)
		verdict.Guard, verdict.Reason = "sizing", err.Error()
		return verdict, false
	}
	amount := size.Amount
	verdict.Stake = amount
	slog.Info("kelly sizing", "rationale", size.Rationale)

	// Guard 2: duplicate (before exposure to stop spam)
	dup := b.cfg.Guards.Duplicate(ledger, manager.State(), sig.MarketID, b.now())
	slog.Info("guard duplicate", "pass", dup.OK, "reason", dup.Reason)
	if !dup.OK {
		verdict.Guard, verdict.Reason = "duplicate", dup.Reason
		return verdict, false
	}

	// Guard 3: exposure, with trim-to-headroom before the hard check
	if trimmed, ok := b.cfg.Guards.TrimToHeadroom(ledger, amount, valuation.Total); ok {
		slog.Info("trimming stake to exposure headroom",
			"requested", amount, "trimmed", trimmed)
		amount = trimmed
		verdict.Stake = amount
	}
	exposureAfter := 1.0
	if valuation.Total > 0 {
		exposureAfter = (ledger.TotalInvested() + amount) / valuation.Total
	}
	exp := b.cfg.Guards.Exposure(ledger, amount, valuation.Total)
	slog.Info("guard exposure", "pass", exp.OK, "reason", exp.Reason)
	if !exp.OK {
		verdict.Guard, verdict.Reason = "exposure", exp.Reason
		b.handleExposureBlock(ctx, sig, exp.Reason, exposureAfter, ledger, manager, valuation)
		return verdict, false
	}

	// Guard 4: category cap (always alerts on failure)
	cat := b.cfg.Guards.Category(catExposure, category, amount, valuation.Total)
	slog.Info("guard category", "pass", cat.OK, "reason", cat.Reason)
	if !cat.OK {
		verdict.Guard, verdict.Reason = "category", cat.Reason
		if err := b.notifier.Send(ctx, categoryAlert(sig, category, cat.Reason)); err != nil {
			slog.Warn("category alert failed", "err", err)
		}
		return verdict, false
	}

	// All guards passed — build and send
	msg := buildProposal(proposalInput{
		Signal:        sig,
		Category:      category,
		Amount:        amount,
		Rationale:     size.Rationale,
		ExposureAfter: exposureAfter,
		CatExposure:   catExposure,
		Total:         valuation.Total,
		TTL:           b.cfg.Guards.SentTTL,
	})

	if err := b.notifier.Send(ctx, msg); err != nil {
		slog.Error("proposal send failed — not recording", "err", err)
		verdict.Guard, verdict.Reason = "send", err.Error()
		return verdict, false
	}

	// Mark sent immediately: a crash after this point must not resend
	record := domain.PendingProposal{
		MarketID:      sig.MarketID,
		MarketName:    sig.MarketName,
		Category:      category,
		Tier:          sig.Tier,
		Side:          sig.Side(),
		EntryPrice:    sig.YesPrice,
		Amount:        amount,
		Divergence:    sig.Divergence,
		DaysToResolve: sig.DaysToResolve,
		EndDateISO:    sig.EndDateISO,
	}
	if err := manager.RecordSent(record, b.now()); err != nil {
		slog.Error("failed to persist sent proposal", "err", err)
	}

	verdict.Sent = true
	return verdict, true
}

// handleExposureBlock alerts once per market and records a blocked entry so
// the duplicate guard suppresses repeats for the next 48h.
func (b *Bridge) handleExposureBlock(ctx context.Context, sig domain.Signal, reason string,
	exposureAfter float64, ledger *domain.Ledger, manager *Manager, valuation Valuation) {

	if !manager.AlreadyBlocked(sig.MarketID) {
		deployedPct := 0.0
		if valuation.Total > 0 {
			deployedPct = ledger.TotalInvested() / valuation.Total
		}
		if err := b.notifier.Send(ctx, exposureAlert(sig, reason, exposureAfter, deployedPct)); err != nil {
			slog.Warn("exposure alert failed", "err", err)
		}
	}

	if err := manager.RecordBlocked(sig.MarketID, sig.MarketName, "exposure_guard", b.now()); err != nil {
		slog.Warn("failed to record blocked proposal", "err", err)
	}
}
