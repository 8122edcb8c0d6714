// Package engine implements the paper trading account: open virtual
// positions against whale signals, settle them on market resolution and
// grade the account against the go-live scorecard.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/whalebridge/internal/domain"
	"github.com/alejandrodnm/whalebridge/internal/ports"
)

// duplicateWindow guards against double-submitting the same trade, e.g.
// replying YES twice to one Telegram proposal.
const duplicateWindow = 60 * time.Second

// Config holds the account parameters.
type Config struct {
	StartingBalance float64
	MaxBet          float64
	MaxExposurePct  float64
}

// Engine executes paper trades against the flat-file ledger.
type Engine struct {
	cfg     Config
	ledgers ports.LedgerStore
	prices  ports.PriceProvider
	now     func() time.Time
}

// New creates an Engine. prices may be nil for commands that never mark
// to market (init, buy, resolve, report).
func New(cfg Config, ledgers ports.LedgerStore, prices ports.PriceProvider) *Engine {
	return &Engine{
		cfg:     cfg,
		ledgers: ledgers,
		prices:  prices,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Init creates a fresh ledger. An existing ledger is never overwritten
// unless force is set.
func (e *Engine) Init(force bool) (*domain.Ledger, error) {
	if e.ledgers.Exists() && !force {
		return nil, fmt.Errorf("engine.Init: %w (use force to start over)", domain.ErrLedgerExists)
	}
	ledger := domain.NewLedger(e.cfg.StartingBalance, e.now())
	if err := e.ledgers.Save(ledger); err != nil {
		return nil, fmt.Errorf("engine.Init: %w", err)
	}
	slog.Info("ledger initialized", "starting_balance", e.cfg.StartingBalance)
	return ledger, nil
}

// BuyInput is one approved proposal ready for execution.
type BuyInput struct {
	MarketID   string
	MarketName string
	Side       string
	Amount     float64
	EntryPrice float64
	Category   string // empty means detect from the market name
	Tier       int
	Divergence *float64
}

// Buy opens a virtual position. Soft limits (max bet, exposure cap) come
// back as warnings rather than errors: the human already approved the
// trade, the engine just flags it.
func (e *Engine) Buy(in BuyInput) (*domain.Position, []string, error) {
	side, err := domain.NormalizeSide(in.Side)
	if err != nil {
		return nil, nil, fmt.Errorf("engine.Buy: %w", err)
	}
	if in.Amount <= 0 || in.EntryPrice <= 0 || in.EntryPrice >= 1 {
		return nil, nil, fmt.Errorf("engine.Buy: amount %.2f at price %.3f: %w",
			in.Amount, in.EntryPrice, domain.ErrInvalidSignal)
	}

	ledger, err := e.ledgers.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("engine.Buy: %w", err)
	}

	if ledger.Meta.VirtualBalance < in.Amount {
		return nil, nil, fmt.Errorf("engine.Buy: balance $%.2f, need $%.2f: %w",
			ledger.Meta.VirtualBalance, in.Amount, domain.ErrInsufficientBalance)
	}

	now := e.now()
	for _, p := range ledger.OpenPositions {
		if p.MarketID == in.MarketID && p.Side == side && now.Sub(p.ExecutedAt) < duplicateWindow {
			return nil, nil, fmt.Errorf("engine.Buy: same trade executed %.0fs ago: %w",
				now.Sub(p.ExecutedAt).Seconds(), domain.ErrDuplicateTrade)
		}
	}

	var warnings []string
	if in.Amount > e.cfg.MaxBet {
		warnings = append(warnings, fmt.Sprintf("amount $%.2f exceeds max bet $%.2f", in.Amount, e.cfg.MaxBet))
	}
	portfolio := ledger.Meta.VirtualBalance + ledger.TotalInvested()
	if portfolio > 0 {
		exposureAfter := (ledger.TotalInvested() + in.Amount) / portfolio
		if exposureAfter > e.cfg.MaxExposurePct {
			warnings = append(warnings, fmt.Sprintf("exposure after trade %.1f%% exceeds cap %.0f%%",
				exposureAfter*100, e.cfg.MaxExposurePct*100))
		}
	}

	category := domain.Category(in.Category)
	if category == "" {
		category = domain.DetectCategory(in.MarketName)
	}

	amount := decimal.NewFromFloat(in.Amount)
	entry := decimal.NewFromFloat(in.EntryPrice)
	shares := amount.Div(entry).Round(6)

	pos := domain.Position{
		ID:              uuid.New().String()[:8],
		MarketID:        in.MarketID,
		MarketName:      in.MarketName,
		Category:        category,
		Side:            side,
		VirtualAmount:   in.Amount,
		EntryPrice:      in.EntryPrice,
		Shares:          shares.InexactFloat64(),
		SignalTier:      in.Tier,
		WhaleDivergence: in.Divergence,
		ExecutedAt:      now,
		Paper:           true,
	}

	balance := decimal.NewFromFloat(ledger.Meta.VirtualBalance).Sub(amount).Round(6)
	ledger.Meta.VirtualBalance = balance.InexactFloat64()
	ledger.Meta.LastUpdated = now
	ledger.OpenPositions = append(ledger.OpenPositions, pos)
	ledger.Stats.TotalTrades++
	ledger.Proposals.Total++
	ledger.Proposals.Approved++

	if err := e.ledgers.Save(ledger); err != nil {
		return nil, warnings, fmt.Errorf("engine.Buy: %w", err)
	}
	slog.Info("position opened",
		"id", pos.ID,
		"market", pos.MarketName,
		"side", pos.Side,
		"amount", pos.VirtualAmount,
		"shares", pos.Shares,
		"balance", ledger.Meta.VirtualBalance,
	)
	return &pos, warnings, nil
}

// Resolve settles an open position as WIN or LOSS. Winning shares pay
// out at $1.00 each, losing shares at $0.00.
func (e *Engine) Resolve(positionID, outcomeStr string) (*domain.Position, error) {
	outcome, err := domain.ParseOutcome(outcomeStr)
	if err != nil {
		return nil, fmt.Errorf("engine.Resolve: %w", err)
	}
	exit := 0.0
	if outcome == domain.OutcomeWin {
		exit = 1.0
	}
	return e.ResolveAt(positionID, outcomeStr, exit)
}

// ResolveAt settles at an explicit exit price, for markets that pay out
// partially instead of the usual 0/1 settlement.
func (e *Engine) ResolveAt(positionID, outcomeStr string, exit float64) (*domain.Position, error) {
	outcome, err := domain.ParseOutcome(outcomeStr)
	if err != nil {
		return nil, fmt.Errorf("engine.Resolve: %w", err)
	}
	if exit < 0 || exit > 1 {
		return nil, fmt.Errorf("engine.Resolve: exit price %.4f out of [0,1]: %w",
			exit, domain.ErrInvalidSignal)
	}

	ledger, err := e.ledgers.Load()
	if err != nil {
		return nil, fmt.Errorf("engine.Resolve: %w", err)
	}

	idx := ledger.FindOpen(positionID)
	if idx < 0 {
		return nil, fmt.Errorf("engine.Resolve: position %q: %w", positionID, domain.ErrPositionNotFound)
	}
	pos := ledger.OpenPositions[idx]

	exitPrice := decimal.NewFromFloat(exit)
	shares := decimal.NewFromFloat(pos.Shares)
	invested := decimal.NewFromFloat(pos.VirtualAmount)
	exitValue := shares.Mul(exitPrice).Round(6)
	pnl := exitValue.Sub(invested).Round(6)
	roi := decimal.Zero
	if !invested.IsZero() {
		roi = pnl.Div(invested).Mul(decimal.NewFromInt(100)).Round(2)
	}

	now := e.now()
	pos.ExitPrice = exitPrice.InexactFloat64()
	pos.ExitValue = exitValue.InexactFloat64()
	pos.RealizedPnL = pnl.InexactFloat64()
	pos.ROIPct = roi.InexactFloat64()
	pos.Outcome = outcome
	pos.ResolvedAt = &now

	ledger.OpenPositions = append(ledger.OpenPositions[:idx], ledger.OpenPositions[idx+1:]...)
	ledger.ResolvedPositions = append(ledger.ResolvedPositions, pos)

	balance := decimal.NewFromFloat(ledger.Meta.VirtualBalance).Add(exitValue).Round(6)
	ledger.Meta.VirtualBalance = balance.InexactFloat64()
	ledger.Meta.LastUpdated = now

	totalPnL := decimal.NewFromFloat(ledger.Stats.TotalPnL).Add(pnl).Round(6)
	ledger.Stats.TotalPnL = totalPnL.InexactFloat64()
	if outcome == domain.OutcomeWin {
		ledger.Stats.Wins++
	} else {
		ledger.Stats.Losses++
	}
	ledger.RecalcStats()

	if err := e.ledgers.Save(ledger); err != nil {
		return nil, fmt.Errorf("engine.Resolve: %w", err)
	}
	slog.Info("position resolved",
		"id", pos.ID,
		"outcome", pos.Outcome,
		"pnl", pos.RealizedPnL,
		"roi_pct", pos.ROIPct,
		"balance", ledger.Meta.VirtualBalance,
	)
	return &pos, nil
}

// Status marks every open position to its live price. Markets whose price
// cannot be fetched fall back to the invested amount and are flagged stale.
func (e *Engine) Status(ctx context.Context) (*domain.StatusReport, error) {
	ledger, err := e.ledgers.Load()
	if err != nil {
		return nil, fmt.Errorf("engine.Status: %w", err)
	}

	report := &domain.StatusReport{
		Balance:         ledger.Meta.VirtualBalance,
		StartingBalance: ledger.Meta.StartingBalance,
		TotalTrades:     ledger.Stats.TotalTrades,
	}

	for _, pos := range ledger.OpenPositions {
		row := domain.StatusRow{Position: pos}

		if e.prices != nil {
			if price, perr := e.prices.Price(ctx, pos.MarketID, pos.Side); perr == nil {
				row.LivePrice = price
				value := decimal.NewFromFloat(pos.Shares).Mul(decimal.NewFromFloat(price)).Round(4)
				row.CurrentValue = value.InexactFloat64()
			} else {
				slog.Warn("live price unavailable, marking at cost",
					"market_id", pos.MarketID, "err", perr)
				row.Stale = true
				row.CurrentValue = pos.VirtualAmount
			}
		} else {
			row.Stale = true
			row.CurrentValue = pos.VirtualAmount
		}

		pnl := decimal.NewFromFloat(row.CurrentValue).Sub(decimal.NewFromFloat(pos.VirtualAmount)).Round(4)
		row.PnL = pnl.InexactFloat64()
		if pos.VirtualAmount > 0 {
			pct := pnl.Div(decimal.NewFromFloat(pos.VirtualAmount)).Mul(decimal.NewFromInt(100)).Round(2)
			row.PnLPct = pct.InexactFloat64()
		}

		report.Rows = append(report.Rows, row)
		report.TotalInvested += pos.VirtualAmount
		report.TotalValue += row.CurrentValue
	}
	return report, nil
}

// Report grades the account against the go-live thresholds.
func (e *Engine) Report() (*domain.Report, error) {
	ledger, err := e.ledgers.Load()
	if err != nil {
		return nil, fmt.Errorf("engine.Report: %w", err)
	}

	report := &domain.Report{
		Meta:      ledger.Meta,
		Stats:     ledger.Stats,
		Proposals: ledger.Proposals,
		Resolved:  len(ledger.ResolvedPositions),
	}

	current := ledger.Meta.VirtualBalance + ledger.TotalInvested()
	report.Growth = current - ledger.Meta.StartingBalance
	if ledger.Meta.StartingBalance > 0 {
		report.GrowthPct = report.Growth / ledger.Meta.StartingBalance * 100
	}
	if ledger.Proposals.Total > 0 {
		report.YesRate = float64(ledger.Proposals.Approved) / float64(ledger.Proposals.Total) * 100
	}

	byTier := map[int]*domain.TierStats{}
	for _, pos := range ledger.ResolvedPositions {
		ts, ok := byTier[pos.SignalTier]
		if !ok {
			ts = &domain.TierStats{Tier: pos.SignalTier}
			byTier[pos.SignalTier] = ts
		}
		ts.Trades++
		if pos.Outcome == domain.OutcomeWin {
			ts.Wins++
		} else {
			ts.Losses++
		}
		ts.PnL += pos.RealizedPnL
	}
	for _, ts := range byTier {
		report.Tiers = append(report.Tiers, *ts)
	}
	sort.Slice(report.Tiers, func(i, j int) bool { return report.Tiers[i].Tier < report.Tiers[j].Tier })

	gates := domain.DefaultGoLive
	report.Checks = []domain.Check{
		{
			Label:  fmt.Sprintf("Resolved trades >= %d", gates.MinResolved),
			Passed: report.Resolved >= gates.MinResolved,
			Value:  fmt.Sprintf("%d", report.Resolved),
		},
		{
			Label:  fmt.Sprintf("Win rate >= %.0f%%", gates.MinWinRate),
			Passed: ledger.Stats.WinRate >= gates.MinWinRate,
			Value:  fmt.Sprintf("%.1f%%", ledger.Stats.WinRate),
		},
		{
			Label:  fmt.Sprintf("Avg ROI >= %.0f%%", gates.MinAvgROI),
			Passed: ledger.Stats.AvgROI >= gates.MinAvgROI,
			Value:  fmt.Sprintf("%.2f%%", ledger.Stats.AvgROI),
		},
		{
			Label:  fmt.Sprintf("YES rate >= %.0f%%", gates.MinYesRate),
			Passed: report.YesRate >= gates.MinYesRate,
			Value:  fmt.Sprintf("%.1f%%", report.YesRate),
		},
	}
	report.AllGreen = true
	for _, c := range report.Checks {
		if !c.Passed {
			report.AllGreen = false
			break
		}
	}
	return report, nil
}
