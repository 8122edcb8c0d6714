// Package health runs the periodic self-diagnosis: is the tracker still
// scanning, how does the paper book look and is the bridge spamming the
// same proposal over and over.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/whalebridge/internal/ports"
)

// maxScanAge flags the tracker as overdue. Scans run every 2 hours; 130
// minutes leaves slack for one slow run.
const maxScanAge = 130 * time.Minute

// repeatWindow is how recent the latest duplicate proposal must be to
// count as active spam rather than stale history.
const repeatWindow = 130 * time.Minute

// CheckResult is one diagnosis line.
type CheckResult struct {
	Name    string
	OK      bool
	Message string
}

// Checker assembles the health report from the bot's data files.
type Checker struct {
	signals ports.SignalStore
	ledgers ports.LedgerStore
	pending ports.PendingStore
	now     func() time.Time
}

// New creates a Checker.
func New(signals ports.SignalStore, ledgers ports.LedgerStore, pending ports.PendingStore) *Checker {
	return &Checker{
		signals: signals,
		ledgers: ledgers,
		pending: pending,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run executes all checks and returns them with an overall verdict.
func (c *Checker) Run() ([]CheckResult, bool) {
	checks := []CheckResult{
		c.checkLastScan(),
		c.checkPortfolio(),
		c.checkRepeatProposals(),
	}
	allOK := true
	for _, check := range checks {
		if !check.OK {
			allOK = false
		}
	}
	return checks, allOK
}

// Report renders the checks and delivers them through the notifier.
func (c *Checker) Report(ctx context.Context, notifier ports.Notifier) error {
	checks, allOK := c.Run()

	status := "ALL SYSTEMS OK"
	if !allOK {
		status = "ISSUES DETECTED"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "WHALEBRIDGE HEALTH CHECK - %s\n", c.now().Format("Jan 02 15:04 UTC"))
	fmt.Fprintf(&b, "%s\n", status)
	b.WriteString("---------------------\n")
	for _, check := range checks {
		fmt.Fprintf(&b, "- %s\n", check.Message)
	}
	if !allOK {
		b.WriteString("---------------------\n")
		b.WriteString("Action may be required")
	}

	report := strings.TrimRight(b.String(), "\n")
	slog.Info("health check complete", "all_ok", allOK)
	if err := notifier.Send(ctx, report); err != nil {
		return fmt.Errorf("health.Report: %w", err)
	}
	return nil
}

// checkLastScan verifies the tracker produced signals recently.
func (c *Checker) checkLastScan() CheckResult {
	result := CheckResult{Name: "last_scan"}

	scan, err := c.signals.LoadScan()
	if err != nil {
		result.Message = fmt.Sprintf("Cannot read signals file: %v", err)
		return result
	}

	age := c.now().Sub(scan.ScannedAt)
	mins := int(age.Minutes())
	if age < maxScanAge {
		result.OK = true
		result.Message = fmt.Sprintf("Last scan: %dmin ago", mins)
	} else {
		result.Message = fmt.Sprintf("Last scan: %dmin ago (OVERDUE)", mins)
	}
	return result
}

// checkPortfolio summarises the paper account.
func (c *Checker) checkPortfolio() CheckResult {
	result := CheckResult{Name: "portfolio"}

	ledger, err := c.ledgers.Load()
	if err != nil {
		result.Message = fmt.Sprintf("Cannot read ledger: %v", err)
		return result
	}

	pnlPct := 0.0
	if ledger.Meta.StartingBalance > 0 {
		pnlPct = (ledger.Meta.VirtualBalance - ledger.Meta.StartingBalance) /
			ledger.Meta.StartingBalance * 100
	}
	result.OK = true
	result.Message = fmt.Sprintf("Balance: $%.2f | Positions: %d | P&L: %+.1f%%",
		ledger.Meta.VirtualBalance, len(ledger.OpenPositions), pnlPct)
	return result
}

// checkRepeatProposals flags a market that keeps re-proposing: more than
// one pending record for the same market with the latest inside the window
// means the duplicate guard is not holding.
func (c *Checker) checkRepeatProposals() CheckResult {
	result := CheckResult{Name: "repeat_proposals"}

	state, err := c.pending.Load()
	if err != nil {
		result.Message = fmt.Sprintf("Cannot read pending proposals: %v", err)
		return result
	}

	latest := map[string]time.Time{}
	counts := map[string]int{}
	names := map[string]string{}
	for _, p := range state.Proposals {
		counts[p.MarketID]++
		if p.SentAt.After(latest[p.MarketID]) {
			latest[p.MarketID] = p.SentAt
		}
		names[p.MarketID] = p.MarketName
	}

	now := c.now()
	for marketID, count := range counts {
		if count <= 1 {
			continue
		}
		age := now.Sub(latest[marketID])
		if age < repeatWindow {
			result.Message = fmt.Sprintf("Repeat proposal ACTIVE - %q fired %dmin ago (%d records)",
				truncate(names[marketID], 40), int(age.Minutes()), count)
			return result
		}
	}

	result.OK = true
	result.Message = "No proposal spam detected"
	return result
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
