package notify

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/whalebridge/internal/domain"
)

// Console echoes notifications to stdout. Used as the dry-run channel and
// as the renderer for the paper engine's status and report commands.
type Console struct {
	out io.Writer
}

// NewConsole creates a Console writing to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a Console writing to the given writer (tests).
func NewConsoleWriter(out io.Writer) *Console {
	return &Console{out: out}
}

// Send prints the message framed so it is obvious nothing left the machine.
func (c *Console) Send(_ context.Context, text string) error {
	fmt.Fprintln(c.out, "\n--- TELEGRAM PROPOSAL (dry run) ---")
	fmt.Fprintln(c.out, text)
	fmt.Fprintln(c.out, "-----------------------------------")
	return nil
}

// PrintStatus renders open positions with their live marks.
func (c *Console) PrintStatus(report domain.StatusReport) {
	fmt.Fprintf(c.out, "\n[PAPER TRADING STATUS]\n")
	fmt.Fprintf(c.out, "  Virtual Balance  : $%.2f\n", report.Balance)
	fmt.Fprintf(c.out, "  Starting Balance : $%.2f\n", report.StartingBalance)
	fmt.Fprintf(c.out, "  Open Positions   : %d\n", len(report.Rows))
	fmt.Fprintf(c.out, "  Total Trades     : %d\n\n", report.TotalTrades)

	if len(report.Rows) == 0 {
		fmt.Fprintln(c.out, "  No open positions.")
		return
	}

	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("ID", "Market", "Side", "Invested", "Entry", "Live", "P&L", "Tier")
	for _, row := range report.Rows {
		live := "N/A"
		pnl := "N/A"
		if !row.Stale {
			live = fmt.Sprintf("%.4f", row.LivePrice)
			pnl = fmt.Sprintf("$%+.2f (%+.1f%%)", row.PnL, row.PnLPct)
		}
		name := row.Position.MarketName
		if len(name) > 40 {
			name = name[:40]
		}
		tbl.Append(
			row.Position.ID,
			name,
			string(row.Position.Side),
			fmt.Sprintf("$%.2f", row.Position.VirtualAmount),
			fmt.Sprintf("%.4f", row.Position.EntryPrice),
			live,
			pnl,
			fmt.Sprintf("%d", row.Position.SignalTier),
		)
	}
	tbl.Render()

	pnl, pct := report.PortfolioPnL()
	fmt.Fprintf(c.out, "\n  Portfolio P&L : $%+.2f (%+.1f%%)\n", pnl, pct)
}

// PrintReport renders the performance report plus the go-live scorecard.
func (c *Console) PrintReport(report domain.Report) {
	fmt.Fprintf(c.out, "\n[PAPER TRADING REPORT]\n")
	fmt.Fprintf(c.out, "  =========================================\n")
	fmt.Fprintf(c.out, "  Starting Balance  : $%.2f\n", report.Meta.StartingBalance)
	fmt.Fprintf(c.out, "  Current Balance   : $%.2f\n", report.Meta.VirtualBalance)
	fmt.Fprintf(c.out, "  Total Growth      : $%+.2f (%+.1f%%)\n", report.Growth, report.GrowthPct)
	fmt.Fprintf(c.out, "  -----------------------------------------\n")
	fmt.Fprintf(c.out, "  Total Trades      : %d\n", report.Stats.TotalTrades)
	fmt.Fprintf(c.out, "  Resolved          : %d  (Win: %d  Loss: %d)\n",
		report.Resolved, report.Stats.Wins, report.Stats.Losses)
	fmt.Fprintf(c.out, "  Win Rate          : %.1f%%\n", report.Stats.WinRate)
	fmt.Fprintf(c.out, "  Avg ROI / Trade   : %.2f%%\n", report.Stats.AvgROI)
	fmt.Fprintf(c.out, "  Total P&L         : $%+.2f\n", report.Stats.TotalPnL)
	fmt.Fprintf(c.out, "  Proposals (YES %%) : %d/%d  (%.1f%%)\n",
		report.Proposals.Approved, report.Proposals.Total, report.YesRate)
	fmt.Fprintf(c.out, "  =========================================\n")

	if len(report.Tiers) > 0 {
		fmt.Fprintf(c.out, "\n  [Signal Tier Breakdown]\n")
		tbl := tablewriter.NewWriter(c.out)
		tbl.Header("Tier", "Trades", "Win %", "P&L")
		for _, tier := range report.Tiers {
			tbl.Append(
				fmt.Sprintf("%d", tier.Tier),
				fmt.Sprintf("%d", tier.Trades),
				fmt.Sprintf("%.1f%%", tier.WinRate()),
				fmt.Sprintf("$%+.2f", tier.PnL),
			)
		}
		tbl.Render()
	}

	fmt.Fprintf(c.out, "\n  [GO-LIVE SCORECARD]\n")
	for _, check := range report.Checks {
		icon := "[PASS]"
		if !check.Passed {
			icon = "[FAIL]"
		}
		fmt.Fprintf(c.out, "  %s %s: %s\n", icon, check.Label, check.Value)
	}

	verdict := "Keep paper trading — not ready yet"
	if report.AllGreen {
		verdict = "READY FOR BIGGER REAL BETS"
	}
	fmt.Fprintf(c.out, "\n  => %s\n\n", verdict)
}
