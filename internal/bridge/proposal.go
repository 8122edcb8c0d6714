package bridge

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/whalebridge/internal/domain"
)

// proposalInput bundles everything the message builder needs.
type proposalInput struct {
	Signal        domain.Signal
	Category      domain.Category
	Amount        float64
	Rationale     string
	ExposureAfter float64
	CatExposure   map[domain.Category]float64
	Total         float64
	TTL           time.Duration
}

// buildProposal renders the Telegram proposal text. The BRIDGE_TEST_MODE=1
// env var prefixes the header so test traffic is never funded by mistake.
func buildProposal(in proposalInput) string {
	sig := in.Signal

	tierLabel := "Tier 2 — Whale 8-15% divergence"
	if sig.Tier == 1 {
		tierLabel = "Tier 1 — Whale >15% divergence"
	}

	resolveStr := "Date unknown"
	if sig.DaysToResolve > 0 && sig.EndDateISO != "" {
		if endDate, ok := parseEndDate(sig.EndDateISO); ok {
			resolveStr = fmt.Sprintf("%s (%d days)", endDate.Format("Jan 02"), sig.DaysToResolve)
		} else {
			resolveStr = fmt.Sprintf("%d days", sig.DaysToResolve)
		}
	}

	maxROI := 0.0
	if sig.YesPrice > 0 {
		maxROI = math.Round((1.0-sig.YesPrice)/sig.YesPrice*1000) / 10
	}

	// Category split after this trade
	catAfter := make(map[domain.Category]float64, len(in.CatExposure)+1)
	for cat, pct := range in.CatExposure {
		catAfter[cat] = pct
	}
	if in.Total > 0 {
		catAfter[in.Category] += in.Amount / in.Total
	}
	var parts []string
	for _, cat := range domain.AllCategories {
		if catAfter[cat] > 0 {
			parts = append(parts, fmt.Sprintf("%s %.0f%%", cat.Title(), catAfter[cat]*100))
		}
	}
	catLines := strings.Join(parts, " / ")
	if catLines == "" {
		catLines = "First trade"
	}

	header := "PAPER TRADE PROPOSAL"
	if os.Getenv("BRIDGE_TEST_MODE") == "1" {
		header = "[TEST DO NOT FUND] PAPER TRADE PROPOSAL"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", header)
	fmt.Fprintf(&b, "- Market: %s\n", truncate(sig.MarketName, 55))
	fmt.Fprintf(&b, "- Resolves: %s\n", resolveStr)
	fmt.Fprintf(&b, "- Category: %s\n", in.Category.Title())
	fmt.Fprintf(&b, "- Side: %s | Entry: %.3f | Amount: $%.2f virtual\n", sig.Side(), sig.YesPrice, in.Amount)
	fmt.Fprintf(&b, "- Sizing: %s\n", in.Rationale)
	fmt.Fprintf(&b, "- Max ROI if correct: +%.1f%%\n", maxROI)
	fmt.Fprintf(&b, "- Signal: %s\n", tierLabel)
	fmt.Fprintf(&b, "- Whale divergence: %.1f%% | Size: $%.0f\n", sig.Divergence*100, sig.SizeUSD)
	fmt.Fprintf(&b, "- Exposure after trade: %.1f%% (max 40%%)\n", in.ExposureAfter*100)
	fmt.Fprintf(&b, "- Category split: %s\n", catLines)
	fmt.Fprintf(&b, "- Market ID: %s...\n", truncate(sig.MarketID, 20))
	fmt.Fprintf(&b, "\nReply YES to execute paper trade\nReply NO to skip\n(expires in %.0f min)", in.TTL.Minutes())
	return b.String()
}

// exposureAlert renders the one-time exposure-guard alert for a market.
func exposureAlert(sig domain.Signal, reason string, exposureAfter, deployedPct float64) string {
	return fmt.Sprintf(
		"PAPER BRIDGE ALERT\n"+
			"Signal BLOCKED by exposure guard\n"+
			"- Market: %s\n"+
			"- Reason: %s\n"+
			"- Post-trade exposure would be: %.1f%%\n"+
			"- Portfolio currently at %.1f%% deployed",
		truncate(sig.MarketName, 50), reason, exposureAfter*100, deployedPct*100)
}

// categoryAlert renders the category-cap alert.
func categoryAlert(sig domain.Signal, category domain.Category, reason string) string {
	return fmt.Sprintf(
		"PAPER BRIDGE ALERT\n"+
			"Signal BLOCKED by category cap\n"+
			"- Market: %s\n"+
			"- Category: %s\n"+
			"- Reason: %s",
		truncate(sig.MarketName, 50), category.Title(), reason)
}

// parseEndDate tolerates the Gamma date formats seen in the wild.
func parseEndDate(s string) (time.Time, bool) {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
