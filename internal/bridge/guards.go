package bridge

import (
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/whalebridge/internal/domain"
)

// Verdict is the outcome of one guard: pass/block plus the reason string
// that goes into logs and alert messages.
type Verdict struct {
	OK     bool
	Reason string
}

// Guards is the admission chain. All methods are pure functions of their
// inputs — no state, no clock reads, no I/O.
type Guards struct {
	MaxExposurePct float64
	MaxCategoryPct float64
	MinBet         float64
	SentTTL        time.Duration
	BlockedTTL     time.Duration
}

// Tier admits only tier 1 and 2 signals.
func (g Guards) Tier(sig domain.Signal) Verdict {
	if sig.Tier == 1 || sig.Tier == 2 {
		return Verdict{true, fmt.Sprintf("Tier %d — passes", sig.Tier)}
	}
	return Verdict{false, fmt.Sprintf("Tier %d — below threshold (need Tier 1 or 2)", sig.Tier)}
}

// Duplicate blocks markets that already have an open position, a live sent
// proposal, or a recent blocked record. TTLs are exclusive: a proposal aged
// exactly SentTTL no longer blocks.
func (g Guards) Duplicate(ledger *domain.Ledger, pending *domain.PendingState, marketID string, now time.Time) Verdict {
	if ledger.HasOpenPosition(marketID) {
		return Verdict{false, fmt.Sprintf("Already open in %s...", truncate(marketID, 16))}
	}

	for _, prop := range pending.Proposals {
		if prop.MarketID != marketID {
			continue
		}
		if prop.Status != domain.ProposalSent && prop.Status != domain.ProposalBlocked {
			continue
		}
		ttl := g.SentTTL
		if prop.Status == domain.ProposalBlocked {
			ttl = g.BlockedTTL
		}
		if age := prop.Age(now); age < ttl {
			return Verdict{false, fmt.Sprintf("Proposal blocked %.0fmin ago (TTL %.0fmin)",
				age.Minutes(), ttl.Minutes())}
		}
	}
	return Verdict{true, "Market is fresh — no duplicate"}
}

// TrimToHeadroom shrinks the stake to the remaining exposure headroom when
// the full stake would breach the cap but the headroom still fits a minimum
// bet. Returns the (possibly trimmed) amount and whether it was trimmed.
func (g Guards) TrimToHeadroom(ledger *domain.Ledger, amount, totalPortfolio float64) (float64, bool) {
	if totalPortfolio <= 0 {
		return amount, false
	}
	headroom := g.MaxExposurePct*totalPortfolio - ledger.TotalInvested()
	if headroom < amount && headroom >= g.MinBet {
		return round2(headroom), true
	}
	return amount, false
}

// Exposure blocks stakes that would push total deployment past the cap.
// The cap boundary itself passes (≤).
func (g Guards) Exposure(ledger *domain.Ledger, amount, totalPortfolio float64) Verdict {
	newExposure := 1.0
	if totalPortfolio > 0 {
		newExposure = (ledger.TotalInvested() + amount) / totalPortfolio
	}
	if newExposure <= g.MaxExposurePct {
		return Verdict{true, fmt.Sprintf("Exposure after: %.1f%% (max %.0f%%)",
			newExposure*100, g.MaxExposurePct*100)}
	}
	return Verdict{false, fmt.Sprintf("Exposure %.1f%% exceeds %.0f%% max",
		newExposure*100, g.MaxExposurePct*100)}
}

// Category blocks stakes that would put a single category at or above the
// concentration cap. Unlike Exposure, the boundary blocks (strict <).
func (g Guards) Category(catExposure map[domain.Category]float64, category domain.Category, amount, totalPortfolio float64) Verdict {
	current := catExposure[category]
	add := 1.0
	if totalPortfolio > 0 {
		add = amount / totalPortfolio
	}
	newPct := current + add
	if newPct < g.MaxCategoryPct {
		return Verdict{true, fmt.Sprintf("%s → %.1f%% after trade (max %.0f%%)",
			category.Title(), newPct*100, g.MaxCategoryPct*100)}
	}
	return Verdict{false, fmt.Sprintf("%s at %.1f%% — would hit %.1f%%",
		category.Title(), current*100, newPct*100)}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
