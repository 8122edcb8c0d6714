package domain

import "time"

// Position is a virtual stake in one market outcome.
// Resolved positions carry the settlement fields, open ones don't.
type Position struct {
	ID              string    `json:"id"`
	MarketID        string    `json:"market_id"`
	MarketName      string    `json:"market_name"`
	Category        Category  `json:"category"`
	Side            Side      `json:"side"`
	VirtualAmount   float64   `json:"virtual_amount"`
	EntryPrice      float64   `json:"entry_price"`
	Shares          float64   `json:"shares"`
	SignalTier      int       `json:"signal_tier"`
	WhaleDivergence *float64  `json:"whale_divergence"`
	ExecutedAt      time.Time `json:"executed_at"`
	Paper           bool      `json:"paper"`

	ExitPrice   float64    `json:"exit_price,omitempty"`
	ExitValue   float64    `json:"exit_value,omitempty"`
	RealizedPnL float64    `json:"realized_pnl,omitempty"`
	ROIPct      float64    `json:"roi_pct,omitempty"`
	Outcome     Outcome    `json:"outcome,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// LedgerMeta holds the account-level numbers.
type LedgerMeta struct {
	VirtualBalance  float64   `json:"virtual_balance"`
	StartingBalance float64   `json:"starting_balance"`
	Created         time.Time `json:"created"`
	LastUpdated     time.Time `json:"last_updated"`
	Version         string    `json:"version"`
}

// ProposalCounts tracks how many proposals were made and approved.
type ProposalCounts struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
}

// LedgerStats is the running performance summary.
type LedgerStats struct {
	TotalTrades int     `json:"total_trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	TotalPnL    float64 `json:"total_pnl"`
	WinRate     float64 `json:"win_rate"`
	AvgROI      float64 `json:"avg_roi"`
}

// Ledger is the whole paper trading account. One owner, one file.
type Ledger struct {
	Meta              LedgerMeta     `json:"meta"`
	OpenPositions     []Position     `json:"open_positions"`
	ResolvedPositions []Position     `json:"resolved_positions"`
	Proposals         ProposalCounts `json:"proposals"`
	Stats             LedgerStats    `json:"stats"`
}

// NewLedger creates a fresh ledger with the given virtual bankroll.
func NewLedger(startingBalance float64, now time.Time) *Ledger {
	return &Ledger{
		Meta: LedgerMeta{
			VirtualBalance:  startingBalance,
			StartingBalance: startingBalance,
			Created:         now,
			LastUpdated:     now,
			Version:         "1.0",
		},
		OpenPositions:     []Position{},
		ResolvedPositions: []Position{},
	}
}

// TotalInvested sums the virtual amount across open positions.
func (l *Ledger) TotalInvested() float64 {
	var total float64
	for _, p := range l.OpenPositions {
		total += p.VirtualAmount
	}
	return total
}

// HasOpenPosition reports whether any open position is in the given market.
func (l *Ledger) HasOpenPosition(marketID string) bool {
	for _, p := range l.OpenPositions {
		if p.MarketID == marketID {
			return true
		}
	}
	return false
}

// FindOpen returns the index of the open position with the given id, or -1.
func (l *Ledger) FindOpen(positionID string) int {
	for i, p := range l.OpenPositions {
		if p.ID == positionID {
			return i
		}
	}
	return -1
}

// CategoryExposure returns each category's share of the total portfolio,
// over open positions only, rounded to 4 decimals.
func (l *Ledger) CategoryExposure(totalPortfolio float64) map[Category]float64 {
	if totalPortfolio <= 0 {
		return map[Category]float64{}
	}
	invested := map[Category]float64{}
	for _, p := range l.OpenPositions {
		cat := p.Category
		if cat == "" {
			cat = CategoryOther
		}
		invested[cat] += p.VirtualAmount
	}
	exposure := make(map[Category]float64, len(invested))
	for cat, amt := range invested {
		exposure[cat] = round4(amt / totalPortfolio)
	}
	return exposure
}

// RecalcStats recomputes win rate and average ROI from resolved positions.
// Win rate is rounded to 1 decimal, avg ROI to 2, matching the ledger file.
func (l *Ledger) RecalcStats() {
	resolved := l.Stats.Wins + l.Stats.Losses
	if resolved > 0 {
		l.Stats.WinRate = round1(float64(l.Stats.Wins) / float64(resolved) * 100)
	} else {
		l.Stats.WinRate = 0
	}

	if len(l.ResolvedPositions) > 0 {
		var sum float64
		for _, p := range l.ResolvedPositions {
			sum += p.ROIPct
		}
		l.Stats.AvgROI = round2(sum / float64(len(l.ResolvedPositions)))
	} else {
		l.Stats.AvgROI = 0
	}
}
