package domain

import "time"

// ProposalStatus is the lifecycle of an entry in the pending file.
type ProposalStatus string

const (
	ProposalSent    ProposalStatus = "sent"
	ProposalBlocked ProposalStatus = "blocked"
)

// PendingProposal is one record in the pending proposals file. Sent records
// carry the full trade parameters; blocked records only enough to suppress
// repeat alerts for the same market.
type PendingProposal struct {
	MarketID      string         `json:"market_id"`
	MarketName    string         `json:"market_name"`
	Category      Category       `json:"category,omitempty"`
	Tier          int            `json:"tier,omitempty"`
	Side          Side           `json:"side,omitempty"`
	EntryPrice    float64        `json:"entry_price,omitempty"`
	Amount        float64        `json:"amount,omitempty"`
	Divergence    float64        `json:"divergence,omitempty"`
	DaysToResolve int            `json:"days_to_resolve,omitempty"`
	EndDateISO    string         `json:"end_date_iso,omitempty"`
	Status        ProposalStatus `json:"status"`
	BlockReason   string         `json:"block_reason,omitempty"`
	SentAt        time.Time      `json:"sent_at"`
}

// Age returns how long ago the proposal was recorded.
func (p PendingProposal) Age(now time.Time) time.Duration {
	return now.Sub(p.SentAt)
}

// DailyStats is the per-UTC-day proposal counter. A date mismatch with the
// current day means the counter implicitly reads as zero.
type DailyStats struct {
	Date          string `json:"date"`
	ProposalsSent int    `json:"proposals_sent"`
}

// PendingState is the pending proposals file: records plus the daily counter.
type PendingState struct {
	Proposals []PendingProposal `json:"proposals"`
	Daily     DailyStats        `json:"daily_stats"`
}

// NewPendingState returns an empty state.
func NewPendingState() *PendingState {
	return &PendingState{Proposals: []PendingProposal{}}
}

// UTCDay formats a timestamp as the daily-cap date key.
func UTCDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// SentToday returns the proposal count for the given moment's UTC day.
// A stored date from another day counts as zero without mutating state.
func (s *PendingState) SentToday(now time.Time) int {
	if s.Daily.Date != UTCDay(now) {
		return 0
	}
	return s.Daily.ProposalsSent
}

// IncrementDaily bumps today's counter, resetting first if the day rolled over.
func (s *PendingState) IncrementDaily(now time.Time) {
	today := UTCDay(now)
	if s.Daily.Date != today {
		s.Daily = DailyStats{Date: today}
	}
	s.Daily.ProposalsSent++
}

// HasBlocked reports whether the market already has a blocked record.
func (s *PendingState) HasBlocked(marketID string) bool {
	for _, p := range s.Proposals {
		if p.MarketID == marketID && p.Status == ProposalBlocked {
			return true
		}
	}
	return false
}
