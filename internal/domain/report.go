package domain

// StatusRow is one open position with its live mark for the status command.
// Stale is set when the live price could not be fetched and the invested
// amount is used as the mark instead.
type StatusRow struct {
	Position     Position
	LivePrice    float64
	CurrentValue float64
	PnL          float64
	PnLPct       float64
	Stale        bool
}

// StatusReport is the full output of the status command.
type StatusReport struct {
	Balance         float64
	StartingBalance float64
	TotalTrades     int
	Rows            []StatusRow
	TotalInvested   float64
	TotalValue      float64
}

// PortfolioPnL returns the unrealized P&L over the open book.
func (r StatusReport) PortfolioPnL() (pnl, pct float64) {
	pnl = r.TotalValue - r.TotalInvested
	if r.TotalInvested > 0 {
		pct = pnl / r.TotalInvested * 100
	}
	return pnl, pct
}

// TierStats aggregates resolved positions per signal tier.
type TierStats struct {
	Tier   int
	Trades int
	Wins   int
	Losses int
	PnL    float64
}

// WinRate returns the tier's win percentage.
func (t TierStats) WinRate() float64 {
	total := t.Wins + t.Losses
	if total == 0 {
		return 0
	}
	return round1(float64(t.Wins) / float64(total) * 100)
}

// GoLiveThresholds are the gates the paper account must clear before real
// money is on the table.
type GoLiveThresholds struct {
	MinResolved int
	MinWinRate  float64
	MinAvgROI   float64
	MinYesRate  float64
}

// DefaultGoLive matches the reference deployment gates.
var DefaultGoLive = GoLiveThresholds{
	MinResolved: 10,
	MinWinRate:  60.0,
	MinAvgROI:   10.0,
	MinYesRate:  50.0,
}

// Check is one scorecard line.
type Check struct {
	Label  string
	Passed bool
	Value  string
}

// Report is the full output of the report command.
type Report struct {
	Meta      LedgerMeta
	Stats     LedgerStats
	Proposals ProposalCounts
	Growth    float64
	GrowthPct float64
	Resolved  int
	YesRate   float64
	Tiers     []TierStats
	Checks    []Check
	AllGreen  bool
}
