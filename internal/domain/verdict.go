package domain

import "time"

// SignalVerdict is the per-signal outcome of one bridge run: either the
// proposal was sent, or the name of the guard that stopped it.
type SignalVerdict struct {
	MarketID   string
	MarketName string
	Tier       int
	Category   Category
	Stake      float64
	Sent       bool
	Guard      string // tier | duplicate | exposure | category, empty when sent
	Reason     string
}

// BridgeRun summarizes one bridge invocation for the history archive.
type BridgeRun struct {
	StartedAt      time.Time
	SignalsIn      int
	ProposalsSent  int
	PortfolioTotal float64
	StalePrices    int
	DryRun         bool
}
