package domain

import (
	"fmt"
	"strings"
	"time"
)

// Side is the outcome a position is long on.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// NormalizeSide maps whale trade directions onto position sides.
// BUY means the whale backed YES, SELL means it backed NO.
func NormalizeSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "YES":
		return SideYes, nil
	case "SELL", "NO":
		return SideNo, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
}

// Outcome is the settlement result of a resolved position.
type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
)

// ParseOutcome validates a WIN/LOSS string.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WIN":
		return OutcomeWin, nil
	case "LOSS":
		return OutcomeLoss, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
}

// Signal is one whale divergence signal produced by the tracker scan.
type Signal struct {
	MarketID      string    `json:"market_id"`
	MarketName    string    `json:"market_name"`
	MarketSlug    string    `json:"market_slug,omitempty"`
	YesPrice      float64   `json:"yes_price"`
	Tier          int       `json:"tier"`
	Divergence    float64   `json:"divergence"`
	WhaleProb     float64   `json:"whale_prob"`
	MarketProb    float64   `json:"market_prob"`
	Direction     string    `json:"direction"`
	SizeUSD       float64   `json:"size_usd"`
	Wallet        string    `json:"wallet"`
	EndDateISO    string    `json:"end_date_iso"`
	DaysToResolve int       `json:"days_to_resolve"`
	ScannedAt     time.Time `json:"scanned_at"`
}

// Validate rejects signals whose probabilities are out of bounds.
// A signal that fails here is a producer bug, not a guard rejection.
func (s Signal) Validate() error {
	if s.MarketID == "" {
		return fmt.Errorf("%w: empty market_id", ErrInvalidSignal)
	}
	if s.MarketProb < 0 || s.MarketProb > 1 {
		return fmt.Errorf("%w: market_prob %.4f out of [0,1]", ErrInvalidSignal, s.MarketProb)
	}
	if s.Divergence < 0 || s.Divergence > 1 {
		return fmt.Errorf("%w: divergence %.4f out of [0,1]", ErrInvalidSignal, s.Divergence)
	}
	return nil
}

// Side resolves the signal direction into a position side.
func (s Signal) Side() Side {
	side, err := NormalizeSide(s.Direction)
	if err != nil {
		return SideNo
	}
	return side
}

// ScanResult is the envelope the tracker writes and the bridge consumes.
type ScanResult struct {
	ScannedAt      time.Time `json:"scanned_at"`
	SignalsCount   int       `json:"signals_count"`
	MarketsScanned int       `json:"markets_scanned"`
	Signals        []Signal  `json:"signals"`
}
