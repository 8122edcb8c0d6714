package domain

import "time"

// Market is the slice of a Gamma market the tracker cares about.
type Market struct {
	ID          string
	ConditionID string
	Question    string
	Slug        string
	Volume      float64
	Liquidity   float64
	YesPrice    float64
	EndDate     time.Time
	EndDateISO  string

	// Attached by the resolution filter.
	DaysToResolve int
}

// Key returns the identifier used to query trades: conditionId when present,
// otherwise the numeric Gamma id.
func (m Market) Key() string {
	if m.ConditionID != "" {
		return m.ConditionID
	}
	return m.ID
}

// Trade is one trade from the Data API, already reduced to what the whale
// filter needs.
type Trade struct {
	Wallet    string
	Direction string
	SizeUSD   float64
	Price     float64
}
