package bridge

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/whalebridge/internal/domain"
	"github.com/alejandrodnm/whalebridge/internal/ports"
)

// Valuation is the portfolio snapshot a bridge run prices against.
// Stale counts open positions whose live price could not be fetched and
// were marked at their invested amount instead — callers surface it so a
// soft-failed valuation is never mistaken for a fresh one.
type Valuation struct {
	Cash      float64
	OpenValue float64
	Total     float64
	Stale     int
}

// Valuer marks the open book against live prices.
type Valuer struct {
	prices ports.PriceProvider
}

// NewValuer creates a Valuer on the given price source.
func NewValuer(prices ports.PriceProvider) *Valuer {
	return &Valuer{prices: prices}
}

// PortfolioValue returns cash, open-position value and their sum.
// Price failures fall back to the position's invested amount and bump Stale.
func (v *Valuer) PortfolioValue(ctx context.Context, ledger *domain.Ledger) Valuation {
	val := Valuation{Cash: ledger.Meta.VirtualBalance}

	for _, pos := range ledger.OpenPositions {
		live, err := v.prices.Price(ctx, pos.MarketID, pos.Side)
		if err != nil {
			slog.Warn("live price unavailable, marking at cost",
				"market_id", pos.MarketID, "err", err)
			val.OpenValue += pos.VirtualAmount
			val.Stale++
			continue
		}
		val.OpenValue += pos.Shares * live
	}

	val.Total = val.Cash + val.OpenValue
	return val
}
