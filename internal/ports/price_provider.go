package ports

import (
	"context"

	"github.com/alejandrodnm/whalebridge/internal/domain"
)

// PriceProvider returns the live price of one side of a market.
// Implementations return domain.ErrPriceUnavailable when the market cannot
// be priced; callers decide whether to soft-fail.
type PriceProvider interface {
	Price(ctx context.Context, marketID string, side domain.Side) (float64, error)
}
