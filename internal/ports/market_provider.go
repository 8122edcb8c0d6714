package ports

import (
	"context"

	"github.com/alejandrodnm/whalebridge/internal/domain"
)

// MarketProvider fetches active markets for the tracker scan.
type MarketProvider interface {
	ActiveMarkets(ctx context.Context, target, pageSize int) ([]domain.Market, error)
}

// TradeProvider fetches recent trades for one market.
type TradeProvider interface {
	MarketTrades(ctx context.Context, marketKey string, limit int) ([]domain.Trade, error)
}
