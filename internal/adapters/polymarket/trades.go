package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/alejandrodnm/whalebridge/internal/domain"
)

// rawDataTrade es el DTO crudo de /trades de la Data API.
// Los campos numéricos llegan como string o como número según el humor
// del endpoint, por eso json.Number.
type rawDataTrade struct {
	ProxyWallet string      `json:"proxyWallet"`
	Side        string      `json:"side"`
	Size        json.Number `json:"size"`
	USDCSize    json.Number `json:"usdcSize"`
	Price       json.Number `json:"price"`
}

// MarketTrades devuelve los trades recientes de un mercado (conditionId).
func (c *Client) MarketTrades(ctx context.Context, marketKey string, limit int) ([]domain.Trade, error) {
	var raw json.RawMessage
	u := fmt.Sprintf("%s/trades?market=%s&limit=%d&offset=0",
		c.dataBase, url.QueryEscape(marketKey), limit)
	if err := c.get(ctx, c.dataLimiter, u, &raw); err != nil {
		return nil, fmt.Errorf("polymarket.MarketTrades: %s: %w", marketKey, err)
	}

	list, err := decodeTradeList(raw)
	if err != nil {
		return nil, fmt.Errorf("polymarket.MarketTrades: %s: %w", marketKey, err)
	}

	trades := make([]domain.Trade, 0, len(list))
	for _, rt := range list {
		trades = append(trades, mapTrade(rt))
	}
	return trades, nil
}

// decodeTradeList tolera lista nativa o envelope {"data": [...]}.
func decodeTradeList(raw json.RawMessage) ([]rawDataTrade, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []rawDataTrade
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return list, nil
	}
	var envelope struct {
		Data []rawDataTrade `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return envelope.Data, nil
}

// mapTrade reduce el DTO a lo que necesita el filtro de whales.
// usdcSize manda; size es el fallback de endpoints viejos.
func mapTrade(rt rawDataTrade) domain.Trade {
	usd, err := rt.USDCSize.Float64()
	if err != nil || usd == 0 {
		usd, _ = rt.Size.Float64()
	}
	price, err := rt.Price.Float64()
	if err != nil {
		price = 0.5
	}

	wallet := rt.ProxyWallet
	if wallet == "" {
		wallet = "unknown"
	}
	direction := strings.ToUpper(rt.Side)
	if direction == "" {
		direction = "BUY"
	}

	return domain.Trade{
		Wallet:    wallet,
		Direction: direction,
		SizeUSD:   round2(usd),
		Price:     round4(price),
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
