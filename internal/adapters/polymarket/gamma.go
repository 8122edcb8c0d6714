package polymarket

// gamma.go — lectura tolerante de la Gamma API.
//
// Gamma es inconsistente en dos ejes y hay que tolerar ambos:
//   - outcomes / outcomePrices llegan como lista nativa O como string
//     JSON-encoded ("[\"Yes\",\"No\"]").
//   - /markets/{id} devuelve un objeto O una lista con un elemento.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/whalebridge/internal/domain"
)

// gammaMarket es el DTO crudo de un mercado de la Gamma API.
type gammaMarket struct {
	ID             string      `json:"id"`
	ConditionID    string      `json:"conditionId"`
	Question       string      `json:"question"`
	Slug           string      `json:"slug"`
	Outcomes       flexStrings `json:"outcomes"`
	OutcomePrices  flexStrings `json:"outcomePrices"`
	LastTradePrice *float64    `json:"lastTradePrice"`
	Volume         json.Number `json:"volume"`
	Liquidity      json.Number `json:"liquidity"`
	EndDateISO     string      `json:"endDateIso"`
	EndDate        string      `json:"endDate"`
	Active         bool        `json:"active"`
	Closed         bool        `json:"closed"`
}

// flexStrings decodifica una lista que puede venir como array nativo o como
// string con JSON embebido. Los elementos numéricos se normalizan a string.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = nil
		return nil
	}
	if b[0] == '"' {
		var inner string
		if err := json.Unmarshal(b, &inner); err != nil {
			return err
		}
		if strings.TrimSpace(inner) == "" {
			*f = nil
			return nil
		}
		b = []byte(inner)
	}
	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case float64:
			out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
		default:
			out = append(out, fmt.Sprint(t))
		}
	}
	*f = out
	return nil
}

// Price devuelve el precio live del lado pedido de un mercado.
// Orden de resolución: outcome que matchea el side → primer precio (YES es
// índice 0 en mercados binarios) → lastTradePrice. Si nada aplica, devuelve
// domain.ErrPriceUnavailable.
func (c *Client) Price(ctx context.Context, marketID string, side domain.Side) (float64, error) {
	m, err := c.fetchMarket(ctx, marketID)
	if err != nil {
		return 0, fmt.Errorf("polymarket.Price: %s: %w", marketID, err)
	}
	return priceFromMarket(m, side)
}

func priceFromMarket(m gammaMarket, side domain.Side) (float64, error) {
	if len(m.Outcomes) > 0 && len(m.OutcomePrices) > 0 {
		for i, outcome := range m.Outcomes {
			if i >= len(m.OutcomePrices) {
				break
			}
			if strings.EqualFold(strings.TrimSpace(outcome), string(side)) {
				if p, err := strconv.ParseFloat(m.OutcomePrices[i], 64); err == nil {
					return p, nil
				}
			}
		}
		if p, err := strconv.ParseFloat(m.OutcomePrices[0], 64); err == nil {
			return p, nil
		}
	}
	if m.LastTradePrice != nil {
		return *m.LastTradePrice, nil
	}
	return 0, domain.ErrPriceUnavailable
}

// fetchMarket resuelve un mercado por id numérico o por conditionId hex.
func (c *Client) fetchMarket(ctx context.Context, marketID string) (gammaMarket, error) {
	if strings.HasPrefix(marketID, "0x") {
		return c.findByCondition(ctx, marketID)
	}

	var raw json.RawMessage
	u := fmt.Sprintf("%s/markets/%s", c.gammaBase, url.PathEscape(marketID))
	if err := c.get(ctx, c.gammaLimiter, u, &raw); err != nil {
		return gammaMarket{}, err
	}
	return decodeMarketPayload(raw)
}

// findByCondition busca un conditionId hex entre los mercados activos y,
// si no aparece, entre los cerrados.
func (c *Client) findByCondition(ctx context.Context, conditionID string) (gammaMarket, error) {
	want := strings.ToLower(conditionID)
	for _, closed := range []string{"false", "true"} {
		var batch []gammaMarket
		u := fmt.Sprintf("%s/markets?closed=%s&limit=500", c.gammaBase, closed)
		if err := c.get(ctx, c.gammaLimiter, u, &batch); err != nil {
			return gammaMarket{}, err
		}
		for _, m := range batch {
			if strings.ToLower(m.ConditionID) == want {
				return m, nil
			}
		}
	}
	return gammaMarket{}, fmt.Errorf("condition %s not found", conditionID)
}

// decodeMarketPayload tolera objeto o lista-con-un-elemento.
func decodeMarketPayload(raw json.RawMessage) (gammaMarket, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []gammaMarket
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return gammaMarket{}, fmt.Errorf("decode market list: %w", err)
		}
		if len(list) == 0 {
			return gammaMarket{}, fmt.Errorf("empty market list")
		}
		return list[0], nil
	}
	var m gammaMarket
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return gammaMarket{}, fmt.Errorf("decode market: %w", err)
	}
	return m, nil
}

// ActiveMarkets pagina /markets hasta juntar `target` mercados activos.
func (c *Client) ActiveMarkets(ctx context.Context, target, pageSize int) ([]domain.Market, error) {
	var markets []domain.Market
	offset := 0
	page := 1

	for len(markets) < target {
		var raw json.RawMessage
		u := fmt.Sprintf("%s/markets?active=true&closed=false&limit=%d&offset=%d",
			c.gammaBase, pageSize, offset)
		if err := c.get(ctx, c.gammaLimiter, u, &raw); err != nil {
			return nil, fmt.Errorf("polymarket.ActiveMarkets: page %d: %w", page, err)
		}

		batch, err := decodeMarketList(raw)
		if err != nil {
			return nil, fmt.Errorf("polymarket.ActiveMarkets: page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}

		for _, gm := range batch {
			markets = append(markets, mapMarket(gm))
		}

		if len(batch) < pageSize {
			break
		}
		offset += pageSize
		page++
	}

	if len(markets) > target {
		markets = markets[:target]
	}
	return markets, nil
}

// decodeMarketList tolera lista nativa o envelope {"data": [...]}.
func decodeMarketList(raw json.RawMessage) ([]gammaMarket, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []gammaMarket
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return list, nil
	}
	var envelope struct {
		Data []gammaMarket `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return envelope.Data, nil
}

// mapMarket convierte el DTO de Gamma a domain.Market.
func mapMarket(gm gammaMarket) domain.Market {
	m := domain.Market{
		ID:          gm.ID,
		ConditionID: gm.ConditionID,
		Question:    gm.Question,
		Slug:        gm.Slug,
	}
	if v, err := gm.Volume.Float64(); err == nil {
		m.Volume = v
	}
	if v, err := gm.Liquidity.Float64(); err == nil {
		m.Liquidity = v
	}
	if len(gm.OutcomePrices) > 0 {
		if p, err := strconv.ParseFloat(gm.OutcomePrices[0], 64); err == nil {
			m.YesPrice = p
		} else {
			m.YesPrice = 0.5
		}
	} else {
		m.YesPrice = 0.5
	}

	endStr := gm.EndDateISO
	if endStr == "" {
		endStr = gm.EndDate
	}
	m.EndDateISO = endStr
	if endStr != "" {
		// Gamma usa varios formatos; intentamos los más comunes
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02T15:04:05.000Z",
			"2006-01-02T15:04:05Z",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, endStr); err == nil {
				m.EndDate = t.UTC()
				break
			}
		}
	}
	return m
}
