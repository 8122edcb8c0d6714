package domain

import (
	"fmt"
	"math"
)

// SizerConfig holds the fractional Kelly parameters. Injected from config,
// never package state.
type SizerConfig struct {
	MinBet        float64
	MaxBet        float64
	KellyFraction float64
}

// TradeSize is a sized stake plus the human-readable derivation shown in
// the proposal message.
type TradeSize struct {
	Amount    float64
	Rationale string
}

// Size computes the stake for a signal via fractional Kelly.
//
// f* = divergence / (1 - marketProb), clamped to 0.10 when the market is
// near certainty (denominator ≤ 0.01). The stake is portfolio × f* ×
// KellyFraction, bounded to [MinBet, MaxBet] and rounded to cents.
func (c SizerConfig) Size(divergence, marketProb, portfolio float64) (TradeSize, error) {
	if marketProb < 0 || marketProb > 1 {
		return TradeSize{}, fmt.Errorf("%w: market_prob %.4f out of [0,1]", ErrInvalidSignal, marketProb)
	}
	if divergence < 0 || divergence > 1 {
		return TradeSize{}, fmt.Errorf("%w: divergence %.4f out of [0,1]", ErrInvalidSignal, divergence)
	}

	denominator := 1.0 - marketProb
	var kelly float64
	if denominator <= 0.01 {
		kelly = 0.10
	} else {
		kelly = divergence / denominator
	}

	fraction := kelly * c.KellyFraction
	raw := portfolio * fraction

	amount := math.Max(c.MinBet, math.Min(c.MaxBet, raw))
	amount = round2(amount)

	rationale := fmt.Sprintf("Kelly=%.0f%% × %d%% = %.1f%% of $%.0f = $%.2f → $%.2f",
		kelly*100, int(c.KellyFraction*100), fraction*100, portfolio, raw, amount)

	return TradeSize{Amount: amount, Rationale: rationale}, nil
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
func round6(v float64) float64 { return math.Round(v*1000000) / 1000000 }
