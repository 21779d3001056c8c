package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vitos/trade_signal_levels/internal/domain"
)

// LevelCalculator combines a direction, a resolved rule and an entry price
// into final TP/SL prices. Pure and deterministic: identical inputs yield
// bit-identical results.
type LevelCalculator struct{}

func NewLevelCalculator() *LevelCalculator {
	return &LevelCalculator{}
}

var oneHundred = decimal.NewFromInt(100)

func (c *LevelCalculator) Calculate(
	direction domain.Direction,
	asset *domain.AssetRule,
	rule *domain.TFRule,
	timeframe string,
	entry decimal.Decimal,
) (*domain.LevelResult, error) {
	if !entry.IsPositive() {
		return nil, &domain.CalculationError{
			Reason: domain.CalcMissingEntryPrice,
			Detail: fmt.Sprintf("entry price %s for %s", entry, asset.Symbol),
		}
	}

	tp1Delta := c.delta(asset, rule, rule.TP1, entry)
	tp2Delta := c.delta(asset, rule, rule.TP2, entry)
	tp3Delta := c.delta(asset, rule, rule.TP3, entry)
	slDelta := c.delta(asset, rule, rule.SL, entry)

	if slDelta.IsZero() {
		return nil, &domain.CalculationError{
			Reason: domain.CalcZeroRiskDistance,
			Detail: fmt.Sprintf("sl distance is zero for %s %s", asset.Symbol, timeframe),
		}
	}

	// LONG: targets above entry, stop below. SHORT mirrored.
	sign := decimal.NewFromInt(1)
	if direction == domain.SideShort {
		sign = decimal.NewFromInt(-1)
	}

	return &domain.LevelResult{
		Direction:  direction,
		Asset:      asset.Symbol,
		Timeframe:  timeframe,
		Entry:      entry,
		TP1:        entry.Add(tp1Delta.Mul(sign)),
		TP2:        entry.Add(tp2Delta.Mul(sign)),
		TP3:        entry.Add(tp3Delta.Mul(sign)),
		SL:         entry.Sub(slDelta.Mul(sign)),
		TP1Dist:    rule.TP1,
		TP2Dist:    rule.TP2,
		TP3Dist:    rule.TP3,
		SLDist:     rule.SL,
		Unit:       rule.Unit,
		RR:         tp1Delta.Div(slDelta).Round(2),
		PriceScale: asset.PriceScale,
	}, nil
}

// delta converts a rule magnitude into a quote-currency distance.
func (c *LevelCalculator) delta(asset *domain.AssetRule, rule *domain.TFRule, magnitude, entry decimal.Decimal) decimal.Decimal {
	switch rule.Unit {
	case domain.UnitPips:
		pip := asset.PipSize
		if !pip.IsPositive() {
			pip = domain.DefaultPipSize
		}
		return magnitude.Mul(pip)
	case domain.UnitPoints:
		return magnitude
	default: // percent
		return entry.Mul(magnitude).Div(oneHundred)
	}
}
