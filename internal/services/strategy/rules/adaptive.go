package rules

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
	"github.com/vadiminshakov/backtester/internal/services/strategy"
	"go.uber.org/zap"
)

const AdaptiveID = "rules-adaptive"

// Adaptive applies the same RSI rules but classifies the market regime first
// and shifts the thresholds with it: in a bullish trend it buys shallower
// dips, in a bearish trend it demands deeper ones, and in volatile markets it
// widens both bars.
type Adaptive struct {
	base            *Strategy
	trendShift      decimal.Decimal
	volShift        decimal.Decimal
	volRatioTrigger decimal.Decimal
	logger          *zap.Logger
}

// NewAdaptive returns an adaptive rule strategy with default shifts.
func NewAdaptive(logger *zap.Logger) *Adaptive {
	return &Adaptive{
		base:            New(logger),
		trendShift:      decimal.NewFromInt(5),
		volShift:        decimal.NewFromInt(5),
		volRatioTrigger: decimal.NewFromFloat(0.03),
		logger:          logger,
	}
}

// ID implements strategy.Strategy.
func (a *Adaptive) ID() string { return AdaptiveID }

// IsReady implements strategy.Strategy.
func (a *Adaptive) IsReady() bool { return a.base.IsReady() }

// Configure accepts the base rule parameters plus trend_shift, vol_shift and
// vol_ratio_trigger.
func (a *Adaptive) Configure(params map[string]decimal.Decimal) error {
	baseParams := make(map[string]decimal.Decimal)

	for name, value := range params {
		switch name {
		case "trend_shift", "vol_shift":
			if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(50)) {
				return fmt.Errorf("%w: %s must be within [0, 50], got %s", strategy.ErrInvalidParams, name, value.String())
			}
			if name == "trend_shift" {
				a.trendShift = value
			} else {
				a.volShift = value
			}
		case "vol_ratio_trigger":
			if value.LessThanOrEqual(decimal.Zero) {
				return fmt.Errorf("%w: vol_ratio_trigger must be positive, got %s", strategy.ErrInvalidParams, value.String())
			}
			a.volRatioTrigger = value
		default:
			baseParams[name] = value
		}
	}

	return a.base.Configure(baseParams)
}

// Initialize implements strategy.Strategy.
func (a *Adaptive) Initialize(context.Context) error { return nil }

// Decide implements strategy.Strategy.
func (a *Adaptive) Decide(_ context.Context, input strategy.Input) (*domain.TradeOrder, error) {
	ind := input.Market.Indicators
	if ind == nil {
		return nil, nil
	}

	oversold := a.base.rsiOversold
	overbought := a.base.rsiOverbought

	switch ind.Trend(input.Market.CurrentPrice) {
	case domain.TrendDirectionBullish:
		// dips recover faster in an uptrend, act on shallower ones
		oversold = oversold.Add(a.trendShift)
		overbought = overbought.Add(a.trendShift)
	case domain.TrendDirectionBearish:
		oversold = oversold.Sub(a.trendShift)
		overbought = overbought.Sub(a.trendShift)
	}

	if a.isVolatile(input) {
		oversold = oversold.Sub(a.volShift)
		overbought = overbought.Add(a.volShift)
	}

	return decideWithThresholds(input, oversold, overbought, a.base.tradeFraction, a.logger)
}

// isVolatile checks the ATR-to-price ratio against the trigger.
func (a *Adaptive) isVolatile(input strategy.Input) bool {
	price := input.Market.CurrentPrice
	if price.LessThanOrEqual(decimal.Zero) {
		return false
	}
	ratio := input.Market.Indicators.ATR14.Div(price)
	if ratio.GreaterThan(a.volRatioTrigger) {
		a.logger.Debug("volatile regime", zap.String("atr_ratio", ratio.String()))
		return true
	}
	return false
}
