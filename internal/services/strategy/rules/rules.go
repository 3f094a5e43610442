// Package rules implements indicator-threshold strategies: a plain RSI
// oversold/overbought rule set with an EMA trend filter, and an adaptive
// variant that shifts its thresholds with the market regime.
package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
	"github.com/vadiminshakov/backtester/internal/services/strategy"
	"go.uber.org/zap"
)

const ID = "rules"

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Strategy buys when RSI14 drops below the oversold threshold while price
// holds above EMA50, and sells the whole position when RSI14 rises above the
// overbought threshold.
type Strategy struct {
	rsiOversold   decimal.Decimal
	rsiOverbought decimal.Decimal
	tradeFraction decimal.Decimal
	logger        *zap.Logger
}

// New returns a rule-based strategy with default thresholds.
func New(logger *zap.Logger) *Strategy {
	return &Strategy{
		rsiOversold:   decimal.NewFromInt(30),
		rsiOverbought: decimal.NewFromInt(70),
		tradeFraction: decimal.NewFromFloat(0.5),
		logger:        logger,
	}
}

// ID implements strategy.Strategy.
func (s *Strategy) ID() string { return ID }

// IsReady implements strategy.Strategy.
func (s *Strategy) IsReady() bool {
	return s.rsiOversold.LessThan(s.rsiOverbought)
}

// Configure accepts rsi_oversold, rsi_overbought and trade_fraction. A
// rejected call leaves the previous configuration untouched.
func (s *Strategy) Configure(params map[string]decimal.Decimal) error {
	oversold, overbought := s.rsiOversold, s.rsiOverbought
	fraction := s.tradeFraction

	for name, value := range params {
		switch name {
		case "rsi_oversold":
			if value.IsNegative() || value.GreaterThan(hundred) {
				return fmt.Errorf("%w: rsi_oversold must be within [0, 100], got %s", strategy.ErrInvalidParams, value.String())
			}
			oversold = value
		case "rsi_overbought":
			if value.IsNegative() || value.GreaterThan(hundred) {
				return fmt.Errorf("%w: rsi_overbought must be within [0, 100], got %s", strategy.ErrInvalidParams, value.String())
			}
			overbought = value
		case "trade_fraction":
			if value.LessThanOrEqual(decimal.Zero) || value.GreaterThan(one) {
				return fmt.Errorf("%w: trade_fraction must be within (0, 1], got %s", strategy.ErrInvalidParams, value.String())
			}
			fraction = value
		default:
			return fmt.Errorf("%w: unknown parameter %q", strategy.ErrInvalidParams, name)
		}
	}

	if oversold.GreaterThanOrEqual(overbought) {
		return fmt.Errorf("%w: rsi_oversold (%s) must be below rsi_overbought (%s)",
			strategy.ErrInvalidParams, oversold.String(), overbought.String())
	}
	s.rsiOversold, s.rsiOverbought = oversold, overbought
	s.tradeFraction = fraction

	return nil
}

// Initialize implements strategy.Strategy.
func (s *Strategy) Initialize(context.Context) error { return nil }

// Decide implements strategy.Strategy.
func (s *Strategy) Decide(_ context.Context, input strategy.Input) (*domain.TradeOrder, error) {
	return decideWithThresholds(input, s.rsiOversold, s.rsiOverbought, s.tradeFraction, s.logger)
}

// decideWithThresholds is shared by the plain and adaptive rule sets.
func decideWithThresholds(input strategy.Input, oversold, overbought, fraction decimal.Decimal, logger *zap.Logger) (*domain.TradeOrder, error) {
	ind := input.Market.Indicators
	if ind == nil {
		// indicator warmup, nothing to act on yet
		return nil, nil
	}

	price := input.Market.CurrentPrice
	held := strategy.HeldQuantity(input)

	if held.GreaterThan(decimal.Zero) && ind.RSI14.GreaterThan(overbought) {
		logger.Debug("rsi overbought, closing position",
			zap.String("rsi14", ind.RSI14.String()),
			zap.String("threshold", overbought.String()))
		return &domain.TradeOrder{
			Pair:     input.State.Pair,
			Action:   domain.ActionSell,
			Quantity: held,
			Type:     domain.OrderTypeMarket,
			Time:     candleTime(input),
			Reason:   fmt.Sprintf("rsi14 %s above %s", ind.RSI14.StringFixed(2), overbought.String()),
		}, nil
	}

	// only buy dips inside an uptrend: price above the slow EMA
	if ind.RSI14.LessThan(oversold) && price.GreaterThan(ind.EMA50) {
		qty := strategy.BuyQuantity(input, fraction)
		if qty.LessThanOrEqual(decimal.Zero) {
			return nil, nil
		}
		logger.Debug("rsi oversold in uptrend, buying",
			zap.String("rsi14", ind.RSI14.String()),
			zap.String("threshold", oversold.String()))
		return &domain.TradeOrder{
			Pair:     input.State.Pair,
			Action:   domain.ActionBuy,
			Quantity: qty,
			Type:     domain.OrderTypeMarket,
			Time:     candleTime(input),
			Reason:   fmt.Sprintf("rsi14 %s below %s in uptrend", ind.RSI14.StringFixed(2), oversold.String()),
		}, nil
	}

	return nil, nil
}

func candleTime(input strategy.Input) time.Time {
	return input.Market.Candles[len(input.Market.Candles)-1].OpenTime
}
