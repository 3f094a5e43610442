// Package meanrev implements Bollinger-band mean reversion: buy closes under
// the lower band, sell when price reverts to the middle or upper band.
package meanrev

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
	"github.com/vadiminshakov/backtester/internal/services/strategy"
	"go.uber.org/zap"
)

const ID = "meanrev"

var one = decimal.NewFromInt(1)

// Strategy trades deviations from the 20-period Bollinger channel.
type Strategy struct {
	tradeFraction decimal.Decimal
	// exitAtMiddle sells once price recovers to SMA20 instead of waiting
	// for the upper band.
	exitAtMiddle bool
	logger       *zap.Logger
}

// New returns a mean-reversion strategy with default parameters.
func New(logger *zap.Logger) *Strategy {
	return &Strategy{
		tradeFraction: decimal.NewFromFloat(0.5),
		exitAtMiddle:  true,
		logger:        logger,
	}
}

// ID implements strategy.Strategy.
func (s *Strategy) ID() string { return ID }

// IsReady implements strategy.Strategy.
func (s *Strategy) IsReady() bool { return true }

// Configure accepts trade_fraction and exit_at_middle (0 or 1). A rejected
// call leaves the previous configuration untouched.
func (s *Strategy) Configure(params map[string]decimal.Decimal) error {
	fraction, exitAtMiddle := s.tradeFraction, s.exitAtMiddle

	for name, value := range params {
		switch name {
		case "trade_fraction":
			if value.LessThanOrEqual(decimal.Zero) || value.GreaterThan(one) {
				return fmt.Errorf("%w: trade_fraction must be within (0, 1], got %s", strategy.ErrInvalidParams, value.String())
			}
			fraction = value
		case "exit_at_middle":
			if !value.IsZero() && !value.Equal(one) {
				return fmt.Errorf("%w: exit_at_middle must be 0 or 1, got %s", strategy.ErrInvalidParams, value.String())
			}
			exitAtMiddle = value.Equal(one)
		default:
			return fmt.Errorf("%w: unknown parameter %q", strategy.ErrInvalidParams, name)
		}
	}

	s.tradeFraction, s.exitAtMiddle = fraction, exitAtMiddle

	return nil
}

// Initialize implements strategy.Strategy.
func (s *Strategy) Initialize(context.Context) error { return nil }

// Decide implements strategy.Strategy.
func (s *Strategy) Decide(_ context.Context, input strategy.Input) (*domain.TradeOrder, error) {
	ind := input.Market.Indicators
	if ind == nil {
		return nil, nil
	}

	price := input.Market.CurrentPrice
	held := strategy.HeldQuantity(input)

	if held.GreaterThan(decimal.Zero) {
		exitLevel := ind.BollingerUpper
		reason := "price reached upper band"
		if s.exitAtMiddle {
			exitLevel = ind.SMA20
			reason = "price reverted to sma20"
		}
		if price.GreaterThanOrEqual(exitLevel) {
			s.logger.Debug("mean reversion exit", zap.String("level", exitLevel.String()))
			return &domain.TradeOrder{
				Pair:     input.State.Pair,
				Action:   domain.ActionSell,
				Quantity: held,
				Type:     domain.OrderTypeMarket,
				Time:     candleTime(input),
				Reason:   reason,
			}, nil
		}
		return nil, nil
	}

	if price.LessThan(ind.BollingerLower) {
		qty := strategy.BuyQuantity(input, s.tradeFraction)
		if qty.LessThanOrEqual(decimal.Zero) {
			return nil, nil
		}
		return &domain.TradeOrder{
			Pair:     input.State.Pair,
			Action:   domain.ActionBuy,
			Quantity: qty,
			Type:     domain.OrderTypeMarket,
			Time:     candleTime(input),
			Reason:   fmt.Sprintf("close %s under lower band %s", price.StringFixed(2), ind.BollingerLower.StringFixed(2)),
		}, nil
	}

	return nil, nil
}

func candleTime(input strategy.Input) time.Time {
	return input.Market.Candles[len(input.Market.Candles)-1].OpenTime
}
