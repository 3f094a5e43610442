// Package random implements a coin-flip strategy used as a baseline for
// comparing real strategies against noise.
package random

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
	"github.com/vadiminshakov/backtester/internal/services/strategy"
	"go.uber.org/zap"
)

const ID = "random"

var one = decimal.NewFromInt(1)

// Strategy buys or sells at random with configurable probabilities.
// Decisions are derived from the seed and the step index, so the same seed
// always replays the same decision sequence.
type Strategy struct {
	seed          int64
	buyProb       float64
	sellProb      float64
	tradeFraction decimal.Decimal
	logger        *zap.Logger
}

// New returns a random strategy with the given seed.
func New(logger *zap.Logger, seed int64) *Strategy {
	return &Strategy{
		seed:          seed,
		buyProb:       0.1,
		sellProb:      0.1,
		tradeFraction: decimal.NewFromFloat(0.25),
		logger:        logger,
	}
}

// ID implements strategy.Strategy.
func (s *Strategy) ID() string { return ID }

// IsReady implements strategy.Strategy.
func (s *Strategy) IsReady() bool { return true }

// Configure accepts buy_probability, sell_probability, trade_fraction and
// seed. A rejected call leaves the previous configuration untouched.
func (s *Strategy) Configure(params map[string]decimal.Decimal) error {
	buyProb, sellProb := s.buyProb, s.sellProb
	fraction, seed := s.tradeFraction, s.seed

	for name, value := range params {
		switch name {
		case "buy_probability", "sell_probability":
			p, _ := value.Float64()
			if p < 0 || p > 1 {
				return fmt.Errorf("%w: %s must be within [0, 1], got %s", strategy.ErrInvalidParams, name, value.String())
			}
			if name == "buy_probability" {
				buyProb = p
			} else {
				sellProb = p
			}
		case "trade_fraction":
			if value.LessThanOrEqual(decimal.Zero) || value.GreaterThan(one) {
				return fmt.Errorf("%w: trade_fraction must be within (0, 1], got %s", strategy.ErrInvalidParams, value.String())
			}
			fraction = value
		case "seed":
			seed = value.IntPart()
		default:
			return fmt.Errorf("%w: unknown parameter %q", strategy.ErrInvalidParams, name)
		}
	}
	if buyProb+sellProb > 1 {
		return fmt.Errorf("%w: buy and sell probabilities sum above 1", strategy.ErrInvalidParams)
	}

	s.buyProb, s.sellProb = buyProb, sellProb
	s.tradeFraction, s.seed = fraction, seed

	return nil
}

// Initialize implements strategy.Strategy.
func (s *Strategy) Initialize(context.Context) error { return nil }

// Decide implements strategy.Strategy.
func (s *Strategy) Decide(_ context.Context, input strategy.Input) (*domain.TradeOrder, error) {
	// a fresh source per step keeps Decide pure with respect to its input
	rng := rand.New(rand.NewSource(s.seed + int64(input.State.Step)))
	roll := rng.Float64()

	switch {
	case roll < s.buyProb:
		qty := strategy.BuyQuantity(input, s.tradeFraction)
		if qty.LessThanOrEqual(decimal.Zero) {
			return nil, nil
		}
		s.logger.Debug("random buy", zap.Int("step", input.State.Step), zap.String("qty", qty.String()))
		return &domain.TradeOrder{
			Pair:     input.State.Pair,
			Action:   domain.ActionBuy,
			Quantity: qty,
			Type:     domain.OrderTypeMarket,
			Time:     currentCandleTime(input),
			Reason:   "random_buy",
		}, nil
	case roll < s.buyProb+s.sellProb:
		held := strategy.HeldQuantity(input)
		if held.LessThanOrEqual(decimal.Zero) {
			return nil, nil
		}
		return &domain.TradeOrder{
			Pair:     input.State.Pair,
			Action:   domain.ActionSell,
			Quantity: held,
			Type:     domain.OrderTypeMarket,
			Time:     currentCandleTime(input),
			Reason:   "random_sell",
		}, nil
	default:
		return nil, nil
	}
}

func currentCandleTime(input strategy.Input) time.Time {
	return input.Market.Candles[len(input.Market.Candles)-1].OpenTime
}
