// Package mtf implements a multi-timeframe strategy: the primary candle
// stream drives entries, but only when the aggregated higher timeframe
// agrees on direction.
package mtf

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
	"github.com/vadiminshakov/backtester/internal/services/strategy"
	"github.com/vadiminshakov/backtester/pkg/indicators"
	"go.uber.org/zap"
)

const ID = "mtf"

var one = decimal.NewFromInt(1)

// Strategy aggregates the primary candle history into a higher timeframe and
// trades RSI dips only while both timeframes trend in the same direction.
// The higher timeframe is built from the already-seen primary candles, so no
// future data leaks in.
type Strategy struct {
	aggregateFactor int
	rsiEntry        decimal.Decimal
	tradeFraction   decimal.Decimal
	logger          *zap.Logger
}

// New returns a multi-timeframe strategy with a 4x aggregation factor.
func New(logger *zap.Logger) *Strategy {
	return &Strategy{
		aggregateFactor: 4,
		rsiEntry:        decimal.NewFromInt(40),
		tradeFraction:   decimal.NewFromFloat(0.5),
		logger:          logger,
	}
}

// ID implements strategy.Strategy.
func (s *Strategy) ID() string { return ID }

// IsReady implements strategy.Strategy.
func (s *Strategy) IsReady() bool { return s.aggregateFactor > 1 }

// Configure accepts aggregate_factor, rsi_entry and trade_fraction.
// A rejected call leaves the previous configuration untouched.
func (s *Strategy) Configure(params map[string]decimal.Decimal) error {
	factor := s.aggregateFactor
	rsiEntry, fraction := s.rsiEntry, s.tradeFraction

	for name, value := range params {
		switch name {
		case "aggregate_factor":
			n := int(value.IntPart())
			if n < 2 || n > 100 {
				return fmt.Errorf("%w: aggregate_factor must be within [2, 100], got %s", strategy.ErrInvalidParams, value.String())
			}
			factor = n
		case "rsi_entry":
			if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(100)) {
				return fmt.Errorf("%w: rsi_entry must be within [0, 100], got %s", strategy.ErrInvalidParams, value.String())
			}
			rsiEntry = value
		case "trade_fraction":
			if value.LessThanOrEqual(decimal.Zero) || value.GreaterThan(one) {
				return fmt.Errorf("%w: trade_fraction must be within (0, 1], got %s", strategy.ErrInvalidParams, value.String())
			}
			fraction = value
		default:
			return fmt.Errorf("%w: unknown parameter %q", strategy.ErrInvalidParams, name)
		}
	}

	s.aggregateFactor = factor
	s.rsiEntry, s.tradeFraction = rsiEntry, fraction

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

	higher := s.higherTimeframe(input.State.Interval, input.Market.Candles)
	if higher == nil || higher.Summary == nil {
		return nil, nil
	}
	higherTrend := higher.Summary.Trend

	price := input.Market.CurrentPrice
	held := strategy.HeldQuantity(input)

	if held.GreaterThan(decimal.Zero) {
		if higherTrend == domain.TrendDirectionBearish {
			return &domain.TradeOrder{
				Pair:     input.State.Pair,
				Action:   domain.ActionSell,
				Quantity: held,
				Type:     domain.OrderTypeMarket,
				Time:     candleTime(input),
				Reason:   "higher timeframe turned bearish",
			}, nil
		}
		return nil, nil
	}

	if higherTrend != domain.TrendDirectionBullish {
		return nil, nil
	}

	// primary timeframe pullback inside a higher timeframe uptrend
	if ind.RSI14.GreaterThanOrEqual(s.rsiEntry) || price.LessThanOrEqual(ind.EMA50) {
		return nil, nil
	}

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
		Reason:   fmt.Sprintf("pullback rsi14 %s in higher timeframe uptrend", ind.RSI14.StringFixed(2)),
	}, nil
}

// higherTimeframe aggregates the primary candles and computes the full
// indicator suite on the result. Returns nil until the aggregated history
// covers the indicator warmup.
func (s *Strategy) higherTimeframe(interval string, candles []domain.MarketCandle) *domain.Timeframe {
	aggregated := domain.AggregateCandles(candles, s.aggregateFactor)
	if len(aggregated) < indicators.MinCandles {
		return nil
	}

	inds, err := indicators.CalculateAllIndicators(indicators.FromCandles(aggregated))
	if err != nil {
		return nil
	}

	return domain.NewTimeframe(fmt.Sprintf("%dx%s", s.aggregateFactor, interval), aggregated, inds)
}

func candleTime(input strategy.Input) time.Time {
	return input.Market.Candles[len(input.Market.Candles)-1].OpenTime
}
