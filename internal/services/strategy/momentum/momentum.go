// Package momentum implements a breakout strategy: enter when price clears
// the recent high on elevated volume, exit on trend loss or a fixed stop.
package momentum

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
	"github.com/vadiminshakov/backtester/internal/services/market/analysis"
	"github.com/vadiminshakov/backtester/internal/services/strategy"
	"go.uber.org/zap"
)

const (
	ID          = "momentum"
	OptimizedID = "momentum-optimized"
)

var one = decimal.NewFromInt(1)

// Strategy buys breakouts above the lookback high confirmed by relative
// volume and exits when the close falls under EMA20 or the stop distance.
type Strategy struct {
	id            string
	lookback      int
	volumeRatio   decimal.Decimal
	stopPercent   decimal.Decimal
	tradeFraction decimal.Decimal
	analyzer      *analysis.MarketAnalyzer
	logger        *zap.Logger
}

// New returns a momentum strategy with default parameters.
func New(logger *zap.Logger) *Strategy {
	return &Strategy{
		id:            ID,
		lookback:      20,
		volumeRatio:   decimal.NewFromFloat(1.5),
		stopPercent:   decimal.NewFromFloat(0.05),
		tradeFraction: decimal.NewFromFloat(0.5),
		analyzer:      analysis.NewMarketAnalyzer(logger),
		logger:        logger,
	}
}

// NewOptimized returns the tightened preset found by parameter sweeps:
// a shorter breakout window, stricter volume confirmation and a closer stop.
func NewOptimized(logger *zap.Logger) *Strategy {
	s := New(logger)
	s.id = OptimizedID
	s.lookback = 12
	s.volumeRatio = decimal.NewFromFloat(1.8)
	s.stopPercent = decimal.NewFromFloat(0.03)
	return s
}

// ID implements strategy.Strategy.
func (s *Strategy) ID() string { return s.id }

// IsReady implements strategy.Strategy.
func (s *Strategy) IsReady() bool { return s.lookback > 0 }

// Configure accepts lookback, volume_ratio, stop_percent and trade_fraction.
// A rejected call leaves the previous configuration untouched.
func (s *Strategy) Configure(params map[string]decimal.Decimal) error {
	lookback := s.lookback
	volumeRatio, stopPercent, fraction := s.volumeRatio, s.stopPercent, s.tradeFraction

	for name, value := range params {
		switch name {
		case "lookback":
			n := int(value.IntPart())
			if n < 2 || n > 500 {
				return fmt.Errorf("%w: lookback must be within [2, 500], got %s", strategy.ErrInvalidParams, value.String())
			}
			lookback = n
		case "volume_ratio":
			if value.LessThan(one) {
				return fmt.Errorf("%w: volume_ratio must be >= 1, got %s", strategy.ErrInvalidParams, value.String())
			}
			volumeRatio = value
		case "stop_percent":
			if value.LessThanOrEqual(decimal.Zero) || value.GreaterThanOrEqual(one) {
				return fmt.Errorf("%w: stop_percent must be within (0, 1), got %s", strategy.ErrInvalidParams, value.String())
			}
			stopPercent = value
		case "trade_fraction":
			if value.LessThanOrEqual(decimal.Zero) || value.GreaterThan(one) {
				return fmt.Errorf("%w: trade_fraction must be within (0, 1], got %s", strategy.ErrInvalidParams, value.String())
			}
			fraction = value
		default:
			return fmt.Errorf("%w: unknown parameter %q", strategy.ErrInvalidParams, name)
		}
	}

	s.lookback = lookback
	s.volumeRatio, s.stopPercent, s.tradeFraction = volumeRatio, stopPercent, fraction

	return nil
}

// Initialize implements strategy.Strategy.
func (s *Strategy) Initialize(context.Context) error { return nil }

// Decide implements strategy.Strategy.
func (s *Strategy) Decide(_ context.Context, input strategy.Input) (*domain.TradeOrder, error) {
	candles := input.Market.Candles
	if len(candles) < s.lookback+1 {
		return nil, nil
	}

	price := input.Market.CurrentPrice
	held := strategy.HeldQuantity(input)

	if held.GreaterThan(decimal.Zero) {
		if reason, exit := s.shouldExit(input); exit {
			return &domain.TradeOrder{
				Pair:     input.State.Pair,
				Action:   domain.ActionSell,
				Quantity: held,
				Type:     domain.OrderTypeMarket,
				Time:     s.candleTime(input),
				Reason:   reason,
			}, nil
		}
		return nil, nil
	}

	// breakout: close above the highest high of the lookback window,
	// current candle excluded
	breakoutLevel := highestHigh(candles[len(candles)-1-s.lookback : len(candles)-1])
	if price.LessThanOrEqual(breakoutLevel) {
		return nil, nil
	}

	volume := s.analyzer.AnalyzeVolume(candles)
	if volume.RelativeVolume.LessThan(s.volumeRatio) {
		s.logger.Debug("breakout without volume confirmation",
			zap.String("relative_volume", volume.RelativeVolume.String()),
			zap.String("required", s.volumeRatio.String()))
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
		Time:     s.candleTime(input),
		Reason: fmt.Sprintf("breakout above %s with %sx volume",
			breakoutLevel.StringFixed(2), volume.RelativeVolume.StringFixed(2)),
	}, nil
}

func (s *Strategy) shouldExit(input strategy.Input) (string, bool) {
	price := input.Market.CurrentPrice

	if !input.State.AvgEntryPrice.IsZero() {
		stopLevel := input.State.AvgEntryPrice.Mul(one.Sub(s.stopPercent))
		if price.LessThan(stopLevel) {
			return fmt.Sprintf("stop hit at %s", stopLevel.StringFixed(2)), true
		}
	}

	if ind := input.Market.Indicators; ind != nil && price.LessThan(ind.EMA20) {
		return "close below ema20", true
	}

	return "", false
}

func (s *Strategy) candleTime(input strategy.Input) time.Time {
	return input.Market.Candles[len(input.Market.Candles)-1].OpenTime
}

func highestHigh(candles []domain.MarketCandle) decimal.Decimal {
	highest := decimal.Zero
	for _, c := range candles {
		if c.High.GreaterThan(highest) {
			highest = c.High
		}
	}
	return highest
}
