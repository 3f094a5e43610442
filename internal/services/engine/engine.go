// Package engine replays historical candles through a strategy against a
// virtual portfolio and produces a run report. Replays are deterministic:
// the same parameters over the same candles yield the same trades,
// snapshots and metrics.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
	"github.com/vadiminshakov/backtester/internal/services/analyzer"
	"github.com/vadiminshakov/backtester/internal/services/market"
	"github.com/vadiminshakov/backtester/internal/services/registry"
	"github.com/vadiminshakov/backtester/internal/services/strategy"
	"github.com/vadiminshakov/backtester/pkg/indicators"
	"go.uber.org/zap"
)

var (
	// ErrStrategyNotFound is returned when the requested strategy is not registered.
	ErrStrategyNotFound = errors.New("strategy not found")
	// ErrNoData is returned when the provider has no candles for the range.
	ErrNoData = errors.New("no market data for the requested range")
)

// Params configures one simulation run. FeePercent and SlippagePercent are
// fractions, 0.001 means 0.1%.
type Params struct {
	StrategyID      string
	Pair            domain.Pair
	Interval        string
	Start           time.Time
	End             time.Time
	InitialCapital  decimal.Decimal
	FeePercent      decimal.Decimal
	SlippagePercent decimal.Decimal
	DataSource      string
	// StrategyParams are applied via Configure before the run.
	StrategyParams map[string]decimal.Decimal
}

func (p Params) validate() error {
	if p.StrategyID == "" {
		return errors.New("strategy ID is empty")
	}
	if p.Pair.From == "" || p.Pair.To == "" {
		return errors.Errorf("incomplete pair: %s", p.Pair.String())
	}
	if p.Interval == "" {
		return errors.New("interval is empty")
	}
	if !p.Start.Before(p.End) {
		return market.ErrInvalidDateRange
	}
	if p.InitialCapital.LessThanOrEqual(decimal.Zero) {
		return errors.New("initial capital must be positive")
	}
	if p.FeePercent.IsNegative() || p.SlippagePercent.IsNegative() {
		return errors.New("fee and slippage must not be negative")
	}
	return nil
}

// Engine runs backtests over candle data from registered providers.
type Engine struct {
	registry *registry.Registry
	sources  market.Sources
	logger   *zap.Logger
}

// New creates a backtest engine.
func New(reg *registry.Registry, sources market.Sources, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		registry: reg,
		sources:  sources,
		logger:   logger,
	}
}

// Run executes one backtest and returns its report.
func (e *Engine) Run(ctx context.Context, params Params) (*domain.Report, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	strat := e.registry.Get(params.StrategyID)
	if strat == nil {
		return nil, errors.Wrap(ErrStrategyNotFound, params.StrategyID)
	}
	if len(params.StrategyParams) > 0 {
		if err := strat.Configure(params.StrategyParams); err != nil {
			return nil, errors.Wrapf(err, "failed to configure strategy %s", params.StrategyID)
		}
	}
	if !strat.IsReady() {
		return nil, errors.Errorf("strategy %s is not ready", params.StrategyID)
	}

	provider := e.sources.Get(params.DataSource)
	if provider == nil {
		return nil, errors.Errorf("unknown data source: %s", params.DataSource)
	}

	candles, err := provider.GetCandles(ctx, params.Pair, params.Interval, params.Start, params.End)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch candles")
	}
	if len(candles) == 0 {
		return nil, ErrNoData
	}
	if err := domain.ValidateCandleOrdering(candles); err != nil {
		return nil, errors.Wrap(err, "bad candle data")
	}

	if err := strat.Initialize(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to initialize strategy %s", params.StrategyID)
	}

	e.logger.Info("starting backtest",
		zap.String("strategy", params.StrategyID),
		zap.String("pair", params.Pair.String()),
		zap.String("interval", params.Interval),
		zap.Int("candles", len(candles)))

	// The indicator series is causal, the value aligned to candle i uses
	// only candles [0..i], so precomputing once does not leak the future.
	indicatorSeries, indicatorOffset := precomputeIndicators(candles)

	led := newLedger(params.Pair, params.InitialCapital, params.FeePercent, params.SlippagePercent, e.logger)

	initial := domain.NewPortfolioSnapshot(candles[0].OpenTime, params.Pair.To, params.InitialCapital, nil, nil)
	snapshots := []domain.PortfolioSnapshot{initial}

	for i := range candles {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		candle := candles[i]

		var stepIndicators *domain.TechnicalIndicators
		if indicatorSeries != nil && i >= indicatorOffset {
			stepIndicators = &indicatorSeries[i-indicatorOffset]
		}

		input := strategy.Input{
			Market: strategy.MarketData{
				CurrentPrice: candle.Close,
				Candles:      candles[:i+1],
				Indicators:   stepIndicators,
			},
			State: strategy.AgentState{
				Pair:          params.Pair,
				Interval:      params.Interval,
				Step:          i,
				AvgEntryPrice: led.avgEntry,
				PositionSize:  led.position,
			},
			Portfolio: snapshots[len(snapshots)-1].Clone(),
		}

		order, err := strat.Decide(ctx, input)
		if err != nil {
			return nil, errors.Wrapf(err, "strategy %s failed at step %d", params.StrategyID, i)
		}

		// snapshots are taken on executed orders only, a rejected order
		// leaves the history unchanged
		if order != nil {
			order.ID = fmt.Sprintf("%s-%d", params.StrategyID, i)
			if trade := led.execute(order, candle); trade != nil {
				e.logger.Debug("order filled",
					zap.String("order", order.String()),
					zap.String("price", trade.ExecutedPrice.String()),
					zap.String("fee", trade.Fee.String()))
				snapshots = append(snapshots, led.snapshot(candle))
			}
		}
	}

	finalCapital := led.snapshot(candles[len(candles)-1]).TotalValue
	firstPrice := candles[0].Close
	lastPrice := candles[len(candles)-1].Close

	metrics := analyzer.Metrics(led.trades, snapshots, params.InitialCapital, finalCapital, &firstPrice, &lastPrice)

	report := &domain.Report{
		RunID:          uuid.New().String(),
		StrategyID:     params.StrategyID,
		Pair:           params.Pair,
		Interval:       params.Interval,
		Start:          params.Start,
		End:            params.End,
		InitialCapital: params.InitialCapital,
		FinalCapital:   finalCapital,
		Trades:         led.trades,
		Snapshots:      snapshots,
		Metrics:        metrics,
		CreatedAt:      time.Now().UTC(),
	}

	e.logger.Info("backtest finished",
		zap.String("strategy", params.StrategyID),
		zap.Int("trades", len(report.Trades)),
		zap.String("final_capital", finalCapital.String()))

	return report, nil
}

// precomputeIndicators returns the indicator series and the index of the
// first candle it covers. Nil series when there is not enough history.
func precomputeIndicators(candles []domain.MarketCandle) ([]domain.TechnicalIndicators, int) {
	if len(candles) < indicators.MinCandles {
		return nil, 0
	}

	series, err := indicators.CalculateAllIndicators(indicators.FromCandles(candles))
	if err != nil {
		return nil, 0
	}

	return series, len(candles) - len(series)
}
