package engine

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/backtester/internal/domain"
	"github.com/vadiminshakov/backtester/internal/services/market"
	"github.com/vadiminshakov/backtester/internal/services/registry"
	"github.com/vadiminshakov/backtester/internal/services/strategy"
	"go.uber.org/zap"
)

// scriptedStrategy replays a fixed order per step, nil means hold.
type scriptedStrategy struct {
	id     string
	orders map[int]*domain.TradeOrder
}

func (s *scriptedStrategy) ID() string                                 { return s.id }
func (s *scriptedStrategy) IsReady() bool                              { return true }
func (s *scriptedStrategy) Configure(map[string]decimal.Decimal) error { return nil }
func (s *scriptedStrategy) Initialize(context.Context) error           { return nil }
func (s *scriptedStrategy) Decide(_ context.Context, input strategy.Input) (*domain.TradeOrder, error) {
	order, ok := s.orders[input.State.Step]
	if !ok {
		return nil, nil
	}
	clone := *order
	return &clone, nil
}

func candleSeries(closes ...int64) []domain.MarketCandle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]domain.MarketCandle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		candles[i] = domain.MarketCandle{
			OpenTime:  base.Add(time.Duration(i) * time.Hour),
			Open:      decimal.NewFromInt(open),
			High:      decimal.NewFromInt(c + 10),
			Low:       decimal.NewFromInt(c - 10),
			Close:     decimal.NewFromInt(c),
			Volume:    decimal.NewFromInt(100),
			CloseTime: base.Add(time.Duration(i+1) * time.Hour),
		}
	}
	return candles
}

func testEngine(t *testing.T, strat strategy.Strategy, candles []domain.MarketCandle) *Engine {
	t.Helper()

	reg := registry.New()
	require.NoError(t, reg.Register(strat))

	sources := market.Sources{market.SourceStatic: market.NewStaticProvider(candles)}

	return New(reg, sources, zap.NewNop())
}

func testParams(strategyID string, candles []domain.MarketCandle) Params {
	return Params{
		StrategyID:     strategyID,
		Pair:           testPair,
		Interval:       "1h",
		Start:          candles[0].OpenTime,
		End:            candles[len(candles)-1].OpenTime.Add(time.Hour),
		InitialCapital: decimal.NewFromInt(10000),
		DataSource:     market.SourceStatic,
	}
}

func TestRunUnknownStrategy(t *testing.T) {
	candles := candleSeries(100, 110)
	eng := testEngine(t, &scriptedStrategy{id: "noop"}, candles)

	_, err := eng.Run(context.Background(), testParams("missing", candles))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrStrategyNotFound))
}

func TestRunNoData(t *testing.T) {
	candles := candleSeries(100, 110)
	eng := testEngine(t, &scriptedStrategy{id: "noop"}, nil)

	_, err := eng.Run(context.Background(), testParams("noop", candles))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNoData))
}

func TestRunInvalidParams(t *testing.T) {
	candles := candleSeries(100, 110)
	eng := testEngine(t, &scriptedStrategy{id: "noop"}, candles)

	params := testParams("noop", candles)
	params.End = params.Start
	_, err := eng.Run(context.Background(), params)
	require.True(t, errors.Is(err, market.ErrInvalidDateRange))

	params = testParams("noop", candles)
	params.InitialCapital = decimal.Zero
	_, err = eng.Run(context.Background(), params)
	require.Error(t, err)
}

func TestRunHoldOnlyStrategy(t *testing.T) {
	candles := candleSeries(100, 110, 120, 90)
	eng := testEngine(t, &scriptedStrategy{id: "noop"}, candles)

	report, err := eng.Run(context.Background(), testParams("noop", candles))
	require.NoError(t, err)

	require.Empty(t, report.Trades)
	require.True(t, report.FinalCapital.Equal(report.InitialCapital))
	require.Len(t, report.Snapshots, 1, "a run without executed orders keeps only the initial snapshot")
	require.Equal(t, candles[0].OpenTime, report.Snapshots[0].Time)
	require.True(t, report.Metrics.TotalPnLAbsolute.IsZero())
}

func TestRunBuyThenSell(t *testing.T) {
	candles := candleSeries(100, 105, 120)
	strat := &scriptedStrategy{
		id: "scripted",
		orders: map[int]*domain.TradeOrder{
			0: {Pair: testPair, Action: domain.ActionBuy, Quantity: decimal.NewFromInt(10), Type: domain.OrderTypeMarket},
			2: {Pair: testPair, Action: domain.ActionSell, Quantity: decimal.NewFromInt(10), Type: domain.OrderTypeMarket},
		},
	}
	eng := testEngine(t, strat, candles)

	report, err := eng.Run(context.Background(), testParams("scripted", candles))
	require.NoError(t, err)

	require.Len(t, report.Trades, 2)
	require.Equal(t, "scripted-0", report.Trades[0].Order.ID)
	require.Equal(t, "scripted-2", report.Trades[1].Order.ID)

	// initial snapshot plus one per executed order
	require.Len(t, report.Snapshots, 3)
	require.Equal(t, candles[0].CloseTime, report.Snapshots[1].Time)
	require.Equal(t, candles[2].CloseTime, report.Snapshots[2].Time)

	// buy 10 @ 100, sell 10 @ 120, no fee or slippage
	require.True(t, report.FinalCapital.Equal(decimal.NewFromInt(10200)))
	require.True(t, report.Metrics.TotalPnLAbsolute.Equal(decimal.NewFromInt(200)))
	require.True(t, report.Metrics.TotalPnLPercent.Equal(decimal.NewFromInt(2)))
	require.Equal(t, 1, report.Metrics.WinningTrades)

	// buy-and-hold over the same range: 100 -> 120
	require.NotNil(t, report.Metrics.BuyAndHoldPnLPercent)
	require.True(t, report.Metrics.BuyAndHoldPnLPercent.Equal(decimal.NewFromInt(20)))
}

func TestRunRejectedOrderLeavesPortfolioIntact(t *testing.T) {
	candles := candleSeries(100, 110)
	strat := &scriptedStrategy{
		id: "greedy",
		orders: map[int]*domain.TradeOrder{
			// far more than the capital can cover
			0: {Pair: testPair, Action: domain.ActionBuy, Quantity: decimal.NewFromInt(1000), Type: domain.OrderTypeMarket},
		},
	}
	eng := testEngine(t, strat, candles)

	report, err := eng.Run(context.Background(), testParams("greedy", candles))
	require.NoError(t, err, "rejection is a simulation outcome, not an error")
	require.Empty(t, report.Trades)
	require.True(t, report.FinalCapital.Equal(decimal.NewFromInt(10000)))
	require.Len(t, report.Snapshots, 1, "a rejected order leaves the snapshot history unchanged")
}

func TestRunDeterministic(t *testing.T) {
	candles := candleSeries(100, 105, 95, 110, 120, 90, 130)
	strat := &scriptedStrategy{
		id: "scripted",
		orders: map[int]*domain.TradeOrder{
			1: {Pair: testPair, Action: domain.ActionBuy, Quantity: decimal.NewFromInt(20), Type: domain.OrderTypeMarket},
			4: {Pair: testPair, Action: domain.ActionSell, Quantity: decimal.NewFromInt(20), Type: domain.OrderTypeMarket},
			5: {Pair: testPair, Action: domain.ActionBuy, Quantity: decimal.NewFromInt(5), Type: domain.OrderTypeMarket},
		},
	}
	eng := testEngine(t, strat, candles)
	params := testParams("scripted", candles)
	params.FeePercent = decimal.NewFromFloat(0.001)
	params.SlippagePercent = decimal.NewFromFloat(0.0005)

	first, err := eng.Run(context.Background(), params)
	require.NoError(t, err)
	second, err := eng.Run(context.Background(), params)
	require.NoError(t, err)

	require.NotEqual(t, first.RunID, second.RunID)
	require.Equal(t, len(first.Trades), len(second.Trades))
	for i := range first.Trades {
		require.Equal(t, first.Trades[i].Order.ID, second.Trades[i].Order.ID)
		require.True(t, first.Trades[i].ExecutedPrice.Equal(second.Trades[i].ExecutedPrice))
		require.True(t, first.Trades[i].Fee.Equal(second.Trades[i].Fee))
	}
	require.Equal(t, len(first.Snapshots), len(second.Snapshots))
	for i := range first.Snapshots {
		require.True(t, first.Snapshots[i].TotalValue.Equal(second.Snapshots[i].TotalValue))
	}
	require.True(t, first.FinalCapital.Equal(second.FinalCapital))
	require.True(t, first.Metrics.TotalPnLAbsolute.Equal(second.Metrics.TotalPnLAbsolute))
}

func TestRunContextCancellation(t *testing.T) {
	candles := candleSeries(100, 110, 120)
	eng := testEngine(t, &scriptedStrategy{id: "noop"}, candles)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Run(ctx, testParams("noop", candles))
	require.ErrorIs(t, err, context.Canceled)
}
