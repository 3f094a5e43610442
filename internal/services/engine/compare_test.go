package engine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/backtester/internal/domain"
	"github.com/vadiminshakov/backtester/internal/services/market"
	"github.com/vadiminshakov/backtester/internal/services/registry"
	"go.uber.org/zap"
)

func TestComparisonRun(t *testing.T) {
	candles := candleSeries(100, 105, 120)

	holder := &scriptedStrategy{id: "holder"}
	trader := &scriptedStrategy{
		id: "trader",
		orders: map[int]*domain.TradeOrder{
			0: {Pair: testPair, Action: domain.ActionBuy, Quantity: decimal.NewFromInt(10), Type: domain.OrderTypeMarket},
			2: {Pair: testPair, Action: domain.ActionSell, Quantity: decimal.NewFromInt(10), Type: domain.OrderTypeMarket},
		},
	}

	reg := registry.New()
	require.NoError(t, reg.Register(holder))
	require.NoError(t, reg.Register(trader))

	sources := market.Sources{market.SourceStatic: market.NewStaticProvider(candles)}
	cmp := NewComparison(New(reg, sources, zap.NewNop()))

	reports, err := cmp.Run(context.Background(), testParams("", candles), []string{"trader", "holder"})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	// results arrive in request order
	require.Equal(t, "trader", reports[0].StrategyID)
	require.Equal(t, "holder", reports[1].StrategyID)

	// isolated ledgers: the holder's result is unaffected by the trader's
	require.True(t, reports[0].FinalCapital.Equal(decimal.NewFromInt(10200)))
	require.True(t, reports[1].FinalCapital.Equal(decimal.NewFromInt(10000)))
	require.Empty(t, reports[1].Trades)
}

func TestComparisonRejectsDuplicates(t *testing.T) {
	candles := candleSeries(100, 110)
	eng := testEngine(t, &scriptedStrategy{id: "noop"}, candles)

	_, err := NewComparison(eng).Run(context.Background(), testParams("", candles), []string{"noop", "noop"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate")
}

func TestComparisonRejectsEmptyList(t *testing.T) {
	candles := candleSeries(100, 110)
	eng := testEngine(t, &scriptedStrategy{id: "noop"}, candles)

	_, err := NewComparison(eng).Run(context.Background(), testParams("", candles), nil)
	require.Error(t, err)
}

func TestComparisonPropagatesRunError(t *testing.T) {
	candles := candleSeries(100, 110)
	eng := testEngine(t, &scriptedStrategy{id: "noop"}, candles)

	_, err := NewComparison(eng).Run(context.Background(), testParams("", candles), []string{"noop", "missing"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing")
}
