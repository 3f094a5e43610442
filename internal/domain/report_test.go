package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testReport(t *testing.T) Report {
	t.Helper()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pnl := decimal.NewFromInt(200)
	sharpe := 0.42
	bh := decimal.NewFromInt(20)
	first := decimal.NewFromInt(100)
	last := decimal.NewFromInt(120)

	return Report{
		RunID:          "run-1",
		StrategyID:     "rules",
		Pair:           Pair{From: "BTC", To: "USDT"},
		Interval:       "1h",
		Start:          start,
		End:            start.Add(48 * time.Hour),
		InitialCapital: decimal.NewFromInt(10000),
		FinalCapital:   decimal.NewFromInt(10200),
		Trades: []Trade{
			{
				Order: TradeOrder{
					ID:       "rules-3",
					Pair:     Pair{From: "BTC", To: "USDT"},
					Action:   ActionBuy,
					Quantity: decimal.NewFromInt(10),
					Type:     OrderTypeMarket,
					Time:     start.Add(3 * time.Hour),
					Reason:   "test buy",
				},
				ExecutedPrice: decimal.NewFromInt(100),
				ExecutedAt:    start.Add(4 * time.Hour),
				Fee:           decimal.Zero,
			},
			{
				Order: TradeOrder{
					ID:         "rules-7",
					Pair:       Pair{From: "BTC", To: "USDT"},
					Action:     ActionSell,
					Quantity:   decimal.NewFromInt(10),
					Type:       OrderTypeLimit,
					LimitPrice: decimal.NewFromInt(120),
					Time:       start.Add(7 * time.Hour),
				},
				ExecutedPrice: decimal.NewFromInt(120),
				ExecutedAt:    start.Add(8 * time.Hour),
				Fee:           decimal.Zero,
				RealizedPnL:   &pnl,
			},
		},
		Snapshots: []PortfolioSnapshot{
			{
				Time:       start,
				TotalValue: decimal.NewFromInt(10000),
				Holdings:   map[string]decimal.Decimal{"USDT": decimal.NewFromInt(10000)},
			},
			{
				Time:       start.Add(8 * time.Hour),
				TotalValue: decimal.NewFromInt(10200),
				Holdings:   map[string]decimal.Decimal{"USDT": decimal.NewFromInt(10200)},
			},
		},
		Metrics: PerformanceMetrics{
			TotalPnLAbsolute:     decimal.NewFromInt(200),
			TotalPnLPercent:      decimal.NewFromInt(2),
			TotalTrades:          2,
			WinningTrades:        1,
			LosingTrades:         0,
			WinLossRatio:         math.Inf(1),
			AverageWinAmount:     decimal.NewFromInt(200),
			MaxDrawdown:          decimal.Zero,
			SharpeRatio:          &sharpe,
			BuyAndHoldPnLPercent: &bh,
			FirstAssetPrice:      &first,
			LastAssetPrice:       &last,
		},
		CreatedAt: start.Add(49 * time.Hour),
	}
}

func TestReportJSONRoundTrip(t *testing.T) {
	original := testReport(t)

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var restored Report
	require.NoError(t, json.Unmarshal(data, &restored))

	require.Equal(t, original.RunID, restored.RunID)
	require.Equal(t, original.StrategyID, restored.StrategyID)
	require.Equal(t, original.Pair, restored.Pair)
	require.Equal(t, original.Interval, restored.Interval)
	require.True(t, original.Start.Equal(restored.Start))
	require.True(t, original.End.Equal(restored.End))
	require.True(t, original.InitialCapital.Equal(restored.InitialCapital))
	require.True(t, original.FinalCapital.Equal(restored.FinalCapital))
	require.True(t, original.CreatedAt.Equal(restored.CreatedAt))

	require.Len(t, restored.Trades, 2)
	require.Equal(t, "rules-3", restored.Trades[0].Order.ID)
	require.Equal(t, ActionBuy, restored.Trades[0].Order.Action)
	require.Equal(t, OrderTypeLimit, restored.Trades[1].Order.Type)
	require.True(t, restored.Trades[1].Order.LimitPrice.Equal(decimal.NewFromInt(120)))
	require.NotNil(t, restored.Trades[1].RealizedPnL)
	require.True(t, restored.Trades[1].RealizedPnL.Equal(decimal.NewFromInt(200)))
	require.Nil(t, restored.Trades[0].RealizedPnL)

	require.Len(t, restored.Snapshots, 2)
	require.True(t, restored.Snapshots[1].TotalValue.Equal(decimal.NewFromInt(10200)))
	require.True(t, restored.Snapshots[1].Holdings["USDT"].Equal(decimal.NewFromInt(10200)))
}

func TestMetricsJSONRoundTripInfiniteRatio(t *testing.T) {
	original := testReport(t).Metrics

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var restored PerformanceMetrics
	require.NoError(t, json.Unmarshal(data, &restored))

	require.True(t, math.IsInf(restored.WinLossRatio, 1), "win/loss ratio must survive as +Inf")
	require.NotNil(t, restored.SharpeRatio)
	require.InDelta(t, 0.42, *restored.SharpeRatio, 1e-12)
	require.NotNil(t, restored.BuyAndHoldPnLPercent)
	require.True(t, restored.BuyAndHoldPnLPercent.Equal(decimal.NewFromInt(20)))
}

func TestMetricsJSONNilOptionals(t *testing.T) {
	original := PerformanceMetrics{
		TotalPnLAbsolute: decimal.Zero,
		TotalPnLPercent:  decimal.Zero,
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var restored PerformanceMetrics
	require.NoError(t, json.Unmarshal(data, &restored))

	require.Nil(t, restored.SharpeRatio)
	require.Nil(t, restored.BuyAndHoldPnLPercent)
	require.Zero(t, restored.WinLossRatio)
}
