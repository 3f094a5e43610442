package random

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/backtester/internal/domain"
	"github.com/vadiminshakov/backtester/internal/services/strategy"
	"go.uber.org/zap"
)

func testInput(step int, cash, held int64) strategy.Input {
	pair := domain.Pair{From: "BTC", To: "USDT"}
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assets := map[string]decimal.Decimal{}
	marks := map[string]decimal.Decimal{}
	if held > 0 {
		assets[pair.From] = decimal.NewFromInt(held)
		marks[pair.From] = decimal.NewFromInt(100)
	}

	return strategy.Input{
		Market: strategy.MarketData{
			CurrentPrice: decimal.NewFromInt(100),
			Candles: []domain.MarketCandle{{
				OpenTime:  ts,
				Open:      decimal.NewFromInt(100),
				High:      decimal.NewFromInt(105),
				Low:       decimal.NewFromInt(95),
				Close:     decimal.NewFromInt(100),
				Volume:    decimal.NewFromInt(10),
				CloseTime: ts.Add(time.Hour),
			}},
		},
		State: strategy.AgentState{
			Pair:         pair,
			Interval:     "1h",
			Step:         step,
			PositionSize: decimal.NewFromInt(held),
		},
		Portfolio: domain.NewPortfolioSnapshot(ts, pair.To, decimal.NewFromInt(cash), assets, marks),
	}
}

func TestDecideReproducible(t *testing.T) {
	first := New(zap.NewNop(), 42)
	second := New(zap.NewNop(), 42)

	for step := 0; step < 200; step++ {
		input := testInput(step, 10000, 5)

		a, err := first.Decide(context.Background(), input)
		require.NoError(t, err)
		b, err := second.Decide(context.Background(), input)
		require.NoError(t, err)

		if a == nil {
			require.Nil(t, b)
			continue
		}
		require.NotNil(t, b)
		require.Equal(t, a.Action, b.Action)
		require.True(t, a.Quantity.Equal(b.Quantity))
	}
}

func TestDecideSameStepSameDecision(t *testing.T) {
	s := New(zap.NewNop(), 7)
	input := testInput(3, 10000, 5)

	a, err := s.Decide(context.Background(), input)
	require.NoError(t, err)
	b, err := s.Decide(context.Background(), input)
	require.NoError(t, err)

	if a == nil {
		require.Nil(t, b, "repeating a step replays the same decision")
		return
	}
	require.NotNil(t, b)
	require.Equal(t, a.Action, b.Action)
}

func TestDecideTradesEventually(t *testing.T) {
	s := New(zap.NewNop(), 42)
	require.NoError(t, s.Configure(map[string]decimal.Decimal{
		"buy_probability":  decimal.NewFromFloat(0.5),
		"sell_probability": decimal.NewFromFloat(0.5),
	}))

	var buys, sells int
	for step := 0; step < 100; step++ {
		order, err := s.Decide(context.Background(), testInput(step, 10000, 5))
		require.NoError(t, err)
		if order == nil {
			continue
		}
		switch order.Action {
		case domain.ActionBuy:
			buys++
		case domain.ActionSell:
			sells++
		}
	}
	require.Positive(t, buys)
	require.Positive(t, sells)
}

func TestDecideNoSellWithoutPosition(t *testing.T) {
	s := New(zap.NewNop(), 42)
	require.NoError(t, s.Configure(map[string]decimal.Decimal{
		"buy_probability":  decimal.Zero,
		"sell_probability": decimal.NewFromInt(1),
	}))

	for step := 0; step < 20; step++ {
		order, err := s.Decide(context.Background(), testInput(step, 10000, 0))
		require.NoError(t, err)
		require.Nil(t, order)
	}
}

func TestConfigureValidation(t *testing.T) {
	s := New(zap.NewNop(), 1)

	err := s.Configure(map[string]decimal.Decimal{"buy_probability": decimal.NewFromInt(2)})
	require.ErrorIs(t, err, strategy.ErrInvalidParams)

	err = s.Configure(map[string]decimal.Decimal{
		"buy_probability":  decimal.NewFromFloat(0.7),
		"sell_probability": decimal.NewFromFloat(0.7),
	})
	require.ErrorIs(t, err, strategy.ErrInvalidParams, "probabilities must not sum above 1")
	require.Equal(t, 0.1, s.buyProb, "rejected configure leaves the defaults intact")
	require.Equal(t, 0.1, s.sellProb)

	err = s.Configure(map[string]decimal.Decimal{"bogus": decimal.NewFromInt(1)})
	require.ErrorIs(t, err, strategy.ErrInvalidParams)

	// still configurable after rejected calls
	require.NoError(t, s.Configure(map[string]decimal.Decimal{"seed": decimal.NewFromInt(99)}))
	require.Equal(t, int64(99), s.seed)
}
