package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func candleAt(hour int, open, high, low, close, volume int64) MarketCandle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return MarketCandle{
		OpenTime:  base.Add(time.Duration(hour) * time.Hour),
		Open:      decimal.NewFromInt(open),
		High:      decimal.NewFromInt(high),
		Low:       decimal.NewFromInt(low),
		Close:     decimal.NewFromInt(close),
		Volume:    decimal.NewFromInt(volume),
		CloseTime: base.Add(time.Duration(hour+1) * time.Hour),
	}
}

func TestValidateCandleOrdering(t *testing.T) {
	ordered := []MarketCandle{candleAt(0, 100, 110, 90, 105, 10), candleAt(1, 105, 115, 95, 110, 12)}
	require.NoError(t, ValidateCandleOrdering(ordered))

	// equal open times are allowed
	same := []MarketCandle{candleAt(0, 100, 110, 90, 105, 10), candleAt(0, 105, 115, 95, 110, 12)}
	require.NoError(t, ValidateCandleOrdering(same))

	unordered := []MarketCandle{candleAt(1, 105, 115, 95, 110, 12), candleAt(0, 100, 110, 90, 105, 10)}
	require.Error(t, ValidateCandleOrdering(unordered))

	require.NoError(t, ValidateCandleOrdering(nil))
}

func TestAggregateCandles(t *testing.T) {
	candles := []MarketCandle{
		candleAt(0, 100, 120, 95, 110, 10),
		candleAt(1, 110, 130, 105, 125, 20),
		candleAt(2, 125, 128, 100, 102, 30),
		candleAt(3, 102, 140, 101, 135, 40),
		candleAt(4, 135, 150, 130, 145, 50),
	}

	aggregated := AggregateCandles(candles, 2)
	require.Len(t, aggregated, 3)

	first := aggregated[0]
	require.True(t, first.Open.Equal(decimal.NewFromInt(100)))
	require.True(t, first.High.Equal(decimal.NewFromInt(130)))
	require.True(t, first.Low.Equal(decimal.NewFromInt(95)))
	require.True(t, first.Close.Equal(decimal.NewFromInt(125)))
	require.True(t, first.Volume.Equal(decimal.NewFromInt(30)))
	require.True(t, first.OpenTime.Equal(candles[0].OpenTime))
	require.True(t, first.CloseTime.Equal(candles[1].CloseTime))

	// trailing partial group survives
	last := aggregated[2]
	require.True(t, last.Open.Equal(decimal.NewFromInt(135)))
	require.True(t, last.Close.Equal(decimal.NewFromInt(145)))
	require.True(t, last.Volume.Equal(decimal.NewFromInt(50)))

	// factor 1 is a no-op
	require.Len(t, AggregateCandles(candles, 1), len(candles))
	require.Empty(t, AggregateCandles(nil, 4))
}

func TestPortfolioSnapshotTotalValue(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	snapshot := NewPortfolioSnapshot(ts, "USDT",
		decimal.NewFromInt(5000),
		map[string]decimal.Decimal{"BTC": decimal.NewFromFloat(0.5)},
		map[string]decimal.Decimal{"BTC": decimal.NewFromInt(10000)},
	)

	require.True(t, snapshot.TotalValue.Equal(decimal.NewFromInt(10000)), "5000 cash + 0.5*10000")
	require.True(t, snapshot.Holding("USDT").Equal(decimal.NewFromInt(5000)))
	require.True(t, snapshot.Holding("BTC").Equal(decimal.NewFromFloat(0.5)))
	require.True(t, snapshot.Holding("ETH").IsZero())

	clone := snapshot.Clone()
	clone.Holdings["BTC"] = decimal.Zero
	require.True(t, snapshot.Holding("BTC").Equal(decimal.NewFromFloat(0.5)), "clone must not alias holdings")
}
