package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestTimeframeIndicatorAlignment(t *testing.T) {
	candles := []MarketCandle{
		candleAt(0, 100, 110, 90, 105, 10),
		candleAt(1, 105, 115, 95, 110, 12),
		candleAt(2, 110, 120, 100, 118, 14),
	}
	// warmup of one candle, indicators exist for candles 1 and 2
	inds := []TechnicalIndicators{
		{EMA20: decimal.NewFromInt(104), EMA50: decimal.NewFromInt(102), RSI14: decimal.NewFromInt(55)},
		{EMA20: decimal.NewFromInt(108), EMA50: decimal.NewFromInt(104), RSI14: decimal.NewFromInt(60)},
	}

	tf := NewTimeframe("4h", candles, inds)

	_, ok := tf.IndicatorForCandle(0)
	require.False(t, ok, "warmup candles carry no indicator values")

	ind, ok := tf.IndicatorForCandle(1)
	require.True(t, ok)
	require.True(t, ind.EMA20.Equal(decimal.NewFromInt(104)))

	ind, ok = tf.IndicatorForCandle(2)
	require.True(t, ok)
	require.True(t, ind.RSI14.Equal(decimal.NewFromInt(60)))

	_, ok = tf.IndicatorForCandle(3)
	require.False(t, ok)
}

func TestTimeframeLatestAccessors(t *testing.T) {
	candles := []MarketCandle{
		candleAt(0, 100, 110, 90, 105, 10),
		candleAt(1, 105, 115, 95, 112, 12),
	}
	inds := []TechnicalIndicators{
		{EMA20: decimal.NewFromInt(106), EMA50: decimal.NewFromInt(103), RSI14: decimal.NewFromInt(58)},
	}

	tf := NewTimeframe("4h", candles, inds)

	candle, ok := tf.LatestCandle()
	require.True(t, ok)
	require.True(t, candle.Close.Equal(decimal.NewFromInt(112)))

	price, ok := tf.LatestPrice()
	require.True(t, ok)
	require.True(t, price.Equal(decimal.NewFromInt(112)))

	ind, ok := tf.LatestIndicator()
	require.True(t, ok)
	require.True(t, ind.EMA20.Equal(decimal.NewFromInt(106)))
}

func TestTimeframeSummary(t *testing.T) {
	candles := []MarketCandle{candleAt(0, 100, 115, 95, 112, 10)}
	inds := []TechnicalIndicators{
		{EMA20: decimal.NewFromInt(106), EMA50: decimal.NewFromInt(103), RSI14: decimal.NewFromInt(58)},
	}

	tf := NewTimeframe("4h", candles, inds)
	require.NotNil(t, tf.Summary)
	require.Equal(t, "4h", tf.Summary.Interval)
	require.True(t, tf.Summary.Price.Equal(decimal.NewFromInt(112)))
	require.Equal(t, TrendDirectionBullish, tf.Summary.Trend)
}

func TestTimeframeSummaryMissingData(t *testing.T) {
	require.Nil(t, NewTimeframe("4h", nil, nil).Summary)

	// candles present but every one of them is inside the warmup
	tf := NewTimeframe("4h", []MarketCandle{candleAt(0, 100, 110, 90, 105, 10)}, nil)
	require.Nil(t, tf.Summary)
}
