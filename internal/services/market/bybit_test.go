package market

import (
	"testing"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestBybitCandleCloseTime(t *testing.T) {
	item := bybit.V5GetKlineItem{
		StartTime: "1704067200000", // 2024-01-01T00:00:00Z
		Open:      "42000.5",
		High:      "42500",
		Low:       "41800",
		Close:     "42300.25",
		Volume:    "123.456",
	}

	candle, err := bybitCandle(item, time.Hour)
	require.NoError(t, err)
	require.True(t, candle.OpenTime.Equal(time.UnixMilli(1704067200000)))
	require.True(t, candle.CloseTime.Equal(candle.OpenTime.Add(time.Hour)))
	require.True(t, candle.Open.Equal(decimal.RequireFromString("42000.5")))
	require.True(t, candle.Close.Equal(decimal.RequireFromString("42300.25")))

	// unknown interval span falls back to the open time
	candle, err = bybitCandle(item, 0)
	require.NoError(t, err)
	require.True(t, candle.CloseTime.Equal(candle.OpenTime))
}

func TestBybitCandleRejectsBadFields(t *testing.T) {
	item := bybit.V5GetKlineItem{
		StartTime: "1704067200000",
		Open:      "not-a-number",
		High:      "42500",
		Low:       "41800",
		Close:     "42300",
		Volume:    "1",
	}
	_, err := bybitCandle(item, time.Hour)
	require.Error(t, err)

	item.Open = "42000"
	item.StartTime = ""
	_, err = bybitCandle(item, time.Hour)
	require.Error(t, err)
}

func TestConvertIntervalToBybit(t *testing.T) {
	cases := map[string]string{
		"1m":  "1",
		"15m": "15",
		"1h":  "60",
		"4h":  "240",
		"1d":  "D",
		"1w":  "W",
	}
	for in, want := range cases {
		got, err := convertIntervalToBybit(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := convertIntervalToBybit("x")
	require.Error(t, err)
	_, err = convertIntervalToBybit("1y")
	require.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := parseTimestamp("1704067200000")
	require.NoError(t, err)
	require.True(t, ts.Equal(time.UnixMilli(1704067200000)))

	_, err = parseTimestamp("")
	require.Error(t, err)
}
