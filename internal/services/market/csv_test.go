package market

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/backtester/internal/domain"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "csvprovider")
	require.NoError(t, err)
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})

	path := filepath.Join(dir, "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestCSVProviderGetCandles(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	path := writeCSV(t,
		"timestamp,open,high,low,close,volume\n"+
			"1704067200000,100,110,90,105,10\n"+
			"1704070800000,105,115,95,110,20\n"+
			"1704074400000,110,120,100,115,30\n")

	provider := NewCSVProvider(path)
	candles, err := provider.GetCandles(context.Background(), domain.Pair{From: "BTC", To: "USDT"}, "1h", base, base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, candles, 3, "header row is skipped")

	require.True(t, candles[0].OpenTime.Equal(base))
	require.True(t, candles[0].Open.Equal(decimal.NewFromInt(100)))
	require.True(t, candles[0].Close.Equal(decimal.NewFromInt(105)))
	require.True(t, candles[0].CloseTime.Equal(base.Add(time.Hour)), "close time follows the interval")
}

func TestCSVProviderRFC3339Timestamps(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	path := writeCSV(t,
		"2024-01-01T00:00:00Z,100,110,90,105,10\n"+
			"2024-01-01T01:00:00Z,105,115,95,110,20\n")

	provider := NewCSVProvider(path)
	candles, err := provider.GetCandles(context.Background(), domain.Pair{From: "BTC", To: "USDT"}, "1h", base, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, candles, 2, "no header row works too")
	require.True(t, candles[1].OpenTime.Equal(base.Add(time.Hour)))
}

func TestCSVProviderRangeFilter(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	path := writeCSV(t,
		"1704067200000,100,110,90,105,10\n"+
			"1704070800000,105,115,95,110,20\n"+
			"1704074400000,110,120,100,115,30\n")

	provider := NewCSVProvider(path)
	// [start, end) keeps the first two candles only
	candles, err := provider.GetCandles(context.Background(), domain.Pair{From: "BTC", To: "USDT"}, "1h", base, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, candles, 2)
	require.True(t, candles[1].Close.Equal(decimal.NewFromInt(110)))
}

func TestCSVProviderInvalidRange(t *testing.T) {
	path := writeCSV(t, "1704067200000,100,110,90,105,10\n")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	provider := NewCSVProvider(path)
	_, err := provider.GetCandles(context.Background(), domain.Pair{From: "BTC", To: "USDT"}, "1h", base, base)
	require.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestCSVProviderBadData(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := base.Add(time.Hour)

	provider := NewCSVProvider(writeCSV(t, "1704067200000,100,110,90\n"))
	_, err := provider.GetCandles(context.Background(), domain.Pair{From: "BTC", To: "USDT"}, "1h", base, end)
	require.Error(t, err, "short rows are rejected")

	provider = NewCSVProvider(writeCSV(t, "1704067200000,abc,110,90,105,10\n"))
	_, err = provider.GetCandles(context.Background(), domain.Pair{From: "BTC", To: "USDT"}, "1h", base, end)
	require.Error(t, err, "non-numeric prices are rejected")

	provider = NewCSVProvider(filepath.Join(os.TempDir(), "does-not-exist.csv"))
	_, err = provider.GetCandles(context.Background(), domain.Pair{From: "BTC", To: "USDT"}, "1h", base, end)
	require.Error(t, err)
}
