// Package market provides historical candle providers for backtesting.
// Every provider returns candles in chronological order covering the
// half-open range [start, end). An empty range result is not an error.
package market

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/backtester/internal/domain"
)

// ErrInvalidDateRange is returned when the requested start is not before end.
var ErrInvalidDateRange = errors.New("invalid date range: start must be before end")

// Known data source identifiers.
const (
	SourceBinance     = "binance"
	SourceBybit       = "bybit"
	SourceHyperliquid = "hyperliquid"
	SourceCSV         = "csv"
	SourceStatic      = "static"
)

// CandleProvider fetches historical candles for a pair and interval.
type CandleProvider interface {
	GetCandles(ctx context.Context, pair domain.Pair, interval string, start, end time.Time) ([]domain.MarketCandle, error)
}

// Sources maps data source identifiers to providers.
type Sources map[string]CandleProvider

// Get returns the provider registered under id, nil when absent.
func (s Sources) Get(id string) CandleProvider {
	return s[id]
}

func validateRange(start, end time.Time) error {
	if !start.Before(end) {
		return ErrInvalidDateRange
	}
	return nil
}

// filterRange keeps candles whose open time falls in [start, end) and sorts
// them chronologically.
func filterRange(candles []domain.MarketCandle, start, end time.Time) []domain.MarketCandle {
	out := make([]domain.MarketCandle, 0, len(candles))
	for _, c := range candles {
		if c.OpenTime.Before(start) || !c.OpenTime.Before(end) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OpenTime.Before(out[j].OpenTime)
	})

	return out
}

// intervalDuration parses intervals like "1m", "4h", "1d", "1w".
func intervalDuration(interval string) (time.Duration, error) {
	if len(interval) < 2 {
		return 0, errors.Errorf("invalid interval: %s", interval)
	}
	unit := interval[len(interval)-1]
	value := interval[:len(interval)-1]

	var n int64
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0, errors.Errorf("invalid interval number: %s", interval)
		}
		n = n*10 + int64(r-'0')
	}
	if n == 0 {
		return 0, errors.Errorf("invalid interval: %s", interval)
	}

	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, errors.Errorf("unsupported interval unit: %c", unit)
	}
}
