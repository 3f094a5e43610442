package market

import (
	"context"
	"time"

	"github.com/vadiminshakov/backtester/internal/domain"
)

// StaticProvider serves a fixed in-memory candle set. Used by tests and as
// the data source for pre-fetched runs.
type StaticProvider struct {
	candles []domain.MarketCandle
}

// NewStaticProvider creates a provider over the given candles.
func NewStaticProvider(candles []domain.MarketCandle) *StaticProvider {
	return &StaticProvider{candles: candles}
}

// GetCandles returns the stored candles falling in [start, end).
func (p *StaticProvider) GetCandles(_ context.Context, _ domain.Pair, _ string, start, end time.Time) ([]domain.MarketCandle, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	return filterRange(p.candles, start, end), nil
}
