package market

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"github.com/vadiminshakov/backtester/internal/domain"
	"github.com/vadiminshakov/backtester/pkg/retrier"
)

// HyperliquidProvider fetches historical candles from Hyperliquid.
type HyperliquidProvider struct {
	info    *hyperliquid.Info
	retrier *retrier.Retrier
}

// NewHyperliquidProvider creates a new Hyperliquid candle provider.
func NewHyperliquidProvider(info *hyperliquid.Info) *HyperliquidProvider {
	return &HyperliquidProvider{
		info:    info,
		retrier: retrier.New(),
	}
}

// GetCandles fetches candles for [start, end).
func (p *HyperliquidProvider) GetCandles(ctx context.Context, pair domain.Pair, interval string, start, end time.Time) ([]domain.MarketCandle, error) {
	if p.info == nil {
		return nil, errors.New("hyperliquid info is nil")
	}
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	// Hyperliquid keys candles by the coin name (base), e.g. "BTC"
	coin := strings.ToUpper(pair.From)

	out, err := retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) ([]domain.MarketCandle, error) {
		candles, err := p.info.CandlesSnapshot(ctx, coin, interval, start.UnixMilli(), end.UnixMilli())
		if err != nil {
			return nil, err
		}

		parsed := make([]domain.MarketCandle, 0, len(candles))
		for i, c := range candles {
			open, err := decimal.NewFromString(c.Open)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse open price at index %d", i)
			}
			high, err := decimal.NewFromString(c.High)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse high price at index %d", i)
			}
			low, err := decimal.NewFromString(c.Low)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse low price at index %d", i)
			}
			closeP, err := decimal.NewFromString(c.Close)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse close price at index %d", i)
			}
			volume, err := decimal.NewFromString(c.Volume)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse volume at index %d", i)
			}

			parsed = append(parsed, domain.MarketCandle{
				OpenTime:  time.UnixMilli(c.TimeOpen),
				Open:      open,
				High:      high,
				Low:       low,
				Close:     closeP,
				Volume:    volume,
				CloseTime: time.UnixMilli(c.TimeClose),
			})
		}

		return parsed, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch candles from Hyperliquid for %s", coin)
	}

	return filterRange(out, start, end), nil
}
