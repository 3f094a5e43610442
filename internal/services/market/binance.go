package market

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
	"github.com/vadiminshakov/backtester/pkg/retrier"
)

const binanceMaxPerRequest = 1000

// BinanceProvider fetches historical candles from Binance.
type BinanceProvider struct {
	client  *binance.Client
	retrier *retrier.Retrier
}

// NewBinanceProvider creates a new Binance candle provider.
func NewBinanceProvider(client *binance.Client) *BinanceProvider {
	return &BinanceProvider{
		client:  client,
		retrier: retrier.New(),
	}
}

// GetCandles fetches candles for [start, end), paginating past the 1000
// candle per-request cap.
func (p *BinanceProvider) GetCandles(ctx context.Context, pair domain.Pair, interval string, start, end time.Time) ([]domain.MarketCandle, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	symbol := pair.Symbol()
	startMs := start.UnixMilli()
	endMs := end.UnixMilli()

	var all []domain.MarketCandle
	for startMs < endMs {
		cursor := startMs
		klines, err := retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) ([]*binance.Kline, error) {
			return p.client.NewKlinesService().
				Symbol(symbol).
				Interval(interval).
				StartTime(cursor).
				EndTime(endMs).
				Limit(binanceMaxPerRequest).
				Do(ctx)
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", pair.String())
		}
		if len(klines) == 0 {
			break
		}

		for i, k := range klines {
			candle, err := binanceCandle(k)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse kline at index %d", i)
			}
			all = append(all, candle)
		}

		last := klines[len(klines)-1]
		startMs = last.OpenTime + 1
		if len(klines) < binanceMaxPerRequest {
			break
		}
	}

	return filterRange(all, start, end), nil
}

func binanceCandle(k *binance.Kline) (domain.MarketCandle, error) {
	open, err := decimal.NewFromString(k.Open)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrap(err, "failed to parse open price")
	}
	high, err := decimal.NewFromString(k.High)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrap(err, "failed to parse high price")
	}
	low, err := decimal.NewFromString(k.Low)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrap(err, "failed to parse low price")
	}
	close, err := decimal.NewFromString(k.Close)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrap(err, "failed to parse close price")
	}
	volume, err := decimal.NewFromString(k.Volume)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrap(err, "failed to parse volume")
	}

	return domain.MarketCandle{
		OpenTime:  time.UnixMilli(k.OpenTime),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
		CloseTime: time.UnixMilli(k.CloseTime),
	}, nil
}
