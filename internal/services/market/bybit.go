package market

import (
	"context"
	"fmt"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
	"github.com/vadiminshakov/backtester/pkg/retrier"
)

const bybitMaxPerRequest = 200

// BybitProvider fetches historical candles from Bybit's V5 spot API.
type BybitProvider struct {
	client  *bybit.Client
	retrier *retrier.Retrier
}

// NewBybitProvider creates a new Bybit candle provider.
func NewBybitProvider(client *bybit.Client) *BybitProvider {
	return &BybitProvider{
		client:  client,
		retrier: retrier.New(),
	}
}

// GetCandles fetches candles for [start, end). Bybit returns newest first
// and caps each page at 200 items, so the request walks backwards from end.
func (p *BybitProvider) GetCandles(ctx context.Context, pair domain.Pair, interval string, start, end time.Time) ([]domain.MarketCandle, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	bybitInterval, err := convertIntervalToBybit(interval)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid interval: %s", interval)
	}

	symbol := bybit.SymbolV5(pair.Symbol())

	candleSpan, err := intervalDuration(interval)
	if err != nil {
		candleSpan = 0
	}

	var all []domain.MarketCandle
	endCursor := end.UnixMilli()
	startMs := start.UnixMilli()

	for endCursor > startMs {
		cursorStart := startMs
		cursorEnd := endCursor
		limit := bybitMaxPerRequest

		result, err := retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) (*bybit.V5GetKlineResponse, error) {
			return p.client.V5().Market().GetKline(bybit.V5GetKlineParam{
				Category: bybit.CategoryV5Spot,
				Symbol:   symbol,
				Interval: bybit.Interval(bybitInterval),
				Start:    &cursorStart,
				End:      &cursorEnd,
				Limit:    &limit,
			})
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch klines from Bybit for %s", pair.String())
		}
		if result == nil || len(result.Result.List) == 0 {
			break
		}

		klines := result.Result.List
		for i, k := range klines {
			candle, err := bybitCandle(k, candleSpan)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse kline at index %d", i)
			}
			all = append(all, candle)
		}

		// the list is newest first, the last item is the oldest of the page;
		// step one past it, the Bybit end bound is inclusive
		oldest, err := parseTimestamp(klines[len(klines)-1].StartTime)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse page boundary")
		}
		endCursor = oldest.UnixMilli() - 1

		if len(klines) < bybitMaxPerRequest {
			break
		}

		// avoid rate limiting by small delay between requests
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	return filterRange(all, start, end), nil
}

func bybitCandle(k bybit.V5GetKlineItem, candleSpan time.Duration) (domain.MarketCandle, error) {
	openTime, err := parseTimestamp(k.StartTime)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrap(err, "failed to parse start time")
	}
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

	// Bybit klines carry only a start time, the close boundary is derived
	// from the interval
	closeTime := openTime
	if candleSpan > 0 {
		closeTime = openTime.Add(candleSpan)
	}

	return domain.MarketCandle{
		OpenTime:  openTime,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
		CloseTime: closeTime,
	}, nil
}

// convertIntervalToBybit converts standard interval format to Bybit format.
// Standard format: "1m", "5m", "15m", "1h", "4h", "1d", etc.
// Bybit format: "1", "5", "15", "60", "240", "D", etc.
func convertIntervalToBybit(interval string) (string, error) {
	if len(interval) < 2 {
		return "", fmt.Errorf("invalid interval format: %s", interval)
	}

	unit := interval[len(interval)-1]
	numberPart := interval[:len(interval)-1]

	switch unit {
	case 'm':
		return numberPart, nil
	case 'h':
		var n int64
		for _, r := range numberPart {
			if r < '0' || r > '9' {
				return "", fmt.Errorf("invalid interval number: %s", interval)
			}
			n = n*10 + int64(r-'0')
		}
		return fmt.Sprintf("%d", n*60), nil
	case 'd':
		return "D", nil
	case 'w':
		return "W", nil
	default:
		return "", fmt.Errorf("unsupported interval unit: %c", unit)
	}
}

// parseTimestamp converts a Bybit timestamp string (milliseconds) to time.Time.
func parseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	var msec int64
	_, err := fmt.Sscanf(ts, "%d", &msec)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse timestamp: %s", ts)
	}

	return time.UnixMilli(msec), nil
}
