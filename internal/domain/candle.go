package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MarketCandle single OHLCV candlestick.
type MarketCandle struct {
	OpenTime  time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	CloseTime time.Time
}

// ValidateCandleOrdering checks that the sequence is non-decreasing in open time.
// The simulation replays candles as given and never re-sorts them.
func ValidateCandleOrdering(candles []MarketCandle) error {
	for i := 1; i < len(candles); i++ {
		if candles[i].OpenTime.Before(candles[i-1].OpenTime) {
			return fmt.Errorf("candle at index %d (%s) is earlier than its predecessor (%s)",
				i, candles[i].OpenTime.Format(time.RFC3339), candles[i-1].OpenTime.Format(time.RFC3339))
		}
	}
	return nil
}
