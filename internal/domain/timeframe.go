package domain

import (
	"github.com/shopspring/decimal"
)

// TimeframeSummary headline metrics for a timeframe.
type TimeframeSummary struct {
	Interval string
	Price    decimal.Decimal
	EMA20    decimal.Decimal
	EMA50    decimal.Decimal
	RSI14    decimal.Decimal
	Trend    TrendDirection
}

// Timeframe candlestick and indicator data for one interval.
// Indicator slices are shorter than the candle slice by a warmup offset.
type Timeframe struct {
	Interval        string
	Candles         []MarketCandle
	Indicators      []TechnicalIndicators
	indicatorOffset int
	Summary         *TimeframeSummary
}

// NewTimeframe constructs a Timeframe.
func NewTimeframe(interval string, candles []MarketCandle, indicators []TechnicalIndicators) *Timeframe {
	offset := 0
	if len(candles) > len(indicators) {
		offset = len(candles) - len(indicators)
	}

	tf := &Timeframe{
		Interval:        interval,
		Candles:         candles,
		Indicators:      indicators,
		indicatorOffset: offset,
	}

	tf.Summary = tf.buildSummary()

	return tf
}

// IndicatorForCandle returns indicator values aligned to the candle index.
func (t *Timeframe) IndicatorForCandle(candleIdx int) (TechnicalIndicators, bool) {
	index, ok := t.indicatorIndexForCandle(candleIdx)
	if !ok {
		return TechnicalIndicators{}, false
	}
	return t.Indicators[index], true
}

// LatestCandle returns the most recent candlestick.
func (t *Timeframe) LatestCandle() (MarketCandle, bool) {
	if t == nil || len(t.Candles) == 0 {
		return MarketCandle{}, false
	}
	return t.Candles[len(t.Candles)-1], true
}

// LatestIndicator returns the most recent indicator values.
func (t *Timeframe) LatestIndicator() (TechnicalIndicators, bool) {
	if t == nil || len(t.Candles) == 0 {
		return TechnicalIndicators{}, false
	}
	return t.IndicatorForCandle(len(t.Candles) - 1)
}

// LatestPrice returns the most recent close price.
func (t *Timeframe) LatestPrice() (decimal.Decimal, bool) {
	candle, ok := t.LatestCandle()
	if !ok {
		return decimal.Zero, false
	}
	return candle.Close, true
}

func (t *Timeframe) buildSummary() *TimeframeSummary {
	if t == nil {
		return nil
	}

	candle, ok := t.LatestCandle()
	if !ok {
		return nil
	}

	indicator, ok := t.LatestIndicator()
	if !ok {
		return nil
	}

	return &TimeframeSummary{
		Interval: t.Interval,
		Price:    candle.Close,
		EMA20:    indicator.EMA20,
		EMA50:    indicator.EMA50,
		RSI14:    indicator.RSI14,
		Trend:    indicator.Trend(candle.Close),
	}
}

func (t *Timeframe) indicatorIndexForCandle(candleIdx int) (int, bool) {
	if t == nil || len(t.Indicators) == 0 {
		return 0, false
	}

	index := candleIdx - t.indicatorOffset
	if index < 0 || index >= len(t.Indicators) {
		return 0, false
	}

	return index, true
}

// AggregateCandles compresses a candle sequence into a higher timeframe by
// merging groups of `factor` consecutive candles. A trailing partial group is
// kept so the latest price action is never dropped.
func AggregateCandles(candles []MarketCandle, factor int) []MarketCandle {
	if factor <= 1 || len(candles) == 0 {
		return candles
	}

	aggregated := make([]MarketCandle, 0, (len(candles)+factor-1)/factor)
	for start := 0; start < len(candles); start += factor {
		end := start + factor
		if end > len(candles) {
			end = len(candles)
		}

		group := candles[start:end]
		merged := MarketCandle{
			OpenTime:  group[0].OpenTime,
			Open:      group[0].Open,
			High:      group[0].High,
			Low:       group[0].Low,
			Close:     group[len(group)-1].Close,
			Volume:    decimal.Zero,
			CloseTime: group[len(group)-1].CloseTime,
		}
		for _, c := range group {
			if c.High.GreaterThan(merged.High) {
				merged.High = c.High
			}
			if c.Low.LessThan(merged.Low) {
				merged.Low = c.Low
			}
			merged.Volume = merged.Volume.Add(c.Volume)
		}

		aggregated = append(aggregated, merged)
	}

	return aggregated
}
