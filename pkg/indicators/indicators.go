// Package indicators provides technical analysis indicators (EMA, SMA, MACD,
// RSI, ATR, Bollinger Bands) over decimal price series.
package indicators

import (
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
)

// MinCandles is the minimum number of candles required to compute the full
// indicator suite.
const MinCandles = 50

const bollingerPeriod = 20

// PriceData represents OHLC (open, high, low, close) price data.
type PriceData struct {
	Open  decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal
}

// FromCandles converts candles to PriceData points.
func FromCandles(candles []domain.MarketCandle) []PriceData {
	priceData := make([]PriceData, len(candles))
	for i, c := range candles {
		priceData[i] = PriceData{
			Open:  c.Open,
			High:  c.High,
			Low:   c.Low,
			Close: c.Close,
		}
	}
	return priceData
}

// CalculateEMA calculates the Exponential Moving Average for the given period.
func CalculateEMA(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points: need %d, got %d", period, len(closes))
	}

	closesFloat := decimalsToFloat64(closes)

	ema := trend.NewEmaWithPeriod[float64](period)
	inputChan := helper.SliceToChan(closesFloat)
	outputChan := ema.Compute(inputChan)
	emaFloat := helper.ChanToSlice(outputChan)

	return float64ToDecimals(emaFloat), nil
}

// CalculateSMA calculates the Simple Moving Average for the given period.
func CalculateSMA(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points: need %d, got %d", period, len(closes))
	}

	closesFloat := decimalsToFloat64(closes)

	sma := trend.NewSmaWithPeriod[float64](period)
	inputChan := helper.SliceToChan(closesFloat)
	outputChan := sma.Compute(inputChan)
	smaFloat := helper.ChanToSlice(outputChan)

	return float64ToDecimals(smaFloat), nil
}

// CalculateMACD calculates MACD line values.
func CalculateMACD(closes []decimal.Decimal) ([]decimal.Decimal, error) {
	if len(closes) < 26 {
		return nil, fmt.Errorf("not enough data points for MACD: need at least 26, got %d", len(closes))
	}

	closesFloat := decimalsToFloat64(closes)

	macd := trend.NewMacd[float64]()
	inputChan := helper.SliceToChan(closesFloat)
	macdChan, signalChan := macd.Compute(inputChan)
	// drain signal channel to prevent blocking
	go func() {
		for range signalChan {
		}
	}()
	macdFloat := helper.ChanToSlice(macdChan)

	return float64ToDecimals(macdFloat), nil
}

// CalculateRSI calculates the Relative Strength Index for the given period.
func CalculateRSI(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(closes) < period+1 {
		return nil, fmt.Errorf("not enough data points for RSI: need %d, got %d", period+1, len(closes))
	}

	closesFloat := decimalsToFloat64(closes)

	rsi := momentum.NewRsiWithPeriod[float64](period)
	inputChan := helper.SliceToChan(closesFloat)
	outputChan := rsi.Compute(inputChan)
	rsiFloat := helper.ChanToSlice(outputChan)

	return float64ToDecimals(rsiFloat), nil
}

// CalculateATR calculates the Average True Range for the given period.
func CalculateATR(priceData []PriceData, period int) ([]decimal.Decimal, error) {
	if len(priceData) < period+1 {
		return nil, fmt.Errorf("not enough data points for ATR: need %d, got %d", period+1, len(priceData))
	}

	highs := make([]float64, len(priceData))
	lows := make([]float64, len(priceData))
	closes := make([]float64, len(priceData))

	for i, pd := range priceData {
		highs[i], _ = pd.High.Float64()
		lows[i], _ = pd.Low.Float64()
		closes[i], _ = pd.Close.Float64()
	}

	atr := volatility.NewAtrWithPeriod[float64](period)
	highChan := helper.SliceToChan(highs)
	lowChan := helper.SliceToChan(lows)
	closeChan := helper.SliceToChan(closes)
	outputChan := atr.Compute(highChan, lowChan, closeChan)
	atrFloat := helper.ChanToSlice(outputChan)

	return float64ToDecimals(atrFloat), nil
}

// CalculateBollinger calculates Bollinger Bands (SMA ± deviations × stddev)
// in decimal arithmetic. Returned slices are aligned with each other and
// start at the first candle with a full period behind it.
func CalculateBollinger(closes []decimal.Decimal, period int, deviations decimal.Decimal) (upper, lower []decimal.Decimal, err error) {
	if len(closes) < period {
		return nil, nil, fmt.Errorf("not enough data points for Bollinger: need %d, got %d", period, len(closes))
	}

	count := len(closes) - period + 1
	upper = make([]decimal.Decimal, count)
	lower = make([]decimal.Decimal, count)
	periodDec := decimal.NewFromInt(int64(period))

	for i := period - 1; i < len(closes); i++ {
		window := closes[i-period+1 : i+1]

		sum := decimal.Zero
		for _, price := range window {
			sum = sum.Add(price)
		}
		sma := sum.Div(periodDec)

		squareSum := decimal.Zero
		for _, price := range window {
			diff := price.Sub(sma)
			squareSum = squareSum.Add(diff.Mul(diff))
		}
		variance, _ := squareSum.Div(periodDec).Float64()
		stdDev := decimal.NewFromFloat(math.Sqrt(variance))

		band := deviations.Mul(stdDev)
		upper[i-period+1] = sma.Add(band)
		lower[i-period+1] = sma.Sub(band)
	}

	return upper, lower, nil
}

// CalculateAllIndicators calculates the full indicator suite and returns
// aligned snapshots. The value at index i depends only on prices [0..i], so
// snapshots computed over a full series match snapshots computed over any
// prefix ending at i.
func CalculateAllIndicators(priceData []PriceData) ([]domain.TechnicalIndicators, error) {
	if len(priceData) < MinCandles {
		return nil, fmt.Errorf("not enough data points: need at least %d, got %d", MinCandles, len(priceData))
	}

	closes := make([]decimal.Decimal, len(priceData))
	for i, pd := range priceData {
		closes[i] = pd.Close
	}

	ema20, err := CalculateEMA(closes, 20)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate EMA20: %w", err)
	}

	ema50, err := CalculateEMA(closes, 50)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate EMA50: %w", err)
	}

	sma20, err := CalculateSMA(closes, 20)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate SMA20: %w", err)
	}

	macd, err := CalculateMACD(closes)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate MACD: %w", err)
	}

	rsi7, err := CalculateRSI(closes, 7)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate RSI7: %w", err)
	}

	rsi14, err := CalculateRSI(closes, 14)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate RSI14: %w", err)
	}

	atr14, err := CalculateATR(priceData, 14)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate ATR14: %w", err)
	}

	bbUpper, bbLower, err := CalculateBollinger(closes, bollingerPeriod, decimal.NewFromInt(2))
	if err != nil {
		return nil, fmt.Errorf("failed to calculate Bollinger Bands: %w", err)
	}

	// find minimum length among indicators (handles warmup differences)
	minLen := len(ema20)
	for _, series := range [][]decimal.Decimal{ema50, sma20, macd, rsi7, rsi14, atr14, bbUpper, bbLower} {
		if len(series) < minLen {
			minLen = len(series)
		}
	}

	// build aligned result applying individual offsets
	offsetEMA20 := len(ema20) - minLen
	offsetEMA50 := len(ema50) - minLen
	offsetSMA20 := len(sma20) - minLen
	offsetMACD := len(macd) - minLen
	offsetRSI7 := len(rsi7) - minLen
	offsetRSI14 := len(rsi14) - minLen
	offsetATR14 := len(atr14) - minLen
	offsetBB := len(bbUpper) - minLen

	result := make([]domain.TechnicalIndicators, minLen)

	for i := 0; i < minLen; i++ {
		result[i] = domain.TechnicalIndicators{
			EMA20:          ema20[offsetEMA20+i],
			EMA50:          ema50[offsetEMA50+i],
			SMA20:          sma20[offsetSMA20+i],
			MACD:           macd[offsetMACD+i],
			RSI7:           rsi7[offsetRSI7+i],
			RSI14:          rsi14[offsetRSI14+i],
			ATR14:          atr14[offsetATR14+i],
			BollingerUpper: bbUpper[offsetBB+i],
			BollingerLower: bbLower[offsetBB+i],
		}
	}

	return result, nil
}

// decimalsToFloat64 converts a slice of decimal.Decimal to []float64.
func decimalsToFloat64(decimals []decimal.Decimal) []float64 {
	result := make([]float64, len(decimals))
	for i, d := range decimals {
		result[i], _ = d.Float64()
	}
	return result
}

// float64ToDecimals converts a slice of float64 to []decimal.Decimal.
func float64ToDecimals(floats []float64) []decimal.Decimal {
	result := make([]decimal.Decimal, len(floats))
	for i, f := range floats {
		result[i] = decimal.NewFromFloat(f)
	}
	return result
}
