package domain

import "github.com/shopspring/decimal"

// TrendDirection qualitative direction of price action.
type TrendDirection string

const (
	TrendDirectionBullish TrendDirection = "bullish"
	TrendDirectionBearish TrendDirection = "bearish"
	TrendDirectionNeutral TrendDirection = "neutral"
)

// Title returns a human-readable representation.
func (t TrendDirection) Title() string {
	switch t {
	case TrendDirectionBullish:
		return "Bullish"
	case TrendDirectionBearish:
		return "Bearish"
	default:
		return "Neutral"
	}
}

// TechnicalIndicators snapshot of derived technical signals for one candle.
type TechnicalIndicators struct {
	EMA20          decimal.Decimal
	EMA50          decimal.Decimal
	SMA20          decimal.Decimal
	MACD           decimal.Decimal
	RSI7           decimal.Decimal
	RSI14          decimal.Decimal
	ATR14          decimal.Decimal
	BollingerUpper decimal.Decimal
	BollingerLower decimal.Decimal
}

// Trend classifies the trend from the close price and EMA relation.
func (ti TechnicalIndicators) Trend(price decimal.Decimal) TrendDirection {
	if price.GreaterThan(ti.EMA20) && ti.EMA20.GreaterThan(ti.EMA50) {
		return TrendDirectionBullish
	} else if price.LessThan(ti.EMA20) && ti.EMA20.LessThan(ti.EMA50) {
		return TrendDirectionBearish
	}
	return TrendDirectionNeutral
}

// VolumeAnalysis summary of volume behaviour over a candle window.
type VolumeAnalysis struct {
	CurrentVolume  decimal.Decimal
	AverageVolume  decimal.Decimal
	RelativeVolume decimal.Decimal
	VolumeSpikes   []int
}
