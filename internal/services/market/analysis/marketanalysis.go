// Package analysis provides market analysis utilities such as volume studies.
package analysis

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
	"go.uber.org/zap"
)

const volumePeriod = 20

var spikeMultiplier = decimal.NewFromFloat(1.5)

// MarketAnalyzer analyzes market structure and patterns.
type MarketAnalyzer struct {
	logger *zap.Logger
}

// NewMarketAnalyzer creates a new MarketAnalyzer instance.
func NewMarketAnalyzer(logger *zap.Logger) *MarketAnalyzer {
	return &MarketAnalyzer{
		logger: logger,
	}
}

// AnalyzeVolume calculates volume metrics and identifies spikes over the
// given candle window.
func (m *MarketAnalyzer) AnalyzeVolume(candles []domain.MarketCandle) domain.VolumeAnalysis {
	if len(candles) == 0 {
		m.logger.Warn("no candle data for volume analysis")
		return domain.VolumeAnalysis{
			CurrentVolume:  decimal.Zero,
			AverageVolume:  decimal.Zero,
			RelativeVolume: decimal.Zero,
			VolumeSpikes:   []int{},
		}
	}

	period := volumePeriod
	if len(candles) < period {
		period = len(candles)
	}

	sum := decimal.Zero
	for i := len(candles) - period; i < len(candles); i++ {
		sum = sum.Add(candles[i].Volume)
	}
	avgVolume := sum.Div(decimal.NewFromInt(int64(period)))

	currentVolume := candles[len(candles)-1].Volume

	relativeVolume := decimal.Zero
	if avgVolume.GreaterThan(decimal.Zero) {
		relativeVolume = currentVolume.Div(avgVolume)
	}

	// volume spikes are candles above 1.5x the trailing average
	spikeThreshold := avgVolume.Mul(spikeMultiplier)
	var spikes []int
	for i := 0; i < len(candles); i++ {
		if candles[i].Volume.GreaterThan(spikeThreshold) {
			spikes = append(spikes, i)
		}
	}

	return domain.VolumeAnalysis{
		CurrentVolume:  currentVolume,
		AverageVolume:  avgVolume,
		RelativeVolume: relativeVolume,
		VolumeSpikes:   spikes,
	}
}
