// Package analyzer derives performance statistics from a completed run's
// trade log and portfolio history.
package analyzer

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Metrics computes performance statistics for one run. firstAssetPrice and
// lastAssetPrice enable the buy-and-hold benchmark and may be nil when the
// run had no candles.
func Metrics(
	trades []domain.Trade,
	snapshots []domain.PortfolioSnapshot,
	initialCapital decimal.Decimal,
	finalCapital decimal.Decimal,
	firstAssetPrice *decimal.Decimal,
	lastAssetPrice *decimal.Decimal,
) domain.PerformanceMetrics {
	m := domain.PerformanceMetrics{
		TotalPnLAbsolute: finalCapital.Sub(initialCapital),
		TotalTrades:      len(trades),
		FirstAssetPrice:  firstAssetPrice,
		LastAssetPrice:   lastAssetPrice,
	}

	if initialCapital.GreaterThan(decimal.Zero) {
		m.TotalPnLPercent = m.TotalPnLAbsolute.Div(initialCapital).Mul(hundred)
	}

	winSum, lossSum := decimal.Zero, decimal.Zero
	for i := range trades {
		t := &trades[i]
		switch {
		case t.IsWin():
			m.WinningTrades++
			winSum = winSum.Add(*t.RealizedPnL)
		case t.IsLoss():
			m.LosingTrades++
			lossSum = lossSum.Add(t.RealizedPnL.Abs())
		}
	}

	switch {
	case m.WinningTrades > 0 && m.LosingTrades == 0:
		m.WinLossRatio = math.Inf(1)
	case m.LosingTrades > 0:
		m.WinLossRatio = float64(m.WinningTrades) / float64(m.LosingTrades)
	}

	if m.WinningTrades > 0 {
		m.AverageWinAmount = winSum.Div(decimal.NewFromInt(int64(m.WinningTrades)))
	}
	if m.LosingTrades > 0 {
		// reported as a positive magnitude
		m.AverageLossAmount = lossSum.Div(decimal.NewFromInt(int64(m.LosingTrades)))
	}

	m.MaxDrawdown = maxDrawdown(snapshots)
	m.SharpeRatio = sharpeRatio(snapshots)

	if firstAssetPrice != nil && lastAssetPrice != nil && firstAssetPrice.GreaterThan(decimal.Zero) {
		bh := lastAssetPrice.Sub(*firstAssetPrice).Div(*firstAssetPrice).Mul(hundred)
		m.BuyAndHoldPnLPercent = &bh
	}

	return m
}

// maxDrawdown is the largest peak-to-trough decline of total portfolio
// value, as a fraction clamped to [0, 1].
func maxDrawdown(snapshots []domain.PortfolioSnapshot) decimal.Decimal {
	maxDD := decimal.Zero
	peak := decimal.Zero

	for i := range snapshots {
		value := snapshots[i].TotalValue
		if value.GreaterThan(peak) {
			peak = value
		}
		if peak.LessThanOrEqual(decimal.Zero) {
			continue
		}
		dd := peak.Sub(value).Div(peak)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}

	if maxDD.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}

	return maxDD
}

// sharpeRatio computes mean/stddev of per-step portfolio returns with no
// annualization and no risk-free rate. Nil when fewer than two snapshots
// exist or returns have zero variance.
func sharpeRatio(snapshots []domain.PortfolioSnapshot) *float64 {
	if len(snapshots) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(snapshots)-1)
	for i := 1; i < len(snapshots); i++ {
		prev := snapshots[i-1].TotalValue
		if prev.LessThanOrEqual(decimal.Zero) {
			continue
		}
		r, _ := snapshots[i].TotalValue.Sub(prev).Div(prev).Float64()
		returns = append(returns, r)
	}
	if len(returns) < 2 {
		return nil
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)

	if variance == 0 {
		return nil
	}

	sharpe := mean / math.Sqrt(variance)

	return &sharpe
}
