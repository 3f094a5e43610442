package domain

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PerformanceMetrics aggregates the statistics computed for a completed
// simulation run. Derived once, never mutated.
//
// Ratio fields use float64 because WinLossRatio is +Inf for runs with wins
// and no losses; money amounts stay decimal.
//
// The Percent fields hold percentages (a 20% gain is 20), while MaxDrawdown
// holds a fraction (a 20% drawdown is 0.2).
type PerformanceMetrics struct {
	TotalPnLAbsolute decimal.Decimal
	// TotalPnLPercent is the P&L relative to initial capital, times 100.
	TotalPnLPercent   decimal.Decimal
	TotalTrades       int
	WinningTrades     int
	LosingTrades      int
	WinLossRatio      float64
	AverageWinAmount  decimal.Decimal
	AverageLossAmount decimal.Decimal
	// MaxDrawdown is the largest peak-to-trough equity decline as a fraction
	// in [0, 1].
	MaxDrawdown decimal.Decimal
	// SharpeRatio is nil when fewer than two snapshots exist.
	SharpeRatio *float64
	// BuyAndHoldPnLPercent is the passive benchmark return, times 100.
	// Nil when asset prices were not supplied.
	BuyAndHoldPnLPercent *decimal.Decimal
	FirstAssetPrice      *decimal.Decimal
	LastAssetPrice       *decimal.Decimal
}

// metricsWire is the JSON form of PerformanceMetrics. Float ratios are
// encoded as strings so that +Inf survives a round trip, which encoding/json
// refuses for raw float64 values.
type metricsWire struct {
	TotalPnLAbsolute     decimal.Decimal  `json:"total_pnl_absolute"`
	TotalPnLPercent      decimal.Decimal  `json:"total_pnl_percent"`
	TotalTrades          int              `json:"total_trades"`
	WinningTrades        int              `json:"winning_trades"`
	LosingTrades         int              `json:"losing_trades"`
	WinLossRatio         string           `json:"win_loss_ratio"`
	AverageWinAmount     decimal.Decimal  `json:"average_win_amount"`
	AverageLossAmount    decimal.Decimal  `json:"average_loss_amount"`
	MaxDrawdown          decimal.Decimal  `json:"max_drawdown"`
	SharpeRatio          *string          `json:"sharpe_ratio,omitempty"`
	BuyAndHoldPnLPercent *decimal.Decimal `json:"buy_and_hold_pnl_percent,omitempty"`
	FirstAssetPrice      *decimal.Decimal `json:"first_asset_price,omitempty"`
	LastAssetPrice       *decimal.Decimal `json:"last_asset_price,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (m PerformanceMetrics) MarshalJSON() ([]byte, error) {
	wire := metricsWire{
		TotalPnLAbsolute:     m.TotalPnLAbsolute,
		TotalPnLPercent:      m.TotalPnLPercent,
		TotalTrades:          m.TotalTrades,
		WinningTrades:        m.WinningTrades,
		LosingTrades:         m.LosingTrades,
		WinLossRatio:         strconv.FormatFloat(m.WinLossRatio, 'g', -1, 64),
		AverageWinAmount:     m.AverageWinAmount,
		AverageLossAmount:    m.AverageLossAmount,
		MaxDrawdown:          m.MaxDrawdown,
		BuyAndHoldPnLPercent: m.BuyAndHoldPnLPercent,
		FirstAssetPrice:      m.FirstAssetPrice,
		LastAssetPrice:       m.LastAssetPrice,
	}
	if m.SharpeRatio != nil {
		s := strconv.FormatFloat(*m.SharpeRatio, 'g', -1, 64)
		wire.SharpeRatio = &s
	}

	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *PerformanceMetrics) UnmarshalJSON(data []byte) error {
	var wire metricsWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	ratio, err := strconv.ParseFloat(wire.WinLossRatio, 64)
	if err != nil {
		return errors.Wrap(err, "parse win/loss ratio")
	}

	*m = PerformanceMetrics{
		TotalPnLAbsolute:     wire.TotalPnLAbsolute,
		TotalPnLPercent:      wire.TotalPnLPercent,
		TotalTrades:          wire.TotalTrades,
		WinningTrades:        wire.WinningTrades,
		LosingTrades:         wire.LosingTrades,
		WinLossRatio:         ratio,
		AverageWinAmount:     wire.AverageWinAmount,
		AverageLossAmount:    wire.AverageLossAmount,
		MaxDrawdown:          wire.MaxDrawdown,
		BuyAndHoldPnLPercent: wire.BuyAndHoldPnLPercent,
		FirstAssetPrice:      wire.FirstAssetPrice,
		LastAssetPrice:       wire.LastAssetPrice,
	}
	if wire.SharpeRatio != nil {
		sharpe, err := strconv.ParseFloat(*wire.SharpeRatio, 64)
		if err != nil {
			return errors.Wrap(err, "parse sharpe ratio")
		}
		m.SharpeRatio = &sharpe
	}

	return nil
}
