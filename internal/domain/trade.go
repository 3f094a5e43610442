package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an executed order recorded in the simulation ledger.
type Trade struct {
	Order         TradeOrder
	ExecutedPrice decimal.Decimal
	ExecutedAt    time.Time
	Fee           decimal.Decimal
	// RealizedPnL is set only for sell trades that reduce a position.
	RealizedPnL *decimal.Decimal
}

// IsWin reports whether the trade closed with a positive realized P&L.
func (t *Trade) IsWin() bool {
	return t.RealizedPnL != nil && t.RealizedPnL.GreaterThan(decimal.Zero)
}

// IsLoss reports whether the trade closed with a negative realized P&L.
func (t *Trade) IsLoss() bool {
	return t.RealizedPnL != nil && t.RealizedPnL.LessThan(decimal.Zero)
}
