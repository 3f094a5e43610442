package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSnapshot wallet state at one point of a simulation run.
// Holdings always contain an entry for the quote currency (free cash) plus
// zero or more base asset quantities.
type PortfolioSnapshot struct {
	Time       time.Time
	TotalValue decimal.Decimal
	Holdings   map[string]decimal.Decimal
}

// NewPortfolioSnapshot builds a snapshot, marking asset holdings to market at
// the given prices. TotalValue is cash plus the market value of every asset.
func NewPortfolioSnapshot(ts time.Time, quote string, cash decimal.Decimal, assets map[string]decimal.Decimal, markPrices map[string]decimal.Decimal) PortfolioSnapshot {
	holdings := make(map[string]decimal.Decimal, len(assets)+1)
	holdings[quote] = cash

	total := cash
	for symbol, qty := range assets {
		holdings[symbol] = qty
		total = total.Add(qty.Mul(markPrices[symbol]))
	}

	return PortfolioSnapshot{
		Time:       ts,
		TotalValue: total,
		Holdings:   holdings,
	}
}

// Holding returns the held quantity for a symbol, zero when absent.
func (s *PortfolioSnapshot) Holding(symbol string) decimal.Decimal {
	return s.Holdings[symbol]
}

// Clone returns a deep copy so callers cannot mutate recorded history.
func (s *PortfolioSnapshot) Clone() PortfolioSnapshot {
	holdings := make(map[string]decimal.Decimal, len(s.Holdings))
	for k, v := range s.Holdings {
		holdings[k] = v
	}
	return PortfolioSnapshot{
		Time:       s.Time,
		TotalValue: s.TotalValue,
		Holdings:   holdings,
	}
}
