// Package strategy defines the decision protocol every trading strategy
// implements and the input the simulation engine feeds it.
package strategy

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
)

// ErrInvalidParams is returned by Configure for out-of-range parameters.
var ErrInvalidParams = errors.New("invalid strategy parameters")

// MarketData is the market context visible to a strategy at one step.
// Candles contain only history up to and including the current candle.
type MarketData struct {
	CurrentPrice decimal.Decimal
	Candles      []domain.MarketCandle
	// Indicators for the current candle, nil during warmup.
	Indicators *domain.TechnicalIndicators
}

// AgentState carries run metadata and the engine's view of the open position.
type AgentState struct {
	Pair          domain.Pair
	Interval      string
	Step          int
	AvgEntryPrice decimal.Decimal
	PositionSize  decimal.Decimal
}

// Input is everything a strategy may consult for one decision.
type Input struct {
	Market    MarketData
	State     AgentState
	Portfolio domain.PortfolioSnapshot
}

// Strategy decides buy/sell/hold once per candle. Returning a nil order
// means hold. Decide must produce the same decision for the same input so
// that replays are deterministic; the AI variant is the only permitted
// exception.
type Strategy interface {
	// ID returns the unique identifier the registry keys this strategy by.
	ID() string
	// IsReady reports whether the strategy is configured and usable.
	IsReady() bool
	// Configure applies named parameters, failing with ErrInvalidParams
	// when a value is out of range.
	Configure(params map[string]decimal.Decimal) error
	// Initialize prepares host services before the first decision.
	Initialize(ctx context.Context) error
	// Decide returns a trade order or nil for the current step.
	Decide(ctx context.Context, input Input) (*domain.TradeOrder, error)
}

// BuyQuantity sizes a buy as a cash fraction of the portfolio's quote
// holding at the current price. Returns zero when the price is not positive.
func BuyQuantity(input Input, fraction decimal.Decimal) decimal.Decimal {
	if input.Market.CurrentPrice.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	cash := input.Portfolio.Holding(input.State.Pair.To)
	return cash.Mul(fraction).Div(input.Market.CurrentPrice)
}

// HeldQuantity returns the base asset quantity currently held.
func HeldQuantity(input Input) decimal.Decimal {
	return input.Portfolio.Holding(input.State.Pair.From)
}
