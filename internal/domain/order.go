package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Action represents the side of a trade order.
type Action int

const (
	ActionBuy Action = iota
	ActionSell
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "buy"
	case ActionSell:
		return "sell"
	default:
		return "unknown"
	}
}

// ActionFromString parses an action name.
func ActionFromString(s string) (Action, error) {
	switch s {
	case "buy":
		return ActionBuy, nil
	case "sell":
		return ActionSell, nil
	default:
		return 0, fmt.Errorf("unknown action: %q", s)
	}
}

// OrderType represents how an order is priced.
type OrderType int

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
)

// String returns the string representation of the order type.
func (o OrderType) String() string {
	switch o {
	case OrderTypeMarket:
		return "market"
	case OrderTypeLimit:
		return "limit"
	default:
		return "unknown"
	}
}

// TradeOrder is a strategy's request to trade at the current simulation step.
// Orders are produced fresh on every decision and are never persisted unless
// they execute.
type TradeOrder struct {
	ID         string
	Pair       Pair
	Action     Action
	Quantity   decimal.Decimal
	Type       OrderType
	LimitPrice decimal.Decimal
	Time       time.Time
	Reason     string
}

// String returns a human-readable string representation.
func (o *TradeOrder) String() string {
	return fmt.Sprintf("%s %s %s %s", o.Pair.String(), o.Action.String(), o.Type.String(), o.Quantity.String())
}
