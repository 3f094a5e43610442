package engine

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
	"go.uber.org/zap"
)

// quantityPrecision is the number of decimal places asset quantities are
// rounded to before execution.
const quantityPrecision = 8

var one = decimal.NewFromInt(1)

// ledger is the virtual wallet of one simulation run. It holds quote cash
// and a single base asset position with a weighted-average entry price.
// Orders that cannot be honored are rejected silently, rejection is a
// simulation outcome, not an error.
type ledger struct {
	pair     domain.Pair
	cash     decimal.Decimal
	position decimal.Decimal
	avgEntry decimal.Decimal
	feePct   decimal.Decimal
	slipPct  decimal.Decimal
	trades   []domain.Trade
	logger   *zap.Logger
}

func newLedger(pair domain.Pair, initialCapital, feePct, slipPct decimal.Decimal, logger *zap.Logger) *ledger {
	return &ledger{
		pair:     pair,
		cash:     initialCapital,
		position: decimal.Zero,
		avgEntry: decimal.Zero,
		feePct:   feePct,
		slipPct:  slipPct,
		logger:   logger,
	}
}

// execute attempts to fill an order against the given candle. A nil return
// means the order was rejected or did not fill.
func (l *ledger) execute(order *domain.TradeOrder, candle domain.MarketCandle) *domain.Trade {
	execPrice, filled := l.fillPrice(order, candle)
	if !filled {
		return nil
	}

	qty := order.Quantity.Round(quantityPrecision)
	if qty.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	switch order.Action {
	case domain.ActionBuy:
		return l.executeBuy(order, execPrice, qty, candle)
	case domain.ActionSell:
		return l.executeSell(order, execPrice, qty, candle)
	default:
		return nil
	}
}

// fillPrice resolves the execution price. Market orders fill at the candle
// close adjusted adversely by slippage. Limit orders fill at the limit price
// when it lies inside the candle's range, with no slippage applied.
func (l *ledger) fillPrice(order *domain.TradeOrder, candle domain.MarketCandle) (decimal.Decimal, bool) {
	switch order.Type {
	case domain.OrderTypeMarket:
		if order.Action == domain.ActionBuy {
			return candle.Close.Mul(one.Add(l.slipPct)), true
		}
		return candle.Close.Mul(one.Sub(l.slipPct)), true

	case domain.OrderTypeLimit:
		limit := order.LimitPrice
		if limit.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, false
		}
		if limit.LessThan(candle.Low) || limit.GreaterThan(candle.High) {
			return decimal.Zero, false
		}
		return limit, true

	default:
		return decimal.Zero, false
	}
}

func (l *ledger) executeBuy(order *domain.TradeOrder, execPrice, qty decimal.Decimal, candle domain.MarketCandle) *domain.Trade {
	cost := qty.Mul(execPrice)
	fee := cost.Mul(l.feePct)

	if cost.Add(fee).GreaterThan(l.cash) {
		l.logger.Debug("buy rejected, insufficient cash",
			zap.String("needed", cost.Add(fee).String()),
			zap.String("cash", l.cash.String()))
		return nil
	}

	// weighted-average entry across accumulated buys
	newPosition := l.position.Add(qty)
	l.avgEntry = l.avgEntry.Mul(l.position).Add(execPrice.Mul(qty)).Div(newPosition)
	l.position = newPosition
	l.cash = l.cash.Sub(cost).Sub(fee)

	trade := domain.Trade{
		Order:         *order,
		ExecutedPrice: execPrice,
		ExecutedAt:    candle.CloseTime,
		Fee:           fee,
	}
	l.trades = append(l.trades, trade)

	return &trade
}

func (l *ledger) executeSell(order *domain.TradeOrder, execPrice, qty decimal.Decimal, candle domain.MarketCandle) *domain.Trade {
	if qty.GreaterThan(l.position) {
		l.logger.Debug("sell rejected, insufficient holdings",
			zap.String("requested", qty.String()),
			zap.String("held", l.position.String()))
		return nil
	}

	proceeds := qty.Mul(execPrice)
	fee := proceeds.Mul(l.feePct)
	pnl := execPrice.Sub(l.avgEntry).Mul(qty).Sub(fee)

	l.cash = l.cash.Add(proceeds).Sub(fee)
	l.position = l.position.Sub(qty)
	if l.position.IsZero() {
		l.avgEntry = decimal.Zero
	}

	trade := domain.Trade{
		Order:         *order,
		ExecutedPrice: execPrice,
		ExecutedAt:    candle.CloseTime,
		Fee:           fee,
		RealizedPnL:   &pnl,
	}
	l.trades = append(l.trades, trade)

	return &trade
}

// snapshot records portfolio state marked to the given price.
func (l *ledger) snapshot(candle domain.MarketCandle) domain.PortfolioSnapshot {
	assets := map[string]decimal.Decimal{}
	marks := map[string]decimal.Decimal{}
	if l.position.GreaterThan(decimal.Zero) {
		assets[l.pair.From] = l.position
		marks[l.pair.From] = candle.Close
	}

	return domain.NewPortfolioSnapshot(candle.CloseTime, l.pair.To, l.cash, assets, marks)
}
