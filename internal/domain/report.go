package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Report is the immutable result of one simulation run. Ownership of the
// trade and snapshot history transfers here when the run completes.
type Report struct {
	RunID          string
	StrategyID     string
	Pair           Pair
	Interval       string
	Start          time.Time
	End            time.Time
	InitialCapital decimal.Decimal
	FinalCapital   decimal.Decimal
	Trades         []Trade
	Snapshots      []PortfolioSnapshot
	Metrics        PerformanceMetrics
	CreatedAt      time.Time
}

// Wire forms below keep the persisted representation lossless: decimals as
// strings, timestamps as epoch milliseconds.

type orderWire struct {
	ID         string          `json:"id"`
	Pair       string          `json:"pair"`
	Action     string          `json:"action"`
	Quantity   decimal.Decimal `json:"quantity"`
	Type       string          `json:"type"`
	LimitPrice decimal.Decimal `json:"limit_price"`
	Time       int64           `json:"ts"`
	Reason     string          `json:"reason,omitempty"`
}

type tradeWire struct {
	Order         orderWire        `json:"order"`
	ExecutedPrice decimal.Decimal  `json:"executed_price"`
	ExecutedAt    int64            `json:"executed_at"`
	Fee           decimal.Decimal  `json:"fee"`
	RealizedPnL   *decimal.Decimal `json:"realized_pnl,omitempty"`
}

type snapshotWire struct {
	Time       int64                      `json:"ts"`
	TotalValue decimal.Decimal            `json:"total_value"`
	Holdings   map[string]decimal.Decimal `json:"holdings"`
}

type reportWire struct {
	RunID          string             `json:"run_id"`
	StrategyID     string             `json:"strategy_id"`
	Pair           string             `json:"pair"`
	Interval       string             `json:"interval"`
	Start          int64              `json:"start"`
	End            int64              `json:"end"`
	InitialCapital decimal.Decimal    `json:"initial_capital"`
	FinalCapital   decimal.Decimal    `json:"final_capital"`
	Trades         []tradeWire        `json:"trades"`
	Snapshots      []snapshotWire     `json:"snapshots"`
	Metrics        PerformanceMetrics `json:"metrics"`
	CreatedAt      int64              `json:"created_at"`
}

// MarshalJSON implements json.Marshaler.
func (r Report) MarshalJSON() ([]byte, error) {
	wire := reportWire{
		RunID:          r.RunID,
		StrategyID:     r.StrategyID,
		Pair:           r.Pair.String(),
		Interval:       r.Interval,
		Start:          r.Start.UnixMilli(),
		End:            r.End.UnixMilli(),
		InitialCapital: r.InitialCapital,
		FinalCapital:   r.FinalCapital,
		Trades:         make([]tradeWire, 0, len(r.Trades)),
		Snapshots:      make([]snapshotWire, 0, len(r.Snapshots)),
		Metrics:        r.Metrics,
		CreatedAt:      r.CreatedAt.UnixMilli(),
	}

	for _, t := range r.Trades {
		wire.Trades = append(wire.Trades, tradeWire{
			Order: orderWire{
				ID:         t.Order.ID,
				Pair:       t.Order.Pair.String(),
				Action:     t.Order.Action.String(),
				Quantity:   t.Order.Quantity,
				Type:       t.Order.Type.String(),
				LimitPrice: t.Order.LimitPrice,
				Time:       t.Order.Time.UnixMilli(),
				Reason:     t.Order.Reason,
			},
			ExecutedPrice: t.ExecutedPrice,
			ExecutedAt:    t.ExecutedAt.UnixMilli(),
			Fee:           t.Fee,
			RealizedPnL:   t.RealizedPnL,
		})
	}

	for _, s := range r.Snapshots {
		wire.Snapshots = append(wire.Snapshots, snapshotWire{
			Time:       s.Time.UnixMilli(),
			TotalValue: s.TotalValue,
			Holdings:   s.Holdings,
		})
	}

	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Report) UnmarshalJSON(data []byte) error {
	var wire reportWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	pair, err := PairFromString(wire.Pair)
	if err != nil {
		return err
	}

	report := Report{
		RunID:          wire.RunID,
		StrategyID:     wire.StrategyID,
		Pair:           pair,
		Interval:       wire.Interval,
		Start:          time.UnixMilli(wire.Start).UTC(),
		End:            time.UnixMilli(wire.End).UTC(),
		InitialCapital: wire.InitialCapital,
		FinalCapital:   wire.FinalCapital,
		Trades:         make([]Trade, 0, len(wire.Trades)),
		Snapshots:      make([]PortfolioSnapshot, 0, len(wire.Snapshots)),
		Metrics:        wire.Metrics,
		CreatedAt:      time.UnixMilli(wire.CreatedAt).UTC(),
	}

	for _, tw := range wire.Trades {
		orderPair, err := PairFromString(tw.Order.Pair)
		if err != nil {
			return err
		}
		action, err := ActionFromString(tw.Order.Action)
		if err != nil {
			return err
		}
		orderType := OrderTypeMarket
		if tw.Order.Type == "limit" {
			orderType = OrderTypeLimit
		}

		report.Trades = append(report.Trades, Trade{
			Order: TradeOrder{
				ID:         tw.Order.ID,
				Pair:       orderPair,
				Action:     action,
				Quantity:   tw.Order.Quantity,
				Type:       orderType,
				LimitPrice: tw.Order.LimitPrice,
				Time:       time.UnixMilli(tw.Order.Time).UTC(),
				Reason:     tw.Order.Reason,
			},
			ExecutedPrice: tw.ExecutedPrice,
			ExecutedAt:    time.UnixMilli(tw.ExecutedAt).UTC(),
			Fee:           tw.Fee,
			RealizedPnL:   tw.RealizedPnL,
		})
	}

	for _, sw := range wire.Snapshots {
		report.Snapshots = append(report.Snapshots, PortfolioSnapshot{
			Time:       time.UnixMilli(sw.Time).UTC(),
			TotalValue: sw.TotalValue,
			Holdings:   sw.Holdings,
		})
	}

	*r = report
	return nil
}
