package engine

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/backtester/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Comparison runs several strategies over the same market data and
// parameters so their reports can be ranked side by side. Runs are
// isolated, each gets its own ledger and snapshot history.
type Comparison struct {
	engine *Engine
}

// NewComparison creates a comparison runner over the given engine.
func NewComparison(engine *Engine) *Comparison {
	return &Comparison{engine: engine}
}

// Run executes base params once per strategy ID concurrently. Reports come
// back in the order of strategyIDs. Duplicate IDs are rejected, registry
// strategy instances are stateful and must not race with themselves.
func (c *Comparison) Run(ctx context.Context, base Params, strategyIDs []string) ([]*domain.Report, error) {
	if len(strategyIDs) == 0 {
		return nil, errors.New("no strategies to compare")
	}

	seen := make(map[string]struct{}, len(strategyIDs))
	for _, id := range strategyIDs {
		if _, dup := seen[id]; dup {
			return nil, errors.Errorf("duplicate strategy in comparison: %s", id)
		}
		seen[id] = struct{}{}
	}

	reports := make([]*domain.Report, len(strategyIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range strategyIDs {
		params := base
		params.StrategyID = id

		g.Go(func() error {
			report, err := c.engine.Run(gctx, params)
			if err != nil {
				return errors.Wrapf(err, "strategy %s", params.StrategyID)
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return reports, nil
}
