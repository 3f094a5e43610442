package registry

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/backtester/internal/domain"
	"github.com/vadiminshakov/backtester/internal/services/strategy"
)

type stubStrategy struct {
	id string
}

func (s *stubStrategy) ID() string                                 { return s.id }
func (s *stubStrategy) IsReady() bool                              { return true }
func (s *stubStrategy) Configure(map[string]decimal.Decimal) error { return nil }
func (s *stubStrategy) Initialize(context.Context) error           { return nil }
func (s *stubStrategy) Decide(context.Context, strategy.Input) (*domain.TradeOrder, error) {
	return nil, nil
}

func TestRegisterAndGet(t *testing.T) {
	reg := New()

	s := &stubStrategy{id: "alpha"}
	require.NoError(t, reg.Register(s))
	require.Same(t, s, reg.Get("alpha"))

	require.Nil(t, reg.Get("unknown"))
}

func TestRegisterRejectsInvalid(t *testing.T) {
	reg := New()

	require.Error(t, reg.Register(nil))
	require.Error(t, reg.Register(&stubStrategy{id: ""}))

	require.NoError(t, reg.Register(&stubStrategy{id: "alpha"}))
	require.Error(t, reg.Register(&stubStrategy{id: "alpha"}), "duplicate IDs are rejected")
}

func TestListSorted(t *testing.T) {
	reg := New()

	for _, id := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, reg.Register(&stubStrategy{id: id}))
	}

	require.Equal(t, []string{"alpha", "mid", "zeta"}, reg.List())
}

func TestClear(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(&stubStrategy{id: "alpha"}))

	reg.Clear()
	require.Nil(t, reg.Get("alpha"))
	require.Empty(t, reg.List())
}
