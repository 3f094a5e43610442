package reports

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/backtester/internal/domain"
)

func tempStore(t *testing.T) *WALStore {
	t.Helper()

	dir, err := os.MkdirTemp("", "reportstore")
	require.NoError(t, err)

	store, err := NewWALStore(dir)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
		os.RemoveAll(dir)
	})

	return store
}

func sampleReport(runID string) domain.Report {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.Report{
		RunID:          runID,
		StrategyID:     "rules",
		Pair:           domain.Pair{From: "BTC", To: "USDT"},
		Interval:       "1h",
		Start:          start,
		End:            start.Add(24 * time.Hour),
		InitialCapital: decimal.NewFromInt(10000),
		FinalCapital:   decimal.NewFromInt(10500),
		Metrics: domain.PerformanceMetrics{
			TotalPnLAbsolute: decimal.NewFromInt(500),
			TotalPnLPercent:  decimal.NewFromInt(5),
		},
		CreatedAt: start.Add(25 * time.Hour),
	}
}

func TestSaveAndReportsAfter(t *testing.T) {
	store := tempStore(t)

	require.NoError(t, store.Save(sampleReport("run-1")))
	require.NoError(t, store.Save(sampleReport("run-2")))

	records, err := store.ReportsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "run-1", records[0].Report.RunID)
	require.Equal(t, "run-2", records[1].Report.RunID)
	require.Less(t, records[0].Index, records[1].Index)

	require.Equal(t, "rules", records[0].Report.StrategyID)
	require.True(t, records[0].Report.FinalCapital.Equal(decimal.NewFromInt(10500)))
	require.True(t, records[0].Report.Metrics.TotalPnLPercent.Equal(decimal.NewFromInt(5)))
}

func TestReportsAfterSkipsSeenRecords(t *testing.T) {
	store := tempStore(t)

	require.NoError(t, store.Save(sampleReport("run-1")))
	cursor := store.CurrentIndex()
	require.NoError(t, store.Save(sampleReport("run-2")))

	records, err := store.ReportsAfter(cursor)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "run-2", records[0].Report.RunID)

	records, err = store.ReportsAfter(store.CurrentIndex())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestSaveRequiresRunID(t *testing.T) {
	store := tempStore(t)

	err := store.Save(sampleReport(""))
	require.Error(t, err)
}
