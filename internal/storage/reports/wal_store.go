// Package reports persists backtest run reports in a write-ahead log so
// past runs survive restarts and can be replayed for inspection.
package reports

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/backtester/internal/domain"
	"github.com/vadiminshakov/gowal"
)

const (
	defaultReportDir   = "./wal/reports"
	reportSegmentLimit = 1000
	reportMaxSegments  = 100
	reportKeyPrefix    = "backtest_report_"
)

// Record is a stored report together with its WAL index.
type Record struct {
	Index  uint64
	Report domain.Report
}

// WALStore persists run reports in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed report store under the provided directory.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultReportDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "report_",
		SegmentThreshold: reportSegmentLimit,
		MaxSegments:      reportMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init report WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save writes a completed report to the WAL. The report must carry a run ID.
func (s *WALStore) Save(report domain.Report) error {
	if s == nil || s.wal == nil {
		return errors.New("report store is not initialized")
	}
	if report.RunID == "" {
		return fmt.Errorf("report run ID is required")
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}

	key := fmt.Sprintf("%s%s", reportKeyPrefix, report.RunID)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// ReportsAfter returns all reports written after the provided WAL index.
func (s *WALStore) ReportsAfter(index uint64) ([]Record, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("report store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]Record, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, reportKeyPrefix) {
			continue
		}
		var report domain.Report
		if err := json.Unmarshal(payload, &report); err != nil {
			return nil, errors.Wrap(err, "decode report")
		}
		records = append(records, Record{
			Index:  idx,
			Report: report,
		})
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("report store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
