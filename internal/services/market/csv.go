package market

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
)

// CSVProvider reads candles from a local CSV file with rows of
// timestamp,open,high,low,close,volume. Timestamps are epoch milliseconds
// or RFC3339. A header row is skipped when present.
type CSVProvider struct {
	path string
}

// NewCSVProvider creates a provider backed by the file at path.
func NewCSVProvider(path string) *CSVProvider {
	return &CSVProvider{path: path}
}

// GetCandles loads the file and returns candles for [start, end). The pair
// argument is ignored, a CSV file holds a single instrument.
func (p *CSVProvider) GetCandles(_ context.Context, _ domain.Pair, interval string, start, end time.Time) ([]domain.MarketCandle, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	file, err := os.Open(p.path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read input file %s", p.path)
	}
	defer file.Close()

	csvReader := csv.NewReader(file)
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse file as CSV %s", p.path)
	}

	candleSpan, err := intervalDuration(interval)
	if err != nil {
		candleSpan = 0
	}

	candles := make([]domain.MarketCandle, 0, len(records))
	for i, record := range records {
		if len(record) < 6 {
			return nil, errors.Errorf("row %d: expected 6 columns, got %d", i, len(record))
		}

		openTime, err := parseCSVTimestamp(record[0])
		if err != nil {
			if i == 0 {
				// header row
				continue
			}
			return nil, errors.Wrapf(err, "row %d: bad timestamp", i)
		}

		open, err := decimal.NewFromString(record[1])
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: bad open price", i)
		}
		high, err := decimal.NewFromString(record[2])
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: bad high price", i)
		}
		low, err := decimal.NewFromString(record[3])
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: bad low price", i)
		}
		closeP, err := decimal.NewFromString(record[4])
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: bad close price", i)
		}
		volume, err := decimal.NewFromString(record[5])
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: bad volume", i)
		}

		closeTime := openTime
		if candleSpan > 0 {
			closeTime = openTime.Add(candleSpan)
		}

		candles = append(candles, domain.MarketCandle{
			OpenTime:  openTime,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closeP,
			Volume:    volume,
			CloseTime: closeTime,
		})
	}

	return filterRange(candles, start, end), nil
}

func parseCSVTimestamp(field string) (time.Time, error) {
	if msec, err := strconv.ParseInt(field, 10, 64); err == nil {
		return time.UnixMilli(msec), nil
	}
	t, err := time.Parse(time.RFC3339, field)
	if err != nil {
		return time.Time{}, errors.Errorf("unrecognized timestamp %q", field)
	}
	return t, nil
}
