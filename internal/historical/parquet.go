package historical

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"go.uber.org/zap"

	"github.com/sabarim/intradata/internal/logger"
)

// ParquetMirror keeps a month-partitioned parquet copy of saved series
type ParquetMirror struct {
	dir string
	log *logger.Logger
}

// NewParquetMirror creates a mirror rooted at dir
func NewParquetMirror(dir string, log *logger.Logger) (*ParquetMirror, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &ParquetMirror{dir: dir, log: log}, nil
}

// Path returns the parquet file holding the given month of a series
func (m *ParquetMirror) Path(symbol, interval, yearMonth string) string {
	return filepath.Join(m.dir, symbol, fmt.Sprintf("%s_%s_%s.parquet", symbol, interval, yearMonth))
}

// Write rewrites one parquet file per calendar month covered by the series
// and returns the written paths in month order.
func (m *ParquetMirror) Write(series Series) ([]string, error) {
	if series.Len() == 0 {
		m.log.Debug("No candles to convert", zap.String("symbol", series.Symbol))
		return nil, nil
	}

	// Group candles by month to create separate files
	barsByYearMonth := make(map[string][]Bar)
	for _, bar := range series.Bars {
		yearMonth := bar.Timestamp.Format("2006-01")
		barsByYearMonth[yearMonth] = append(barsByYearMonth[yearMonth], bar)
	}

	months := make([]string, 0, len(barsByYearMonth))
	for yearMonth := range barsByYearMonth {
		months = append(months, yearMonth)
	}
	sort.Strings(months)

	if err := ensureDir(filepath.Join(m.dir, series.Symbol)); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(months))
	for _, yearMonth := range months {
		filename := m.Path(series.Symbol, series.Interval, yearMonth)
		if err := writeBars(filename, series.Symbol, series.Interval, barsByYearMonth[yearMonth]); err != nil {
			return paths, fmt.Errorf("failed to write parquet file: %w", err)
		}
		paths = append(paths, filename)
	}

	m.log.Info("Mirrored series to parquet",
		zap.String("symbol", series.Symbol),
		zap.String("interval", series.Interval),
		zap.Int("files", len(paths)))
	return paths, nil
}

// writeBars writes bars to a single parquet file
func writeBars(filename, symbol, interval string, bars []Bar) error {
	fw, err := local.NewLocalFileWriter(filename)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(HistoricalDataPoint), 4)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	pw.CompressionType = parquet.CompressionCodec_GZIP
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.PageSize = 8 * 1024

	for _, bar := range bars {
		point := HistoricalDataPoint{
			Symbol:    symbol,
			Interval:  interval,
			Timestamp: bar.Timestamp.Unix(),
			Datetime:  bar.Timestamp.Format(TimeLayout),
			Year:      int32(bar.Timestamp.Year()),
			Month:     int32(bar.Timestamp.Month()),
			Day:       int32(bar.Timestamp.Day()),
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    bar.Volume,
		}

		if err := pw.Write(point); err != nil {
			return fmt.Errorf("failed to write parquet data: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}
