package historical

import (
	"slices"
	"time"
)

// Canonical column names of a persisted series
const (
	IndexColumn  = "Datetime"
	OpenColumn   = "Open"
	HighColumn   = "High"
	LowColumn    = "Low"
	CloseColumn  = "Close"
	VolumeColumn = "Volume"
)

// CanonicalColumns lists the value columns in file order
var CanonicalColumns = []string{OpenColumn, HighColumn, LowColumn, CloseColumn, VolumeColumn}

// Bar represents a single intraday candlestick
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// key identifies a bar by instant, independent of its location
func (b Bar) key() int64 {
	return b.Timestamp.UnixNano()
}

// Series is the bar history of one symbol at one interval
type Series struct {
	Symbol   string
	Interval string
	Bars     []Bar
}

// Len returns the number of bars
func (s Series) Len() int {
	return len(s.Bars)
}

// Head returns up to n leading bars
func (s Series) Head(n int) []Bar {
	if n > len(s.Bars) {
		n = len(s.Bars)
	}
	if n < 0 {
		n = 0
	}
	return s.Bars[:n]
}

// Tail returns a series holding the last n bars in timestamp order
func (s Series) Tail(n int) Series {
	if n > len(s.Bars) {
		n = len(s.Bars)
	}
	if n < 0 {
		n = 0
	}
	return Series{
		Symbol:   s.Symbol,
		Interval: s.Interval,
		Bars:     s.Bars[len(s.Bars)-n:],
	}
}

// Merge concatenates existing and fresh bars and drops duplicate timestamps,
// keeping the last occurrence so fresh data overrides stored data. The result
// is sorted by timestamp.
func Merge(existing, fresh []Bar) []Bar {
	combined := make([]Bar, 0, len(existing)+len(fresh))
	combined = append(combined, existing...)
	combined = append(combined, fresh...)

	last := make(map[int64]int, len(combined))
	for i, bar := range combined {
		last[bar.key()] = i
	}

	merged := make([]Bar, 0, len(last))
	for i, bar := range combined {
		if last[bar.key()] == i {
			merged = append(merged, bar)
		}
	}

	slices.SortStableFunc(merged, func(a, b Bar) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return merged
}

// HistoricalDataPoint represents a single historical data point for parquet
type HistoricalDataPoint struct {
	Symbol    string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Interval  string  `parquet:"name=interval, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Timestamp int64   `parquet:"name=timestamp, type=INT64, encoding=DELTA_BINARY_PACKED"`
	Datetime  string  `parquet:"name=datetime, type=BYTE_ARRAY, convertedtype=UTF8"`
	Year      int32   `parquet:"name=year, type=INT32, encoding=PLAIN_DICTIONARY"`
	Month     int32   `parquet:"name=month, type=INT32, encoding=PLAIN_DICTIONARY"`
	Day       int32   `parquet:"name=day, type=INT32, encoding=PLAIN_DICTIONARY"`
	Open      float64 `parquet:"name=open, type=DOUBLE, encoding=PLAIN"`
	High      float64 `parquet:"name=high, type=DOUBLE, encoding=PLAIN"`
	Low       float64 `parquet:"name=low, type=DOUBLE, encoding=PLAIN"`
	Close     float64 `parquet:"name=close, type=DOUBLE, encoding=PLAIN"`
	Volume    float64 `parquet:"name=volume, type=DOUBLE, encoding=PLAIN"`
}
