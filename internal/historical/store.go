package historical

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

// TimeLayout is the timestamp format written to the index column
const TimeLayout = "2006-01-02 15:04:05-07:00"

// readLayouts are accepted when parsing the index column
var readLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// barRecord is one CSV row
type barRecord struct {
	Datetime string  `csv:"Datetime"`
	Open     float64 `csv:"Open"`
	High     float64 `csv:"High"`
	Low      float64 `csv:"Low"`
	Close    float64 `csv:"Close"`
	Volume   float64 `csv:"Volume"`
}

// Store keeps one CSV file per symbol and interval in a directory.
// It caches nothing: every Load reads the file and every Write rewrites it.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the CSV path for a symbol and interval
func (s *Store) Path(symbol, interval string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", symbol, interval))
}

// Exists reports whether a CSV file is present for the symbol and interval
func (s *Store) Exists(symbol, interval string) (bool, error) {
	_, err := os.Stat(s.Path(symbol, interval))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", s.Path(symbol, interval), err)
}

// Load reads the whole series for a symbol and interval. A missing file is an
// error wrapping os.ErrNotExist.
func (s *Store) Load(symbol, interval string) (Series, error) {
	filename := s.Path(symbol, interval)
	file, err := os.Open(filename)
	if err != nil {
		return Series{}, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer file.Close()

	bars, err := ReadBars(file)
	if err != nil {
		return Series{}, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	return Series{Symbol: symbol, Interval: interval, Bars: bars}, nil
}

// Write creates or truncates the CSV file of the series
func (s *Store) Write(series Series) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	filename := s.Path(series.Symbol, series.Interval)
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := WriteBars(file, series.Bars); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return filename, nil
}

// Remove deletes the CSV file of a symbol and interval
func (s *Store) Remove(symbol, interval string) error {
	if err := os.Remove(s.Path(symbol, interval)); err != nil {
		return fmt.Errorf("failed to remove %s: %w", s.Path(symbol, interval), err)
	}
	return nil
}

// WriteBars encodes bars as CSV with the index column first
func WriteBars(w io.Writer, bars []Bar) error {
	records := make([]*barRecord, 0, len(bars))
	for _, bar := range bars {
		records = append(records, &barRecord{
			Datetime: bar.Timestamp.Format(TimeLayout),
			Open:     bar.Open,
			High:     bar.High,
			Low:      bar.Low,
			Close:    bar.Close,
			Volume:   bar.Volume,
		})
	}
	if len(records) == 0 {
		// gocsv needs at least one element to derive a header from
		_, err := io.WriteString(w, strings.Join(append([]string{IndexColumn}, CanonicalColumns...), ",")+"\n")
		return err
	}
	return gocsv.Marshal(&records, w)
}

// ReadBars decodes CSV produced by WriteBars. The first column is taken as
// the timestamp index whatever its header says, including an empty header.
func ReadBars(r io.Reader) ([]Bar, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows[0]) > 0 {
		rows[0][0] = IndexColumn
	}

	var records []*barRecord
	if err := gocsv.UnmarshalCSV(&rowsReader{rows: rows}, &records); err != nil {
		return nil, err
	}

	bars := make([]Bar, 0, len(records))
	for i, rec := range records {
		ts, err := parseTimestamp(rec.Datetime)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		bars = append(bars, Bar{
			Timestamp: ts,
			Open:      rec.Open,
			High:      rec.High,
			Low:       rec.Low,
			Close:     rec.Close,
			Volume:    rec.Volume,
		})
	}
	return bars, nil
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range readLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// rowsReader replays already parsed rows to gocsv
type rowsReader struct {
	rows [][]string
	next int
}

func (r *rowsReader) Read() ([]string, error) {
	if r.next >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.next]
	r.next++
	return row, nil
}

func (r *rowsReader) ReadAll() ([][]string, error) {
	rest := r.rows[r.next:]
	r.next = len(r.rows)
	return rest, nil
}
