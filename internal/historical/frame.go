package historical

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrSchema is returned when provider output can't be shaped into the canonical columns.
var ErrSchema = errors.New("unexpected column schema")

// Label names a frame column. A single level is a flat label; more levels form a
// composite label such as ("Open", "BTC-USD").
type Label []string

// Flat joins the levels of the label with "_".
func (l Label) Flat() string {
	return strings.TrimSpace(strings.Join(l, "_"))
}

// Column is one labelled column of a Frame
type Column struct {
	Label  Label
	Values []float64
}

// Frame is the tabular shape returned by a provider: a timestamp index and
// labelled value columns, flat or composite.
type Frame struct {
	Index   []time.Time
	Columns []Column
}

// Len returns the number of rows; a nil frame is empty.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Index)
}

// Normalize flattens composite labels, renames the per-symbol labels
// ("Open_BTC-USD") to the canonical names and returns the bars. All canonical
// columns must be present with one value per index entry.
func Normalize(f *Frame, symbol string) ([]Bar, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil frame", ErrSchema)
	}

	rename := make(map[string]string, len(CanonicalColumns))
	for _, name := range CanonicalColumns {
		rename[name+"_"+symbol] = name
	}

	columns := make(map[string][]float64, len(f.Columns))
	for _, col := range f.Columns {
		name := col.Label.Flat()
		if canonical, ok := rename[name]; ok {
			name = canonical
		}
		columns[name] = col.Values
	}

	for _, name := range CanonicalColumns {
		values, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %s", ErrSchema, name)
		}
		if len(values) != len(f.Index) {
			return nil, fmt.Errorf("%w: column %s has %d values for %d rows", ErrSchema, name, len(values), len(f.Index))
		}
	}

	bars := make([]Bar, len(f.Index))
	for i, ts := range f.Index {
		bars[i] = Bar{
			Timestamp: ts,
			Open:      columns[OpenColumn][i],
			High:      columns[HighColumn][i],
			Low:       columns[LowColumn][i],
			Close:     columns[CloseColumn][i],
			Volume:    columns[VolumeColumn][i],
		}
	}
	return bars, nil
}
