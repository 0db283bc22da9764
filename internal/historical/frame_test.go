package historical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(labels ...Label) *Frame {
	f := &Frame{Index: []time.Time{testStart, testStart.Add(5 * time.Minute)}}
	for i, label := range labels {
		base := float64(i * 10)
		f.Columns = append(f.Columns, Column{Label: label, Values: []float64{base, base + 1}})
	}
	return f
}

func TestNormalizeCompositeLabels(t *testing.T) {
	f := testFrame(
		Label{"Close", "BTC-USD"},
		Label{"High", "BTC-USD"},
		Label{"Low", "BTC-USD"},
		Label{"Open", "BTC-USD"},
		Label{"Volume", "BTC-USD"},
	)

	bars, err := Normalize(f, "BTC-USD")
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, Bar{Timestamp: testStart, Open: 30, High: 10, Low: 20, Close: 0, Volume: 40}, bars[0])
	assert.Equal(t, 41.0, bars[1].Volume)
}

func TestNormalizeFlatLabels(t *testing.T) {
	f := testFrame(Label{"Open"}, Label{"High"}, Label{"Low"}, Label{"Close"}, Label{"Volume"})

	bars, err := Normalize(f, "SPY")
	require.NoError(t, err)
	assert.Equal(t, 0.0, bars[0].Open)
	assert.Equal(t, 31.0, bars[1].Close)
}

func TestNormalizeMissingColumn(t *testing.T) {
	f := testFrame(Label{"Open", "SPY"}, Label{"High", "SPY"}, Label{"Low", "SPY"}, Label{"Close", "SPY"})

	_, err := Normalize(f, "SPY")
	assert.ErrorIs(t, err, ErrSchema)
	assert.ErrorContains(t, err, "Volume")
}

func TestNormalizeOtherSymbolIsNotRenamed(t *testing.T) {
	f := testFrame(Label{"Open", "QQQ"}, Label{"High", "QQQ"}, Label{"Low", "QQQ"}, Label{"Close", "QQQ"}, Label{"Volume", "QQQ"})

	_, err := Normalize(f, "SPY")
	assert.ErrorIs(t, err, ErrSchema)
}

func TestNormalizeLengthMismatch(t *testing.T) {
	f := testFrame(Label{"Open"}, Label{"High"}, Label{"Low"}, Label{"Close"}, Label{"Volume"})
	f.Columns[2].Values = f.Columns[2].Values[:1]

	_, err := Normalize(f, "SPY")
	assert.ErrorIs(t, err, ErrSchema)
}

func TestNormalizeNilFrame(t *testing.T) {
	var f *Frame
	assert.Equal(t, 0, f.Len())

	_, err := Normalize(f, "SPY")
	assert.ErrorIs(t, err, ErrSchema)
}

func TestLabelFlat(t *testing.T) {
	assert.Equal(t, "Open_BTC-USD", Label{"Open", "BTC-USD"}.Flat())
	assert.Equal(t, "Volume", Label{"Volume"}.Flat())
}
