package historical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC)

func barAt(minutes int, price float64) Bar {
	return Bar{
		Timestamp: testStart.Add(time.Duration(minutes) * time.Minute),
		Open:      price,
		High:      price + 1,
		Low:       price - 1,
		Close:     price + 0.5,
		Volume:    1000,
	}
}

func TestMergeKeepsLastOccurrence(t *testing.T) {
	existing := []Bar{barAt(0, 100), barAt(5, 101), barAt(10, 102)}
	fresh := []Bar{barAt(10, 202), barAt(15, 203)}

	merged := Merge(existing, fresh)

	require.Len(t, merged, 4)
	assert.Equal(t, 100.0, merged[0].Open)
	assert.Equal(t, 101.0, merged[1].Open)
	assert.Equal(t, 202.0, merged[2].Open, "fresh bar replaces the stored one")
	assert.Equal(t, 203.0, merged[3].Open)
}

func TestMergeSortsByTimestamp(t *testing.T) {
	existing := []Bar{barAt(20, 4), barAt(0, 1)}
	fresh := []Bar{barAt(10, 3), barAt(5, 2)}

	merged := Merge(existing, fresh)

	require.Len(t, merged, 4)
	for i := 1; i < len(merged); i++ {
		assert.True(t, merged[i-1].Timestamp.Before(merged[i].Timestamp))
	}
	assert.Equal(t, []float64{1, 2, 3, 4}, []float64{merged[0].Open, merged[1].Open, merged[2].Open, merged[3].Open})
}

func TestMergeComparesInstantsAcrossZones(t *testing.T) {
	eastern := time.FixedZone("EDT", -4*3600)
	stored := barAt(0, 100)
	stored.Timestamp = stored.Timestamp.In(eastern)

	merged := Merge([]Bar{stored}, []Bar{barAt(0, 200)})

	require.Len(t, merged, 1)
	assert.Equal(t, 200.0, merged[0].Open)
}

func TestMergeDuplicatesWithinFresh(t *testing.T) {
	merged := Merge(nil, []Bar{barAt(0, 1), barAt(0, 2), barAt(5, 3)})

	require.Len(t, merged, 2)
	assert.Equal(t, 2.0, merged[0].Open)
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge(nil, nil))
}

func TestSeriesHeadAndTail(t *testing.T) {
	s := Series{Symbol: "BTC-USD", Interval: "5m"}
	for i := 0; i < 10; i++ {
		s.Bars = append(s.Bars, barAt(i*5, float64(i)))
	}

	assert.Len(t, s.Head(3), 3)
	assert.Equal(t, 0.0, s.Head(3)[0].Open)
	assert.Len(t, s.Head(50), 10)
	assert.Empty(t, s.Head(-1))

	tail := s.Tail(4)
	assert.Equal(t, "BTC-USD", tail.Symbol)
	assert.Equal(t, "5m", tail.Interval)
	require.Equal(t, 4, tail.Len())
	assert.Equal(t, 6.0, tail.Bars[0].Open)
	assert.Equal(t, 9.0, tail.Bars[3].Open)

	assert.Equal(t, 10, s.Tail(100).Len())
	assert.Equal(t, 0, s.Tail(0).Len())
}
