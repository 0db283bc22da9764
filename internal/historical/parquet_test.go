package historical

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/sabarim/intradata/internal/logger"
)

func TestParquetMirrorWritesOneFilePerMonth(t *testing.T) {
	dir := t.TempDir()
	mirror, err := NewParquetMirror(dir, logger.NewNop())
	require.NoError(t, err)

	series := Series{
		Symbol:   "BTC-USD",
		Interval: "1h",
		Bars: []Bar{
			{Timestamp: time.Date(2024, 5, 31, 22, 0, 0, 0, time.UTC), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
			{Timestamp: time.Date(2024, 5, 31, 23, 0, 0, 0, time.UTC), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 11},
			{Timestamp: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Open: 2, High: 3, Low: 1.5, Close: 2.5, Volume: 12},
		},
	}

	paths, err := mirror.Write(series)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "BTC-USD", "BTC-USD_1h_2024-05.parquet"),
		filepath.Join(dir, "BTC-USD", "BTC-USD_1h_2024-06.parquet"),
	}, paths)

	points := readPoints(t, paths[0])
	require.Len(t, points, 2)
	assert.Equal(t, "BTC-USD", points[0].Symbol)
	assert.Equal(t, "1h", points[0].Interval)
	assert.Equal(t, series.Bars[0].Timestamp.Unix(), points[0].Timestamp)
	assert.Equal(t, int32(5), points[1].Month)
	assert.Equal(t, 11.0, points[1].Volume)

	points = readPoints(t, paths[1])
	require.Len(t, points, 1)
	assert.Equal(t, 2.5, points[0].Close)
}

func TestParquetMirrorEmptySeries(t *testing.T) {
	dir := t.TempDir()
	mirror, err := NewParquetMirror(dir, logger.NewNop())
	require.NoError(t, err)

	paths, err := mirror.Write(Series{Symbol: "SPY", Interval: "5m"})
	assert.NoError(t, err)
	assert.Empty(t, paths)

	_, err = os.Stat(filepath.Join(dir, "SPY"))
	assert.True(t, os.IsNotExist(err))
}

func readPoints(t *testing.T, filename string) []HistoricalDataPoint {
	t.Helper()

	fr, err := local.NewLocalFileReader(filename)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(HistoricalDataPoint), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	points := make([]HistoricalDataPoint, pr.GetNumRows())
	require.NoError(t, pr.Read(&points))
	return points
}
