package historical

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
	dir   string
	store *Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (suite *StoreTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
	suite.store = NewStore(suite.dir)
}

func (suite *StoreTestSuite) TestPath() {
	suite.Equal(filepath.Join(suite.dir, "BTC-USD_5m.csv"), suite.store.Path("BTC-USD", "5m"))
}

func (suite *StoreTestSuite) TestWriteAndLoadRoundTrip() {
	eastern := time.FixedZone("", -4*3600)
	series := Series{
		Symbol:   "SPY",
		Interval: "5m",
		Bars: []Bar{
			{Timestamp: time.Date(2024, 6, 3, 9, 30, 0, 0, eastern), Open: 527.5, High: 528, Low: 527.125, Close: 527.875, Volume: 120300},
			{Timestamp: time.Date(2024, 6, 3, 9, 35, 0, 0, eastern), Open: 527.875, High: 529, Low: 527.5, Close: 528.75, Volume: 98000},
		},
	}

	filename, err := suite.store.Write(series)
	suite.Require().NoError(err)
	suite.Equal(suite.store.Path("SPY", "5m"), filename)

	content, err := os.ReadFile(filename)
	suite.Require().NoError(err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	suite.Equal("Datetime,Open,High,Low,Close,Volume", lines[0])
	suite.True(strings.HasPrefix(lines[1], "2024-06-03 09:30:00-04:00,"), lines[1])

	loaded, err := suite.store.Load("SPY", "5m")
	suite.Require().NoError(err)
	suite.Require().Equal(2, loaded.Len())
	for i := range series.Bars {
		suite.True(series.Bars[i].Timestamp.Equal(loaded.Bars[i].Timestamp))
		suite.Equal(series.Bars[i].Open, loaded.Bars[i].Open)
		suite.Equal(series.Bars[i].High, loaded.Bars[i].High)
		suite.Equal(series.Bars[i].Low, loaded.Bars[i].Low)
		suite.Equal(series.Bars[i].Close, loaded.Bars[i].Close)
		suite.Equal(series.Bars[i].Volume, loaded.Bars[i].Volume)
	}
}

func (suite *StoreTestSuite) TestLoadMissingFile() {
	_, err := suite.store.Load("NOPE", "1m")
	suite.ErrorIs(err, os.ErrNotExist)

	exists, err := suite.store.Exists("NOPE", "1m")
	suite.NoError(err)
	suite.False(exists)
}

func (suite *StoreTestSuite) TestLoadUnnamedIndexHeader() {
	content := ",Open,High,Low,Close,Volume\n" +
		"2024-06-03 09:30:00+00:00,1,2,0.5,1.5,10\n" +
		"2024-06-03 09:35:00+00:00,1.5,2.5,1,2,20\n"
	suite.Require().NoError(os.WriteFile(suite.store.Path("ETH-USD", "5m"), []byte(content), 0644))

	loaded, err := suite.store.Load("ETH-USD", "5m")
	suite.Require().NoError(err)
	suite.Require().Equal(2, loaded.Len())
	suite.True(loaded.Bars[1].Timestamp.Equal(time.Date(2024, 6, 3, 9, 35, 0, 0, time.UTC)))
	suite.Equal(20.0, loaded.Bars[1].Volume)
}

func (suite *StoreTestSuite) TestEmptySeriesWritesHeaderOnly() {
	filename, err := suite.store.Write(Series{Symbol: "SPY", Interval: "1m"})
	suite.Require().NoError(err)

	content, err := os.ReadFile(filename)
	suite.Require().NoError(err)
	suite.Equal("Datetime,Open,High,Low,Close,Volume\n", string(content))

	loaded, err := suite.store.Load("SPY", "1m")
	suite.Require().NoError(err)
	suite.Equal(0, loaded.Len())
}

func (suite *StoreTestSuite) TestRemove() {
	_, err := suite.store.Write(Series{Symbol: "SPY", Interval: "1m", Bars: []Bar{barAt(0, 1)}})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.store.Remove("SPY", "1m"))
	exists, err := suite.store.Exists("SPY", "1m")
	suite.NoError(err)
	suite.False(exists)
}

func (suite *StoreTestSuite) TestReadBarsRejectsBadTimestamp() {
	_, err := ReadBars(bytes.NewBufferString("Datetime,Open,High,Low,Close,Volume\nyesterday,1,1,1,1,1\n"))
	suite.ErrorContains(err, "row 1")
}
