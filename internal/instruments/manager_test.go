package instruments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabarim/intradata/internal/config"
	"github.com/sabarim/intradata/internal/logger"
)

func newTestManager() *InstrumentManager {
	return NewInstrumentManager(config.SymbolsConfig{
		Aliases: map[string]string{
			"spx500": "^GSPC",
			"Gold":   " GC=F ",
		},
	}, logger.NewNop())
}

func TestResolveAlias(t *testing.T) {
	im := newTestManager()

	ticker, err := im.Resolve("SPX500")
	require.NoError(t, err)
	assert.Equal(t, "^GSPC", ticker)

	ticker, err = im.Resolve("gold")
	require.NoError(t, err)
	assert.Equal(t, "GC=F", ticker)
}

func TestResolvePassThrough(t *testing.T) {
	im := newTestManager()

	ticker, err := im.Resolve(" btc-usd ")
	require.NoError(t, err)
	assert.Equal(t, "BTC-USD", ticker)
}

func TestResolveInvalid(t *testing.T) {
	im := newTestManager()

	for _, symbol := range []string{"", "   ", "../etc", `a\b`} {
		_, err := im.Resolve(symbol)
		assert.ErrorIs(t, err, ErrInvalidSymbol, symbol)
	}
}

func TestGetInstrumentsForSymbols(t *testing.T) {
	im := newTestManager()

	instruments := im.GetInstrumentsForSymbols([]string{"spx500", "", "AAPL"})

	require.Len(t, instruments, 2)
	assert.Equal(t, Instrument{Symbol: "spx500", Ticker: "^GSPC", Alias: true}, instruments[0])
	assert.Equal(t, Instrument{Symbol: "AAPL", Ticker: "AAPL"}, instruments[1])
}
