package instruments

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sabarim/intradata/internal/config"
	"github.com/sabarim/intradata/internal/logger"
)

// InstrumentManager resolves user-facing symbols to provider tickers
type InstrumentManager struct {
	aliases map[string]string
	log     *logger.Logger
}

// NewInstrumentManager creates a manager from the configured aliases
func NewInstrumentManager(cfg config.SymbolsConfig, log *logger.Logger) *InstrumentManager {
	// viper lowercases map keys, so lookups are case-insensitive
	aliases := make(map[string]string, len(cfg.Aliases))
	for symbol, ticker := range cfg.Aliases {
		aliases[strings.ToLower(strings.TrimSpace(symbol))] = strings.TrimSpace(ticker)
	}
	return &InstrumentManager{aliases: aliases, log: log}
}

// GetInstrumentBySymbol returns the instrument for a user-facing symbol.
// Symbols without an alias map to their upper-cased form.
func (im *InstrumentManager) GetInstrumentBySymbol(symbol string) (Instrument, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return Instrument{}, fmt.Errorf("%w: empty symbol", ErrInvalidSymbol)
	}
	if strings.ContainsAny(symbol, `/\`) {
		return Instrument{}, fmt.Errorf("%w: %q contains a path separator", ErrInvalidSymbol, symbol)
	}

	if ticker, ok := im.aliases[strings.ToLower(symbol)]; ok && ticker != "" {
		return Instrument{Symbol: symbol, Ticker: ticker, Alias: true}, nil
	}
	return Instrument{Symbol: symbol, Ticker: strings.ToUpper(symbol)}, nil
}

// Resolve returns the provider ticker for symbol
func (im *InstrumentManager) Resolve(symbol string) (string, error) {
	instrument, err := im.GetInstrumentBySymbol(symbol)
	if err != nil {
		return "", err
	}
	if instrument.Alias {
		im.log.Debug("Resolved alias", zap.String("symbol", instrument.Symbol), zap.String("ticker", instrument.Ticker))
	}
	return instrument.Ticker, nil
}

// GetInstrumentsForSymbols returns instruments for a list of symbols,
// skipping the invalid ones with a warning.
func (im *InstrumentManager) GetInstrumentsForSymbols(symbols []string) []Instrument {
	var instruments []Instrument
	for _, symbol := range symbols {
		instrument, err := im.GetInstrumentBySymbol(symbol)
		if err != nil {
			im.log.Warn("Skipping symbol", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		instruments = append(instruments, instrument)
	}
	return instruments
}
