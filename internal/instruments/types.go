package instruments

import "errors"

// ErrInvalidSymbol is returned for symbols that can't name a data file
var ErrInvalidSymbol = errors.New("invalid symbol")

// Instrument pairs the symbol a user asks for with the provider ticker
type Instrument struct {
	Symbol string
	Ticker string
	Alias  bool
}
