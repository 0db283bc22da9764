package historical

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	optional "github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/sabarim/intradata/internal/logger"
)

// Provider returns raw bars for a ticker from a market-data source
type Provider interface {
	// Chart fetches bars at interval granularity over the period lookback.
	// An empty frame means the provider had no data for the range.
	Chart(ctx context.Context, symbol, interval, period string) (*Frame, error)
	Name() string
}

// SymbolResolver maps a user-facing symbol to the provider ticker
type SymbolResolver interface {
	Resolve(symbol string) (string, error)
}

// Request identifies one download
type Request struct {
	Symbol   string `validate:"required,excludesall=/\\"`
	Interval string `validate:"required,oneof=1m 2m 5m 15m 30m 60m 90m 1h 1d 5d 1wk 1mo 3mo"`
	Period   string `validate:"required,period"`
}

var periodPattern = regexp.MustCompile(`^([1-9][0-9]*(d|wk|mo|y)|ytd|max)$`)

const headPreviewSize = 5

// Fetcher downloads a series and shapes it into canonical columns
type Fetcher struct {
	provider Provider
	symbols  SymbolResolver
	validate *validator.Validate
	log      *logger.Logger
	out      io.Writer
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithOutput sets where progress text is printed (stdout by default)
func WithOutput(w io.Writer) FetcherOption {
	return func(f *Fetcher) { f.out = w }
}

// WithSymbolResolver sets the symbol to ticker mapping
func WithSymbolResolver(r SymbolResolver) FetcherOption {
	return func(f *Fetcher) { f.symbols = r }
}

// NewFetcher creates a fetcher backed by provider
func NewFetcher(provider Provider, log *logger.Logger, opts ...FetcherOption) *Fetcher {
	validate := validator.New()
	validate.RegisterValidation("period", func(fl validator.FieldLevel) bool {
		return periodPattern.MatchString(fl.Field().String())
	})

	f := &Fetcher{
		provider: provider,
		validate: validate,
		log:      log,
		out:      os.Stdout,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch downloads the series for req. Any failure, including an empty
// response, yields None; errors never reach the caller and are reported as
// progress text instead.
func (f *Fetcher) Fetch(ctx context.Context, req Request) optional.Option[Series] {
	if err := f.validate.Struct(req); err != nil {
		fmt.Fprintf(f.out, "Invalid download request: %v\n", err)
		return optional.None[Series]()
	}

	ticker := req.Symbol
	if f.symbols != nil {
		resolved, err := f.symbols.Resolve(req.Symbol)
		if err != nil {
			fmt.Fprintf(f.out, "An error occurred during the download: %v\n", err)
			return optional.None[Series]()
		}
		ticker = resolved
	}

	f.log.Debug("Requesting chart",
		zap.String("provider", f.provider.Name()),
		zap.String("symbol", req.Symbol),
		zap.String("ticker", ticker),
		zap.String("interval", req.Interval),
		zap.String("period", req.Period))

	frame, err := f.provider.Chart(ctx, ticker, req.Interval, req.Period)
	if err != nil {
		fmt.Fprintf(f.out, "An error occurred during the download: %v\n", err)
		f.log.Warn("Chart request failed", zap.String("symbol", req.Symbol), zap.Error(err))
		return optional.None[Series]()
	}

	if frame.Len() == 0 {
		fmt.Fprintf(f.out, "Could not download %s intraday data for %s in the requested range/period.\n", req.Interval, req.Symbol)
		fmt.Fprintln(f.out, "This usually happens because Yahoo Finance offers only limited intraday history for free.")
		return optional.None[Series]()
	}

	bars, err := Normalize(frame, ticker)
	if err != nil {
		fmt.Fprintf(f.out, "An error occurred during the download: %v\n", err)
		return optional.None[Series]()
	}

	series := Series{Symbol: req.Symbol, Interval: req.Interval, Bars: bars}

	fmt.Fprintf(f.out, "Intraday data (%s) for %s downloaded.\n", req.Interval, req.Symbol)
	fmt.Fprintln(f.out, PreviewTable(series.Head(headPreviewSize)))
	fmt.Fprintf(f.out, "Total number of data points: %d\n", series.Len())

	return optional.Some(series)
}
