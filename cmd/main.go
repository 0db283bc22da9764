package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sabarim/intradata/internal/auth"
	"github.com/sabarim/intradata/internal/chart"
	"github.com/sabarim/intradata/internal/config"
	"github.com/sabarim/intradata/internal/historical"
	"github.com/sabarim/intradata/internal/instruments"
	"github.com/sabarim/intradata/internal/logger"
	"github.com/sabarim/intradata/internal/schedule"
	"github.com/sabarim/intradata/internal/yahoo"
)

var (
	configFile     string
	dataDir        string
	verbose        bool
	symbol         string
	symbolsStr     string
	symbolFile     string
	interval       string
	period         string
	count          int
	outputFile     string
	parquetEnabled bool
	parquetDir     string
	scheduleSpec   string
	runNow         bool
	noBrowser      bool
)

var version_string = "0.1.0"

// errNoData marks a fetch that ended without saving anything
var errNoData = errors.New("no data saved")

// app holds the components shared by the commands
type app struct {
	cfg       config.Config
	log       *logger.Logger
	store     *historical.Store
	symbols   *instruments.InstrumentManager
	persister *historical.Persister
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "intradata",
		Short:         "Download, merge and chart intraday market data",
		Long:          `A utility that downloads intraday OHLCV bars from Yahoo Finance, merges them into per-symbol CSV files and shows them as candlestick charts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding the CSV files")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download a series and merge it into its CSV file",
		RunE:  runFetchCommand,
	}
	fetchCmd.Flags().StringVar(&symbol, "symbol", "", "Symbol to download (default from config, BTC-USD)")
	fetchCmd.Flags().StringVar(&interval, "interval", "", "Bar interval, e.g. 1m, 5m, 1h")
	fetchCmd.Flags().StringVar(&period, "period", "", "Lookback period, e.g. 1d, 60d, 1y")
	fetchCmd.Flags().BoolVar(&parquetEnabled, "parquet", false, "Also mirror the saved series to Parquet")
	fetchCmd.Flags().StringVar(&parquetDir, "parquet-dir", "", "Output directory for Parquet files")

	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "Show the last bars of a stored series as a candlestick chart",
		RunE:  runPlotCommand,
	}
	plotCmd.Flags().StringVar(&symbol, "symbol", "", "Symbol to plot")
	plotCmd.Flags().StringVar(&interval, "interval", "", "Bar interval of the stored series")
	plotCmd.Flags().IntVar(&count, "count", 0, "Number of most recent bars to show")
	plotCmd.Flags().StringVar(&outputFile, "output", "", "Write the chart to an HTML file instead of opening it")
	plotCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Only print the chart URL")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh stored series on a schedule",
		RunE:  runWatchCommand,
	}
	watchCmd.Flags().StringVar(&symbolsStr, "symbols", "", "Comma-separated list of symbols to refresh")
	watchCmd.Flags().StringVar(&symbolFile, "symbol-file", "", "File containing symbols, one per line")
	watchCmd.Flags().StringVar(&interval, "interval", "", "Bar interval")
	watchCmd.Flags().StringVar(&period, "period", "", "Lookback period of every refresh")
	watchCmd.Flags().StringVar(&scheduleSpec, "schedule", "", `Cron expression or descriptor, e.g. "@every 1h"`)
	watchCmd.Flags().BoolVar(&runNow, "now", false, "Refresh once before the first scheduled run")
	watchCmd.Flags().BoolVar(&parquetEnabled, "parquet", false, "Also mirror saved series to Parquet")
	watchCmd.Flags().StringVar(&parquetDir, "parquet-dir", "", "Output directory for Parquet files")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("intradata version %s\n", version_string)
		},
	}

	rootCmd.AddCommand(fetchCmd, plotCmd, watchCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errNoData) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func runFetchCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.log.Sync()

	ctx, cancel := signalContext(a.log)
	defer cancel()

	ok, err := a.persister.Save(ctx, a.request(a.cfg.Fetch.Symbol))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Nothing was saved.")
		return errNoData
	}
	return nil
}

func runPlotCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.log.Sync()

	renderer := chart.NewRenderer(a.store, a.cfg.Chart, a.log)

	if outputFile != "" {
		series, err := a.store.Load(a.cfg.Fetch.Symbol, a.cfg.Fetch.Interval)
		if err != nil {
			return err
		}
		file, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()

		if err := renderer.RenderTo(file, series.Tail(a.cfg.Chart.Count)); err != nil {
			return err
		}
		fmt.Printf("Chart written to %s\n", outputFile)
		return nil
	}

	ctx, cancel := signalContext(a.log)
	defer cancel()

	return renderer.Plot(ctx, a.cfg.Fetch.Symbol, a.cfg.Fetch.Interval, a.cfg.Chart.Count)
}

func runWatchCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.log.Sync()

	symbols, err := watchSymbols(a.cfg.Fetch.Symbol)
	if err != nil {
		return err
	}

	list := a.symbols.GetInstrumentsForSymbols(symbols)
	if len(list) == 0 {
		return fmt.Errorf("no valid symbols to watch")
	}

	requests := make([]historical.Request, 0, len(list))
	for _, instrument := range list {
		requests = append(requests, a.request(instrument.Symbol))
	}

	watcher, err := schedule.NewWatcher(a.cfg.Watch.Schedule, a.persister, a.log, requests...)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(a.log)
	defer cancel()

	watcher.Run(ctx, a.cfg.Watch.RunOnStart)
	return nil
}

// newApp loads configuration, applies flag overrides and wires the components
func newApp() (*app, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	// Command-line flags override file and environment
	if dataDir != "" {
		cfg.Store.DataDir = dataDir
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if symbol != "" {
		cfg.Fetch.Symbol = symbol
	}
	if interval != "" {
		cfg.Fetch.Interval = interval
	}
	if period != "" {
		cfg.Fetch.Period = period
	}
	if count > 0 {
		cfg.Chart.Count = count
	}
	if noBrowser {
		cfg.Chart.OpenBrowser = false
	}
	if parquetEnabled {
		cfg.Store.ParquetEnabled = true
	}
	if parquetDir != "" {
		cfg.Store.ParquetDir = parquetDir
	}
	if scheduleSpec != "" {
		cfg.Watch.Schedule = scheduleSpec
	}
	if runNow {
		cfg.Watch.RunOnStart = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	session, err := auth.NewSession(&cfg.Provider, nil, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider session: %w", err)
	}
	provider := yahoo.New(session, cfg.Provider.ChartEndpoint, log, yahoo.WithProgress(os.Stderr))

	symbols := instruments.NewInstrumentManager(cfg.Symbols, log)
	fetcher := historical.NewFetcher(provider, log, historical.WithSymbolResolver(symbols))
	store := historical.NewStore(cfg.Store.DataDir)

	var mirror *historical.ParquetMirror
	if cfg.Store.ParquetEnabled {
		if mirror, err = historical.NewParquetMirror(cfg.Store.ParquetDir, log); err != nil {
			return nil, err
		}
	}

	log.Debug("Configuration loaded",
		zap.String("config", configFile),
		zap.String("data_dir", cfg.Store.DataDir),
		zap.Bool("parquet", cfg.Store.ParquetEnabled))

	return &app{
		cfg:       cfg,
		log:       log,
		store:     store,
		symbols:   symbols,
		persister: historical.NewPersister(fetcher, store, mirror, log),
	}, nil
}

func (a *app) request(symbol string) historical.Request {
	return historical.Request{
		Symbol:   symbol,
		Interval: a.cfg.Fetch.Interval,
		Period:   a.cfg.Fetch.Period,
	}
}

// watchSymbols reads the symbol list from --symbols or --symbol-file
func watchSymbols(fallback string) ([]string, error) {
	if symbolsStr != "" {
		return strings.Split(symbolsStr, ","), nil
	}
	if symbolFile != "" {
		content, err := os.ReadFile(symbolFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read symbol file: %w", err)
		}
		var symbols []string
		for _, line := range strings.Split(string(content), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				symbols = append(symbols, line)
			}
		}
		return symbols, nil
	}
	return []string{fallback}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(log *logger.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigchan:
			log.Info("Received signal, initiating shutdown", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigchan)
	}()

	return ctx, cancel
}
