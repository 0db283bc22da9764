package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration structure
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Store    StoreConfig    `mapstructure:"store"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Chart    ChartConfig    `mapstructure:"chart"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Symbols  SymbolsConfig  `mapstructure:"symbols"`
	Log      LogConfig      `mapstructure:"log"`
}

// ProviderConfig defines how the Yahoo Finance chart API is reached
type ProviderConfig struct {
	ChartEndpoint  string `mapstructure:"chart_endpoint" validate:"required,url"`
	CookieURL      string `mapstructure:"cookie_url" validate:"required,url"`
	CrumbURL       string `mapstructure:"crumb_url" validate:"required,url"`
	UserAgent      string `mapstructure:"user_agent" validate:"required"`
	Proxy          string `mapstructure:"proxy" validate:"omitempty,url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"min=1"`
}

// StoreConfig defines where series are persisted
type StoreConfig struct {
	DataDir        string `mapstructure:"data_dir" validate:"required"`
	ParquetEnabled bool   `mapstructure:"parquet_enabled"`
	ParquetDir     string `mapstructure:"parquet_dir"`
}

// FetchConfig holds the default request used by the fetch and watch commands
type FetchConfig struct {
	Symbol   string `mapstructure:"symbol" validate:"required"`
	Interval string `mapstructure:"interval" validate:"required"`
	Period   string `mapstructure:"period" validate:"required"`
}

// ChartConfig defines the candlestick renderer settings
type ChartConfig struct {
	Count       int    `mapstructure:"count" validate:"min=1"`
	Addr        string `mapstructure:"addr" validate:"required"`
	OpenBrowser bool   `mapstructure:"open_browser"`
	Width       string `mapstructure:"width"`
	Height      string `mapstructure:"height"`
	UpColor     string `mapstructure:"up_color" validate:"omitempty,hexcolor"`
	DownColor   string `mapstructure:"down_color" validate:"omitempty,hexcolor"`
}

// WatchConfig defines the periodic refresh schedule
type WatchConfig struct {
	Schedule   string `mapstructure:"schedule" validate:"required"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// SymbolsConfig maps user-facing symbols to provider tickers
type SymbolsConfig struct {
	Aliases map[string]string `mapstructure:"aliases"`
}

// LogConfig defines the structured logger settings
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Output string `mapstructure:"output" validate:"required"`
}

// LoadConfig loads configuration from file and overrides with environment variables
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("INTRADATA")

	// Provider mappings
	v.BindEnv("provider.chart_endpoint", "INTRADATA_CHART_ENDPOINT")
	v.BindEnv("provider.cookie_url", "INTRADATA_COOKIE_URL")
	v.BindEnv("provider.crumb_url", "INTRADATA_CRUMB_URL")
	v.BindEnv("provider.user_agent", "INTRADATA_USER_AGENT")
	v.BindEnv("provider.proxy", "INTRADATA_PROXY", "HTTPS_PROXY")
	v.BindEnv("provider.timeout_seconds", "INTRADATA_TIMEOUT_SECONDS")

	// Store mappings
	v.BindEnv("store.data_dir", "INTRADATA_DATA_DIR")
	v.BindEnv("store.parquet_enabled", "INTRADATA_PARQUET_ENABLED")
	v.BindEnv("store.parquet_dir", "INTRADATA_PARQUET_DIR")

	// Fetch mappings
	v.BindEnv("fetch.symbol", "INTRADATA_SYMBOL")
	v.BindEnv("fetch.interval", "INTRADATA_INTERVAL")
	v.BindEnv("fetch.period", "INTRADATA_PERIOD")

	// Chart mappings
	v.BindEnv("chart.count", "INTRADATA_CHART_COUNT")
	v.BindEnv("chart.addr", "INTRADATA_CHART_ADDR")
	v.BindEnv("chart.open_browser", "INTRADATA_OPEN_BROWSER")

	// Watch and log mappings
	v.BindEnv("watch.schedule", "INTRADATA_SCHEDULE")
	v.BindEnv("watch.run_on_start", "INTRADATA_RUN_ON_START")
	v.BindEnv("log.level", "INTRADATA_LOG_LEVEL")
	v.BindEnv("log.output", "INTRADATA_LOG_OUTPUT")

	// Booleans can't be told apart from "unset" after unmarshaling
	v.SetDefault("chart.open_browser", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotExist(err) {
			return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}

	applyDefaults(&config)

	return config, nil
}

// Validate checks field constraints after defaults and flag overrides are applied
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Store.ParquetEnabled && c.Store.ParquetDir == "" {
		return fmt.Errorf("invalid configuration: store.parquet_dir is required when parquet is enabled")
	}
	return nil
}

// applyDefaults sets default values for any config values not set from file or environment
func applyDefaults(config *Config) {
	// Provider defaults
	if config.Provider.ChartEndpoint == "" {
		config.Provider.ChartEndpoint = "https://query2.finance.yahoo.com/v8/finance/chart"
	}
	if config.Provider.CookieURL == "" {
		config.Provider.CookieURL = "https://fc.yahoo.com"
	}
	if config.Provider.CrumbURL == "" {
		config.Provider.CrumbURL = "https://query1.finance.yahoo.com/v1/test/getcrumb"
	}
	if config.Provider.UserAgent == "" {
		config.Provider.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	}
	if config.Provider.TimeoutSeconds == 0 {
		config.Provider.TimeoutSeconds = 30
	}

	// Store defaults
	if config.Store.DataDir == "" {
		config.Store.DataDir = "."
	}
	if config.Store.ParquetDir == "" {
		config.Store.ParquetDir = "./parquet_data"
	}

	// Fetch defaults
	if config.Fetch.Symbol == "" {
		config.Fetch.Symbol = "BTC-USD"
	}
	if config.Fetch.Interval == "" {
		config.Fetch.Interval = "5m"
	}
	if config.Fetch.Period == "" {
		config.Fetch.Period = "60d"
	}

	// Chart defaults
	if config.Chart.Count == 0 {
		config.Chart.Count = 15
	}
	if config.Chart.Addr == "" {
		config.Chart.Addr = "127.0.0.1:0"
	}
	if config.Chart.Width == "" {
		config.Chart.Width = "1350px"
	}
	if config.Chart.Height == "" {
		config.Chart.Height = "520px"
	}
	if config.Chart.UpColor == "" {
		config.Chart.UpColor = "#00b060"
	}
	if config.Chart.DownColor == "" {
		config.Chart.DownColor = "#fe3032"
	}

	// Watch defaults
	if config.Watch.Schedule == "" {
		config.Watch.Schedule = "@every 1h"
	}

	// Log defaults
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Output == "" {
		config.Log.Output = "stderr"
	}
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
