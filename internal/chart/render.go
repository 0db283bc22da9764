// Package chart renders a stored series as a candlestick chart with a volume
// panel and shows it in the system browser.
package chart

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/sabarim/intradata/internal/config"
	"github.com/sabarim/intradata/internal/historical"
	"github.com/sabarim/intradata/internal/logger"
)

const (
	labelLayout = "2006-01-02 15:04"
	previewSize = 5
)

// Renderer draws series loaded from a store
type Renderer struct {
	store  *historical.Store
	config config.ChartConfig
	log    *logger.Logger
	out    io.Writer
	open   func(url string) error
}

// Option configures a Renderer
type Option func(*Renderer)

// WithOutput sets where the data preview is printed (stdout by default)
func WithOutput(w io.Writer) Option {
	return func(r *Renderer) { r.out = w }
}

// WithOpener replaces the function that opens the chart URL
func WithOpener(open func(url string) error) Option {
	return func(r *Renderer) { r.open = open }
}

// NewRenderer creates a renderer reading from store
func NewRenderer(store *historical.Store, cfg config.ChartConfig, log *logger.Logger, opts ...Option) *Renderer {
	r := &Renderer{
		store:  store,
		config: cfg,
		log:    log,
		out:    os.Stdout,
		open:   browser.OpenURL,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Plot loads the stored series for symbol and interval, prints a preview of
// it and shows the last count bars. It blocks until the chart page is closed
// or ctx is cancelled.
func (r *Renderer) Plot(ctx context.Context, symbol, interval string, count int) error {
	if count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", count)
	}

	series, err := r.store.Load(symbol, interval)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, historical.PreviewSeries(series, previewSize))

	var page bytes.Buffer
	if err := r.RenderTo(&page, series.Tail(count)); err != nil {
		return err
	}

	r.log.Debug("Rendered chart",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("bars", min(count, series.Len())))

	return r.serve(ctx, withCloseBeacon(page.Bytes()))
}

// RenderTo writes the chart of every bar in series as a standalone HTML page
func (r *Renderer) RenderTo(w io.Writer, series historical.Series) error {
	labels, klines, volumes := candles(series, r.config.UpColor, r.config.DownColor)
	title := fmt.Sprintf("%s - %s", series.Symbol, series.Interval)

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     r.config.Width,
			Height:    r.config.Height,
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{SplitNumber: 10}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Price", Scale: true}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", Start: 0, End: 100}),
	)
	kline.SetXAxis(labels).
		AddSeries(series.Symbol, klines).
		SetSeriesOptions(charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        r.config.UpColor,
			Color0:       r.config.DownColor,
			BorderColor:  r.config.UpColor,
			BorderColor0: r.config.DownColor,
		}))

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  r.config.Width,
			Height: volumeHeight(r.config.Height),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Volume", Scale: true}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", Start: 0, End: 100}),
	)
	bar.SetXAxis(labels).AddSeries(historical.VolumeColumn, volumes)

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(kline, bar)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// candles converts bars to axis labels, candlesticks and colored volume bars
func candles(series historical.Series, upColor, downColor string) ([]string, []opts.KlineData, []opts.BarData) {
	labels := make([]string, 0, series.Len())
	klines := make([]opts.KlineData, 0, series.Len())
	volumes := make([]opts.BarData, 0, series.Len())

	for _, b := range series.Bars {
		labels = append(labels, b.Timestamp.Format(labelLayout))
		// echarts expects open, close, low, high
		klines = append(klines, opts.KlineData{Value: [4]float64{b.Open, b.Close, b.Low, b.High}})

		color := upColor
		if b.Close < b.Open {
			color = downColor
		}
		volumes = append(volumes, opts.BarData{
			Value:     b.Volume,
			ItemStyle: &opts.ItemStyle{Color: color},
		})
	}
	return labels, klines, volumes
}

// volumeHeight gives the volume panel a third of the price panel height
func volumeHeight(height string) string {
	var px int
	if _, err := fmt.Sscanf(height, "%dpx", &px); err != nil || px <= 0 {
		return "200px"
	}
	return fmt.Sprintf("%dpx", px/3)
}
