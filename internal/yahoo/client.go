// Package yahoo fetches intraday bars from the Yahoo Finance v8 chart API.
// Requests carry the cookie and crumb kept by an auth.Session.
package yahoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/sabarim/intradata/internal/auth"
	"github.com/sabarim/intradata/internal/historical"
	"github.com/sabarim/intradata/internal/logger"
)

// ChartError is the error object Yahoo embeds in a chart response
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *ChartError) Error() string {
	return fmt.Sprintf("yahoo chart error: %s: %s", e.Code, e.Description)
}

// chartResponse represents the Yahoo Finance v8 chart API response.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *ChartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
		GMTOffset            int    `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []quote `json:"quote"`
	} `json:"indicators"`
}

// quote holds one value per timestamp; Yahoo uses null for missing points
type quote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

var _ historical.Provider = (*Client)(nil)

// Client implements historical.Provider
type Client struct {
	session  *auth.Session
	endpoint string
	progress io.Writer
	log      *logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithProgress draws a download progress bar on w; nil disables it.
func WithProgress(w io.Writer) Option {
	return func(c *Client) { c.progress = w }
}

// New creates a chart API client
func New(session *auth.Session, endpoint string, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		session:  session,
		endpoint: endpoint,
		log:      log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Name returns the provider identifier
func (c *Client) Name() string { return "yahoo" }

// Chart fetches bars for symbol at interval over the period range. The
// returned frame carries composite labels such as ("Open", symbol).
func (c *Client) Chart(ctx context.Context, symbol, interval, period string) (*historical.Frame, error) {
	crumb, err := c.session.Crumb(ctx)
	if err != nil {
		return nil, fmt.Errorf("yahoo auth: %w", err)
	}

	query := url.Values{}
	query.Set("interval", interval)
	query.Set("range", period)
	query.Set("includePrePost", "false")
	query.Set("events", "div,splits")
	query.Set("crumb", crumb)
	reqURL := fmt.Sprintf("%s/%s?%s", c.endpoint, url.PathEscape(symbol), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.session.UserAgent())

	resp, err := c.session.Client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// Next request logs in again
		c.session.Invalidate()
		return nil, fmt.Errorf("yahoo returned HTTP %d for %s", resp.StatusCode, symbol)
	}

	body, err := c.readBody(resp, symbol)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("yahoo returned HTTP %d for %s", resp.StatusCode, symbol)
		}
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, chart.Chart.Error
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo returned HTTP %d for %s", resp.StatusCode, symbol)
	}

	if len(chart.Chart.Result) == 0 {
		return &historical.Frame{}, nil
	}

	frame := toFrame(symbol, chart.Chart.Result[0])
	c.log.Debug("Retrieved yahoo chart",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.String("range", period),
		zap.Int("count", frame.Len()))
	return frame, nil
}

func (c *Client) readBody(resp *http.Response, symbol string) ([]byte, error) {
	if c.progress == nil {
		return io.ReadAll(resp.Body)
	}

	bar := progressbar.NewOptions64(resp.ContentLength,
		progressbar.OptionSetWriter(c.progress),
		progressbar.OptionSetDescription("downloading "+symbol),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Finish()

	var buf bytes.Buffer
	if _, err := io.Copy(io.MultiWriter(&buf, bar), resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// toFrame converts a chart result to a frame in the exchange timezone,
// skipping points where any price is null.
func toFrame(symbol string, result chartResult) *historical.Frame {
	loc := exchangeLocation(result)

	if len(result.Indicators.Quote) == 0 {
		return &historical.Frame{}
	}
	q := result.Indicators.Quote[0]

	n := len(result.Timestamp)
	for _, values := range [][]*float64{q.Open, q.High, q.Low, q.Close} {
		n = min(n, len(values))
	}

	index := make([]time.Time, 0, n)
	opens := make([]float64, 0, n)
	highs := make([]float64, 0, n)
	lows := make([]float64, 0, n)
	closes := make([]float64, 0, n)
	volumes := make([]float64, 0, n)

	for i := 0; i < n; i++ {
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil {
			continue
		}
		var volume float64
		if i < len(q.Volume) && q.Volume[i] != nil {
			volume = *q.Volume[i]
		}

		index = append(index, time.Unix(result.Timestamp[i], 0).In(loc))
		opens = append(opens, *q.Open[i])
		highs = append(highs, *q.High[i])
		lows = append(lows, *q.Low[i])
		closes = append(closes, *q.Close[i])
		volumes = append(volumes, volume)
	}

	return &historical.Frame{
		Index: index,
		Columns: []historical.Column{
			{Label: historical.Label{historical.CloseColumn, symbol}, Values: closes},
			{Label: historical.Label{historical.HighColumn, symbol}, Values: highs},
			{Label: historical.Label{historical.LowColumn, symbol}, Values: lows},
			{Label: historical.Label{historical.OpenColumn, symbol}, Values: opens},
			{Label: historical.Label{historical.VolumeColumn, symbol}, Values: volumes},
		},
	}
}

func exchangeLocation(result chartResult) *time.Location {
	if name := result.Meta.ExchangeTimezoneName; name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if result.Meta.GMTOffset != 0 {
		return time.FixedZone("", result.Meta.GMTOffset)
	}
	return time.UTC
}
