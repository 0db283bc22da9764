package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sabarim/intradata/internal/config"
	"github.com/sabarim/intradata/internal/logger"
)

// Session holds the cookie and crumb Yahoo Finance requires on chart requests
type Session struct {
	config     *config.ProviderConfig
	httpClient *http.Client
	log        *logger.Logger

	mu    sync.Mutex
	crumb string
}

// NewSession creates a session. When httpClient is nil one is built from the
// provider config with a cookie jar, timeout and optional proxy.
func NewSession(cfg *config.ProviderConfig, httpClient *http.Client, log *logger.Logger) (*Session, error) {
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}

		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.Proxy != "" {
			proxyURL, err := url.Parse(cfg.Proxy)
			if err != nil {
				return nil, fmt.Errorf("invalid proxy URL: %w", err)
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}

		httpClient = &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		}
	}

	return &Session{
		config:     cfg,
		httpClient: httpClient,
		log:        log,
	}, nil
}

// Client returns the HTTP client carrying the session cookie
func (s *Session) Client() *http.Client {
	return s.httpClient
}

// UserAgent returns the User-Agent sent with every request
func (s *Session) UserAgent() string {
	return s.config.UserAgent
}

// Crumb returns the cached crumb, logging in first if there is none
func (s *Session) Crumb(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.crumb != "" {
		return s.crumb, nil
	}

	crumb, err := s.login(ctx)
	if err != nil {
		return "", err
	}
	s.crumb = crumb
	return crumb, nil
}

// Invalidate drops the cached crumb so the next Crumb call logs in again
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.crumb = ""
	s.mu.Unlock()
}

// login obtains a session cookie and exchanges it for a crumb
func (s *Session) login(ctx context.Context) (string, error) {
	// The cookie endpoint answers with an error status but still sets the cookie
	cookieResp, err := s.get(ctx, s.config.CookieURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch session cookie: %w", err)
	}
	cookieResp.Body.Close()

	crumbResp, err := s.get(ctx, s.config.CrumbURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch crumb: %w", err)
	}
	defer crumbResp.Body.Close()

	if crumbResp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(crumbResp.Body)
		return "", fmt.Errorf("crumb endpoint returned error status %d: %s", crumbResp.StatusCode, string(bodyBytes))
	}

	bodyBytes, err := io.ReadAll(crumbResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read crumb: %w", err)
	}

	crumb := strings.TrimSpace(string(bodyBytes))
	if crumb == "" {
		return "", fmt.Errorf("received empty crumb")
	}

	s.log.Debug("Obtained Yahoo crumb", zap.Int("crumb_len", len(crumb)))
	return crumb, nil
}

func (s *Session) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	return s.httpClient.Do(req)
}
