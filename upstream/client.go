package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/shelfwatch/stocksync/logger"
)

// ClientConfig holds configuration for the HTTP report client
type ClientConfig struct {
	// BaseURL is the root of the upstream API (required)
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds one fetch round trip
	// default: 30s
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultClientConfig returns the default client configuration
// Note: BaseURL has no default value and must be explicitly set by the user
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{Timeout: 30 * time.Second}
}

// MergeDefaults fills zero fields with default values and returns the config
func (c *ClientConfig) MergeDefaults() *ClientConfig {
	if c.Timeout == 0 {
		c.Timeout = DefaultClientConfig().Timeout
	}
	return c
}

// Validate validates the configuration
func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return &ConfigError{Reason: "missing base_url"}
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return &ConfigError{Reason: fmt.Sprintf("invalid base_url: %v", err)}
	}
	if c.Timeout < 0 {
		return &ConfigError{Reason: fmt.Sprintf("invalid timeout: %v", c.Timeout)}
	}
	return nil
}

// Client fetches inventory report rows over HTTP
type Client struct {
	log     logger.Logger
	baseURL string
	http    *http.Client
}

// NewClient creates an HTTP-backed Source
func NewClient(log logger.Logger, cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		cfg = DefaultClientConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		log:     log,
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// FetchRecords retrieves the report rows, classifying failures as transient
// or fatal per the package error taxonomy
func (c *Client) FetchRecords(ctx context.Context, creds Credentials) ([]RawRecord, error) {
	if creds.APIKey == "" {
		return nil, ErrMissingCredential("api_key")
	}
	if creds.ReportLocator == "" {
		return nil, ErrMissingCredential("report_locator")
	}

	endpoint := fmt.Sprintf("%s/reports/%s/rows", c.baseURL, url.PathEscape(creds.ReportLocator))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FatalError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp.StatusCode); err != nil {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, err
	}

	var records []RawRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, &FatalError{Err: fmt.Errorf("decode response: %w", err)}
	}

	c.log.Debug("fetched upstream report",
		zap.String("report", creds.ReportLocator),
		zap.Int("records", len(records)),
		zap.Duration("duration", time.Since(start)),
	)

	return records, nil
}

// classifyStatus maps a non-2xx response to the error taxonomy
func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests || status >= 500:
		return &TransientError{Status: status, Err: fmt.Errorf("upstream returned %s", http.StatusText(status))}
	default:
		// 401/403 and any other 4xx: retrying will not help
		return &FatalError{Status: status, Err: fmt.Errorf("upstream returned %s", http.StatusText(status))}
	}
}
