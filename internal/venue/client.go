package venue

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client provides access to the Kalshi trade API.
type Client struct {
	baseURL    string
	basePath   string
	signer     *Signer
	httpClient *http.Client
	logger     *slog.Logger

	environment  string
	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new trade API client. baseURL includes the
// /trade-api/v2 prefix; environment is "demo" or "live" as configured.
func NewClient(baseURL, environment string, signer *Signer, opts ...ClientOption) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:  baseURL,
		basePath: parsed.Path,
		signer:   signer,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		environment:  environment,
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Environment reports which Kalshi environment this client targets.
func (c *Client) Environment() string { return c.environment }

// Configured reports whether the client can sign requests.
func (c *Client) Configured() bool { return c.signer != nil }

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}
