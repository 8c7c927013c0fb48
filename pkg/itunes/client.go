package itunes

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Config holds client configuration.
type Config struct {
	Country    string        // Optional: storefront country (defaults to "us")
	HTTPClient *http.Client  // Optional: HTTP client (defaults to a client with a 10s timeout)
	BaseURL    string        // Optional: Lookup endpoint (defaults to DefaultBaseURL, used for testing)
	MaxRetries int           // Optional: attempts per request (defaults to 3)
	Backoff    time.Duration // Optional: initial retry delay (defaults to 500ms)
	Logger     Logger        // Optional: Logger interface for debug logging
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client is the entry point for Lookup API operations.
type Client struct {
	country    string
	httpClient *http.Client
	baseURL    string
	maxRetries int
	backoff    time.Duration
	logger     Logger
}

const (
	// DefaultBaseURL is the default Lookup API endpoint.
	DefaultBaseURL = "https://itunes.apple.com/lookup"

	// DefaultCountry is the storefront used when none is configured.
	DefaultCountry = "us"
)

// NewClient creates a new Lookup API client.
//
// Returns an error if BaseURL is not a valid absolute URL.
func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("itunes: invalid BaseURL %q", baseURL)
	}

	country := cfg.Country
	if country == "" {
		country = DefaultCountry
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	return &Client{
		country:    country,
		httpClient: httpClient,
		baseURL:    baseURL,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     cfg.Logger,
	}, nil
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
