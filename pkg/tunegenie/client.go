// Package tunegenie provides a client for the TuneGenie now-playing feed.
//
// The feed lists the most recent plays for a broadcast brand:
//
//	GET http://api.tunegenie.com/v1/brand/nowplaying/?b=kndd&apiid=entercom&count=10
//
// Only the store identifier ("sid") of each entry is decoded.
package tunegenie

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

const (
	// DefaultBaseURL is the default now-playing endpoint.
	DefaultBaseURL = "http://api.tunegenie.com/v1/brand/nowplaying/"

	// DefaultCount is the number of entries requested when none is configured.
	DefaultCount = 10
)

// ErrDecode is wrapped by errors for bodies that could not be decoded or
// that lack the response array.
var ErrDecode = errors.New("tunegenie: undecodable response")

// StatusError is a non-2xx response from the feed.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tunegenie: unexpected status %d", e.StatusCode)
}

// Config holds client configuration.
type Config struct {
	Brand      string       // Required: broadcast brand, e.g. "kndd"
	APIID      string       // Required: API consumer id, e.g. "entercom"
	Count      int          // Optional: number of entries (defaults to DefaultCount)
	BaseURL    string       // Optional: endpoint (defaults to DefaultBaseURL)
	HTTPClient *http.Client // Optional: HTTP client (defaults to a client with a 10s timeout)
}

// Client fetches the now-playing feed for one brand.
type Client struct {
	brand      string
	apiID      string
	count      int
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new feed client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Brand == "" {
		return nil, fmt.Errorf("tunegenie: Brand is required")
	}
	if cfg.APIID == "" {
		return nil, fmt.Errorf("tunegenie: APIID is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("tunegenie: invalid BaseURL: %w", err)
	}

	count := cfg.Count
	if count <= 0 {
		count = DefaultCount
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		brand:      cfg.Brand,
		apiID:      cfg.APIID,
		count:      count,
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

// NowPlaying fetches the current feed.
func (c *Client) NowPlaying(ctx context.Context) (*NowPlayingResponse, error) {
	params := url.Values{}
	params.Set("b", c.brand)
	params.Set("apiid", c.apiID)
	params.Set("count", strconv.Itoa(c.count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var np nowPlayingBody
	if err := json.Unmarshal(body, &np); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if np.Response == nil {
		return nil, fmt.Errorf("%w: missing response array", ErrDecode)
	}

	return &NowPlayingResponse{Response: *np.Response}, nil
}
