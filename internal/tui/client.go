package tui

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jfmyers9/onair/internal/document"
)

// Playlist is one poll of the server
type Playlist struct {
	Tracks    []document.Track
	Version   uint64
	UpdatedAt time.Time
}

// Client reads the published playlist from a running onair server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// Fetch returns the current playlist and its publish metadata
func (c *Client) Fetch(ctx context.Context) (*Playlist, error) {
	var doc document.Document
	if err := c.get(ctx, "/api/songs", &doc); err != nil {
		return nil, err
	}

	var health struct {
		Version   uint64     `json:"version"`
		UpdatedAt *time.Time `json:"updated_at"`
	}
	if err := c.get(ctx, "/healthz", &health); err != nil {
		return nil, err
	}

	p := &Playlist{
		Tracks:  doc.Tracks(),
		Version: health.Version,
	}
	if health.UpdatedAt != nil {
		p.UpdatedAt = *health.UpdatedAt
	}
	return p, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", document.MediaType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
