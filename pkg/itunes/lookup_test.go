package itunes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL: url,
		Backoff: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{}},
		{name: "custom base url", cfg: Config{BaseURL: "http://localhost:8080/lookup"}},
		{name: "relative base url", cfg: Config{BaseURL: "/lookup"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewClient failed: %v", err)
			}
			if client.country != DefaultCountry {
				t.Errorf("expected country %q, got %q", DefaultCountry, client.country)
			}
		})
	}
}

func TestLookup_BatchesIDsIntoOneRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Method != http.MethodGet {
			t.Errorf("expected GET request, got %s", r.Method)
		}
		if got := r.URL.Query().Get("id"); got != "941366737,1052966705" {
			t.Errorf("expected comma-joined ids, got %q", got)
		}
		if got := r.URL.Query().Get("country"); got != "us" {
			t.Errorf("expected country us, got %q", got)
		}
		_, _ = w.Write([]byte(`{
			"resultCount": 2,
			"results": [
				{"trackId": 941366737, "trackName": "Song One", "artistName": "Artist", "trackCount": 12},
				{"trackId": 1052966705, "collectionName": "Album Two"}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	resp, err := client.Lookup(context.Background(), []string{"941366737", "1052966705"})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	if n := hits.Load(); n != 1 {
		t.Errorf("expected 1 HTTP request, got %d", n)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}

	first := resp.Results[0]
	if first.TrackID == nil || *first.TrackID != 941366737 {
		t.Errorf("unexpected trackId %v", first.TrackID)
	}
	if first.StringValue(first.TrackName) != "Song One" {
		t.Errorf("unexpected trackName %q", first.StringValue(first.TrackName))
	}
	if first.TrackCount == nil || *first.TrackCount != 12 {
		t.Errorf("unexpected trackCount %v", first.TrackCount)
	}

	second := resp.Results[1]
	if second.TrackName != nil {
		t.Errorf("expected absent trackName, got %q", *second.TrackName)
	}
	if second.ArtistID != nil {
		t.Errorf("expected absent artistId, got %d", *second.ArtistID)
	}
}

func TestLookup_EmptyBatchSkipsRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	resp, err := client.Lookup(context.Background(), nil)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("expected no results, got %d", len(resp.Results))
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("expected no HTTP requests, got %d", n)
	}
}

func TestLookup_Errors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantHits   int32
		check      func(t *testing.T, err error)
	}{
		{
			name:       "server error is retried",
			statusCode: http.StatusServiceUnavailable,
			body:       "unavailable",
			wantHits:   3,
			check: func(t *testing.T, err error) {
				var apiErr *Error
				if !errors.As(err, &apiErr) {
					t.Fatalf("expected *Error, got %T", err)
				}
				if apiErr.StatusCode != http.StatusServiceUnavailable {
					t.Errorf("unexpected status %d", apiErr.StatusCode)
				}
			},
		},
		{
			name:       "client error is not retried",
			statusCode: http.StatusNotFound,
			body:       "not found",
			wantHits:   1,
			check: func(t *testing.T, err error) {
				var apiErr *Error
				if !errors.As(err, &apiErr) {
					t.Fatalf("expected *Error, got %T", err)
				}
				if apiErr.Temporary() {
					t.Error("404 should not be temporary")
				}
			},
		},
		{
			name:       "invalid json",
			statusCode: http.StatusOK,
			body:       "<html>",
			wantHits:   1,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrDecode) {
					t.Errorf("expected ErrDecode, got %v", err)
				}
			},
		},
		{
			name:       "missing results array",
			statusCode: http.StatusOK,
			body:       `{"resultCount": 0}`,
			wantHits:   1,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrDecode) {
					t.Errorf("expected ErrDecode, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			_, err := client.Lookup(context.Background(), []string{"1"})
			if err == nil {
				t.Fatal("expected error but got nil")
			}
			tt.check(t, err)

			if n := hits.Load(); n != tt.wantHits {
				t.Errorf("expected %d requests, got %d", tt.wantHits, n)
			}
		})
	}
}

func TestLookup_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, Backoff: time.Hour})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Lookup(ctx, []string{"1"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestNewBackOff(t *testing.T) {
	tests := []struct {
		name       string
		initial    time.Duration
		maxRetries int
		want       []time.Duration
	}{
		{
			name:       "doubles between attempts",
			initial:    time.Second,
			maxRetries: 4,
			want:       []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
		},
		{
			name:       "capped at five seconds",
			initial:    4 * time.Second,
			maxRetries: 3,
			want:       []time.Duration{4 * time.Second, 5 * time.Second},
		},
		{
			name:       "single attempt never retries",
			initial:    time.Second,
			maxRetries: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(Config{Backoff: tt.initial, MaxRetries: tt.maxRetries})
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}

			b := client.newBackOff()
			for i, want := range tt.want {
				if got := b.NextBackOff(); got != want {
					t.Errorf("delay %d = %v, want %v", i, got, want)
				}
			}
			if got := b.NextBackOff(); got != backoff.Stop {
				t.Errorf("expected Stop after %d retries, got %v", len(tt.want), got)
			}
		})
	}
}
