package nowplaying

import (
	"context"
)

// TrackID identifies one now-playing entry in the upstream feed. It is opaque:
// the feed may emit numbers or strings. The zero value means the feed had no
// identifier for the entry.
type TrackID string

// Valid reports whether the feed carried an identifier for the entry.
func (id TrackID) Valid() bool {
	return id != ""
}

// String returns the identifier as sent upstream.
func (id TrackID) String() string {
	return string(id)
}

// Source defines the interface for reading the now-playing feed
type Source interface {
	// Fetch returns the identifiers currently in the feed, in feed order.
	// Duplicates are passed through and entries without an identifier are
	// returned as the zero TrackID. Fails with upstream.ErrUnavailable or
	// upstream.ErrMalformed.
	Fetch(ctx context.Context) ([]TrackID, error)

	// Name identifies the implementation in logs
	Name() string
}
