// Package metadata resolves now-playing identifiers into detailed track
// records through a batch lookup service.
package metadata

import (
	"context"
	"errors"

	"github.com/jfmyers9/onair/internal/nowplaying"
	"github.com/jfmyers9/onair/internal/upstream"
	"github.com/jfmyers9/onair/pkg/itunes"
	"github.com/rs/zerolog"
)

// Record is one resolved track. Every field is optional.
type Record = itunes.Record

// Resolver defines the interface for batch metadata lookup
type Resolver interface {
	// Resolve looks up all ids in a single request and returns the records in
	// the order the lookup service produced them: at most one per distinct
	// id, in first-seen order. Results may be collections or artists when an
	// id names one. An empty ids returns an empty result without a request.
	// Fails with upstream.ErrUnavailable or upstream.ErrMalformed.
	Resolve(ctx context.Context, ids []nowplaying.TrackID) ([]Record, error)
}

const upstreamName = "itunes"

// ITunesResolver resolves identifiers with the iTunes Lookup API.
type ITunesResolver struct {
	client  *itunes.Client
	breaker *upstream.Breaker[*itunes.LookupResponse]
	logger  zerolog.Logger
}

// NewITunesResolver creates a resolver backed by client.
func NewITunesResolver(client *itunes.Client, logger zerolog.Logger) *ITunesResolver {
	return &ITunesResolver{
		client:  client,
		breaker: upstream.NewBreaker[*itunes.LookupResponse](upstreamName, upstream.DefaultBreakerConfig(), logger),
		logger:  logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve implements Resolver.
func (r *ITunesResolver) Resolve(ctx context.Context, ids []nowplaying.TrackID) ([]Record, error) {
	if len(ids) == 0 {
		return []Record{}, nil
	}

	batch := make([]string, len(ids))
	for i, id := range ids {
		batch[i] = id.String()
	}

	resp, err := r.breaker.Execute(func() (*itunes.LookupResponse, error) {
		return r.client.Lookup(ctx, batch)
	})
	if err != nil {
		if errors.Is(err, itunes.ErrDecode) {
			return nil, upstream.Malformed(upstreamName, err)
		}
		if errors.Is(err, upstream.ErrUnavailable) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, upstream.Unavailable(upstreamName, err)
	}

	r.logger.Debug().
		Int("requested", len(ids)).
		Int("resolved", len(resp.Results)).
		Msg("Resolved metadata")

	return resp.Results, nil
}
