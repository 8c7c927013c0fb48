package nowplaying

import (
	"context"
	"errors"

	"github.com/jfmyers9/onair/internal/upstream"
	"github.com/jfmyers9/onair/pkg/tunegenie"
	"github.com/rs/zerolog"
)

const upstreamName = "tunegenie"

// LiveSource reads the TuneGenie now-playing feed.
type LiveSource struct {
	client  *tunegenie.Client
	breaker *upstream.Breaker[*tunegenie.NowPlayingResponse]
	logger  zerolog.Logger
}

// NewLiveSource creates a source backed by the given feed client.
func NewLiveSource(client *tunegenie.Client, logger zerolog.Logger) *LiveSource {
	return &LiveSource{
		client:  client,
		breaker: upstream.NewBreaker[*tunegenie.NowPlayingResponse](upstreamName, upstream.DefaultBreakerConfig(), logger),
		logger:  logger.With().Str("component", "nowplaying").Logger(),
	}
}

// Fetch queries the feed and extracts one TrackID per entry.
func (s *LiveSource) Fetch(ctx context.Context) ([]TrackID, error) {
	resp, err := s.breaker.Execute(func() (*tunegenie.NowPlayingResponse, error) {
		return s.client.NowPlaying(ctx)
	})
	if err != nil {
		if errors.Is(err, tunegenie.ErrDecode) {
			return nil, upstream.Malformed(upstreamName, err)
		}
		if errors.Is(err, upstream.ErrUnavailable) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, upstream.Unavailable(upstreamName, err)
	}

	ids := make([]TrackID, len(resp.Response))
	for i, entry := range resp.Response {
		if entry.SID.Valid {
			ids[i] = TrackID(entry.SID.Value)
		}
	}

	s.logger.Debug().Int("entries", len(ids)).Msg("Fetched now playing")
	return ids, nil
}

func (s *LiveSource) Name() string {
	return "live"
}
