package cmd

import (
	"fmt"
	"net/http"

	"github.com/jfmyers9/onair/internal/config"
	"github.com/jfmyers9/onair/internal/metadata"
	"github.com/jfmyers9/onair/internal/nowplaying"
	"github.com/jfmyers9/onair/internal/playlist"
	"github.com/jfmyers9/onair/pkg/itunes"
	"github.com/jfmyers9/onair/pkg/tunegenie"
	"github.com/rs/zerolog"
)

// pipeline is the wired fetch, resolve and publish chain
type pipeline struct {
	aggregator *playlist.Aggregator
	cache      *playlist.Cache
	lookups    *metadata.CachedResolver // nil when the lookup cache is disabled
}

// Close releases the lookup cache database
func (p *pipeline) Close() error {
	if p.lookups == nil {
		return nil
	}
	return p.lookups.Close()
}

// debugLogger adapts zerolog to the SDK Logger interfaces
type debugLogger struct {
	logger zerolog.Logger
}

func (d debugLogger) Debugf(format string, args ...interface{}) {
	d.logger.Debug().Msgf(format, args...)
}

// buildPipeline wires the configured source and resolver into an aggregator
func buildPipeline(cfg *config.Config, logger zerolog.Logger) (*pipeline, error) {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var source nowplaying.Source
	switch cfg.Source {
	case config.SourceStatic:
		source = nowplaying.NewStaticSource(nil)
	default:
		feed, err := tunegenie.NewClient(tunegenie.Config{
			Brand:      cfg.NowPlaying.Brand,
			APIID:      cfg.NowPlaying.APIID,
			Count:      cfg.NowPlaying.Count,
			BaseURL:    cfg.NowPlaying.URL,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create now-playing client: %w", err)
		}
		source = nowplaying.NewLiveSource(feed, logger)
	}

	lookup, err := itunes.NewClient(itunes.Config{
		Country:    cfg.Lookup.Country,
		HTTPClient: httpClient,
		BaseURL:    cfg.Lookup.URL,
		Logger:     debugLogger{logger: logger.With().Str("component", "itunes").Logger()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup client: %w", err)
	}

	p := &pipeline{cache: playlist.NewCache()}

	var resolver metadata.Resolver = metadata.NewITunesResolver(lookup, logger)
	if cfg.Lookup.CachePath != "" {
		cached, err := metadata.NewCachedResolver(cfg.Lookup.CachePath, cfg.Lookup.CacheTTL, resolver, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open lookup cache: %w", err)
		}
		p.lookups = cached
		resolver = cached
	}

	p.aggregator = playlist.NewAggregator(
		playlist.Config{DedupeIncluded: cfg.DedupeIncluded},
		source,
		resolver,
		p.cache,
		logger,
	)

	return p, nil
}
