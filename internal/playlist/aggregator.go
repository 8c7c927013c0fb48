package playlist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jfmyers9/onair/internal/document"
	"github.com/jfmyers9/onair/internal/metadata"
	"github.com/jfmyers9/onair/internal/metrics"
	"github.com/jfmyers9/onair/internal/nowplaying"
	"github.com/rs/zerolog"
)

// Config holds aggregator configuration
type Config struct {
	DedupeIncluded bool // Keep only the first included resource per {type, id}
}

// Aggregator runs fetch, resolve, transform and publish, one run at a time
type Aggregator struct {
	config   Config
	source   nowplaying.Source
	resolver metadata.Resolver
	cache    *Cache
	logger   zerolog.Logger

	runMu   sync.Mutex
	refresh chan struct{}
}

// NewAggregator creates a new Aggregator instance
func NewAggregator(cfg Config, source nowplaying.Source, resolver metadata.Resolver, cache *Cache, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		config:   cfg,
		source:   source,
		resolver: resolver,
		cache:    cache,
		logger:   logger.With().Str("component", "aggregator").Logger(),
		refresh:  make(chan struct{}, 1),
	}
}

// Cache returns the cache the aggregator publishes into
func (a *Aggregator) Cache() *Cache {
	return a.cache
}

// Refresh requests a run from Run's loop without blocking. Requests made
// while one is already pending are coalesced.
func (a *Aggregator) Refresh() {
	select {
	case a.refresh <- struct{}{}:
	default:
	}
}

// Run performs an initial run, then one run per signal or Refresh until ctx
// is cancelled. Triggers that arrive during a run collapse into at most one
// follow-up run. A run that has started is not cancelled by ctx.
func (a *Aggregator) Run(ctx context.Context, signals <-chan struct{}) error {
	a.logger.Info().
		Str("source", a.source.Name()).
		Bool("dedupe_included", a.config.DedupeIncluded).
		Msg("Starting aggregator")

	runCtx := context.WithoutCancel(ctx)
	a.runLogged(runCtx, "startup")

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("Aggregator stopped")
			return ctx.Err()
		case <-signals:
			drain(a.refresh)
			a.runLogged(runCtx, "push")
		case <-a.refresh:
			drain(signals)
			a.runLogged(runCtx, "refresh")
		}
	}
}

// drain discards a pending trigger, since the run about to start covers it
func drain(ch <-chan struct{}) {
	select {
	case <-ch:
	default:
	}
}

func (a *Aggregator) runLogged(ctx context.Context, trigger string) {
	if _, err := a.RunOnce(ctx); err != nil {
		a.logger.Warn().Err(err).Str("trigger", trigger).Msg("Pipeline run failed, keeping previous document")
	}
}

// RunOnce runs the pipeline once and publishes the result. Concurrent calls
// never overlap, but callers waiting on a run are not admitted in arrival
// order; Run is the single caller that keeps publishes in trigger order. On
// failure the cache is left untouched.
func (a *Aggregator) RunOnce(ctx context.Context) (document.Document, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	runID := uuid.NewString()
	logger := a.logger.With().Str("run_id", runID).Logger()
	start := time.Now()

	doc, err := a.build(ctx, logger)
	metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("failure").Inc()
		return document.Document{}, err
	}

	version := a.cache.Publish(doc)
	metrics.PipelineRuns.WithLabelValues("success").Inc()
	metrics.PublishedSongs.Set(float64(len(doc.Data)))
	metrics.PublishedVersion.Set(float64(version))

	logger.Info().
		Int("songs", len(doc.Data)).
		Int("included", len(doc.Included)).
		Uint64("version", version).
		Dur("duration", time.Since(start)).
		Msg("Published playlist")

	return doc, nil
}

func (a *Aggregator) build(ctx context.Context, logger zerolog.Logger) (document.Document, error) {
	ids, err := a.source.Fetch(ctx)
	if err != nil {
		return document.Document{}, fmt.Errorf("fetch now playing: %w", err)
	}

	valid := make([]nowplaying.TrackID, 0, len(ids))
	for _, id := range ids {
		if id.Valid() {
			valid = append(valid, id)
		}
	}

	logger.Debug().
		Int("entries", len(ids)).
		Int("valid", len(valid)).
		Msg("Fetched now playing")

	records, err := a.resolver.Resolve(ctx, valid)
	if err != nil {
		return document.Document{}, fmt.Errorf("resolve metadata: %w", err)
	}

	doc := document.Transform(records)
	if a.config.DedupeIncluded {
		doc = document.DedupeIncluded(doc)
	}
	return doc, nil
}
