package upstream

import (
	"context"
	"errors"
	"time"

	"github.com/jfmyers9/onair/internal/metrics"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes a Breaker. Zero values fall back to the defaults below.
type BreakerConfig struct {
	MaxRequests  uint32        // Requests allowed through while half-open
	Interval     time.Duration // Closed-state window after which counts reset
	Timeout      time.Duration // Open duration before probing again
	FailureLimit uint32        // Consecutive failures that open the circuit
}

// DefaultBreakerConfig returns the breaker settings used for both upstreams.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		FailureLimit: 5,
	}
}

// Breaker wraps calls to a single upstream in a circuit breaker.
type Breaker[T any] struct {
	cb   *gobreaker.CircuitBreaker[T]
	name string
}

// NewBreaker creates a breaker named after the upstream it guards.
func NewBreaker[T any](name string, cfg BreakerConfig, logger zerolog.Logger) *Breaker[T] {
	def := DefaultBreakerConfig()
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.Interval == 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.FailureLimit == 0 {
		cfg.FailureLimit = def.FailureLimit
	}

	log := logger.With().Str("component", "breaker").Str("upstream", name).Logger()
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= cfg.FailureLimit
			if trip {
				log.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("Opening circuit")
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().Str("from", from.String()).Str("to", to.String()).Msg("Circuit state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		// A caller giving up is not an upstream failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Breaker[T]{cb: cb, name: name}
}

// Execute runs fn through the breaker. A rejected call is reported as
// ErrUnavailable.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.UpstreamRequests.WithLabelValues(b.name, "rejected").Inc()
			var zero T
			return zero, Unavailable(b.name, err)
		}
		metrics.UpstreamRequests.WithLabelValues(b.name, "failure").Inc()
		return result, err
	}
	metrics.UpstreamRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

// State reports the breaker state.
func (b *Breaker[T]) State() gobreaker.State {
	return b.cb.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
