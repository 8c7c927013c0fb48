// Package pusher keeps a websocket open to the push notification endpoint and
// turns every inbound message into a refresh signal.
//
// Message payloads are never parsed. Signals are coalesced: while one is
// pending, further messages are dropped, so a slow consumer sees at most one
// queued signal.
package pusher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/jfmyers9/onair/internal/metrics"
	"github.com/jfmyers9/onair/internal/upstream"
	"github.com/rs/zerolog"
)

// State is the connection lifecycle state of a Listener.
type State int32

const (
	Disconnected State = iota
	Connecting
	Open
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrAlreadyStarted is returned by Start on a running listener.
var ErrAlreadyStarted = errors.New("pusher: listener already started")

// Config holds listener configuration.
type Config struct {
	URL              string        // Required: push endpoint (ws:// or wss://)
	BaseDelay        time.Duration // Optional: first reconnect delay (defaults to 1s)
	MaxDelay         time.Duration // Optional: reconnect delay cap (defaults to 30s)
	Jitter           float64       // Optional: randomization factor in [0, 1]
	MaxRetries       uint64        // Optional: consecutive failed attempts before giving up (0 is unlimited)
	PingInterval     time.Duration // Optional: keepalive interval (defaults to 30s)
	HandshakeTimeout time.Duration // Optional: dial timeout (defaults to 10s)
}

// Listener maintains the push connection.
type Listener struct {
	cfg     Config
	dialer  *websocket.Dialer
	logger  zerolog.Logger
	now     func() time.Time
	signals chan struct{}

	state     atomic.Int32
	reconnect atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a listener. It does not connect until Start is called.
func New(cfg Config, logger zerolog.Logger) (*Listener, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return nil, fmt.Errorf("pusher: invalid URL %q", cfg.URL)
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.Jitter < 0 || cfg.Jitter > 1 {
		return nil, fmt.Errorf("pusher: jitter %v outside [0, 1]", cfg.Jitter)
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}

	return &Listener{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger:  logger.With().Str("component", "pusher").Logger(),
		now:     time.Now,
		signals: make(chan struct{}, 1),
	}, nil
}

// Signals returns the channel that receives one value per inbound message,
// coalesced while a value is pending.
func (l *Listener) Signals() <-chan struct{} {
	return l.signals
}

// State returns the current connection state.
func (l *Listener) State() State {
	return State(l.state.Load())
}

// Done returns a channel closed once the listener has stopped for good,
// either through Stop, cancellation of the Start context, or retry exhaustion.
// It returns nil before Start.
func (l *Listener) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Start begins connecting in the background and returns immediately.
// Connection failures are handled by the reconnect policy and never returned.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.reconnect.Store(true)
	l.setState(Connecting)

	go l.run(ctx, l.done)
	return nil
}

// Stop disables auto-reconnect, closes the connection and waits for the
// listener to reach Disconnected. It is safe to call more than once.
func (l *Listener) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	if done == nil {
		return
	}

	l.reconnect.Store(false)
	if l.State() != Disconnected {
		l.setState(Closing)
	}
	cancel()
	<-done
}

func (l *Listener) setState(s State) {
	prev := State(l.state.Swap(int32(s)))
	if prev != s {
		l.logger.Debug().Str("from", prev.String()).Str("to", s.String()).Msg("Push state change")
	}
	if s == Open {
		metrics.PushConnected.Set(1)
	} else {
		metrics.PushConnected.Set(0)
	}
}

func (l *Listener) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer l.setState(Disconnected)

	policy := l.newBackOff()

	for {
		if !l.reconnect.Load() || ctx.Err() != nil {
			return
		}

		l.setState(Connecting)
		endpoint := l.endpoint()

		conn, err := l.dial(ctx, endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			connErr := &upstream.ConnectionError{URL: endpoint, Err: err}
			l.logger.Warn().Err(connErr).Msg("Push connection failed")
			if !l.wait(ctx, policy) {
				return
			}
			continue
		}

		policy.Reset()
		l.setState(Open)
		l.logger.Info().Msg("Push connection open")

		err = l.read(ctx, conn)

		if !l.reconnect.Load() || ctx.Err() != nil {
			l.logger.Info().Msg("Push connection closed")
			return
		}

		// Read errors and clean closes both go through the reconnect policy
		l.logger.Info().Err(err).Msg("Push connection lost, reconnecting")
		metrics.PushReconnects.Inc()
		if !l.wait(ctx, policy) {
			return
		}
	}
}

// endpoint adds a fresh cache-busting timestamp to the configured URL
func (l *Listener) endpoint() string {
	sep := "?"
	if strings.Contains(l.cfg.URL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_=%d&tag=&time=&eventid=", l.cfg.URL, sep, l.now().UnixMilli())
}

func (l *Listener) dial(ctx context.Context, endpoint string) (*websocket.Conn, error) {
	conn, resp, err := l.dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// read emits a signal per inbound message until the connection fails or ctx
// is cancelled. It always closes conn.
func (l *Listener) read(ctx context.Context, conn *websocket.Conn) error {
	deadline := 2 * l.cfg.PingInterval
	_ = conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})

	readDone := make(chan struct{})
	defer close(readDone)

	go l.keepalive(ctx, conn, readDone)

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(deadline))

		metrics.PushMessages.Inc()
		l.logger.Debug().Msg("Push message received")
		l.signal()
	}
}

// keepalive pings the server and closes conn when ctx is cancelled so that
// a blocked read returns
func (l *Listener) keepalive(ctx context.Context, conn *websocket.Conn, readDone <-chan struct{}) {
	ticker := time.NewTicker(l.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			_ = conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				l.logger.Debug().Err(err).Msg("Push ping failed")
				_ = conn.Close()
				return
			}
		}
	}
}

func (l *Listener) signal() {
	select {
	case l.signals <- struct{}{}:
	default:
	}
}

func (l *Listener) newBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = l.cfg.BaseDelay
	exp.MaxInterval = l.cfg.MaxDelay
	exp.RandomizationFactor = l.cfg.Jitter
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0
	exp.Reset()

	if l.cfg.MaxRetries > 0 {
		return backoff.WithMaxRetries(exp, l.cfg.MaxRetries)
	}
	return exp
}

// wait sleeps for the next reconnect delay. It returns false when the listener
// should give up.
func (l *Listener) wait(ctx context.Context, policy backoff.BackOff) bool {
	delay := policy.NextBackOff()
	if delay == backoff.Stop {
		l.logger.Error().Uint64("max_retries", l.cfg.MaxRetries).Msg("Push reconnect attempts exhausted")
		return false
	}

	l.logger.Debug().Dur("delay", delay).Msg("Waiting to reconnect")

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
