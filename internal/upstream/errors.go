// Package upstream holds the failure taxonomy shared by the now-playing feed,
// the metadata lookup and the push connection, plus the circuit breaker that
// guards the two request/response upstreams.
package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable marks a transport or protocol failure talking to an
	// upstream. It aborts the current pipeline run.
	ErrUnavailable = errors.New("upstream unavailable")

	// ErrMalformed marks a response whose shape could not be understood,
	// e.g. an undecodable body or a missing top-level array.
	ErrMalformed = errors.New("malformed upstream data")
)

// Unavailable wraps err so that errors.Is(err, ErrUnavailable) holds.
func Unavailable(name string, err error) error {
	return fmt.Errorf("%s: %w: %w", name, ErrUnavailable, err)
}

// Malformed wraps err so that errors.Is(err, ErrMalformed) holds.
func Malformed(name string, err error) error {
	return fmt.Errorf("%s: %w: %w", name, ErrMalformed, err)
}

// ConnectionError is a push connection failure. The listener recovers from it
// through its reconnect policy; it never reaches readers.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("push connection %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
