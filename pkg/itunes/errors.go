package itunes

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a non-2xx response from the Lookup API.
type Error struct {
	StatusCode int    // HTTP status code
	Message    string // Response body excerpt or status text
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("itunes: status %d: %s", e.StatusCode, e.Message)
}

// Temporary returns true if the request should be retried.
//
// Server errors (5xx) and rate limiting (429) are temporary.
func (e *Error) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

var (
	// ErrDecode is wrapped by errors for bodies that could not be decoded
	// or that lack the results array.
	ErrDecode = errors.New("itunes: undecodable response")
)
