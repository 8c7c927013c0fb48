package itunes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// maxBodySize bounds how much of a response body is read.
	maxBodySize = 4 << 20

	// maxBackoff caps the delay between retries.
	maxBackoff = 5 * time.Second
)

// get makes a GET request to the Lookup API with retry logic.
//
// It retries network errors and temporary API errors with exponential
// backoff, and stops early if ctx is cancelled.
func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + "?" + params.Encode()
	attempt := 0

	operation := func() ([]byte, error) {
		attempt++
		c.logDebugf("itunes: GET %s (attempt %d/%d)", endpoint, attempt, c.maxRetries)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "onair/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			err = fmt.Errorf("http request failed: %w", err)
			if shouldRetryNetworkError(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		_ = resp.Body.Close()
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to read response: %w", err))
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := &Error{StatusCode: resp.StatusCode, Message: excerpt(body, resp.Status)}
			if apiErr.Temporary() {
				return nil, apiErr
			}
			return nil, backoff.Permanent(apiErr)
		}

		return body, nil
	}

	notify := func(err error, delay time.Duration) {
		c.logDebugf("itunes: retrying in %s: %v", delay, err)
	}

	return backoff.RetryNotifyWithData(operation, backoff.WithContext(c.newBackOff(), ctx), notify)
}

// newBackOff returns the retry schedule for one request: maxRetries attempts,
// doubling from the configured delay up to maxBackoff.
func (c *Client) newBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.backoff
	exp.MaxInterval = maxBackoff
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()

	return backoff.WithMaxRetries(exp, uint64(c.maxRetries-1))
}

// shouldRetryNetworkError checks if a network error is retryable.
func shouldRetryNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func excerpt(body []byte, fallback string) string {
	if len(body) == 0 {
		return fallback
	}
	if len(body) > 200 {
		return string(body[:200])
	}
	return string(body)
}
