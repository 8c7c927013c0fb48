package itunes

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
)

// lookupBody distinguishes a missing results array from an empty one.
type lookupBody struct {
	ResultCount int       `json:"resultCount"`
	Results     *[]Record `json:"results"`
}

// Lookup resolves a batch of identifiers in a single request.
//
// The ids are comma-joined into the id parameter. An empty batch returns an
// empty response without making a request.
func (c *Client) Lookup(ctx context.Context, ids []string) (*LookupResponse, error) {
	if len(ids) == 0 {
		return &LookupResponse{Results: []Record{}}, nil
	}

	params := url.Values{}
	params.Set("country", c.country)
	params.Set("id", strings.Join(ids, ","))

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var lb lookupBody
	if err := json.Unmarshal(body, &lb); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if lb.Results == nil {
		return nil, fmt.Errorf("%w: missing results array", ErrDecode)
	}

	c.logDebugf("itunes: lookup of %d ids returned %d results", len(ids), len(*lb.Results))

	return &LookupResponse{
		ResultCount: lb.ResultCount,
		Results:     *lb.Results,
	}, nil
}
