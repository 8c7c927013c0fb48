// Package itunes provides a client for the iTunes Lookup API.
//
// # Overview
//
// The Lookup API resolves one or more numeric store identifiers into
// detailed track, album and artist metadata in a single round trip:
//
//	GET https://itunes.apple.com/lookup?country=us&id=941366737,1052966705
//
// This package only implements batch lookup. Identifiers are joined with
// commas into one request; an empty batch never touches the network.
//
// # Quick Start
//
//	client, err := itunes.NewClient(itunes.Config{Country: "us"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := client.Lookup(ctx, []string{"941366737"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, r := range resp.Results {
//	    fmt.Println(r.StringValue(r.TrackName))
//	}
//
// # Optional Fields
//
// Every field of a Record is a pointer. The Lookup API omits fields it has no
// value for (for example artwork on some collections), and callers must be
// able to tell "absent" from "zero".
//
// # Error Handling
//
// Non-2xx responses are returned as *Error. Temporary errors (5xx, 429) and
// network errors are retried with exponential backoff. Bodies that cannot be
// decoded, or that lack the results array, wrap ErrDecode:
//
//	resp, err := client.Lookup(ctx, ids)
//	if errors.Is(err, itunes.ErrDecode) {
//	    // the upstream answered with something unexpected
//	}
package itunes
