package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jfmyers9/onair/internal/nowplaying"
	"github.com/jfmyers9/onair/internal/upstream"
	"github.com/jfmyers9/onair/pkg/itunes"
	"github.com/rs/zerolog"
)

func newITunesResolver(t *testing.T, handler http.HandlerFunc) (*ITunesResolver, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := itunes.NewClient(itunes.Config{BaseURL: server.URL, MaxRetries: 1})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return NewITunesResolver(client, zerolog.Nop()), &hits
}

func TestITunesResolver_EmptyBatchSkipsNetwork(t *testing.T) {
	resolver, hits := newITunesResolver(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request for empty batch")
	})

	records, err := resolver.Resolve(context.Background(), []nowplaying.TrackID{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", records)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestITunesResolver_SingleBatch(t *testing.T) {
	resolver, hits := newITunesResolver(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id"); got != "1,2" {
			t.Errorf("expected id=1,2, got %q", got)
		}
		_, _ = w.Write([]byte(`{"resultCount": 2, "results": [{"trackId": 2}, {"trackId": 1}]}`))
	})

	records, err := resolver.Resolve(context.Background(), []nowplaying.TrackID{"1", "2"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("expected 1 request, got %d", n)
	}

	// Upstream order is preserved
	if len(records) != 2 || *records[0].TrackID != 2 || *records[1].TrackID != 1 {
		t.Errorf("unexpected records %+v", records)
	}
}

func TestITunesResolver_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "unavailable",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			want: upstream.ErrUnavailable,
		},
		{
			name: "malformed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[]`))
			},
			want: upstream.ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver, _ := newITunesResolver(t, tt.handler)
			_, err := resolver.Resolve(context.Background(), []nowplaying.TrackID{"1"})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// fakeResolver records the batches it is asked for
type fakeResolver struct {
	calls   [][]nowplaying.TrackID
	records map[nowplaying.TrackID]Record
	err     error
}

func (f *fakeResolver) Resolve(ctx context.Context, ids []nowplaying.TrackID) ([]Record, error) {
	f.calls = append(f.calls, append([]nowplaying.TrackID(nil), ids...))
	if f.err != nil {
		return nil, f.err
	}
	var out []Record
	for _, id := range ids {
		if rec, ok := f.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func record(id int64, name string) Record {
	return Record{TrackID: &id, TrackName: &name}
}

func createTestCache(t *testing.T, next Resolver) *CachedResolver {
	t.Helper()
	cache, err := NewCachedResolver(":memory:", time.Hour, next, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create test cache: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Close()
	})
	return cache
}

func TestCachedResolver_ServesHitsLocally(t *testing.T) {
	next := &fakeResolver{records: map[nowplaying.TrackID]Record{
		"1": record(1, "One"),
		"2": record(2, "Two"),
		"3": record(3, "Three"),
	}}
	cache := createTestCache(t, next)
	ctx := context.Background()

	if _, err := cache.Resolve(ctx, []nowplaying.TrackID{"1", "2"}); err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}

	records, err := cache.Resolve(ctx, []nowplaying.TrackID{"3", "2", "1", "2"})
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}

	if len(next.calls) != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", len(next.calls))
	}
	if got := next.calls[1]; len(got) != 1 || got[0] != "3" {
		t.Errorf("expected only the miss to go upstream, got %v", got)
	}

	// One record per distinct id, in first-seen order
	wantOrder := []int64{3, 2, 1}
	if len(records) != len(wantOrder) {
		t.Fatalf("expected %d records, got %d", len(wantOrder), len(records))
	}
	for i, want := range wantOrder {
		if *records[i].TrackID != want {
			t.Errorf("records[%d] = %d, want %d", i, *records[i].TrackID, want)
		}
	}
	if records[0].StringValue(records[0].TrackName) != "Three" {
		t.Errorf("unexpected name %q", records[0].StringValue(records[0].TrackName))
	}

	count, err := cache.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 cached entries, got %d", count)
	}
}

func TestCachedResolver_EmptyBatch(t *testing.T) {
	next := &fakeResolver{}
	cache := createTestCache(t, next)

	records, err := cache.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
	if len(next.calls) != 0 {
		t.Errorf("expected no upstream calls, got %d", len(next.calls))
	}
}

func TestCachedResolver_ExpiredEntriesAreMisses(t *testing.T) {
	next := &fakeResolver{records: map[nowplaying.TrackID]Record{"1": record(1, "One")}}
	cache := createTestCache(t, next)
	ctx := context.Background()

	base := time.Now()
	cache.now = func() time.Time { return base }
	if _, err := cache.Resolve(ctx, []nowplaying.TrackID{"1"}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	cache.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := cache.Resolve(ctx, []nowplaying.TrackID{"1"}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(next.calls) != 2 {
		t.Errorf("expected expired entry to be refetched, got %d calls", len(next.calls))
	}

	cache.now = func() time.Time { return base.Add(4 * time.Hour) }
	deleted, err := cache.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted entry, got %d", deleted)
	}
}

func TestCachedResolver_PropagatesUpstreamErrors(t *testing.T) {
	boom := upstream.Unavailable("itunes", errors.New("boom"))
	cache := createTestCache(t, &fakeResolver{err: boom})

	_, err := cache.Resolve(context.Background(), []nowplaying.TrackID{"1"})
	if !errors.Is(err, upstream.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

// lookupCatalog serves an iTunes-style lookup: one result per distinct
// requested id that the catalog knows, in request order
func lookupCatalog(catalog map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seen := map[string]bool{}
		var results []string
		for _, id := range strings.Split(r.URL.Query().Get("id"), ",") {
			if seen[id] {
				continue
			}
			seen[id] = true
			if rec, ok := catalog[id]; ok {
				results = append(results, rec)
			}
		}
		fmt.Fprintf(w, `{"resultCount": %d, "results": [%s]}`, len(results), strings.Join(results, ","))
	}
}

// identities describes records by wrapper type and their most specific id
func identities(records []Record) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		switch {
		case rec.TrackID != nil:
			out[i] = fmt.Sprintf("track:%d", *rec.TrackID)
		case rec.CollectionID != nil:
			out[i] = fmt.Sprintf("collection:%d", *rec.CollectionID)
		case rec.ArtistID != nil:
			out[i] = fmt.Sprintf("artist:%d", *rec.ArtistID)
		default:
			out[i] = "none"
		}
	}
	return out
}

func TestCachedResolver_MatchesUncached(t *testing.T) {
	catalog := map[string]string{
		"1": `{"wrapperType": "track", "trackId": 1, "collectionId": 9, "artistId": 5}`,
		"9": `{"wrapperType": "collection", "collectionId": 9, "artistId": 5}`,
		"5": `{"wrapperType": "artist", "artistId": 5}`,
	}

	tests := []struct {
		name string
		ids  []nowplaying.TrackID
	}{
		{name: "duplicate track", ids: []nowplaying.TrackID{"1", "9", "1"}},
		{name: "artist id", ids: []nowplaying.TrackID{"5", "1"}},
		{name: "unknown id", ids: []nowplaying.TrackID{"404", "9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uncached, _ := newITunesResolver(t, lookupCatalog(catalog))
			next, hits := newITunesResolver(t, lookupCatalog(catalog))
			cache := createTestCache(t, next)
			ctx := context.Background()

			want, err := uncached.Resolve(ctx, tt.ids)
			if err != nil {
				t.Fatalf("uncached Resolve failed: %v", err)
			}

			// The first pass fills the cache, the second is served from it
			for pass := 1; pass <= 2; pass++ {
				got, err := cache.Resolve(ctx, tt.ids)
				if err != nil {
					t.Fatalf("pass %d: cached Resolve failed: %v", pass, err)
				}
				if !slices.Equal(identities(got), identities(want)) {
					t.Errorf("pass %d: cached = %v, uncached = %v", pass, identities(got), identities(want))
				}
			}

			// Unknown ids are never cached, so only they go upstream again
			wantHits := int32(1)
			if slices.Contains(tt.ids, "404") {
				wantHits = 2
			}
			if n := hits.Load(); n != wantHits {
				t.Errorf("expected %d upstream requests, got %d", wantHits, n)
			}
		})
	}
}

func TestCachedResolver_PassesThroughUnmatchedResults(t *testing.T) {
	resolver, _ := newITunesResolver(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"resultCount": 2, "results": [{"trackName": "Nameless"}, {"trackId": 1}]}`))
	})
	cache := createTestCache(t, resolver)
	ctx := context.Background()

	records, err := cache.Resolve(ctx, []nowplaying.TrackID{"1"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := identities(records); !slices.Equal(got, []string{"track:1", "none"}) {
		t.Errorf("unexpected records %v", got)
	}

	count, err := cache.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected only the matched record cached, got %d", count)
	}
}
