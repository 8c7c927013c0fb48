package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jfmyers9/onair/internal/metrics"
	"github.com/jfmyers9/onair/internal/nowplaying"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// CachedResolver wraps a Resolver with a SQLite cache of records keyed by
// the id they were looked up with. Cache hits are served locally; all misses
// go upstream in a single batch.
//
// The lookup service answers a batch with at most one result per distinct id,
// in the order the ids were sent. CachedResolver returns the same shape: one
// record per distinct id that resolved, in first-seen order, followed by any
// upstream results that match none of the requested ids.
type CachedResolver struct {
	db     *sql.DB
	next   Resolver
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewCachedResolver opens (or creates) the cache database at dbPath.
// ":memory:" keeps the cache for the life of the process only.
func NewCachedResolver(dbPath string, ttl time.Duration, next Resolver, logger zerolog.Logger) (*CachedResolver, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases consistent
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS lookups (
			track_id TEXT PRIMARY KEY,
			record TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_fetched_at ON lookups(fetched_at);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &CachedResolver{
		db:     db,
		next:   next,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With().Str("component", "lookup_cache").Logger(),
	}, nil
}

// Close closes the database connection
func (c *CachedResolver) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Resolve implements Resolver.
func (c *CachedResolver) Resolve(ctx context.Context, ids []nowplaying.TrackID) ([]Record, error) {
	unique := distinct(ids)
	if len(unique) == 0 {
		return []Record{}, nil
	}

	cached, err := c.get(ctx, unique)
	if err != nil {
		// A broken cache must not block the pipeline
		c.logger.Warn().Err(err).Msg("Lookup cache read failed")
		cached = map[nowplaying.TrackID]Record{}
	}

	var misses []nowplaying.TrackID
	for _, id := range unique {
		if _, ok := cached[id]; !ok {
			misses = append(misses, id)
		}
	}

	metrics.LookupCacheHits.Add(float64(len(unique) - len(misses)))
	metrics.LookupCacheMisses.Add(float64(len(misses)))

	var unmatched []Record
	if len(misses) > 0 {
		fetched, err := c.next.Resolve(ctx, misses)
		if err != nil {
			return nil, err
		}

		pending := make(map[nowplaying.TrackID]struct{}, len(misses))
		for _, id := range misses {
			pending[id] = struct{}{}
		}

		entries := make([]entry, 0, len(fetched))
		for _, rec := range fetched {
			id, ok := matchID(rec, pending)
			if !ok {
				unmatched = append(unmatched, rec)
				continue
			}
			delete(pending, id)
			cached[id] = rec
			entries = append(entries, entry{id: id, record: rec})
		}

		if err := c.put(ctx, entries); err != nil {
			c.logger.Warn().Err(err).Msg("Lookup cache write failed")
		}
	}

	c.logger.Debug().
		Int("ids", len(ids)).
		Int("misses", len(misses)).
		Int("unmatched", len(unmatched)).
		Msg("Resolved through cache")

	records := make([]Record, 0, len(unique)+len(unmatched))
	for _, id := range unique {
		if rec, ok := cached[id]; ok {
			records = append(records, rec)
		}
	}
	return append(records, unmatched...), nil
}

// entry is a record stored under the id it was looked up with
type entry struct {
	id     nowplaying.TrackID
	record Record
}

// matchID returns the pending id a lookup result answers. A lookup id may name
// a track, a collection or an artist, so the result's own ids are tried in
// that order.
func matchID(rec Record, pending map[nowplaying.TrackID]struct{}) (nowplaying.TrackID, bool) {
	for _, v := range []*int64{rec.TrackID, rec.CollectionID, rec.ArtistID} {
		if v == nil {
			continue
		}
		id := nowplaying.TrackID(strconv.FormatInt(*v, 10))
		if _, ok := pending[id]; ok {
			return id, true
		}
	}
	return "", false
}

// get returns fresh cached records for ids
func (c *CachedResolver) get(ctx context.Context, ids []nowplaying.TrackID) (map[nowplaying.TrackID]Record, error) {
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id.String())
	}
	args = append(args, c.now().Add(-c.ttl).Unix())

	query := fmt.Sprintf(`
		SELECT track_id, record
		FROM lookups
		WHERE track_id IN (%s)
		AND fetched_at >= ?
	`, strings.Join(placeholders, ", "))

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lookups: %w", err)
	}
	defer rows.Close()

	out := make(map[nowplaying.TrackID]Record, len(ids))
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan lookup: %w", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			// Treat undecodable rows as misses
			continue
		}
		out[nowplaying.TrackID(id)] = rec
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lookups: %w", err)
	}

	return out, nil
}

// put upserts entries keyed by their lookup id
func (c *CachedResolver) put(ctx context.Context, entries []entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO lookups (track_id, record, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET record = excluded.record, fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	fetchedAt := c.now().Unix()
	for _, e := range entries {
		raw, err := json.Marshal(e.record)
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %w", e.id, err)
		}
		if _, err := stmt.ExecContext(ctx, e.id.String(), string(raw), fetchedAt); err != nil {
			return fmt.Errorf("failed to store record %s: %w", e.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Cleanup removes entries older than the cache TTL
func (c *CachedResolver) Cleanup(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-c.ttl).Unix()

	result, err := c.db.ExecContext(ctx, "DELETE FROM lookups WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup lookups: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// Count returns the number of cached entries, fresh or not
func (c *CachedResolver) Count(ctx context.Context) (int, error) {
	var count int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lookups").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count lookups: %w", err)
	}
	return count, nil
}

// distinct drops duplicate and empty ids, keeping first-seen order
func distinct(ids []nowplaying.TrackID) []nowplaying.TrackID {
	seen := make(map[nowplaying.TrackID]struct{}, len(ids))
	out := make([]nowplaying.TrackID, 0, len(ids))
	for _, id := range ids {
		if !id.Valid() {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
