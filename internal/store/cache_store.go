package store

import (
	"context"
	"fmt"

	"pricecheck-service/internal/cache"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	cache_id   TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      JSONB       NOT NULL,
	stored_at  TIMESTAMPTZ NOT NULL,
	collection TEXT        NOT NULL DEFAULT '',
	version    TEXT        NOT NULL DEFAULT '',
	PRIMARY KEY (cache_id, key)
)`

// CacheStore persists cache entries in the cache_entries table, scoped by cache id.
type CacheStore struct {
	store   *Store
	cacheID string
}

func NewCacheStore(s *Store, cacheID string) *CacheStore {
	return &CacheStore{store: s, cacheID: cacheID}
}

var _ cache.Store = (*CacheStore)(nil)

// EnsureSchema creates the cache table if it does not exist
func (c *CacheStore) EnsureSchema(ctx context.Context) error {
	if _, err := c.store.db.ExecContext(ctx, cacheSchema); err != nil {
		return fmt.Errorf("failed to create cache_entries: %w", err)
	}
	return nil
}

func (c *CacheStore) LoadAll(ctx context.Context) ([]cache.PersistedEntry, error) {
	var entries []cache.PersistedEntry
	err := c.store.db.SelectContext(ctx, &entries,
		`SELECT key, value, stored_at, collection, version
		 FROM cache_entries WHERE cache_id = $1 ORDER BY stored_at`, c.cacheID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cache entries: %w", err)
	}
	return entries, nil
}

func (c *CacheStore) Save(ctx context.Context, e cache.PersistedEntry) error {
	_, err := c.store.db.ExecContext(ctx,
		`INSERT INTO cache_entries (cache_id, key, value, stored_at, collection, version)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (cache_id, key) DO UPDATE
		 SET value = EXCLUDED.value, stored_at = EXCLUDED.stored_at,
		     collection = EXCLUDED.collection, version = EXCLUDED.version`,
		c.cacheID, e.Key, []byte(e.Value), e.Timestamp, e.Collection, e.Version)
	if err != nil {
		return fmt.Errorf("failed to save cache entry %s: %w", e.Key, err)
	}
	return nil
}

func (c *CacheStore) Delete(ctx context.Context, key string) error {
	_, err := c.store.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE cache_id = $1 AND key = $2", c.cacheID, key)
	return err
}

func (c *CacheStore) Clear(ctx context.Context) error {
	_, err := c.store.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE cache_id = $1", c.cacheID)
	return err
}
