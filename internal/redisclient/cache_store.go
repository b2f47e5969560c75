package redisclient

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"pricecheck-service/internal/cache"
	"pricecheck-service/internal/util"
)

// CacheStore mirrors cache entries into one Redis hash per cache id.
type CacheStore struct {
	client *Client
	key    string
	logger *zap.Logger
}

// NewCacheStore returns a cache.Store backed by the hash "cache:<cacheID>"
func NewCacheStore(client *Client, cacheID string) *CacheStore {
	return &CacheStore{
		client: client,
		key:    fmt.Sprintf("cache:%s", cacheID),
		logger: util.GetLogger(),
	}
}

var _ cache.Store = (*CacheStore)(nil)

// LoadAll returns every persisted entry. Fields that cannot be decoded are skipped.
func (s *CacheStore) LoadAll(ctx context.Context) ([]cache.PersistedEntry, error) {
	fields, err := s.client.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load cache hash: %w", err)
	}

	entries := make([]cache.PersistedEntry, 0, len(fields))
	for field, raw := range fields {
		var e cache.PersistedEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			s.logger.Warn("Skipping corrupt persisted cache entry",
				zap.String("key", field),
				zap.Error(err))
			continue
		}
		e.Key = field
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *CacheStore) Save(ctx context.Context, entry cache.PersistedEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return s.client.rdb.HSet(ctx, s.key, entry.Key, raw).Err()
}

func (s *CacheStore) Delete(ctx context.Context, key string) error {
	return s.client.rdb.HDel(ctx, s.key, key).Err()
}

func (s *CacheStore) Clear(ctx context.Context) error {
	return s.client.rdb.Del(ctx, s.key).Err()
}
