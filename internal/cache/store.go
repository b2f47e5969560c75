package cache

import (
	"context"
	"encoding/json"
	"time"

	"pricecheck-service/internal/models"
)

// VersionsMetadataKey is the reserved store key holding the version manifest.
const VersionsMetadataKey = "_versions_metadata"

// VersionSource publishes the per-collection version manifest.
type VersionSource interface {
	FetchVersions(ctx context.Context) (*models.Versions, error)
}

// PersistedEntry is the durable form of a cache entry. Value is JSON.
type PersistedEntry struct {
	Key        string          `json:"key" db:"key"`
	Value      json.RawMessage `json:"value" db:"value"`
	Timestamp  time.Time       `json:"timestamp" db:"stored_at"`
	Collection string          `json:"collection,omitempty" db:"collection"`
	Version    string          `json:"version,omitempty" db:"version"`
}

// Store mirrors cache entries to durable storage so they survive restarts.
// Implementations scope their data by cache id.
type Store interface {
	LoadAll(ctx context.Context) ([]PersistedEntry, error)
	Save(ctx context.Context, entry PersistedEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

type versionsMetadata struct {
	Versions         *models.Versions `json:"versions"`
	LastVersionCheck time.Time        `json:"lastVersionCheck"`
}
