// Package cache provides a bounded, TTL and version aware memoization layer
// for market responses.
package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"pricecheck-service/internal/apperror"
	"pricecheck-service/internal/models"
	"pricecheck-service/internal/util"
)

const (
	DefaultMaxSize              = 100
	DefaultTTL                  = time.Hour
	DefaultVersionCheckInterval = 5 * time.Minute
)

var ErrNoVersionSource = errors.New("cache: no version source configured")

// Options configures a VersionedCache. Zero fields take the defaults above.
type Options struct {
	Name                 string
	MaxSize              int
	TTL                  time.Duration
	VersionCheckInterval time.Duration
	Versions             VersionSource
	Store                Store
	Logger               *zap.Logger
	Now                  func() time.Time
}

type entry struct {
	value      any
	raw        json.RawMessage
	timestamp  time.Time
	collection string
	version    string
	elem       *list.Element
}

// VersionedCache memoizes fetch results by key. Entries expire after the TTL
// and are discarded early when the remote version of their collection changes.
// Evictions are insertion-order FIFO.
type VersionedCache struct {
	name     string
	maxSize  int
	ttl      time.Duration
	interval time.Duration
	source   VersionSource
	store    Store
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	entries   map[string]*entry
	order     *list.List
	tags      map[string]string // collection -> version tag at its latest write
	versions  *models.Versions
	lastCheck time.Time

	fetches  singleflight.Group
	checking singleflight.Group
}

// New builds a cache and, when a Store is configured, loads the entries that
// are still within the TTL.
func New(ctx context.Context, opts Options) *VersionedCache {
	c := &VersionedCache{
		name:     opts.Name,
		maxSize:  opts.MaxSize,
		ttl:      opts.TTL,
		interval: opts.VersionCheckInterval,
		source:   opts.Versions,
		store:    opts.Store,
		logger:   opts.Logger,
		now:      opts.Now,
		entries:  make(map[string]*entry),
		order:    list.New(),
		tags:     make(map[string]string),
	}
	if c.name == "" {
		c.name = "default"
	}
	if c.maxSize <= 0 {
		c.maxSize = DefaultMaxSize
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.interval <= 0 {
		c.interval = DefaultVersionCheckInterval
	}
	if c.logger == nil {
		c.logger = util.GetLogger()
	}
	c.logger = c.logger.With(zap.String("cache", c.name))
	if c.now == nil {
		c.now = time.Now
	}

	if c.store != nil {
		c.load(ctx)
	}
	return c
}

// Get returns the cached value for key or calls fetch and caches its result.
// A non-empty collection ties the entry to that collection's remote version.
// Concurrent misses on the same key share one fetch. Fetch errors are returned
// unchanged and nothing is cached.
func Get[T any](ctx context.Context, c *VersionedCache, key, collection string, fetch func(context.Context) (T, error)) (T, error) {
	if collection != "" && c.ShouldRefresh(ctx, collection) {
		util.CacheRequestsTotal.WithLabelValues(c.name, "refresh").Inc()
		return refresh(ctx, c, key, collection, fetch)
	}

	if v, ok := lookup[T](c, key); ok {
		util.CacheRequestsTotal.WithLabelValues(c.name, "hit").Inc()
		return v, nil
	}

	util.CacheRequestsTotal.WithLabelValues(c.name, "miss").Inc()
	return refresh(ctx, c, key, collection, fetch)
}

// refresh runs fetch once per key for all concurrent callers. The shared fetch
// is detached from any single caller's cancellation; each caller still stops
// waiting when its own ctx is done.
func refresh[T any](ctx context.Context, c *VersionedCache, key, collection string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	ch := c.fetches.DoChan(key, func() (any, error) {
		fetchCtx, span := util.StartSpan(context.WithoutCancel(ctx), "cache.fetch")
		v, err := fetch(fetchCtx)
		util.EndSpan(span, err)
		if err != nil {
			return nil, err
		}
		c.Set(fetchCtx, key, v, collection)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("cache: shared fetch for %q returned %T, want %T", key, res.Val, zero)
		}
		return v, nil
	case <-ctx.Done():
		return zero, apperror.Remote(0, "cache fetch abandoned", ctx.Err())
	}
}

// lookup returns a valid entry decoded as T. Persisted entries are decoded on
// first use; an entry that cannot be decoded is dropped and reported as a miss.
func lookup[T any](c *VersionedCache, key string) (T, bool) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !c.validLocked(e) {
		c.removeLocked(key, e)
		return zero, false
	}

	if e.raw != nil {
		var v T
		if err := json.Unmarshal(e.raw, &v); err != nil {
			c.logger.Warn("Dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
			c.removeLocked(key, e)
			return zero, false
		}
		e.value = v
		e.raw = nil
	}

	v, ok := e.value.(T)
	return v, ok
}

// Set stores value under key, evicting the oldest insertion when full.
func (c *VersionedCache) Set(ctx context.Context, key string, value any, collection string) {
	now := c.now()

	c.mu.Lock()
	var evicted []string
	if e, ok := c.entries[key]; ok {
		c.removeLocked(key, e)
	}
	for len(c.entries) >= c.maxSize {
		front := c.order.Front()
		if front == nil {
			break
		}
		oldest := front.Value.(string)
		c.removeLocked(oldest, c.entries[oldest])
		evicted = append(evicted, oldest)
	}

	version := ""
	if collection != "" {
		version = c.versions.Collection(collection)
		if version != "" {
			c.tags[collection] = version
		}
	}
	e := &entry{
		value:      value,
		timestamp:  now,
		collection: collection,
		version:    version,
	}
	e.elem = c.order.PushBack(key)
	c.entries[key] = e
	c.mu.Unlock()

	for _, k := range evicted {
		util.CacheEvictionsTotal.WithLabelValues(c.name).Inc()
		c.persistDelete(ctx, k)
	}
	c.persist(ctx, key, value, now, collection, version)
}

// ShouldRefresh reports whether the remote version of collection differs from
// the one recorded at its latest write. Version check failures are logged and
// reported as not stale.
func (c *VersionedCache) ShouldRefresh(ctx context.Context, collection string) bool {
	versions, err := c.CheckVersions(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoVersionSource) {
			c.logger.Warn("Version check failed, serving cached data", zap.String("collection", collection), zap.Error(err))
		}
		return false
	}

	server := versions.Collection(collection)
	if server == "" {
		return false
	}

	c.mu.Lock()
	cached := c.tags[collection]
	c.mu.Unlock()
	return cached != server
}

// CheckVersions returns the remote version manifest, refetching it at most
// once per check interval. When a refetch fails the previous manifest is
// returned if there is one.
func (c *VersionedCache) CheckVersions(ctx context.Context) (*models.Versions, error) {
	c.mu.Lock()
	if c.versions != nil && c.now().Sub(c.lastCheck) < c.interval {
		v := c.versions
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	if c.source == nil {
		return nil, ErrNoVersionSource
	}

	ch := c.checking.DoChan("versions", func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		versions, err := c.source.FetchVersions(fetchCtx)
		if err != nil {
			util.VersionChecksTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		util.VersionChecksTotal.WithLabelValues("ok").Inc()

		now := c.now()
		c.mu.Lock()
		c.versions = versions
		c.lastCheck = now
		c.mu.Unlock()

		c.persistVersions(fetchCtx, versions, now)
		return versions, nil
	})

	var err error
	select {
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(*models.Versions), nil
		}
		err = res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}

	c.mu.Lock()
	stale := c.versions
	c.mu.Unlock()
	if stale != nil {
		c.logger.Warn("Version check failed, using previous manifest", zap.Error(err))
		return stale, nil
	}
	return nil, err
}

// Has reports whether key holds an unexpired, version-current entry. A
// persisted entry is not decoded here, so Get may still reject it as a miss.
func (c *VersionedCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if !c.validLocked(e) {
		c.removeLocked(key, e)
		return false
	}
	return true
}

// Delete removes key from memory and from the store.
func (c *VersionedCache) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(key, e)
	}
	c.mu.Unlock()

	c.persistDelete(ctx, key)
}

// Clear drops every entry and the version manifest.
func (c *VersionedCache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.order.Init()
	c.tags = make(map[string]string)
	c.versions = nil
	c.lastCheck = time.Time{}
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.Clear(ctx); err != nil {
		c.storeFailed("clear", err)
	}
}

// Size counts stored entries, expired ones included until they are looked up.
func (c *VersionedCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *VersionedCache) Name() string { return c.name }

func (c *VersionedCache) validLocked(e *entry) bool {
	if c.now().Sub(e.timestamp) > c.ttl {
		return false
	}
	if e.collection == "" {
		return true
	}
	current := c.versions.Collection(e.collection)
	return current == "" || e.version == current
}

func (c *VersionedCache) removeLocked(key string, e *entry) {
	if e == nil {
		return
	}
	c.order.Remove(e.elem)
	delete(c.entries, key)
}

func (c *VersionedCache) load(ctx context.Context) {
	persisted, err := c.store.LoadAll(ctx)
	if err != nil {
		c.storeFailed("load", err)
		return
	}

	now := c.now()
	sort.SliceStable(persisted, func(i, j int) bool {
		return persisted[i].Timestamp.Before(persisted[j].Timestamp)
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range persisted {
		if p.Key == VersionsMetadataKey {
			var meta versionsMetadata
			if err := json.Unmarshal(p.Value, &meta); err != nil {
				c.logger.Warn("Ignoring corrupt version metadata", zap.Error(err))
				continue
			}
			c.versions = meta.Versions
			c.lastCheck = meta.LastVersionCheck
			continue
		}
		if len(p.Value) == 0 || now.Sub(p.Timestamp) > c.ttl {
			continue
		}
		if old, ok := c.entries[p.Key]; ok {
			c.removeLocked(p.Key, old)
		}
		e := &entry{
			raw:        p.Value,
			timestamp:  p.Timestamp,
			collection: p.Collection,
			version:    p.Version,
		}
		e.elem = c.order.PushBack(p.Key)
		c.entries[p.Key] = e
		if p.Collection != "" && p.Version != "" {
			c.tags[p.Collection] = p.Version
		}
	}

	for len(c.entries) > c.maxSize {
		oldest := c.order.Front().Value.(string)
		c.removeLocked(oldest, c.entries[oldest])
	}

	c.logger.Info("Loaded persisted cache entries", zap.Int("entries", len(c.entries)))
}

func (c *VersionedCache) persist(ctx context.Context, key string, value any, ts time.Time, collection, version string) {
	if c.store == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.storeFailed("encode", err)
		return
	}
	err = c.store.Save(ctx, PersistedEntry{
		Key:        key,
		Value:      raw,
		Timestamp:  ts,
		Collection: collection,
		Version:    version,
	})
	if err != nil {
		c.storeFailed("save", err)
	}
}

func (c *VersionedCache) persistVersions(ctx context.Context, versions *models.Versions, checked time.Time) {
	if c.store == nil {
		return
	}
	raw, err := json.Marshal(versionsMetadata{Versions: versions, LastVersionCheck: checked})
	if err != nil {
		c.storeFailed("encode", err)
		return
	}
	if err := c.store.Save(ctx, PersistedEntry{Key: VersionsMetadataKey, Value: raw, Timestamp: checked}); err != nil {
		c.storeFailed("save", err)
	}
}

func (c *VersionedCache) persistDelete(ctx context.Context, key string) {
	if c.store == nil {
		return
	}
	if err := c.store.Delete(ctx, key); err != nil {
		c.storeFailed("delete", err)
	}
}

// storeFailed logs and counts a store failure; the cache keeps working from memory.
func (c *VersionedCache) storeFailed(op string, err error) {
	util.CachePersistenceErrorsTotal.WithLabelValues(op).Inc()
	c.logger.Warn("Persistent cache operation failed", zap.Error(apperror.CacheIO(op, err)))
}
