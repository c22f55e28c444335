package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vinodismyname/floodreport/config"
)

// ErrHandleNotFound indicates an unknown or expired dataset handle.
var ErrHandleNotFound = errors.New("dataset: handle not found")

// Gate bounds the number of cached datasets (backed by runtime.Controller).
type Gate interface {
	AcquireDataset(ctx context.Context) error
	ReleaseDataset()
}

// PathValidator returns the canonical path for an allowed input or an error.
type PathValidator interface {
	ValidateOpenPath(path string) (string, error)
}

// Entry is a cached dataset with its idle expiry.
type Entry struct {
	ID        string
	Key       string
	Dataset   *Dataset
	LoadedAt  time.Time
	ExpiresAt time.Time
}

// Cache holds loaded datasets behind uuid handles. Datasets are immutable
// once cached, so concurrent readers share them without locking.
type Cache struct {
	mu           sync.Mutex
	entries      map[string]*Entry
	byKey        map[string]string
	ttl          time.Duration
	cleanupEvery time.Duration
	clock        func() time.Time
	gate         Gate
	validator    PathValidator
	stopCh       chan struct{}
	stopOnce     sync.Once
	cleanupWG    sync.WaitGroup
}

// NewCache constructs a cache. ttl or cleanupEvery <= 0 fall back to config
// defaults; gate and validator may be nil; clock defaults to time.Now.
func NewCache(ttl, cleanupEvery time.Duration, gate Gate, validator PathValidator, clock func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = config.DefaultDatasetIdleTTL
	}
	if cleanupEvery <= 0 {
		cleanupEvery = config.DefaultDatasetCleanupPeriod
	}
	if clock == nil {
		clock = time.Now
	}
	return &Cache{
		entries:      make(map[string]*Entry),
		byKey:        make(map[string]string),
		ttl:          ttl,
		cleanupEvery: cleanupEvery,
		clock:        clock,
		gate:         gate,
		validator:    validator,
		stopCh:       make(chan struct{}),
	}
}

// Start launches periodic eviction of idle datasets.
func (c *Cache) Start() {
	c.cleanupWG.Add(1)
	ticker := time.NewTicker(c.cleanupEvery)
	go func() {
		defer c.cleanupWG.Done()
		defer ticker.Stop()
		for {
			select {
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.EvictExpired()
			}
		}
	}()
}

// Close stops background cleanup and drops every entry.
func (c *Cache) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	done := make(chan struct{})
	go func() { c.cleanupWG.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.entries {
		c.dropLocked(id)
	}
	return nil
}

// Open loads path filtered by opts and caches it. A path already cached with
// the same options returns the existing handle.
func (c *Cache) Open(ctx context.Context, path string, opts Options) (*Entry, error) {
	if c.validator != nil {
		canonical, err := c.validator.ValidateOpenPath(path)
		if err != nil {
			return nil, err
		}
		path = canonical
	}

	key := cacheKey(path, opts)
	if e, ok := c.lookup(key); ok {
		return e, nil
	}

	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	ds, err := Load(ctx, path, opts)
	if err != nil {
		c.release()
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.byKey[key]; ok {
		// Lost a race with a concurrent Open of the same source.
		c.release()
		e := c.entries[id]
		e.ExpiresAt = c.clock().Add(c.ttl)
		return e, nil
	}
	e := c.newEntryLocked(key, ds)
	zerolog.Ctx(ctx).Info().Str("dataset_id", e.ID).Str("source", path).Msg("dataset cached")
	return e, nil
}

// Adopt caches an already built dataset.
func (c *Cache) Adopt(ctx context.Context, ds *Dataset) (*Entry, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset: nil dataset")
	}
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newEntryLocked("", ds), nil
}

// Get returns the dataset for id and refreshes its idle expiry.
func (c *Cache) Get(id string) (*Dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	e.ExpiresAt = c.clock().Add(c.ttl)
	return e.Dataset, true
}

// Release drops id and frees its slot.
func (c *Cache) Release(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; !ok {
		return ErrHandleNotFound
	}
	c.dropLocked(id)
	return nil
}

// EvictExpired drops every entry idle past its TTL.
func (c *Cache) EvictExpired() {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.entries {
		if now.After(e.ExpiresAt) {
			c.dropLocked(id)
		}
	}
}

// Count returns the number of cached datasets.
func (c *Cache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) lookup(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.byKey[key]
	if !ok {
		return nil, false
	}
	e := c.entries[id]
	e.ExpiresAt = c.clock().Add(c.ttl)
	return e, true
}

func (c *Cache) newEntryLocked(key string, ds *Dataset) *Entry {
	now := c.clock()
	e := &Entry{
		ID:        uuid.NewString(),
		Key:       key,
		Dataset:   ds,
		LoadedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
	c.entries[e.ID] = e
	if key != "" {
		c.byKey[key] = e.ID
	}
	return e
}

func (c *Cache) dropLocked(id string) {
	e, ok := c.entries[id]
	if !ok {
		return
	}
	delete(c.entries, id)
	if e.Key != "" {
		delete(c.byKey, e.Key)
	}
	c.release()
}

func (c *Cache) acquire(ctx context.Context) error {
	if c.gate == nil {
		return nil
	}
	return c.gate.AcquireDataset(ctx)
}

func (c *Cache) release() {
	if c.gate == nil {
		return
	}
	c.gate.ReleaseDataset()
}

func cacheKey(path string, opts Options) string {
	w := opts.Window
	return fmt.Sprintf("%s|%s|%s|%d|%d", path, opts.Sheet, w.DateColumn, w.FromYear, w.ToYear)
}
