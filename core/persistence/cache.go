package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kishultan/go-strata/core/query"
)

// CacheOptions configures the caching decorator. List and count results are
// cached under independently configurable TTLs; a zero TTL disables caching
// for that result shape.
type CacheOptions struct {
	ListTTL  time.Duration
	CountTTL time.Duration
	// MaxEntries bounds the cache; 0 means unbounded. Eviction drops
	// expired entries first and then arbitrary ones.
	MaxEntries int
}

// DefaultCacheOptions returns a conservative cache configuration.
func DefaultCacheOptions() CacheOptions {
	return CacheOptions{
		ListTTL:    30 * time.Second,
		CountTTL:   30 * time.Second,
		MaxEntries: 1024,
	}
}

type cacheEntry struct {
	list    []any
	count   int64
	expires time.Time
}

// CachingExecutor decorates an executor with read-through result caching.
// Keys are deterministic hashes over the target entity, the operation kind,
// the rendered representation, and the ordered parameter values. Entries are
// populated only after successful execution; writes pass through untouched
// and invalidate every cached result for the written entity.
type CachingExecutor struct {
	next    Executor
	options CacheOptions
	logger  *zap.Logger

	mu      sync.RWMutex
	entries map[uint64]cacheEntry
	byTable map[string][]uint64
}

// NewCachingExecutor wraps an executor with result caching.
func NewCachingExecutor(next Executor, options CacheOptions, logger *zap.Logger) *CachingExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingExecutor{
		next:    next,
		options: options,
		logger:  logger,
		entries: make(map[uint64]cacheEntry),
		byTable: make(map[string][]uint64),
	}
}

// cacheKey hashes the identity of one execution: entity, operation kind,
// representation text or document, and every parameter value in order.
func cacheKey(rendered *query.Rendered) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|", rendered.Entity, rendered.Kind, rendered.Text)
	if rendered.Document != nil {
		if doc, err := json.Marshal(rendered.Document); err == nil {
			h.Write(doc)
		}
	}
	for _, p := range rendered.Params {
		fmt.Fprintf(h, "%T=%v|", p, p)
	}
	return h.Sum64()
}

// ExecuteList serves a cached result when a fresh one exists, delegating and
// populating the cache otherwise.
func (c *CachingExecutor) ExecuteList(ctx context.Context, rendered *query.Rendered, mapper *Mapper) ([]any, error) {
	if c.options.ListTTL <= 0 {
		return c.next.ExecuteList(ctx, rendered, mapper)
	}
	key := cacheKey(rendered)
	if entry, ok := c.lookup(key); ok {
		c.logger.Debug("list cache hit", zap.String("entity", rendered.Entity))
		return entry.list, nil
	}
	result, err := c.next.ExecuteList(ctx, rendered, mapper)
	if err != nil {
		return nil, err
	}
	c.store(rendered.Entity, key, cacheEntry{list: result, expires: time.Now().Add(c.options.ListTTL)})
	return result, nil
}

// ExecuteCount serves a cached count when a fresh one exists.
func (c *CachingExecutor) ExecuteCount(ctx context.Context, rendered *query.Rendered) (int64, error) {
	if c.options.CountTTL <= 0 {
		return c.next.ExecuteCount(ctx, rendered)
	}
	key := cacheKey(rendered)
	if entry, ok := c.lookup(key); ok {
		c.logger.Debug("count cache hit", zap.String("entity", rendered.Entity))
		return entry.count, nil
	}
	count, err := c.next.ExecuteCount(ctx, rendered)
	if err != nil {
		return 0, err
	}
	c.store(rendered.Entity, key, cacheEntry{count: count, expires: time.Now().Add(c.options.CountTTL)})
	return count, nil
}

// ExecuteWrite passes through and invalidates the written entity's cached
// results on success.
func (c *CachingExecutor) ExecuteWrite(ctx context.Context, rendered *query.Rendered) (int64, error) {
	affected, err := c.next.ExecuteWrite(ctx, rendered)
	if err != nil {
		return 0, err
	}
	c.invalidate(rendered.Entity)
	return affected, nil
}

// Invalidate drops every cached result for one entity.
func (c *CachingExecutor) Invalidate(entity string) {
	c.invalidate(entity)
}

func (c *CachingExecutor) lookup(key uint64) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expires) {
		return cacheEntry{}, false
	}
	return entry, true
}

func (c *CachingExecutor) store(entity string, key uint64, entry cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.options.MaxEntries > 0 && len(c.entries) >= c.options.MaxEntries {
		c.evictLocked()
	}
	c.entries[key] = entry
	c.byTable[entity] = append(c.byTable[entity], key)
}

// evictLocked removes expired entries, falling back to dropping an arbitrary
// entry when nothing has expired yet.
func (c *CachingExecutor) evictLocked() {
	now := time.Now()
	removed := false
	for key, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, key)
			removed = true
		}
	}
	if !removed {
		for key := range c.entries {
			delete(c.entries, key)
			break
		}
	}
}

func (c *CachingExecutor) invalidate(entity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.byTable[entity] {
		delete(c.entries, key)
	}
	delete(c.byTable, entity)
}
