// Package cache stores normalized analysis results keyed by a digest of their inputs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"maps"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned by stores that report misses as errors internally.
var ErrNotFound = errors.New("cache entry not found")

// Entry is a single cached result.
type Entry struct {
	Key      string         `json:"key"`
	Kind     string         `json:"kind"`
	Payload  map[string]any `json:"payload"`
	StoredAt time.Time      `json:"stored_at"`
}

// Store is one cache tier.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, entry Entry) error
	Clear(ctx context.Context) error
}

// Counter is implemented by stores that can report their size.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Stats reports cache effectiveness since construction.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Key derives the cache slot for a subject, an analysis kind and any auxiliary
// parameters. Parts are length-prefixed so ("ab","c") and ("a","bc") differ.
func Key(subject, kind string, params ...string) string {
	h := sha256.New()
	write := func(s string) {
		var size [8]byte
		binary.BigEndian.PutUint64(size[:], uint64(len(s)))
		h.Write(size[:])
		h.Write([]byte(s))
	}

	write(kind)
	write(subject)
	for _, p := range params {
		write(p)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Cache combines an in-process tier with an optional durable tier.
type Cache struct {
	memory  *MemoryStore
	durable Store
	logger  *zap.Logger
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a two-tier cache. durable may be nil for a memory-only cache.
func New(durable Store, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		memory:  NewMemoryStore(),
		durable: durable,
		logger:  logger,
		now:     time.Now,
	}
}

// Get checks memory, then the durable tier, promoting durable hits into memory.
// Durable read failures are logged and treated as misses.
func (c *Cache) Get(ctx context.Context, key string) (map[string]any, bool) {
	if entry, ok, _ := c.memory.Get(ctx, key); ok {
		c.hits.Add(1)
		c.logger.Debug("cache hit", zap.String("tier", "memory"), zap.String("key", key), zap.String("kind", entry.Kind))
		return maps.Clone(entry.Payload), true
	}

	if c.durable != nil {
		entry, ok, err := c.durable.Get(ctx, key)
		if err != nil {
			c.logger.Warn("durable cache read failed", zap.String("key", key), zap.Error(err))
		}
		if ok {
			_ = c.memory.Set(ctx, entry)
			c.hits.Add(1)
			c.logger.Debug("cache hit", zap.String("tier", "durable"), zap.String("key", key), zap.String("kind", entry.Kind))
			return maps.Clone(entry.Payload), true
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Set writes both tiers. The memory tier is always updated; a durable write
// failure is returned to the caller.
func (c *Cache) Set(ctx context.Context, key, kind string, payload map[string]any) error {
	entry := Entry{Key: key, Kind: kind, Payload: maps.Clone(payload), StoredAt: c.now().UTC()}

	_ = c.memory.Set(ctx, entry)

	if c.durable == nil {
		return nil
	}
	if err := c.durable.Set(ctx, entry); err != nil {
		c.logger.Warn("durable cache write failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Clear wipes both tiers unconditionally.
func (c *Cache) Clear(ctx context.Context) error {
	_ = c.memory.Clear(ctx)
	if c.durable != nil {
		if err := c.durable.Clear(ctx); err != nil {
			return err
		}
	}
	c.logger.Info("cache cleared")
	return nil
}

// Stats returns hit/miss counters and the in-process entry count.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries: c.memory.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// DurableEntries counts entries in the durable tier. ok is false when there is
// no durable tier or it cannot count.
func (c *Cache) DurableEntries(ctx context.Context) (n int, ok bool, err error) {
	counter, ok := c.durable.(Counter)
	if !ok {
		return 0, false, nil
	}
	n, err = counter.Count(ctx)
	return n, true, err
}
