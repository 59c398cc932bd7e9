// Package cache stores per-file review results keyed by the sha256 of the file content.
// Identical content returns the same result regardless of commit, so unchanged
// files are never sent to the model twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/revline/internal/model"
)

const (
	defaultTTL        = 7 * 24 * time.Hour
	defaultMemorySize = 1000
	defaultSweepEvery = 6 * time.Hour
)

// Key identifies one cached review
type Key struct {
	ProjectID string
	Filename  string
	FileHash  string
}

// Entry is a cached review result
type Entry struct {
	Key      Key
	Result   model.ReviewResult
	CachedAt time.Time
}

// Tier is one storage layer of the cache
type Tier interface {
	Get(ctx context.Context, key Key) (Entry, bool, error)
	Put(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, key Key) error
	DeleteFile(ctx context.Context, projectID, filename string) error
}

// Sweeper is implemented by durable tiers that can purge expired rows in bulk.
type Sweeper interface {
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

type Config struct {
	TTL           time.Duration `yaml:"ttl" env:"CACHE_TTL"`
	MemorySize    int           `yaml:"memory_size" env:"CACHE_MEMORY_SIZE"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"CACHE_SWEEP_INTERVAL"`
}

func (c *Config) PrepareAndValidate() error {
	if c.TTL < 0 {
		return errm.New("ttl must not be negative")
	}
	c.TTL = lang.Check(c.TTL, defaultTTL)
	c.MemorySize = lang.Check(c.MemorySize, defaultMemorySize)
	c.SweepInterval = lang.Check(c.SweepInterval, defaultSweepEvery)
	return nil
}

// Cache is a two-tier read-through, write-through review cache.
// The durable tier is authoritative and is consulted on every fast-tier miss.
type Cache struct {
	fast    Tier
	durable Tier
	ttl     time.Duration
	now     func() time.Time
	log     logze.Logger
}

type Option func(*Cache)

// WithClock replaces time.Now, used to test expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithDurable sets the authoritative tier.
func WithDurable(t Tier) Option {
	return func(c *Cache) {
		c.durable = t
	}
}

// WithFast replaces the in-process tier.
func WithFast(t Tier) Option {
	return func(c *Cache) {
		c.fast = t
	}
}

func New(cfg Config, opts ...Option) (*Cache, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}
	c := &Cache{
		fast: NewMemoryTier(cfg.MemorySize),
		ttl:  cfg.TTL,
		now:  time.Now,
		log:  logze.With("component", "cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// HashContent returns the hex sha256 of content.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Lookup returns a cached result for exactly this content, marked as cached.
// Expired entries are deleted and reported as a miss. Tier errors are logged and treated as a miss.
func (c *Cache) Lookup(ctx context.Context, projectID, filename, content string) (*model.ReviewResult, bool) {
	key := Key{ProjectID: projectID, Filename: filename, FileHash: HashContent(content)}
	log := c.log.WithFields("project_id", projectID, "file", filename, "hash", lang.TruncateString(key.FileHash, 12))

	entry, ok := c.get(ctx, c.fast, key, log)
	if !ok && c.durable != nil {
		entry, ok = c.get(ctx, c.durable, key, log)
		if ok {
			if err := c.fast.Put(ctx, entry); err != nil {
				log.Warn("failed to backfill fast tier", "error", err)
			}
		}
	}
	if !ok {
		return nil, false
	}

	result := cloneResult(entry.Result)
	result.Cached = true
	return &result, true
}

func (c *Cache) get(ctx context.Context, tier Tier, key Key, log logze.Logger) (Entry, bool) {
	entry, ok, err := tier.Get(ctx, key)
	if err != nil {
		log.Warn("cache tier read failed", "error", err)
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}
	if c.now().Sub(entry.CachedAt) > c.ttl {
		log.Debug("cache entry expired", "cached_at", entry.CachedAt)
		c.deleteKey(ctx, key, log)
		return Entry{}, false
	}
	return entry, true
}

func (c *Cache) deleteKey(ctx context.Context, key Key, log logze.Logger) {
	if err := c.fast.Delete(ctx, key); err != nil {
		log.Warn("failed to delete expired entry", "tier", "fast", "error", err)
	}
	if c.durable != nil {
		if err := c.durable.Delete(ctx, key); err != nil {
			log.Warn("failed to delete expired entry", "tier", "durable", "error", err)
		}
	}
}

// Store upserts the result for this content in both tiers. Last write wins.
func (c *Cache) Store(ctx context.Context, projectID, filename, content string, result *model.ReviewResult) error {
	if result == nil {
		return errm.New("result is nil")
	}
	entry := Entry{
		Key:      Key{ProjectID: projectID, Filename: filename, FileHash: HashContent(content)},
		Result:   cloneResult(*result),
		CachedAt: c.now(),
	}
	entry.Result.Cached = false

	errs := errm.NewList()
	if c.durable != nil {
		if err := c.durable.Put(ctx, entry); err != nil {
			errs.Wrap(err, "put durable", "file", filename)
		}
	}
	if err := c.fast.Put(ctx, entry); err != nil {
		errs.Wrap(err, "put fast", "file", filename)
	}
	return errs.Err()
}

// Invalidate removes every cached result of the file regardless of content hash.
func (c *Cache) Invalidate(ctx context.Context, projectID, filename string) error {
	errs := errm.NewList()
	if err := c.fast.DeleteFile(ctx, projectID, filename); err != nil {
		errs.Wrap(err, "delete fast", "file", filename)
	}
	if c.durable != nil {
		if err := c.durable.DeleteFile(ctx, projectID, filename); err != nil {
			errs.Wrap(err, "delete durable", "file", filename)
		}
	}
	return errs.Err()
}

// Sweep purges expired rows from the durable tier. Expiry on read does not depend on it.
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	sw, ok := c.durable.(Sweeper)
	if !ok {
		return 0, nil
	}
	n, err := sw.DeleteOlderThan(ctx, c.now().Add(-c.ttl))
	if err != nil {
		return 0, errm.Wrap(err, "sweep durable tier")
	}
	c.log.DebugIf(n > 0, "swept expired cache entries", "count", n)
	return n, nil
}

func cloneResult(r model.ReviewResult) model.ReviewResult {
	out := r
	out.LineComments = append([]model.LineComment(nil), r.LineComments...)
	out.Findings = append([]model.Finding(nil), r.Findings...)
	return out
}
