// Package callsite caches execution plans. A process-wide Cache shares plans
// between call sites keyed by overload set and argument shape; each Site keeps
// a small inline cache of the plans it has used in front of it.
package callsite

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rhino1998/callbind/pkg/binder"
	"golang.org/x/sync/singleflight"
)

type Config struct {
	// MaxPolymorphic is the number of plans a site holds before it goes megamorphic.
	MaxPolymorphic int

	// MaxMegamorphic is the number of shared plans a megamorphic site keeps
	// alive. The oldest is released when another one is added.
	MaxMegamorphic int
}

func DefaultConfig() Config {
	return Config{
		MaxPolymorphic: 6,
		MaxMegamorphic: 64,
	}
}

func (c *Config) Validate(logger *slog.Logger) error {
	if c.MaxPolymorphic < 1 {
		return fmt.Errorf("max polymorphic entries must be at least 1, got %d", c.MaxPolymorphic)
	}

	if c.MaxMegamorphic < 0 {
		return fmt.Errorf("max megamorphic entries must not be negative, got %d", c.MaxMegamorphic)
	}

	if c.MaxMegamorphic == 0 {
		logger.Debug("megamorphic sites retain no plans, their calls rebind once the cache drops them")
	}

	return nil
}

// Key identifies the plan a call binds to.
func Key(overloads *binder.Overloads, args *binder.ActualArguments) string {
	return overloads.ID.String() + "/" + args.Key()
}

// Entry is a cached binding. It stays in the cache while at least one holder
// has acquired and not yet released it.
type Entry struct {
	cache  *Cache
	key    string
	result *binder.BindingResult

	// refs is -1 once the entry has been evicted.
	refs atomic.Int64
}

func (e *Entry) Key() string { return e.key }

func (e *Entry) Result() *binder.BindingResult { return e.result }

func (e *Entry) Plan() *binder.Plan { return e.result.Plan }

func (e *Entry) retain() bool {
	for {
		n := e.refs.Load()
		if n < 0 {
			return false
		}
		if e.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops a reference. The last release evicts the entry.
func (e *Entry) Release() {
	n := e.refs.Add(-1)
	if n < 0 {
		panic(fmt.Sprintf("bug: cache entry %s released more often than acquired", e.key))
	}

	if n == 0 && e.refs.CompareAndSwap(0, -1) {
		e.cache.entries.CompareAndDelete(e.key, e)
		e.cache.logger.Debug("evicted plan", slog.String("key", e.key))
	}
}

type Cache struct {
	logger *slog.Logger
	binder *binder.Binder
	Config Config

	group   singleflight.Group
	entries sync.Map
	binds   atomic.Uint64
}

func NewCache(logger *slog.Logger, b *binder.Binder, config Config) (*Cache, error) {
	err := config.Validate(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to validate cache config: %w", err)
	}

	return &Cache{
		logger: logger,
		binder: b,
		Config: config,
	}, nil
}

func (c *Cache) Binder() *binder.Binder { return c.binder }

// Acquire returns the entry for a call, binding it on first use. Concurrent
// first uses of one key bind once. The caller must Release the entry.
func (c *Cache) Acquire(overloads *binder.Overloads, args *binder.ActualArguments) (*Entry, error) {
	key := Key(overloads, args)

	for {
		if v, ok := c.entries.Load(key); ok {
			e := v.(*Entry)
			if e.retain() {
				return e, nil
			}
			c.entries.CompareAndDelete(key, e)
			continue
		}

		v, err, _ := c.group.Do(key, func() (any, error) {
			if v, ok := c.entries.Load(key); ok {
				return v, nil
			}

			result, err := c.binder.ResolveArguments(overloads, args, c.binder.Config.Narrowing)
			if err != nil {
				return nil, err
			}
			c.binds.Add(1)

			e := &Entry{cache: c, key: key, result: result}
			v, loaded := c.entries.LoadOrStore(key, e)
			if !loaded {
				c.logger.Debug("cached plan",
					slog.String("key", key),
					slog.String("candidate", result.Candidate.String()),
					slog.Bool("delegate", result.Plan.HasDelegate()),
				)
			}
			return v, nil
		})
		if err != nil {
			return nil, err
		}

		e := v.(*Entry)
		if e.retain() {
			return e, nil
		}
	}
}

// Len is the number of live entries.
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})

	return n
}

// Binds is the number of resolutions the cache has performed.
func (c *Cache) Binds() uint64 {
	return c.binds.Load()
}
