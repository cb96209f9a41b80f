// Package query caches read results under named keys and invalidates them after writes.
package query

import (
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	gocache "github.com/patrickmn/go-cache"
)

// Key identifies one cached read. Name is the query family (e.g. the
// suggestions list), Scope the owning business, Params any variant such as a page.
type Key struct {
	Name   string
	Scope  string
	Params string
}

// String renders the key as the cache-store key.
func (k Key) String() string {
	return strings.Join([]string{k.Name, k.Scope, k.Params}, "|")
}

// Matches reports whether k belongs to scope and one of names. An empty
// names list matches every name in the scope.
func (k Key) Matches(scope string, names ...string) bool {
	if k.Scope != scope {
		return false
	}
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if k.Name == n {
			return true
		}
	}
	return false
}

type entry struct {
	value any
	key   Key
}

// Cache is a concurrency-safe query cache with an invalidation bus.
type Cache struct {
	store       *gocache.Cache
	generations map[Key]uint64
	subscribers map[int]func(Key)
	retry       service.RetryOptions
	nextSubID   int
	mu          sync.Mutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithRetry sets the retry policy applied to fetches.
func WithRetry(opts service.RetryOptions) Option {
	return func(c *Cache) { c.retry = opts }
}

// NewCache creates a cache whose entries go stale after ttl. A zero ttl keeps
// entries until they are invalidated.
func NewCache(ttl time.Duration, opts ...Option) *Cache {
	expiration := ttl
	cleanup := ttl * 2
	if ttl <= 0 {
		expiration = gocache.NoExpiration
		cleanup = 0
	}

	c := &Cache{
		store:       gocache.New(expiration, cleanup),
		generations: make(map[Key]uint64),
		subscribers: make(map[int]func(Key)),
		retry:       common.DefaultReadRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key.
func (c *Cache) Get(key Key) (any, bool) {
	v, ok := c.store.Get(key.String())
	if !ok {
		return nil, false
	}
	e, ok := v.(entry)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key.
func (c *Cache) Set(key Key, value any) {
	c.store.Set(key.String(), entry{key: key, value: value}, gocache.DefaultExpiration)
}

// setIfCurrent stores value only if key has not been invalidated since gen
// was observed, so a read that raced a write cannot repopulate stale data.
func (c *Cache) setIfCurrent(key Key, gen uint64, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[key] != gen {
		return false
	}
	c.Set(key, value)
	return true
}

// Invalidate drops every cached entry in scope whose name is listed (all names
// when none are given) and notifies subscribers once per dropped or known key.
func (c *Cache) Invalidate(scope string, names ...string) []Key {
	c.mu.Lock()
	touched := make(map[Key]struct{})
	for k, v := range c.store.Items() {
		e, ok := v.Object.(entry)
		if !ok || !e.key.Matches(scope, names...) {
			continue
		}
		c.store.Delete(k)
		touched[e.key] = struct{}{}
	}
	// Keys with a fetch in flight but nothing stored yet still need their generation bumped.
	for k := range c.generations {
		if k.Matches(scope, names...) {
			touched[k] = struct{}{}
		}
	}
	keys := make([]Key, 0, len(touched))
	for k := range touched {
		c.generations[k]++
		keys = append(keys, k)
	}
	subs := make([]func(Key), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, k := range keys {
		for _, fn := range subs {
			fn(k)
		}
	}
	return keys
}

// Subscribe registers fn to be called for every invalidated key. The returned
// function removes the subscription.
func (c *Cache) Subscribe(fn func(Key)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// track makes sure key has a generation entry so Invalidate can see it.
func (c *Cache) track(key Key) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.generations[key]; !ok {
		c.generations[key] = 0
	}
	return c.generations[key]
}

// Flush empties the cache.
func (c *Cache) Flush() {
	c.store.Flush()
}
