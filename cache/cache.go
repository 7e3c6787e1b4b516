// Package cache implements the repository's changeset cache: one
// underlying value kept reachable under every alias it was stored with
// (the repository stores integer revision, raw_id, short_id, and the
// "tip"/null sentinels), per spec §3 invariant R3 and §9's
// cache-aliasing design note. Branch and tag names are not cache keys:
// a lookup by one resolves to a revision index first.
package cache

import "github.com/golang/groupcache/lru"

// Entry is the cached value type: this package is agnostic to what it
// stores (the root vcs package stores *Changeset here), matching the
// storage-agnostic shape of the teacher's cache.Object interface.
type Entry interface{}

// Changesets is an alias-preserving cache. It wraps groupcache's lru
// (the same package the teacher uses for its own transport cache),
// storing the same Entry value directly under each alias key so that
// distinct alias keys resolve to the identical cached value.
type Changesets struct {
	byKey *lru.Cache
}

// New returns an empty cache. A capacity of 0 means unbounded (the lru
// package only evicts when MaxEntries is positive); repositories are
// expected to size this to their revision count plus alias fan-out.
func New(maxEntries int) *Changesets {
	return &Changesets{byKey: lru.New(maxEntries)}
}

// Put stores value under every key in aliases, so a subsequent Get
// under any of them returns the identical value (R3).
func (c *Changesets) Put(value Entry, aliases ...interface{}) {
	for _, k := range aliases {
		c.byKey.Add(k, value)
	}
}

// Get looks up key, reporting whether it was found.
func (c *Changesets) Get(key interface{}) (Entry, bool) {
	return c.byKey.Get(key)
}

// Forget removes every alias in keys from the cache, without touching
// any other alias of the same value. Used to invalidate the "tip"/null
// sentinel after a commit moves the tip (spec §9: "never cache
// negative lookups", "invalidated... not overwritten").
func (c *Changesets) Forget(keys ...interface{}) {
	for _, k := range keys {
		c.byKey.Remove(k)
	}
}

// Len reports how many distinct keys (not distinct values) are cached.
func (c *Changesets) Len() int {
	return c.byKey.Len()
}
