// Package enginecache memoizes compiled dsl.Engine values by a hash of
// their marcout_sourcecode text, so a service handling repeat requests
// for the same export definition doesn't re-parse it every time.
//
// It mirrors the teacher's two-tier cache shape (Redis when configured,
// falling back to an in-process cache otherwise) but since a dsl.Engine
// can't be serialized into Redis without losing its ast.Node closures,
// Redis here only tracks the last-known-good hash per collection code
// (used to short-circuit a DSL reload across replicas); the compiled
// Engine itself always lives in the local process cache.
package enginecache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"marcout/internal/dsl"
	"marcout/internal/security"
)

// Cache holds compiled engines keyed by sourcecode hash.
type Cache struct {
	local *gocache.Cache
	redis *redis.Client
}

// New builds a cache with the given local TTL. redisURL may be empty,
// in which case the cache runs local-only.
func New(localTTL time.Duration, redisURL string) *Cache {
	c := &Cache{local: gocache.New(localTTL, localTTL*2)}
	if redisURL != "" {
		if opt, err := redis.ParseURL(redisURL); err == nil {
			c.redis = redis.NewClient(opt)
		}
	}
	return c
}

// KeyFor hashes a DSL source string into a stable cache key.
func KeyFor(source string) string {
	return hashOf(source).String()
}

func hashOf(source string) *security.Hash {
	return security.CalculateDataHash([]byte(source))
}

// Get returns a previously compiled engine for the given source, if
// still cached locally.
func (c *Cache) Get(source string) (*dsl.Engine, bool) {
	v, ok := c.local.Get(KeyFor(source))
	if !ok {
		return nil, false
	}
	engine, ok := v.(*dsl.Engine)
	return engine, ok
}

// Put stores a compiled engine under its source hash and, when Redis is
// configured, records the hash for the named collection so other
// replicas can detect whether their own local copy is stale.
func (c *Cache) Put(ctx context.Context, collectionCode, source string, engine *dsl.Engine) {
	key := KeyFor(source)
	c.local.SetDefault(key, engine)
	if c.redis != nil && collectionCode != "" {
		c.redis.Set(ctx, "marcout:engine-hash:"+collectionCode, key, 24*time.Hour)
	}
}

// Invalidate drops a cached engine, used when the DSL watcher detects a
// definition file changed on disk.
func (c *Cache) Invalidate(source string) {
	c.local.Delete(KeyFor(source))
}

// StaleAgainstReplica reports whether the hash recorded in Redis for a
// collection differs from the given source's hash, meaning another
// replica compiled a newer definition than this process holds locally.
// The comparison runs through Hash.Equal's constant-time compare
// rather than a plain string inequality, since the remote digest came
// off the wire and this is the one place two hashes of possibly
// attacker-influenced DSL source are actually compared against each
// other.
func (c *Cache) StaleAgainstReplica(ctx context.Context, collectionCode, source string) bool {
	if c.redis == nil || collectionCode == "" {
		return false
	}
	remoteHex, err := c.redis.Get(ctx, "marcout:engine-hash:"+collectionCode).Result()
	if err != nil {
		return false
	}
	remote, err := security.FromHexString(remoteHex)
	if err != nil {
		return true
	}
	return !remote.Equal(hashOf(source))
}
