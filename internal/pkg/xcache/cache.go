// Package xcache wraps eko/gocache behind typed constructors. The console
// only carries an in-memory backend; the Cache alias keeps call sites
// independent of that choice.
package xcache

import (
	"context"
	"time"

	cachelib "github.com/eko/gocache/lib/v4/cache"
	gocache_store "github.com/eko/gocache/store/go_cache/v4"
	gocache "github.com/patrickmn/go-cache"

	"github.com/loopdocs/docdesk/internal/log"
)

type Cache[T any] interface {
	cachelib.CacheInterface[T]
}

type SetterCache[T any] interface {
	cachelib.SetterCacheInterface[T]
}

// ModeMemory selects the in-memory backend. Any other mode yields a noop
// cache where every Get misses.
const ModeMemory = "memory"

type Config struct {
	Mode   string       `conf:"mode" yaml:"mode" json:"mode"`
	Memory MemoryConfig `conf:"memory" yaml:"memory" json:"memory"`
}

type MemoryConfig struct {
	Expiration      time.Duration `conf:"expiration" yaml:"expiration" json:"expiration"`
	CleanupInterval time.Duration `conf:"cleanup_interval" yaml:"cleanup_interval" json:"cleanup_interval"`
}

// NewMemory creates an in-memory cache over an existing go-cache client, so
// the caller controls default expiration and the cleanup interval.
func NewMemory[T any](client *gocache.Cache, options ...Option) SetterCache[T] {
	store := gocache_store.NewGoCache(client, options...)
	return cachelib.New[T](store)
}

// NewMemoryWithOptions builds the go-cache client from the given expiration
// and cleanup interval.
func NewMemoryWithOptions[T any](defaultExpiration, cleanupInterval time.Duration, options ...Option) SetterCache[T] {
	client := gocache.New(defaultExpiration, cleanupInterval)
	return NewMemory[T](client, options...)
}

// NewFromConfig builds a typed cache from the given Config. An unset or
// unknown mode yields a noop cache, so callers never need nil checks.
func NewFromConfig[T any](cfg Config) Cache[T] {
	switch cfg.Mode {
	case ModeMemory:
		expiration := defaultIfZero(cfg.Memory.Expiration, 5*time.Minute)
		cleanupInterval := defaultIfZero(cfg.Memory.CleanupInterval, 10*time.Minute)

		log.Info(context.Background(), "Using memory cache")

		return NewMemoryWithOptions[T](expiration, cleanupInterval, WithExpiration(expiration))
	default:
		log.Info(context.Background(), "Disable cache")
		return NewNoop[T]()
	}
}

func defaultIfZero(d, def time.Duration) time.Duration {
	if d == 0 {
		return def
	}

	return d
}
