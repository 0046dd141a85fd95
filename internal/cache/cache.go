// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores expensive generation results under normalized keys.
// Key normalization is separate from storage so that equivalent inputs
// (nil, empty, whitespace, omitted) always land on the same entry.
package cache

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pdiddy/concept-engine/pkg/types"
)

const (
	// None stands in for an empty or absent key part.
	None = "<none>"

	sep               = "\x1f"
	defaultMaxEntries = 1024
)

// Key builds a cache key for op from args. Each arg is trimmed and empty
// values become None, so "", "  " and an omitted optional value produce
// the same key.
func Key(op string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, op)
	for _, a := range args {
		a = strings.TrimSpace(a)
		if a == "" {
			a = None
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, sep)
}

// Optional folds a nil pointer to the empty string.
func Optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Cache is a bounded key-value store safe for concurrent use.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Len() int
}

type backend[K comparable, V any] interface {
	Get(key K) (V, bool)
	Add(key K, value V) bool
	Len() int
}

// LRU is a Cache backed by hashicorp/golang-lru.
type LRU[K comparable, V any] struct {
	b backend[K, V]
}

// NewLRU creates an LRU cache holding cfg.MaxEntries entries (default
// 1024). A positive cfg.TTL also expires entries after that duration.
func NewLRU[K comparable, V any](cfg types.CacheConfig) (*LRU[K, V], error) {
	size := cfg.MaxEntries
	if size <= 0 {
		size = defaultMaxEntries
	}

	if cfg.TTL > 0 {
		return &LRU[K, V]{b: expirable.NewLRU[K, V](size, nil, cfg.TTL)}, nil
	}

	c, err := lru.New[K, V](size)
	if err != nil {
		return nil, fmt.Errorf("creating LRU cache: %w", err)
	}
	return &LRU[K, V]{b: c}, nil
}

// Get returns the value for key.
func (c *LRU[K, V]) Get(key K) (V, bool) { return c.b.Get(key) }

// Set stores value under key, evicting the least recently used entry when
// full.
func (c *LRU[K, V]) Set(key K, value V) { c.b.Add(key, value) }

// Len returns the number of entries.
func (c *LRU[K, V]) Len() int { return c.b.Len() }
