// Package cache provides a small in-memory TTL cache for platform entity
// lookups. Entries expire quickly; the platform server stays the source of
// truth and the cache only absorbs bursts of identical reads.
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/vantage6/console/pkg/observability"
)

// Store is an LRU cache with per-store TTL. The zero value is not usable;
// create one with New. A nil *Store is a valid no-op cache, so callers can
// run with caching disabled without guarding every call site.
type Store[V any] struct {
	name    string
	lru     *lru.LRU[string, V]
	metrics *observability.Metrics
}

// New creates a cache holding at most size entries, each expiring after
// ttl. The name labels the cache in metrics; metrics may be nil.
func New[V any](name string, size int, ttl time.Duration, metrics *observability.Metrics) *Store[V] {
	if size < 1 {
		size = 1
	}
	return &Store[V]{
		name:    name,
		lru:     lru.NewLRU[string, V](size, nil, ttl),
		metrics: metrics,
	}
}

// Get returns the cached value for key.
func (s *Store[V]) Get(key string) (V, bool) {
	if s == nil {
		var zero V
		return zero, false
	}
	v, ok := s.lru.Get(key)
	if s.metrics != nil {
		if ok {
			s.metrics.CacheHitsTotal.WithLabelValues(s.name).Inc()
		} else {
			s.metrics.CacheMissesTotal.WithLabelValues(s.name).Inc()
		}
	}
	return v, ok
}

// Set stores a value under key.
func (s *Store[V]) Set(key string, value V) {
	if s == nil {
		return
	}
	if evicted := s.lru.Add(key, value); evicted && s.metrics != nil {
		s.metrics.CacheEvictionsTotal.WithLabelValues(s.name).Inc()
	}
}

// Delete removes one key.
func (s *Store[V]) Delete(key string) {
	if s == nil {
		return
	}
	s.lru.Remove(key)
}

// Purge drops every entry. Called after any write through the console so
// stale reads never outlive a mutation by more than one round trip.
func (s *Store[V]) Purge() {
	if s == nil {
		return
	}
	s.lru.Purge()
}

// Len returns the number of live entries.
func (s *Store[V]) Len() int {
	if s == nil {
		return 0
	}
	return s.lru.Len()
}
