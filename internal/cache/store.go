// Package cache memoizes expensive pipeline stages behind a key/value store
// whose entries expire after a TTL and can be dropped by tag.
package cache

import (
	"sync"
	"time"
)

// Store holds encoded values. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key if present and not expired.
	Get(key string) ([]byte, bool)
	// Set stores value under key. A ttl <= 0 never expires.
	Set(key string, value []byte, ttl time.Duration, tags ...string)
	// Invalidate drops every key stored with tag and returns how many went.
	Invalidate(tag string) int
	Close() error
}

type memItem struct {
	value     []byte
	expiresAt time.Time
	tags      []string
}

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memItem
	tags  map[string]map[string]struct{}
	now   func() time.Time
}

// NewMemoryStore returns an empty store. now may be nil.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		items: map[string]memItem{},
		tags:  map[string]map[string]struct{}{},
		now:   now,
	}
}

func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	if !ok {
		return nil, false
	}
	if !it.expiresAt.IsZero() && !s.now().Before(it.expiresAt) {
		s.deleteLocked(key)
		return nil, false
	}
	return it.value, true
}

func (s *MemoryStore) Set(key string, value []byte, ttl time.Duration, tags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(key)

	it := memItem{value: value, tags: append([]string(nil), tags...)}
	if ttl > 0 {
		it.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = it
	for _, tag := range it.tags {
		keys, ok := s.tags[tag]
		if !ok {
			keys = map[string]struct{}{}
			s.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

func (s *MemoryStore) Invalidate(tag string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.tags[tag] {
		if s.deleteLocked(key) {
			n++
		}
	}
	delete(s.tags, tag)
	return n
}

// Len is the number of stored keys, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) deleteLocked(key string) bool {
	it, ok := s.items[key]
	if !ok {
		return false
	}
	delete(s.items, key)
	for _, tag := range it.tags {
		if keys, ok := s.tags[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(s.tags, tag)
			}
		}
	}
	return true
}

// NoopStore never retains anything; every Load recomputes.
type NoopStore struct{}

func (NoopStore) Get(string) ([]byte, bool)                     { return nil, false }
func (NoopStore) Set(string, []byte, time.Duration, ...string) {}
func (NoopStore) Invalidate(string) int                         { return 0 }
func (NoopStore) Close() error                                  { return nil }
