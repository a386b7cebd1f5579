package cache

import (
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-process CacheService used when no memcache server is configured.
type MemoryCache struct {
	mu    sync.RWMutex
	store map[string]memoryEntry
	now   func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		store: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

// Get retrieves a value if present and not expired.
func (m *MemoryCache) Get(key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.store[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.store, key)
		m.mu.Unlock()
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

// Set stores a value; a non-positive expiration never expires.
func (m *MemoryCache) Set(key string, value []byte, expiration time.Duration) error {
	e := memoryEntry{value: append([]byte(nil), value...)}
	if expiration > 0 {
		e.expiresAt = m.now().Add(expiration)
	}

	m.mu.Lock()
	m.store[key] = e
	m.mu.Unlock()
	return nil
}

// Delete removes a value.
func (m *MemoryCache) Delete(key string) error {
	m.mu.Lock()
	delete(m.store, key)
	m.mu.Unlock()
	return nil
}
