package local

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

type entry struct {
	data     string
	expireAt time.Time
	noExpiry bool
}

func (e *entry) expired() bool {
	return !e.noExpiry && time.Now().After(e.expireAt)
}

// LocalCache is an in-process key/value cache implementing the Cache
// interface. Expired entries are removed lazily on access.
type LocalCache struct {
	mu sync.Mutex
	kv map[string]*entry
}

// NewCache creates an empty LocalCache.
func NewCache() *LocalCache {
	return &LocalCache{kv: make(map[string]*entry)}
}

func newEntry(value string, ttl time.Duration) *entry {
	if ttl <= 0 {
		return &entry{data: value, noExpiry: true}
	}
	return &entry{data: value, expireAt: time.Now().Add(ttl)}
}

// get returns a live entry or nil, deleting it if expired. Caller holds mu.
func (c *LocalCache) get(key string) *entry {
	e, ok := c.kv[key]
	if !ok {
		return nil
	}
	if e.expired() {
		delete(c.kv, key)
		return nil
	}
	return e
}

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.get(key)
	if e == nil {
		return "", ErrNotFound
	}
	return e.data, nil
}

func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kv[key] = newEntry(value, ttl)
	return nil
}

func (c *LocalCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.kv, k)
	}
	return nil
}

func (c *LocalCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(key) != nil, nil
}

// SetNX stores the value only if the key is absent, returning whether the
// value was stored. The check and store happen under one lock.
func (c *LocalCache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.get(key) != nil {
		return false, nil
	}
	c.kv[key] = newEntry(value, ttl)
	return true, nil
}
