package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryClient implementa Client sobre go-cache.
// Útil para desarrollo y testing.
type memoryClient struct {
	prefix string
	store  *gocache.Cache

	// go-cache es thread-safe por operación, pero las listas y los
	// contadores necesitan read-modify-write atómico.
	listMu sync.Mutex
	incrMu sync.Mutex
}

// NewMemory crea un cliente de cache en memoria.
func NewMemory(prefix string) Client {
	return &memoryClient{
		prefix: prefix,
		store:  gocache.New(gocache.NoExpiration, 5*time.Minute),
	}
}

func (c *memoryClient) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *memoryClient) Get(ctx context.Context, key string) (string, error) {
	v, ok := c.store.Get(c.key(key))
	if !ok {
		return "", ErrNotFound
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case int64:
		// contadores de Incr
		return strconv.FormatInt(s, 10), nil
	}
	return "", ErrNotFound
}

func (c *memoryClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.store.Set(c.key(key), value, ttl)
	return nil
}

func (c *memoryClient) Delete(ctx context.Context, key string) error {
	c.store.Delete(c.key(key))
	return nil
}

func (c *memoryClient) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := c.store.Get(c.key(key))
	return ok, nil
}

func (c *memoryClient) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	full := c.key(prefix)
	var deleted int
	for k := range c.store.Items() {
		if strings.HasPrefix(k, full) {
			c.store.Delete(k)
			deleted++
		}
	}
	return deleted, nil
}

func (c *memoryClient) ListPush(ctx context.Context, key, value string, ttl time.Duration) error {
	c.listMu.Lock()
	defer c.listMu.Unlock()

	k := c.key(key)
	var list []string
	if v, ok := c.store.Get(k); ok {
		if l, ok := v.([]string); ok {
			list = l
		}
	}
	list = append(list, value)
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.store.Set(k, list, ttl)
	return nil
}

func (c *memoryClient) ListRange(ctx context.Context, key string) ([]string, error) {
	v, ok := c.store.Get(c.key(key))
	if !ok {
		return nil, nil
	}
	list, ok := v.([]string)
	if !ok {
		return nil, nil
	}
	out := make([]string, len(list))
	copy(out, list)
	return out, nil
}

func (c *memoryClient) ListRemove(ctx context.Context, key, value string) error {
	c.listMu.Lock()
	defer c.listMu.Unlock()

	k := c.key(key)
	v, ok := c.store.Get(k)
	if !ok {
		return nil
	}
	list, ok := v.([]string)
	if !ok {
		return nil
	}

	filtered := list[:0]
	for _, item := range list {
		if item != value {
			filtered = append(filtered, item)
		}
	}
	if len(filtered) == 0 {
		c.store.Delete(k)
		return nil
	}
	c.store.Set(k, filtered, gocache.DefaultExpiration)
	return nil
}

func (c *memoryClient) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	c.incrMu.Lock()
	defer c.incrMu.Unlock()

	k := c.key(key)
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	// Add falla si la key ya existe; IncrementInt64 conserva el TTL original.
	if err := c.store.Add(k, int64(1), ttl); err == nil {
		return 1, nil
	}
	n, err := c.store.IncrementInt64(k, 1)
	if err != nil {
		// la key expiró entre Add e Increment: el contador nace de nuevo
		c.store.Set(k, int64(1), ttl)
		return 1, nil
	}
	return n, nil
}

func (c *memoryClient) Ping(ctx context.Context) error { return nil }

func (c *memoryClient) Stats(ctx context.Context) (Stats, error) {
	return Stats{Backend: "memory", Keys: int64(c.store.ItemCount())}, nil
}

func (c *memoryClient) Close() error {
	c.store.Flush()
	return nil
}
