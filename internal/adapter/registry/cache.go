package registry

import (
	"context"
	"sync"
	"time"

	"github.com/gidroatlas/atlas-service/internal/domain"
	"github.com/gidroatlas/atlas-service/internal/session"
)

// CachedClient wraps a Client with an in-memory LRU cache of object details.
// Entries expire after a TTL on the domain clock. Listing objects purges the
// cache, and updates and deletes made through it invalidate the entry.
type CachedClient struct {
	*Client
	cache *lruCache
}

// NewCachedClient creates a cache decorator around a client. A ttl of zero
// keeps entries until they are evicted or invalidated.
func NewCachedClient(inner *Client, maxEntries int, ttl time.Duration) *CachedClient {
	return &CachedClient{
		Client: inner,
		cache:  newLRUCache(maxEntries, ttl),
	}
}

// ListObjects fetches a fresh collection and drops every cached detail.
func (c *CachedClient) ListObjects(ctx context.Context, criteria domain.Criteria) ([]domain.RawObject, error) {
	raws, err := c.Client.ListObjects(ctx, criteria)
	if err != nil {
		return raws, err
	}
	if n := c.cache.purge(); n > 0 {
		c.logger.Debug("object detail cache purged", "entries", n)
	}
	return raws, nil
}

func (c *CachedClient) GetObject(ctx context.Context, id int64) (domain.RawObject, error) {
	if raw, ok := c.cache.get(id); ok {
		c.metrics.DetailCache.WithLabelValues("hit").Inc()
		return raw, nil
	}
	c.metrics.DetailCache.WithLabelValues("miss").Inc()
	return c.ReloadObject(ctx, id)
}

// ReloadObject reads the detail from the registry, bypassing the cache, and
// stores the result.
func (c *CachedClient) ReloadObject(ctx context.Context, id int64) (domain.RawObject, error) {
	raw, err := c.Client.GetObject(ctx, id)
	if err != nil {
		c.cache.delete(id)
		return raw, err
	}
	c.cache.put(id, raw)
	return raw, nil
}

func (c *CachedClient) UpdateObject(ctx context.Context, sess session.Session, id int64, update ObjectUpdate) (domain.RawObject, error) {
	c.cache.delete(id)
	raw, err := c.Client.UpdateObject(ctx, sess, id, update)
	if err != nil {
		return raw, err
	}
	c.cache.put(id, raw)
	return raw, nil
}

func (c *CachedClient) DeleteObject(ctx context.Context, sess session.Session, id int64) error {
	c.cache.delete(id)
	return c.Client.DeleteObject(ctx, sess, id)
}

func (c *CachedClient) PutPriority(ctx context.Context, sess session.Session, objectID int64, in PriorityInput) (domain.PriorityRecord, error) {
	c.cache.delete(objectID)
	return c.Client.PutPriority(ctx, sess, objectID, in)
}

func (c *CachedClient) DeletePriority(ctx context.Context, sess session.Session, objectID int64) error {
	c.cache.delete(objectID)
	return c.Client.DeletePriority(ctx, sess, objectID)
}

// lruCache is a thread-safe LRU cache of raw objects keyed by id.
type lruCache struct {
	maxEntries int
	ttl        time.Duration
	mu         sync.Mutex
	entries    map[int64]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key     int64
	value   domain.RawObject
	expires time.Time
	prev    *entry
	next    *entry
}

func newLRUCache(maxEntries int, ttl time.Duration) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		entries:    make(map[int64]*entry),
	}
}

func (c *lruCache) get(key int64) (domain.RawObject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.RawObject{}, false
	}
	if c.expired(e) {
		delete(c.entries, key)
		c.remove(e)
		return domain.RawObject{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key int64, value domain.RawObject) {
	if c.maxEntries <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.deadline()
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expires = expires
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) delete(key int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.remove(e)
	}
}

// purge drops every entry and reports how many were held.
func (c *lruCache) purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	clear(c.entries)
	c.head, c.tail = nil, nil
	return n
}

func (c *lruCache) deadline() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return domain.Now().Add(c.ttl)
}

func (c *lruCache) expired(e *entry) bool {
	return !e.expires.IsZero() && !domain.Now().Before(e.expires)
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
