// Package cache provides a thread-safe LRU cache for extraction
// results. Re-running an extractor over the same document with the same
// configuration is expensive (OCR in particular), so callers may share
// one Cache across extractor instances; entries are keyed by document
// path plus the configuration that produced them.
package cache

import (
	"fmt"
	"sync"

	"github.com/aptakhin/xtra/internal/model"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 128

// Key identifies a cached page result. Two extractions share an entry
// only when every field matches, since any of them changes the output.
type Key struct {
	Path      string
	Extractor model.ExtractorType
	Page      int
	DPI       float64
	Languages string
	PerChar   bool
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%d|%g|%s|%t", k.Path, k.Extractor, k.Page, k.DPI, k.Languages, k.PerChar)
}

// Cache is a fixed-capacity LRU of extracted pages. All methods are
// safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*node
	head     *node // most recently used
	tail     *node // least recently used
	hits     int64
	misses   int64
}

type node struct {
	key  string
	page model.Page
	prev *node
	next *node
}

// New creates a cache holding at most capacity pages.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{
		capacity: capacity,
		items:    make(map[string]*node),
		head:     &node{},
		tail:     &node{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the cached page for key and marks it recently used.
func (c *Cache) Get(key Key) (model.Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.items[key.String()]; ok {
		c.moveToFront(n)
		c.hits++
		return n.page, true
	}
	c.misses++
	return model.Page{}, false
}

// Put stores a page under key, evicting the least recently used entry
// when the cache is full.
func (c *Cache) Put(key Key, page model.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ks := key.String()
	if n, ok := c.items[ks]; ok {
		n.page = page
		c.moveToFront(n)
		return
	}

	n := &node{key: ks, page: page}
	c.addToFront(n)
	c.items[ks] = n

	if len(c.items) > c.capacity {
		c.evict()
	}
}

// Invalidate drops every entry for the given document path, regardless
// of configuration. Used when the file on disk is known to have
// changed.
func (c *Cache) Invalidate(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := path + "|"
	removed := 0
	for cur := c.head.next; cur != c.tail; {
		next := cur.next
		if len(cur.key) > len(prefix) && cur.key[:len(prefix)] == prefix {
			c.remove(cur)
			delete(c.items, cur.key)
			removed++
		}
		cur = next
	}
	return removed
}

// Clear empties the cache and resets statistics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*node)
	c.head.next = c.tail
	c.tail.prev = c.head
	c.hits = 0
	c.misses = 0
}

// Len returns the number of cached pages.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats reports hit/miss counters since the last Clear.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total) * 100
	}
	return Stats{
		Hits:     c.hits,
		Misses:   c.misses,
		HitRate:  rate,
		Size:     len(c.items),
		Capacity: c.capacity,
	}
}

// Stats describes cache effectiveness.
type Stats struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hit_rate_percent"`
	Size     int     `json:"current_size"`
	Capacity int     `json:"max_capacity"`
}

func (c *Cache) moveToFront(n *node) {
	c.remove(n)
	c.addToFront(n)
}

func (c *Cache) addToFront(n *node) {
	n.prev = c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *Cache) remove(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *Cache) evict() {
	lru := c.tail.prev
	if lru != c.head {
		c.remove(lru)
		delete(c.items, lru.key)
	}
}
