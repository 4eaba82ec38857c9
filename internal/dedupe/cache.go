// ABOUTME: Thread-safe TTL and size bounded cache of seen webhook items
// ABOUTME: Used by the webhook handler to skip redelivered messaging items

package dedupe

import (
	"container/list"
	"strconv"
	"sync"
	"time"

	"github.com/2389/coven-bot/internal/event"
)

const (
	DefaultTTL     = 10 * time.Minute
	DefaultMaxSize = 10000
)

// Config configures a Cache.
type Config struct {
	TTL     time.Duration
	MaxSize int

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

type entry struct {
	seenAt  time.Time
	element *list.Element
}

// Cache remembers keys for TTL, evicting the oldest once MaxSize is reached.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]*entry
	order   *list.List // oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// New creates a Cache. Expired keys are dropped lazily on insert.
func New(cfg Config) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache{
		seen:    make(map[string]*entry),
		order:   list.New(),
		ttl:     cfg.TTL,
		maxSize: cfg.MaxSize,
		now:     cfg.Now,
	}
}

// Seen reports whether key was seen within the TTL and marks it seen now.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.seen[key]; ok {
		fresh := now.Sub(e.seenAt) < c.ttl
		e.seenAt = now
		c.order.MoveToBack(e.element)
		return fresh
	}

	c.expireLocked(now)
	for len(c.seen) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.seen[key] = &entry{seenAt: now, element: c.order.PushBack(key)}
	return false
}

// SeenItem is Seen for a webhook messaging item. Items without a usable
// key are never reported as duplicates.
func (c *Cache) SeenItem(m event.Messaging) bool {
	key := Key(m)
	if key == "" {
		return false
	}
	return c.Seen(key)
}

// Len returns the number of remembered keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// expireLocked drops expired keys from the front. The list is ordered by
// last sighting, so the walk stops at the first fresh key.
func (c *Cache) expireLocked(now time.Time) {
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		key, _ := front.Value.(string)
		if now.Sub(c.seen[key].seenAt) < c.ttl {
			return
		}
		c.order.Remove(front)
		delete(c.seen, key)
	}
}

func (c *Cache) evictOldestLocked() {
	front := c.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.seen, key)
}

// Key derives the dedupe key of a messaging item.
func Key(m event.Messaging) string {
	if m.Message != nil && m.Message.MID != "" {
		return "mid:" + m.Message.MID
	}
	if m.Sender == nil || m.Timestamp == 0 {
		return ""
	}
	sender := m.Sender.ID
	if sender == "" {
		sender = "ref:" + m.Sender.UserRef
	}
	kind := "other"
	switch {
	case m.Postback != nil:
		kind = "postback:" + m.Postback.Payload
	case m.Delivery != nil:
		kind = "delivery:" + strconv.FormatInt(m.Delivery.Watermark, 10)
	case m.Read != nil:
		kind = "read:" + strconv.FormatInt(m.Read.Watermark, 10)
	case m.Optin != nil:
		kind = "optin"
	case m.Referral != nil:
		kind = "referral"
	case m.AccountLinking != nil:
		kind = "account_linking"
	}
	return sender + ":" + strconv.FormatInt(m.Timestamp, 10) + ":" + kind
}
