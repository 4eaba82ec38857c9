// ABOUTME: Tests for the webhook dedupe cache
// ABOUTME: Validates TTL expiration, size limits, eviction order, item keys and concurrency safety

package dedupe

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/2389/coven-bot/internal/event"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newCache(ttl time.Duration, size int) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(Config{TTL: ttl, MaxSize: size, Now: clock.Now}), clock
}

func TestCache_FirstSightingIsNew(t *testing.T) {
	cache, _ := newCache(time.Minute, 10)
	assert.False(t, cache.Seen("a"))
	assert.True(t, cache.Seen("a"))
	assert.Equal(t, 1, cache.Len())
}

func TestCache_Expiry(t *testing.T) {
	cache, clock := newCache(time.Minute, 10)
	cache.Seen("a")

	clock.Advance(2 * time.Minute)
	assert.False(t, cache.Seen("a"), "expired keys count as new")
	assert.True(t, cache.Seen("a"))
}

func TestCache_ExpiredKeysDroppedOnInsert(t *testing.T) {
	cache, clock := newCache(time.Minute, 10)
	cache.Seen("a")
	cache.Seen("b")

	clock.Advance(2 * time.Minute)
	cache.Seen("c")
	assert.Equal(t, 1, cache.Len())
}

func TestCache_EvictsOldest(t *testing.T) {
	cache, _ := newCache(time.Hour, 2)
	cache.Seen("a")
	cache.Seen("b")
	cache.Seen("a") // refresh a, b is now oldest
	cache.Seen("c")

	assert.Equal(t, 2, cache.Len())
	assert.True(t, cache.Seen("a"))
	assert.False(t, cache.Seen("b"), "b was evicted")
}

func TestCache_Defaults(t *testing.T) {
	cache := New(Config{})
	assert.Equal(t, DefaultTTL, cache.ttl)
	assert.Equal(t, DefaultMaxSize, cache.maxSize)
}

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		item event.Messaging
		want string
	}{
		{
			name: "message id",
			item: event.Messaging{Sender: &event.Party{ID: "u1"}, Timestamp: 5, Message: &event.RawMessage{MID: "m.1", Text: "hi"}},
			want: "mid:m.1",
		},
		{
			name: "postback",
			item: event.Messaging{Sender: &event.Party{ID: "u1"}, Timestamp: 5, Postback: &event.Postback{Payload: "GO"}},
			want: "u1:5:postback:GO",
		},
		{
			name: "read",
			item: event.Messaging{Sender: &event.Party{ID: "u1"}, Timestamp: 7, Read: &event.Read{Watermark: 6}},
			want: "u1:7:read:6",
		},
		{
			name: "user ref optin",
			item: event.Messaging{Sender: &event.Party{UserRef: "r"}, Timestamp: 9, Optin: &event.Optin{Ref: "x"}},
			want: "ref:r:9:optin",
		},
		{
			name: "no timestamp",
			item: event.Messaging{Sender: &event.Party{ID: "u1"}, Postback: &event.Postback{Payload: "GO"}},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.item))
		})
	}
}

func TestCache_SeenItem(t *testing.T) {
	cache, _ := newCache(time.Minute, 10)
	item := event.Messaging{Sender: &event.Party{ID: "u1"}, Message: &event.RawMessage{MID: "m.1"}}
	keyless := event.Messaging{Postback: &event.Postback{Payload: "GO"}}

	assert.False(t, cache.SeenItem(item))
	assert.True(t, cache.SeenItem(item))
	assert.False(t, cache.SeenItem(keyless))
	assert.False(t, cache.SeenItem(keyless))
}

func TestCache_Concurrent(t *testing.T) {
	cache, _ := newCache(time.Hour, 1000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	fresh := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if !cache.Seen(fmt.Sprintf("key-%d", i%10)) {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, fresh, "each key is new exactly once")
}
