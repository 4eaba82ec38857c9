// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu     sync.RWMutex
	events []*LedgerEvent
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// SaveEvent stores a copy of event.
func (m *MockStore) SaveEvent(ctx context.Context, event *LedgerEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	e := *event
	m.events = append(m.events, &e)
	return nil
}

// GetEvent retrieves an event by ID.
func (m *MockStore) GetEvent(ctx context.Context, id string) (*LedgerEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.events {
		if e.ID == id {
			c := *e
			return &c, nil
		}
	}
	return nil, ErrEventNotFound
}

// ListEventsByUser returns a user's events, oldest first.
func (m *MockStore) ListEventsByUser(ctx context.Context, userKey string, limit int) ([]*LedgerEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*LedgerEvent
	for _, e := range m.events {
		if e.UserKey == userKey {
			c := *e
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PruneEvents drops events older than before.
func (m *MockStore) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.events[:0]
	var n int64
	for _, e := range m.events {
		if e.Timestamp.Before(before) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return n, nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// Events returns a snapshot of every stored event in insertion order.
func (m *MockStore) Events() []*LedgerEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*LedgerEvent, 0, len(m.events))
	for _, e := range m.events {
		c := *e
		out = append(out, &c)
	}
	return out
}

// Compile-time interface checks
var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MockStore)(nil)
)
