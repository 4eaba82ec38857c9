// ABOUTME: Tests for the SQLite ledger store
// ABOUTME: Covers schema creation, event round trips, user listing and pruning

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "ledger.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file was not created in nested directory")
}

func TestSaveAndGetEvent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	event := &LedgerEvent{
		UserKey:        "psid-1",
		ConversationID: StringPtr("convo-1"),
		Direction:      DirectionInbound,
		Type:           "message",
		Outcome:        OutcomeConversation,
		MessageID:      StringPtr("mid.1"),
		Text:           StringPtr("hello"),
		Timestamp:      ts,
	}
	require.NoError(t, s.SaveEvent(ctx, event))
	require.NotEmpty(t, event.ID)

	got, err := s.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "psid-1", got.UserKey)
	assert.Equal(t, "convo-1", *got.ConversationID)
	assert.Equal(t, DirectionInbound, got.Direction)
	assert.Equal(t, OutcomeConversation, got.Outcome)
	assert.Equal(t, "hello", *got.Text)
	assert.Nil(t, got.Error)
	assert.True(t, ts.Equal(got.Timestamp))
}

func TestGetEvent_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestListEventsByUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, user := range []string{"a", "b", "a", "a"} {
		require.NoError(t, s.SaveEvent(ctx, &LedgerEvent{
			UserKey:   user,
			Direction: DirectionOutbound,
			Type:      "send",
			Outcome:   OutcomeSent,
			Timestamp: base.Add(time.Duration(3-i) * time.Second),
		}))
	}

	events, err := s.ListEventsByUser(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i := 1; i < len(events); i++ {
		assert.True(t, events[i-1].Timestamp.Before(events[i].Timestamp), "events are oldest first")
	}

	limited, err := s.ListEventsByUser(ctx, "a", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestPruneEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.SaveEvent(ctx, &LedgerEvent{UserKey: "u", Direction: DirectionInbound, Type: "read", Outcome: OutcomeDropped, Timestamp: now.Add(-48 * time.Hour)}))
	require.NoError(t, s.SaveEvent(ctx, &LedgerEvent{UserKey: "u", Direction: DirectionInbound, Type: "message", Outcome: OutcomeRouted, Timestamp: now}))

	n, err := s.PruneEvents(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	events, err := s.ListEventsByUser(ctx, "u", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "message", events[0].Type)
}

func TestMockStoreMatchesSQLite(t *testing.T) {
	ctx := context.Background()
	for name, s := range map[string]Store{"sqlite": newTestStore(t), "mock": NewMockStore()} {
		t.Run(name, func(t *testing.T) {
			e := &LedgerEvent{UserKey: "u", Direction: DirectionInbound, Type: "postback", Outcome: OutcomeUnhandled}
			require.NoError(t, s.SaveEvent(ctx, e))

			got, err := s.GetEvent(ctx, e.ID)
			require.NoError(t, err)
			assert.Equal(t, OutcomeUnhandled, got.Outcome)

			events, err := s.ListEventsByUser(ctx, "u", 10)
			require.NoError(t, err)
			assert.Len(t, events, 1)
		})
	}
}
