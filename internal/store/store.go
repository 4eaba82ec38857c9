// ABOUTME: Store interface and ledger types for coven-bot persistence
// ABOUTME: Defines LedgerEvent, its direction and outcome, and list limits

package store

import (
	"context"
	"errors"
	"time"
)

// ErrEventNotFound is returned when a requested event does not exist
var ErrEventNotFound = errors.New("event not found")

// Direction tells whether an event came from a user or was sent by the bot.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Outcome records what the bot did with an inbound event.
type Outcome string

const (
	OutcomeConversation Outcome = "conversation" // consumed by a waiting conversation
	OutcomeRouted       Outcome = "routed"       // a router handler ran
	OutcomeUnhandled    Outcome = "unhandled"    // nothing matched
	OutcomeDropped      Outcome = "dropped"      // echo or receipt-only
	OutcomeFailed       Outcome = "failed"       // a callback returned an error
	OutcomeSent         Outcome = "sent"         // outbound send accepted
)

// LedgerEvent is one row of the audit ledger.
type LedgerEvent struct {
	ID             string
	UserKey        string  // message.Recipient.Key() of the user
	ConversationID *string // set when a conversation consumed or produced the event
	Direction      Direction
	Type           string // event type, or "send"/"action" for outbound rows
	Outcome        Outcome
	MessageID      *string // platform message id
	Text           *string
	Error          *string
	Timestamp      time.Time
}

// Store is the ledger persistence interface.
type Store interface {
	SaveEvent(ctx context.Context, event *LedgerEvent) error
	GetEvent(ctx context.Context, id string) (*LedgerEvent, error)
	ListEventsByUser(ctx context.Context, userKey string, limit int) ([]*LedgerEvent, error)
	PruneEvents(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// ptr returns a pointer to s, or nil when s is empty.
func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringPtr is ptr for callers outside the package.
func StringPtr(s string) *string {
	return ptr(s)
}
