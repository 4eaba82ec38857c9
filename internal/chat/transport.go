// ABOUTME: Transport capability the chat session sends through
// ABOUTME: Implemented by the Graph API client and by test fakes

package chat

import (
	"context"

	"github.com/2389/coven-bot/internal/message"
)

// Transport delivers composed messages and sender actions and looks up
// user profiles.
type Transport interface {
	Send(ctx context.Context, to message.Recipient, payload message.Payload) (*message.Ack, error)
	SendAction(ctx context.Context, to message.Recipient, action message.Action) (*message.Ack, error)
	GetProfile(ctx context.Context, userID string, fields []string) (*message.Profile, error)
}
