// ABOUTME: Session registry and send delegation on the Bot
// ABOUTME: Sessions are created lazily per user key and kept for the process lifetime

package bot

import (
	"context"
	"time"

	"github.com/2389/coven-bot/internal/chat"
	"github.com/2389/coven-bot/internal/message"
)

// Session returns the chat session for recipient, creating it on first use.
func (b *Bot) Session(recipient message.Recipient) *chat.Chat {
	key := recipient.Key()

	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.sessions[key]; ok {
		return c
	}
	c := chat.New(recipient, chat.Config{
		Transport: b.transport,
		Logger:    b.logger,
		Sleep:     b.sleep,
	})
	b.sessions[key] = c
	return c
}

// Sessions returns how many sessions exist.
func (b *Bot) Sessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

func (b *Bot) user(userID string) *chat.Chat {
	return b.Session(message.Recipient{ID: userID})
}

// Conversation starts a conversation with userID, replacing any current one.
func (b *Bot) Conversation(ctx context.Context, userID string, factory func(ctx context.Context, convo *chat.Conversation) error) (*chat.Conversation, error) {
	return b.user(userID).Conversation(ctx, factory)
}

// Say sends msg to userID.
func (b *Bot) Say(ctx context.Context, userID string, msg message.Message, opts ...chat.SendOption) (*message.Ack, error) {
	return b.user(userID).Say(ctx, msg, opts...)
}

// SendTextMessage sends text with optional quick replies to userID.
func (b *Bot) SendTextMessage(ctx context.Context, userID, text string, replies []message.QuickReply, opts ...chat.SendOption) (*message.Ack, error) {
	return b.user(userID).SendTextMessage(ctx, text, replies, opts...)
}

// SendButtonTemplate sends a button template to userID.
func (b *Bot) SendButtonTemplate(ctx context.Context, userID, text string, buttons []message.Button, opts ...chat.SendOption) (*message.Ack, error) {
	return b.user(userID).SendButtonTemplate(ctx, text, buttons, opts...)
}

// SendGenericTemplate sends a generic template to userID.
func (b *Bot) SendGenericTemplate(ctx context.Context, userID string, elements []message.Element, opts ...chat.SendOption) (*message.Ack, error) {
	return b.user(userID).SendGenericTemplate(ctx, elements, opts...)
}

// SendListTemplate sends a list template to userID.
func (b *Bot) SendListTemplate(ctx context.Context, userID string, elements []message.Element, buttons []message.Button, opts ...chat.SendOption) (*message.Ack, error) {
	return b.user(userID).SendListTemplate(ctx, elements, buttons, opts...)
}

// SendTemplate sends a raw template payload to userID.
func (b *Bot) SendTemplate(ctx context.Context, userID string, payload any, opts ...chat.SendOption) (*message.Ack, error) {
	return b.user(userID).SendTemplate(ctx, payload, opts...)
}

// SendAttachment sends a media attachment to userID.
func (b *Bot) SendAttachment(ctx context.Context, userID, kind, url string, replies []message.QuickReply, opts ...chat.SendOption) (*message.Ack, error) {
	return b.user(userID).SendAttachment(ctx, kind, url, replies, opts...)
}

// SendMessage sends a composed payload to userID.
func (b *Bot) SendMessage(ctx context.Context, userID string, payload message.Payload, opts ...chat.SendOption) (*message.Ack, error) {
	return b.user(userID).SendMessage(ctx, payload, opts...)
}

// SendAction sends a sender action to userID.
func (b *Bot) SendAction(ctx context.Context, userID string, action message.Action) (*message.Ack, error) {
	return b.user(userID).SendAction(ctx, action)
}

// SendTypingIndicator shows the typing indicator to userID for d.
func (b *Bot) SendTypingIndicator(ctx context.Context, userID string, d time.Duration) (*message.Ack, error) {
	return b.user(userID).SendTypingIndicator(ctx, d)
}

// GetUserProfile fetches the Messenger profile of userID.
func (b *Bot) GetUserProfile(ctx context.Context, userID string) (*message.Profile, error) {
	return b.user(userID).GetUserProfile(ctx)
}
