// ABOUTME: Chat is the per-user session handle for sending and profile lookups
// ABOUTME: Owns the reference to the user's single active conversation

package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/coven-bot/internal/message"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config holds the collaborators of a Chat.
type Config struct {
	Transport Transport
	Logger    *slog.Logger

	// Sleep is used for typing delays. Defaults to a context-aware timer.
	Sleep SleepFunc

	// Now is the clock used to timestamp sends for receipt matching.
	Now func() time.Time

	// ReceiptTTL bounds how long a delivery or read callback waits for its
	// receipt. Defaults to DefaultReceiptTTL.
	ReceiptTTL time.Duration
}

// Chat is the session handle for one user.
type Chat struct {
	recipient message.Recipient
	transport Transport
	logger    *slog.Logger
	sleep     SleepFunc
	now       func() time.Time
	ttl       time.Duration

	mu      sync.Mutex
	convo   *Conversation
	pending []pendingReceipt
}

// New creates a Chat for recipient.
func New(recipient message.Recipient, cfg Config) *Chat {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ttl := cfg.ReceiptTTL
	if ttl <= 0 {
		ttl = DefaultReceiptTTL
	}
	return &Chat{
		recipient: recipient,
		transport: cfg.Transport,
		logger:    logger.With("component", "chat", "user", recipient.Key()),
		sleep:     sleep,
		now:       now,
		ttl:       ttl,
	}
}

// Recipient returns the user this chat addresses.
func (c *Chat) Recipient() message.Recipient {
	return c.recipient
}

// UserID returns the session key of the user.
func (c *Chat) UserID() string {
	return c.recipient.Key()
}

// Say composes msg and sends it. For message.Texts every element is sent in
// order with the same options; the ack of the last send is returned.
func (c *Chat) Say(ctx context.Context, msg message.Message, opts ...SendOption) (*message.Ack, error) {
	cfg := buildSendConfig(opts)
	payloads, err := message.Compose(msg, cfg.style)
	if err != nil {
		return nil, err
	}

	var ack *message.Ack
	for i, p := range payloads {
		ack, err = c.send(ctx, p, cfg, i == len(payloads)-1)
		if err != nil {
			return nil, err
		}
	}
	return ack, nil
}

// SendTextMessage sends text with optional quick replies.
func (c *Chat) SendTextMessage(ctx context.Context, text string, replies []message.QuickReply, opts ...SendOption) (*message.Ack, error) {
	return c.Say(ctx, message.QuickReplies{Text: text, Replies: replies}, opts...)
}

// SendButtonTemplate sends a button template.
func (c *Chat) SendButtonTemplate(ctx context.Context, text string, buttons []message.Button, opts ...SendOption) (*message.Ack, error) {
	return c.Say(ctx, message.Buttons{Text: text, Buttons: buttons}, opts...)
}

// SendGenericTemplate sends a generic template.
func (c *Chat) SendGenericTemplate(ctx context.Context, elements []message.Element, opts ...SendOption) (*message.Ack, error) {
	return c.Say(ctx, message.Cards{Cards: elements}, opts...)
}

// SendListTemplate sends a list template.
func (c *Chat) SendListTemplate(ctx context.Context, elements []message.Element, buttons []message.Button, opts ...SendOption) (*message.Ack, error) {
	return c.Say(ctx, message.List{Elements: elements, Buttons: buttons}, opts...)
}

// SendTemplate sends a raw template payload.
func (c *Chat) SendTemplate(ctx context.Context, payload any, opts ...SendOption) (*message.Ack, error) {
	return c.Say(ctx, message.Template{Payload: payload}, opts...)
}

// SendAttachment sends a media attachment by URL.
func (c *Chat) SendAttachment(ctx context.Context, kind, url string, replies []message.QuickReply, opts ...SendOption) (*message.Ack, error) {
	return c.Say(ctx, message.Attachment{Type: kind, URL: url, Replies: replies}, opts...)
}

// SendMessage sends an already composed payload.
func (c *Chat) SendMessage(ctx context.Context, payload message.Payload, opts ...SendOption) (*message.Ack, error) {
	return c.send(ctx, payload, buildSendConfig(opts), true)
}

// SendAction sends a sender action. It never touches conversation state.
func (c *Chat) SendAction(ctx context.Context, action message.Action) (*message.Ack, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	ack, err := c.transport.SendAction(ctx, c.recipient, action)
	if err != nil {
		return nil, fmt.Errorf("sending %s to %s: %w", action, c.recipient.Key(), err)
	}
	return ack, nil
}

// SendTypingIndicator shows the typing indicator for d, capped at
// MaxTypingDelay, then turns it off.
func (c *Chat) SendTypingIndicator(ctx context.Context, d time.Duration) (*message.Ack, error) {
	if d > MaxTypingDelay {
		c.logger.Warn("typing delay capped", "requested", d, "max", MaxTypingDelay)
		d = MaxTypingDelay
	}
	if _, err := c.SendAction(ctx, message.ActionTypingOn); err != nil {
		return nil, err
	}
	if err := c.sleep(ctx, d); err != nil {
		return nil, err
	}
	return c.SendAction(ctx, message.ActionTypingOff)
}

// GetUserProfile fetches the Messenger profile of the user. Results are not cached.
func (c *Chat) GetUserProfile(ctx context.Context) (*message.Profile, error) {
	return c.profile(ctx, message.MessengerProfileFields)
}

// GetUserProfileInstagram fetches the Instagram profile of the user.
func (c *Chat) GetUserProfileInstagram(ctx context.Context) (*message.Profile, error) {
	return c.profile(ctx, message.InstagramProfileFields)
}

func (c *Chat) profile(ctx context.Context, fields []string) (*message.Profile, error) {
	if c.recipient.ID == "" {
		return nil, ErrNoUserID
	}
	p, err := c.transport.GetProfile(ctx, c.recipient.ID, fields)
	if err != nil {
		return nil, fmt.Errorf("fetching profile of %s: %w", c.recipient.ID, err)
	}
	return p, nil
}

// Conversation starts a new conversation for this user, replacing the
// current one. The previous conversation is orphaned: no further event
// reaches it, but it is not ended. factory runs synchronously so it can
// queue the first questions; its error is returned with the conversation.
func (c *Chat) Conversation(ctx context.Context, factory func(ctx context.Context, convo *Conversation) error) (*Conversation, error) {
	convo := newConversation(c)

	c.mu.Lock()
	prev := c.convo
	c.convo = convo
	c.mu.Unlock()

	if prev != nil && prev.IsActive() {
		c.logger.Debug("conversation replaced", "previous", prev.ID(), "conversation", convo.ID())
	}

	if factory == nil {
		return convo, nil
	}
	if err := factory(ctx, convo); err != nil {
		return convo, err
	}
	return convo, nil
}

// ActiveConversation returns the current conversation if it is still active.
func (c *Chat) ActiveConversation() *Conversation {
	c.mu.Lock()
	convo := c.convo
	c.mu.Unlock()

	if convo == nil || !convo.IsActive() {
		return nil
	}
	return convo
}

// release drops the conversation reference if convo is still the current one.
func (c *Chat) release(convo *Conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.convo == convo {
		c.convo = nil
	}
}

func (c *Chat) send(ctx context.Context, payload message.Payload, cfg sendConfig, last bool) (*message.Ack, error) {
	if d, ok := cfg.typingDelay(payload); ok {
		if _, err := c.SendTypingIndicator(ctx, d); err != nil {
			return nil, err
		}
	}

	sentAt := c.now()
	ack, err := c.transport.Send(ctx, c.recipient, payload)
	if err != nil {
		c.logger.Warn("send failed", "error", err)
		return nil, fmt.Errorf("sending to %s: %w", c.recipient.Key(), err)
	}
	if ack == nil {
		ack = &message.Ack{}
	}

	c.logger.Debug("message sent", "message_id", ack.MessageID)

	if last {
		c.park(ack.MessageID, sentAt, cfg)
	}
	return ack, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
