// ABOUTME: Send options for Say and the Send* helpers
// ABOUTME: Typing simulation, receipt callbacks and template styles

package chat

import (
	"context"
	"time"

	"github.com/2389/coven-bot/internal/event"
	"github.com/2389/coven-bot/internal/message"
)

const (
	// MaxTypingDelay caps any typing indicator.
	MaxTypingDelay = 20 * time.Second

	typingPerChar     = 10 * time.Millisecond
	typingWithoutText = time.Second
)

// ReceiptFunc is called when a delivery or read receipt covers a sent message.
type ReceiptFunc func(ctx context.Context, evt *event.Event, c *Chat) error

// SendOption configures a single send.
type SendOption func(*sendConfig)

type sendConfig struct {
	typing     time.Duration
	autoTyping bool
	onDelivery ReceiptFunc
	onRead     ReceiptFunc
	style      message.Style
}

func buildSendConfig(opts []SendOption) sendConfig {
	var cfg sendConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithTyping shows a typing indicator for d before sending.
func WithTyping(d time.Duration) SendOption {
	return func(c *sendConfig) { c.typing = d }
}

// WithAutoTyping shows a typing indicator sized to the message text.
func WithAutoTyping() SendOption {
	return func(c *sendConfig) { c.autoTyping = true }
}

// OnDelivery registers fn to run once the platform reports the message delivered.
func OnDelivery(fn ReceiptFunc) SendOption {
	return func(c *sendConfig) { c.onDelivery = fn }
}

// OnRead registers fn to run once the platform reports the message read.
func OnRead(fn ReceiptFunc) SendOption {
	return func(c *sendConfig) { c.onRead = fn }
}

// WithImageAspectRatio sets the generic template image ratio.
func WithImageAspectRatio(ratio string) SendOption {
	return func(c *sendConfig) { c.style.ImageAspectRatio = ratio }
}

// WithTopElementStyle sets the list template top element style.
func WithTopElementStyle(style string) SendOption {
	return func(c *sendConfig) { c.style.TopElementStyle = style }
}

// typingDelay returns how long to show the typing indicator for payload.
func (c sendConfig) typingDelay(payload message.Payload) (time.Duration, bool) {
	if c.typing > 0 {
		return c.typing, true
	}
	if !c.autoTyping {
		return 0, false
	}
	text := payload.TextOf()
	if text == "" {
		return typingWithoutText, true
	}
	return time.Duration(len([]rune(text))) * typingPerChar, true
}
