// ABOUTME: Delivery and read callbacks parked on a chat after a send
// ABOUTME: Each fires at most once, when a matching receipt event arrives

package chat

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/2389/coven-bot/internal/event"
)

// DefaultReceiptTTL is how long a receipt callback stays parked. Pages not
// subscribed to delivery or read webhooks never settle them.
const DefaultReceiptTTL = 24 * time.Hour

type pendingReceipt struct {
	kind      event.Type
	messageID string
	sentAt    time.Time
	fn        ReceiptFunc
}

func (c *Chat) park(messageID string, sentAt time.Time, cfg sendConfig) {
	if cfg.onDelivery == nil && cfg.onRead == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked()
	if cfg.onDelivery != nil {
		c.pending = append(c.pending, pendingReceipt{kind: event.TypeDelivery, messageID: messageID, sentAt: sentAt, fn: cfg.onDelivery})
	}
	if cfg.onRead != nil {
		c.pending = append(c.pending, pendingReceipt{kind: event.TypeRead, messageID: messageID, sentAt: sentAt, fn: cfg.onRead})
	}
}

// PendingReceipts returns how many receipt callbacks are still waiting.
func (c *Chat) PendingReceipts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked()
	return len(c.pending)
}

// HandleReceipt runs the parked callbacks covered by a delivery or read
// event and forgets them. Other event types are ignored.
func (c *Chat) HandleReceipt(ctx context.Context, evt *event.Event) error {
	if evt.Type != event.TypeDelivery && evt.Type != event.TypeRead {
		return nil
	}

	c.mu.Lock()
	c.expireLocked()
	var due []pendingReceipt
	kept := c.pending[:0]
	for _, p := range c.pending {
		if p.covers(evt) {
			due = append(due, p)
			continue
		}
		kept = append(kept, p)
	}
	c.pending = kept
	c.mu.Unlock()

	var errs []error
	for _, p := range due {
		if err := p.fn(ctx, evt, c); err != nil {
			errs = append(errs, &CallbackError{Role: RoleReceipt, Type: evt.Type, Err: err})
		}
	}
	return errors.Join(errs...)
}

// expireLocked drops callbacks parked longer than the receipt TTL.
func (c *Chat) expireLocked() {
	cutoff := c.now().Add(-c.ttl)
	kept := c.pending[:0]
	for _, p := range c.pending {
		if p.sentAt.Before(cutoff) {
			c.logger.Debug("dropping unsettled receipt callback", "kind", p.kind, "message_id", p.messageID, "sent_at", p.sentAt)
			continue
		}
		kept = append(kept, p)
	}
	clear(c.pending[len(kept):])
	c.pending = kept
}

func (p pendingReceipt) covers(evt *event.Event) bool {
	if p.kind != evt.Type {
		return false
	}
	switch evt.Type {
	case event.TypeDelivery:
		if evt.Delivery == nil {
			return false
		}
		if len(evt.Delivery.MIDs) > 0 && p.messageID != "" {
			return slices.Contains(evt.Delivery.MIDs, p.messageID)
		}
		return evt.Delivery.Watermark >= p.sentAt.UnixMilli()
	case event.TypeRead:
		return evt.Read != nil && evt.Read.Watermark >= p.sentAt.UnixMilli()
	}
	return false
}
