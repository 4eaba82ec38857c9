// ABOUTME: Transport decorator that records outbound sends in the ledger
// ABOUTME: Ledger failures are logged and never fail the send

package bot

import (
	"context"
	"log/slog"

	"github.com/2389/coven-bot/internal/chat"
	"github.com/2389/coven-bot/internal/message"
	"github.com/2389/coven-bot/internal/store"
)

type recordingTransport struct {
	next   chat.Transport
	ledger Ledger
	logger *slog.Logger
}

func (t *recordingTransport) Send(ctx context.Context, to message.Recipient, payload message.Payload) (*message.Ack, error) {
	ack, err := t.next.Send(ctx, to, payload)

	rec := &store.LedgerEvent{
		UserKey:   to.Key(),
		Direction: store.DirectionOutbound,
		Type:      "send",
		Outcome:   store.OutcomeSent,
		Text:      store.StringPtr(payload.TextOf()),
	}
	if err != nil {
		rec.Outcome = store.OutcomeFailed
		rec.Error = store.StringPtr(err.Error())
	} else if ack != nil {
		rec.MessageID = store.StringPtr(ack.MessageID)
	}
	if lerr := t.ledger.SaveEvent(ctx, rec); lerr != nil {
		t.logger.Warn("recording outbound send", "error", lerr)
	}
	return ack, err
}

func (t *recordingTransport) SendAction(ctx context.Context, to message.Recipient, action message.Action) (*message.Ack, error) {
	return t.next.SendAction(ctx, to, action)
}

func (t *recordingTransport) GetProfile(ctx context.Context, userID string, fields []string) (*message.Profile, error) {
	return t.next.GetProfile(ctx, userID, fields)
}
