// ABOUTME: Bot dispatcher owning the session registry, router and optional ledger
// ABOUTME: Gives waiting conversations first refusal before routing an event

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/coven-bot/internal/chat"
	"github.com/2389/coven-bot/internal/event"
	"github.com/2389/coven-bot/internal/message"
	"github.com/2389/coven-bot/internal/router"
	"github.com/2389/coven-bot/internal/store"
)

// ErrUnsupportedEvent is returned by HandleEvent for payloads that do not
// normalize to a known event type.
var ErrUnsupportedEvent = errors.New("unsupported event")

// Ledger records inbound and outbound traffic.
type Ledger interface {
	SaveEvent(ctx context.Context, event *store.LedgerEvent) error
}

// Option configures a Bot.
type Option func(*Bot)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) { b.logger = logger }
}

// WithBroadcastEchoes routes echoes of the page's own messages to handlers.
func WithBroadcastEchoes(enabled bool) Option {
	return func(b *Bot) { b.broadcastEchoes = enabled }
}

// WithLedger records traffic to l.
func WithLedger(l Ledger) Option {
	return func(b *Bot) { b.ledger = l }
}

// WithSleep replaces the typing-delay sleeper of every session.
func WithSleep(sleep chat.SleepFunc) Option {
	return func(b *Bot) { b.sleep = sleep }
}

// Bot dispatches inbound events and hosts the application's handlers.
type Bot struct {
	transport       chat.Transport
	profiles        ProfileConfigurer
	router          *router.Router
	logger          *slog.Logger
	broadcastEchoes bool
	ledger          Ledger
	sleep           chat.SleepFunc

	mu       sync.Mutex
	sessions map[string]*chat.Chat
}

// New creates a Bot sending through transport.
func New(transport chat.Transport, opts ...Option) *Bot {
	b := &Bot{
		transport: transport,
		sessions:  make(map[string]*chat.Chat),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.logger = b.logger.With("component", "bot")
	b.router = router.New(b.logger)

	if p, ok := transport.(ProfileConfigurer); ok {
		b.profiles = p
	}
	if b.ledger != nil {
		b.transport = &recordingTransport{next: transport, ledger: b.ledger, logger: b.logger}
	}
	return b
}

// On registers h for events of type t, including compound keys such as
// "postback:BUY".
func (b *Bot) On(t event.Type, h router.Handler) {
	b.router.On(t, h)
}

// Hear registers h for text messages matching matcher.
func (b *Bot) Hear(matcher any, h router.Handler) error {
	return b.router.Hear(matcher, h)
}

// MustHear is like Hear but panics on an invalid matcher.
func (b *Bot) MustHear(matcher any, h router.Handler) {
	b.router.MustHear(matcher, h)
}

// Module runs factory against the bot so a bundle can register handlers.
func (b *Bot) Module(factory func(*Bot)) {
	factory(b)
}

// HandleBatch handles every event of a webhook batch in order. A failing
// event does not stop the batch; all errors are joined.
func (b *Bot) HandleBatch(ctx context.Context, batch *event.Batch) error {
	events, unknown := batch.Events()
	for _, m := range unknown {
		b.logger.Debug("skipping unsupported messaging item", "timestamp", m.Timestamp)
	}

	var errs []error
	for _, evt := range events {
		if err := b.Handle(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HandleEvent normalizes and handles a single raw messaging item. A
// non-empty userID overrides the sender.
func (b *Bot) HandleEvent(ctx context.Context, userID string, raw event.Messaging) error {
	evt, ok := event.Normalize(raw)
	if !ok {
		return ErrUnsupportedEvent
	}
	if userID != "" {
		evt.Sender.ID = userID
		evt.Sender.UserRef = ""
	}
	return b.Handle(ctx, evt)
}

// Handle handles a normalized event.
func (b *Bot) Handle(ctx context.Context, evt *event.Event) error {
	if evt.IsEcho && !b.broadcastEchoes {
		b.logger.Debug("dropping echo", "message_id", evt.MessageID)
		return nil
	}

	c := b.Session(sessionRecipient(evt))
	rec := inboundRecord(c, evt)

	var errs []error
	if err := c.HandleReceipt(ctx, evt); err != nil {
		errs = append(errs, err)
	}

	if convo := c.ActiveConversation(); convo != nil && !evt.IsEcho && convo.IsWaitingForAnswer() {
		consumed, err := convo.Respond(ctx, evt)
		if consumed {
			rec.ConversationID = store.StringPtr(convo.ID())
			rec.Outcome = store.OutcomeConversation
			errs = append(errs, err)
			return b.finish(ctx, rec, errors.Join(errs...))
		}
	}

	handled, err := b.router.Dispatch(ctx, evt, c)
	errs = append(errs, err)
	switch {
	case handled:
		rec.Outcome = store.OutcomeRouted
	case evt.Type == event.TypeDelivery || evt.Type == event.TypeRead || evt.IsEcho:
		rec.Outcome = store.OutcomeDropped
	default:
		rec.Outcome = store.OutcomeUnhandled
	}
	return b.finish(ctx, rec, errors.Join(errs...))
}

func (b *Bot) finish(ctx context.Context, rec *store.LedgerEvent, err error) error {
	if err != nil {
		b.logger.Warn("event handling failed", "user", rec.UserKey, "type", rec.Type, "error", err)
		rec.Outcome = store.OutcomeFailed
		rec.Error = store.StringPtr(err.Error())
	}
	if b.ledger != nil {
		if lerr := b.ledger.SaveEvent(ctx, rec); lerr != nil {
			b.logger.Warn("recording inbound event", "error", lerr)
		}
	}
	if err != nil {
		return fmt.Errorf("handling %s from %s: %w", rec.Type, rec.UserKey, err)
	}
	return nil
}

// sessionRecipient returns the user an event belongs to. Echoes are sent
// by the page, so their user is the recipient.
func sessionRecipient(evt *event.Event) message.Recipient {
	if evt.IsEcho && evt.PageID != "" {
		return message.Recipient{ID: evt.PageID}
	}
	return evt.Sender
}

func inboundRecord(c *chat.Chat, evt *event.Event) *store.LedgerEvent {
	return &store.LedgerEvent{
		UserKey:   c.UserID(),
		Direction: store.DirectionInbound,
		Type:      string(evt.Type),
		MessageID: store.StringPtr(evt.MessageID),
		Text:      store.StringPtr(evt.Text),
	}
}
