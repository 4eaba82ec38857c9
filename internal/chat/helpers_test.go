// ABOUTME: Test fakes for the chat package
// ABOUTME: Recording transport with per-text failures and a recording sleeper

package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2389/coven-bot/internal/event"
	"github.com/2389/coven-bot/internal/message"
)

var errTransport = errors.New("transport down")

type fakeTransport struct {
	mu       sync.Mutex
	sent     []message.Payload
	actions  []message.Action
	failText map[string]error
	profile  *message.Profile
	fields   []string
	nextID   int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failText: make(map[string]error)}
}

func (f *fakeTransport) Send(ctx context.Context, to message.Recipient, payload message.Payload) (*message.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failText[payload.TextOf()]; ok {
		return nil, err
	}
	f.nextID++
	f.sent = append(f.sent, payload)
	return &message.Ack{RecipientID: to.ID, MessageID: fmt.Sprintf("mid.%d", f.nextID)}, nil
}

func (f *fakeTransport) SendAction(ctx context.Context, to message.Recipient, action message.Action) (*message.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return &message.Ack{RecipientID: to.ID}, nil
}

func (f *fakeTransport) GetProfile(ctx context.Context, userID string, fields []string) (*message.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = fields
	if f.profile == nil {
		return nil, errTransport
	}
	return f.profile, nil
}

func (f *fakeTransport) fail(text string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failText[text] = err
}

func (f *fakeTransport) heal(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failText, text)
}

func (f *fakeTransport) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, p := range f.sent {
		out = append(out, p.TextOf())
	}
	return out
}

type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func newTestChat(t *fakeTransport) *Chat {
	rs := &recordingSleep{}
	return New(message.Recipient{ID: "user-1"}, Config{Transport: t, Sleep: rs.sleep})
}

func textEvent(text string) *event.Event {
	return &event.Event{Type: event.TypeMessage, Sender: message.Recipient{ID: "user-1"}, Text: text}
}

// recorder collects answer callback invocations.
type recorder struct {
	mu      sync.Mutex
	answers []string
}

func (r *recorder) answer(ctx context.Context, evt *event.Event, convo *Conversation, data event.Data) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, evt.Text)
	return nil
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.answers...)
}
