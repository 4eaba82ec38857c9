// ABOUTME: Conversation is the per-user ask/answer state machine
// ABOUTME: Queues questions, routes answers and auxiliary events, tracks dialog properties

package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/coven-bot/internal/event"
	"github.com/2389/coven-bot/internal/message"
	"github.com/2389/coven-bot/internal/pattern"
)

// State is the lifecycle state of a conversation.
type State int

const (
	StateInactive State = iota
	StateIdle
	StateWaiting
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// AnswerFunc handles an answer or an auxiliary event of a question.
type AnswerFunc func(ctx context.Context, evt *event.Event, convo *Conversation, data event.Data) error

// QuestionFunc asks a question dynamically instead of sending a fixed message.
type QuestionFunc func(ctx context.Context, convo *Conversation) error

// AskOption configures a question.
type AskOption func(*askStep)

// WithEventHandler observes events answering to t while the question waits.
// The question stays open.
func WithEventHandler(t event.Type, fn AnswerFunc) AskOption {
	return func(s *askStep) {
		s.aux = append(s.aux, auxHandler{eventType: t, fn: fn})
	}
}

// WithPatternHandler observes text replies matching m while the question
// waits. The question stays open.
func WithPatternHandler(m *pattern.Matcher, fn AnswerFunc) AskOption {
	return func(s *askStep) {
		s.aux = append(s.aux, auxHandler{matcher: m, fn: fn})
	}
}

// WithQuestionOptions sets the send options used for the question.
func WithQuestionOptions(opts ...SendOption) AskOption {
	return func(s *askStep) {
		s.sendOpts = append(s.sendOpts, opts...)
	}
}

type auxHandler struct {
	eventType event.Type
	matcher   *pattern.Matcher
	fn        AnswerFunc
}

type askStep struct {
	question   message.Message
	questionFn QuestionFunc
	answer     AnswerFunc
	aux        []auxHandler
	sendOpts   []SendOption
}

func (s *askStep) matchAux(evt *event.Event) (*auxHandler, event.Data, bool) {
	for i := range s.aux {
		h := &s.aux[i]
		if h.matcher != nil {
			if !evt.IsAnswer() {
				continue
			}
			if res, ok := h.matcher.Match(evt.Text); ok {
				data := evt.DataFor(evt.Type)
				data.Keyword = res.Keyword
				data.Match = res.Match
				return h, data, true
			}
			continue
		}
		if evt.Is(h.eventType) {
			return h, evt.DataFor(h.eventType), true
		}
	}
	return nil, event.Data{}, false
}

// Conversation is a queued multi-step dialog bound to one Chat. Every Chat
// operation is available on it.
type Conversation struct {
	*Chat

	id     string
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	sending bool
	queue   []*askStep
	props   map[string]any
	onEnd   []func(*Conversation)
}

func newConversation(c *Chat) *Conversation {
	id := uuid.NewString()
	return &Conversation{
		Chat:   c,
		id:     id,
		logger: c.logger.With("conversation", id),
		state:  StateIdle,
		props:  make(map[string]any),
	}
}

// ID identifies the conversation in logs and the ledger.
func (c *Conversation) ID() string {
	return c.id
}

// State returns the current state.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsActive reports whether the conversation has not ended.
func (c *Conversation) IsActive() bool {
	return c.State() != StateInactive
}

// IsWaitingForAnswer reports whether a question was sent and awaits an answer.
func (c *Conversation) IsWaitingForAnswer() bool {
	return c.State() == StateWaiting
}

// Pending returns the number of queued questions, including the one waiting.
func (c *Conversation) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Set stores a dialog property.
func (c *Conversation) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.props[key] = value
}

// Get returns a dialog property. Properties survive the end of the dialog.
func (c *Conversation) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.props[key]
}

// OnEnd registers fn to run once when the conversation ends.
func (c *Conversation) OnEnd(fn func(*Conversation)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEnd = append(c.onEnd, fn)
}

// Module runs factory against the conversation so a reusable bundle can
// queue questions on it.
func (c *Conversation) Module(factory func(*Conversation)) {
	factory(c)
}

// Ask queues a question. If nothing is waiting it is sent right away. A
// failed send leaves the question at the head of the queue and the
// conversation idle; the next Ask or Continue retries it.
func (c *Conversation) Ask(ctx context.Context, question message.Message, answer AnswerFunc, opts ...AskOption) error {
	if question == nil {
		return fmt.Errorf("%w: nil question", message.ErrInvalidMessage)
	}
	return c.enqueue(ctx, &askStep{question: question, answer: answer}, opts)
}

// AskFunc queues a question asked by fn when its turn comes.
func (c *Conversation) AskFunc(ctx context.Context, fn QuestionFunc, answer AnswerFunc, opts ...AskOption) error {
	if fn == nil {
		return fmt.Errorf("%w: nil question func", message.ErrInvalidMessage)
	}
	return c.enqueue(ctx, &askStep{questionFn: fn, answer: answer}, opts)
}

func (c *Conversation) enqueue(ctx context.Context, step *askStep, opts []AskOption) error {
	if step.answer == nil {
		return ErrNoAnswerCallback
	}
	for _, opt := range opts {
		opt(step)
	}

	c.mu.Lock()
	if c.state == StateInactive {
		c.mu.Unlock()
		return ErrConversationEnded
	}
	c.queue = append(c.queue, step)
	c.mu.Unlock()

	return c.Continue(ctx)
}

// Continue sends the question at the head of the queue if the conversation
// is idle and no other send is in flight. It is a no-op otherwise.
func (c *Conversation) Continue(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle || c.sending || len(c.queue) == 0 {
		c.mu.Unlock()
		return nil
	}
	step := c.queue[0]
	c.sending = true
	c.mu.Unlock()

	err := c.sendQuestion(ctx, step)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sending = false
	if err != nil {
		c.logger.Warn("question not sent", "error", err)
		return fmt.Errorf("sending question: %w", err)
	}
	if c.state == StateIdle && len(c.queue) > 0 && c.queue[0] == step {
		c.state = StateWaiting
	}
	return nil
}

func (c *Conversation) sendQuestion(ctx context.Context, step *askStep) error {
	if step.questionFn != nil {
		return step.questionFn(ctx, c)
	}
	_, err := c.Say(ctx, step.question, step.sendOpts...)
	return err
}

// Respond offers an inbound event to the waiting question. It reports
// whether the conversation consumed the event. Auxiliary handlers are
// tried first and never advance the dialog; a text message answers the
// question; other events are not consumed. Every message that arrives
// while the question waits reaches its answer callback, even if an earlier
// answer is still running; only the first to finish advances the dialog.
// A callback error leaves the conversation as the callback left it.
func (c *Conversation) Respond(ctx context.Context, evt *event.Event) (bool, error) {
	c.mu.Lock()
	if c.state != StateWaiting || len(c.queue) == 0 {
		c.mu.Unlock()
		return false, nil
	}
	step := c.queue[0]
	c.mu.Unlock()

	if h, data, ok := step.matchAux(evt); ok {
		if err := h.fn(ctx, evt, c, data); err != nil {
			return true, &CallbackError{Role: RoleAux, Type: data.Type, Err: err}
		}
		return true, nil
	}

	if !evt.IsAnswer() {
		return false, nil
	}

	if err := step.answer(ctx, evt, c, evt.DataFor(event.TypeMessage)); err != nil {
		return true, &CallbackError{Role: RoleAnswer, Type: evt.Type, Err: err}
	}
	return true, c.advance(ctx, step)
}

// advance pops an answered question and sends the next one, or ends the
// dialog when none is left. If the answer callback ended the dialog or
// handed control back, or an overlapping answer already advanced past
// done, nothing more happens.
func (c *Conversation) advance(ctx context.Context, done *askStep) error {
	c.mu.Lock()
	if c.state != StateWaiting || len(c.queue) == 0 || c.queue[0] != done {
		c.mu.Unlock()
		return nil
	}
	c.queue = c.queue[1:]
	if len(c.queue) == 0 {
		hooks := c.endLocked()
		c.mu.Unlock()
		c.finish(hooks)
		return nil
	}
	c.state = StateIdle
	c.mu.Unlock()

	return c.Continue(ctx)
}

// StopWaitingForAnswer abandons the waiting question without calling any
// callback. Later questions stay queued until Continue or Ask drives the
// conversation again; events meanwhile go to the router.
func (c *Conversation) StopWaitingForAnswer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateWaiting {
		return
	}
	c.queue = c.queue[1:]
	c.state = StateIdle
}

// End stops the conversation and discards queued questions without
// calling their callbacks.
func (c *Conversation) End() {
	c.mu.Lock()
	if c.state == StateInactive {
		c.mu.Unlock()
		return
	}
	hooks := c.endLocked()
	c.mu.Unlock()
	c.finish(hooks)
}

func (c *Conversation) endLocked() []func(*Conversation) {
	c.state = StateInactive
	c.queue = nil
	hooks := c.onEnd
	c.onEnd = nil
	return hooks
}

func (c *Conversation) finish(hooks []func(*Conversation)) {
	c.Chat.release(c)
	c.logger.Debug("conversation ended")
	for _, fn := range hooks {
		fn(c)
	}
}
