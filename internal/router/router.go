// ABOUTME: Router maps normalized events to application handlers
// ABOUTME: Type handlers fire in registration order, then the first matching hear pattern

package router

import (
	"context"
	"log/slog"
	"sync"

	"github.com/2389/coven-bot/internal/chat"
	"github.com/2389/coven-bot/internal/event"
	"github.com/2389/coven-bot/internal/pattern"
)

// Handler handles an event routed to it. data carries the key it was
// registered under plus the payload or pattern match.
type Handler func(ctx context.Context, evt *event.Event, c *chat.Chat, data event.Data) error

type hearing struct {
	matcher *pattern.Matcher
	handler Handler
}

// Router routes events to handlers registered by type key or text pattern.
type Router struct {
	logger *slog.Logger

	mu    sync.RWMutex
	on    map[event.Type][]Handler
	hears []hearing
}

// New creates an empty Router.
func New(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		logger: logger.With("component", "router"),
		on:     make(map[event.Type][]Handler),
	}
}

// On registers h for events answering to t. t may be a compound key such
// as "postback:BUY" or "quick_reply:RED".
func (r *Router) On(t event.Type, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.on[t] = append(r.on[t], h)
}

// Hear registers h for text messages matching matcher. See pattern.Compile
// for the accepted shapes.
func (r *Router) Hear(matcher any, h Handler) error {
	m, err := pattern.Compile(matcher)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hears = append(r.hears, hearing{matcher: m, handler: h})
	return nil
}

// MustHear is like Hear but panics on an invalid matcher.
func (r *Router) MustHear(matcher any, h Handler) {
	if err := r.Hear(matcher, h); err != nil {
		panic(err)
	}
}

// Dispatch runs every handler registered for the event's keys, then the
// first hear handler whose pattern matches a message's text. It reports
// whether any handler ran. The first handler error stops the dispatch.
func (r *Router) Dispatch(ctx context.Context, evt *event.Event, c *chat.Chat) (bool, error) {
	type call struct {
		key event.Type
		h   Handler
	}

	r.mu.RLock()
	var calls []call
	for _, key := range evt.Keys() {
		for _, h := range r.on[key] {
			calls = append(calls, call{key: key, h: h})
		}
	}
	hears := r.hears
	r.mu.RUnlock()

	for _, cl := range calls {
		if err := cl.h(ctx, evt, c, evt.DataFor(cl.key)); err != nil {
			return true, &chat.CallbackError{Role: chat.RoleOn, Type: cl.key, Err: err}
		}
	}

	heard := false
	if evt.IsAnswer() {
		for _, hr := range hears {
			res, ok := hr.matcher.Match(evt.Text)
			if !ok {
				continue
			}
			heard = true
			data := evt.DataFor(event.TypeMessage)
			data.Keyword = res.Keyword
			data.Match = res.Match
			if err := hr.handler(ctx, evt, c, data); err != nil {
				return true, &chat.CallbackError{Role: chat.RoleHear, Type: event.TypeMessage, Err: err}
			}
			break
		}
	}

	if len(calls) == 0 && !heard {
		r.logger.Debug("no handler for event", "type", evt.Type, "user", c.UserID())
		return false, nil
	}
	return true, nil
}
