// ABOUTME: Tests for event routing
// ABOUTME: Covers type keys, compound payload keys, hear ordering and handler errors

package router

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-bot/internal/chat"
	"github.com/2389/coven-bot/internal/event"
	"github.com/2389/coven-bot/internal/message"
	"github.com/2389/coven-bot/internal/pattern"
)

func testChat() *chat.Chat {
	return chat.New(message.Recipient{ID: "user-1"}, chat.Config{})
}

func recordInto(got *[]string, label string) Handler {
	return func(ctx context.Context, evt *event.Event, c *chat.Chat, data event.Data) error {
		*got = append(*got, label)
		return nil
	}
}

func TestDispatch_PostbackHandlersInOrder(t *testing.T) {
	r := New(nil)
	var got []string
	r.On(event.TypePostback, recordInto(&got, "generic-1"))
	r.On("postback:BUY", recordInto(&got, "specific"))
	r.On(event.TypePostback, recordInto(&got, "generic-2"))
	r.On("postback:SELL", recordInto(&got, "other"))

	handled, err := r.Dispatch(context.Background(), &event.Event{Type: event.TypePostback, Postback: "BUY"}, testChat())
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"specific", "generic-1", "generic-2"}, got)
}

func TestDispatch_QuickReplyKeys(t *testing.T) {
	r := New(nil)
	var got []string
	var data event.Data
	r.On(event.TypeMessage, recordInto(&got, "message"))
	r.On(event.TypeQuickReply, recordInto(&got, "quick_reply"))
	r.On("quick_reply:RED", func(ctx context.Context, evt *event.Event, c *chat.Chat, d event.Data) error {
		data = d
		got = append(got, "red")
		return nil
	})

	evt := &event.Event{Type: event.TypeMessage, Text: "Red", QuickReply: "RED"}
	_, err := r.Dispatch(context.Background(), evt, testChat())
	require.NoError(t, err)
	assert.Equal(t, []string{"message", "red", "quick_reply"}, got)
	assert.Equal(t, event.Type("quick_reply:RED"), data.Type)
	assert.Equal(t, "RED", data.Payload)
}

func TestDispatch_QuickReplyTapAlsoReachesHear(t *testing.T) {
	r := New(nil)
	var got []string
	r.On(event.TypeQuickReply, recordInto(&got, "quick_reply"))
	r.MustHear("red", recordInto(&got, "hear"))

	evt := &event.Event{Type: event.TypeMessage, Text: "Red", QuickReply: "RED"}
	handled, err := r.Dispatch(context.Background(), evt, testChat())
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"quick_reply", "hear"}, got, "a tap carries its title as text")
}

func TestDispatch_HearFirstMatchOnly(t *testing.T) {
	r := New(nil)
	var got []string
	r.MustHear([]any{"hello", regexp.MustCompile(`^hi\b`)}, recordInto(&got, "greeting"))
	r.MustHear("hello", recordInto(&got, "second"))

	_, err := r.Dispatch(context.Background(), &event.Event{Type: event.TypeMessage, Text: "HELLO"}, testChat())
	require.NoError(t, err)
	assert.Equal(t, []string{"greeting"}, got)
}

func TestDispatch_HearData(t *testing.T) {
	r := New(nil)
	var data event.Data
	r.MustHear(regexp.MustCompile(`^order (\d+)$`), func(ctx context.Context, evt *event.Event, c *chat.Chat, d event.Data) error {
		data = d
		return nil
	})

	_, err := r.Dispatch(context.Background(), &event.Event{Type: event.TypeMessage, Text: "order 42"}, testChat())
	require.NoError(t, err)
	assert.Equal(t, []string{"order 42", "42"}, data.Match)
	assert.Empty(t, data.Keyword)
}

func TestDispatch_OnBeforeHear(t *testing.T) {
	r := New(nil)
	var got []string
	r.MustHear("hello", recordInto(&got, "hear"))
	r.On(event.TypeMessage, recordInto(&got, "on"))

	_, err := r.Dispatch(context.Background(), &event.Event{Type: event.TypeMessage, Text: "hello"}, testChat())
	require.NoError(t, err)
	assert.Equal(t, []string{"on", "hear"}, got)
}

func TestDispatch_HearIgnoresNonText(t *testing.T) {
	r := New(nil)
	var got []string
	r.MustHear(regexp.MustCompile(`.*`), recordInto(&got, "hear"))

	handled, err := r.Dispatch(context.Background(), &event.Event{Type: event.TypeAttachment}, testChat())
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, got)
}

func TestDispatch_Unmatched(t *testing.T) {
	r := New(nil)
	handled, err := r.Dispatch(context.Background(), &event.Event{Type: event.TypeRead}, testChat())
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestDispatch_HandlerErrorStops(t *testing.T) {
	r := New(nil)
	boom := errors.New("boom")
	var got []string
	r.On(event.TypePostback, func(context.Context, *event.Event, *chat.Chat, event.Data) error { return boom })
	r.On(event.TypePostback, recordInto(&got, "after"))

	_, err := r.Dispatch(context.Background(), &event.Event{Type: event.TypePostback, Postback: "X"}, testChat())
	require.ErrorIs(t, err, boom)

	var cbErr *chat.CallbackError
	require.ErrorAs(t, err, &cbErr)
	assert.Equal(t, chat.RoleOn, cbErr.Role)
	assert.Equal(t, event.TypePostback, cbErr.Type)
	assert.Empty(t, got)
}

func TestHear_InvalidMatcher(t *testing.T) {
	r := New(nil)
	noop := func(context.Context, *event.Event, *chat.Chat, event.Data) error { return nil }

	err := r.Hear(42, noop)
	var invalid *pattern.InvalidMatcherError
	require.ErrorAs(t, err, &invalid)

	assert.Panics(t, func() { r.MustHear([]any{[]string{"nested"}}, noop) })
}
