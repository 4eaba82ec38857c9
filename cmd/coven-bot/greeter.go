// ABOUTME: Built-in greeter module served by coven-bot
// ABOUTME: Greets users, answers the get started button and runs a short onboarding conversation

package main

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/2389/coven-bot/internal/bot"
	"github.com/2389/coven-bot/internal/chat"
	"github.com/2389/coven-bot/internal/event"
	"github.com/2389/coven-bot/internal/message"
	"github.com/2389/coven-bot/internal/pattern"
)

var greetings = []any{"hello", "hi", "hey", regexp.MustCompile(`(?i)^good (morning|evening)`)}

var foods = []string{"Pizza", "Tacos", "Ramen"}

func menuButtons() []message.Button {
	return message.PostbackButtons("Start over", "Help")
}

// newGreeter returns the module of handlers coven-bot serves out of the box.
func newGreeter(logger *slog.Logger) func(*bot.Bot) {
	g := &greeter{logger: logger.With("component", "greeter")}
	return g.register
}

type greeter struct {
	logger *slog.Logger
}

func (g *greeter) register(b *bot.Bot) {
	b.MustHear(greetings, func(ctx context.Context, evt *event.Event, c *chat.Chat, data event.Data) error {
		_, err := c.Say(ctx, message.Text("Hello, human!"))
		return err
	})

	b.MustHear("help", sayHelp)
	b.On(event.TypePostback.WithPayload(message.ButtonPayload("Help")), sayHelp)

	b.On(event.TypePostback.WithPayload(bot.GetStartedPayload), g.onboard)
	b.On(event.TypePostback.WithPayload(message.ButtonPayload("Start over")), g.onboard)
	b.MustHear("start", g.onboard)
}

func sayHelp(ctx context.Context, evt *event.Event, c *chat.Chat, data event.Data) error {
	_, err := c.Say(ctx, message.Texts{
		"Say hello and I'll say hello back.",
		"Say start to tell me about yourself.",
	})
	return err
}

// onboard asks for a name and a favorite food, then sums up.
func (g *greeter) onboard(ctx context.Context, evt *event.Event, c *chat.Chat, data event.Data) error {
	_, err := c.Conversation(ctx, func(ctx context.Context, convo *chat.Conversation) error {
		convo.OnEnd(func(convo *chat.Conversation) {
			name, _ := convo.Get("name").(string)
			food, _ := convo.Get("food").(string)
			if name == "" || food == "" {
				return
			}
			summary := message.Text(fmt.Sprintf("Nice to meet you %s. %s it is!", name, food))
			if _, err := convo.Say(context.WithoutCancel(ctx), summary); err != nil {
				g.logger.Error("sending onboarding summary", "user", convo.UserID(), "conversation", convo.ID(), "error", err)
			}
		})
		return convo.Ask(ctx, message.Text("What's your name?"), askFood)
	})
	return err
}

func askFood(ctx context.Context, evt *event.Event, convo *chat.Conversation, data event.Data) error {
	convo.Set("name", evt.Text)
	question := message.QuickReplies{
		Text:    "What's your favorite food?",
		Replies: message.Replies(foods...),
	}
	return convo.Ask(ctx, question, func(ctx context.Context, evt *event.Event, convo *chat.Conversation, data event.Data) error {
		convo.Set("food", evt.Text)
		convo.End()
		return nil
	}, chat.WithPatternHandler(pattern.MustCompile("help"), func(ctx context.Context, evt *event.Event, convo *chat.Conversation, data event.Data) error {
		_, err := convo.Say(ctx, message.Text("Tap one of the options or type your own."))
		return err
	}))
}
