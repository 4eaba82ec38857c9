// ABOUTME: Messenger profile setup for the page behind the bot
// ABOUTME: Greeting text, get started button and persistent menu

package bot

import (
	"context"
	"errors"

	"github.com/2389/coven-bot/internal/event"
	"github.com/2389/coven-bot/internal/message"
	"github.com/2389/coven-bot/internal/router"
)

// GetStartedPayload is the postback payload of the get started button.
const GetStartedPayload = "COVEN_GET_STARTED"

// ErrProfileUnsupported is returned when the transport cannot configure the
// messenger profile.
var ErrProfileUnsupported = errors.New("transport does not support messenger profile")

// ProfileConfigurer sets and deletes messenger profile fields.
type ProfileConfigurer interface {
	SetMessengerProfile(ctx context.Context, fields map[string]any) error
	DeleteMessengerProfile(ctx context.Context, fields []string) error
}

type localized struct {
	Locale string `json:"locale"`
	Text   string `json:"text"`
}

type menu struct {
	Locale                string           `json:"locale"`
	ComposerInputDisabled bool             `json:"composer_input_disabled"`
	CallToActions         []message.Button `json:"call_to_actions"`
}

func (b *Bot) profileConfigurer() (ProfileConfigurer, error) {
	if b.profiles == nil {
		return nil, ErrProfileUnsupported
	}
	return b.profiles, nil
}

// SetGreetingText sets the greeting shown before the first interaction.
func (b *Bot) SetGreetingText(ctx context.Context, text string) error {
	p, err := b.profileConfigurer()
	if err != nil {
		return err
	}
	return p.SetMessengerProfile(ctx, map[string]any{
		"greeting": []localized{{Locale: "default", Text: text}},
	})
}

// SetGetStartedButton shows the get started button. A non-nil handler is
// registered for its postback.
func (b *Bot) SetGetStartedButton(ctx context.Context, handler router.Handler) error {
	p, err := b.profileConfigurer()
	if err != nil {
		return err
	}
	if handler != nil {
		b.On(event.TypePostback.WithPayload(GetStartedPayload), handler)
	}
	return p.SetMessengerProfile(ctx, map[string]any{
		"get_started": map[string]string{"payload": GetStartedPayload},
	})
}

// DeleteGetStartedButton removes the get started button.
func (b *Bot) DeleteGetStartedButton(ctx context.Context) error {
	p, err := b.profileConfigurer()
	if err != nil {
		return err
	}
	return p.DeleteMessengerProfile(ctx, []string{"get_started"})
}

// SetPersistentMenu sets the persistent menu. Buttons without a type become
// postbacks with generated payloads.
func (b *Bot) SetPersistentMenu(ctx context.Context, buttons []message.Button, disableInput bool) error {
	p, err := b.profileConfigurer()
	if err != nil {
		return err
	}
	return p.SetMessengerProfile(ctx, map[string]any{
		"persistent_menu": []menu{{
			Locale:                "default",
			ComposerInputDisabled: disableInput,
			CallToActions:         message.NormalizeButtons(buttons),
		}},
	})
}

// DeletePersistentMenu removes the persistent menu.
func (b *Bot) DeletePersistentMenu(ctx context.Context) error {
	p, err := b.profileConfigurer()
	if err != nil {
		return err
	}
	return p.DeleteMessengerProfile(ctx, []string{"persistent_menu"})
}
