// ABOUTME: Normalized inbound events and the data handed to callbacks
// ABOUTME: Maps raw messaging items to a primary type plus registration keys

package event

import (
	"time"

	"github.com/2389/coven-bot/internal/message"
)

// Type is an event kind or a compound registration key such as "postback:BUY".
type Type string

const (
	TypeMessage        Type = "message"
	TypeQuickReply     Type = "quick_reply"
	TypeAttachment     Type = "attachment"
	TypePostback       Type = "postback"
	TypeDelivery       Type = "delivery"
	TypeRead           Type = "read"
	TypeAuthentication Type = "authentication"
	TypeReferral       Type = "referral"
	TypeAccountLinking Type = "account_linking"
)

// WithPayload returns the compound key for a payload, e.g. postback:BUY.
func (t Type) WithPayload(payload string) Type {
	return t + ":" + Type(payload)
}

// Event is a normalized inbound event.
type Event struct {
	Type      Type
	Sender    message.Recipient
	PageID    string
	Timestamp time.Time

	MessageID   string
	Text        string
	IsEcho      bool
	QuickReply  string
	Attachments []RawAttachment

	Postback      string
	PostbackTitle string

	Delivery *Delivery
	Read     *Read
	Referral *Referral
	Optin    *Optin
	Linking  *AccountLinking

	Raw Messaging
}

// Data is the structured data handed to callbacks with an event.
type Data struct {
	Type    Type     // the key the callback was registered for
	Payload string   // postback or quick reply payload
	Keyword string   // the exact string a hear registration matched
	Match   []string // submatches when a regular expression matched
}

// Normalize maps a raw messaging item to an event. It returns false for
// items of an unknown kind.
func Normalize(m Messaging) (*Event, bool) {
	e := &Event{Raw: m}
	if m.Sender != nil {
		e.Sender = message.Recipient{ID: m.Sender.ID, UserRef: m.Sender.UserRef}
	}
	if m.Recipient != nil {
		e.PageID = m.Recipient.ID
	}
	if m.Timestamp > 0 {
		e.Timestamp = time.UnixMilli(m.Timestamp)
	}

	switch {
	case m.Optin != nil:
		e.Type = TypeAuthentication
		e.Optin = m.Optin
		if e.Sender.IsZero() {
			e.Sender = message.Recipient{UserRef: m.Optin.UserRef}
		}
	case m.Message != nil && m.Message.Text != "":
		e.Type = TypeMessage
		fillMessage(e, m.Message)
	case m.Message != nil && len(m.Message.Attachments) > 0:
		e.Type = TypeAttachment
		fillMessage(e, m.Message)
	case m.Postback != nil:
		e.Type = TypePostback
		e.Postback = m.Postback.Payload
		e.PostbackTitle = m.Postback.Title
		e.Referral = m.Postback.Referral
	case m.Delivery != nil:
		e.Type = TypeDelivery
		e.Delivery = m.Delivery
	case m.Read != nil:
		e.Type = TypeRead
		e.Read = m.Read
	case m.AccountLinking != nil:
		e.Type = TypeAccountLinking
		e.Linking = m.AccountLinking
	case m.Referral != nil:
		e.Type = TypeReferral
		e.Referral = m.Referral
	default:
		return nil, false
	}
	return e, true
}

func fillMessage(e *Event, m *RawMessage) {
	e.MessageID = m.MID
	e.Text = m.Text
	e.IsEcho = m.IsEcho
	e.Attachments = m.Attachments
	if m.QuickReply != nil {
		e.QuickReply = m.QuickReply.Payload
	}
}

// Keys lists the registration keys this event answers to, most specific first
// within each kind.
func (e *Event) Keys() []Type {
	switch e.Type {
	case TypeMessage:
		if e.QuickReply != "" {
			return []Type{TypeMessage, TypeQuickReply.WithPayload(e.QuickReply), TypeQuickReply}
		}
		return []Type{TypeMessage}
	case TypePostback:
		if e.Postback != "" {
			return []Type{TypePostback.WithPayload(e.Postback), TypePostback}
		}
		return []Type{TypePostback}
	default:
		return []Type{e.Type}
	}
}

// Is reports whether the event answers to the given key.
func (e *Event) Is(t Type) bool {
	for _, k := range e.Keys() {
		if k == t {
			return true
		}
	}
	return false
}

// IsAnswer reports whether the event is a text message, the only event that
// answers a conversation question.
func (e *Event) IsAnswer() bool {
	return e.Type == TypeMessage && e.Text != ""
}

// Payload returns the postback or quick reply payload, if any.
func (e *Event) Payload() string {
	if e.Postback != "" {
		return e.Postback
	}
	return e.QuickReply
}

// DataFor builds callback data for a handler registered under key.
func (e *Event) DataFor(key Type) Data {
	return Data{Type: key, Payload: e.Payload()}
}

// Events normalizes every item of the batch, in order. Unknown items are
// returned separately so callers can log them.
func (b *Batch) Events() (events []*Event, unknown []Messaging) {
	for _, m := range b.Items() {
		if e, ok := Normalize(m); ok {
			events = append(events, e)
			continue
		}
		unknown = append(unknown, m)
	}
	return events, unknown
}
