// ABOUTME: Closed set of outbound message shapes accepted by Say
// ABOUTME: Each variant composes into one or more transport payloads

package message

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidMessage is returned when a message has no sendable content.
var ErrInvalidMessage = errors.New("invalid message")

// Generated payload prefixes for quick replies and buttons given by title only.
const (
	QuickReplyPrefix = "COVEN_QR_"
	ButtonPrefix     = "COVEN_BUTTON_"
)

// Message is a sendable message shape. The interface is sealed.
type Message interface {
	isMessage()
}

// Text is a plain text message.
type Text string

// Texts is a sequence of text messages sent in order.
type Texts []string

// QuickReplies is a text message with quick reply chips.
type QuickReplies struct {
	Text    string
	Replies []QuickReply
}

// Buttons is a button template.
type Buttons struct {
	Text    string
	Buttons []Button
}

// List is a list template.
type List struct {
	Elements []Element
	Buttons  []Button
}

// Cards is a generic template.
type Cards struct {
	Cards []Element
}

// Template passes a raw template payload through unchanged.
type Template struct {
	Payload any
}

// Attachment is a media attachment referenced by URL.
type Attachment struct {
	Type    string // image, audio, video, file
	URL     string
	Replies []QuickReply
}

func (Text) isMessage()         {}
func (Texts) isMessage()        {}
func (QuickReplies) isMessage() {}
func (Buttons) isMessage()      {}
func (List) isMessage()         {}
func (Cards) isMessage()        {}
func (Template) isMessage()     {}
func (Attachment) isMessage()   {}

// QuickReply is a quick reply chip.
type QuickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title,omitempty"`
	Payload     string `json:"payload,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Button is a template button.
type Button struct {
	Type    string `json:"type"`
	Title   string `json:"title,omitempty"`
	Payload string `json:"payload,omitempty"`
	URL     string `json:"url,omitempty"`
}

// DefaultAction is the tap target of a template element.
type DefaultAction struct {
	Type                string `json:"type"`
	URL                 string `json:"url"`
	WebviewHeightRatio  string `json:"webview_height_ratio,omitempty"`
	MessengerExtensions bool   `json:"messenger_extensions,omitempty"`
}

// Element is one card of a generic or list template.
type Element struct {
	Title         string         `json:"title"`
	Subtitle      string         `json:"subtitle,omitempty"`
	ImageURL      string         `json:"image_url,omitempty"`
	DefaultAction *DefaultAction `json:"default_action,omitempty"`
	Buttons       []Button       `json:"buttons,omitempty"`
}

// Replies builds text quick replies from titles.
func Replies(titles ...string) []QuickReply {
	out := make([]QuickReply, 0, len(titles))
	for _, t := range titles {
		out = append(out, QuickReply{ContentType: "text", Title: t})
	}
	return out
}

// PostbackButtons builds postback buttons from titles.
func PostbackButtons(titles ...string) []Button {
	out := make([]Button, 0, len(titles))
	for _, t := range titles {
		out = append(out, Button{Type: "postback", Title: t})
	}
	return out
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Normalize strips everything but letters and digits and upper-cases the rest.
func Normalize(s string) string {
	return strings.ToUpper(nonAlnum.ReplaceAllString(s, ""))
}

// ReplyPayload is the payload generated for a quick reply with the given title.
func ReplyPayload(title string) string {
	return QuickReplyPrefix + Normalize(title)
}

// ButtonPayload is the payload generated for a postback button with the given title.
func ButtonPayload(title string) string {
	return ButtonPrefix + Normalize(title)
}
