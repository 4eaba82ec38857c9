// ABOUTME: Composed Send API message payloads and the Message to Payload mapping
// ABOUTME: Fills in generated quick reply and button payloads

package message

import "fmt"

// Payload is the message object of a Send API request.
type Payload struct {
	Text         string             `json:"text,omitempty"`
	QuickReplies []QuickReply       `json:"quick_replies,omitempty"`
	Attachment   *AttachmentPayload `json:"attachment,omitempty"`
}

// AttachmentPayload is the attachment object of a message payload.
type AttachmentPayload struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// URLPayload is the payload of a media attachment.
type URLPayload struct {
	URL        string `json:"url"`
	IsReusable bool   `json:"is_reusable,omitempty"`
}

// TemplatePayload is the payload of a template attachment.
type TemplatePayload struct {
	TemplateType     string    `json:"template_type"`
	Text             string    `json:"text,omitempty"`
	Elements         []Element `json:"elements,omitempty"`
	Buttons          []Button  `json:"buttons,omitempty"`
	ImageAspectRatio string    `json:"image_aspect_ratio,omitempty"`
	TopElementStyle  string    `json:"top_element_style,omitempty"`
}

// Style carries template presentation options.
type Style struct {
	ImageAspectRatio string // horizontal or square, generic template only
	TopElementStyle  string // large or compact, list template only
}

// TextPayload composes a text message with optional quick replies.
func TextPayload(text string, replies []QuickReply) Payload {
	return Payload{Text: text, QuickReplies: normalizeReplies(replies)}
}

// ButtonTemplatePayload composes a button template.
func ButtonTemplatePayload(text string, buttons []Button) Payload {
	return TemplatePayloadOf(TemplatePayload{
		TemplateType: "button",
		Text:         text,
		Buttons:      NormalizeButtons(buttons),
	})
}

// GenericTemplatePayload composes a generic template.
func GenericTemplatePayload(elements []Element, style Style) Payload {
	return TemplatePayloadOf(TemplatePayload{
		TemplateType:     "generic",
		Elements:         normalizeElements(elements),
		ImageAspectRatio: style.ImageAspectRatio,
	})
}

// ListTemplatePayload composes a list template.
func ListTemplatePayload(elements []Element, buttons []Button, style Style) Payload {
	top := style.TopElementStyle
	if top == "" {
		top = "large"
	}
	return TemplatePayloadOf(TemplatePayload{
		TemplateType:    "list",
		Elements:        normalizeElements(elements),
		Buttons:         NormalizeButtons(buttons),
		TopElementStyle: top,
	})
}

// TemplatePayloadOf wraps any template payload in a template attachment.
func TemplatePayloadOf(payload any) Payload {
	return Payload{Attachment: &AttachmentPayload{Type: "template", Payload: payload}}
}

// AttachmentURLPayload composes a media attachment with optional quick replies.
func AttachmentURLPayload(kind, url string, replies []QuickReply) Payload {
	return Payload{
		Attachment:   &AttachmentPayload{Type: kind, Payload: URLPayload{URL: url}},
		QuickReplies: normalizeReplies(replies),
	}
}

// Compose maps a message to the payloads that deliver it, in send order.
func Compose(msg Message, style Style) ([]Payload, error) {
	switch m := msg.(type) {
	case Text:
		if m == "" {
			return nil, fmt.Errorf("%w: empty text", ErrInvalidMessage)
		}
		return []Payload{TextPayload(string(m), nil)}, nil
	case Texts:
		if len(m) == 0 {
			return nil, fmt.Errorf("%w: empty text list", ErrInvalidMessage)
		}
		out := make([]Payload, 0, len(m))
		for _, t := range m {
			if t == "" {
				return nil, fmt.Errorf("%w: empty text in list", ErrInvalidMessage)
			}
			out = append(out, TextPayload(t, nil))
		}
		return out, nil
	case QuickReplies:
		if m.Text == "" {
			return nil, fmt.Errorf("%w: quick replies need text", ErrInvalidMessage)
		}
		return []Payload{TextPayload(m.Text, m.Replies)}, nil
	case Buttons:
		if m.Text == "" || len(m.Buttons) == 0 {
			return nil, fmt.Errorf("%w: button template needs text and buttons", ErrInvalidMessage)
		}
		return []Payload{ButtonTemplatePayload(m.Text, m.Buttons)}, nil
	case List:
		if len(m.Elements) == 0 {
			return nil, fmt.Errorf("%w: list template needs elements", ErrInvalidMessage)
		}
		return []Payload{ListTemplatePayload(m.Elements, m.Buttons, style)}, nil
	case Cards:
		if len(m.Cards) == 0 {
			return nil, fmt.Errorf("%w: generic template needs cards", ErrInvalidMessage)
		}
		return []Payload{GenericTemplatePayload(m.Cards, style)}, nil
	case Template:
		if m.Payload == nil {
			return nil, fmt.Errorf("%w: nil template payload", ErrInvalidMessage)
		}
		return []Payload{TemplatePayloadOf(m.Payload)}, nil
	case Attachment:
		if m.Type == "" || m.URL == "" {
			return nil, fmt.Errorf("%w: attachment needs type and url", ErrInvalidMessage)
		}
		return []Payload{AttachmentURLPayload(m.Type, m.URL, m.Replies)}, nil
	case nil:
		return nil, fmt.Errorf("%w: nil message", ErrInvalidMessage)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidMessage, msg)
	}
}

func normalizeReplies(replies []QuickReply) []QuickReply {
	if len(replies) == 0 {
		return nil
	}
	out := make([]QuickReply, len(replies))
	for i, r := range replies {
		if r.ContentType == "" {
			r.ContentType = "text"
		}
		if r.ContentType == "text" && r.Payload == "" {
			r.Payload = ReplyPayload(r.Title)
		}
		out[i] = r
	}
	return out
}

// NormalizeButtons defaults button types to postback and fills missing
// postback payloads.
func NormalizeButtons(buttons []Button) []Button {
	if len(buttons) == 0 {
		return nil
	}
	out := make([]Button, len(buttons))
	for i, b := range buttons {
		if b.Type == "" {
			b.Type = "postback"
		}
		if b.Type == "postback" && b.Payload == "" {
			b.Payload = ButtonPayload(b.Title)
		}
		out[i] = b
	}
	return out
}

func normalizeElements(elements []Element) []Element {
	out := make([]Element, len(elements))
	for i, e := range elements {
		e.Buttons = NormalizeButtons(e.Buttons)
		out[i] = e
	}
	return out
}

// TextOf returns the text a payload displays, if any.
func (p Payload) TextOf() string {
	if p.Text != "" {
		return p.Text
	}
	if p.Attachment != nil {
		if tp, ok := p.Attachment.Payload.(TemplatePayload); ok {
			return tp.Text
		}
	}
	return ""
}
