// ABOUTME: Raw webhook delivery types as posted by the platform
// ABOUTME: Batch parsing and flattening into ordered messaging items

package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedBatch is returned when a webhook body cannot be decoded.
var ErrMalformedBatch = errors.New("malformed webhook batch")

// Batch is one webhook delivery.
type Batch struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups messaging items for one page.
type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging"`
}

// Messaging is a single raw event.
type Messaging struct {
	Sender         *Party          `json:"sender,omitempty"`
	Recipient      *Party          `json:"recipient,omitempty"`
	Timestamp      int64           `json:"timestamp,omitempty"`
	Message        *RawMessage     `json:"message,omitempty"`
	Postback       *Postback       `json:"postback,omitempty"`
	Delivery       *Delivery       `json:"delivery,omitempty"`
	Read           *Read           `json:"read,omitempty"`
	Optin          *Optin          `json:"optin,omitempty"`
	Referral       *Referral       `json:"referral,omitempty"`
	AccountLinking *AccountLinking `json:"account_linking,omitempty"`
}

// Party is the sender or recipient of a messaging item.
type Party struct {
	ID      string `json:"id,omitempty"`
	UserRef string `json:"user_ref,omitempty"`
}

// RawMessage is the message object of a messaging item.
type RawMessage struct {
	MID         string          `json:"mid,omitempty"`
	Text        string          `json:"text,omitempty"`
	IsEcho      bool            `json:"is_echo,omitempty"`
	AppID       int64           `json:"app_id,omitempty"`
	QuickReply  *QuickReplyTap  `json:"quick_reply,omitempty"`
	Attachments []RawAttachment `json:"attachments,omitempty"`
}

// QuickReplyTap carries the payload of a tapped quick reply.
type QuickReplyTap struct {
	Payload string `json:"payload"`
}

// RawAttachment is an attachment on an inbound message.
type RawAttachment struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// URL returns the attachment URL, if its payload carries one.
func (a RawAttachment) URL() string {
	var p struct {
		URL string `json:"url"`
	}
	if len(a.Payload) == 0 || json.Unmarshal(a.Payload, &p) != nil {
		return ""
	}
	return p.URL
}

// Postback is a button tap.
type Postback struct {
	Title    string    `json:"title,omitempty"`
	Payload  string    `json:"payload,omitempty"`
	Referral *Referral `json:"referral,omitempty"`
}

// Delivery confirms messages reached the user.
type Delivery struct {
	MIDs      []string `json:"mids,omitempty"`
	Watermark int64    `json:"watermark"`
}

// Read confirms the user read everything up to the watermark.
type Read struct {
	Watermark int64 `json:"watermark"`
}

// Optin is a plugin authentication.
type Optin struct {
	Ref     string `json:"ref,omitempty"`
	UserRef string `json:"user_ref,omitempty"`
}

// Referral describes how the user reached the page.
type Referral struct {
	Ref    string `json:"ref,omitempty"`
	Source string `json:"source,omitempty"`
	Type   string `json:"type,omitempty"`
	AdID   string `json:"ad_id,omitempty"`
}

// AccountLinking reports a linking or unlinking.
type AccountLinking struct {
	Status            string `json:"status"`
	AuthorizationCode string `json:"authorization_code,omitempty"`
}

// Parse decodes a webhook body.
func Parse(body []byte) (*Batch, error) {
	var b Batch
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}
	return &b, nil
}

// Items returns every messaging item of the batch in delivery order.
func (b *Batch) Items() []Messaging {
	var out []Messaging
	for _, e := range b.Entry {
		out = append(out, e.Messaging...)
	}
	return out
}
