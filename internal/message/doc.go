// Package message defines the outbound message shapes a bot can send and the
// composed payload handed to a transport.
//
// # Message Variants
//
// Message is a closed set of shapes. Only the types in this package
// implement it:
//
//   - Text: a plain text message
//   - Texts: several text messages sent one after another
//   - QuickReplies: text with quick reply chips
//   - Buttons: a button template
//   - List: a list template (elements plus footer buttons)
//   - Cards: a generic template (horizontal carousel)
//   - Template: a raw template payload passed through untouched
//   - Attachment: an image, audio, video or file by URL
//
// Compose turns a Message into one or more Payloads. Plain string quick
// replies and buttons get generated payloads (see ReplyPayload and
// ButtonPayload) so handlers can route on them.
//
// # Wire Types
//
// Payload, QuickReply, Button and Element carry the JSON tags of the Send
// API message object. Recipient, Action, Ack and Profile cover the rest of
// the transport surface.
package message
