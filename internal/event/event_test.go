// ABOUTME: Tests for webhook batch parsing and event normalization
// ABOUTME: Covers ordering, compound keys, opt-ins and unknown items

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBatch = `{
  "object": "page",
  "entry": [
    {
      "id": "PAGE",
      "time": 1700000000000,
      "messaging": [
        {"sender": {"id": "U1"}, "recipient": {"id": "PAGE"}, "timestamp": 1700000000001,
         "message": {"mid": "m1", "text": "hi"}},
        {"sender": {"id": "U1"}, "recipient": {"id": "PAGE"},
         "message": {"mid": "m2", "text": "Small", "quick_reply": {"payload": "SIZE_S"}}}
      ]
    },
    {
      "id": "PAGE",
      "time": 1700000000002,
      "messaging": [
        {"sender": {"id": "U2"}, "recipient": {"id": "PAGE"},
         "postback": {"title": "Buy", "payload": "BUY"}},
        {"sender": {"id": "U2"}, "recipient": {"id": "PAGE"},
         "message": {"mid": "m3", "attachments": [{"type": "image", "payload": {"url": "https://example.com/a.png"}}]}},
        {"sender": {"id": "U2"}, "recipient": {"id": "PAGE"}, "something_new": {}}
      ]
    }
  ]
}`

func TestParse_EventsInDeliveryOrder(t *testing.T) {
	batch, err := Parse([]byte(sampleBatch))
	require.NoError(t, err)

	events, unknown := batch.Events()
	require.Len(t, events, 4)
	assert.Len(t, unknown, 1)

	assert.Equal(t, TypeMessage, events[0].Type)
	assert.Equal(t, "hi", events[0].Text)
	assert.Equal(t, "U1", events[0].Sender.ID)
	assert.Equal(t, "PAGE", events[0].PageID)
	assert.Equal(t, int64(1700000000001), events[0].Timestamp.UnixMilli())

	assert.Equal(t, TypeMessage, events[1].Type)
	assert.Equal(t, "SIZE_S", events[1].QuickReply)

	assert.Equal(t, TypePostback, events[2].Type)
	assert.Equal(t, "BUY", events[2].Postback)

	assert.Equal(t, TypeAttachment, events[3].Type)
	require.Len(t, events[3].Attachments, 1)
	assert.Equal(t, "https://example.com/a.png", events[3].Attachments[0].URL())
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`{"entry": [`))
	assert.ErrorIs(t, err, ErrMalformedBatch)
}

func TestEvent_Keys(t *testing.T) {
	qr := &Event{Type: TypeMessage, Text: "Small", QuickReply: "SIZE_S"}
	assert.Equal(t, []Type{"message", "quick_reply:SIZE_S", "quick_reply"}, qr.Keys())
	assert.True(t, qr.Is(TypeQuickReply))
	assert.True(t, qr.IsAnswer())

	pb := &Event{Type: TypePostback, Postback: "BUY"}
	assert.Equal(t, []Type{"postback:BUY", "postback"}, pb.Keys())
	assert.False(t, pb.IsAnswer())
	assert.Equal(t, "BUY", pb.DataFor(TypePostback).Payload)

	att := &Event{Type: TypeAttachment}
	assert.Equal(t, []Type{"attachment"}, att.Keys())
	assert.False(t, att.IsAnswer())
}

func TestNormalize_OptinWithoutSender(t *testing.T) {
	e, ok := Normalize(Messaging{
		Recipient: &Party{ID: "PAGE"},
		Optin:     &Optin{Ref: "checkout", UserRef: "ref-1"},
	})
	require.True(t, ok)
	assert.Equal(t, TypeAuthentication, e.Type)
	assert.Equal(t, "ref-1", e.Sender.UserRef)
	assert.Equal(t, "ref:ref-1", e.Sender.Key())
}

func TestNormalize_ReceiptsAndReferrals(t *testing.T) {
	sender := &Party{ID: "U1"}

	d, ok := Normalize(Messaging{Sender: sender, Delivery: &Delivery{MIDs: []string{"m1"}, Watermark: 10}})
	require.True(t, ok)
	assert.Equal(t, TypeDelivery, d.Type)
	assert.Equal(t, []string{"m1"}, d.Delivery.MIDs)

	r, ok := Normalize(Messaging{Sender: sender, Read: &Read{Watermark: 20}})
	require.True(t, ok)
	assert.Equal(t, TypeRead, r.Type)

	ref, ok := Normalize(Messaging{Sender: sender, Referral: &Referral{Ref: "ad", Source: "ADS"}})
	require.True(t, ok)
	assert.Equal(t, TypeReferral, ref.Type)

	al, ok := Normalize(Messaging{Sender: sender, AccountLinking: &AccountLinking{Status: "linked"}})
	require.True(t, ok)
	assert.Equal(t, TypeAccountLinking, al.Type)
}

func TestNormalize_Echo(t *testing.T) {
	e, ok := Normalize(Messaging{
		Sender:  &Party{ID: "PAGE"},
		Message: &RawMessage{MID: "m9", Text: "sent by page", IsEcho: true},
	})
	require.True(t, ok)
	assert.True(t, e.IsEcho)
}
