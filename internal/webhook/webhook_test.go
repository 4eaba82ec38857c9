// ABOUTME: Tests for the webhook handler
// ABOUTME: Covers verification handshake, signature checks, malformed bodies, dedupe and async handling

package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-bot/internal/dedupe"
	"github.com/2389/coven-bot/internal/event"
)

const (
	testSecret = "app-secret"
	testToken  = "verify-me"
	testBody   = `{"object":"page","entry":[{"id":"page","time":1,"messaging":[
		{"sender":{"id":"u1"},"recipient":{"id":"page"},"timestamp":1,"message":{"mid":"m.1","text":"hi"}}
	]}]}`
)

type fakeBot struct {
	mu      sync.Mutex
	batches []*event.Batch
	err     error
}

func (f *fakeBot) HandleBatch(ctx context.Context, batch *event.Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	return f.err
}

func (f *fakeBot) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func newHandler(bot BatchHandler, cfg Config) *Handler {
	if cfg.VerifyToken == "" {
		cfg.VerifyToken = testToken
	}
	return New(bot, cfg)
}

func post(t *testing.T, h http.Handler, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func waitIdle(t *testing.T, h *Handler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.Wait(ctx))
}

func TestVerify(t *testing.T) {
	h := newHandler(&fakeBot{}, Config{})

	tests := []struct {
		name   string
		query  string
		status int
		body   string
	}{
		{"valid", "hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", http.StatusOK, "12345"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=12345", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=12345", http.StatusForbidden, ""},
		{"missing", "", http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestVerify_NoTokenConfigured(t *testing.T) {
	h := New(&fakeBot{}, Config{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=&hub.challenge=1", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEvents_ValidSignature(t *testing.T) {
	bot := &fakeBot{}
	h := newHandler(bot, Config{AppSecret: testSecret})

	rec := post(t, h, testBody, SignatureHeaderValue([]byte(testSecret), []byte(testBody)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EVENT_RECEIVED", rec.Body.String())

	waitIdle(t, h)
	require.Equal(t, 1, bot.count())
	assert.Equal(t, "hi", bot.batches[0].Entry[0].Messaging[0].Message.Text)
}

func TestEvents_BadSignature(t *testing.T) {
	bot := &fakeBot{}
	h := newHandler(bot, Config{AppSecret: testSecret})

	for name, sig := range map[string]string{
		"missing":    "",
		"wrong":      SignatureHeaderValue([]byte("other"), []byte(testBody)),
		"not hex":    "sha256=zzzz",
		"sha1 style": "sha1=abcdef",
	} {
		t.Run(name, func(t *testing.T) {
			rec := post(t, h, testBody, sig)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
	waitIdle(t, h)
	assert.Equal(t, 0, bot.count())
}

func TestEvents_NoSecretSkipsSignature(t *testing.T) {
	bot := &fakeBot{}
	h := newHandler(bot, Config{})

	rec := post(t, h, testBody, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	waitIdle(t, h)
	assert.Equal(t, 1, bot.count())
}

func TestEvents_Malformed(t *testing.T) {
	bot := &fakeBot{}
	h := newHandler(bot, Config{AppSecret: testSecret})

	body := `{"object":`
	rec := post(t, h, body, SignatureHeaderValue([]byte(testSecret), []byte(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	waitIdle(t, h)
	assert.Equal(t, 0, bot.count())
}

func TestEvents_HandlerErrorStillAcknowledged(t *testing.T) {
	bot := &fakeBot{err: errors.New("callback failed")}
	h := newHandler(bot, Config{})

	rec := post(t, h, testBody, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	waitIdle(t, h)
	assert.Equal(t, 1, bot.count())
}

func TestEvents_Dedupe(t *testing.T) {
	bot := &fakeBot{}
	h := newHandler(bot, Config{Dedupe: dedupe.New(dedupe.Config{})})

	post(t, h, testBody, "")
	post(t, h, testBody, "")
	waitIdle(t, h)

	require.Equal(t, 2, bot.count())
	assert.Len(t, bot.batches[0].Items(), 1)
	assert.Empty(t, bot.batches[1].Items(), "redelivered item is dropped")
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHandler(&fakeBot{}, Config{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/webhook", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWait_HonorsContext(t *testing.T) {
	release := make(chan struct{})
	bot := blockingBot(release)
	h := newHandler(bot, Config{})

	post(t, h, testBody, "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Wait(ctx), context.DeadlineExceeded)

	close(release)
	waitIdle(t, h)
}

type blockingBot chan struct{}

func (b blockingBot) HandleBatch(ctx context.Context, batch *event.Batch) error {
	<-b
	return nil
}
