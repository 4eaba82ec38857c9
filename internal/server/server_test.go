// ABOUTME: Tests for the HTTP server lifecycle
// ABOUTME: Runs on a loopback TCP listener and checks health, webhook routing and shutdown

package server

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-bot/internal/config"
	"github.com/2389/coven-bot/internal/event"
)

type countingBot struct {
	mu    sync.Mutex
	count int
}

func (c *countingBot) HandleBatch(ctx context.Context, batch *event.Batch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{HTTPAddr: "127.0.0.1:0", ShutdownTimeout: time.Second},
		Messenger: config.MessengerConfig{PageToken: "token", VerifyToken: "verify"},
		Webhook: config.WebhookConfig{
			Path:          "/webhook",
			HandleTimeout: time.Second,
			Dedupe:        config.DedupeConfig{Enabled: true, TTL: time.Minute, MaxSize: 100},
		},
	}
}

func startServer(t *testing.T, bot *countingBot) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	s, err := New(testConfig(), bot, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-s.Ready():
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not become ready")
	}
	return "http://" + s.Addr().String(), cancel, done
}

func TestNew_RequiresBot(t *testing.T) {
	_, err := New(testConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrNoBot)
}

func TestServer_ServesAndShutsDown(t *testing.T) {
	bot := &countingBot{}
	base, cancel, done := startServer(t, bot)

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get(base + "/webhook?hub.mode=subscribe&hub.verify_token=verify&hub.challenge=abc")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "abc", string(body))

	payload := `{"object":"page","entry":[{"id":"p","time":1,"messaging":[{"sender":{"id":"u"},"recipient":{"id":"p"},"timestamp":1,"message":{"mid":"m","text":"hi"}}]}]}`
	resp, err = http.Post(base+"/webhook", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	bot.mu.Lock()
	defer bot.mu.Unlock()
	assert.Equal(t, 1, bot.count, "background handling finished before Run returned")
}

func TestServer_ListenFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Server.HTTPAddr = "256.0.0.1:bad"
	s, err := New(cfg, &countingBot{}, nil)
	require.NoError(t, err)

	err = s.Run(context.Background())
	assert.ErrorContains(t, err, "listening on HTTP address")
}

func TestResolveTailscaleAuthKey(t *testing.T) {
	t.Setenv("TS_AUTHKEY", "")
	_, err := resolveTailscaleAuthKey("")
	assert.Error(t, err)

	key, err := resolveTailscaleAuthKey("tskey-config")
	require.NoError(t, err)
	assert.Equal(t, "tskey-config", key)

	t.Setenv("TS_AUTHKEY", "tskey-env")
	key, err = resolveTailscaleAuthKey("")
	require.NoError(t, err)
	assert.Equal(t, "tskey-env", key)
}

func TestResolveTailscaleStateDir(t *testing.T) {
	dir, err := resolveTailscaleStateDir("/var/lib/coven-bot/ts")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/coven-bot/ts", dir)

	dir, err = resolveTailscaleStateDir("")
	require.NoError(t, err)
	assert.Contains(t, dir, "coven-bot")
}
