// ABOUTME: Graph API HTTP client implementing the chat transport
// ABOUTME: Send API, sender actions, profiles and messenger profile with rate limiting

package graph

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/2389/coven-bot/internal/message"
)

const (
	DefaultBaseURL    = "https://graph.facebook.com"
	DefaultAPIVersion = "v19.0"
	defaultTimeout    = 30 * time.Second
)

// Config configures a Client.
type Config struct {
	PageToken  string
	AppSecret  string // optional, enables appsecret_proof
	BaseURL    string
	APIVersion string

	// RateLimit is the sustained request rate per second; zero disables it.
	RateLimit float64
	Burst     int

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client calls the Graph API on behalf of one page.
type Client struct {
	token   string
	proof   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.PageToken == "" {
		return nil, ErrNoPageToken
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	version := cfg.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		token:   cfg.PageToken,
		baseURL: base + "/" + version,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With("component", "graph"),
	}
	if cfg.AppSecret != "" {
		c.proof = appSecretProof(cfg.PageToken, cfg.AppSecret)
	}
	return c, nil
}

func appSecretProof(token, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

type sendRequest struct {
	Recipient     message.Recipient `json:"recipient"`
	MessagingType string            `json:"messaging_type,omitempty"`
	Message       *message.Payload  `json:"message,omitempty"`
	SenderAction  message.Action    `json:"sender_action,omitempty"`
}

// Send posts a message to the Send API.
func (c *Client) Send(ctx context.Context, to message.Recipient, payload message.Payload) (*message.Ack, error) {
	req := sendRequest{Recipient: to, MessagingType: "RESPONSE", Message: &payload}
	var ack message.Ack
	if err := c.do(ctx, http.MethodPost, "/me/messages", nil, req, &ack); err != nil {
		return nil, err
	}
	c.logger.Debug("message sent", "recipient", to.Key(), "message_id", ack.MessageID)
	return &ack, nil
}

// SendAction posts a sender action to the Send API.
func (c *Client) SendAction(ctx context.Context, to message.Recipient, action message.Action) (*message.Ack, error) {
	req := sendRequest{Recipient: to, SenderAction: action}
	var ack message.Ack
	if err := c.do(ctx, http.MethodPost, "/me/messages", nil, req, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// GetProfile fetches the given profile fields of a user.
func (c *Client) GetProfile(ctx context.Context, userID string, fields []string) (*message.Profile, error) {
	q := url.Values{}
	q.Set("fields", strings.Join(fields, ","))
	var p message.Profile
	if err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(userID), q, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetMessengerProfile sets messenger profile fields of the page.
func (c *Client) SetMessengerProfile(ctx context.Context, fields map[string]any) error {
	return c.do(ctx, http.MethodPost, "/me/messenger_profile", nil, fields, nil)
}

// DeleteMessengerProfile removes messenger profile fields of the page.
func (c *Client) DeleteMessengerProfile(ctx context.Context, fields []string) error {
	body := map[string][]string{"fields": fields}
	return c.do(ctx, http.MethodDelete, "/me/messenger_profile", nil, body, nil)
}

// Ping checks that the token is accepted by fetching the page id.
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("fields", "id")
	return c.do(ctx, http.MethodGet, "/me", q, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("access_token", c.token)
	if c.proof != "" {
		query.Set("appsecret_proof", c.proof)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query.Encode(), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		gerr := decodeError(resp.StatusCode, data)
		c.logger.Warn("graph api call failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"code", gerr.Code,
			"trace", gerr.TraceID,
		)
		return gerr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
