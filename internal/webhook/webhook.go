// ABOUTME: HTTP handler for webhook verification and signed event intake
// ABOUTME: Acknowledges valid deliveries immediately and handles them in the background

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/2389/coven-bot/internal/dedupe"
	"github.com/2389/coven-bot/internal/event"
)

const (
	// SignatureHeader carries the body signature.
	SignatureHeader = "X-Hub-Signature-256"

	maxBodyBytes          = 1 << 20
	defaultHandleTimeout  = 2 * time.Minute
	acknowledgementBody   = "EVENT_RECEIVED"
	subscribeMode         = "subscribe"
	signaturePrefixSHA256 = "sha256="
)

// ErrBadSignature is logged when a delivery's signature does not verify.
var ErrBadSignature = errors.New("webhook signature mismatch")

// BatchHandler handles a verified event batch.
type BatchHandler interface {
	HandleBatch(ctx context.Context, batch *event.Batch) error
}

// Config configures a Handler.
type Config struct {
	VerifyToken string
	AppSecret   string

	// Dedupe, when set, drops messaging items already seen.
	Dedupe *dedupe.Cache

	// HandleTimeout bounds background handling of one delivery.
	HandleTimeout time.Duration

	Logger *slog.Logger
}

// Handler is the webhook http.Handler.
type Handler struct {
	bot           BatchHandler
	verifyToken   string
	appSecret     []byte
	dedupe        *dedupe.Cache
	handleTimeout time.Duration
	logger        *slog.Logger

	wg sync.WaitGroup
}

// New creates a Handler delivering batches to bot.
func New(bot BatchHandler, cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.HandleTimeout
	if timeout <= 0 {
		timeout = defaultHandleTimeout
	}
	h := &Handler{
		bot:           bot,
		verifyToken:   cfg.VerifyToken,
		appSecret:     []byte(cfg.AppSecret),
		dedupe:        cfg.Dedupe,
		handleTimeout: timeout,
		logger:        logger.With("component", "webhook"),
	}
	if cfg.AppSecret == "" {
		h.logger.Warn("app secret not set, webhook signatures are not verified")
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleVerify(w, r)
	case http.MethodPost:
		h.handleEvents(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != subscribeMode || h.verifyToken == "" ||
		!hmac.Equal([]byte(q.Get("hub.verify_token")), []byte(h.verifyToken)) {
		h.logger.Warn("webhook verification failed", "mode", q.Get("hub.mode"))
		w.WriteHeader(http.StatusForbidden)
		return
	}
	h.logger.Info("webhook verified")
	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, q.Get("hub.challenge"))
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn("reading webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.verifySignature(r.Header.Get(SignatureHeader), body); err != nil {
		h.logger.Warn("rejecting webhook delivery", "error", err)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	batch, err := event.Parse(body)
	if err != nil {
		h.logger.Warn("rejecting webhook delivery", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.filterDuplicates(batch)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.handleTimeout)
		defer cancel()
		if err := h.bot.HandleBatch(ctx, batch); err != nil {
			h.logger.Error("handling webhook batch", "error", err)
		}
	}()

	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, acknowledgementBody)
}

func (h *Handler) verifySignature(header string, body []byte) error {
	if len(h.appSecret) == 0 {
		return nil
	}
	sig, ok := strings.CutPrefix(header, signaturePrefixSHA256)
	if !ok {
		return ErrBadSignature
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return ErrBadSignature
	}
	if !hmac.Equal(got, Sign(h.appSecret, body)) {
		return ErrBadSignature
	}
	return nil
}

// filterDuplicates removes already seen items from the batch in place.
func (h *Handler) filterDuplicates(batch *event.Batch) {
	if h.dedupe == nil {
		return
	}
	for i := range batch.Entry {
		items := batch.Entry[i].Messaging
		kept := items[:0]
		for _, m := range items {
			if h.dedupe.SeenItem(m) {
				h.logger.Debug("dropping duplicate delivery", "key", dedupe.Key(m))
				continue
			}
			kept = append(kept, m)
		}
		batch.Entry[i].Messaging = kept
	}
}

// Wait blocks until background handling finishes or ctx is done.
func (h *Handler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sign returns the HMAC-SHA256 of body keyed by secret.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// SignatureHeaderValue returns the X-Hub-Signature-256 value for body.
func SignatureHeaderValue(secret, body []byte) string {
	return signaturePrefixSHA256 + hex.EncodeToString(Sign(secret, body))
}
