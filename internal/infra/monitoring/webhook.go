package monitoring

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"luxrent/internal/infra/obs"
)

var ErrEndpointRequired = errors.New("monitoring: webhook url required")

// WebhookSink posts each event as JSON to an external monitoring endpoint. When a secret
// is configured the body is signed with HMAC-SHA256 in X-Webhook-Signature.
type WebhookSink struct {
	url    string
	secret string
	client *http.Client
}

func NewWebhookSink(url, secret string, client *http.Client) (*WebhookSink, error) {
	if url == "" {
		return nil, ErrEndpointRequired
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &WebhookSink{url: url, secret: secret, client: client}, nil
}

func (s *WebhookSink) Send(ctx context.Context, ev obs.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("monitoring: encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("monitoring: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event-Type", ev.EventType)
	req.Header.Set("X-Webhook-Timestamp", ev.Timestamp.Format(time.RFC3339))
	if s.secret != "" {
		req.Header.Set("X-Webhook-Signature", Sign(payload, s.secret))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("monitoring: deliver: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("monitoring: webhook responded %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

var _ obs.MonitoringSink = (*WebhookSink)(nil)
