package monitoring

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxrent/internal/app/policies"
	"luxrent/internal/infra/obs"
)

func TestWebhookSinkSignsPayload(t *testing.T) {
	type delivery struct {
		body      []byte
		signature string
		eventType string
	}
	received := make(chan delivery, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- delivery{body: body, signature: r.Header.Get("X-Webhook-Signature"), eventType: r.Header.Get("X-Webhook-Event-Type")}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink, err := NewWebhookSink(srv.URL, "s3cret", srv.Client())
	require.NoError(t, err)

	ev := obs.Event{
		Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Service:   "refund-service",
		EventType: policies.EventRefundFailed,
		Severity:  policies.SeverityError,
		Data:      map[string]any{"bookingId": "bk_42"},
	}
	require.NoError(t, sink.Send(context.Background(), ev))
	got := <-received

	assert.Equal(t, policies.EventRefundFailed, got.eventType)
	assert.Equal(t, Sign(got.body, "s3cret"), got.signature)
	var decoded obs.Event
	require.NoError(t, json.Unmarshal(got.body, &decoded))
	assert.Equal(t, "bk_42", decoded.Data["bookingId"])
}

func TestWebhookSinkUnsignedWithoutSecret(t *testing.T) {
	signatures := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signatures <- r.Header.Get("X-Webhook-Signature")
	}))
	defer srv.Close()

	sink, err := NewWebhookSink(srv.URL, "", nil)
	require.NoError(t, err)
	require.NoError(t, sink.Send(context.Background(), obs.Event{EventType: "evt"}))
	assert.Empty(t, <-signatures)
}

func TestWebhookSinkReportsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink, err := NewWebhookSink(srv.URL, "", nil)
	require.NoError(t, err)
	assert.ErrorContains(t, sink.Send(context.Background(), obs.Event{}), "502")
}

func TestNewWebhookSinkRequiresURL(t *testing.T) {
	_, err := NewWebhookSink("", "x", nil)
	assert.ErrorIs(t, err, ErrEndpointRequired)
}
