package payments

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxrent/internal/app/policies"
)

func TestStripeGatewayRetrieveCharge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/payment_intents/pi_1":
			_, _ = w.Write([]byte(`{"id":"pi_1","object":"payment_intent","amount":500000,"currency":"usd","status":"succeeded","receipt_email":"r@example.com","metadata":{"itemType":"yachts"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such payment_intent"}}`))
		}
	}))
	defer srv.Close()
	g := NewStripeGateway(srv.URL+"/", "sk_test", time.Second, srv.Client(), nil)

	c, err := g.RetrieveCharge(context.Background(), "pi_1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "pi_1", c.ReferenceID)
	assert.Equal(t, int64(500000), c.AmountMinor)
	assert.Equal(t, "USD", c.Currency)
	assert.Equal(t, "succeeded", c.Status)
	assert.Equal(t, "r@example.com", c.ReceiptEmail)
	assert.Equal(t, "yachts", c.Metadata["itemType"])

	missing, err := g.RetrieveCharge(context.Background(), "pi_missing")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStripeGatewayExecuteRefund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/refunds", r.URL.Path)
		assert.Equal(t, "refund-bk_42", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "pi_1", r.PostForm.Get("payment_intent"))
		assert.Equal(t, "15000", r.PostForm.Get("amount"))
		assert.Equal(t, "requested_by_customer", r.PostForm.Get("reason"))
		assert.Equal(t, "true", r.PostForm.Get("metadata[automated_refund]"))
		assert.Equal(t, "bk_42", r.PostForm.Get("metadata[bookingId]"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"re_1","object":"refund","amount":15000,"currency":"usd","status":"succeeded"}`))
	}))
	defer srv.Close()
	g := NewStripeGateway(srv.URL, "sk_test", time.Second, nil, nil)

	receipt, err := g.ExecuteRefund(context.Background(), policies.RefundRequest{
		ReferenceID:    "pi_1",
		AmountMinor:    15000,
		Currency:       "USD",
		ReasonCode:     "requested_by_customer",
		IdempotencyKey: "refund-bk_42",
		Metadata:       map[string]string{"automated_refund": "true", "bookingId": "bk_42"},
	})
	require.NoError(t, err)
	assert.Equal(t, policies.RefundReceipt{ID: "re_1", Status: "succeeded", AmountMinor: 15000, Currency: "USD"}, receipt)
}

func TestStripeGatewayErrors(t *testing.T) {
	var status atomic.Int32
	var calls atomic.Int32
	status.Store(http.StatusBadRequest)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"charge_already_refunded","message":"already refunded"}}`))
	}))
	defer srv.Close()
	g := NewStripeGateway(srv.URL, "sk_test", time.Second, nil, nil)

	_, err := g.ExecuteRefund(context.Background(), policies.RefundRequest{ReferenceID: "pi_1", AmountMinor: 1})
	var stripeErr *stripe.Error
	require.True(t, errors.As(err, &stripeErr))
	assert.Equal(t, stripe.ErrorCodeChargeAlreadyRefunded, stripeErr.Code)
	assert.Equal(t, http.StatusBadRequest, stripeErr.HTTPStatusCode)
	assert.NotErrorIs(t, err, ErrGatewayUnavailable)

	status.Store(http.StatusServiceUnavailable)
	calls.Store(0)
	_, err = g.RetrieveCharge(context.Background(), "pi_1")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestStripeGatewayTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()
	g := NewStripeGateway(url, "sk_test", time.Second, nil, nil)

	_, err := g.RetrieveCharge(context.Background(), "pi_1")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}
