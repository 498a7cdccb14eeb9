package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxrent/internal/app/policies"
)

func seededGateway() *Gateway {
	return NewGateway(policies.Charge{
		ReferenceID: "pi_1",
		AmountMinor: 100000,
		Currency:    "usd",
		Metadata:    map[string]string{"bookingId": "bk_1"},
	})
}

func TestGatewayRetrieveCharge(t *testing.T) {
	g := seededGateway()

	c, err := g.RetrieveCharge(context.Background(), "pi_1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "succeeded", c.Status)

	c.Metadata["bookingId"] = "mutated"
	again, _ := g.RetrieveCharge(context.Background(), "pi_1")
	assert.Equal(t, "bk_1", again.Metadata["bookingId"])

	missing, err := g.RetrieveCharge(context.Background(), "pi_missing")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGatewayRefundIsIdempotentPerKey(t *testing.T) {
	g := seededGateway()
	req := policies.RefundRequest{ReferenceID: "pi_1", AmountMinor: 75000, Currency: "USD", IdempotencyKey: "refund-bk_1"}

	first, err := g.ExecuteRefund(context.Background(), req)
	require.NoError(t, err)
	second, err := g.ExecuteRefund(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(75000), g.Refunded("pi_1"))
}

func TestGatewayRejectsOverRefund(t *testing.T) {
	g := seededGateway()
	_, err := g.ExecuteRefund(context.Background(), policies.RefundRequest{ReferenceID: "pi_1", AmountMinor: 60000, Currency: "usd", IdempotencyKey: "a"})
	require.NoError(t, err)

	_, err = g.ExecuteRefund(context.Background(), policies.RefundRequest{ReferenceID: "pi_1", AmountMinor: 60000, Currency: "usd", IdempotencyKey: "b"})
	assert.ErrorIs(t, err, ErrRefundExceedsCharge)

	_, err = g.ExecuteRefund(context.Background(), policies.RefundRequest{ReferenceID: "pi_1", AmountMinor: 100, Currency: "eur"})
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = g.ExecuteRefund(context.Background(), policies.RefundRequest{ReferenceID: "pi_x", AmountMinor: 100, Currency: "usd"})
	assert.ErrorIs(t, err, ErrUnknownCharge)
}
