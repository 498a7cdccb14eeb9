package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/google/uuid"

	"luxrent/internal/app/policies"
)

var (
	ErrUnknownCharge       = errors.New("memory gateway: unknown charge")
	ErrRefundExceedsCharge = errors.New("memory gateway: refund exceeds remaining charge amount")
	ErrCurrencyMismatch    = errors.New("memory gateway: refund currency differs from charge")
)

// Gateway is an in-process payment processor for development and tests. Refunds with a
// repeated idempotency key return the first receipt.
type Gateway struct {
	mu       sync.Mutex
	charges  map[string]policies.Charge
	refunded map[string]int64
	receipts map[string]policies.RefundReceipt
	newID    func() string
}

func NewGateway(charges ...policies.Charge) *Gateway {
	g := &Gateway{
		charges:  make(map[string]policies.Charge),
		refunded: make(map[string]int64),
		receipts: make(map[string]policies.RefundReceipt),
		newID:    func() string { return "re_" + strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
	for _, c := range charges {
		g.Seed(c)
	}
	return g
}

func (g *Gateway) Seed(c policies.Charge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c.Metadata = maps.Clone(c.Metadata)
	if c.Status == "" {
		c.Status = "succeeded"
	}
	g.charges[c.ReferenceID] = c
}

func (g *Gateway) RetrieveCharge(ctx context.Context, referenceID string) (*policies.Charge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.charges[referenceID]
	if !ok {
		return nil, nil
	}
	c.Metadata = maps.Clone(c.Metadata)
	return &c, nil
}

func (g *Gateway) ExecuteRefund(ctx context.Context, req policies.RefundRequest) (policies.RefundReceipt, error) {
	if err := ctx.Err(); err != nil {
		return policies.RefundReceipt{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if req.IdempotencyKey != "" {
		if receipt, ok := g.receipts[req.IdempotencyKey]; ok {
			return receipt, nil
		}
	}
	c, ok := g.charges[req.ReferenceID]
	if !ok {
		return policies.RefundReceipt{}, fmt.Errorf("%w: %s", ErrUnknownCharge, req.ReferenceID)
	}
	if !strings.EqualFold(c.Currency, req.Currency) {
		return policies.RefundReceipt{}, ErrCurrencyMismatch
	}
	if req.AmountMinor <= 0 || g.refunded[req.ReferenceID]+req.AmountMinor > c.AmountMinor {
		return policies.RefundReceipt{}, ErrRefundExceedsCharge
	}
	g.refunded[req.ReferenceID] += req.AmountMinor
	receipt := policies.RefundReceipt{
		ID:          g.newID(),
		Status:      "succeeded",
		AmountMinor: req.AmountMinor,
		Currency:    strings.ToUpper(req.Currency),
	}
	if req.IdempotencyKey != "" {
		g.receipts[req.IdempotencyKey] = receipt
	}
	return receipt, nil
}

// Refunded reports the total refunded against a charge.
func (g *Gateway) Refunded(referenceID string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refunded[referenceID]
}

var _ policies.PaymentGateway = (*Gateway)(nil)
