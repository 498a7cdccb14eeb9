package memory

import (
	"context"
	"sync"

	"luxrent/internal/app/policies"
)

// RefundLedger keeps one record per booking; a later save replaces the earlier one.
type RefundLedger struct {
	mu      sync.RWMutex
	records map[string]policies.RefundRecord
}

func NewRefundLedger() *RefundLedger {
	return &RefundLedger{records: make(map[string]policies.RefundRecord)}
}

func (l *RefundLedger) Save(ctx context.Context, rec policies.RefundRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[rec.BookingID] = rec
	return nil
}

func (l *RefundLedger) ByBookingID(ctx context.Context, bookingID string) (policies.RefundRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[bookingID]
	if !ok {
		return policies.RefundRecord{}, policies.ErrRefundRecordNotFound
	}
	return rec, nil
}

var _ policies.RefundLedger = (*RefundLedger)(nil)
