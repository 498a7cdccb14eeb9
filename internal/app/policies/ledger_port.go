package policies

import (
	"context"
	"errors"
	"time"

	"luxrent/internal/domain/refund"
)

var ErrRefundRecordNotFound = errors.New("ledger: refund record not found")

// RefundRecord snapshots an executed refund together with the policy version used.
type RefundRecord struct {
	BookingID          string
	RefundID           string
	PaymentReferenceID string
	Status             string
	CancellationReason string
	CustomerEmail      string
	AmountMinor        int64
	Currency           string
	Calculation        refund.Calculation
	CreatedAt          time.Time
}

type RefundLedger interface {
	Save(ctx context.Context, rec RefundRecord) error
	ByBookingID(ctx context.Context, bookingID string) (RefundRecord, error)
}
