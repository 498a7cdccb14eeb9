package policies

import (
	"context"

	"luxrent/internal/domain/refund"
)

// RefundConfirmation is everything a customer-facing refund message needs.
type RefundConfirmation struct {
	RefundID               string
	BookingID              string
	ItemName               string
	OriginalAmount         string
	RefundAmount           string
	Currency               string
	CustomerEmail          string
	CancellationReason     string
	Calculation            refund.Calculation
	ProcessingTimeEstimate string
	Message                string
}

type Notifier interface {
	SendRefundConfirmation(ctx context.Context, confirmation RefundConfirmation) error
}
