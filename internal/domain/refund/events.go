package refund

import (
	"time"

	"luxrent/internal/domain/shared/money"
)

type RefundIssued struct {
	BookingID          string      `json:"booking_id"`
	RefundID           string      `json:"refund_id"`
	PaymentReferenceID string      `json:"payment_reference_id"`
	Amount             money.Money `json:"-"`
	AmountMinorUnits   int64       `json:"amount_minor_units"`
	Currency           string      `json:"currency"`
	PolicyApplied      string      `json:"policy_applied"`
	PolicyVersion      string      `json:"policy_version"`
	CancellationReason string      `json:"cancellation_reason"`
	At                 time.Time   `json:"at"`
}

func (e RefundIssued) EventName() string     { return "refund.issued" }
func (e RefundIssued) AggregateID() string   { return e.BookingID }
func (e RefundIssued) OccurredAt() time.Time { return e.At }
