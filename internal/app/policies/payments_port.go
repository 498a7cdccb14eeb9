package policies

import "context"

// Charge is the original payment as stored by the payment processor. Amounts are in
// minor units (cents).
type Charge struct {
	ReferenceID  string
	AmountMinor  int64
	Currency     string
	Status       string
	ReceiptEmail string
	Metadata     map[string]string
}

// RefundRequest asks the processor to return AmountMinor of the referenced charge.
type RefundRequest struct {
	ReferenceID    string
	AmountMinor    int64
	Currency       string
	ReasonCode     string
	IdempotencyKey string
	Metadata       map[string]string
}

// RefundReceipt is the processor's acknowledgement of an executed refund.
type RefundReceipt struct {
	ID          string
	Status      string
	AmountMinor int64
	Currency    string
}

// PaymentGateway is the payment processor. RetrieveCharge returns (nil, nil) when the
// reference is unknown.
type PaymentGateway interface {
	RetrieveCharge(ctx context.Context, referenceID string) (*Charge, error)
	ExecuteRefund(ctx context.Context, req RefundRequest) (RefundReceipt, error)
}
