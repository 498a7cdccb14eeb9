package dto

import (
	"time"

	"luxrent/internal/app/policies"
	"luxrent/internal/domain/refund"
	"luxrent/internal/domain/shared/money"
)

type RefundDTO struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Status   string  `json:"status"`
}

type FeesDTO struct {
	Processing       float64 `json:"processing"`
	ConciergeService float64 `json:"conciergeService"`
	Insurance        float64 `json:"insurance"`
	Total            float64 `json:"total"`
}

type CalculationDTO struct {
	OriginalAmount   float64  `json:"originalAmount"`
	Currency         string   `json:"currency"`
	RefundAmount     float64  `json:"refundAmount"`
	RefundPercentage float64  `json:"refundPercentage"`
	GrossRefund      *float64 `json:"grossRefund,omitempty"`
	Fees             FeesDTO  `json:"fees"`
	HoursUntilStart  *int     `json:"hoursUntilStart,omitempty"`
	PolicyApplied    string   `json:"policyApplied"`
	PolicyVersion    string   `json:"policyVersion"`
	Reason           string   `json:"reason"`
}

// RefundResponse is the 200 body of POST /refund.
type RefundResponse struct {
	Success                bool           `json:"success"`
	Refund                 RefundDTO      `json:"refund"`
	Calculation            CalculationDTO `json:"calculation"`
	Message                string         `json:"message"`
	ProcessingTimeEstimate string         `json:"processingTimeEstimate"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func NewCalculationDTO(c refund.Calculation) CalculationDTO {
	out := CalculationDTO{
		OriginalAmount:   c.OriginalAmount.InexactFloat64(),
		Currency:         c.Currency,
		RefundAmount:     c.RefundAmount.InexactFloat64(),
		RefundPercentage: c.RefundPercentage.InexactFloat64(),
		Fees: FeesDTO{
			Processing:       c.Fees.Processing.InexactFloat64(),
			ConciergeService: c.Fees.ConciergeService.InexactFloat64(),
			Insurance:        c.Fees.Insurance.InexactFloat64(),
			Total:            c.Fees.Total.InexactFloat64(),
		},
		PolicyApplied: c.PolicyApplied,
		PolicyVersion: c.PolicyVersion,
		Reason:        c.Reason,
	}
	if c.GrossRefund != nil {
		gross := c.GrossRefund.InexactFloat64()
		out.GrossRefund = &gross
	}
	if c.HoursUntilStart != nil {
		hours := *c.HoursUntilStart
		out.HoursUntilStart = &hours
	}
	return out
}

// RefundRecordDTO is a ledger entry as returned by GET /api/v1/refunds/:bookingId.
type RefundRecordDTO struct {
	BookingID          string         `json:"bookingId"`
	RefundID           string         `json:"refundId"`
	Status             string         `json:"status"`
	Amount             float64        `json:"amount"`
	Currency           string         `json:"currency"`
	CancellationReason string         `json:"cancellationReason"`
	Calculation        CalculationDTO `json:"calculation"`
	CreatedAt          time.Time      `json:"createdAt"`
}

func NewRefundRecordDTO(rec policies.RefundRecord) (*RefundRecordDTO, error) {
	amount, err := money.FromMinorUnits(rec.AmountMinor, rec.Currency)
	if err != nil {
		return nil, err
	}
	return &RefundRecordDTO{
		BookingID:          rec.BookingID,
		RefundID:           rec.RefundID,
		Status:             rec.Status,
		Amount:             amount.Amount.InexactFloat64(),
		Currency:           amount.Currency,
		CancellationReason: rec.CancellationReason,
		Calculation:        NewCalculationDTO(rec.Calculation),
		CreatedAt:          rec.CreatedAt,
	}, nil
}
