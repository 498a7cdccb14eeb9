package refund

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"luxrent/internal/app/commands"
	"luxrent/internal/app/dto"
	"luxrent/internal/app/middleware"
	"luxrent/internal/app/outbox"
	"luxrent/internal/app/policies"
	domainrefund "luxrent/internal/domain/refund"
	"luxrent/internal/domain/shared/money"
)

const ProcessRefundKey = "refund.process"

const (
	ProcessingTimeEstimate = "5-10 business days"
	GatewayReasonCode      = "requested_by_customer"
	StatusNotRequired      = "not_required"
)

type ProcessRefundCommand struct {
	PaymentReferenceID string
	BookingID          string
	CancellationReason string
	CustomerEmail      string
}

func (c ProcessRefundCommand) Key() string { return ProcessRefundKey }

// IdempotencyKey keys replay of the whole command. The gateway key comes from the same
// request booking id, so both layers agree even when charge metadata names another booking.
func (c ProcessRefundCommand) IdempotencyKey() string {
	id := strings.TrimSpace(c.BookingID)
	if id == "" {
		return ""
	}
	return "refund:" + id
}

func gatewayIdempotencyKey(req domainrefund.CancellationRequest) string {
	return "refund-" + req.BookingID
}

func (c ProcessRefundCommand) ResultPrototype() any { return &dto.RefundResponse{} }

func (c ProcessRefundCommand) Request() domainrefund.CancellationRequest {
	return domainrefund.CancellationRequest{
		PaymentReferenceID: c.PaymentReferenceID,
		BookingID:          c.BookingID,
		CancellationReason: c.CancellationReason,
		CustomerEmail:      c.CustomerEmail,
	}.Normalize()
}

// ProcessRefundHandler validates a cancellation, prices it against the policy and returns
// the money through the payment gateway. Once the gateway accepted the refund nothing
// after it can fail the request.
type ProcessRefundHandler struct {
	Gateway  policies.PaymentGateway
	Notifier policies.Notifier
	Ledger   policies.RefundLedger
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Policy   domainrefund.Policy
	Clock    policies.Clock
	Events   policies.EventLogger
	Metrics  policies.RefundMetrics
	Logger   *slog.Logger
}

var ErrGatewayRequired = errors.New("refund: payment gateway required")

func (h *ProcessRefundHandler) Handle(ctx context.Context, cmd ProcessRefundCommand) (*dto.RefundResponse, error) {
	req := cmd.Request()
	res, err := h.process(ctx, req)
	if err != nil {
		var vErr *domainrefund.ValidationError
		if !errors.As(err, &vErr) && !errors.Is(err, domainrefund.ErrChargeNotFound) {
			h.events().LogEvent(ctx, policies.EventRefundFailed, map[string]any{
				"bookingId":          req.BookingID,
				"paymentReferenceId": req.PaymentReferenceID,
				"customerEmail":      req.CustomerEmail,
				"error":              err.Error(),
			}, policies.SeverityError)
		}
		return nil, err
	}
	return res, nil
}

func (h *ProcessRefundHandler) process(ctx context.Context, req domainrefund.CancellationRequest) (*dto.RefundResponse, error) {
	if err := req.Validate(); err != nil {
		h.events().LogEvent(ctx, policies.EventRefundValidationFailed, map[string]any{
			"bookingId":          req.BookingID,
			"paymentReferenceId": req.PaymentReferenceID,
			"customerEmail":      req.CustomerEmail,
			"error":              err.Error(),
		}, policies.SeverityWarn)
		return nil, err
	}
	if h.Gateway == nil {
		return nil, ErrGatewayRequired
	}

	charge, err := h.Gateway.RetrieveCharge(ctx, req.PaymentReferenceID)
	if err != nil {
		return nil, &domainrefund.GatewayError{Op: "retrieve_charge", Err: err}
	}
	if charge == nil {
		h.events().LogEvent(ctx, policies.EventRefundChargeNotFound, map[string]any{
			"bookingId":          req.BookingID,
			"paymentReferenceId": req.PaymentReferenceID,
		}, policies.SeverityWarn)
		return nil, domainrefund.ErrChargeNotFound
	}

	snap, err := SnapshotFromCharge(*charge, req)
	if err != nil {
		return nil, err
	}
	calc := domainrefund.Calculate(h.policy(), snap, req.CancellationReason, h.now())
	h.events().LogEvent(ctx, policies.EventRefundCalculated, map[string]any{
		"bookingId":        snap.BookingID,
		"itemType":         string(snap.ItemType),
		"originalAmount":   calc.OriginalAmount.String(),
		"refundAmount":     calc.RefundAmount.String(),
		"refundPercentage": calc.RefundPercentage.String(),
		"policyApplied":    calc.PolicyApplied,
		"policyVersion":    calc.PolicyVersion,
	}, policies.SeverityInfo)

	refundMoney := money.Money{Amount: calc.RefundAmount, Currency: calc.Currency}
	minor := refundMoney.MinorUnits()
	if minor > charge.AmountMinor {
		minor = charge.AmountMinor
	}

	receipt := policies.RefundReceipt{Status: StatusNotRequired, Currency: calc.Currency}
	if minor > 0 {
		receipt, err = h.Gateway.ExecuteRefund(ctx, policies.RefundRequest{
			ReferenceID:    req.PaymentReferenceID,
			AmountMinor:    minor,
			Currency:       calc.Currency,
			ReasonCode:     GatewayReasonCode,
			IdempotencyKey: gatewayIdempotencyKey(req),
			Metadata: map[string]string{
				"bookingId":          snap.BookingID,
				"cancellationReason": req.CancellationReason,
				"refundPercentage":   calc.RefundPercentage.Shift(2).String(),
				"policyApplied":      calc.PolicyApplied,
				"policyVersion":      calc.PolicyVersion,
				"automated_refund":   "true",
			},
		})
		if err != nil {
			return nil, &domainrefund.GatewayError{Op: "execute_refund", Err: err}
		}
	}

	// The money has moved; the caller going away must not stop the bookkeeping.
	ctx = context.WithoutCancel(ctx)
	if receipt.Currency == "" {
		receipt.Currency = calc.Currency
	}
	refunded, err := money.FromMinorUnits(receipt.AmountMinor, receipt.Currency)
	if err != nil || receipt.AmountMinor == 0 {
		refunded = money.Money{Amount: calc.RefundAmount, Currency: calc.Currency}
	}
	h.events().LogEvent(ctx, policies.EventRefundExecuted, map[string]any{
		"bookingId":          snap.BookingID,
		"refundId":           receipt.ID,
		"status":             receipt.Status,
		"amount":             refunded.Amount.String(),
		"currency":           refunded.Currency,
		"paymentReferenceId": req.PaymentReferenceID,
	}, policies.SeverityInfo)

	now := h.now()
	h.record(ctx, policies.RefundRecord{
		BookingID:          snap.BookingID,
		RefundID:           receipt.ID,
		PaymentReferenceID: req.PaymentReferenceID,
		Status:             receipt.Status,
		CancellationReason: req.CancellationReason,
		CustomerEmail:      snap.CustomerEmail,
		AmountMinor:        refunded.MinorUnits(),
		Currency:           refunded.Currency,
		Calculation:        calc,
		CreatedAt:          now,
	})
	if receipt.Status != StatusNotRequired {
		h.publish(ctx, domainrefund.RefundIssued{
			BookingID:          snap.BookingID,
			RefundID:           receipt.ID,
			PaymentReferenceID: req.PaymentReferenceID,
			Amount:             refunded,
			AmountMinorUnits:   refunded.MinorUnits(),
			Currency:           refunded.Currency,
			PolicyApplied:      calc.PolicyApplied,
			PolicyVersion:      calc.PolicyVersion,
			CancellationReason: req.CancellationReason,
			At:                 now,
		})
	}

	if h.Metrics != nil {
		h.Metrics.ObserveRefund(string(snap.ItemType), calc.PolicyApplied, receipt.Status, refunded.Currency, refunded.MinorUnits())
	}

	message := "Refund of " + refunded.String() + " processed successfully"
	h.notify(ctx, policies.RefundConfirmation{
		RefundID:               receipt.ID,
		BookingID:              snap.BookingID,
		ItemName:               snap.ItemName,
		OriginalAmount:         money.Money{Amount: calc.OriginalAmount, Currency: calc.Currency}.String(),
		RefundAmount:           refunded.String(),
		Currency:               refunded.Currency,
		CustomerEmail:          snap.CustomerEmail,
		CancellationReason:     req.CancellationReason,
		Calculation:            calc,
		ProcessingTimeEstimate: ProcessingTimeEstimate,
		Message:                message,
	})

	h.events().LogEvent(ctx, policies.EventRefundProcessed, map[string]any{
		"bookingId":     snap.BookingID,
		"refundId":      receipt.ID,
		"refundAmount":  refunded.Amount.String(),
		"currency":      refunded.Currency,
		"policyApplied": calc.PolicyApplied,
		"customerEmail": snap.CustomerEmail,
	}, policies.SeverityInfo)

	return &dto.RefundResponse{
		Success: true,
		Refund: dto.RefundDTO{
			ID:       receipt.ID,
			Amount:   refunded.Amount.InexactFloat64(),
			Currency: refunded.Currency,
			Status:   receipt.Status,
		},
		Calculation:            dto.NewCalculationDTO(calc),
		Message:                message,
		ProcessingTimeEstimate: ProcessingTimeEstimate,
	}, nil
}

func (h *ProcessRefundHandler) record(ctx context.Context, rec policies.RefundRecord) {
	if h.Ledger == nil {
		return
	}
	if err := h.Ledger.Save(ctx, rec); err != nil {
		h.logger().WarnContext(ctx, "refund ledger save failed", "booking_id", rec.BookingID, "error", err)
	}
}

func (h *ProcessRefundHandler) publish(ctx context.Context, ev domainrefund.RefundIssued) {
	if err := outbox.Record(ctx, h.Outbox, h.Encoder, ev); err != nil {
		h.logger().WarnContext(ctx, "refund event not recorded", "booking_id", ev.BookingID, "error", err)
	}
}

func (h *ProcessRefundHandler) notify(ctx context.Context, confirmation policies.RefundConfirmation) {
	if h.Notifier == nil {
		return
	}
	if err := h.Notifier.SendRefundConfirmation(ctx, confirmation); err != nil {
		h.events().LogEvent(ctx, policies.EventRefundNotificationFailed, map[string]any{
			"bookingId":     confirmation.BookingID,
			"refundId":      confirmation.RefundID,
			"customerEmail": confirmation.CustomerEmail,
			"error":         err.Error(),
		}, policies.SeverityWarn)
	}
}

func (h *ProcessRefundHandler) policy() domainrefund.Policy {
	if h.Policy.Version == "" {
		return domainrefund.DefaultPolicy()
	}
	return h.Policy
}

func (h *ProcessRefundHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return policies.SystemClock()
}

func (h *ProcessRefundHandler) events() policies.EventLogger {
	if h.Events != nil {
		return h.Events
	}
	return policies.NopEventLogger()
}

func (h *ProcessRefundHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ commands.Handler[ProcessRefundCommand, *dto.RefundResponse] = (*ProcessRefundHandler)(nil)
var _ middleware.IdempotentCommand = ProcessRefundCommand{}
