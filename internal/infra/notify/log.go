package notify

import (
	"context"
	"log/slog"

	"luxrent/internal/app/policies"
)

// LogNotifier only logs confirmations. Used in dev and when no provider is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) SendRefundConfirmation(ctx context.Context, c policies.RefundConfirmation) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "refund confirmation",
		"booking_id", c.BookingID,
		"refund_id", c.RefundID,
		"refund_amount", c.RefundAmount,
		"currency", c.Currency,
		"policy", c.Calculation.PolicyApplied,
	)
	return nil
}

var _ policies.Notifier = LogNotifier{}
