package policies

import "context"

type Severity string

const (
	SeverityDebug Severity = "debug"
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// EventLogger records one structured business event. Implementations redact PII before
// anything leaves the process.
type EventLogger interface {
	LogEvent(ctx context.Context, eventType string, data map[string]any, severity Severity)
}

// Event types emitted while processing a refund.
const (
	EventRefundValidationFailed   = "refund_validation_failed"
	EventRefundChargeNotFound     = "refund_charge_not_found"
	EventRefundCalculated         = "refund_calculated"
	EventRefundExecuted           = "refund_executed"
	EventRefundNotificationFailed = "refund_notification_failed"
	EventRefundProcessed          = "refund_processed"
	EventRefundFailed             = "refund_failed"
)

type nopEventLogger struct{}

func (nopEventLogger) LogEvent(context.Context, string, map[string]any, Severity) {}

// NopEventLogger discards every event.
func NopEventLogger() EventLogger { return nopEventLogger{} }

// RefundMetrics counts refund outcomes.
type RefundMetrics interface {
	ObserveRefund(itemType, policyApplied, status, currency string, amountMinor int64)
}
