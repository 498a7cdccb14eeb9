package notify

import (
	"context"
	"encoding/json"
	"time"

	"luxrent/internal/app/policies"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

type refundNotification struct {
	Type                   string    `json:"type"`
	RefundID               string    `json:"refundId"`
	BookingID              string    `json:"bookingId"`
	ItemName               string    `json:"itemName"`
	OriginalAmount         string    `json:"originalAmount"`
	RefundAmount           string    `json:"refundAmount"`
	Currency               string    `json:"currency"`
	CustomerEmail          string    `json:"customerEmail"`
	CancellationReason     string    `json:"cancellationReason"`
	PolicyApplied          string    `json:"policyApplied"`
	PolicyVersion          string    `json:"policyVersion"`
	RefundPercentage       string    `json:"refundPercentage"`
	ProcessingTimeEstimate string    `json:"processingTimeEstimate"`
	Message                string    `json:"message"`
	SentAt                 time.Time `json:"sentAt"`
}

// KafkaNotifier hands confirmations to the messaging service over Kafka, keyed by booking.
type KafkaNotifier struct {
	producer Producer
	topic    string
	now      func() time.Time
}

func NewKafkaNotifier(producer Producer, topicPrefix string) *KafkaNotifier {
	return &KafkaNotifier{
		producer: producer,
		topic:    topicPrefix + "notifications.refund.v1",
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (n *KafkaNotifier) Topic() string { return n.topic }

func (n *KafkaNotifier) SendRefundConfirmation(ctx context.Context, c policies.RefundConfirmation) error {
	payload, err := json.Marshal(refundNotification{
		Type:                   "refund.confirmation",
		RefundID:               c.RefundID,
		BookingID:              c.BookingID,
		ItemName:               c.ItemName,
		OriginalAmount:         c.OriginalAmount,
		RefundAmount:           c.RefundAmount,
		Currency:               c.Currency,
		CustomerEmail:          c.CustomerEmail,
		CancellationReason:     c.CancellationReason,
		PolicyApplied:          c.Calculation.PolicyApplied,
		PolicyVersion:          c.Calculation.PolicyVersion,
		RefundPercentage:       c.Calculation.RefundPercentage.String(),
		ProcessingTimeEstimate: c.ProcessingTimeEstimate,
		Message:                c.Message,
		SentAt:                 n.now(),
	})
	if err != nil {
		return err
	}
	return n.producer.Publish(ctx, n.topic, c.BookingID, payload, map[string]string{
		"content-type": "application/json",
	})
}

var _ policies.Notifier = (*KafkaNotifier)(nil)
