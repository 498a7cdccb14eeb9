package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"luxrent/internal/app/policies"
	"luxrent/internal/domain/refund"
)

// RefundLedger stores one refund per booking together with the calculation snapshot,
// so later policy changes never rewrite history.
type RefundLedger struct {
	col *mongo.Collection
}

func NewRefundLedger(db *mongo.Database) *RefundLedger {
	return &RefundLedger{col: db.Collection("refund_ledger")}
}

func (l *RefundLedger) Save(ctx context.Context, rec policies.RefundRecord) error {
	doc := newRefundDocument(rec)
	_, err := l.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (l *RefundLedger) ByBookingID(ctx context.Context, bookingID string) (policies.RefundRecord, error) {
	var doc refundDocument
	if err := l.col.FindOne(ctx, bson.M{"_id": bookingID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return policies.RefundRecord{}, policies.ErrRefundRecordNotFound
		}
		return policies.RefundRecord{}, err
	}
	return doc.toRecord()
}

type refundDocument struct {
	ID                 string              `bson:"_id"`
	RefundID           string              `bson:"refund_id"`
	PaymentReferenceID string              `bson:"payment_reference_id"`
	Status             string              `bson:"status"`
	CancellationReason string              `bson:"cancellation_reason"`
	CustomerEmail      string              `bson:"customer_email"`
	AmountMinor        int64               `bson:"amount_minor"`
	Currency           string              `bson:"currency"`
	Calculation        calculationDocument `bson:"calculation"`
	CreatedAt          time.Time           `bson:"created_at"`
}

// Decimals are stored as strings to keep them exact.
type calculationDocument struct {
	OriginalAmount   string  `bson:"original_amount"`
	Currency         string  `bson:"currency"`
	RefundAmount     string  `bson:"refund_amount"`
	RefundPercentage string  `bson:"refund_percentage"`
	GrossRefund      *string `bson:"gross_refund,omitempty"`
	ProcessingFee    string  `bson:"processing_fee"`
	ConciergeFee     string  `bson:"concierge_fee"`
	InsuranceFee     string  `bson:"insurance_fee"`
	TotalFees        string  `bson:"total_fees"`
	HoursUntilStart  *int    `bson:"hours_until_start,omitempty"`
	PolicyApplied    string  `bson:"policy_applied"`
	PolicyVersion    string  `bson:"policy_version"`
	Reason           string  `bson:"reason"`
}

func newRefundDocument(rec policies.RefundRecord) refundDocument {
	c := rec.Calculation
	calc := calculationDocument{
		OriginalAmount:   c.OriginalAmount.String(),
		Currency:         c.Currency,
		RefundAmount:     c.RefundAmount.String(),
		RefundPercentage: c.RefundPercentage.String(),
		ProcessingFee:    c.Fees.Processing.String(),
		ConciergeFee:     c.Fees.ConciergeService.String(),
		InsuranceFee:     c.Fees.Insurance.String(),
		TotalFees:        c.Fees.Total.String(),
		HoursUntilStart:  c.HoursUntilStart,
		PolicyApplied:    c.PolicyApplied,
		PolicyVersion:    c.PolicyVersion,
		Reason:           c.Reason,
	}
	if c.GrossRefund != nil {
		gross := c.GrossRefund.String()
		calc.GrossRefund = &gross
	}
	return refundDocument{
		ID:                 rec.BookingID,
		RefundID:           rec.RefundID,
		PaymentReferenceID: rec.PaymentReferenceID,
		Status:             rec.Status,
		CancellationReason: rec.CancellationReason,
		CustomerEmail:      rec.CustomerEmail,
		AmountMinor:        rec.AmountMinor,
		Currency:           rec.Currency,
		Calculation:        calc,
		CreatedAt:          rec.CreatedAt,
	}
}

func (d refundDocument) toRecord() (policies.RefundRecord, error) {
	var parseErr error
	dec := func(field, s string) decimal.Decimal {
		v, err := decimal.NewFromString(s)
		if err != nil && parseErr == nil {
			parseErr = fmt.Errorf("mongo: refund %s: invalid %s %q: %w", d.ID, field, s, err)
		}
		return v
	}
	c := d.Calculation
	calc := refund.Calculation{
		OriginalAmount:   dec("original_amount", c.OriginalAmount),
		Currency:         c.Currency,
		RefundAmount:     dec("refund_amount", c.RefundAmount),
		RefundPercentage: dec("refund_percentage", c.RefundPercentage),
		Fees: refund.Fees{
			Processing:       dec("processing_fee", c.ProcessingFee),
			ConciergeService: dec("concierge_fee", c.ConciergeFee),
			Insurance:        dec("insurance_fee", c.InsuranceFee),
			Total:            dec("total_fees", c.TotalFees),
		},
		HoursUntilStart: c.HoursUntilStart,
		PolicyApplied:   c.PolicyApplied,
		PolicyVersion:   c.PolicyVersion,
		Reason:          c.Reason,
	}
	if c.GrossRefund != nil {
		gross := dec("gross_refund", *c.GrossRefund)
		calc.GrossRefund = &gross
	}
	if parseErr != nil {
		return policies.RefundRecord{}, parseErr
	}
	return policies.RefundRecord{
		BookingID:          d.ID,
		RefundID:           d.RefundID,
		PaymentReferenceID: d.PaymentReferenceID,
		Status:             d.Status,
		CancellationReason: d.CancellationReason,
		CustomerEmail:      d.CustomerEmail,
		AmountMinor:        d.AmountMinor,
		Currency:           d.Currency,
		Calculation:        calc,
		CreatedAt:          d.CreatedAt,
	}, nil
}

var _ policies.RefundLedger = (*RefundLedger)(nil)
