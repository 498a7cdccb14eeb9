package refund

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BookingSnapshot is the booking as reconstructed from the original charge.
type BookingSnapshot struct {
	OriginalAmount       decimal.Decimal
	Currency             string
	ItemType             ItemType
	ItemName             string
	StartDateTime        time.Time
	CustomerEmail        string
	BookingID            string
	SpecialCircumstances bool
}

// Fees is the non-refundable part of a timing-based refund.
type Fees struct {
	Processing       decimal.Decimal
	ConciergeService decimal.Decimal
	Insurance        decimal.Decimal
	Total            decimal.Decimal
}

// Calculation is the result of applying a policy to one cancellation. GrossRefund and
// HoursUntilStart are nil when an override reason granted a full refund.
type Calculation struct {
	OriginalAmount   decimal.Decimal
	Currency         string
	RefundAmount     decimal.Decimal
	RefundPercentage decimal.Decimal
	GrossRefund      *decimal.Decimal
	Fees             Fees
	HoursUntilStart  *int
	PolicyApplied    string
	PolicyVersion    string
	Reason           string
}

// IsFullRefundOverride reports whether the override path produced the calculation.
func (c Calculation) IsFullRefundOverride() bool {
	return c.PolicyApplied == FullRefundPolicy
}

// Clock supplies the current time to the calculator.
type Clock func() time.Time

// Calculator binds a policy to a clock.
type Calculator struct {
	Policy Policy
	Now    Clock
}

// NewCalculator returns a calculator for the policy using the wall clock.
func NewCalculator(p Policy) Calculator {
	return Calculator{Policy: p, Now: time.Now}
}

// Calculate applies the bound policy at the clock's current time.
func (c Calculator) Calculate(s BookingSnapshot, cancellationReason string) Calculation {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return Calculate(c.Policy, s, cancellationReason, now())
}

// Calculate computes the refund for a cancellation made at now. It is deterministic in
// its arguments.
func Calculate(p Policy, s BookingSnapshot, cancellationReason string, now time.Time) Calculation {
	original := s.OriginalAmount
	if original.IsNegative() {
		original = decimal.Zero
	}
	calc := Calculation{
		OriginalAmount: original,
		Currency:       strings.ToUpper(s.Currency),
		PolicyVersion:  p.Version,
	}

	if s.SpecialCircumstances || p.IsFullRefundReason(cancellationReason) {
		calc.RefundAmount = original
		calc.RefundPercentage = decimal.NewFromInt(1)
		calc.Fees = Fees{
			Processing:       decimal.Zero,
			ConciergeService: decimal.Zero,
			Insurance:        decimal.Zero,
			Total:            decimal.Zero,
		}
		calc.PolicyApplied = FullRefundPolicy
		calc.Reason = "Full refund due to special circumstances"
		return calc
	}

	hours := s.StartDateTime.Sub(now).Hours()
	item := normalizeItemType(s.ItemType)
	tier := selectTier(p.ScheduleFor(item), hours)

	gross := original.Mul(tier.Fraction)
	fees := Fees{
		Processing:       original.Mul(p.Fees.ProcessingRate),
		ConciergeService: p.Fees.ConciergeFlat,
		Insurance:        original.Mul(p.Fees.InsuranceRate),
	}
	fees.Total = fees.Processing.Add(fees.ConciergeService).Add(fees.Insurance)

	refund := gross.Sub(fees.Total)
	if refund.IsNegative() {
		refund = decimal.Zero
	}
	if refund.GreaterThan(original) {
		refund = original
	}

	rounded := roundHours(hours)
	calc.RefundAmount = refund
	calc.RefundPercentage = tier.Fraction
	calc.GrossRefund = &gross
	calc.Fees = fees
	calc.HoursUntilStart = &rounded
	calc.PolicyApplied = tier.Label
	calc.Reason = tier.Fraction.Shift(2).String() + "% refund per " + string(item) + " cancellation policy"
	return calc
}

func selectTier(s Schedule, hours float64) Tier {
	for _, t := range s.Tiers {
		if hours >= t.MinHours {
			return t
		}
	}
	return s.Floor
}

// Item types match exactly; anything without its own schedule is priced as cars.
func normalizeItemType(item ItemType) ItemType {
	if item == "" {
		return ItemCars
	}
	return item
}

func roundHours(hours float64) int {
	if math.IsNaN(hours) {
		return 0
	}
	const bound = float64(math.MaxInt32)
	if hours > bound {
		return math.MaxInt32
	}
	if hours < -bound {
		return math.MinInt32
	}
	return int(math.Round(hours))
}
