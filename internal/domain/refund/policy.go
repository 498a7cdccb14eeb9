package refund

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type ItemType string

const (
	ItemCars       ItemType = "cars"
	ItemYachts     ItemType = "yachts"
	ItemJets       ItemType = "jets"
	ItemProperties ItemType = "properties"
)

// DefaultPolicyVersion identifies the table returned by DefaultPolicy.
const DefaultPolicyVersion = "2024-01"

// FullRefundPolicy is reported as PolicyApplied when an override reason matched.
const FullRefundPolicy = "full_refund_policy"

var ErrInvalidPolicy = errors.New("refund: invalid policy")

// Tier is a refund bucket: cancellations at least MinHours before start get Fraction back.
type Tier struct {
	Label    string
	MinHours float64
	Fraction decimal.Decimal
}

// Schedule holds the tiers of one item type, highest threshold first. Floor applies
// when no threshold matches, including cancellations after the start time.
type Schedule struct {
	Tiers []Tier
	Floor Tier
}

// FeeSchedule lists the non-refundable fees deducted on the timing path.
type FeeSchedule struct {
	ProcessingRate decimal.Decimal
	ConciergeFlat  decimal.Decimal
	InsuranceRate  decimal.Decimal
}

// Policy is a versioned, read-only cancellation policy table. Changing the rules means
// publishing a new Version rather than editing an existing one.
type Policy struct {
	Version           string
	Schedules         map[ItemType]Schedule
	Fees              FeeSchedule
	FullRefundReasons []string
}

// DefaultPolicy returns a fresh copy of the current production table.
func DefaultPolicy() Policy {
	d := decimal.RequireFromString
	return Policy{
		Version: DefaultPolicyVersion,
		Schedules: map[ItemType]Schedule{
			ItemCars: {
				Tiers: []Tier{
					{Label: "72h+", MinHours: 72, Fraction: d("1.00")},
					{Label: "48h+", MinHours: 48, Fraction: d("0.75")},
					{Label: "24h+", MinHours: 24, Fraction: d("0.50")},
				},
				Floor: Tier{Label: "<24h", Fraction: d("0.25")},
			},
			ItemYachts: {
				Tiers: []Tier{
					{Label: "168h+", MinHours: 168, Fraction: d("1.00")},
					{Label: "72h+", MinHours: 72, Fraction: d("0.80")},
					{Label: "48h+", MinHours: 48, Fraction: d("0.60")},
					{Label: "24h+", MinHours: 24, Fraction: d("0.40")},
				},
				Floor: Tier{Label: "<24h", Fraction: d("0.20")},
			},
			ItemJets: {
				Tiers: []Tier{
					{Label: "168h+", MinHours: 168, Fraction: d("1.00")},
					{Label: "72h+", MinHours: 72, Fraction: d("0.75")},
					{Label: "48h+", MinHours: 48, Fraction: d("0.50")},
					{Label: "24h+", MinHours: 24, Fraction: d("0.30")},
				},
				Floor: Tier{Label: "<24h", Fraction: d("0.15")},
			},
			ItemProperties: {
				// No separate 24h+ bucket: the 48h+ fraction covers the 24-48h window.
				Tiers: []Tier{
					{Label: "336h+", MinHours: 336, Fraction: d("1.00")},
					{Label: "168h+", MinHours: 168, Fraction: d("0.85")},
					{Label: "72h+", MinHours: 72, Fraction: d("0.70")},
					{Label: "48h+", MinHours: 24, Fraction: d("0.50")},
				},
				Floor: Tier{Label: "<24h", Fraction: d("0.25")},
			},
		},
		Fees: FeeSchedule{
			ProcessingRate: d("0.05"),
			ConciergeFlat:  d("100"),
			InsuranceRate:  d("0.10"),
		},
		FullRefundReasons: []string{
			"vehicle_unavailable",
			"weather_cancellation",
			"force_majeure",
			"medical_emergency",
			"government_restriction",
		},
	}
}

// ScheduleFor returns the schedule for the item type, falling back to cars.
func (p Policy) ScheduleFor(item ItemType) Schedule {
	if s, ok := p.Schedules[item]; ok {
		return s
	}
	return p.Schedules[ItemCars]
}

// IsFullRefundReason reports whether the cancellation reason bypasses the timing tiers.
func (p Policy) IsFullRefundReason(reason string) bool {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return false
	}
	for _, r := range p.FullRefundReasons {
		if r == reason {
			return true
		}
	}
	return false
}

// Fractions lists every refund fraction the policy can produce, 1.0 included.
func (p Policy) Fractions() []decimal.Decimal {
	out := []decimal.Decimal{decimal.NewFromInt(1)}
	for _, s := range p.Schedules {
		for _, t := range s.Tiers {
			out = append(out, t.Fraction)
		}
		out = append(out, s.Floor.Fraction)
	}
	return out
}

// ItemTypes returns the configured item types in a stable order.
func (p Policy) ItemTypes() []ItemType {
	out := make([]ItemType, 0, len(p.Schedules))
	for it := range p.Schedules {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks the structural invariants a table must hold before it is used.
func (p Policy) Validate() error {
	if strings.TrimSpace(p.Version) == "" {
		return fmt.Errorf("%w: version required", ErrInvalidPolicy)
	}
	if _, ok := p.Schedules[ItemCars]; !ok {
		return fmt.Errorf("%w: %s schedule required as fallback", ErrInvalidPolicy, ItemCars)
	}
	one := decimal.NewFromInt(1)
	checkFraction := func(item ItemType, t Tier) error {
		if t.Label == "" {
			return fmt.Errorf("%w: %s tier without label", ErrInvalidPolicy, item)
		}
		if t.Fraction.IsNegative() || t.Fraction.GreaterThan(one) {
			return fmt.Errorf("%w: %s tier %s fraction %s outside [0,1]", ErrInvalidPolicy, item, t.Label, t.Fraction)
		}
		return nil
	}
	for item, s := range p.Schedules {
		if len(s.Tiers) == 0 {
			return fmt.Errorf("%w: %s has no tiers", ErrInvalidPolicy, item)
		}
		for i, t := range s.Tiers {
			if err := checkFraction(item, t); err != nil {
				return err
			}
			if i > 0 && t.MinHours >= s.Tiers[i-1].MinHours {
				return fmt.Errorf("%w: %s thresholds must be strictly descending", ErrInvalidPolicy, item)
			}
		}
		if err := checkFraction(item, s.Floor); err != nil {
			return err
		}
	}
	if p.Fees.ProcessingRate.IsNegative() || p.Fees.ConciergeFlat.IsNegative() || p.Fees.InsuranceRate.IsNegative() {
		return fmt.Errorf("%w: fees must not be negative", ErrInvalidPolicy)
	}
	return nil
}
