package refund

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func snapshot(item ItemType, amount string, hoursBefore float64) BookingSnapshot {
	return BookingSnapshot{
		OriginalAmount: decimal.RequireFromString(amount),
		Currency:       "usd",
		ItemType:       item,
		ItemName:       "Test " + string(item),
		StartDateTime:  fixedNow.Add(time.Duration(hoursBefore * float64(time.Hour))),
		CustomerEmail:  "jane.doe@example.com",
		BookingID:      "bk_1",
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s: want %s, got %s", field, want, got)
}

func TestCalculateScenarios(t *testing.T) {
	tests := []struct {
		name       string
		snap       BookingSnapshot
		reason     string
		refund     string
		percentage string
		gross      string
		feesTotal  string
		policy     string
	}{
		{
			name:       "cars 80 hours before start",
			snap:       snapshot(ItemCars, "1000", 80),
			reason:     "schedule_conflict",
			refund:     "750",
			percentage: "1.00",
			gross:      "1000",
			feesTotal:  "250",
			policy:     "72h+",
		},
		{
			name:       "yachts 10 hours before start",
			snap:       snapshot(ItemYachts, "5000", 10),
			reason:     "changed_mind",
			refund:     "150",
			percentage: "0.20",
			gross:      "1000",
			feesTotal:  "850",
			policy:     "<24h",
		},
		{
			name:       "properties 400 hours before start",
			snap:       snapshot(ItemProperties, "3000", 400),
			reason:     "changed_mind",
			refund:     "2450",
			percentage: "1.00",
			gross:      "3000",
			feesTotal:  "550",
			policy:     "336h+",
		},
		{
			name:       "small car booking clamps to zero",
			snap:       snapshot(ItemCars, "100", 5),
			reason:     "changed_mind",
			refund:     "0",
			percentage: "0.25",
			gross:      "25",
			feesTotal:  "115",
			policy:     "<24h",
		},
		{
			name:       "cancelling after start uses floor tier",
			snap:       snapshot(ItemJets, "10000", -12),
			reason:     "changed_mind",
			refund:     "0",
			percentage: "0.15",
			gross:      "1500",
			feesTotal:  "1600",
			policy:     "<24h",
		},
		{
			name:       "properties 30 hours keeps 48h+ fraction",
			snap:       snapshot(ItemProperties, "10000", 30),
			reason:     "changed_mind",
			refund:     "3400",
			percentage: "0.50",
			gross:      "5000",
			feesTotal:  "1600",
			policy:     "48h+",
		},
		{
			name:       "unknown item type falls back to cars",
			snap:       snapshot(ItemType("helicopters"), "1000", 50),
			reason:     "changed_mind",
			refund:     "500",
			percentage: "0.75",
			gross:      "750",
			feesTotal:  "250",
			policy:     "48h+",
		},
	}

	policy := DefaultPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := Calculate(policy, tt.snap, tt.reason, fixedNow)

			assertDecimal(t, tt.refund, calc.RefundAmount, "refund")
			assertDecimal(t, tt.percentage, calc.RefundPercentage, "percentage")
			require.NotNil(t, calc.GrossRefund)
			assertDecimal(t, tt.gross, *calc.GrossRefund, "gross")
			assertDecimal(t, tt.feesTotal, calc.Fees.Total, "fees total")
			assert.Equal(t, tt.policy, calc.PolicyApplied)
			assert.Equal(t, DefaultPolicyVersion, calc.PolicyVersion)
			assert.Equal(t, "USD", calc.Currency)
		})
	}
}

func TestCalculateFeeBreakdown(t *testing.T) {
	calc := Calculate(DefaultPolicy(), snapshot(ItemCars, "1000", 80), "schedule_conflict", fixedNow)

	assertDecimal(t, "50", calc.Fees.Processing, "processing")
	assertDecimal(t, "100", calc.Fees.ConciergeService, "concierge")
	assertDecimal(t, "100", calc.Fees.Insurance, "insurance")
	require.NotNil(t, calc.HoursUntilStart)
	assert.Equal(t, 80, *calc.HoursUntilStart)
	assert.Equal(t, "100% refund per cars cancellation policy", calc.Reason)
}

func TestCalculateOverride(t *testing.T) {
	policy := DefaultPolicy()

	t.Run("full refund reason", func(t *testing.T) {
		calc := Calculate(policy, snapshot(ItemJets, "2000", 1), "weather_cancellation", fixedNow)

		assertDecimal(t, "2000", calc.RefundAmount, "refund")
		assertDecimal(t, "1", calc.RefundPercentage, "percentage")
		assert.Equal(t, FullRefundPolicy, calc.PolicyApplied)
		assert.Equal(t, "Full refund due to special circumstances", calc.Reason)
		assert.True(t, calc.Fees.Total.IsZero())
		assert.Nil(t, calc.GrossRefund)
		assert.Nil(t, calc.HoursUntilStart)
		assert.True(t, calc.IsFullRefundOverride())
	})

	t.Run("special circumstances flag", func(t *testing.T) {
		snap := snapshot(ItemYachts, "8000", -48)
		snap.SpecialCircumstances = true
		calc := Calculate(policy, snap, "changed_mind", fixedNow)

		assertDecimal(t, "8000", calc.RefundAmount, "refund")
		assert.Equal(t, FullRefundPolicy, calc.PolicyApplied)
	})

	t.Run("reason match is exact", func(t *testing.T) {
		calc := Calculate(policy, snapshot(ItemCars, "1000", 80), "Weather_Cancellation", fixedNow)
		assert.Equal(t, "72h+", calc.PolicyApplied)
	})
}

func TestCalculateTierBoundaries(t *testing.T) {
	policy := DefaultPolicy()
	tests := []struct {
		hours  float64
		policy string
	}{
		{hours: 72, policy: "72h+"},
		{hours: 71.99, policy: "48h+"},
		{hours: 48, policy: "48h+"},
		{hours: 24, policy: "24h+"},
		{hours: 23.999, policy: "<24h"},
		{hours: 0, policy: "<24h"},
	}
	for _, tt := range tests {
		calc := Calculate(policy, snapshot(ItemCars, "1000", tt.hours), "changed_mind", fixedNow)
		assert.Equal(t, tt.policy, calc.PolicyApplied, "hours=%v", tt.hours)
	}
}

func TestCalculateItemTypeMatchesExactly(t *testing.T) {
	policy := DefaultPolicy()

	mixed := Calculate(policy, snapshot("Yachts", "1000", 100), "changed_mind", fixedNow)
	assertDecimal(t, "1", mixed.RefundPercentage, "percentage")
	assert.Equal(t, "72h+", mixed.PolicyApplied)
	assert.Contains(t, mixed.Reason, "per Yachts cancellation policy")

	exact := Calculate(policy, snapshot(ItemYachts, "1000", 100), "changed_mind", fixedNow)
	assertDecimal(t, "0.8", exact.RefundPercentage, "percentage")

	empty := Calculate(policy, snapshot("", "1000", 100), "changed_mind", fixedNow)
	assertDecimal(t, "1", empty.RefundPercentage, "percentage")
	assert.Contains(t, empty.Reason, "per cars cancellation policy")
}

func TestCalculateMonotonicInHours(t *testing.T) {
	policy := DefaultPolicy()
	for _, item := range []ItemType{ItemCars, ItemYachts, ItemJets, ItemProperties} {
		for _, amount := range []string{"50", "999.99", "25000"} {
			prev := decimal.NewFromInt(-1)
			for hours := -100.0; hours <= 500; hours += 0.5 {
				calc := Calculate(policy, snapshot(item, amount, hours), "changed_mind", fixedNow)
				assert.False(t, calc.RefundAmount.LessThan(prev), "%s %s at %vh decreased", item, amount, hours)
				prev = calc.RefundAmount
			}
		}
	}
}

func TestCalculateInvariants(t *testing.T) {
	policy := DefaultPolicy()
	allowed := policy.Fractions()
	reasons := []string{"changed_mind", "medical_emergency", ""}
	for _, item := range []ItemType{ItemCars, ItemYachts, ItemJets, ItemProperties, "unknown"} {
		for _, amount := range []string{"0.01", "99.99", "100", "1234.56", "1000000"} {
			for _, hours := range []float64{-30, 0, 12, 24, 36, 48, 60, 72, 100, 168, 200, 336, 1000} {
				for _, reason := range reasons {
					snap := snapshot(item, amount, hours)
					calc := Calculate(policy, snap, reason, fixedNow)

					assert.False(t, calc.RefundAmount.IsNegative())
					assert.False(t, calc.RefundAmount.GreaterThan(snap.OriginalAmount))
					assert.True(t, calc.Fees.Total.Equal(calc.Fees.Processing.Add(calc.Fees.ConciergeService).Add(calc.Fees.Insurance)))

					found := false
					for _, f := range allowed {
						if f.Equal(calc.RefundPercentage) {
							found = true
							break
						}
					}
					assert.True(t, found, "unexpected fraction %s", calc.RefundPercentage)
				}
			}
		}
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	policy := DefaultPolicy()
	snap := snapshot(ItemYachts, "5000", 10)

	first, err := json.Marshal(Calculate(policy, snap, "changed_mind", fixedNow))
	require.NoError(t, err)
	second, err := json.Marshal(Calculate(policy, snap, "changed_mind", fixedNow))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCalculatorUsesClock(t *testing.T) {
	calc := Calculator{Policy: DefaultPolicy(), Now: func() time.Time { return fixedNow }}
	result := calc.Calculate(snapshot(ItemCars, "1000", 80), "schedule_conflict")
	assert.Equal(t, "72h+", result.PolicyApplied)
}
