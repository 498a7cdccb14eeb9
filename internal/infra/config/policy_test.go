package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxrent/internal/domain/refund"
)

const customPolicy = `
version: "2025-06"
fees:
  processingRate: 0.03
  conciergeFlat: 50
  insuranceRate: 0.05
fullRefundReasons: [force_majeure]
schedules:
  cars:
    tiers:
      - {label: "24h+", minHours: 24, fraction: 1}
    floor: {label: "<24h", fraction: 0.5}
`

func TestLoadPolicyDefaultsWithoutPath(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, refund.DefaultPolicyVersion, p.Version)
}

func TestLoadPolicyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customPolicy), 0o600))

	p, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, "2025-06", p.Version)
	assert.True(t, p.IsFullRefundReason("force_majeure"))
	assert.False(t, p.IsFullRefundReason("medical_emergency"))

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	calc := refund.Calculate(p, refund.BookingSnapshot{
		OriginalAmount: decimal.NewFromInt(1000),
		Currency:       "usd",
		ItemType:       refund.ItemCars,
		StartDateTime:  now.Add(30 * time.Hour),
	}, "changed_mind", now)
	assert.Equal(t, "24h+", calc.PolicyApplied)
	assert.Equal(t, "2025-06", calc.PolicyVersion)
	assert.True(t, calc.RefundAmount.Equal(decimal.NewFromInt(870)), calc.RefundAmount.String())
}

func TestParsePolicyRejectsInvalidTables(t *testing.T) {
	_, err := ParsePolicy([]byte("version: x\nschedules: {}\n"))
	assert.ErrorIs(t, err, refund.ErrInvalidPolicy)

	_, err = ParsePolicy([]byte("version: [unclosed"))
	assert.Error(t, err)
}

func TestMarshalPolicyPreservesCalculations(t *testing.T) {
	data, err := MarshalPolicy(refund.DefaultPolicy())
	require.NoError(t, err)
	p, err := ParsePolicy(data)
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, item := range []refund.ItemType{refund.ItemCars, refund.ItemYachts, refund.ItemJets, refund.ItemProperties} {
		for _, hours := range []float64{-5, 10, 30, 50, 100, 200, 400} {
			snap := refund.BookingSnapshot{
				OriginalAmount: decimal.RequireFromString("4321.55"),
				Currency:       "eur",
				ItemType:       item,
				StartDateTime:  now.Add(time.Duration(hours * float64(time.Hour))),
			}
			want := refund.Calculate(refund.DefaultPolicy(), snap, "changed_mind", now)
			got := refund.Calculate(p, snap, "changed_mind", now)
			assert.True(t, want.RefundAmount.Equal(got.RefundAmount), "%s at %vh", item, hours)
			assert.Equal(t, want.PolicyApplied, got.PolicyApplied)
		}
	}
}
