package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNormalizesCurrency(t *testing.T) {
	m, err := New(decimal.NewFromInt(10), " usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency)

	_, err = New(decimal.NewFromInt(10), "dollars")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestMinorUnitConversion(t *testing.T) {
	tests := []struct {
		name     string
		minor    int64
		currency string
		major    string
	}{
		{name: "cents", minor: 123456, currency: "USD", major: "1234.56"},
		{name: "zero decimal", minor: 5000, currency: "JPY", major: "5000"},
		{name: "three decimal", minor: 1500, currency: "KWD", major: "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := FromMinorUnits(tt.minor, tt.currency)
			require.NoError(t, err)
			assert.True(t, m.Amount.Equal(decimal.RequireFromString(tt.major)), "got %s", m.Amount)
			assert.Equal(t, tt.minor, m.MinorUnits())
		})
	}
}

func TestMinorUnitsRoundsHalfAwayFromZero(t *testing.T) {
	m := Must(decimal.RequireFromString("61.725"), "USD")
	assert.Equal(t, int64(6173), m.MinorUnits())

	m = Must(decimal.RequireFromString("61.724"), "USD")
	assert.Equal(t, int64(6172), m.MinorUnits())
}

func TestArithmeticRequiresSameCurrency(t *testing.T) {
	usd := Must(decimal.NewFromInt(100), "USD")
	eur := Must(decimal.NewFromInt(10), "EUR")

	_, err := usd.Sub(eur)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	sum, err := usd.Add(Must(decimal.NewFromInt(5), "USD"))
	require.NoError(t, err)
	assert.Equal(t, "105.00 USD", sum.String())
}
