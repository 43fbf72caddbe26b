package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBreakdown_Hundred(t *testing.T) {
	b, err := NewTaxCalculator().ComputeBreakdown(dec("100.00"))
	require.NoError(t, err)

	assert.True(t, b.NHIL.Equal(dec("2.50")), b.NHIL.String())
	assert.True(t, b.GETFund.Equal(dec("2.50")))
	assert.True(t, b.COVID.Equal(dec("1.00")))
	assert.True(t, b.VatableAmount.Equal(dec("106.00")))
	assert.True(t, b.VAT.Equal(dec("15.90")))
	assert.True(t, b.TotalTax.Equal(dec("21.90")))
	assert.True(t, b.GrandTotal.Equal(dec("121.90")))
}

func TestComputeBreakdown_Identities(t *testing.T) {
	tc := TaxCalculator{}
	for _, base := range []string{"0", "0.01", "1", "19.99", "45", "100", "333.33", "1234567.89"} {
		t.Run(base, func(t *testing.T) {
			b, err := tc.ComputeBreakdown(dec(base))
			require.NoError(t, err)

			levies := b.NHIL.Add(b.GETFund).Add(b.COVID)
			assert.True(t, b.GrandTotal.Equal(b.BaseAmount.Add(levies).Add(b.VAT)))
			assert.True(t, b.VAT.Equal(RateVAT.Mul(b.BaseAmount.Add(levies))))
			assert.True(t, b.TotalTax.Equal(levies.Add(b.VAT)))
		})
	}
}

func TestComputeBreakdown_RoundsOnlyAtPresentation(t *testing.T) {
	b, err := NewTaxCalculator().ComputeBreakdown(dec("45"))
	require.NoError(t, err)

	// 45 * 0.025 = 1.125 stays exact until Rounded.
	assert.Equal(t, "1.125", b.NHIL.String())
	r := b.Rounded()
	assert.Equal(t, "1.13", r.NHIL.StringFixed(2))
	assert.Equal(t, "54.86", r.GrandTotal.StringFixed(2))
}

func TestComputeBreakdown_NegativeBase(t *testing.T) {
	_, err := NewTaxCalculator().ComputeBreakdown(dec("-0.01"))
	assert.ErrorIs(t, err, ErrValidation)
}
