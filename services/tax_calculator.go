package services

import (
	"github.com/shopspring/decimal"
)

// Statutory rates. The three levies apply to the base; VAT applies to the
// base plus levies.
var (
	RateNHIL    = decimal.RequireFromString("0.025")
	RateGETFund = decimal.RequireFromString("0.025")
	RateCOVID   = decimal.RequireFromString("0.01")
	RateVAT     = decimal.RequireFromString("0.15")
)

// TaxBreakdown holds exact values; call Rounded before showing them.
type TaxBreakdown struct {
	BaseAmount    decimal.Decimal `json:"base_amount"`
	NHIL          decimal.Decimal `json:"nhil"`
	GETFund       decimal.Decimal `json:"getfund"`
	COVID         decimal.Decimal `json:"covid"`
	LeviesTotal   decimal.Decimal `json:"levies_total"`
	VatableAmount decimal.Decimal `json:"vatable_amount"`
	VAT           decimal.Decimal `json:"vat"`
	TotalTax      decimal.Decimal `json:"total_tax"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

// TaxCalculator computes the statutory breakdown. The zero value uses the
// statutory rates.
type TaxCalculator struct {
	NHIL    decimal.Decimal
	GETFund decimal.Decimal
	COVID   decimal.Decimal
	VAT     decimal.Decimal
}

func NewTaxCalculator() TaxCalculator {
	return TaxCalculator{NHIL: RateNHIL, GETFund: RateGETFund, COVID: RateCOVID, VAT: RateVAT}
}

// ComputeBreakdown must be called once on an order's aggregate taxable
// subtotal, never per line, so rounding happens once at presentation.
func (tc TaxCalculator) ComputeBreakdown(base decimal.Decimal) (TaxBreakdown, error) {
	if base.IsNegative() {
		return TaxBreakdown{}, validationErrorf("tax base must not be negative, got %s", base.String())
	}
	if tc.VAT.IsZero() && tc.NHIL.IsZero() && tc.GETFund.IsZero() && tc.COVID.IsZero() {
		tc = NewTaxCalculator()
	}

	nhil := base.Mul(tc.NHIL)
	getfund := base.Mul(tc.GETFund)
	covid := base.Mul(tc.COVID)
	levies := nhil.Add(getfund).Add(covid)
	vatable := base.Add(levies)
	vat := vatable.Mul(tc.VAT)

	return TaxBreakdown{
		BaseAmount:    base,
		NHIL:          nhil,
		GETFund:       getfund,
		COVID:         covid,
		LeviesTotal:   levies,
		VatableAmount: vatable,
		VAT:           vat,
		TotalTax:      levies.Add(vat),
		GrandTotal:    vatable.Add(vat),
	}, nil
}

// Rounded returns the breakdown rounded to two fraction digits. GrandTotal and
// TotalTax are rounded from the exact values, not summed from rounded parts.
func (b TaxBreakdown) Rounded() TaxBreakdown {
	return TaxBreakdown{
		BaseAmount:    b.BaseAmount.Round(2),
		NHIL:          b.NHIL.Round(2),
		GETFund:       b.GETFund.Round(2),
		COVID:         b.COVID.Round(2),
		LeviesTotal:   b.LeviesTotal.Round(2),
		VatableAmount: b.VatableAmount.Round(2),
		VAT:           b.VAT.Round(2),
		TotalTax:      b.TotalTax.Round(2),
		GrandTotal:    b.GrandTotal.Round(2),
	}
}
