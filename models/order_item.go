package models

import "github.com/shopspring/decimal"

// OrderItem is an immutable snapshot of a catalog line at the time of sale.
// It is embedded in Order as JSON rather than kept in its own table.
type OrderItem struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	TaxGroup  TaxGroup        `json:"tax_group"`
	// TaxAmount is the display share of the order tax; the order totals are authoritative.
	TaxAmount decimal.Decimal `json:"tax_amount"`
}

// Subtotal returns price * quantity before tax.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
