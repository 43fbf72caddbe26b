package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrencyGHS formats an amount in Ghana cedis, rounding half away from
// zero to pesewas.
// Example: 1234.5 -> "GH₵ 1,234.50"
func FormatCurrencyGHS(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	return "GH₵ " + sign + FormatCurrency(amount)
}

// FormatCurrency formats an amount with comma thousands separators and two
// fraction digits, without a currency symbol.
func FormatCurrency(amount decimal.Decimal) string {
	formatted := amount.StringFixed(2)

	// Pisahkan bagian desimal
	parts := strings.SplitN(formatted, ".", 2)
	integerPart := parts[0]
	decimalPart := parts[1]

	neg := strings.HasPrefix(integerPart, "-")
	integerPart = strings.TrimPrefix(integerPart, "-")

	// Tambahkan pemisah ribuan
	var result []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		result = append([]string{integerPart[start:i]}, result...)
	}

	out := strings.Join(result, ",") + "." + decimalPart
	if neg {
		out = "-" + out
	}
	return out
}
