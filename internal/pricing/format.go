package pricing

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CurrencySuffix is appended to formatted amounts.
const CurrencySuffix = " Kč"

// FormatUnits renders a koruna amount with Czech digit grouping, e.g. "8 900 Kč" or
// "1 000,5 Kč". Non-finite input renders as "—".
func FormatUnits(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "—"
	}
	p := message.NewPrinter(language.Czech)
	return p.Sprint(number.Decimal(v, number.MaxFractionDigits(2))) + CurrencySuffix
}

// Format renders m in koruna.
func Format(m Money) string {
	return FormatUnits(ToUnits(m))
}
