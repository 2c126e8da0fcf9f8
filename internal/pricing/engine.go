package pricing

import (
	"math"

	"github.com/noah-isme/bezva-storefront/internal/promo"
)

// Money represents a monetary value stored in minor units (haléř).
type Money = int64

// MinorPerUnit is the number of minor units in one koruna.
const MinorPerUnit Money = 100

// MaxPrice bounds a unit price. Amounts beyond it are clamped so line and cart
// totals stay inside int64.
const MaxPrice Money = 1_000_000_000 * MinorPerUnit

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money
	Discount Money
	Total    Money
}

// Engine computes totals against a promo rule table.
type Engine struct {
	Rules promo.Table
}

var defaultEngine = Engine{Rules: promo.Default()}

// Compute calculates cart totals with the storefront's default promo table.
func Compute(items []Item, code string) Summary {
	return defaultEngine.Compute(items, code)
}

// Compute calculates subtotal, discount and total. It has no side effects.
func (e Engine) Compute(items []Item, code string) Summary {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 || it.UnitPrice <= 0 {
			continue
		}
		subtotal = addSat(subtotal, mulSat(min(it.UnitPrice, MaxPrice), Money(it.Qty)))
	}
	var discount Money
	if rule, ok := e.Rules.Lookup(code); ok {
		discount = rule.Discount(subtotal)
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	total := subtotal - discount
	if total < 0 {
		total = 0
	}
	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Total:    total,
	}
}

// Units converts whole koruna into Money.
func Units(v int64) Money {
	return v * MinorPerUnit
}

// FromUnits converts a decimal koruna amount into Money, rounding half away from zero.
// Non-finite input yields zero; magnitudes above MaxPrice are clamped to it.
func FromUnits(v float64) Money {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	m := math.Round(v * float64(MinorPerUnit))
	switch {
	case m > float64(MaxPrice):
		return MaxPrice
	case m < -float64(MaxPrice):
		return -MaxPrice
	}
	return Money(m)
}

// ValidUnits reports whether v is a finite, non-negative koruna amount no larger
// than MaxPrice.
func ValidUnits(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v*float64(MinorPerUnit) <= float64(MaxPrice)
}

func mulSat(a, b Money) Money {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}

func addSat(a, b Money) Money {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// ToUnits converts Money back into decimal koruna.
func ToUnits(m Money) float64 {
	return float64(m) / float64(MinorPerUnit)
}
