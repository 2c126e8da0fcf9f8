package promo

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownCode is returned when a code is not present in the rule table.
	ErrUnknownCode = errors.New("promo code not recognised")
	// ErrInvalidRule indicates a rule definition that cannot produce a discount.
	ErrInvalidRule = errors.New("promo rule invalid")
)

// Rule kinds.
const (
	KindPercent = "percent"
	KindFixed   = "fixed"
)

// minorPerUnit mirrors pricing.MinorPerUnit; promo cannot import pricing.
const minorPerUnit = 100

// Rule captures how a single promo code reduces the subtotal. Amounts are minor units.
type Rule struct {
	Code       string
	Kind       string
	PercentBps int64
	Value      int64
	Cap        int64
	// RoundTo is the granularity percent discounts are rounded to (nearest).
	RoundTo int64
}

// Table maps normalised codes to their rule.
type Table map[string]Rule

// Default returns the storefront's fixed rule table.
func Default() Table {
	return Table{
		"BEZVA10": {
			Code:       "BEZVA10",
			Kind:       KindPercent,
			PercentBps: 1000,
			Cap:        2000 * minorPerUnit,
			RoundTo:    minorPerUnit,
		},
		"FREESHIP": {
			Code:  "FREESHIP",
			Kind:  KindFixed,
			Value: 300 * minorPerUnit,
		},
	}
}

// Normalize trims and upper-cases a user supplied code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup resolves a code after normalisation.
func (t Table) Lookup(code string) (Rule, bool) {
	normalized := Normalize(code)
	if normalized == "" || t == nil {
		return Rule{}, false
	}
	rule, ok := t[normalized]
	return rule, ok
}

// Resolve is Lookup for callers that want an error: codes missing from the table
// yield ErrUnknownCode.
func (t Table) Resolve(code string) (Rule, error) {
	rule, ok := t.Lookup(code)
	if !ok {
		return Rule{}, fmt.Errorf("%q: %w", Normalize(code), ErrUnknownCode)
	}
	return rule, nil
}

// Codes lists the known codes in lexical order.
func (t Table) Codes() []string {
	codes := make([]string, 0, len(t))
	for code := range t {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Validate checks every rule of the table.
func (t Table) Validate() error {
	var errs []error
	for code, rule := range t {
		if code != Normalize(code) || code != rule.Code {
			errs = append(errs, fmt.Errorf("%s: code must be normalised and match the key: %w", code, ErrInvalidRule))
			continue
		}
		if err := rule.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", code, err))
		}
	}
	return errors.Join(errs...)
}

// Validate ensures the rule can produce a discount.
func (r Rule) Validate() error {
	switch strings.ToLower(r.Kind) {
	case KindPercent:
		if r.PercentBps <= 0 || r.PercentBps > 10000 {
			return fmt.Errorf("percent must be within (0, 10000] bps: %w", ErrInvalidRule)
		}
	case KindFixed:
		if r.Value <= 0 {
			return fmt.Errorf("fixed value must be positive: %w", ErrInvalidRule)
		}
	default:
		return fmt.Errorf("unknown kind %q: %w", r.Kind, ErrInvalidRule)
	}
	if r.Cap < 0 || r.RoundTo < 0 {
		return fmt.Errorf("cap and rounding must not be negative: %w", ErrInvalidRule)
	}
	return nil
}

// Discount computes the reduction for the provided subtotal, always within [0, subtotal].
func (r Rule) Discount(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	var discount int64
	switch strings.ToLower(r.Kind) {
	case KindPercent:
		if r.PercentBps <= 0 {
			return 0
		}
		step := r.RoundTo
		if step <= 0 {
			step = 1
		}
		denom := 10000 * step
		discount = (subtotal*r.PercentBps + denom/2) / denom * step
	case KindFixed:
		discount = r.Value
	default:
		return 0
	}
	if r.Cap > 0 && discount > r.Cap {
		discount = r.Cap
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		return 0
	}
	return discount
}
