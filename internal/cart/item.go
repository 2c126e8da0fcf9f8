package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/noah-isme/bezva-storefront/internal/pricing"
)

// Quantity bounds applied on every mutation.
const (
	MinQty = 1
	MaxQty = 99
)

// Meta carries the customer's selection attributes for a line (date, time, days,
// participants, add-on services). It is opaque to pricing.
type Meta map[string]any

// Item is one cart line, identified by Key.
type Item struct {
	Key       string
	ProductID string
	Name      string
	UnitPrice pricing.Money
	Qty       int
	Image     string
	Meta      Meta
}

// Amount returns unit price times quantity.
func (i Item) Amount() pricing.Money {
	return i.UnitPrice * pricing.Money(i.Qty)
}

func (i Item) clone() Item {
	out := i
	out.Meta = cloneMeta(i.Meta)
	return out
}

func cloneMeta(meta Meta) Meta {
	if len(meta) == 0 {
		return nil
	}
	out := make(Meta, len(meta))
	for k, v := range meta {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = cloneValue(x)
		}
		return out
	case Meta:
		return map[string]any(cloneMeta(t))
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = cloneValue(x)
		}
		return out
	default:
		return v
	}
}

// ClampQty bounds q to [MinQty, MaxQty].
func ClampQty(q int) int {
	if q < MinQty {
		return MinQty
	}
	if q > MaxQty {
		return MaxQty
	}
	return q
}

// LineKey derives the identity of a line: the product id followed by the canonical
// JSON of meta. Map keys are emitted in sorted order at every depth, HTML characters
// are not escaped and an empty or nil meta serialises as {}. Two selections with the
// same content therefore produce the same key regardless of insertion order.
func LineKey(productID string, meta Meta) (string, error) {
	key, _, err := lineIdentity(productID, meta)
	return key, err
}

// lineIdentity returns the key together with a private copy of meta decoded from the
// same canonical JSON, so the stored attributes always match the key and share no
// nested values with the caller.
func lineIdentity(productID string, meta Meta) (string, Meta, error) {
	canonical, err := CanonicalMeta(meta)
	if err != nil {
		return "", nil, err
	}
	var owned Meta
	if canonical != "{}" {
		if err := json.Unmarshal([]byte(canonical), &owned); err != nil {
			return "", nil, fmt.Errorf("decode meta: %w", err)
		}
	}
	return strings.TrimSpace(productID) + canonical, owned, nil
}

// CanonicalMeta serialises meta with a stable field order.
func CanonicalMeta(meta Meta) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(meta)); err != nil {
		return "", fmt.Errorf("encode meta: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
