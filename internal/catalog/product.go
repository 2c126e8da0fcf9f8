package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ID identifies a product. Catalog sources use numbers; ids are kept as their decimal
// string so they can be matched against request paths and cart lines.
type ID string

// MarshalJSON emits canonical integer ids as JSON numbers.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a JSON number or string.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Service is an optional add-on offered with a rental item.
type Service struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Product is a rental item. Price is nil for items quoted individually; PriceNote
// then carries the label shown instead.
type Product struct {
	ID             ID             `json:"id"`
	Name           string         `json:"name"`
	Price          *float64       `json:"price"`
	PriceNote      string         `json:"priceNote,omitempty"`
	Image          string         `json:"image,omitempty"`
	Images         []string       `json:"images,omitempty"`
	Description    string         `json:"description,omitempty"`
	Dimensions     string         `json:"dimensions,omitempty"`
	Capacity       string         `json:"capacity,omitempty"`
	Age            string         `json:"age,omitempty"`
	Weight         string         `json:"weight,omitempty"`
	Category       string         `json:"category,omitempty"`
	Available      bool           `json:"available"`
	Rating         *float64       `json:"rating,omitempty"`
	ReviewCount    int            `json:"reviewCount,omitempty"`
	Specifications map[string]any `json:"specifications,omitempty"`
	Services       []Service      `json:"services,omitempty"`
	Included       []string       `json:"included,omitempty"`
	Safety         []string       `json:"safety,omitempty"`
}

// HasPrice reports whether the product has a finite list price.
func (p Product) HasPrice() bool {
	return p.Price != nil
}

// Summary joins dimensions, capacity and age for card rendering.
func (p Product) Summary() string {
	parts := make([]string, 0, 3)
	for _, v := range []string{p.Dimensions, p.Capacity, p.Age} {
		if strings.TrimSpace(v) != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " • ")
}

// Category groups products.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Products    []Product `json:"products,omitempty"`
}
