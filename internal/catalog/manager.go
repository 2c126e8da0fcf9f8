package catalog

import (
	"errors"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrNotFound is returned when a product id is unknown.
var ErrNotFound = errors.New("product not found")

// Sort orders accepted by Manager.Sort.
const (
	SortName      = "name"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
)

// missingPriceLow places unpriced items last when sorting cheapest first.
const missingPriceLow = 1e12

// Manager answers catalog queries over an immutable in-memory product list.
type Manager struct {
	products   []Product
	categories []Category
	index      map[ID]int
}

// NewManager flattens categories into the product list. Products take the id of the
// enclosing category.
func NewManager(categories []Category) *Manager {
	m := &Manager{index: make(map[ID]int)}
	for _, c := range categories {
		for _, p := range c.Products {
			if c.ID != "" {
				p.Category = c.ID
			}
			m.add(p)
		}
		c.Products = nil
		m.categories = append(m.categories, c)
	}
	return m
}

// NewManagerFromProducts builds a manager from a flat list. Categories are derived
// from the distinct category ids in order of appearance.
func NewManagerFromProducts(products []Product) *Manager {
	m := &Manager{index: make(map[ID]int)}
	seen := make(map[string]struct{})
	for _, p := range products {
		m.add(p)
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		m.categories = append(m.categories, Category{ID: p.Category, Name: Labelize(p.Category)})
	}
	return m
}

func (m *Manager) add(p Product) {
	if _, dup := m.index[p.ID]; dup || p.ID == "" {
		return
	}
	m.index[p.ID] = len(m.products)
	m.products = append(m.products, p)
}

// Len returns the number of products.
func (m *Manager) Len() int { return len(m.products) }

// All returns a copy of every product in catalog order.
func (m *Manager) All() []Product {
	out := make([]Product, len(m.products))
	copy(out, m.products)
	return out
}

// Categories returns a copy of the category list without nested products.
func (m *Manager) Categories() []Category {
	out := make([]Category, len(m.categories))
	copy(out, m.categories)
	return out
}

// ProductByID looks a product up by id.
func (m *Manager) ProductByID(id string) (Product, error) {
	pos, ok := m.index[ID(strings.TrimSpace(id))]
	if !ok {
		return Product{}, ErrNotFound
	}
	return m.products[pos], nil
}

// Search returns products whose name contains q, case-insensitively. An empty query
// returns everything.
func (m *Manager) Search(q string) []Product {
	return searchIn(m.products, q)
}

// FilterByCategory returns products in the category id, case-insensitively.
func (m *Manager) FilterByCategory(id string) []Product {
	return filterIn(m.products, id)
}

// Sort returns a sorted copy of items. Unknown orders sort by name with Czech
// collation.
func (m *Manager) Sort(items []Product, by string) []Product {
	out := make([]Product, len(items))
	copy(out, items)
	switch by {
	case SortPriceLow:
		sort.SliceStable(out, func(i, j int) bool {
			return priceOr(out[i], missingPriceLow) < priceOr(out[j], missingPriceLow)
		})
	case SortPriceHigh:
		sort.SliceStable(out, func(i, j int) bool {
			return priceOr(out[i], 0) > priceOr(out[j], 0)
		})
	default:
		col := collate.New(language.Czech)
		sort.SliceStable(out, func(i, j int) bool {
			return col.CompareString(out[i].Name, out[j].Name) < 0
		})
	}
	return out
}

// Params are the grid filters.
type Params struct {
	Query    string
	Category string
	Sort     string
}

// ParseParams reads q, category and sort from query values.
func ParseParams(values url.Values) Params {
	p := Params{
		Query:    strings.TrimSpace(values.Get("q")),
		Category: strings.TrimSpace(values.Get("category")),
		Sort:     strings.TrimSpace(values.Get("sort")),
	}
	if p.Sort == "" {
		p.Sort = SortName
	}
	return p
}

// Query applies the category filter, then the name search, then the sort.
func (m *Manager) Query(p Params) []Product {
	items := m.products
	if p.Category != "" {
		items = filterIn(items, p.Category)
	}
	if p.Query != "" {
		items = searchIn(items, p.Query)
	}
	return m.Sort(items, p.Sort)
}

// CategoryOption is a category selector entry.
type CategoryOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// CategoryOptions lists the distinct product categories in order of first
// appearance with a readable label.
func (m *Manager) CategoryOptions() []CategoryOption {
	seen := make(map[string]struct{})
	var out []CategoryOption
	for _, p := range m.products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, CategoryOption{Value: p.Category, Label: Labelize(p.Category)})
	}
	return out
}

func searchIn(items []Product, q string) []Product {
	needle := strings.ToLower(strings.TrimSpace(q))
	if needle == "" {
		out := make([]Product, len(items))
		copy(out, items)
		return out
	}
	out := make([]Product, 0, len(items))
	for _, p := range items {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
		}
	}
	return out
}

func filterIn(items []Product, category string) []Product {
	id := strings.TrimSpace(category)
	if id == "" {
		out := make([]Product, len(items))
		copy(out, items)
		return out
	}
	out := make([]Product, 0, len(items))
	for _, p := range items {
		if strings.EqualFold(p.Category, id) {
			out = append(out, p)
		}
	}
	return out
}

func priceOr(p Product, fallback float64) float64 {
	if p.Price == nil {
		return fallback
	}
	return *p.Price
}
