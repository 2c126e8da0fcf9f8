package panel

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"strconv"

	"github.com/noah-isme/bezva-storefront/internal/cart"
	"github.com/noah-isme/bezva-storefront/internal/pricing"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// LineView is one rendered cart line.
type LineView struct {
	Key     string
	Name    string
	Image   string
	Qty     int
	Amount  string
	Details []string
}

// TotalsView holds the formatted panel footer amounts.
type TotalsView struct {
	Subtotal string
	Discount string
	Total    string
	Promo    string
}

// NewLineView formats a cart line.
func NewLineView(it cart.Item) LineView {
	return LineView{
		Key:     it.Key,
		Name:    it.Name,
		Image:   it.Image,
		Qty:     it.Qty,
		Amount:  pricing.Format(it.Amount()),
		Details: metaDetails(it.Meta),
	}
}

// NewTotalsView formats a pricing summary. The discount is shown negated.
func NewTotalsView(s pricing.Summary, promo string) TotalsView {
	return TotalsView{
		Subtotal: pricing.Format(s.Subtotal),
		Discount: "-" + pricing.Format(s.Discount),
		Total:    pricing.Format(s.Total),
		Promo:    promo,
	}
}

// metaDetails lists the selection attributes shown under a line title.
func metaDetails(meta cart.Meta) []string {
	var out []string
	labels := []struct{ key, label string }{
		{"date", "Datum"},
		{"time", "Čas"},
		{"days", "Dní"},
		{"participants", "Účastníků"},
	}
	for _, l := range labels {
		if v, ok := meta[l.key]; ok && truthy(v) {
			out = append(out, fmt.Sprintf("%s: %s", l.label, display(v)))
		}
	}
	services, _ := meta["services"].([]any)
	for _, raw := range services {
		svc, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name := display(svc["name"])
		price := 0.0
		switch p := svc["price"].(type) {
		case float64:
			price = p
		case int:
			price = float64(p)
		}
		out = append(out, fmt.Sprintf("• %s (%s)", name, pricing.FormatUnits(price)))
	}
	return out
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	default:
		return true
	}
}

func display(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Renderer turns cart snapshots into panel markup.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded panel templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("panel").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("panel: parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

type contentData struct {
	Lines []LineView
}

type panelData struct {
	Content template.HTML
	Totals  TotalsView
	Count   int
	Open    bool
}

// Content renders the item list, or the empty-state view when the cart is empty.
func (r *Renderer) Content(snap cart.Snapshot) (template.HTML, error) {
	if snap.Empty() {
		return r.execute("empty", nil)
	}
	lines := make([]LineView, 0, len(snap.Items))
	for _, it := range snap.Items {
		lines = append(lines, NewLineView(it))
	}
	return r.execute("items", contentData{Lines: lines})
}

// Panel renders the whole dialog including footer totals.
func (r *Renderer) Panel(snap cart.Snapshot, open bool) (template.HTML, error) {
	content, err := r.Content(snap)
	if err != nil {
		return "", err
	}
	return r.execute("panel", panelData{
		Content: content,
		Totals:  NewTotalsView(snap.Summary, snap.Promo),
		Count:   snap.Count,
		Open:    open,
	})
}

func (r *Renderer) execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("panel: render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}
