package catalog

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/noah-isme/bezva-storefront/internal/pricing"
)

// FormatPrice renders an optional list price; nil renders as "—".
func FormatPrice(price *float64) string {
	if price == nil {
		return "—"
	}
	return pricing.FormatUnits(*price)
}

// CardPrice is the price line of a catalog card: the daily rate, the price note or a
// quote-on-request label.
func CardPrice(p Product) string {
	if p.Price != nil && *p.Price != 0 {
		return FormatPrice(p.Price) + " / den"
	}
	if strings.TrimSpace(p.PriceNote) != "" {
		return p.PriceNote
	}
	return "Cena na dotaz"
}

// Stars renders rating rounded to whole stars, clamped to [0,5].
func Stars(rating float64) string {
	if math.IsNaN(rating) {
		rating = 0
	}
	r := int(math.Round(rating))
	r = max(0, min(5, r))
	return strings.Repeat("★", r)
}

var (
	nonSlug     = regexp.MustCompile(`[^a-z0-9]+`)
	separators  = regexp.MustCompile(`[-_]`)
	multiSpaces = regexp.MustCompile(`\s{2,}`)
)

// Slugify lowercases name, strips diacritics and joins the remaining alphanumeric
// runs with dashes.
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		plain = strings.ToLower(name)
	}
	return strings.Trim(nonSlug.ReplaceAllString(plain, "-"), "-")
}

// Labelize turns a category id such as "party-vybaveni" into "Party vybaveni".
func Labelize(slug string) string {
	s := separators.ReplaceAllString(slug, " ")
	s = strings.TrimSpace(multiSpaces.ReplaceAllString(s, " "))
	if s == "" {
		return s
	}
	first := s[0]
	if first >= 'a' && first <= 'z' {
		return string(first-'a'+'A') + s[1:]
	}
	return s
}
