package catalog_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bezva-storefront/internal/catalog"
)

func names(items []catalog.Product) []string {
	out := make([]string, 0, len(items))
	for _, p := range items {
		out = append(out, p.Name)
	}
	return out
}

func price(v float64) *float64 { return &v }

func TestEmbeddedCatalog(t *testing.T) {
	m := catalog.Embedded()
	require.Equal(t, 19, m.Len())
	require.Len(t, m.Categories(), 5)
	for _, c := range m.Categories() {
		require.Empty(t, c.Products)
	}

	p, err := m.ProductByID("1")
	require.NoError(t, err)
	require.Equal(t, "BAGR SE SKLUZAVKOU", p.Name)
	require.Equal(t, 8900.0, *p.Price)
	require.Len(t, p.Services, 3)

	p, err = m.ProductByID(" 9 ")
	require.NoError(t, err)
	require.Nil(t, p.Price)
	require.Equal(t, "INDIVIDUÁLNÍ CENA", p.PriceNote)

	_, err = m.ProductByID("404")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestSearchAndFilter(t *testing.T) {
	m := catalog.Embedded()

	require.Equal(t, m.Len(), len(m.Search("  ")))
	require.Equal(t, []string{"BAGR SE SKLUZAVKOU", "VODNÍ SVĚT SE SKLUZAVKOU", "PIRÁTSKÁ LOĎ SE SKLUZAVKOU"}, names(m.Search("skluzavkou")))
	require.Empty(t, m.Search("trampolína"))

	require.Len(t, m.FilterByCategory("SKLUZAVKY"), 3)
	require.Len(t, m.FilterByCategory("party-vybaveni"), 2)
	require.Equal(t, m.Len(), len(m.FilterByCategory("")))
}

func TestSortByPrice(t *testing.T) {
	m := catalog.NewManagerFromProducts([]catalog.Product{
		{ID: "a", Name: "A", Price: price(500)},
		{ID: "b", Name: "B"},
		{ID: "c", Name: "C", Price: price(100)},
		{ID: "d", Name: "D", Price: price(500)},
	})

	require.Equal(t, []string{"C", "A", "D", "B"}, names(m.Sort(m.All(), catalog.SortPriceLow)))
	require.Equal(t, []string{"A", "D", "C", "B"}, names(m.Sort(m.All(), catalog.SortPriceHigh)))
	require.Equal(t, []string{"A", "B", "C", "D"}, names(m.All()))
}

func TestSortByNameUsesCzechCollation(t *testing.T) {
	m := catalog.NewManagerFromProducts([]catalog.Product{
		{ID: "1", Name: "CHODÍTKO"},
		{ID: "2", Name: "HRAD"},
		{ID: "3", Name: "ČERVENÝ STAN"},
		{ID: "4", Name: "CIRKUS"},
		{ID: "5", Name: "DORT"},
	})
	require.Equal(t, []string{"CIRKUS", "ČERVENÝ STAN", "DORT", "HRAD", "CHODÍTKO"}, names(m.Sort(m.All(), "")))
}

func TestQueryCombinesFilters(t *testing.T) {
	m := catalog.Embedded()
	params := catalog.ParseParams(url.Values{"category": {"skakaci-hrady"}, "q": {"hrad"}, "sort": {"price-high"}})
	require.Equal(t, []string{"BÍLÝ HRAD", "NAFUKOVACÍ HRAD PRINCEZNA ELSA"}, names(m.Query(params)))

	params = catalog.ParseParams(url.Values{"category": {"skakaci-hrady"}, "sort": {"price-low"}})
	got := m.Query(params)
	require.Len(t, got, 6)
	require.Equal(t, "NAFUKOVACÍ HRAD PRINCEZNA ELSA", got[0].Name)
	require.Equal(t, 8900.0, *got[5].Price)

	params = catalog.ParseParams(url.Values{})
	require.Equal(t, catalog.SortName, params.Sort)
	all := m.Query(params)
	require.Equal(t, "AKTIVNÍ CENTRUM", all[0].Name)
	require.Equal(t, "AKTIVNÍ CENTRUM LEDOVÉ KRÁLOVSTVÍ", all[1].Name)
	require.Equal(t, "BAGR SE SKLUZAVKOU", all[2].Name)
}

func TestCategoryOptions(t *testing.T) {
	opts := catalog.Embedded().CategoryOptions()
	require.Len(t, opts, 5)
	require.Equal(t, catalog.CategoryOption{Value: "skakaci-hrady", Label: "Skakaci hrady"}, opts[0])
	require.Equal(t, catalog.CategoryOption{Value: "party-vybaveni", Label: "Party vybaveni"}, opts[4])
}
