package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bezva-storefront/internal/catalog"
	"github.com/noah-isme/bezva-storefront/internal/lock"
	"github.com/noah-isme/bezva-storefront/internal/pricing"
	"github.com/noah-isme/bezva-storefront/internal/resilience"
)

const flatCatalog = `[
	{"id": 1, "name": "BAGR SE SKLUZAVKOU", "price": 8900, "category": "skakaci-hrady"},
	{"id": "stan", "name": "STAN", "price": 1000, "category": "party-vybaveni"},
	{"id": 1, "name": "duplicate", "price": 1}
]`

func TestParseFlatAndCategoryDocuments(t *testing.T) {
	m, err := catalog.Parse([]byte(flatCatalog))
	require.NoError(t, err)
	require.Equal(t, 2, m.Len())
	require.Equal(t, []catalog.Category{
		{ID: "skakaci-hrady", Name: "Skakaci hrady"},
		{ID: "party-vybaveni", Name: "Party vybaveni"},
	}, m.Categories())

	m, err = catalog.Parse([]byte(`{"categories":[{"id":"skluzavky","name":"Obří skluzavky","products":[{"id":7,"name":"SKLUZAVKA KLAUN","price":13900,"category":"other"}]}]}`))
	require.NoError(t, err)
	p, err := m.ProductByID("7")
	require.NoError(t, err)
	require.Equal(t, "skluzavky", p.Category)

	_, err = catalog.Parse([]byte(`{"categories":[]}`))
	require.ErrorIs(t, err, catalog.ErrEmptyCatalog)
	_, err = catalog.Parse([]byte(`{oops`))
	require.Error(t, err)
}

func TestParseDropsOutOfRangePrices(t *testing.T) {
	m, err := catalog.Parse([]byte(`[
		{"id": 1, "name": "HRAD", "price": 1e300, "services": [{"id": "a", "price": 500}, {"id": "b", "price": 1e20}]},
		{"id": 2, "name": "STAN", "price": -10},
		{"id": 3, "name": "SKLUZAVKA", "price": 1000000000}
	]`))
	require.NoError(t, err)

	p, err := m.ProductByID("1")
	require.NoError(t, err)
	require.Nil(t, p.Price)
	require.Equal(t, []catalog.Service{{ID: "a", Price: 500}}, p.Services)

	p, err = m.ProductByID("2")
	require.NoError(t, err)
	require.Nil(t, p.Price)

	p, err = m.ProductByID("3")
	require.NoError(t, err)
	require.NotNil(t, p.Price)
	require.Equal(t, pricing.MaxPrice, pricing.FromUnits(*p.Price))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")
	require.NoError(t, os.WriteFile(path, []byte(flatCatalog), 0o600))

	m := catalog.Load(context.Background(), catalog.Source{Path: path})
	require.Equal(t, 2, m.Len())

	m = catalog.Load(context.Background(), catalog.Source{Path: filepath.Join(dir, "missing.json")})
	require.Equal(t, 19, m.Len())
}

func TestLoadRemoteUsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(flatCatalog))
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	src := catalog.Source{
		URL:    srv.URL,
		Client: resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 2, BaseBackoff: time.Millisecond},
		Cache:  catalog.NewCache(client, time.Hour),
	}
	m := catalog.Load(context.Background(), src)
	require.Equal(t, 2, m.Len())
	require.EqualValues(t, 1, calls.Load())
	require.True(t, mr.Exists(catalog.DefaultCacheKey))
	require.Equal(t, time.Hour, mr.TTL(catalog.DefaultCacheKey))

	m = catalog.Load(context.Background(), src)
	require.Equal(t, 2, m.Len())
	require.EqualValues(t, 1, calls.Load())
}

func TestLoadRemoteFallsBackToEmbedded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := catalog.Load(context.Background(), catalog.Source{
		URL:    srv.URL,
		Client: resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 2, BaseBackoff: time.Millisecond},
	})
	require.Equal(t, 19, m.Len())
}
func TestLoadRemoteRejectsMalformedDocument(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"categories":[]}`))
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	breaker := &resilience.Breaker{Target: "catalog", Threshold: 1, Cooldown: time.Hour}
	src := catalog.Source{
		URL:    srv.URL,
		Client: resilience.HTTPClient{Client: srv.Client(), Breaker: breaker, MaxAttempts: 3, BaseBackoff: time.Millisecond},
		Cache:  catalog.NewCache(client, time.Hour),
	}
	require.Equal(t, 19, catalog.Load(context.Background(), src).Len())
	require.EqualValues(t, 1, calls.Load())
	require.False(t, mr.Exists(catalog.DefaultCacheKey))
	require.Equal(t, resilience.Open, breaker.State())

	require.Equal(t, 19, catalog.Load(context.Background(), src).Len())
	require.EqualValues(t, 1, calls.Load())
}

func TestLoadRemoteUnderRefreshLock(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(flatCatalog))
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	src := catalog.Source{
		URL:    srv.URL,
		Client: resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1, Timeout: time.Second},
		Cache:  catalog.NewCache(client, time.Hour),
		Lock:   lock.Locker{Client: client, Prefix: "bezva:lock:", RetryBackoff: time.Millisecond},
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.Equal(t, 2, catalog.Load(context.Background(), src).Len())
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, calls.Load())
	require.False(t, mr.Exists("bezva:lock:"+catalog.RefreshLockKey))
}
