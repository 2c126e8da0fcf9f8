package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/bezva-storefront/internal/pricing"
	"github.com/noah-isme/bezva-storefront/internal/resilience"
)

//go:embed data/products.json
var embeddedCatalog []byte

// ErrEmptyCatalog is returned when a document parses but holds no products.
var ErrEmptyCatalog = errors.New("catalog: no products")

// Source describes where the catalog comes from. URL wins over Path; when both are
// empty or fail, the embedded catalog is used.
type Source struct {
	URL    string
	Path   string
	Client resilience.HTTPClient
	Cache  *Cache
	// Lock, when set, lets one instance at a time refill an empty cache.
	Lock   Locker
	Logger zerolog.Logger
}

// Locker runs fn while holding a named lock shared with other instances.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// RefreshLockKey names the lock guarding remote catalog fetches.
const RefreshLockKey = "catalog:refresh"

// Embedded returns a manager over the built-in catalog.
func Embedded() *Manager {
	m, err := Parse(embeddedCatalog)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded data invalid: %v", err))
	}
	return m
}

// Load resolves the catalog from src, falling back to the embedded data when the
// external source is unavailable or malformed.
func Load(ctx context.Context, src Source) *Manager {
	logger := src.Logger
	if url := strings.TrimSpace(src.URL); url != "" {
		m, err := loadRemote(ctx, src, url)
		if err == nil {
			logger.Info().Str("source", url).Int("products", m.Len()).Msg("catalog loaded")
			return m
		}
		evt := logger.Warn().Err(err).Str("source", url)
		var open *resilience.OpenError
		if errors.As(err, &open) {
			evt = evt.Dur("retry_in", open.RetryIn)
		}
		evt.Msg("remote catalog unavailable, using embedded data")
		return Embedded()
	}
	if path := strings.TrimSpace(src.Path); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			var m *Manager
			if m, err = Parse(data); err == nil {
				logger.Info().Str("source", path).Int("products", m.Len()).Msg("catalog loaded")
				return m
			}
		}
		logger.Warn().Err(err).Str("source", path).Msg("catalog file unavailable, using embedded data")
	}
	return Embedded()
}

func loadRemote(ctx context.Context, src Source, url string) (*Manager, error) {
	if m, ok := cached(ctx, src); ok {
		return m, nil
	}
	if src.Lock == nil {
		return fetchRemote(ctx, src, url)
	}
	var m *Manager
	ttl := src.Client.Timeout*time.Duration(max(src.Client.MaxAttempts, 1)) + 5*time.Second
	err := src.Lock.WithLock(ctx, RefreshLockKey, ttl, func(ctx context.Context) error {
		// another instance may have filled the cache while we waited
		if hit, ok := cached(ctx, src); ok {
			m = hit
			return nil
		}
		var err error
		m, err = fetchRemote(ctx, src, url)
		return err
	})
	return m, err
}

func cached(ctx context.Context, src Source) (*Manager, bool) {
	data, ok, err := src.Cache.Get(ctx)
	if err != nil {
		src.Logger.Debug().Err(err).Msg("catalog cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	m, err := Parse(data)
	return m, err == nil
}

// fetchRemote parses inside the guarded call so a malformed document counts as a
// failing remote.
func fetchRemote(ctx context.Context, src Source, url string) (*Manager, error) {
	var m *Manager
	client := src.Client
	client.Validate = func(data []byte) (err error) {
		m, err = Parse(data)
		return err
	}
	data, err := client.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := src.Cache.Set(ctx, data); err != nil {
		src.Logger.Debug().Err(err).Msg("catalog cache write failed")
	}
	return m, nil
}

// Parse accepts either a flat product array or a {"categories":[...]} document.
// Prices that are negative or above pricing.MaxPrice are dropped, leaving the
// product quoted individually.
func Parse(data []byte) (*Manager, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyCatalog
	}
	var m *Manager
	if trimmed[0] == '[' {
		var products []Product
		if err := json.Unmarshal(trimmed, &products); err != nil {
			return nil, fmt.Errorf("catalog: decode products: %w", err)
		}
		for i := range products {
			sanitizePrices(&products[i])
		}
		m = NewManagerFromProducts(products)
	} else {
		var doc struct {
			Categories []Category `json:"categories"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("catalog: decode categories: %w", err)
		}
		for _, c := range doc.Categories {
			for i := range c.Products {
				sanitizePrices(&c.Products[i])
			}
		}
		m = NewManager(doc.Categories)
	}
	if m.Len() == 0 {
		return nil, ErrEmptyCatalog
	}
	return m, nil
}

func sanitizePrices(p *Product) {
	if p.Price != nil && !pricing.ValidUnits(*p.Price) {
		p.Price = nil
	}
	services := p.Services[:0]
	for _, svc := range p.Services {
		if pricing.ValidUnits(svc.Price) {
			services = append(services, svc)
		}
	}
	p.Services = services
}
