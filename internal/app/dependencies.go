package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/bezva-storefront/internal/cart"
	"github.com/noah-isme/bezva-storefront/internal/catalog"
	"github.com/noah-isme/bezva-storefront/internal/checkout"
	"github.com/noah-isme/bezva-storefront/internal/config"
	"github.com/noah-isme/bezva-storefront/internal/events"
	"github.com/noah-isme/bezva-storefront/internal/hero"
	"github.com/noah-isme/bezva-storefront/internal/lock"
	"github.com/noah-isme/bezva-storefront/internal/notify"
	"github.com/noah-isme/bezva-storefront/internal/obs"
	"github.com/noah-isme/bezva-storefront/internal/panel"
	"github.com/noah-isme/bezva-storefront/internal/pricing"
	"github.com/noah-isme/bezva-storefront/internal/ratelimit"
	"github.com/noah-isme/bezva-storefront/internal/resilience"
	"github.com/noah-isme/bezva-storefront/internal/storage"
)

// panelWidth is the drawer width the in-process host reports for swipe gestures.
const panelWidth = 420

// Dependencies holds every long-lived component of the storefront. It is built once by
// New and torn down by Close.
type Dependencies struct {
	Config *config.Config
	Logger zerolog.Logger

	Registry     *prometheus.Registry
	HTTPMetrics  *obs.HTTPMetrics
	StoreMetrics *obs.StoreMetrics

	Redis   *redis.Client
	Storage storage.Store
	Events  *events.Bus
	Toasts  *notify.Center
	Notify  notify.Notifier
	Breaker *resilience.Breaker
	Limiter *ratelimit.Limiter

	Catalog  *catalog.Manager
	Cart     *cart.Store
	Renderer *panel.Renderer
	Host     *panel.MemoryHost
	Panel    *panel.Controller
	Hero     *hero.Slider
	Checkout *checkout.Service

	stopHero context.CancelFunc
	unsub    func()
}

// New wires the storefront from cfg.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	d := &Dependencies{Config: cfg, Logger: logger, Events: &events.Bus{}}
	ok := false
	defer func() {
		if !ok {
			_ = d.Close(context.Background())
		}
	}()

	if cfg.Obs.EnablePrometheus {
		d.Registry = prometheus.NewRegistry()
		d.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		ns := cfg.Obs.MetricsNamespace
		d.HTTPMetrics = obs.NewHTTPMetrics(ns, obs.ParseBucketsCSV(cfg.Obs.HTTPBuckets), d.Registry)
		d.StoreMetrics = obs.NewStoreMetrics(ns, d.Registry)
	}

	if err := d.openStorage(ctx); err != nil {
		return nil, err
	}
	if err := d.loadCatalog(ctx); err != nil {
		return nil, err
	}

	d.Toasts = notify.NewCenter(cfg.ToastTimeout)
	sinks := notify.Fanout{d.Toasts, notify.LogNotifier{Logger: logger.With().Str("component", "notify").Logger()}}
	if d.StoreMetrics != nil {
		sinks = append(sinks, d.StoreMetrics)
	}
	d.Notify = sinks

	cartLogger := logger.With().Str("component", "cart").Logger()
	storeCfg := cart.StoreConfig{
		Storage:  d.Storage,
		Events:   d.Events,
		Notifier: d.Notify,
		Logger:   &cartLogger,
		ItemsKey: cfg.CartItemsKey,
		PromoKey: cfg.CartPromoKey,
	}
	if d.StoreMetrics != nil {
		storeCfg.Recorder = d.StoreMetrics
	}
	store, err := cart.NewStore(ctx, storeCfg)
	if err != nil {
		return nil, err
	}
	d.Cart = store
	if d.StoreMetrics != nil {
		d.observeCart()
		d.unsub = store.Subscribe(func(context.Context, events.Event) error {
			d.observeCart()
			return nil
		})
	}

	if d.Renderer, err = panel.NewRenderer(); err != nil {
		return nil, err
	}
	d.Checkout = &checkout.Service{Logger: logger.With().Str("component", "checkout").Logger()}
	d.Host = panel.NewMemoryHost(panelWidth)
	d.Panel, err = panel.New(panel.Config{
		Store:    d.Cart,
		Host:     d.Host,
		Notifier: d.Notify,
		Renderer: d.Renderer,
		Checkout: d.Checkout,
		Logger:   logger.With().Str("component", "panel").Logger(),
	})
	if err != nil {
		return nil, err
	}

	if d.Hero, err = hero.NewSlider(hero.ParseSlides(cfg.HeroSlides)); err != nil {
		return nil, err
	}
	heroCtx, cancel := context.WithCancel(context.Background())
	d.stopHero = cancel
	go d.Hero.Autoplay(heroCtx, cfg.HeroAutoplayInterval)

	if d.Redis != nil {
		d.Limiter, err = ratelimit.NewRedis(d.Redis, cfg.RateLimit)
	} else {
		d.Limiter, err = ratelimit.NewMemory(cfg.RateLimit)
	}
	if err != nil {
		return nil, err
	}

	ok = true
	return d, nil
}

func (d *Dependencies) openStorage(ctx context.Context) error {
	cfg := d.Config
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		d.Redis = redis.NewClient(opts)
		if err := redisotel.InstrumentTracing(d.Redis); err != nil {
			d.Logger.Error().Err(err).Msg("instrument redis tracing")
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := d.Redis.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
	}
	switch storage.NormalizeDriver(cfg.StorageDriver) {
	case storage.DriverMemory:
		d.Storage = storage.NewMemory()
	case storage.DriverRedis:
		if d.Redis == nil {
			return errors.New("redis storage requires REDIS_URL")
		}
		d.Storage = storage.NewRedis(d.Redis, "bezva:", 0)
	default:
		fs, err := storage.NewFile(cfg.StorageDir)
		if err != nil {
			return err
		}
		d.Storage = fs
	}
	d.Logger.Info().Str("driver", storage.NormalizeDriver(cfg.StorageDriver)).Msg("cart storage ready")
	return nil
}

func (d *Dependencies) loadCatalog(ctx context.Context) error {
	cfg := d.Config
	d.Breaker = &resilience.Breaker{
		Target:    "catalog",
		Threshold: 3,
		Cooldown:  30 * time.Second,
		Logger:    d.Logger.With().Str("component", "breaker").Logger(),
	}
	if d.Registry != nil {
		m, err := resilience.NewMetrics(cfg.Obs.MetricsNamespace, d.Registry)
		if err != nil {
			return fmt.Errorf("breaker metrics: %w", err)
		}
		d.Breaker.Metrics = m
	}
	src := catalog.Source{
		URL:  cfg.CatalogURL,
		Path: cfg.CatalogPath,
		Client: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     d.Breaker,
			BaseBackoff: 200 * time.Millisecond,
			MaxAttempts: 3,
			Jitter:      0.2,
			Timeout:     cfg.CatalogFetchTimeout,
		},
		Logger: d.Logger.With().Str("component", "catalog").Logger(),
	}
	if d.Redis != nil {
		src.Cache = catalog.NewCache(d.Redis, cfg.CatalogCacheTTL)
		src.Lock = lock.Locker{Client: d.Redis, Prefix: "bezva:lock:"}
	}
	d.Catalog = catalog.Load(ctx, src)
	if d.StoreMetrics != nil {
		d.StoreMetrics.CatalogProducts.Set(float64(d.Catalog.Len()))
	}
	return nil
}

func (d *Dependencies) observeCart() {
	snap := d.Cart.Snapshot()
	d.StoreMetrics.ObserveCart(len(snap.Items), snap.Count, pricing.ToUnits(snap.Summary.Total))
}

// Close stops background work, persists the cart and releases connections.
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error
	if d.stopHero != nil {
		d.stopHero()
	}
	if d.unsub != nil {
		d.unsub()
	}
	if d.Panel != nil {
		d.Panel.Detach()
	}
	if d.Cart != nil {
		if err := d.Cart.Close(ctx); err != nil && !errors.Is(err, cart.ErrClosed) {
			errs = append(errs, fmt.Errorf("close cart: %w", err))
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
