package app

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/bezva-storefront/internal/cart"
	"github.com/noah-isme/bezva-storefront/internal/catalog"
	"github.com/noah-isme/bezva-storefront/internal/health"
	"github.com/noah-isme/bezva-storefront/internal/hero"
	"github.com/noah-isme/bezva-storefront/internal/notify"
	"github.com/noah-isme/bezva-storefront/internal/obs"
	"github.com/noah-isme/bezva-storefront/internal/panel"
	"github.com/noah-isme/bezva-storefront/internal/ratelimit"
	"github.com/noah-isme/bezva-storefront/internal/security"
)

// Router builds the storefront HTTP surface.
func (d *Dependencies) Router() http.Handler {
	cfg := d.Config
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.Obs.EnableTracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.IsProduction()}.Middleware)
	r.Use(security.CORS(cfg.CORSAllowedOrigins))
	r.Use(security.BodyLimit{Max: security.DefaultBodyLimit}.Middleware)

	checks := map[string]health.Pinger{"storage": d.Storage}
	if d.Redis != nil {
		checks["redis"] = health.PingFunc(func(ctx context.Context) error { return d.Redis.Ping(ctx).Err() })
	}
	healthHandler := health.Handler{Checks: checks}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	if d.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{Registry: d.Registry}))
	}

	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Manager: d.Catalog})
	cartHandler := &cart.Handler{Store: d.Cart, Catalog: d.Catalog}
	panelHandler := &panel.Handler{Controller: d.Panel, Store: d.Cart, Renderer: d.Renderer, Host: d.Host}
	notifyHandler := &notify.Handler{Center: d.Toasts}
	heroHandler := &hero.Handler{Slider: d.Hero}

	r.Get("/fragments/cart", panelHandler.Fragment)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(ratelimit.Handler{
			Limiter: d.Limiter,
			OnError: func(err error) { d.Logger.Warn().Err(err).Msg("rate limiter unavailable") },
		}.Middleware)

		api.Get("/categories", catalogHandler.Categories)
		api.Get("/products", catalogHandler.Products)
		api.Get("/products/{id}", catalogHandler.Product)

		api.Route("/cart", func(cr chi.Router) {
			cr.Get("/", cartHandler.Get)
			cr.Delete("/", panelHandler.Clear)
			cr.Post("/items", cartHandler.AddItem)
			cr.Patch("/items/{key}", cartHandler.UpdateItem)
			cr.Delete("/items/{key}", cartHandler.RemoveItem)
			cr.Post("/items/{key}/{action}", panelHandler.Step)
			cr.Put("/promo", cartHandler.ApplyPromo)
			cr.Post("/checkout", panelHandler.Checkout)
		})

		api.Get("/panel", panelHandler.State)
		api.Post("/panel/{action}", panelHandler.Action)

		api.Get("/notifications", notifyHandler.List)
		api.Post("/notifications", notifyHandler.Show)
		api.Delete("/notifications/{id}", notifyHandler.Dismiss)
		api.Post("/notifications/{id}/hold", notifyHandler.Hold)
		api.Post("/notifications/{id}/release", notifyHandler.Release)

		api.Get("/hero", heroHandler.Get)
		api.Post("/hero/{action}", heroHandler.Action)
	})
	return r
}
