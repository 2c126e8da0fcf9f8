package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/bezva-storefront/internal/storage"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv string
	Port   string

	StorageDriver string
	StorageDir    string
	RedisURL      string
	CartItemsKey  string
	CartPromoKey  string

	CatalogPath         string
	CatalogURL          string
	CatalogFetchTimeout time.Duration
	CatalogCacheTTL     time.Duration

	CORSAllowedOrigins []string
	RateLimit          string
	SecurityHeaders    bool

	ToastTimeout         time.Duration
	HeroSlides           string
	HeroAutoplayInterval time.Duration

	Obs ObsConfig
}

// ObsConfig configures logging, metrics and tracing.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	EnablePrometheus bool
	MetricsNamespace string
	HTTPBuckets      string
	EnableTracing    bool
	OTLPEndpoint     string
	SamplingRatio    float64
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:               valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                 valueOrDefault(k.String("PORT"), "8080"),
		StorageDriver:        strings.ToLower(valueOrDefault(k.String("STORAGE_DRIVER"), storage.DriverFile)),
		StorageDir:           valueOrDefault(k.String("STORAGE_DIR"), "data"),
		RedisURL:             strings.TrimSpace(k.String("REDIS_URL")),
		CartItemsKey:         valueOrDefault(k.String("CART_ITEMS_KEY"), "bezvaparta_cart_v1"),
		CartPromoKey:         valueOrDefault(k.String("CART_PROMO_KEY"), "bezvaparta_promo_v1"),
		CatalogPath:          strings.TrimSpace(k.String("CATALOG_PATH")),
		CatalogURL:           strings.TrimSpace(k.String("CATALOG_URL")),
		CatalogFetchTimeout:  parseDuration(k.String("CATALOG_FETCH_TIMEOUT"), "5s"),
		CatalogCacheTTL:      parseDuration(k.String("CATALOG_CACHE_TTL"), "10m"),
		CORSAllowedOrigins:   splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		RateLimit:            valueOrDefault(k.String("RATE_LIMIT"), "120-M"),
		SecurityHeaders:      parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),
		ToastTimeout:         parseDuration(k.String("TOAST_TIMEOUT"), "3s"),
		HeroSlides:           valueOrDefault(k.String("HERO_SLIDES"), "img/hero1.jpg,img/hero2.jpg,img/hero3.jpg"),
		HeroAutoplayInterval: parseDuration(k.String("HERO_AUTOPLAY_INTERVAL"), "5s"),
		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			EnablePrometheus: parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "bezva"),
			HTTPBuckets:      k.String("OBS_HTTP_BUCKETS"),
			EnableTracing:    parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
		},
	}

	switch cfg.StorageDriver {
	case storage.DriverFile, storage.DriverMemory:
	case storage.DriverRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required for STORAGE_DRIVER=%s", storage.DriverRedis)
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.CatalogPath != "" && cfg.CatalogURL != "" {
		return nil, fmt.Errorf("CATALOG_PATH and CATALOG_URL are mutually exclusive")
	}
	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
// An empty value unsets the variable for the duration of the load.
func LoadForTests(env map[string]string) (*Config, error) {
	previous := make(map[string]*string, len(env))
	for key, value := range env {
		if prev, ok := os.LookupEnv(key); ok {
			previous[key] = &prev
		} else {
			previous[key] = nil
		}
		if err := setEnvVar(key, &value); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(previous)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key string, value *string) error {
	if value == nil || *value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, *value)
}

func restoreEnv(values map[string]*string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
