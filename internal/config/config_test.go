package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bezva-storefront/internal/config"
	"github.com/noah-isme/bezva-storefront/internal/storage"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"STORAGE_DRIVER":         "",
		"PORT":                   "",
		"TOAST_TIMEOUT":          "",
		"HERO_AUTOPLAY_INTERVAL": "",
		"OBS_ENABLE_PROMETHEUS":  "",
		"CATALOG_PATH":           "",
		"CATALOG_URL":            "",
	})
	require.NoError(t, err)
	require.Equal(t, storage.DriverFile, cfg.StorageDriver)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 3*time.Second, cfg.ToastTimeout)
	require.Equal(t, 5*time.Second, cfg.HeroAutoplayInterval)
	require.True(t, cfg.Obs.EnablePrometheus)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"APP_ENV":                    "production",
		"PORT":                       ":9090",
		"STORAGE_DRIVER":             "Redis",
		"REDIS_URL":                  "redis://localhost:6379/0",
		"CORS_ALLOWED_ORIGINS":       "https://bezvaparty.cz, ,https://www.bezvaparty.cz",
		"TOAST_TIMEOUT":              "nonsense",
		"OBS_ENABLE_PROMETHEUS":      "off",
		"OBS_TRACING_SAMPLING_RATIO": "0.25",
		"CATALOG_PATH":               "",
		"CATALOG_URL":                "",
	})
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, storage.DriverRedis, cfg.StorageDriver)
	require.Equal(t, []string{"https://bezvaparty.cz", "https://www.bezvaparty.cz"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 3*time.Second, cfg.ToastTimeout)
	require.False(t, cfg.Obs.EnablePrometheus)
	require.Equal(t, 0.25, cfg.Obs.SamplingRatio)
}

func TestLoadRejectsInvalidStorage(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{"STORAGE_DRIVER": "redis", "REDIS_URL": ""})
	require.Error(t, err)

	_, err = config.LoadForTests(map[string]string{"STORAGE_DRIVER": "sqlite"})
	require.Error(t, err)

	_, err = config.LoadForTests(map[string]string{
		"STORAGE_DRIVER": "memory",
		"CATALOG_PATH":   "products.json",
		"CATALOG_URL":    "https://example.invalid/products.json",
	})
	require.Error(t, err)
}
