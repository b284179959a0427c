package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: burleys\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "burleys", cfg.App.Name)
	assert.Equal(t, CacheBackendFile, cfg.Cache.Backend)
	assert.Equal(t, time.Hour, GetDuration(cfg.Cache.TTL))
	assert.Equal(t, 10*time.Second, GetDuration(cfg.Fetch.Timeout))
	assert.Equal(t, 3, cfg.Fetch.MaxAttempts)
	assert.Equal(t, time.Second, GetDuration(cfg.Fetch.BaseDelay))

	assert.Equal(t, "burleys_google_reviews", cfg.Reviews.CacheKey)
	assert.Equal(t, 350, cfg.Reviews.MaxTextLength)
	assert.Equal(t, "newest", cfg.Reviews.SortBy)
	assert.Equal(t, map[string]int{"remote": 0, "cache": 1, "hardcoded": 2}, cfg.Reviews.Priorities)

	assert.Equal(t, "https://pos.delivergate.com/api/v1/webshop", cfg.Menu.BaseURL)
	assert.Equal(t, 5, cfg.Menu.CategoryID)
	assert.Equal(t, "https://burleys-webshop.delivergate.com/", cfg.Menu.Referer)
	assert.True(t, cfg.Menu.UseLocalFallback)
	assert.Equal(t, 8, cfg.Menu.MaxItems)
	assert.True(t, cfg.Fetch.Breaker.Enabled)
}

func TestLoadFromFile_ZeroBaseDelayIsKept(t *testing.T) {
	path := writeConfig(t, "fetch:\n  base_delay: 0\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Fetch.BaseDelay)
}

func TestLoadFromFile_OverridesAndEnv(t *testing.T) {
	t.Setenv("GOOGLE_PLACES_API_KEY", "key-from-env")
	t.Setenv("TEST_PLACE_ID", "place-123")

	path := writeConfig(t, `
cache:
  backend: redis
  ttl: 60000
database:
  redis:
    address: localhost:6379
reviews:
  place_id: ${TEST_PLACE_ID}
  use_fallback: true
  sort_by: rating
  priorities:
    cache: 5
menu:
  shop_id: 2
  category_id: 65
  use_local_fallback: false
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
	assert.Equal(t, time.Minute, GetDuration(cfg.Cache.TTL))
	assert.Equal(t, "key-from-env", cfg.Reviews.APIKey)
	assert.Equal(t, "place-123", cfg.Reviews.PlaceID)
	assert.True(t, cfg.Reviews.UseFallback)
	assert.Equal(t, "rating", cfg.Reviews.SortBy)
	assert.Equal(t, 5, cfg.Reviews.Priorities["cache"])
	assert.Equal(t, 0, cfg.Reviews.Priorities["remote"])
	assert.Equal(t, 2, cfg.Menu.ShopID)
	assert.Equal(t, 65, cfg.Menu.CategoryID)
	assert.False(t, cfg.Menu.UseLocalFallback)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown backend", body: "cache:\n  backend: memcached\n"},
		{name: "redis without address", body: "cache:\n  backend: redis\n"},
		{name: "postgres without host", body: "cache:\n  backend: postgres\n"},
		{name: "bad sort", body: "reviews:\n  sort_by: oldest\n"},
		{name: "bad min rating", body: "reviews:\n  min_rating: 9\n"},
		{name: "negative attempts", body: "fetch:\n  max_attempts: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "site", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=site sslmode=disable", p.GetDSN())
}

func TestLoadFromFile_ShippedConfig(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join("..", "..", "..", "configs", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, CacheBackendFile, cfg.Cache.Backend)
	assert.Equal(t, 5, cfg.Menu.CategoryID)
	assert.Equal(t, "burleys", cfg.Menu.TenantCode)
	assert.Equal(t, 2, cfg.Menu.Priorities["bundled"])
	assert.True(t, cfg.Proxy.Enabled)
	assert.True(t, cfg.Fetch.Breaker.Enabled)
}
