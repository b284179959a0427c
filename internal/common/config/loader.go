// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// Enable ENV override like REVIEWS_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// base config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// environment config, optional
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env found walking up from the working directory.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// setDefaults registers defaults that cannot be told apart from an explicit zero
// after unmarshalling.
func setDefaults(v *viper.Viper) {
	v.SetDefault("menu.use_local_fallback", true)
	v.SetDefault("fetch.breaker.enabled", true)
	v.SetDefault("fetch.base_delay", 1000)
	v.SetDefault("proxy.enabled", true)
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Reviews.APIKey == "" {
		if val := os.Getenv("GOOGLE_PLACES_API_KEY"); val != "" {
			cfg.Reviews.APIKey = val
		}
	}
	if cfg.Reviews.PlaceID == "" {
		if val := os.Getenv("GOOGLE_PLACE_ID"); val != "" {
			cfg.Reviews.PlaceID = val
		}
	}
	if cfg.Database.Redis.Address == "" {
		if val := os.Getenv("REDIS_URL"); val != "" {
			cfg.Database.Redis.Address = val
		}
	}
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "restaurant-site"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60000
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	// Cache defaults
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = CacheBackendFile
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 3600000
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = ".cache"
	}
	if cfg.Cache.Table == "" {
		cfg.Cache.Table = "content_cache"
	}

	// Fetch defaults
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 10000
	}
	if cfg.Fetch.MaxAttempts == 0 {
		cfg.Fetch.MaxAttempts = 3
	}
	if cfg.Fetch.Breaker.MaxFailures == 0 {
		cfg.Fetch.Breaker.MaxFailures = 5
	}
	if cfg.Fetch.Breaker.OpenTimeout == 0 {
		cfg.Fetch.Breaker.OpenTimeout = 30000
	}

	// Reviews defaults
	if cfg.Reviews.ProxyURL == "" {
		cfg.Reviews.ProxyURL = "http://localhost:8080/api/google-reviews"
	}
	if cfg.Reviews.Language == "" {
		cfg.Reviews.Language = "en"
	}
	if cfg.Reviews.MinRating == 0 {
		cfg.Reviews.MinRating = 4
	}
	if cfg.Reviews.SortBy == "" {
		cfg.Reviews.SortBy = "newest"
	}
	if cfg.Reviews.MaxReviews == 0 {
		cfg.Reviews.MaxReviews = 10
	}
	if cfg.Reviews.MaxTextLength == 0 {
		cfg.Reviews.MaxTextLength = 350
	}
	if cfg.Reviews.CacheKey == "" {
		cfg.Reviews.CacheKey = "burleys_google_reviews"
	}
	cfg.Reviews.Priorities = withPriorityDefaults(cfg.Reviews.Priorities, map[string]int{
		"remote": 0, "cache": 1, "hardcoded": 2,
	})

	// Menu defaults
	if cfg.Menu.BaseURL == "" {
		cfg.Menu.BaseURL = "https://pos.delivergate.com/api/v1/webshop"
	}
	if cfg.Menu.BrandID == 0 {
		cfg.Menu.BrandID = 1
	}
	if cfg.Menu.ShopID == 0 {
		cfg.Menu.ShopID = 1
	}
	if cfg.Menu.CategoryID == 0 {
		cfg.Menu.CategoryID = 5
	}
	if cfg.Menu.TenantCode == "" {
		cfg.Menu.TenantCode = "burleys"
	}
	if cfg.Menu.Origin == "" {
		cfg.Menu.Origin = "https://burleys-webshop.delivergate.com"
	}
	if cfg.Menu.Referer == "" {
		cfg.Menu.Referer = cfg.Menu.Origin + "/"
	}
	if cfg.Menu.BundlePath == "" {
		cfg.Menu.BundlePath = "data/menu-api.json"
	}
	if cfg.Menu.MaxItems == 0 {
		cfg.Menu.MaxItems = 8
	}
	if cfg.Menu.ImageBaseDir == "" {
		cfg.Menu.ImageBaseDir = "images/"
	}
	if cfg.Menu.PlaceholderImage == "" {
		cfg.Menu.PlaceholderImage = "images/placeholder.webp"
	}
	if cfg.Menu.CacheKeyPrefix == "" {
		cfg.Menu.CacheKeyPrefix = "burleys_menu"
	}
	cfg.Menu.Priorities = withPriorityDefaults(cfg.Menu.Priorities, map[string]int{
		"remote": 0, "cache": 1, "bundled": 2, "hardcoded": 3,
	})

	// Proxy defaults
	if cfg.Proxy.GoogleURL == "" {
		cfg.Proxy.GoogleURL = "https://maps.googleapis.com/maps/api/place/details/json"
	}
	if cfg.Proxy.Timeout == 0 {
		cfg.Proxy.Timeout = 10000
	}
	if cfg.Proxy.RateLimit == 0 {
		cfg.Proxy.RateLimit = 5
	}
	if cfg.Proxy.RateBurst == 0 {
		cfg.Proxy.RateBurst = 10
	}
	if cfg.Proxy.AllowedOrigin == "" {
		cfg.Proxy.AllowedOrigin = "*"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

func withPriorityDefaults(configured, defaults map[string]int) map[string]int {
	out := make(map[string]int, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range configured {
		out[k] = v
	}
	return out
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.Cache.Backend {
	case CacheBackendNone, CacheBackendFile:
	case CacheBackendRedis:
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis cache backend")
		}
	case CacheBackendPostgres:
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required for the postgres cache backend")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required for the postgres cache backend")
		}
	default:
		return fmt.Errorf("cache.backend %q is not one of none, file, redis, postgres", cfg.Cache.Backend)
	}

	if cfg.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("fetch.max_attempts must be at least 1")
	}
	if cfg.Fetch.Timeout < 0 || cfg.Fetch.BaseDelay < 0 {
		return fmt.Errorf("fetch.timeout and fetch.base_delay must not be negative")
	}

	switch cfg.Reviews.SortBy {
	case "newest", "rating", "none":
	default:
		return fmt.Errorf("reviews.sort_by %q is not one of newest, rating, none", cfg.Reviews.SortBy)
	}
	if cfg.Reviews.MinRating < 1 || cfg.Reviews.MinRating > 5 {
		return fmt.Errorf("reviews.min_rating must be between 1 and 5")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
