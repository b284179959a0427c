// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Reviews  ReviewsConfig  `mapstructure:"reviews"`
	Menu     MenuConfig     `mapstructure:"menu"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // milliseconds
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr returns the listen address for the content server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Cache backends.
const (
	CacheBackendNone     = "none"
	CacheBackendFile     = "file"
	CacheBackendRedis    = "redis"
	CacheBackendPostgres = "postgres"
)

// CacheConfig selects where resolved records are persisted between restarts.
type CacheConfig struct {
	Backend   string `mapstructure:"backend"`
	TTL       int    `mapstructure:"ttl"` // milliseconds
	Dir       string `mapstructure:"dir"`
	Table     string `mapstructure:"table"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// FetchConfig holds the retry policy shared by every remote source.
type FetchConfig struct {
	Timeout     int           `mapstructure:"timeout"` // milliseconds
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   int           `mapstructure:"base_delay"` // milliseconds
	Breaker     BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MaxFailures uint32 `mapstructure:"max_failures"`
	OpenTimeout int    `mapstructure:"open_timeout"` // milliseconds
}

// --- Feed Configuration ---

// ReviewsConfig configures the reviews feed. Priorities maps source names
// (remote, cache, hardcoded) to their position in the fallback order.
type ReviewsConfig struct {
	ProxyURL      string         `mapstructure:"proxy_url"`
	PlaceID       string         `mapstructure:"place_id"`
	APIKey        string         `mapstructure:"api_key"`
	Language      string         `mapstructure:"language"`
	UseFallback   bool           `mapstructure:"use_fallback"`
	MinRating     int            `mapstructure:"min_rating"`
	SortBy        string         `mapstructure:"sort_by"`
	MaxReviews    int            `mapstructure:"max_reviews"`
	MaxTextLength int            `mapstructure:"max_text_length"`
	CacheKey      string         `mapstructure:"cache_key"`
	Priorities    map[string]int `mapstructure:"priorities"`
}

// MenuConfig configures the featured menu and categories feeds. Priorities maps
// source names (remote, cache, bundled, hardcoded) to their fallback order.
type MenuConfig struct {
	BaseURL          string                   `mapstructure:"base_url"`
	BrandID          int                      `mapstructure:"brand_id"`
	ShopID           int                      `mapstructure:"shop_id"`
	CategoryID       int                      `mapstructure:"category_id"`
	TenantCode       string                   `mapstructure:"tenant_code"`
	Origin           string                   `mapstructure:"origin"`
	Referer          string                   `mapstructure:"referer"`
	BundlePath       string                   `mapstructure:"bundle_path"`
	UseLocalFallback bool                     `mapstructure:"use_local_fallback"`
	MaxItems         int                      `mapstructure:"max_items"`
	ImageBaseDir     string                   `mapstructure:"image_base_dir"`
	PlaceholderImage string                   `mapstructure:"placeholder_image"`
	CacheKeyPrefix   string                   `mapstructure:"cache_key_prefix"`
	FallbackItems    []map[string]interface{} `mapstructure:"fallback_items"`
	Priorities       map[string]int           `mapstructure:"priorities"`
}

// ProxyConfig configures the server-side Google reviews proxy.
type ProxyConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	GoogleURL     string  `mapstructure:"google_url"`
	Timeout       int     `mapstructure:"timeout"` // milliseconds
	RateLimit     float64 `mapstructure:"rate_limit"`
	RateBurst     int     `mapstructure:"rate_burst"`
	AllowedOrigin string  `mapstructure:"allowed_origin"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
