// Package cache holds the durable stores that keep the last good records of each
// resource across restarts. Stores move opaque documents; snapshot.go defines
// the document format.
package cache

import (
	"context"
	"errors"
	"fmt"

	"restaurant-site/internal/common/config"
	"restaurant-site/internal/common/database"
)

var (
	ErrNotFound     = errors.New("CACHE_ENTRY_NOT_FOUND")
	ErrInvalidKey   = errors.New("CACHE_INVALID_KEY")
	ErrNoBackendDep = errors.New("CACHE_BACKEND_UNAVAILABLE")
)

// Store persists one document per key. Get returns ErrNotFound for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Backend() string
}

// FromConfig builds the store selected by cfg.Backend. The redis and postgres
// clients are only required for their own backends.
func FromConfig(cfg config.CacheConfig, redis *database.RedisClient, pg *database.PostgresClient) (Store, error) {
	switch cfg.Backend {
	case config.CacheBackendNone:
		return NopStore{}, nil
	case config.CacheBackendFile, "":
		return NewFileStore(cfg.Dir)
	case config.CacheBackendRedis:
		if redis == nil {
			return nil, fmt.Errorf("%w: redis client is nil", ErrNoBackendDep)
		}
		return NewRedisStore(redis, cfg.KeyPrefix), nil
	case config.CacheBackendPostgres:
		if pg == nil {
			return nil, fmt.Errorf("%w: postgres client is nil", ErrNoBackendDep)
		}
		return NewPostgresStore(pg, cfg.Table)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// NopStore never holds anything; Put succeeds and Get always misses.
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, error) { return nil, ErrNotFound }
func (NopStore) Put(context.Context, string, []byte) error   { return nil }
func (NopStore) Backend() string                             { return config.CacheBackendNone }
