package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"restaurant-site/internal/common/config"
	"restaurant-site/internal/common/database"
)

var tableNameRE = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresStore keeps one row per key in a small upsert table.
type PostgresStore struct {
	client *database.PostgresClient
	table  string
}

func NewPostgresStore(client *database.PostgresClient, table string) (*PostgresStore, error) {
	if !tableNameRE.MatchString(table) {
		return nil, fmt.Errorf("invalid cache table name %q", table)
	}
	return &PostgresStore{client: client, table: table}, nil
}

// EnsureSchema creates the cache table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		cache_key  TEXT PRIMARY KEY,
		payload    JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, s.table)
	if _, err := s.client.Exec(ctx, query); err != nil {
		return fmt.Errorf("create cache table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE cache_key = $1`, s.table)

	var payload []byte
	err := s.client.QueryRow(ctx, query, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get %s: %w", key, err)
	}
	return payload, nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	query := fmt.Sprintf(`INSERT INTO %s (cache_key, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (cache_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`, s.table)
	if _, err := s.client.Exec(ctx, query, key, data); err != nil {
		return fmt.Errorf("postgres put %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Backend() string { return config.CacheBackendPostgres }
