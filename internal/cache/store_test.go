package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-site/internal/common/config"
	"restaurant-site/internal/common/database"
	"restaurant-site/internal/models"
)

var snapshotTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func sampleReviews() []models.ReviewRecord {
	return []models.ReviewRecord{
		{Text: "Amazing burgers", AuthorName: "Kasun", StarRating: 5, SourceVerified: true},
		{Text: "Good value", AuthorName: "Ruwan", StarRating: 4, SourceVerified: true},
	}
}

// ==========================
// Snapshot format
// ==========================

func TestEncodeDecode(t *testing.T) {
	data, err := Encode("reviews", sampleReviews(), snapshotTime)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"reviews": [
			{"text":"Amazing burgers","authorName":"Kasun","starRating":5,"sourceVerified":true},
			{"text":"Good value","authorName":"Ruwan","starRating":4,"sourceVerified":true}
		],
		"timestamp": 1714557600000
	}`, string(data))

	snap, err := Decode[models.ReviewRecord]("reviews", data)
	require.NoError(t, err)
	assert.Equal(t, sampleReviews(), snap.Records)
	assert.True(t, snapshotTime.Equal(snap.Timestamp))
}

func TestSaveLoad_MenuItemIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	items := []models.MenuItemRecord{
		{ID: "007", Name: "Bond Burger", Price: "1200.00", Featured: true},
		{ID: "+5", Name: "Plus Fries", Price: "450.00", Featured: true},
		{ID: "12", Name: "Cola", Price: "300.00", Featured: true},
	}

	require.NoError(t, Save(ctx, store, "menu_featured_5", "items", items, snapshotTime))

	data, err := store.Get(ctx, "menu_featured_5")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"007"`)
	assert.Contains(t, string(data), `"id":"+5"`)
	assert.Contains(t, string(data), `"id":12`)

	snap, err := Load[models.MenuItemRecord](ctx, store, "menu_featured_5", "items")
	require.NoError(t, err)
	assert.Equal(t, items, snap.Records)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode[models.ReviewRecord]("reviews", []byte(`not json`))
	assert.Error(t, err)

	_, err = Decode[models.ReviewRecord]("reviews", []byte(`{"items":[],"timestamp":1}`))
	assert.Error(t, err)

	_, err = Encode("timestamp", sampleReviews(), snapshotTime)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

// ==========================
// Stores
// ==========================

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := Load[models.ReviewRecord](ctx, store, "burleys_google_reviews", "reviews")
	assert.True(t, IsNotFound(err), "expected not found, got %v", err)

	require.NoError(t, Save(ctx, store, "burleys_google_reviews", "reviews", sampleReviews(), snapshotTime))
	snap, err := Load[models.ReviewRecord](ctx, store, "burleys_google_reviews", "reviews")
	require.NoError(t, err)
	assert.Equal(t, sampleReviews(), snap.Records)

	// overwritten, never merged
	replacement := sampleReviews()[:1]
	require.NoError(t, Save(ctx, store, "burleys_google_reviews", "reviews", replacement, snapshotTime.Add(time.Hour)))
	snap, err = Load[models.ReviewRecord](ctx, store, "burleys_google_reviews", "reviews")
	require.NoError(t, err)
	assert.Equal(t, replacement, snap.Records)
	assert.True(t, snapshotTime.Add(time.Hour).Equal(snap.Timestamp))
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	exerciseStore(t, store)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "burleys_google_reviews.json", entries[0].Name())
}

func TestFileStore_RejectsPathKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b", ".."} {
		err := store.Put(context.Background(), key, []byte("{}"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer client.Close()

	store := NewRedisStore(client, "site")
	exerciseStore(t, store)

	assert.True(t, mr.Exists("site:burleys_google_reviews"))
	assert.Equal(t, time.Duration(0), mr.TTL("site:burleys_google_reviews"))
}

func TestRedisStore_Errors(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewRedisStore(database.NewRedisFromClient(rdb), "")
	ctx := context.Background()

	mock.ExpectGet("reviews").SetErr(errors.New("connection reset"))
	_, err := store.Get(ctx, "reviews")
	assert.Error(t, err)
	assert.False(t, IsNotFound(err))

	mock.ExpectGet("reviews").RedisNil()
	_, err = store.Get(ctx, "reviews")
	assert.True(t, IsNotFound(err))

	mock.ExpectSet("reviews", []byte("{}"), 0).SetErr(errors.New("READONLY"))
	assert.Error(t, store.Put(ctx, "reviews", []byte("{}")))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := NewPostgresStore(database.NewPostgresFromDB(db), "content_cache")
	require.NoError(t, err)
	ctx := context.Background()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS content_cache`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.EnsureSchema(ctx))

	mock.ExpectQuery(`SELECT payload FROM content_cache WHERE cache_key = \$1`).
		WithArgs("burleys_google_reviews").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))
	_, err = store.Get(ctx, "burleys_google_reviews")
	assert.True(t, IsNotFound(err))

	payload, err := Encode("reviews", sampleReviews(), snapshotTime)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO content_cache \(cache_key, payload, updated_at\)`).
		WithArgs("burleys_google_reviews", payload).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.Put(ctx, "burleys_google_reviews", payload))

	mock.ExpectQuery(`SELECT payload FROM content_cache WHERE cache_key = \$1`).
		WithArgs("burleys_google_reviews").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))
	snap, err := Load[models.ReviewRecord](ctx, store, "burleys_google_reviews", "reviews")
	require.NoError(t, err)
	assert.Equal(t, sampleReviews(), snap.Records)

	mock.ExpectExec(`INSERT INTO content_cache`).
		WillReturnError(errors.New("connection refused"))
	assert.Error(t, store.Put(ctx, "burleys_google_reviews", payload))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresStore_InvalidTable(t *testing.T) {
	_, err := NewPostgresStore(nil, "cache; DROP TABLE users")
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	store, err := FromConfig(config.CacheConfig{Backend: config.CacheBackendNone}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "none", store.Backend())

	store, err = FromConfig(config.CacheConfig{Backend: config.CacheBackendFile, Dir: filepath.Join(t.TempDir(), "c")}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "file", store.Backend())

	_, err = FromConfig(config.CacheConfig{Backend: config.CacheBackendRedis}, nil, nil)
	assert.ErrorIs(t, err, ErrNoBackendDep)

	_, err = FromConfig(config.CacheConfig{Backend: config.CacheBackendPostgres}, nil, nil)
	assert.ErrorIs(t, err, ErrNoBackendDep)

	_, err = FromConfig(config.CacheConfig{Backend: "memcached"}, nil, nil)
	assert.Error(t, err)
}
