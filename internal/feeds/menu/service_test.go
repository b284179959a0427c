package menu

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-site/internal/cache"
	"restaurant-site/internal/common/config"
	commonhttp "restaurant-site/internal/common/http"
	"restaurant-site/internal/common/logger"
	"restaurant-site/internal/models"
	"restaurant-site/internal/source"
)

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func testConfig(baseURL string) Config {
	return Config{
		Menu: config.MenuConfig{
			BaseURL:          baseURL,
			BrandID:          1,
			ShopID:           1,
			CategoryID:       5,
			TenantCode:       "burleys",
			Origin:           "https://burleys-webshop.delivergate.com",
			BundlePath:       "../../../data/menu-api.json",
			UseLocalFallback: true,
			MaxItems:         8,
			CacheKeyPrefix:   "burleys_menu",
			Priorities:       map[string]int{"remote": 0, "cache": 1, "bundled": 2, "hardcoded": 3},
		},
		Fetch:    config.FetchConfig{Timeout: 1000, MaxAttempts: 1},
		CacheTTL: time.Hour,
	}
}

func createTestService(t *testing.T, cfg Config, store cache.Store, client *http.Client) *Service {
	t.Helper()
	fetcher := commonhttp.NewFetcher(commonhttp.NewClientFrom(client),
		commonhttp.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }))
	svc, err := NewService(cfg, Deps{
		Fetcher: fetcher,
		Store:   store,
		Logger:  logger.NewTestLogger(t),
		Now:     func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return svc
}

func TestService_FeaturedKeyedCategories(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/main-menu/5/categories/webshop-brand/1/shop/1", r.URL.Path)
		assert.Equal(t, "burleys", r.Header.Get("x-tenant-code"))
		assert.Equal(t, "https://burleys-webshop.delivergate.com", r.Header.Get("origin"))
		assert.Equal(t, "https://burleys-webshop.delivergate.com/", r.Header.Get("referer"))
		assert.Equal(t, "application/json", r.Header.Get("accept"))
		_, _ = w.Write([]byte(`{"data":{"Burgers":[{"id":1,"name":"Classic","price":1200}],"Sides":[{"id":"s-2","name":"Fries","price":"450","image_url":"fries.webp"}]}}`))
	}))
	defer srv.Close()

	store := cache.NewMemoryStore()
	svc := createTestService(t, testConfig(srv.URL), store, srv.Client())

	res, err := svc.Featured(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, res.Source)

	want := []models.MenuItemRecord{
		{ID: "1", Name: "Classic", Price: "1200.00", ImageURL: "images/placeholder.webp", Category: "Burgers", Featured: true},
		{ID: "s-2", Name: "Fries", Price: "450.00", ImageURL: "images/fries.webp", Category: "Sides", Featured: true},
	}
	if diff := cmp.Diff(want, res.Records); diff != "" {
		t.Errorf("featured items mismatch (-want +got):\n%s", diff)
	}

	snap, err := cache.Load[models.MenuItemRecord](context.Background(), store, "burleys_menu_featured_5", "items")
	require.NoError(t, err)
	assert.Len(t, snap.Records, 2)

	_, err = svc.Featured(context.Background(), 5, false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestService_FeaturedDropsHiddenAndLimits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items := `{"id":1,"name":"Hidden","price":"100","featured":false}`
		for i := 2; i <= 11; i++ {
			items += `,{"id":` + strconv.Itoa(i) + `,"name":"Item","price":"1000"}`
		}
		_, _ = w.Write([]byte(`{"data":[` + items + `]}`))
	}))
	defer srv.Close()

	svc := createTestService(t, testConfig(srv.URL), nil, srv.Client())
	res, err := svc.Featured(context.Background(), 7, false)
	require.NoError(t, err)

	require.Len(t, res.Records, 8)
	assert.Equal(t, models.ItemID("2"), res.Records[0].ID)
	assert.Equal(t, "1,000.00", res.Records[0].Price)
	for _, it := range res.Records {
		assert.NotEqual(t, "Hidden", it.Name)
	}
}

func TestService_AllHiddenFallsThroughToBundle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"name":"Hidden","featured":false}]`))
	}))
	defer srv.Close()

	svc := createTestService(t, testConfig(srv.URL), nil, srv.Client())
	res, err := svc.Featured(context.Background(), 0, false)
	require.NoError(t, err)

	assert.Equal(t, SourceBundled, res.Source)
	assert.Equal(t, source.BundledStatic, res.Kind)
	assert.Len(t, res.Records, 8)
	assert.Equal(t, "Classic Smash Burger", res.Records[0].Name)
	assert.Equal(t, "1,650.00", res.Records[0].Price)
}

func TestService_CacheBeforeBundle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := cache.NewMemoryStore()
	require.NoError(t, cache.Save(context.Background(), store, "burleys_menu_featured_5", "items",
		[]models.MenuItemRecord{{ID: "9", Name: "Cached Burger", Price: "1,100.00", Featured: true}}, testNow))

	svc := createTestService(t, testConfig(srv.URL), store, srv.Client())
	res, err := svc.Featured(context.Background(), 5, false)
	require.NoError(t, err)

	assert.Equal(t, SourceCache, res.Source)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Cached Burger", res.Records[0].Name)
}

func TestService_HardcodedWhenBundleDisabled(t *testing.T) {
	cfg := testConfig("")
	cfg.Menu.UseLocalFallback = false
	cfg.Menu.FallbackItems = []map[string]interface{}{
		{"id": 1, "name": "House Burger", "price": 1500},
	}
	svc := createTestService(t, cfg, nil, http.DefaultClient)

	res, err := svc.Featured(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, SourceHardcoded, res.Source)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "1,500.00", res.Records[0].Price)
}

func TestService_FeaturedExhausted(t *testing.T) {
	cfg := testConfig("")
	cfg.Menu.BundlePath = filepath.Join(t.TempDir(), "missing.json")
	svc := createTestService(t, cfg, nil, http.DefaultClient)

	_, err := svc.Featured(context.Background(), 0, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, source.ErrAllSourcesExhausted)
}

func TestService_InvalidBundleIsSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu-api.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"status":"error"}`), 0o644))

	cfg := testConfig("")
	cfg.Menu.BundlePath = path
	cfg.Menu.FallbackItems = []map[string]interface{}{{"name": "Backup"}}
	svc := createTestService(t, cfg, nil, http.DefaultClient)

	res, err := svc.Featured(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, SourceHardcoded, res.Source)
	require.Len(t, res.Attempts, 2)
	assert.Error(t, res.Attempts[0].Err)
}

func TestService_Categories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/categories/webshop-brand/1/shop/1", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"id":5,"name":"Burgers"},{"category_id":"6","category_name":"Sides"},{"id":7}]}`))
	}))
	defer srv.Close()

	store := cache.NewMemoryStore()
	svc := createTestService(t, testConfig(srv.URL), store, srv.Client())

	res, err := svc.Categories(context.Background(), false)
	require.NoError(t, err)

	want := []models.Category{
		{ID: "5", Name: "Burgers"},
		{ID: "6", Name: "Sides"},
		{ID: "7", Name: "Uncategorized"},
	}
	if diff := cmp.Diff(want, res.Records); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}

	snap, err := cache.Load[models.Category](context.Background(), store, "burleys_menu_categories", "categories")
	require.NoError(t, err)
	assert.Len(t, snap.Records, 3)
}

func TestService_SourceOrder(t *testing.T) {
	cfg := testConfig("https://pos.example.com/api/v1/webshop")
	cfg.Menu.FallbackItems = []map[string]interface{}{{"name": "Backup"}}
	cfg.Menu.Priorities = map[string]int{"remote": 0, "bundled": 1, "cache": 2, "hardcoded": 3}
	svc := createTestService(t, cfg, cache.NewMemoryStore(), http.DefaultClient)

	var names []string
	for _, d := range svc.FeaturedSources() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{SourceRemote, SourceBundled, SourceCache, SourceHardcoded}, names)
}

func TestColumns(t *testing.T) {
	tests := []struct {
		n         int
		wantLeft  int
		wantRight int
	}{
		{0, 0, 0},
		{1, 1, 0},
		{5, 3, 2},
		{8, 4, 4},
	}
	for _, tt := range tests {
		items := make([]int, tt.n)
		for i := range items {
			items[i] = i
		}
		left, right := Columns(items)
		assert.Len(t, left, tt.wantLeft)
		assert.Len(t, right, tt.wantRight)
		if tt.n > 0 {
			assert.Equal(t, 0, left[0])
		}
		if tt.wantRight > 0 {
			assert.Equal(t, tt.wantLeft, right[0])
		}
	}
}
