// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"restaurant-site/internal/api"
	"restaurant-site/internal/cache"
	"restaurant-site/internal/common/config"
	"restaurant-site/internal/common/database"
	commonhttp "restaurant-site/internal/common/http"
	"restaurant-site/internal/common/logger"
	"restaurant-site/internal/feeds/menu"
	"restaurant-site/internal/feeds/reviews"
	"restaurant-site/internal/proxy/googlereviews"
)

var zapLog *zap.Logger

func TestMain(m *testing.M) {
	zapLog = logger.New("debug", "console")
	code := m.Run()
	_ = zapLog.Sync()
	os.Exit(code)
}

// upstream fakes the Google Places details endpoint and the webshop menu API.
// Either side can be switched off to force the chains onto their fallbacks.
type upstream struct {
	googleDown atomic.Bool
	menuDown   atomic.Bool
	googleHits atomic.Int32
	menuHits   atomic.Int32
}

func (u *upstream) google(w http.ResponseWriter, r *http.Request) {
	u.googleHits.Add(1)
	if u.googleDown.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if r.URL.Query().Get("key") != "e2e-key" {
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"OK","result":{"name":"Burleys","rating":4.6,"reviews":[
		{"author_name":"Nadeesha","rating":5,"text":"Best smash burger in Colombo","time":1717000000},
		{"author_name":"Kasun","rating":4,"text":"Great fries","time":1716000000},
		{"author_name":"Grumpy","rating":2,"text":"Too loud","time":1717100000}
	]}}`))
}

func (u *upstream) menu(w http.ResponseWriter, r *http.Request) {
	u.menuHits.Add(1)
	if u.menuDown.Load() {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	if r.Header.Get("x-tenant-code") != "burleys" {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	switch {
	case strings.HasPrefix(r.URL.Path, "/main-menu/5/"):
		_, _ = w.Write([]byte(`{"data":{"Burgers":[
			{"id":1,"name":"Classic","price":1200,"image":"classic.webp"},
			{"id":2,"name":"Double","price":"1650.5"},
			{"id":3,"name":"Retired","featured":false}
		]}}`))
	case strings.HasPrefix(r.URL.Path, "/categories/"):
		_, _ = w.Write([]byte(`{"data":[{"id":5,"name":"Burgers"},{"id":6,"name":"Sides"}]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type stack struct {
	server   *httptest.Server
	upstream *upstream
	redis    *miniredis.Miniredis
}

// newStack wires the content server the way cmd/content-server does, with
// miniredis as the durable cache and fake upstreams.
func newStack(t *testing.T) *stack {
	t.Helper()

	cfg, err := config.LoadFromFile(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)

	up := &upstream{}
	googleSrv := httptest.NewServer(http.HandlerFunc(up.google))
	t.Cleanup(googleSrv.Close)
	menuSrv := httptest.NewServer(http.HandlerFunc(up.menu))
	t.Cleanup(menuSrv.Close)

	mr := miniredis.RunT(t)
	redis, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = redis.Close() })

	cfg.Cache.Backend = config.CacheBackendRedis
	cfg.Cache.KeyPrefix = "e2e"
	store, err := cache.FromConfig(cfg.Cache, redis, nil)
	require.NoError(t, err)

	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{"test": t.Name()})

	// The reviews feed calls the proxy through the server itself, so the
	// handler is bound after the server has an address.
	var router http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg.Fetch.MaxAttempts = 1
	cfg.Fetch.Timeout = 2000
	cfg.Fetch.Breaker.Enabled = false
	cfg.Proxy.GoogleURL = googleSrv.URL
	cfg.Proxy.RateLimit = 0
	cfg.Reviews.ProxyURL = srv.URL + "/api/google-reviews"
	cfg.Reviews.PlaceID = "place-1"
	cfg.Reviews.APIKey = ""
	cfg.Menu.BaseURL = menuSrv.URL
	cfg.Menu.BundlePath = filepath.Join("..", "..", "data", "menu-api.json")

	fetcher := commonhttp.NewFetcher(commonhttp.NewClient(5 * time.Second))

	reviewsSvc, err := reviews.NewService(reviews.Config{
		Reviews:  cfg.Reviews,
		Fetch:    cfg.Fetch,
		CacheTTL: time.Minute,
	}, reviews.Deps{Fetcher: fetcher, Store: store, Logger: log})
	require.NoError(t, err)

	menuSvc, err := menu.NewService(menu.Config{
		Menu:     cfg.Menu,
		Fetch:    cfg.Fetch,
		CacheTTL: time.Minute,
	}, menu.Deps{Fetcher: fetcher, Store: store, Logger: log})
	require.NoError(t, err)

	proxy := googlereviews.NewHandler(googlereviews.HandlerOptions{
		Config:        cfg.Proxy,
		DefaultAPIKey: "e2e-key",
		Fetcher:       fetcher,
		Logger:        log,
	})

	router = api.NewRouter(api.Options{
		Reviews:        reviewsSvc,
		Menu:           menuSvc,
		Proxy:          proxy,
		Checks:         map[string]api.Checker{"redis": redis.Ping},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         log,
	})

	return &stack{server: srv, upstream: up, redis: mr}
}

func (s *stack) get(t *testing.T, path string, out interface{}) int {
	t.Helper()
	resp, err := s.server.Client().Get(s.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type reviewsBody struct {
	Status  string `json:"status"`
	Source  string `json:"source"`
	Count   int    `json:"count"`
	Reviews []struct {
		AuthorName     string `json:"authorName"`
		StarRating     int    `json:"starRating"`
		SourceVerified bool   `json:"sourceVerified"`
		Age            string `json:"age"`
	} `json:"reviews"`
}

type featuredBody struct {
	Status  string                   `json:"status"`
	Source  string                   `json:"source"`
	Items   []map[string]interface{} `json:"items"`
	Columns struct {
		Left  []map[string]interface{} `json:"left"`
		Right []map[string]interface{} `json:"right"`
	} `json:"columns"`
}

func TestFullE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e in short mode")
	}
	s := newStack(t)

	t.Run("health and readiness", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, s.get(t, "/health", nil))
		assert.Equal(t, http.StatusOK, s.get(t, "/ready", nil))
	})

	t.Run("reviews come through the proxy and are persisted", func(t *testing.T) {
		var body reviewsBody
		require.Equal(t, http.StatusOK, s.get(t, "/api/reviews", &body))

		assert.Equal(t, "success", body.Status)
		assert.Equal(t, reviews.SourceRemote, body.Source)
		require.Len(t, body.Reviews, 2, "reviews below the minimum rating are dropped")
		assert.Equal(t, "Nadeesha", body.Reviews[0].AuthorName)
		assert.True(t, body.Reviews[0].SourceVerified)
		assert.NotEmpty(t, body.Reviews[0].Age)
		assert.True(t, s.redis.Exists("e2e:burleys_google_reviews"))
	})

	t.Run("reviews are served from memory until refreshed", func(t *testing.T) {
		hits := s.upstream.googleHits.Load()
		var body reviewsBody
		require.Equal(t, http.StatusOK, s.get(t, "/api/reviews", &body))
		assert.Equal(t, hits, s.upstream.googleHits.Load())
	})

	t.Run("reviews fall back to the durable cache", func(t *testing.T) {
		s.upstream.googleDown.Store(true)
		defer s.upstream.googleDown.Store(false)

		var body reviewsBody
		require.Equal(t, http.StatusOK, s.get(t, "/api/reviews?refresh=true", &body))
		assert.Equal(t, reviews.SourceCache, body.Source)
		assert.Len(t, body.Reviews, 2)
	})

	t.Run("featured menu from the live api", func(t *testing.T) {
		var body featuredBody
		require.Equal(t, http.StatusOK, s.get(t, "/api/menu/featured", &body))

		assert.Equal(t, menu.SourceRemote, body.Source)
		require.Len(t, body.Items, 2)
		assert.Equal(t, "Classic", body.Items[0]["name"])
		assert.Equal(t, "images/classic.webp", body.Items[0]["image"])
		assert.Len(t, body.Columns.Left, 1)
		assert.Len(t, body.Columns.Right, 1)
		assert.True(t, s.redis.Exists("e2e:burleys_menu_featured_5"))
	})

	t.Run("featured menu falls back to cache then bundle", func(t *testing.T) {
		s.upstream.menuDown.Store(true)
		defer s.upstream.menuDown.Store(false)

		var cached featuredBody
		require.Equal(t, http.StatusOK, s.get(t, "/api/menu/featured?refresh=true", &cached))
		assert.Equal(t, menu.SourceCache, cached.Source)
		assert.Len(t, cached.Items, 2)

		var bundled featuredBody
		require.Equal(t, http.StatusOK, s.get(t, "/api/menu/featured?category=9&refresh=true", &bundled))
		assert.Equal(t, menu.SourceBundled, bundled.Source)
		require.NotEmpty(t, bundled.Items)
		assert.Equal(t, "Classic Smash Burger", bundled.Items[0]["name"])
	})

	t.Run("categories", func(t *testing.T) {
		var body struct {
			Source     string `json:"source"`
			Categories []struct {
				Name string `json:"name"`
			} `json:"categories"`
		}
		require.Equal(t, http.StatusOK, s.get(t, "/api/menu/categories", &body))
		assert.Equal(t, menu.SourceRemote, body.Source)
		require.Len(t, body.Categories, 2)
		assert.Equal(t, "Burgers", body.Categories[0].Name)
	})

	t.Run("proxy rejects requests without a place id", func(t *testing.T) {
		var body map[string]interface{}
		assert.Equal(t, http.StatusBadRequest, s.get(t, "/api/google-reviews", &body))
	})

	t.Run("readiness fails when redis is gone", func(t *testing.T) {
		s.redis.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.server.URL+"/ready", nil)
		require.NoError(t, err)
		resp, err := s.server.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}
