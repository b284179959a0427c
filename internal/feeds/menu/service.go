// Package menu serves the featured menu and the category listing of the webshop.
// Featured items come from the live menu API, then the last cached list, then the
// bundled menu file, then an optional hardcoded list from the config.
package menu

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"restaurant-site/internal/cache"
	"restaurant-site/internal/common/config"
	apperrors "restaurant-site/internal/common/errors"
	commonhttp "restaurant-site/internal/common/http"
	"restaurant-site/internal/common/logger"
	"restaurant-site/internal/models"
	"restaurant-site/internal/normalize"
	"restaurant-site/internal/source"
	"restaurant-site/pkg/bundle"
)

const (
	ResourceFeatured   = "menu"
	ResourceCategories = "categories"
	// CategoriesKey is the only key of the categories chain.
	CategoriesKey = "categories"

	SourceRemote    = "remote"
	SourceCache     = "cache"
	SourceBundled   = "bundled"
	SourceHardcoded = "hardcoded"

	DefaultMaxItems = 8

	itemsField      = "items"
	categoriesField = "categories"
)

// Config groups what the menu feed reads from the application config.
type Config struct {
	Menu     config.MenuConfig
	Fetch    config.FetchConfig
	CacheTTL time.Duration
}

// Deps are the collaborators of the feed. Store may be nil, in which case the
// cache sources are left out and nothing is persisted.
type Deps struct {
	Fetcher  source.Fetcher
	Store    cache.Store
	Logger   logger.Logger
	Recorder source.Recorder
	Now      func() time.Time
}

type Service struct {
	cfg        Config
	images     normalize.ImageResolver
	featured   *source.Chain[models.MenuItemRecord]
	categories *source.Chain[models.Category]
	logger     logger.Logger
}

func NewService(cfg Config, deps Deps) (*Service, error) {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.Menu.MaxItems <= 0 {
		cfg.Menu.MaxItems = DefaultMaxItems
	}

	images := normalize.DefaultImageResolver()
	if cfg.Menu.ImageBaseDir != "" {
		images.BaseDir = cfg.Menu.ImageBaseDir
	}
	if cfg.Menu.PlaceholderImage != "" {
		images.Placeholder = cfg.Menu.PlaceholderImage
	}

	s := &Service{
		cfg:    cfg,
		images: images,
		logger: deps.Logger.With(map[string]interface{}{"component": "menu-feed"}),
	}

	featured, err := s.buildFeatured(deps)
	if err != nil {
		return nil, err
	}
	categories, err := s.buildCategories(deps)
	if err != nil {
		return nil, err
	}
	s.featured = featured
	s.categories = categories

	s.logger.Info("menu feed configured", map[string]interface{}{
		"baseUrl":          cfg.Menu.BaseURL,
		"brandId":          cfg.Menu.BrandID,
		"shopId":           cfg.Menu.ShopID,
		"categoryId":       cfg.Menu.CategoryID,
		"useLocalFallback": cfg.Menu.UseLocalFallback,
		"fallbackItems":    len(cfg.Menu.FallbackItems),
	})
	return s, nil
}

func (s *Service) remoteEnabled(deps Deps) bool {
	return s.cfg.Menu.BaseURL != "" && deps.Fetcher != nil
}

func (s *Service) buildFeatured(deps Deps) (*source.Chain[models.MenuItemRecord], error) {
	mc := s.cfg.Menu
	sources := []source.Descriptor{
		{
			Name:     SourceRemote,
			Kind:     source.RemoteAPI,
			Enabled:  s.remoteEnabled(deps),
			Priority: mc.Priorities[SourceRemote],
			Load:     source.RemoteLoader(deps.Fetcher, s.featuredRequest, normalize.ParseMenu),
		},
		{
			Name:     SourceBundled,
			Kind:     source.BundledStatic,
			Enabled:  mc.UseLocalFallback && mc.BundlePath != "",
			Priority: mc.Priorities[SourceBundled],
			Load:     s.loadBundle,
		},
	}
	if deps.Store != nil {
		sources = append(sources, source.Descriptor{
			Name:     SourceCache,
			Kind:     source.LocalCache,
			Enabled:  true,
			Priority: mc.Priorities[SourceCache],
		})
	}
	if len(mc.FallbackItems) > 0 {
		records := make([]models.RawRecord, 0, len(mc.FallbackItems))
		for _, item := range mc.FallbackItems {
			records = append(records, models.RawRecord(item))
		}
		sources = append(sources, source.Descriptor{
			Name:     SourceHardcoded,
			Kind:     source.Hardcoded,
			Enabled:  true,
			Priority: mc.Priorities[SourceHardcoded],
			Load:     source.Static(records),
		})
	}

	chain, err := source.New(source.Config[models.MenuItemRecord]{
		Resource:     ResourceFeatured,
		Sources:      sources,
		Normalize:    s.normalizeItems,
		Finalize:     s.finalizeItems,
		TTL:          s.cfg.CacheTTL,
		Store:        deps.Store,
		StoreKey:     func(key string) string { return mc.CacheKeyPrefix + "_featured_" + key },
		PersistField: itemsField,
		Logger:       deps.Logger,
	}, chainOptions[models.MenuItemRecord](s.cfg.Fetch, deps)...)
	if err != nil {
		return nil, fmt.Errorf("build featured menu chain: %w", err)
	}
	return chain, nil
}

func (s *Service) buildCategories(deps Deps) (*source.Chain[models.Category], error) {
	mc := s.cfg.Menu
	sources := []source.Descriptor{
		{
			Name:     SourceRemote,
			Kind:     source.RemoteAPI,
			Enabled:  s.remoteEnabled(deps),
			Priority: mc.Priorities[SourceRemote],
			Load:     source.RemoteLoader(deps.Fetcher, s.categoriesRequest, normalize.ParseList),
		},
	}
	if deps.Store != nil {
		sources = append(sources, source.Descriptor{
			Name:     SourceCache,
			Kind:     source.LocalCache,
			Enabled:  true,
			Priority: mc.Priorities[SourceCache],
		})
	}

	chain, err := source.New(source.Config[models.Category]{
		Resource: ResourceCategories,
		Sources:  sources,
		Normalize: func(_ source.Descriptor, raw []models.RawRecord) []models.Category {
			return normalize.Categories(raw)
		},
		TTL:          s.cfg.CacheTTL,
		Store:        deps.Store,
		StoreKey:     func(string) string { return mc.CacheKeyPrefix + "_categories" },
		PersistField: categoriesField,
		Logger:       deps.Logger,
	}, chainOptions[models.Category](s.cfg.Fetch, deps)...)
	if err != nil {
		return nil, fmt.Errorf("build categories chain: %w", err)
	}
	return chain, nil
}

func chainOptions[T any](fc config.FetchConfig, deps Deps) []source.Option[T] {
	opts := []source.Option[T]{source.WithClock[T](deps.Now)}
	if deps.Recorder != nil {
		opts = append(opts, source.WithRecorder[T](deps.Recorder))
	}
	if fc.Breaker.Enabled {
		opts = append(opts, source.WithBreaker[T](source.BreakerSettings{
			MaxFailures: fc.Breaker.MaxFailures,
			OpenTimeout: config.GetDuration(fc.Breaker.OpenTimeout),
		}))
	}
	return opts
}

// Featured returns the featured items of categoryID, or of the configured
// category when categoryID is not positive.
func (s *Service) Featured(ctx context.Context, categoryID int, forceRefresh bool) (*source.Result[models.MenuItemRecord], error) {
	if categoryID <= 0 {
		categoryID = s.cfg.Menu.CategoryID
	}
	return s.featured.Resolve(ctx, strconv.Itoa(categoryID), forceRefresh)
}

// Categories returns the webshop category listing.
func (s *Service) Categories(ctx context.Context, forceRefresh bool) (*source.Result[models.Category], error) {
	return s.categories.Resolve(ctx, CategoriesKey, forceRefresh)
}

// FeaturedSources lists the featured chain in resolution order.
func (s *Service) FeaturedSources() []source.Descriptor {
	return s.featured.Sources()
}

// FeaturedURL is the main-menu endpoint of categoryID.
func (s *Service) FeaturedURL(categoryID int) string {
	mc := s.cfg.Menu
	return fmt.Sprintf("%s/main-menu/%d/categories/webshop-brand/%d/shop/%d",
		mc.BaseURL, categoryID, mc.BrandID, mc.ShopID)
}

// CategoriesURL is the category listing endpoint.
func (s *Service) CategoriesURL() string {
	mc := s.cfg.Menu
	return fmt.Sprintf("%s/categories/webshop-brand/%d/shop/%d", mc.BaseURL, mc.BrandID, mc.ShopID)
}

// Request builds an upstream request for url with the webshop headers.
func (s *Service) Request(url string) (commonhttp.Request, error) {
	mc := s.cfg.Menu
	referer := mc.Referer
	if referer == "" && mc.Origin != "" {
		referer = mc.Origin + "/"
	}
	headers := map[string]string{
		"accept":       "application/json",
		"content-type": "application/json",
	}
	if mc.Origin != "" {
		headers["origin"] = mc.Origin
	}
	if referer != "" {
		headers["referer"] = referer
	}
	if mc.TenantCode != "" {
		headers["x-tenant-code"] = mc.TenantCode
	}
	return commonhttp.NewRequest(url,
		commonhttp.WithHeaders(headers),
		commonhttp.WithTimeout(config.GetDuration(s.cfg.Fetch.Timeout)),
		commonhttp.WithMaxAttempts(s.cfg.Fetch.MaxAttempts),
	)
}

func (s *Service) featuredRequest(key string) (commonhttp.Request, error) {
	id, err := strconv.Atoi(key)
	if err != nil {
		return commonhttp.Request{}, apperrors.NewInvalidRequestError("category id must be numeric: " + key)
	}
	return s.Request(s.FeaturedURL(id))
}

func (s *Service) categoriesRequest(string) (commonhttp.Request, error) {
	return s.Request(s.CategoriesURL())
}

func (s *Service) loadBundle(context.Context, string) ([]models.RawRecord, error) {
	b, err := bundle.LoadMenu(s.cfg.Menu.BundlePath)
	if err != nil {
		return nil, apperrors.NewShapeValidationError(SourceBundled, err.Error())
	}
	return b.Data.FeaturedItems, nil
}

// normalizeItems maps raw items and drops the ones explicitly marked as not
// featured, so an all-hidden source counts as empty.
func (s *Service) normalizeItems(_ source.Descriptor, raw []models.RawRecord) []models.MenuItemRecord {
	items := normalize.MenuItems(raw, normalize.MenuOptions{Images: s.images})
	out := items[:0]
	for _, it := range items {
		if it.Featured {
			out = append(out, it)
		}
	}
	return out
}

// NormalizeFeatured applies the feed's item rules (images, prices, featured flag)
// to raw records fetched outside the chain.
func (s *Service) NormalizeFeatured(raw []models.RawRecord) []models.MenuItemRecord {
	return s.normalizeItems(source.Descriptor{Kind: source.RemoteAPI}, raw)
}

func (s *Service) finalizeItems(items []models.MenuItemRecord) []models.MenuItemRecord {
	return normalize.Limit(items, s.cfg.Menu.MaxItems)
}

// Columns splits items into the two display columns; the left column takes the
// extra item when the count is odd.
func Columns[T any](items []T) (left, right []T) {
	mid := (len(items) + 1) / 2
	return items[:mid:mid], items[mid:]
}
