// Package reviews serves the customer reviews feed: Google reviews through the
// server-side proxy, then the last cached list, then a fixed set of reviews.
package reviews

import (
	"context"
	"fmt"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"restaurant-site/internal/cache"
	"restaurant-site/internal/common/config"
	apperrors "restaurant-site/internal/common/errors"
	commonhttp "restaurant-site/internal/common/http"
	"restaurant-site/internal/common/logger"
	"restaurant-site/internal/common/validation"
	"restaurant-site/internal/models"
	"restaurant-site/internal/normalize"
	"restaurant-site/internal/source"
)

const (
	Resource = "reviews"
	// ResolveKey is the only key of the reviews chain.
	ResolveKey = "reviews"

	SourceRemote    = "remote"
	SourceCache     = "cache"
	SourceHardcoded = "hardcoded"

	persistField = "reviews"
)

var envelopeSchema = validation.MustCompile(validation.ReviewsEnvelopeSchema)

// Config groups what the reviews feed reads from the application config.
type Config struct {
	Reviews  config.ReviewsConfig
	Fetch    config.FetchConfig
	CacheTTL time.Duration
}

// Deps are the collaborators of the feed. Store may be nil, in which case the
// cache source is disabled and nothing is persisted.
type Deps struct {
	Fetcher  source.Fetcher
	Store    cache.Store
	Logger   logger.Logger
	Recorder source.Recorder
	Now      func() time.Time
}

type Service struct {
	cfg    Config
	chain  *source.Chain[models.ReviewRecord]
	logger logger.Logger
	now    func() time.Time
}

func NewService(cfg Config, deps Deps) (*Service, error) {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Service{
		cfg:    cfg,
		logger: deps.Logger.With(map[string]interface{}{"component": "reviews-feed"}),
		now:    deps.Now,
	}

	rc := cfg.Reviews
	remoteEnabled := !rc.UseFallback && rc.ProxyURL != "" && rc.PlaceID != "" && deps.Fetcher != nil
	cacheEnabled := !rc.UseFallback && deps.Store != nil

	sources := []source.Descriptor{
		{
			Name:     SourceRemote,
			Kind:     source.RemoteAPI,
			Enabled:  remoteEnabled,
			Priority: rc.Priorities[SourceRemote],
			Load:     source.RemoteLoader(deps.Fetcher, s.buildRequest, parseEnvelope),
		},
		{
			Name:     SourceHardcoded,
			Kind:     source.Hardcoded,
			Enabled:  true,
			Priority: rc.Priorities[SourceHardcoded],
			Load: func(context.Context, string) ([]models.RawRecord, error) {
				return fallbackRecords(float64(s.now().Unix())), nil
			},
		},
	}
	if deps.Store != nil {
		sources = append(sources, source.Descriptor{
			Name:     SourceCache,
			Kind:     source.LocalCache,
			Enabled:  cacheEnabled,
			Priority: rc.Priorities[SourceCache],
		})
	}

	opts := []source.Option[models.ReviewRecord]{source.WithClock[models.ReviewRecord](deps.Now)}
	if deps.Recorder != nil {
		opts = append(opts, source.WithRecorder[models.ReviewRecord](deps.Recorder))
	}
	if cfg.Fetch.Breaker.Enabled {
		opts = append(opts, source.WithBreaker[models.ReviewRecord](source.BreakerSettings{
			MaxFailures: cfg.Fetch.Breaker.MaxFailures,
			OpenTimeout: config.GetDuration(cfg.Fetch.Breaker.OpenTimeout),
		}))
	}

	chain, err := source.New(source.Config[models.ReviewRecord]{
		Resource:     Resource,
		Sources:      sources,
		Normalize:    s.normalize,
		Filter:       s.filter,
		Finalize:     s.finalize,
		TTL:          cfg.CacheTTL,
		Store:        deps.Store,
		StoreKey:     func(string) string { return rc.CacheKey },
		PersistField: persistField,
		Logger:       deps.Logger,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("build reviews chain: %w", err)
	}
	s.chain = chain

	s.logger.Info("reviews feed configured", map[string]interface{}{
		"remoteEnabled": remoteEnabled,
		"cacheEnabled":  cacheEnabled,
		"useFallback":   rc.UseFallback,
		"minRating":     rc.MinRating,
		"sortBy":        rc.SortBy,
	})
	return s, nil
}

// Get returns the display reviews. forceRefresh skips the in-memory entry.
func (s *Service) Get(ctx context.Context, forceRefresh bool) (*source.Result[models.ReviewRecord], error) {
	return s.chain.Resolve(ctx, ResolveKey, forceRefresh)
}

// Sources lists the chain in resolution order.
func (s *Service) Sources() []source.Descriptor {
	return s.chain.Sources()
}

func (s *Service) buildRequest(string) (commonhttp.Request, error) {
	q := url.Values{}
	q.Set("placeId", s.cfg.Reviews.PlaceID)
	q.Set("language", s.cfg.Reviews.Language)
	if s.cfg.Reviews.APIKey != "" {
		q.Set("apiKey", s.cfg.Reviews.APIKey)
	}

	u, err := url.Parse(s.cfg.Reviews.ProxyURL)
	if err != nil {
		return commonhttp.Request{}, fmt.Errorf("invalid reviews proxy url: %w", err)
	}
	u.RawQuery = q.Encode()

	return commonhttp.NewRequest(u.String(),
		commonhttp.WithHeader("accept", "application/json"),
		commonhttp.WithTimeout(config.GetDuration(s.cfg.Fetch.Timeout)),
		commonhttp.WithMaxAttempts(s.cfg.Fetch.MaxAttempts),
	)
}

// parseEnvelope checks {"status":"success","reviews":[...]} and returns the reviews.
func parseEnvelope(body []byte) ([]models.RawRecord, error) {
	result, err := envelopeSchema.ValidateBytes(body)
	if err != nil {
		return nil, apperrors.NewShapeValidationError(SourceRemote, err.Error())
	}
	if !result.Valid {
		return nil, apperrors.NewShapeValidationError(SourceRemote, fmt.Sprint(result.GetErrorMessages()))
	}

	var envelope struct {
		Reviews []models.RawRecord `json:"reviews"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperrors.NewShapeValidationError(SourceRemote, err.Error())
	}
	return envelope.Reviews, nil
}

func (s *Service) normalize(d source.Descriptor, raw []models.RawRecord) []models.ReviewRecord {
	return normalize.Reviews(raw, normalize.ReviewOptions{
		MaxTextLength: s.cfg.Reviews.MaxTextLength,
		Verified:      d.Kind == source.RemoteAPI,
		DropUnrated:   d.Kind == source.RemoteAPI && s.cfg.Reviews.MinRating > 0,
	})
}

func (s *Service) filter(records []models.ReviewRecord) []models.ReviewRecord {
	return normalize.FilterMinRating(records, s.cfg.Reviews.MinRating)
}

func (s *Service) finalize(records []models.ReviewRecord) []models.ReviewRecord {
	normalize.SortReviews(records, s.cfg.Reviews.SortBy)
	return normalize.Limit(records, s.cfg.Reviews.MaxReviews)
}
