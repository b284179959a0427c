package source

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	apperrors "restaurant-site/internal/common/errors"
	"restaurant-site/internal/common/logger"
	"restaurant-site/internal/common/metrics"
	"restaurant-site/internal/cache"
	"restaurant-site/internal/models"
)

const (
	DefaultTTL     = time.Hour
	persistTimeout = 5 * time.Second
)

// Recorder receives one call per Resolve.
type Recorder interface {
	RecordResolve(ctx context.Context, resource, source string, fromCache bool, duration time.Duration, err error)
}

// Config describes a chain. Normalize maps raw records of a source to T; Filter
// runs on remote results only, before the emptiness check; Finalize (sort, limit)
// runs on every winning result.
type Config[T any] struct {
	Resource  string
	Sources   []Descriptor
	Normalize func(desc Descriptor, raw []models.RawRecord) []T
	Filter    func(records []T) []T
	Finalize  func(records []T) []T

	// TTL of the in-memory entry. Zero means DefaultTTL, negative disables it.
	TTL time.Duration

	// Store holds the last remote result per key. StoreKey maps a resolve key
	// to the store key (identity when nil); PersistField names the records
	// field of the stored document.
	Store        cache.Store
	StoreKey     func(key string) string
	PersistField string

	Logger logger.Logger
}

// Result is what Resolve returns. Records and Raw are copies owned by the caller.
type Result[T any] struct {
	Records   []T
	Raw       []models.RawRecord
	Source    string
	Kind      Kind
	FromCache bool
	FetchedAt time.Time
	Attempts  []Attempt
}

type entry[T any] struct {
	records   []T
	raw       []models.RawRecord
	source    string
	kind      Kind
	fetchedAt time.Time
}

// Chain resolves keys against its ordered sources. It is safe for concurrent use;
// concurrent resolves of the same key are not merged and may each hit the network.
type Chain[T any] struct {
	cfg      Config[T]
	sources  []Descriptor
	logger   logger.Logger
	now      func() time.Time
	recorder Recorder

	mu      sync.RWMutex
	entries map[string]entry[T]

	breakers map[string]*gobreaker.CircuitBreaker[[]models.RawRecord]
}

type Option[T any] func(*Chain[T])

// WithClock replaces time.Now.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *Chain[T]) { c.now = now }
}

func WithRecorder[T any](r Recorder) Option[T] {
	return func(c *Chain[T]) { c.recorder = r }
}

// BreakerSettings configures one circuit breaker per remote source.
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// WithBreaker guards every RemoteAPI source with a circuit breaker; while a
// breaker is open its source fails immediately and the chain moves on. The
// breaker is shared by all keys of the source, so only retryable failures
// (timeouts, network errors, 5xx) count against it: a caller asking for a key
// the upstream rejects with 4xx or a malformed body cannot open it.
func WithBreaker[T any](s BreakerSettings) Option[T] {
	return func(c *Chain[T]) {
		for _, d := range c.sources {
			if d.Kind != RemoteAPI {
				continue
			}
			c.breakers[d.Name] = newBreaker(c.cfg.Resource+"/"+d.Name, s, c.logger)
		}
	}
}

func newBreaker(name string, s BreakerSettings, log logger.Logger) *gobreaker.CircuitBreaker[[]models.RawRecord] {
	maxFailures := s.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	return gobreaker.NewCircuitBreaker[[]models.RawRecord](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !apperrors.IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
}

// New validates cfg and orders its sources by priority. Sources with equal
// priority keep their configured order.
func New[T any](cfg Config[T], opts ...Option[T]) (*Chain[T], error) {
	if cfg.Resource == "" {
		return nil, fmt.Errorf("source chain: resource name is required")
	}
	if cfg.Normalize == nil {
		return nil, fmt.Errorf("source chain %s: normalize is required", cfg.Resource)
	}

	seen := make(map[string]bool, len(cfg.Sources))
	for _, d := range cfg.Sources {
		if d.Name == "" {
			return nil, fmt.Errorf("source chain %s: source without a name", cfg.Resource)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("source chain %s: duplicate source %q", cfg.Resource, d.Name)
		}
		seen[d.Name] = true

		if d.Kind == LocalCache {
			if cfg.Store == nil || cfg.PersistField == "" {
				return nil, fmt.Errorf("source chain %s: %q needs a store and persist field", cfg.Resource, d.Name)
			}
		} else if d.Load == nil {
			return nil, fmt.Errorf("source chain %s: %q has no loader", cfg.Resource, d.Name)
		}
	}

	sources := slices.Clone(cfg.Sources)
	sort.SliceStable(sources, func(i, j int) bool { return sources[i].Priority < sources[j].Priority })

	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.StoreKey == nil {
		cfg.StoreKey = func(key string) string { return key }
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	c := &Chain[T]{
		cfg:      cfg,
		sources:  sources,
		logger:   log.With(map[string]interface{}{"component": "source-chain", "resource": cfg.Resource}),
		now:      time.Now,
		entries:  make(map[string]entry[T]),
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]models.RawRecord]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Sources returns the descriptors in resolution order.
func (c *Chain[T]) Sources() []Descriptor {
	return slices.Clone(c.sources)
}

// Resolve returns the records for key. A fresh in-memory entry is returned
// without consulting any source unless forceRefresh is set. Otherwise enabled
// sources are tried in order and the first non-empty result wins. Only remote
// winners refresh the memory entry and the durable store.
func (c *Chain[T]) Resolve(ctx context.Context, key string, forceRefresh bool) (*Result[T], error) {
	start := c.now()

	if !forceRefresh {
		if res, ok := c.cached(key, start); ok {
			c.record(ctx, res.Source, true, start, nil)
			return res, nil
		}
	} else {
		metrics.CacheLookups.WithLabelValues(c.cfg.Resource, "bypass").Inc()
	}

	var attempts []Attempt
	for _, d := range c.sources {
		if !d.Enabled {
			continue
		}
		if ctx.Err() != nil {
			attempts = append(attempts, Attempt{Source: d.Name, Kind: d.Kind, Err: ctx.Err()})
			break
		}

		records, raw, err := c.try(ctx, d, key)
		attempts = append(attempts, Attempt{Source: d.Name, Kind: d.Kind, Records: len(records), Err: err})
		if err != nil {
			metrics.SourceResolutions.WithLabelValues(c.cfg.Resource, d.Name, "failed").Inc()
			c.logger.Warn("source failed, trying next", map[string]interface{}{
				"key":       key,
				"source":    d.Name,
				"kind":      d.Kind.String(),
				"errorCode": string(apperrors.CodeOf(err)),
				"error":     err,
			})
			continue
		}
		metrics.SourceResolutions.WithLabelValues(c.cfg.Resource, d.Name, "won").Inc()

		fetchedAt := c.now()
		if d.Kind == RemoteAPI {
			c.remember(key, entry[T]{records: records, raw: raw, source: d.Name, kind: d.Kind, fetchedAt: fetchedAt})
			c.persist(ctx, key, records, fetchedAt)
		}

		c.logger.Debug("resource resolved", map[string]interface{}{
			"key":     key,
			"source":  d.Name,
			"records": len(records),
		})
		res := &Result[T]{
			Records:   slices.Clone(records),
			Raw:       slices.Clone(raw),
			Source:    d.Name,
			Kind:      d.Kind,
			FetchedAt: fetchedAt,
			Attempts:  attempts,
		}
		c.record(ctx, d.Name, false, start, nil)
		return res, nil
	}

	err := newExhaustedError(c.cfg.Resource, key, attempts)
	c.logger.Error("all sources exhausted", map[string]interface{}{"key": key, "error": err})
	c.record(ctx, "", false, start, err)
	return nil, err
}

// Invalidate drops the in-memory entry for key.
func (c *Chain[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *Chain[T]) cached(key string, now time.Time) (*Result[T], bool) {
	if c.cfg.TTL < 0 {
		return nil, false
	}
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	switch {
	case !ok:
		metrics.CacheLookups.WithLabelValues(c.cfg.Resource, "miss").Inc()
		return nil, false
	case now.Sub(e.fetchedAt) >= c.cfg.TTL:
		metrics.CacheLookups.WithLabelValues(c.cfg.Resource, "stale").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues(c.cfg.Resource, "hit").Inc()
	return &Result[T]{
		Records:   slices.Clone(e.records),
		Raw:       slices.Clone(e.raw),
		Source:    e.source,
		Kind:      e.kind,
		FromCache: true,
		FetchedAt: e.fetchedAt,
	}, true
}

func (c *Chain[T]) remember(key string, e entry[T]) {
	if c.cfg.TTL < 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

func (c *Chain[T]) try(ctx context.Context, d Descriptor, key string) ([]T, []models.RawRecord, error) {
	if d.Kind == LocalCache {
		snap, err := cache.Load[T](ctx, c.cfg.Store, c.cfg.StoreKey(key), c.cfg.PersistField)
		if err != nil {
			return nil, nil, err
		}
		if len(snap.Records) == 0 {
			return nil, nil, apperrors.NewShapeValidationError(d.Name, "cached record list is empty")
		}
		return c.finalize(snap.Records), nil, nil
	}

	raw, err := c.load(ctx, d, key)
	if err != nil {
		return nil, nil, err
	}

	records := c.cfg.Normalize(d, raw)
	if d.Kind == RemoteAPI && c.cfg.Filter != nil {
		records = c.cfg.Filter(records)
	}
	if len(records) == 0 {
		return nil, nil, apperrors.NewShapeValidationError(d.Name, "no usable records")
	}
	return c.finalize(records), raw, nil
}

func (c *Chain[T]) load(ctx context.Context, d Descriptor, key string) ([]models.RawRecord, error) {
	cb, ok := c.breakers[d.Name]
	if !ok {
		return d.Load(ctx, key)
	}
	return cb.Execute(func() ([]models.RawRecord, error) {
		return d.Load(ctx, key)
	})
}

func (c *Chain[T]) finalize(records []T) []T {
	if c.cfg.Finalize == nil {
		return records
	}
	return c.cfg.Finalize(records)
}

// persist writes records to the durable store. Failures are logged and counted,
// never returned.
func (c *Chain[T]) persist(ctx context.Context, key string, records []T, ts time.Time) {
	if c.cfg.Store == nil || c.cfg.PersistField == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := cache.Save(ctx, c.cfg.Store, c.cfg.StoreKey(key), c.cfg.PersistField, records, ts); err != nil {
		metrics.CachePersistFailures.WithLabelValues(c.cfg.Store.Backend()).Inc()
		c.logger.Warn("failed to persist cache entry", map[string]interface{}{
			"key":     key,
			"backend": c.cfg.Store.Backend(),
			"error":   apperrors.NewCachePersistError(c.cfg.Store.Backend(), err),
		})
	}
}

func (c *Chain[T]) record(ctx context.Context, source string, fromCache bool, start time.Time, err error) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordResolve(ctx, c.cfg.Resource, source, fromCache, c.now().Sub(start), err)
}
