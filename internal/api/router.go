// Package api exposes the content feeds to the static site over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "restaurant-site/internal/common/errors"
	"restaurant-site/internal/common/logger"
	"restaurant-site/internal/models"
	"restaurant-site/internal/source"
)

// ReviewsFeed is the part of reviews.Service the API serves.
type ReviewsFeed interface {
	Get(ctx context.Context, forceRefresh bool) (*source.Result[models.ReviewRecord], error)
}

// MenuFeed is the part of menu.Service the API serves.
type MenuFeed interface {
	Featured(ctx context.Context, categoryID int, forceRefresh bool) (*source.Result[models.MenuItemRecord], error)
	Categories(ctx context.Context, forceRefresh bool) (*source.Result[models.Category], error)
}

// Checker reports whether a dependency is usable; /ready fails when any does.
type Checker func(ctx context.Context) error

// Options wires the router. Nil feeds and a nil proxy leave their routes out.
type Options struct {
	Reviews        ReviewsFeed
	Menu           MenuFeed
	Proxy          http.Handler
	Checks         map[string]Checker
	AllowedOrigins []string
	Logger         logger.Logger
	Now            func() time.Time
}

type handler struct {
	reviews ReviewsFeed
	menu    MenuFeed
	checks  map[string]Checker
	errors  *apperrors.ErrorHandler
	logger  logger.Logger
	now     func() time.Time
}

// NewRouter builds the HTTP surface of the content server.
func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.With(map[string]interface{}{"component": "api"})

	h := &handler{
		reviews: opts.Reviews,
		menu:    opts.Menu,
		checks:  opts.Checks,
		errors:  apperrors.NewErrorHandler(log),
		logger:  log,
		now:     opts.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}

	r := chi.NewRouter()
	r.Use(RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(AccessLog(log))
	r.Use(CORS(opts.AllowedOrigins))

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.errors.Handle(w, r, &apperrors.StandardError{
			Code:    apperrors.ErrCodeMethodNotAllowed,
			Message: "Method not allowed",
			Details: r.Method + " " + r.URL.Path,
		})
	})

	r.Get("/health", h.health)
	r.Get("/ready", h.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if h.reviews != nil {
			r.Get("/reviews", h.getReviews)
		}
		if h.menu != nil {
			r.Get("/menu/featured", h.getFeatured)
			r.Get("/menu/categories", h.getCategories)
		}
		if opts.Proxy != nil {
			r.Handle("/google-reviews", opts.Proxy)
		}
	})

	return r
}
