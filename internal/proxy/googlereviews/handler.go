// Package googlereviews is the server-side proxy for Google Place Details. The
// browser asks it for reviews so the Places API key and the CORS restrictions of
// the Google endpoint stay on the server.
package googlereviews

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"restaurant-site/internal/common/config"
	apperrors "restaurant-site/internal/common/errors"
	commonhttp "restaurant-site/internal/common/http"
	"restaurant-site/internal/common/logger"
	"restaurant-site/internal/common/metrics"
)

const (
	DefaultGoogleURL = "https://maps.googleapis.com/maps/api/place/details/json"
	detailsFields    = "name,rating,reviews"
)

// Fetcher is the part of commonhttp.Fetcher the proxy needs.
type Fetcher interface {
	Fetch(ctx context.Context, req commonhttp.Request) commonhttp.Outcome
}

// HandlerOptions wires the proxy. DefaultAPIKey is used when a request carries
// no apiKey parameter.
type HandlerOptions struct {
	Config        config.ProxyConfig
	DefaultAPIKey string
	Fetcher       Fetcher
	Logger        logger.Logger
}

type Handler struct {
	cfg        config.ProxyConfig
	defaultKey string
	fetcher    Fetcher
	limiter    *rate.Limiter
	errors     *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(opts HandlerOptions) *Handler {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.With(map[string]interface{}{"component": "google-reviews-proxy"})

	cfg := opts.Config
	if cfg.GoogleURL == "" {
		cfg.GoogleURL = DefaultGoogleURL
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}

	h := &Handler{
		cfg:        cfg,
		defaultKey: opts.DefaultAPIKey,
		fetcher:    opts.Fetcher,
		errors:     apperrors.NewErrorHandler(log),
		logger:     log,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return h
}

// placeDetails is the part of the Place Details response the proxy reads.
type placeDetails struct {
	Status       string                 `json:"status"`
	ErrorMessage string                 `json:"error_message"`
	Result       map[string]interface{} `json:"result"`
}

// Response is the body of a successful proxy call.
type Response struct {
	Status  string                 `json:"status"`
	Data    map[string]interface{} `json:"data"`
	Reviews []interface{}          `json:"reviews"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		metrics.ProxyRequests.WithLabelValues(strconv.Itoa(rec.status)).Inc()
	}()
	h.serve(rec, r)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	h.setCORSHeaders(w)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet:
	default:
		h.errors.Handle(w, r, &apperrors.StandardError{
			Code:      apperrors.ErrCodeMethodNotAllowed,
			Message:   "Method not allowed",
			Timestamp: time.Now().UTC(),
		})
		return
	}

	if h.limiter != nil && !h.limiter.Allow() {
		h.errors.Handle(w, r, apperrors.NewRateLimitedError("google reviews proxy rate limit reached"))
		return
	}

	q := r.URL.Query()
	placeID := q.Get("placeId")
	apiKey := q.Get("apiKey")
	if apiKey == "" {
		apiKey = h.defaultKey
	}
	if placeID == "" || apiKey == "" {
		h.errors.Handle(w, r, apperrors.NewInvalidRequestError("placeId and apiKey are required"))
		return
	}
	language := q.Get("language")
	if language == "" {
		language = "en"
	}

	details, err := h.fetchDetails(r.Context(), placeID, apiKey, language)
	if err != nil {
		h.logger.Error("google place details request failed", map[string]interface{}{
			"placeId": placeID,
			"error":   err,
		})
		apperrors.WriteJSONStatus(w, http.StatusInternalServerError, err)
		return
	}

	if details.Status != "OK" && details.Status != "ZERO_RESULTS" {
		message := details.ErrorMessage
		if message == "" {
			message = "Unknown error from Google API"
		}
		h.errors.Handle(w, r, apperrors.NewUpstreamError("Google", details.Status, message))
		return
	}

	resp := Response{Status: "success", Data: details.Result, Reviews: []interface{}{}}
	if resp.Data == nil {
		resp.Data = map[string]interface{}{}
	}
	if reviews, ok := resp.Data["reviews"].([]interface{}); ok {
		resp.Reviews = reviews
	}

	h.logger.Debug("google reviews proxied", map[string]interface{}{
		"placeId": placeID,
		"status":  details.Status,
		"reviews": len(resp.Reviews),
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) fetchDetails(ctx context.Context, placeID, apiKey, language string) (*placeDetails, error) {
	u, err := url.Parse(h.cfg.GoogleURL)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	q := u.Query()
	q.Set("place_id", placeID)
	q.Set("fields", detailsFields)
	q.Set("language", language)
	q.Set("key", apiKey)
	u.RawQuery = q.Encode()

	timeout := config.GetDuration(h.cfg.Timeout)
	if timeout <= 0 {
		timeout = commonhttp.DefaultTimeout
	}
	req, err := commonhttp.NewRequest(u.String(),
		commonhttp.WithHeader("accept", "application/json"),
		commonhttp.WithTimeout(timeout),
		commonhttp.WithMaxAttempts(1),
	)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	out := h.fetcher.Fetch(ctx, req)
	var details placeDetails
	if err := out.DecodeJSON(&details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (h *Handler) setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", h.cfg.AllowedOrigin)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
