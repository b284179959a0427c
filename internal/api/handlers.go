package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	apperrors "restaurant-site/internal/common/errors"
	"restaurant-site/internal/display"
	"restaurant-site/internal/feeds/menu"
	"restaurant-site/internal/models"
	"restaurant-site/internal/source"
)

const readyTimeout = 2 * time.Second

type meta struct {
	Status    string    `json:"status"`
	Source    string    `json:"source"`
	Kind      string    `json:"kind"`
	FromCache bool      `json:"fromCache"`
	FetchedAt time.Time `json:"fetchedAt"`
	Count     int       `json:"count"`
}

func newMeta[T any](res *source.Result[T]) meta {
	return meta{
		Status:    "success",
		Source:    res.Source,
		Kind:      res.Kind.String(),
		FromCache: res.FromCache,
		FetchedAt: res.FetchedAt,
		Count:     len(res.Records),
	}
}

type reviewView struct {
	models.ReviewRecord
	Age string `json:"age,omitempty"`
}

type reviewsResponse struct {
	meta
	Reviews []reviewView `json:"reviews"`
}

type columns struct {
	Left  []models.MenuItemRecord `json:"left"`
	Right []models.MenuItemRecord `json:"right"`
}

type featuredResponse struct {
	meta
	CategoryID int                     `json:"categoryId,omitempty"`
	Items      []models.MenuItemRecord `json:"items"`
	Columns    columns                 `json:"columns"`
}

type categoriesResponse struct {
	meta
	Categories []models.Category `json:"categories"`
}

func (h *handler) getReviews(w http.ResponseWriter, r *http.Request) {
	refresh, err := boolParam(r, "refresh")
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	res, err := h.reviews.Get(r.Context(), refresh)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	now := h.now()
	views := make([]reviewView, 0, len(res.Records))
	for _, rec := range res.Records {
		v := reviewView{ReviewRecord: rec}
		if rec.PublishedAt != nil {
			v.Age = display.FormatAge(*rec.PublishedAt, now)
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, reviewsResponse{meta: newMeta(res), Reviews: views})
}

func (h *handler) getFeatured(w http.ResponseWriter, r *http.Request) {
	refresh, err := boolParam(r, "refresh")
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	categoryID := 0
	if raw := r.URL.Query().Get("category"); raw != "" {
		categoryID, err = strconv.Atoi(raw)
		if err != nil || categoryID <= 0 {
			h.errors.Handle(w, r, apperrors.NewInvalidRequestError("category must be a positive integer"))
			return
		}
	}

	res, err := h.menu.Featured(r.Context(), categoryID, refresh)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	left, right := menu.Columns(res.Records)
	writeJSON(w, http.StatusOK, featuredResponse{
		meta:       newMeta(res),
		CategoryID: categoryID,
		Items:      res.Records,
		Columns:    columns{Left: left, Right: right},
	})
}

func (h *handler) getCategories(w http.ResponseWriter, r *http.Request) {
	refresh, err := boolParam(r, "refresh")
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	res, err := h.menu.Categories(r.Context(), refresh)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoriesResponse{meta: newMeta(res), Categories: res.Records})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   h.now().Format(time.RFC3339),
	})
}

func (h *handler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			h.logger.Warn("readiness check failed", map[string]interface{}{"check": name, "error": err})
			continue
		}
		results[name] = "ok"
	}

	body := map[string]interface{}{
		"status": "ready",
		"time":   h.now().Format(time.RFC3339),
		"checks": results,
	}
	if status != http.StatusOK {
		body["status"] = "not_ready"
	}
	writeJSON(w, status, body)
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.NewInvalidRequestError(name + " must be a boolean")
	}
	return v, nil
}

// writeJSON encodes before writing the header so an encoding failure still
// answers 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		apperrors.WriteJSON(w, apperrors.NewInternalError(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
