package main

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	commonhttp "restaurant-site/internal/common/http"
	"restaurant-site/internal/common/logger"
	"restaurant-site/internal/feeds/menu"
	"restaurant-site/internal/models"
	"restaurant-site/internal/normalize"
	"restaurant-site/internal/source"
	"restaurant-site/pkg/bundle"
)

// snapshotter fetches featured items of several categories and assembles a bundle.
type snapshotter struct {
	menu     *menu.Service
	fetcher  source.Fetcher
	logger   logger.Logger
	parallel int
	now      func() time.Time
}

type categorySnapshot struct {
	ref   bundle.SourceRef
	items []models.RawRecord
}

// Run fetches every category concurrently. Any failed category fails the whole
// snapshot so a partial bundle never replaces a complete one.
func (s *snapshotter) Run(ctx context.Context, categoryIDs []int) (*bundle.MenuBundle, error) {
	if len(categoryIDs) == 0 {
		return nil, fmt.Errorf("at least one category is required")
	}

	results := make([]categorySnapshot, len(categoryIDs))
	g, gctx := errgroup.WithContext(ctx)
	if s.parallel > 0 {
		g.SetLimit(s.parallel)
	}
	for i, id := range categoryIDs {
		g.Go(func() error {
			snap, err := s.fetchCategory(gctx, id)
			if err != nil {
				return fmt.Errorf("category %d: %w", id, err)
			}
			results[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := &bundle.MenuBundle{
		Status:      bundle.StatusSuccess,
		GeneratedAt: s.now().UTC().Format(time.RFC3339),
	}
	for _, r := range results {
		b.Data.FeaturedItems = append(b.Data.FeaturedItems, r.items...)
		b.Sources = append(b.Sources, r.ref)
	}
	if len(b.Data.FeaturedItems) == 0 {
		return nil, fmt.Errorf("no featured items in categories %v", categoryIDs)
	}
	return b, nil
}

func (s *snapshotter) fetchCategory(ctx context.Context, id int) (categorySnapshot, error) {
	url := s.menu.FeaturedURL(id)
	req, err := s.menu.Request(url)
	if err != nil {
		return categorySnapshot{}, err
	}

	out := s.fetcher.Fetch(ctx, req)
	if !out.OK() {
		return categorySnapshot{}, out.Err
	}
	raw, err := normalize.ParseMenu(out.Body)
	if err != nil {
		return categorySnapshot{}, err
	}

	keyed := len(raw) > 0 && raw[0][normalize.ShapeField] == normalize.ShapeKeyed
	items := s.menu.NormalizeFeatured(raw)
	records, err := toRawRecords(items, keyed)
	if err != nil {
		return categorySnapshot{}, err
	}

	s.logger.Info("category fetched", map[string]interface{}{
		"categoryId": id,
		"attempts":   out.Attempts,
		"items":      len(records),
	})
	return categorySnapshot{
		ref:   bundle.SourceRef{CategoryID: id, URL: url, Items: len(records)},
		items: records,
	}, nil
}

// toRawRecords stores display records in the bundle's raw form, which the
// bundled source normalizes again on load. Items of the keyed-category shape
// keep their shape marker so the reloaded price stays in plain form.
func toRawRecords(items []models.MenuItemRecord, keyed bool) ([]models.RawRecord, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	var out []models.RawRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if keyed {
		for _, r := range out {
			r[normalize.ShapeField] = normalize.ShapeKeyed
		}
	}
	return out, nil
}

func newFetcher(timeout, baseDelay time.Duration) *commonhttp.Fetcher {
	return commonhttp.NewFetcher(commonhttp.NewClient(timeout), commonhttp.WithBaseDelay(baseDelay))
}
