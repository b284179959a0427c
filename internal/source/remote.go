package source

import (
	"context"

	commonhttp "restaurant-site/internal/common/http"
	"restaurant-site/internal/models"
)

// Fetcher is the part of commonhttp.Fetcher a remote source needs.
type Fetcher interface {
	Fetch(ctx context.Context, req commonhttp.Request) commonhttp.Outcome
}

// RemoteLoader builds a LoadFunc that fetches the request built for key and
// parses the body. Non-success outcomes become the source error.
func RemoteLoader(
	fetcher Fetcher,
	build func(key string) (commonhttp.Request, error),
	parse func(body []byte) ([]models.RawRecord, error),
) LoadFunc {
	return func(ctx context.Context, key string) ([]models.RawRecord, error) {
		req, err := build(key)
		if err != nil {
			return nil, err
		}
		out := fetcher.Fetch(ctx, req)
		if !out.OK() {
			return nil, out.Err
		}
		return parse(out.Body)
	}
}

// Static returns a LoadFunc that always yields records.
func Static(records []models.RawRecord) LoadFunc {
	return func(context.Context, string) ([]models.RawRecord, error) {
		return records, nil
	}
}
