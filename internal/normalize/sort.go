package normalize

import (
	"sort"

	"restaurant-site/internal/models"
)

// Review sort orders.
const (
	SortNewest = "newest"
	SortRating = "rating"
	SortNone   = "none"
)

// SortReviews orders reviews in place. Newest puts the latest publishedAt first
// with undated reviews last; rating puts the highest rating first. Ties keep
// their input order. Unknown orders leave the slice untouched.
func SortReviews(reviews []models.ReviewRecord, by string) {
	switch by {
	case SortNewest:
		sort.SliceStable(reviews, func(i, j int) bool {
			a, b := reviews[i].PublishedAt, reviews[j].PublishedAt
			if a == nil || b == nil {
				return a != nil && b == nil
			}
			return a.After(*b)
		})
	case SortRating:
		sort.SliceStable(reviews, func(i, j int) bool {
			return reviews[i].StarRating > reviews[j].StarRating
		})
	}
}

// FilterMinRating keeps reviews rated at least min.
func FilterMinRating(reviews []models.ReviewRecord, min int) []models.ReviewRecord {
	out := make([]models.ReviewRecord, 0, len(reviews))
	for _, r := range reviews {
		if r.StarRating >= min {
			out = append(out, r)
		}
	}
	return out
}

// Limit returns at most n leading records; n <= 0 means no limit.
func Limit[T any](records []T, n int) []T {
	if n <= 0 || len(records) <= n {
		return records
	}
	return records[:n]
}
