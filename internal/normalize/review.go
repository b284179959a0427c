package normalize

import (
	"math"
	"time"

	"restaurant-site/internal/models"
)

const (
	DefaultAuthorName    = "Anonymous"
	DefaultStarRating    = 5
	DefaultReviewTextMax = 350
)

// reviewRules covers both the legacy Place Details shape and the Places API (New)
// shape, plus the camelCase shape used by cached and hardcoded records.
var reviewRules = struct {
	Text      Rule[string]
	Author    Rule[string]
	Rating    Rule[float64]
	Published Rule[time.Time]
	Verified  Rule[bool]
	Photo     Rule[string]
}{
	Text:      stringRule("", "text.text", "text", "comment"),
	Author:    stringRule(DefaultAuthorName, "authorAttribution.displayName", "author_name", "authorName"),
	Rating:    Rule[float64]{Paths: []string{"rating", "starRating", "stars"}, Default: DefaultStarRating, Convert: toNumber},
	Published: Rule[time.Time]{Paths: []string{"publishTime", "time", "publishedAt"}, Convert: toTime},
	Verified:  Rule[bool]{Paths: []string{"sourceVerified", "verified"}, Convert: toBool},
	Photo:     stringRule("", "profile_photo_url", "authorAttribution.photoUri", "profilePhotoUrl"),
}

// ReviewOptions controls review normalization.
type ReviewOptions struct {
	// MaxTextLength truncates review text; 0 disables truncation.
	MaxTextLength int
	// Verified is used when the record does not say whether it came from a
	// verified source.
	Verified bool
	// DropUnrated leaves out reviews without a usable rating instead of
	// giving them DefaultStarRating.
	DropUnrated bool
}

// Review maps one raw review to a ReviewRecord.
func Review(raw models.RawRecord, opts ReviewOptions) models.ReviewRecord {
	rec := models.ReviewRecord{
		Text:            Truncate(reviewRules.Text.Resolve(raw), opts.MaxTextLength),
		AuthorName:      reviewRules.Author.Resolve(raw),
		StarRating:      clampRating(reviewRules.Rating.Resolve(raw)),
		SourceVerified:  reviewRules.Verified.ResolveOr(raw, opts.Verified),
		ProfilePhotoURL: reviewRules.Photo.Resolve(raw),
	}
	if t, ok := reviewRules.Published.Lookup(raw); ok {
		rec.PublishedAt = &t
	}
	return rec
}

// Reviews maps raw reviews in order.
func Reviews(raw []models.RawRecord, opts ReviewOptions) []models.ReviewRecord {
	out := make([]models.ReviewRecord, 0, len(raw))
	for _, r := range raw {
		if opts.DropUnrated {
			if _, ok := reviewRules.Rating.Lookup(r); !ok {
				continue
			}
		}
		out = append(out, Review(r, opts))
	}
	return out
}

// clampRating bounds f before the int conversion so huge values cannot overflow.
func clampRating(f float64) int {
	switch {
	case math.IsNaN(f):
		return DefaultStarRating
	case f < 1:
		return 1
	case f > 5:
		return 5
	}
	return int(math.Round(f))
}
