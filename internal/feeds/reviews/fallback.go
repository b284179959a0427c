package reviews

import "restaurant-site/internal/models"

// fallbackReviews are served when no remote or cached reviews are available.
// Their publish time is stamped when they are loaded.
var fallbackReviews = []struct {
	Author string
	Rating int
	Text   string
}{
	{"Kasun", 5, "Hands down the best burgers in Sri Lanka – juicy and packed with flavour!"},
	{"Dilshan", 5, "Like Five Guys, but with a Sri Lankan twist. Absolutely worth it!"},
	{"Ruwan", 4, "Didn't expect such top-quality burgers here. Totally impressed!"},
	{"Shalini", 5, "Fresh ingredients, amazing taste, and a proper local vibe."},
	{"Nadeesha", 5, "Crispy fries, juicy patties, and the sauces are next level. Coming back for sure!"},
	{"Tharindu", 4, "Great value for money and the friendliest staff in Burleys."},
}

func fallbackRecords(unixSeconds float64) []models.RawRecord {
	out := make([]models.RawRecord, 0, len(fallbackReviews))
	for _, r := range fallbackReviews {
		out = append(out, models.RawRecord{
			"author_name": r.Author,
			"rating":      float64(r.Rating),
			"text":        r.Text,
			"time":        unixSeconds,
		})
	}
	return out
}
