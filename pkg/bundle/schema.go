// pkg/bundle/schema.go
package bundle

import "restaurant-site/internal/models"

// MenuBundle is the bundled fallback menu file shipped with the site.
type MenuBundle struct {
	Status      string      `json:"status"`
	GeneratedAt string      `json:"generatedAt,omitempty"`
	Data        BundleData  `json:"data"`
	Sources     []SourceRef `json:"sources,omitempty"`
}

type BundleData struct {
	FeaturedItems []models.RawRecord `json:"featured_items"`
}

// SourceRef records which upstream category a snapshot was taken from.
type SourceRef struct {
	CategoryID int    `json:"categoryId"`
	URL        string `json:"url"`
	Items      int    `json:"items"`
}
