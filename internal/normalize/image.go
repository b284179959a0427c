package normalize

import "strings"

const (
	DefaultImageBaseDir     = "images/"
	DefaultPlaceholderImage = "images/placeholder.webp"
)

// ImageResolver turns whatever a source sends for an image into a usable URL.
type ImageResolver struct {
	BaseDir     string
	Placeholder string
}

func DefaultImageResolver() ImageResolver {
	return ImageResolver{BaseDir: DefaultImageBaseDir, Placeholder: DefaultPlaceholderImage}
}

// Resolve keeps absolute http(s) URLs, prefixes relative paths with BaseDir unless
// they already carry it, and substitutes Placeholder for a missing image.
func (r ImageResolver) Resolve(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return r.Placeholder
	}
	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return src
	}
	src = strings.TrimPrefix(src, "./")
	src = strings.TrimPrefix(src, "/")
	if r.BaseDir == "" || strings.HasPrefix(src, r.BaseDir) {
		return src
	}
	return r.BaseDir + src
}
