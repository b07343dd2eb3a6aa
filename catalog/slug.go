package catalog

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// DatasetPrefix namespaces category datasets among other stored data.
	DatasetPrefix = "products_"
	// FallbackSlug is used for names with no [a-z0-9] characters.
	FallbackSlug = "misc"
	// MaxIDLength is the longest identifier PostgreSQL keeps untruncated.
	MaxIDLength = 63
)

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug renders a category name as a lower-case identifier fragment.
func Slug(name string) string {
	s := nonSlugRe.ReplaceAllString(strings.ToLower(name), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return FallbackSlug
	}
	return s
}

// DatasetID returns the dataset identifier for a category name.
func DatasetID(name string) string {
	id := DatasetPrefix + Slug(name)
	if len(id) > MaxIDLength {
		id = strings.TrimRight(id[:MaxIDLength], "_")
	}
	return id
}

// IsDatasetID reports whether id names a category dataset.
func IsDatasetID(id string) bool {
	return strings.HasPrefix(id, DatasetPrefix) && len(id) > len(DatasetPrefix)
}

// SlugFromID strips the namespace prefix.
func SlugFromID(id string) string {
	return strings.TrimPrefix(id, DatasetPrefix)
}

// DisplayName turns a dataset identifier back into a human readable name,
// e.g. "products_mens_shoes" becomes "Mens Shoes".
func DisplayName(id string) string {
	words := strings.ReplaceAll(SlugFromID(id), "_", " ")
	return cases.Title(language.Und).String(words)
}
