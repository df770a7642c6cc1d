package rsshub

import (
	"strings"

	"feed_poster/internal/domain"
)

// pixivSkipMarkers are category substrings that exclude a pixiv entry from
// delivery: manga collections, age-restricted and AI-generated content.
var pixivSkipMarkers = []string{"漫画", "R-18", "AI"}

// SkipPredicate returns the per-kind categorical exclusion rule applied by
// the entry filter. Sources without skip rules get a predicate that accepts
// everything.
func SkipPredicate(kind domain.SourceKind) func(domain.FeedEntry) bool {
	switch kind {
	case domain.KindPixiv:
		return skipPixiv
	default:
		return func(domain.FeedEntry) bool { return false }
	}
}

func skipPixiv(entry domain.FeedEntry) bool {
	for _, category := range entry.Categories {
		for _, marker := range pixivSkipMarkers {
			if strings.Contains(category, marker) {
				return true
			}
		}
	}
	return false
}
