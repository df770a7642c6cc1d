package delivery

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"feed_poster/internal/domain"
)

var pixivUserPath = regexp.MustCompile(`/(?:\w+/)?users/(\d+)`)

// Caption builds the HTML caption attached to the first image of a batch:
// an artist hashtag derived from the source link, then a link to the entry.
func Caption(batch *domain.DeliveryBatch) string {
	var hashtag string
	if tag := UserTag(batch.SourceLink); tag != "" {
		hashtag = "#" + tag
	}

	link := batch.EntryLink
	if link == "" {
		link = batch.SourceLink
	}
	return fmt.Sprintf("%s\n<a href=%q>%s</a>", hashtag, link, link)
}

// UserTag extracts a hashtag-safe account identifier from a source link.
// Pixiv's numeric ids are prefixed with "I" because a hashtag cannot start
// with a digit; twitter handles are used as-is.
func UserTag(sourceLink string) string {
	parsed, err := url.Parse(sourceLink)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Host)

	if strings.Contains(host, "pixiv.net") {
		if m := pixivUserPath.FindStringSubmatch(parsed.Path); m != nil {
			return "I" + m[1]
		}
		return ""
	}

	if strings.Contains(host, "twitter.com") || strings.Contains(host, "x.com") {
		for _, part := range strings.Split(parsed.Path, "/") {
			if part != "" {
				return part
			}
		}
	}

	return ""
}
