package filter

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"feed_poster/internal/domain"
)

// DeliveredChecker is the authoritative persisted dedup lookup.
type DeliveredChecker interface {
	IsDelivered(ctx context.Context, guid string) (bool, error)
}

// Filter turns one fetched feed into delivery batches, applying the watermark
// cutoff, per-source exclusion rules and the persisted dedup check. Entries
// are walked oldest to newest so that, within one source, batches enter the
// queue in chronological order.
type Filter struct {
	delivered DeliveredChecker
	logger    *slog.Logger
}

func New(delivered DeliveredChecker, logger *slog.Logger) *Filter {
	return &Filter{
		delivered: delivered,
		logger:    logger.With("component", "filter"),
	}
}

// Run filters the feed against the watermark and yields zero or more batches
// plus the maximum publish timestamp among accepted entries. Rejected entries
// never advance the maximum. Rejections are skips, not errors; only a failed
// store lookup is returned as an error.
func (f *Filter) Run(ctx context.Context, src domain.Source, feed *domain.Feed, watermark time.Time, skip func(domain.FeedEntry) bool) (*domain.FilterResult, error) {
	entries := make([]domain.FeedEntry, len(feed.Entries))
	copy(entries, feed.Entries)
	sortOldestFirst(entries)

	result := &domain.FilterResult{}
	seen := make(map[string]struct{}, len(entries))
	logger := f.logger.With("source", string(src.Kind), "user", src.UserID)

	for _, entry := range entries {
		if entry.GUID == "" {
			logger.Debug("skipping entry without guid", "link", entry.Link)
			result.Skipped++
			continue
		}
		if _, dup := seen[entry.GUID]; dup {
			logger.Info("skipping duplicate entry within cycle", "guid", entry.GUID)
			result.Skipped++
			continue
		}
		seen[entry.GUID] = struct{}{}

		if entry.Published == nil {
			logger.Warn("skipping entry without publish date", "guid", entry.GUID)
			result.Skipped++
			continue
		}
		if entry.Published.Before(watermark) {
			logger.Debug("skipping entry below watermark",
				"guid", entry.GUID,
				"published", entry.Published,
			)
			result.Skipped++
			continue
		}
		if skip != nil && skip(entry) {
			logger.Info("skipping excluded entry", "guid", entry.GUID)
			result.Skipped++
			continue
		}

		delivered, err := f.delivered.IsDelivered(ctx, entry.GUID)
		if err != nil {
			return nil, err
		}
		if delivered {
			logger.Debug("skipping already delivered entry", "guid", entry.GUID)
			result.Skipped++
			continue
		}

		imageURLs := ExtractImageURLs(entry.Description)
		if len(imageURLs) == 0 {
			logger.Warn("no images found in entry", "guid", entry.GUID)
			result.Skipped++
			continue
		}

		for _, chunk := range chunkStrings(imageURLs, domain.MaxBatchImages) {
			result.Batches = append(result.Batches, domain.DeliveryBatch{
				GUID:       entry.GUID,
				Title:      entry.Title,
				Author:     entry.Author,
				EntryLink:  entry.Link,
				SourceLink: feed.Link,
				Kind:       src.Kind,
				ImageURLs:  chunk,
			})
		}

		result.Accepted++
		if entry.Published.After(result.MaxPublished) {
			result.MaxPublished = *entry.Published
		}
	}

	logger.Debug("filter pass complete",
		"accepted", result.Accepted,
		"skipped", result.Skipped,
		"batches", len(result.Batches),
	)
	return result, nil
}

// ExtractImageURLs pulls img src attributes out of an entry's HTML body.
func ExtractImageURLs(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var urls []string
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && src != "" {
			urls = append(urls, src)
		}
	})
	return urls
}

func sortOldestFirst(entries []domain.FeedEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Published, entries[j].Published
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.Before(*b)
	})
}

func chunkStrings(items []string, size int) [][]string {
	var chunks [][]string
	for len(items) > size {
		chunks = append(chunks, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		chunks = append(chunks, items)
	}
	return chunks
}
