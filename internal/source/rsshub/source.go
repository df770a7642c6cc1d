package rsshub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"feed_poster/internal/domain"
)

var (
	// ErrFeedUnavailable marks a malformed or otherwise unparseable feed
	// document, after retries were exhausted.
	ErrFeedUnavailable = errors.New("feed unavailable")
	// ErrFeedTimeout marks a fetch that never completed within the
	// per-attempt deadline, after retries were exhausted.
	ErrFeedTimeout = errors.New("feed timeout")
)

// Config holds feed fetcher configuration.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	MaxAttempts   int
	RetryInterval time.Duration
}

// Fetcher retrieves and parses one source's feed over the RSSHub proxy.
// A single mutex gates fetches across all sources: at most one fetch is in
// flight at any instant, pacing load on the shared proxy.
type Fetcher struct {
	parser        *gofeed.Parser
	gate          sync.Mutex
	baseURL       string
	timeout       time.Duration
	maxAttempts   int
	retryInterval time.Duration
	logger        *slog.Logger
}

// New creates a feed fetcher.
func New(cfg Config, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		parser:        gofeed.NewParser(),
		baseURL:       cfg.BaseURL,
		timeout:       cfg.Timeout,
		maxAttempts:   cfg.MaxAttempts,
		retryInterval: cfg.RetryInterval,
		logger:        logger.With("component", "fetcher"),
	}
}

// FeedURL builds the proxy route for a tracked source.
func (f *Fetcher) FeedURL(src domain.Source) string {
	base := strings.TrimSuffix(f.baseURL, "/")
	switch src.Kind {
	case domain.KindTwitter:
		return fmt.Sprintf("%s/twitter/user/%s", base, src.UserID)
	default:
		return fmt.Sprintf("%s/pixiv/user/%s", base, src.UserID)
	}
}

// Fetch retrieves and parses the source's feed. It retries on timeout and on
// malformed documents with a fixed interval, and commits no state on failure.
func (f *Fetcher) Fetch(ctx context.Context, src domain.Source) (*domain.Feed, error) {
	f.gate.Lock()
	defer f.gate.Unlock()

	feedURL := f.FeedURL(src)

	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		feed, err := f.fetchOnce(ctx, feedURL)
		if err == nil {
			return f.transform(feed, feedURL), nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == f.maxAttempts {
			break
		}

		f.logger.Warn("feed fetch failed, retrying",
			"url", feedURL,
			"attempt", attempt,
			"retry_in", f.retryInterval,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.retryInterval):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", f.maxAttempts, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(feedURL, attemptCtx)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrFeedTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	return feed, nil
}

func (f *Fetcher) transform(feed *gofeed.Feed, feedURL string) *domain.Feed {
	out := &domain.Feed{
		Link:    feed.Link,
		Entries: make([]domain.FeedEntry, 0, len(feed.Items)),
	}
	if out.Link == "" {
		out.Link = feedURL
	}

	for _, item := range feed.Items {
		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}

		var author string
		if item.Author != nil {
			author = item.Author.Name
		}

		out.Entries = append(out.Entries, domain.FeedEntry{
			GUID:        NormalizeGUID(item.GUID),
			Title:       item.Title,
			Link:        item.Link,
			Published:   published,
			Categories:  item.Categories,
			Author:      author,
			Description: item.Description,
		})
	}

	f.logger.Debug("fetched feed", "url", feedURL, "entries", len(out.Entries))
	return out
}

// NormalizeGUID reduces a guid URL to its last path segment, the stable
// identifier used as the dedup key.
func NormalizeGUID(guid string) string {
	if guid == "" {
		return ""
	}
	path := guid
	if u, err := url.Parse(guid); err == nil && u.Path != "" {
		path = u.Path
	}
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
