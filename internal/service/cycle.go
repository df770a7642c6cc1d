package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"feed_poster/internal/domain"
	"feed_poster/internal/source/rsshub"
)

// WatermarkKey is the settings key holding the global delivery watermark.
const WatermarkKey = "last_posted_timestamp"

// Config holds cycle orchestration parameters.
type Config struct {
	// Cutoff bounds the first-ever run, before a watermark exists.
	Cutoff time.Time
	// DefaultUserID is polled (as a pixiv source) when nothing is tracked.
	DefaultUserID string
}

// CycleService drives one fetch, filter, enqueue, drain, watermark-advance
// pass over every tracked source. Source failures are isolated: one source's
// fetch error never aborts its siblings, it only mutes that source for the
// cycle. The watermark is advanced strictly after the queue has drained, and
// never backwards.
type CycleService struct {
	users    UserStore
	settings SettingStore
	fetcher  FeedFetcher
	filter   EntryFilter
	queue    BatchQueue
	cfg      Config
	logger   *slog.Logger
}

func NewCycleService(
	users UserStore,
	settings SettingStore,
	fetcher FeedFetcher,
	filter EntryFilter,
	queue BatchQueue,
	cfg Config,
	logger *slog.Logger,
) *CycleService {
	return &CycleService{
		users:    users,
		settings: settings,
		fetcher:  fetcher,
		filter:   filter,
		queue:    queue,
		cfg:      cfg,
		logger:   logger.With("component", "cycle"),
	}
}

// Run executes one full cycle and reports its statistics.
func (s *CycleService) Run(ctx context.Context) (*domain.CycleStats, error) {
	startTime := time.Now()

	watermark, err := s.watermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("read watermark: %w", err)
	}

	sources, err := s.sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	s.logger.Info("starting cycle",
		"sources", len(sources),
		"watermark", watermark,
	)

	stats := &domain.CycleStats{Sources: len(sources)}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, src := range sources {
		src := src
		g.Go(func() error {
			result, err := s.processSource(gctx, src, watermark)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				s.logger.Error("source failed",
					"kind", string(src.Kind),
					"user", src.UserID,
					"error", err,
				)
				return nil // isolated, never aborts siblings
			}
			stats.Fetched += result.Accepted + result.Skipped
			stats.Accepted += result.Accepted
			stats.Skipped += result.Skipped
			stats.Batches += len(result.Batches)
			if result.MaxPublished.After(stats.MaxPublished) {
				stats.MaxPublished = result.MaxPublished
			}
			return nil
		})
	}

	_ = g.Wait()

	// Watermark advance is sequenced strictly after the full drain of this
	// cycle's batches.
	s.queue.Join()

	if err := s.advanceWatermark(ctx, watermark, stats.MaxPublished); err != nil {
		return stats, fmt.Errorf("advance watermark: %w", err)
	}

	stats.Duration = time.Since(startTime)
	s.logger.Info("cycle complete",
		"accepted", stats.Accepted,
		"skipped", stats.Skipped,
		"batches", stats.Batches,
		"failed_sources", stats.Failed,
		"max_published", stats.MaxPublished,
		"duration", stats.Duration,
	)
	return stats, nil
}

func (s *CycleService) processSource(ctx context.Context, src domain.Source, watermark time.Time) (*domain.FilterResult, error) {
	feed, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	result, err := s.filter.Run(ctx, src, feed, watermark, rsshub.SkipPredicate(src.Kind))
	if err != nil {
		return nil, fmt.Errorf("filter feed: %w", err)
	}

	for i := range result.Batches {
		if err := s.queue.Enqueue(ctx, &result.Batches[i]); err != nil {
			return nil, fmt.Errorf("enqueue batch: %w", err)
		}
	}

	return result, nil
}

// watermark reads the persisted cutoff; the configured start date bounds the
// first-ever run.
func (s *CycleService) watermark(ctx context.Context) (time.Time, error) {
	raw, ok, err := s.settings.Get(ctx, WatermarkKey)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		s.logger.Info("no watermark yet, using configured cutoff", "cutoff", s.cfg.Cutoff)
		return s.cfg.Cutoff, nil
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		s.logger.Error("invalid watermark value, using configured cutoff",
			"value", raw,
			"error", err,
		)
		return s.cfg.Cutoff, nil
	}
	return parsed, nil
}

func (s *CycleService) advanceWatermark(ctx context.Context, current, maxPublished time.Time) error {
	if maxPublished.IsZero() || !maxPublished.After(current) {
		return nil
	}
	value := maxPublished.UTC().Format(time.RFC3339)
	if err := s.settings.Set(ctx, WatermarkKey, value); err != nil {
		return err
	}
	s.logger.Info("watermark advanced", "from", current, "to", maxPublished)
	return nil
}

func (s *CycleService) sources(ctx context.Context) ([]domain.Source, error) {
	var sources []domain.Source
	for _, kind := range []domain.SourceKind{domain.KindPixiv, domain.KindTwitter} {
		ids, err := s.users.List(ctx, kind)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			sources = append(sources, domain.Source{UserID: id, Kind: kind})
		}
	}

	if len(sources) == 0 && s.cfg.DefaultUserID != "" {
		s.logger.Warn("no tracked users, falling back to default",
			"user", s.cfg.DefaultUserID,
		)
		sources = append(sources, domain.Source{UserID: s.cfg.DefaultUserID, Kind: domain.KindPixiv})
	}

	return sources, nil
}
