package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"feed_poster/internal/domain"
)

type SettingStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type UserStore interface {
	List(ctx context.Context, kind domain.SourceKind) ([]string, error)
}

type FeedFetcher interface {
	Fetch(ctx context.Context, src domain.Source) (*domain.Feed, error)
}

type EntryFilter interface {
	Run(ctx context.Context, src domain.Source, feed *domain.Feed, watermark time.Time, skip func(domain.FeedEntry) bool) (*domain.FilterResult, error)
}

type BatchQueue interface {
	Enqueue(ctx context.Context, batch *domain.DeliveryBatch) error
	Join()
}
