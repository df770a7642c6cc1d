package filter

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"feed_poster/internal/domain"
)

type fakeDelivered struct {
	delivered map[string]bool
	err       error
	lookups   []string
}

func (f *fakeDelivered) IsDelivered(_ context.Context, guid string) (bool, error) {
	f.lookups = append(f.lookups, guid)
	if f.err != nil {
		return false, f.err
	}
	return f.delivered[guid], nil
}

type FilterTestSuite struct {
	suite.Suite

	delivered *fakeDelivered
	filter    *Filter
	src       domain.Source
	watermark time.Time
}

func (s *FilterTestSuite) SetupTest() {
	s.delivered = &fakeDelivered{delivered: map[string]bool{}}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.filter = New(s.delivered, logger)
	s.src = domain.Source{UserID: "11111", Kind: domain.KindPixiv}
	s.watermark = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
}

func TestFilterTestSuite(t *testing.T) {
	suite.Run(t, new(FilterTestSuite))
}

func ts(day int) *time.Time {
	t := time.Date(2025, 3, day, 12, 0, 0, 0, time.UTC)
	return &t
}

func entry(guid string, published *time.Time, images int) domain.FeedEntry {
	html := ""
	for i := 0; i < images; i++ {
		html += `<p><img src="https://i.pximg.net/img/` + guid + `_p` + string(rune('0'+i)) + `.jpg"/></p>`
	}
	return domain.FeedEntry{
		GUID:        guid,
		Title:       "title " + guid,
		Link:        "https://www.pixiv.net/artworks/" + guid,
		Published:   published,
		Description: html,
	}
}

func (s *FilterTestSuite) TestRun_ChronologicalBatchOrder() {
	// Feed delivers newest first; batches must come out oldest first.
	feed := &domain.Feed{
		Link: "https://www.pixiv.net/users/11111",
		Entries: []domain.FeedEntry{
			entry("300", ts(20), 1),
			entry("200", ts(15), 1),
			entry("100", ts(10), 1),
		},
	}

	result, err := s.filter.Run(context.Background(), s.src, feed, s.watermark, nil)

	s.NoError(err)
	s.Require().Len(result.Batches, 3)
	s.Equal("100", result.Batches[0].GUID)
	s.Equal("200", result.Batches[1].GUID)
	s.Equal("300", result.Batches[2].GUID)
	s.Equal(3, result.Accepted)
	s.Equal(*ts(20), result.MaxPublished)
}

func (s *FilterTestSuite) TestRun_WatermarkCutoff() {
	old := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	feed := &domain.Feed{Entries: []domain.FeedEntry{
		entry("100", &old, 1),
		entry("200", ts(10), 1),
	}}

	result, err := s.filter.Run(context.Background(), s.src, feed, s.watermark, nil)

	s.NoError(err)
	s.Require().Len(result.Batches, 1)
	s.Equal("200", result.Batches[0].GUID)
	s.Equal(1, result.Accepted)
	s.Equal(1, result.Skipped)
	// The rejected entry never advances the maximum.
	s.Equal(*ts(10), result.MaxPublished)
}

func (s *FilterTestSuite) TestRun_EntryAtWatermarkIsAccepted() {
	feed := &domain.Feed{Entries: []domain.FeedEntry{
		{GUID: "100", Published: &s.watermark, Description: `<img src="https://i.pximg.net/a.jpg">`},
	}}

	result, err := s.filter.Run(context.Background(), s.src, feed, s.watermark, nil)

	s.NoError(err)
	s.Equal(1, result.Accepted)
}

func (s *FilterTestSuite) TestRun_DuplicateWithinCycle() {
	feed := &domain.Feed{Entries: []domain.FeedEntry{
		entry("100", ts(10), 1),
		entry("100", ts(10), 1),
	}}

	result, err := s.filter.Run(context.Background(), s.src, feed, s.watermark, nil)

	s.NoError(err)
	s.Len(result.Batches, 1)
	s.Equal(1, result.Accepted)
	s.Equal(1, result.Skipped)
	// Only one store lookup for the pair.
	s.Equal([]string{"100"}, s.delivered.lookups)
}

func (s *FilterTestSuite) TestRun_MissingGUIDAndDate() {
	feed := &domain.Feed{Entries: []domain.FeedEntry{
		{GUID: "", Published: ts(10), Description: `<img src="https://i.pximg.net/a.jpg">`},
		{GUID: "100", Published: nil, Description: `<img src="https://i.pximg.net/b.jpg">`},
	}}

	result, err := s.filter.Run(context.Background(), s.src, feed, s.watermark, nil)

	s.NoError(err)
	s.Empty(result.Batches)
	s.Equal(2, result.Skipped)
	s.Empty(s.delivered.lookups)
}

func (s *FilterTestSuite) TestRun_ExclusionPredicate() {
	skip := func(e domain.FeedEntry) bool { return e.GUID == "200" }
	feed := &domain.Feed{Entries: []domain.FeedEntry{
		entry("100", ts(10), 1),
		entry("200", ts(15), 1),
	}}

	result, err := s.filter.Run(context.Background(), s.src, feed, s.watermark, skip)

	s.NoError(err)
	s.Require().Len(result.Batches, 1)
	s.Equal("100", result.Batches[0].GUID)
	// The excluded entry's newer timestamp must not leak into the maximum.
	s.Equal(*ts(10), result.MaxPublished)
}

func (s *FilterTestSuite) TestRun_AlreadyDelivered() {
	s.delivered.delivered["100"] = true
	feed := &domain.Feed{Entries: []domain.FeedEntry{entry("100", ts(10), 1)}}

	result, err := s.filter.Run(context.Background(), s.src, feed, s.watermark, nil)

	s.NoError(err)
	s.Empty(result.Batches)
	s.Equal(1, result.Skipped)
}

func (s *FilterTestSuite) TestRun_StoreErrorAborts() {
	s.delivered.err = errors.New("db down")
	feed := &domain.Feed{Entries: []domain.FeedEntry{entry("100", ts(10), 1)}}

	result, err := s.filter.Run(context.Background(), s.src, feed, s.watermark, nil)

	s.Error(err)
	s.Nil(result)
}

func (s *FilterTestSuite) TestRun_NoImagesSkipped() {
	feed := &domain.Feed{Entries: []domain.FeedEntry{
		{GUID: "100", Published: ts(10), Description: "<p>text only</p>"},
	}}

	result, err := s.filter.Run(context.Background(), s.src, feed, s.watermark, nil)

	s.NoError(err)
	s.Empty(result.Batches)
	s.Equal(1, result.Skipped)
	s.True(result.MaxPublished.IsZero())
}

func (s *FilterTestSuite) TestRun_OversizedEntrySplitsIntoChunks() {
	feed := &domain.Feed{Entries: []domain.FeedEntry{entry("100", ts(10), 12)}}

	result, err := s.filter.Run(context.Background(), s.src, feed, s.watermark, nil)

	s.NoError(err)
	s.Require().Len(result.Batches, 2)
	s.Len(result.Batches[0].ImageURLs, 10)
	s.Len(result.Batches[1].ImageURLs, 2)
	s.Equal("100", result.Batches[0].GUID)
	s.Equal("100", result.Batches[1].GUID)
	s.Equal(1, result.Accepted)
}

func (s *FilterTestSuite) TestRun_BatchCarriesMetadata() {
	feed := &domain.Feed{
		Link:    "https://www.pixiv.net/users/11111",
		Entries: []domain.FeedEntry{entry("100", ts(10), 2)},
	}

	result, err := s.filter.Run(context.Background(), s.src, feed, s.watermark, nil)

	s.NoError(err)
	s.Require().Len(result.Batches, 1)
	b := result.Batches[0]
	s.Equal("https://www.pixiv.net/artworks/100", b.EntryLink)
	s.Equal("https://www.pixiv.net/users/11111", b.SourceLink)
	s.Equal(domain.KindPixiv, b.Kind)
	s.Len(b.ImageURLs, 2)
}

func TestExtractImageURLs(t *testing.T) {
	tests := []struct {
		name string
		html string
		want int
	}{
		{"multiple images", `<img src="https://a/1.jpg"><img src="https://a/2.jpg">`, 2},
		{"nested markup", `<div><p><img src="https://a/1.jpg"/></p></div>`, 1},
		{"empty src ignored", `<img src="">`, 0},
		{"no images", `<p>plain</p>`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractImageURLs(tt.html)
			if len(got) != tt.want {
				t.Errorf("got %d urls, want %d", len(got), tt.want)
			}
		})
	}
}
