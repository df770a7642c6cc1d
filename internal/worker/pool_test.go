package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"feed_poster/internal/domain"
)

type fakeStore struct {
	mu        sync.Mutex
	delivered map[string]bool
	links     map[string]string
	checkErr  error
	addErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{delivered: map[string]bool{}, links: map[string]string{}}
}

func (f *fakeStore) Add(_ context.Context, guid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.delivered[guid] = true
	return nil
}

func (f *fakeStore) IsDelivered(_ context.Context, guid string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.delivered[guid], nil
}

func (f *fakeStore) UpdateMessageLink(_ context.Context, guid, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[guid] = link
	return nil
}

func (f *fakeStore) link(guid string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.links[guid]
}

func (f *fakeStore) isDelivered(guid string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.delivered[guid]
}

type fakeTx struct{}

func (fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeImages struct {
	mu      sync.Mutex
	failing map[string]bool
}

func (f *fakeImages) Process(_ context.Context, rawURL, _ string) (*domain.ImageFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[rawURL] {
		return nil, errors.New("image rejected")
	}
	return &domain.ImageFile{Name: rawURL, Data: []byte{1}}, nil
}

type sendOutcome struct {
	result *domain.DeliveryResult
	err    error
}

type fakeDeliverer struct {
	mu       sync.Mutex
	outcomes []sendOutcome // consumed per call; last one repeats
	calls    int
	sent     [][]domain.ImageFile
	deleted  []int
}

func (f *fakeDeliverer) SendBatch(_ context.Context, _ *domain.DeliveryBatch, images []domain.ImageFile) (*domain.DeliveryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	if idx >= len(f.outcomes) {
		idx = len(f.outcomes) - 1
	}
	f.calls++
	f.sent = append(f.sent, images)
	out := f.outcomes[idx]
	return out.result, out.err
}

func (f *fakeDeliverer) Delete(_ context.Context, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeDeliverer) MessageLink(messageID int) string {
	return fmt.Sprintf("https://t.me/c/1234567890/%d", messageID)
}

func (f *fakeDeliverer) sendCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*domain.DeliveryEvent
}

func (f *fakePublisher) Publish(_ context.Context, event *domain.DeliveryEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type PoolTestSuite struct {
	suite.Suite

	queue     *Queue
	store     *fakeStore
	images    *fakeImages
	deliverer *fakeDeliverer
	publisher *fakePublisher
	pool      *Pool
}

func (s *PoolTestSuite) SetupTest() {
	s.queue = NewQueue(16)
	s.store = newFakeStore()
	s.images = &fakeImages{failing: map[string]bool{}}
	s.deliverer = &fakeDeliverer{
		outcomes: []sendOutcome{{result: &domain.DeliveryResult{
			GroupID:    "g-1",
			MessageIDs: []int{42, 43},
		}}},
	}
	s.publisher = &fakePublisher{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.pool = NewPool(s.queue, s.store, fakeTx{}, s.images, s.deliverer, s.publisher, 2, logger)
}

func TestPoolTestSuite(t *testing.T) {
	suite.Run(t, new(PoolTestSuite))
}

func (s *PoolTestSuite) drain(batches ...*domain.DeliveryBatch) {
	ctx := context.Background()
	s.pool.Start(ctx)
	for _, b := range batches {
		s.Require().NoError(s.queue.Enqueue(ctx, b))
	}
	s.queue.Join()
	s.queue.Close()
	s.pool.Wait()
}

func batch(guid string, urls ...string) *domain.DeliveryBatch {
	return &domain.DeliveryBatch{
		GUID:       guid,
		EntryLink:  "https://www.pixiv.net/artworks/" + guid,
		SourceLink: "https://www.pixiv.net/users/11111",
		Kind:       domain.KindPixiv,
		ImageURLs:  urls,
	}
}

func (s *PoolTestSuite) TestDeliversAndPersists() {
	s.drain(batch("100", "https://i.pximg.net/a.jpg", "https://i.pximg.net/b.jpg"))

	s.Equal(1, s.deliverer.sendCalls())
	s.True(s.store.isDelivered("100"))
	s.Equal("https://t.me/c/1234567890/42", s.store.link("100"))

	s.Require().Len(s.publisher.events, 1)
	event := s.publisher.events[0]
	s.Equal("100", event.GUID)
	s.Equal(2, event.Images)
	s.Equal("https://t.me/c/1234567890/42", event.MessageLink)
	s.WithinDuration(time.Now().UTC(), event.Timestamp, time.Minute)
}

func (s *PoolTestSuite) TestDuplicateGUIDSentOnce() {
	s.drain(
		batch("100", "https://i.pximg.net/a.jpg"),
		batch("100", "https://i.pximg.net/b.jpg"),
	)

	s.Equal(1, s.deliverer.sendCalls())
	s.True(s.store.isDelivered("100"))
}

func (s *PoolTestSuite) TestSeededGUIDNeverSent() {
	s.pool.Seed([]string{"100"})

	s.drain(batch("100", "https://i.pximg.net/a.jpg"))

	s.Equal(0, s.deliverer.sendCalls())
}

func (s *PoolTestSuite) TestPersistedGUIDNeverSent() {
	s.store.delivered["100"] = true

	s.drain(batch("100", "https://i.pximg.net/a.jpg"))

	s.Equal(0, s.deliverer.sendCalls())
}

func (s *PoolTestSuite) TestFailedImagesAreSkipped() {
	s.images.failing["https://i.pximg.net/bad.jpg"] = true

	s.drain(batch("100", "https://i.pximg.net/bad.jpg", "https://i.pximg.net/good.jpg"))

	s.Equal(1, s.deliverer.sendCalls())
	s.Require().Len(s.deliverer.sent, 1)
	s.Require().Len(s.deliverer.sent[0], 1)
	s.Equal("https://i.pximg.net/good.jpg", s.deliverer.sent[0][0].Name)
}

func (s *PoolTestSuite) TestNoSurvivingImagesNotPersisted() {
	s.images.failing["https://i.pximg.net/bad.jpg"] = true

	s.drain(batch("100", "https://i.pximg.net/bad.jpg"))

	s.Equal(0, s.deliverer.sendCalls())
	s.False(s.store.isDelivered("100"))
	s.Empty(s.publisher.events)
}

func (s *PoolTestSuite) TestAmbiguousDeliveryPersistedWithoutLink() {
	s.deliverer.outcomes = []sendOutcome{{result: &domain.DeliveryResult{Ambiguous: true}}}

	s.drain(batch("100", "https://i.pximg.net/a.jpg"))

	s.True(s.store.isDelivered("100"))
	s.Empty(s.store.link("100"))
	s.Empty(s.publisher.events)
}

func (s *PoolTestSuite) TestFailedDeliveryNotPersisted() {
	s.deliverer.outcomes = []sendOutcome{{err: errors.New("send failed")}}

	s.drain(batch("100", "https://i.pximg.net/a.jpg"))

	s.False(s.store.isDelivered("100"))
	s.Empty(s.publisher.events)
}

func (s *PoolTestSuite) TestDedupCheckErrorDropsBatch() {
	s.store.checkErr = errors.New("db down")

	s.drain(batch("100", "https://i.pximg.net/a.jpg"))

	s.Equal(0, s.deliverer.sendCalls())
}

func (s *PoolTestSuite) TestDuplicateMediaGroupIsDeleted() {
	// Simulate two deliveries of the same entry slipping through that came
	// back with different media group handles: the second is removed.
	s.deliverer.outcomes = []sendOutcome{
		{result: &domain.DeliveryResult{GroupID: "g-1", MessageIDs: []int{42}}},
		{result: &domain.DeliveryResult{GroupID: "g-2", MessageIDs: []int{50, 51}}},
	}
	ctx := context.Background()
	logger := s.pool.logger

	first := batch("100", "https://i.pximg.net/a.jpg")
	s.pool.process(ctx, logger, first)

	// Second invocation bypasses the dedup gate to exercise reconciliation.
	result, err := s.deliverer.SendBatch(ctx, first, []domain.ImageFile{{Name: "a"}})
	s.Require().NoError(err)
	s.pool.reconcile(ctx, logger, first, result, 1)

	s.Equal([]int{50, 51}, s.deliverer.deleted)
	// The original handle stays authoritative.
	s.True(s.store.isDelivered("100"))
	s.Equal("https://t.me/c/1234567890/42", s.store.link("100"))
}

func (s *PoolTestSuite) TestIdenticalGroupHandleNotDeleted() {
	s.deliverer.outcomes = []sendOutcome{
		{result: &domain.DeliveryResult{GroupID: "g-1", MessageIDs: []int{42}}},
	}
	ctx := context.Background()
	logger := s.pool.logger

	first := batch("100", "https://i.pximg.net/a.jpg")
	s.pool.process(ctx, logger, first)
	s.pool.reconcile(ctx, logger, first, &domain.DeliveryResult{GroupID: "g-1", MessageIDs: []int{42}}, 1)

	s.Empty(s.deliverer.deleted)
}

func (s *PoolTestSuite) TestNilPublisher() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	pool := NewPool(s.queue, s.store, fakeTx{}, s.images, s.deliverer, nil, 1, logger)

	ctx := context.Background()
	pool.Start(ctx)
	s.Require().NoError(s.queue.Enqueue(ctx, batch("100", "https://i.pximg.net/a.jpg")))
	s.queue.Join()
	s.queue.Close()
	pool.Wait()

	s.True(s.store.isDelivered("100"))
}

func TestQueueEnqueueAfterClose(t *testing.T) {
	q := NewQueue(1)
	q.Close()

	err := q.Enqueue(context.Background(), &domain.DeliveryBatch{GUID: "100"})
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Enqueue() error = %v, want ErrQueueClosed", err)
	}
}

func TestQueueEnqueueCancelled(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())

	if err := q.Enqueue(ctx, &domain.DeliveryBatch{GUID: "100"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	// Queue is full; a cancelled context must unblock the producer.
	cancel()
	err := q.Enqueue(ctx, &domain.DeliveryBatch{GUID: "200"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Enqueue() error = %v, want context.Canceled", err)
	}

	// Join must not count the rejected batch.
	done := make(chan struct{})
	go func() {
		<-q.batches()
		q.done()
		q.Join()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Join() did not return after draining")
	}
}
