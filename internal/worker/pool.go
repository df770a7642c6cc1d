package worker

import (
	"context"
	"log/slog"
	"sync"

	"feed_poster/internal/domain"
	"feed_poster/internal/pipeline"
)

// DeliveredStore is the persisted dedup set plus the message-link record.
type DeliveredStore interface {
	Add(ctx context.Context, guid string) error
	IsDelivered(ctx context.Context, guid string) (bool, error)
	UpdateMessageLink(ctx context.Context, guid, link string) error
}

// TransactionManager scopes the guid + message-link persistence to one
// transaction so a crash cannot record a delivery without its link update
// being at least attempted atomically with it.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ImageProcessor resolves one image URL into an encoded payload.
type ImageProcessor interface {
	Process(ctx context.Context, rawURL, referer string) (*domain.ImageFile, error)
}

// Deliverer sends a batch to the channel and can remove delivered messages.
type Deliverer interface {
	SendBatch(ctx context.Context, batch *domain.DeliveryBatch, images []domain.ImageFile) (*domain.DeliveryResult, error)
	Delete(ctx context.Context, messageID int) error
	MessageLink(messageID int) string
}

// EventPublisher emits a delivery event after a delivery is persisted.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.DeliveryEvent) error
}

// Pool is a fixed-size set of consumers over one shared queue. Each worker
// loops dequeue, dedup-gate, resolve images, deliver, reconcile, persist.
//
// The dedup gate is the single critical section shared by all workers: a
// read-then-insert over the in-memory processed set combined with the
// authoritative store lookup, so no two workers can deliver the same entry.
type Pool struct {
	queue     *Queue
	store     DeliveredStore
	tx        TransactionManager
	images    ImageProcessor
	deliverer Deliverer
	events    EventPublisher // nil when the event stream is disabled
	logger    *slog.Logger
	size      int

	dedupMu   sync.Mutex
	processed map[string]struct{}

	groupsMu sync.Mutex
	groups   map[string]string // guid -> media-group handle, process lifetime

	workers sync.WaitGroup
}

func NewPool(
	queue *Queue,
	store DeliveredStore,
	tx TransactionManager,
	images ImageProcessor,
	deliverer Deliverer,
	events EventPublisher,
	size int,
	logger *slog.Logger,
) *Pool {
	return &Pool{
		queue:     queue,
		store:     store,
		tx:        tx,
		images:    images,
		deliverer: deliverer,
		events:    events,
		logger:    logger.With("component", "worker"),
		size:      size,
		processed: make(map[string]struct{}),
		groups:    make(map[string]string),
	}
}

// Seed preloads the in-memory processed set from the persisted delivered set,
// so restarts do not pay a storage round trip per entry.
func (p *Pool) Seed(guids []string) {
	p.dedupMu.Lock()
	defer p.dedupMu.Unlock()
	for _, guid := range guids {
		p.processed[guid] = struct{}{}
	}
}

// Start launches the workers. They exit when the queue is closed and drained;
// an in-flight delivery is always finished, not aborted mid-send.
func (p *Pool) Start(ctx context.Context) {
	for i := 1; i <= p.size; i++ {
		p.workers.Add(1)
		go p.run(ctx, i)
	}
}

// Wait blocks until all workers have exited.
func (p *Pool) Wait() {
	p.workers.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.workers.Done()
	logger := p.logger.With("worker", id)

	for batch := range p.queue.batches() {
		p.process(ctx, logger, batch)
		p.queue.done()
	}
}

func (p *Pool) process(ctx context.Context, logger *slog.Logger, batch *domain.DeliveryBatch) {
	logger = logger.With("guid", batch.GUID)

	claimed, err := p.claim(ctx, batch.GUID)
	if err != nil {
		logger.Error("dedup check failed", "error", err)
		return
	}
	if !claimed {
		logger.Info("skipping duplicate batch")
		return
	}

	referer := pipeline.RefererFor(batch.Kind)
	images := make([]domain.ImageFile, 0, len(batch.ImageURLs))
	for _, rawURL := range batch.ImageURLs {
		img, err := p.images.Process(ctx, rawURL, referer)
		if err != nil {
			logger.Warn("skipping image", "url", rawURL, "error", err)
			continue
		}
		images = append(images, *img)
	}

	if len(images) == 0 {
		// Not an error and not persisted as delivered: the entry may be
		// retried if it ever reappears above the watermark.
		logger.Info("skipping batch, no images survived validation")
		return
	}

	result, err := p.deliverer.SendBatch(ctx, batch, images)
	if err != nil {
		logger.Error("delivery failed", "error", err)
		return
	}

	if result.Ambiguous {
		// Assumed delivered; persist the guid so it is never re-sent, even
		// though no message link is known.
		logger.Warn("ambiguous delivery, recording without link")
		if err := p.store.Add(ctx, batch.GUID); err != nil {
			logger.Error("persist delivered guid failed", "error", err)
		}
		return
	}

	p.reconcile(ctx, logger, batch, result, len(images))
}

// claim marks the guid as being processed. It returns false when another
// worker already owns it or it is already persisted as delivered.
func (p *Pool) claim(ctx context.Context, guid string) (bool, error) {
	p.dedupMu.Lock()
	defer p.dedupMu.Unlock()

	if _, ok := p.processed[guid]; ok {
		return false, nil
	}
	delivered, err := p.store.IsDelivered(ctx, guid)
	if err != nil {
		return false, err
	}
	if delivered {
		p.processed[guid] = struct{}{}
		return false, nil
	}
	p.processed[guid] = struct{}{}
	return true, nil
}

// reconcile detects the rare double-delivery race: when this guid already has
// a recorded media-group handle and the new one differs, the newer delivery
// is removed from the channel and the first stays authoritative.
func (p *Pool) reconcile(ctx context.Context, logger *slog.Logger, batch *domain.DeliveryBatch, result *domain.DeliveryResult, imageCount int) {
	p.groupsMu.Lock()
	prior, seen := p.groups[batch.GUID]
	if !seen {
		p.groups[batch.GUID] = result.GroupID
	}
	p.groupsMu.Unlock()

	if seen {
		if prior == result.GroupID {
			logger.Warn("received identical media group handle again", "group", result.GroupID)
			return
		}
		logger.Warn("duplicate delivery detected, deleting it",
			"original_group", prior,
			"duplicate_group", result.GroupID,
		)
		for _, id := range result.MessageIDs {
			if err := p.deliverer.Delete(ctx, id); err != nil {
				logger.Error("delete duplicate message failed", "message_id", id, "error", err)
			}
		}
		return
	}

	link := ""
	if len(result.MessageIDs) > 0 {
		link = p.deliverer.MessageLink(result.MessageIDs[0])
	}

	err := p.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := p.store.Add(txCtx, batch.GUID); err != nil {
			return err
		}
		if link == "" {
			return nil
		}
		return p.store.UpdateMessageLink(txCtx, batch.GUID, link)
	})
	if err != nil {
		logger.Error("persist delivery failed", "error", err)
		return
	}

	logger.Info("delivered batch", "images", imageCount, "link", link)

	if p.events != nil {
		event := &domain.DeliveryEvent{
			GUID:        batch.GUID,
			MessageLink: link,
			Images:      imageCount,
			SourceLink:  batch.SourceLink,
			Timestamp:   nowUTC(),
		}
		if err := p.events.Publish(ctx, event); err != nil {
			logger.Error("publish delivery event failed", "error", err)
		}
	}
}
