package domain

import "time"

// MaxBatchImages is the platform ceiling on images per media group.
const MaxBatchImages = 10

// DeliveryBatch is an ordered group of at most MaxBatchImages image URLs plus
// the routing metadata shared by every batch cut from the same entry. Ownership
// moves from the filter to the queue to exactly one worker.
type DeliveryBatch struct {
	GUID       string
	Title      string
	Author     string
	EntryLink  string
	SourceLink string
	Kind       SourceKind
	ImageURLs  []string
}

// ImageFile is one fetched, validated and re-encoded image payload.
type ImageFile struct {
	Name string
	Data []byte
}

// DeliveryResult reports the outcome of one platform send.
type DeliveryResult struct {
	GroupID    string // platform media-group correlation id
	MessageIDs []int
	// Ambiguous marks a timed-out send that is assumed delivered; no handle
	// is available and the send must not be retried.
	Ambiguous bool
}

// DeliveryEvent is published to the event stream after a delivery is persisted.
type DeliveryEvent struct {
	GUID        string    `json:"guid"`
	MessageLink string    `json:"message_link,omitempty"`
	Images      int       `json:"images"`
	SourceLink  string    `json:"source_link,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// FilterResult is what one filter pass over a single source yields.
type FilterResult struct {
	Batches []DeliveryBatch
	// MaxPublished is the newest publish timestamp among accepted entries;
	// zero when nothing was accepted.
	MaxPublished time.Time
	Accepted     int
	Skipped      int
}
