package domain

import "time"

// SourceKind identifies the provider a tracked account belongs to.
type SourceKind string

const (
	KindPixiv   SourceKind = "pixiv"
	KindTwitter SourceKind = "twitter"
)

// Source is a tracked origin: a provider plus a provider-specific account id.
type Source struct {
	UserID string
	Kind   SourceKind
}

// FeedEntry is one syndication item, reconstructed on every fetch and never
// persisted directly. Only GUID and Published influence persisted state.
type FeedEntry struct {
	GUID        string // normalized: last path segment of the entry guid
	Title       string
	Link        string
	Published   *time.Time // nil when the feed carried no parseable date
	Categories  []string
	Author      string
	Description string // raw HTML, carries the embedded images
}

// Feed is the parsed result of one source fetch.
type Feed struct {
	Link    string // channel-level link, used as the source link in captions
	Entries []FeedEntry
}
