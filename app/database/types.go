package database

import (
	"time"
)

// FeedItem is a normalized item as produced by ingestion, ready for upsert.
// Score is deliberately absent: rows are always written with score 0 and any
// ranking-time adjustment is computed on read.
type FeedItem struct {
	ExternalID  string
	Hash        string
	Title       string
	URL         string
	PublishedAt time.Time
	Author      string
	Excerpt     string
	ContentHTML string
	MediaURL    string
	Program     string
	Type        string
	Level       string
	Region      string
	Tags        []string
}

// Cursor is the decoded pagination position: the (published_at, id) pair of
// the last item of the previous page. Ordering is published_at DESC, id DESC,
// so the pair gives a strict total order even when timestamps collide.
type Cursor struct {
	PublishedAt time.Time
	ID          string
}

// ItemFilter narrows a feed page query. Zero values mean "no filter".
type ItemFilter struct {
	Type     string
	Level    string
	Programs []string
	SourceID int64
	Cursor   *Cursor
	Limit    int
}
